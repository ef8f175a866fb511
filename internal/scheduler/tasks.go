package scheduler

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const TaskFollowUpDue = "pipeline.follow_up.due"

// FollowUpDuePayload identifies the lead and the follow-up date a reminder was
// scheduled for. The worker drops the reminder when the lead has since moved
// to another date.
type FollowUpDuePayload struct {
	LeadID     string    `json:"leadId"`
	OwnerID    string    `json:"ownerId"`
	FollowUpAt time.Time `json:"followUpAt"`
}

// TaskID is the asynq task id used to collapse repeated scheduling of the same
// lead and date into one reminder.
func (p FollowUpDuePayload) TaskID() string {
	return fmt.Sprintf("followup:%s:%d", p.LeadID, p.FollowUpAt.UTC().Unix())
}

func NewFollowUpDueTask(payload FollowUpDuePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskFollowUpDue, data), nil
}

func ParseFollowUpDuePayload(task *asynq.Task) (FollowUpDuePayload, error) {
	var payload FollowUpDuePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return FollowUpDuePayload{}, err
	}
	return payload, nil
}
