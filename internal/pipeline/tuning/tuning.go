// Package tuning loads the pipeline's tunable constants from an optional
// YAML file: score weights, stage probabilities, the stall threshold and the
// region used to read local phone numbers.
package tuning

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"coaching_portal_backend/internal/pipeline/domain"
	"coaching_portal_backend/internal/pipeline/metrics"
	"coaching_portal_backend/internal/pipeline/scoring"
	"coaching_portal_backend/platform/phone"

	"gopkg.in/yaml.v3"
)

// Tuning is the validated set of pipeline constants.
type Tuning struct {
	Weights            scoring.Weights
	Probabilities      metrics.Probabilities
	StallThresholdDays int
	PhoneRegion        string
}

// Defaults returns the stock tuning.
func Defaults() Tuning {
	return Tuning{
		Weights:            scoring.DefaultWeights(),
		Probabilities:      metrics.DefaultProbabilities(),
		StallThresholdDays: metrics.DefaultStallThresholdDays,
		PhoneRegion:        phone.DefaultRegion,
	}
}

// MetricsConfig returns the aggregator configuration for this tuning.
func (t Tuning) MetricsConfig() metrics.Config {
	return metrics.Config{
		Probabilities:      t.Probabilities,
		StallThresholdDays: t.StallThresholdDays,
	}
}

// Phones returns the contact phone normalizer for this tuning.
func (t Tuning) Phones() (phone.Normalizer, error) {
	return phone.NewNormalizer(t.PhoneRegion)
}

// Model returns a scoring model for this tuning.
func (t Tuning) Model() (*scoring.Model, error) {
	return scoring.NewModel(t.Weights)
}

type rawTuning struct {
	ScoreWeights       *scoring.Weights   `yaml:"score_weights"`
	StageProbabilities map[string]float64 `yaml:"stage_probabilities"`
	StallThresholdDays *int               `yaml:"stall_threshold_days"`
	PhoneRegion        string             `yaml:"phone_region"`
}

// Load reads the tuning file at path. An empty path yields the defaults.
// Stage probabilities are merged over the defaults; a weight table replaces
// the default one as a whole.
func Load(path string) (Tuning, error) {
	if strings.TrimSpace(path) == "" {
		return Defaults(), nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return Tuning{}, fmt.Errorf("read pipeline tuning: %w", err)
	}
	return Parse(b)
}

// Parse decodes and validates YAML tuning.
func Parse(b []byte) (Tuning, error) {
	var raw rawTuning
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return Tuning{}, fmt.Errorf("parse pipeline tuning: %w", err)
	}

	t := Defaults()
	if raw.ScoreWeights != nil {
		t.Weights = *raw.ScoreWeights
	}
	for name, p := range raw.StageProbabilities {
		stage, err := domain.ParseStage(strings.TrimSpace(name))
		if err != nil {
			return Tuning{}, fmt.Errorf("stage_probabilities: %w", err)
		}
		t.Probabilities[stage] = p
	}
	if raw.StallThresholdDays != nil {
		t.StallThresholdDays = *raw.StallThresholdDays
	}
	if region := strings.TrimSpace(raw.PhoneRegion); region != "" {
		t.PhoneRegion = strings.ToUpper(region)
	}

	if err := t.Validate(); err != nil {
		return Tuning{}, err
	}
	return t, nil
}

// Validate checks every constant is usable.
func (t Tuning) Validate() error {
	var errs []error
	if err := t.Weights.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("score_weights: %w", err))
	}
	if err := t.Probabilities.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("stage_probabilities: %w", err))
	}
	if t.StallThresholdDays < 0 {
		errs = append(errs, fmt.Errorf("stall_threshold_days must be non-negative, got %d", t.StallThresholdDays))
	}
	if !phone.ValidRegion(t.PhoneRegion) {
		errs = append(errs, fmt.Errorf("phone_region %q is not a supported region", t.PhoneRegion))
	}
	return errors.Join(errs...)
}
