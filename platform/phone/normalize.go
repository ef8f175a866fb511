// Package phone normalizes contact numbers to E.164.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"fmt"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion applies to numbers written without a country prefix when no
// region is configured.
const DefaultRegion = "US"

// Normalizer formats numbers, reading prefix-less input as local to region.
type Normalizer struct {
	region string
}

// NewNormalizer validates region, an ISO 3166 alpha-2 code such as "GB".
func NewNormalizer(region string) (Normalizer, error) {
	region = strings.ToUpper(strings.TrimSpace(region))
	if !ValidRegion(region) {
		return Normalizer{}, fmt.Errorf("unsupported phone region %q", region)
	}
	return Normalizer{region: region}, nil
}

// Default returns a Normalizer for DefaultRegion.
func Default() Normalizer {
	return Normalizer{region: DefaultRegion}
}

// ValidRegion reports whether libphonenumber has metadata for region.
func ValidRegion(region string) bool {
	return region != "" && phonenumbers.GetCountryCodeForRegion(region) != 0
}

// Region returns the fallback region.
func (n Normalizer) Region() string {
	if n.region == "" {
		return DefaultRegion
	}
	return n.region
}

// E164 returns input in E.164 form. Input that does not parse to a valid
// number is returned trimmed, so free-form notes are never lost.
func (n Normalizer) E164(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ""
	}

	number, err := phonenumbers.Parse(trimmed, n.Region())
	if err != nil || !phonenumbers.IsValidNumber(number) {
		return trimmed
	}
	return phonenumbers.Format(number, phonenumbers.E164)
}

// NormalizeE164 is Default().E164(input).
func NormalizeE164(input string) string {
	return Default().E164(input)
}
