// Package discount holds the per-service discount schedule applied to
// unblended costs.
package discount

import (
	"fmt"
	"io/ioutil"
	"sort"

	"github.com/shopspring/decimal"
	"sigs.k8s.io/yaml"
)

var (
	// NoDiscount is the multiplier of any service without a listed discount.
	NoDiscount = decimal.NewFromInt(1)

	defaultMultipliers = map[string]decimal.Decimal{
		"AmazonS3":        decimal.RequireFromString("0.88"),
		"AmazonEC2":       decimal.RequireFromString("0.50"),
		"AWSDataTransfer": decimal.RequireFromString("0.70"),
		"AWSGlue":         decimal.RequireFromString("0.95"),
		"AmazonGuardDuty": decimal.RequireFromString("0.25"),
	}
)

// Schedule maps service codes to the multiplier applied to their unblended
// cost. The zero value is an empty schedule. A Schedule is never modified
// after it is created and is safe for concurrent use.
type Schedule struct {
	multipliers map[string]decimal.Decimal
}

// Default returns the schedule negotiated for this account.
func Default() Schedule {
	s, _ := NewSchedule(defaultMultipliers)
	return s
}

// NewSchedule validates multipliers and returns a Schedule holding a copy of
// them. Every multiplier must be within [0, 1].
func NewSchedule(multipliers map[string]decimal.Decimal) (Schedule, error) {
	m := make(map[string]decimal.Decimal, len(multipliers))
	for code, multiplier := range multipliers {
		if code == "" {
			return Schedule{}, fmt.Errorf("service code must not be empty")
		}
		if multiplier.IsNegative() || multiplier.GreaterThan(NoDiscount) {
			return Schedule{}, fmt.Errorf("multiplier %s for service %s is not between 0 and 1", multiplier, code)
		}
		m[code] = multiplier
	}
	return Schedule{multipliers: m}, nil
}

// Load reads a schedule from a YAML or JSON file mapping service codes to
// multipliers. The file replaces the default schedule entirely.
func Load(path string) (Schedule, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return Schedule{}, fmt.Errorf("unable to read discount schedule: %v", err)
	}
	var multipliers map[string]decimal.Decimal
	if err := yaml.Unmarshal(data, &multipliers); err != nil {
		return Schedule{}, fmt.Errorf("unable to parse discount schedule %s: %v", path, err)
	}
	return NewSchedule(multipliers)
}

// MultiplierFor returns the multiplier for serviceCode, or NoDiscount when
// the service is not listed.
func (s Schedule) MultiplierFor(serviceCode string) decimal.Decimal {
	if m, ok := s.multipliers[serviceCode]; ok {
		return m
	}
	return NoDiscount
}

// ServiceCodes returns the listed service codes in ascending order.
func (s Schedule) ServiceCodes() []string {
	codes := make([]string, 0, len(s.multipliers))
	for code := range s.multipliers {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Multipliers returns a copy of the listed multipliers.
func (s Schedule) Multipliers() map[string]decimal.Decimal {
	m := make(map[string]decimal.Decimal, len(s.multipliers))
	for code, multiplier := range s.multipliers {
		m[code] = multiplier
	}
	return m
}

func (s Schedule) Len() int {
	return len(s.multipliers)
}
