package match

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is matched by every ConfigurationError.
var ErrInvalidConfig = errors.New("invalid match configuration")

// ConfigurationError reports a setting that makes matching meaningless.
type ConfigurationError struct {
	Field string
	Value int
	Rule  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s = %d, must be %s", ErrInvalidConfig, e.Field, e.Value, e.Rule)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrInvalidConfig
}

// Config is passed by value into every stage.
type Config struct {
	AddressThreshold   int  `json:"address_threshold"`
	NameThreshold      int  `json:"name_threshold"`
	MinMatchConfidence int  `json:"min_match_confidence"`
	UseManualMapping   bool `json:"use_manual_mapping"`

	// AddressOnlyTier enables exact address matches without a ZIP match
	// (confidence 85) between the exact and fuzzy address tiers.
	AddressOnlyTier bool `json:"address_only_tier"`
	// FuzzyAddressSameZIP restricts fuzzy address matching to candidates in
	// the source's ZIP when the source has one.
	FuzzyAddressSameZIP bool `json:"fuzzy_address_same_zip"`
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		AddressThreshold:   80,
		NameThreshold:      75,
		MinMatchConfidence: 50,
	}
}

// Validate fails fast on thresholds outside [0,100] and on a negative
// minimum confidence.
func (c Config) Validate() error {
	for _, t := range []struct {
		field string
		value int
	}{
		{"address_threshold", c.AddressThreshold},
		{"name_threshold", c.NameThreshold},
	} {
		if t.value < 0 || t.value > 100 {
			return &ConfigurationError{Field: t.field, Value: t.value, Rule: "within [0,100]"}
		}
	}
	if c.MinMatchConfidence < 0 {
		return &ConfigurationError{Field: "min_match_confidence", Value: c.MinMatchConfidence, Rule: "non-negative"}
	}
	return nil
}
