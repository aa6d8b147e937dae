package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type processedSet map[string]bool

func (p processedSet) IsProcessed(name, phone string) bool {
	return p[name+"|"+phone]
}

func TestPreflight(t *testing.T) {
	t.Parallel()

	v := NewValidator(processedSet{"Ana|912345678": true})

	tests := []struct {
		name      string
		phone     string
		lead      string
		wantValid bool
		wantSkip  SkipReason
	}{
		{"seven digits ok", "1234567", "x", true, SkipReasonNone},
		{"six digits", "123456", "x", false, SkipReasonInvalidFormat},
		{"sixteen digits", "1234567890123456", "x", false, SkipReasonInvalidFormat},
		{"fifteen digits ok", "123456789012345", "x", true, SkipReasonNone},
		{"test number", "123-456-789", "x", false, SkipReasonTestNumber},
		{"all zeros test number", "000000000", "x", false, SkipReasonTestNumber},
		{"repeating digits", "5555555", "x", false, SkipReasonInvalidFormat},
		{"repeating long", "22222222222", "x", false, SkipReasonInvalidFormat},
		{"blacklisted pair", "912 345 678", "Ana", false, SkipReasonBlacklist},
		{"same phone other name", "912345678", "Bruno", true, SkipReasonNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := v.Preflight(tt.phone, tt.lead)
			assert.Equal(t, tt.wantValid, got.IsValid)
			assert.Equal(t, tt.wantSkip, got.SkipReason)
			assert.NotEmpty(t, got.Reason)
		})
	}
}

func TestPreflight_BlacklistWinsOverOtherChecks(t *testing.T) {
	t.Parallel()

	v := NewValidator(processedSet{"x|123456789": true, "y|12": true})

	assert.Equal(t, SkipReasonBlacklist, v.Preflight("123456789", "x").SkipReason)
	assert.Equal(t, SkipReasonBlacklist, v.Preflight("12", "y").SkipReason)
}

func TestPreflight_NilChecker(t *testing.T) {
	t.Parallel()

	assert.True(t, NewValidator(nil).Preflight("912345678", "Ana").IsValid)

	var v *Validator
	assert.True(t, v.Preflight("912345678", "Ana").IsValid)
}
