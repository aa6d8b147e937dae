package phone

// SkipReason explains why a number failed pre-flight validation.
type SkipReason string

const (
	SkipReasonNone          SkipReason = ""
	SkipReasonBlacklist     SkipReason = "blacklist"
	SkipReasonTestNumber    SkipReason = "test_number"
	SkipReasonInvalidFormat SkipReason = "invalid_format"
)

// ValidationResult is the outcome of a pre-flight check.
type ValidationResult struct {
	IsValid    bool       `json:"isValid"`
	Reason     string     `json:"reason"`
	SkipReason SkipReason `json:"skipReason,omitempty"`
}

// ProcessedChecker reports whether a (name, phone) pair was already handled
// by an earlier run.
type ProcessedChecker interface {
	IsProcessed(name, phone string) bool
}

const (
	minDigits       = 7
	maxDigits       = 15
	maxSameDigitRun = 7
)

var testNumbers = map[string]struct{}{
	"123456789": {},
	"987654321": {},
	"111111111": {},
	"000000000": {},
}

// Validator runs the pre-flight checks. A nil checker disables the blacklist step.
type Validator struct {
	processed ProcessedChecker
}

// NewValidator creates a Validator backed by the given processed-contact lookup.
func NewValidator(processed ProcessedChecker) *Validator {
	return &Validator{processed: processed}
}

// Preflight checks phone in order: blacklist, known test numbers, length,
// repeating digits. The first failing check decides the result.
func (v *Validator) Preflight(phone, name string) ValidationResult {
	normalized := Normalize(phone)

	if v != nil && v.processed != nil && v.processed.IsProcessed(name, normalized) {
		return ValidationResult{Reason: "Contact already processed (blacklisted)", SkipReason: SkipReasonBlacklist}
	}

	if _, ok := testNumbers[normalized]; ok {
		return ValidationResult{Reason: "Test number detected", SkipReason: SkipReasonTestNumber}
	}

	if len(normalized) < minDigits || len(normalized) > maxDigits {
		return ValidationResult{Reason: "Invalid phone number format (too short or too long)", SkipReason: SkipReasonInvalidFormat}
	}

	if isSingleDigitRun(normalized) {
		return ValidationResult{Reason: "Invalid phone number pattern (repeating digits)", SkipReason: SkipReasonInvalidFormat}
	}

	return ValidationResult{IsValid: true, Reason: "Valid phone number"}
}

// isSingleDigitRun reports whether s is one digit repeated at least
// maxSameDigitRun times.
func isSingleDigitRun(s string) bool {
	if len(s) < maxSameDigitRun {
		return false
	}
	for i := 1; i < len(s); i++ {
		if s[i] != s[0] {
			return false
		}
	}
	return true
}
