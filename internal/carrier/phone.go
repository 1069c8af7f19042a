package carrier

import (
	"strings"
)

// InferCountry infers a country code from an E.164 phone number prefix:
// "+1…" (11 digits) → "US", "+91…" (12 digits) → "IN". Any other prefix
// fails with InvalidRequest rather than silently defaulting, tightening the
// source ambiguity per spec.md §6/§9.
func InferCountry(phoneNumber string) (string, error) {
	digits := strings.TrimPrefix(strings.TrimSpace(phoneNumber), "+")
	if !strings.HasPrefix(strings.TrimSpace(phoneNumber), "+") {
		return "", &InvalidRequestError{Operation: "infer_country", Reason: "phone number must be in E.164 format (leading +)"}
	}

	switch {
	case strings.HasPrefix(digits, "1") && len(digits) == 11:
		return "US", nil
	case strings.HasPrefix(digits, "91") && len(digits) == 12:
		return "IN", nil
	default:
		return "", &InvalidRequestError{Operation: "infer_country", Reason: "unrecognized E.164 prefix: " + phoneNumber}
	}
}
