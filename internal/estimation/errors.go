package estimation

import "errors"

// Request validation errors. Their messages are safe to return to callers.
var (
	ErrAttributesNotArray = errors.New("Attributes must be an array")
	ErrMarketsRequired    = errors.New("At least one market is required")
)

// IsValidationError reports whether err is a caller-fixable request error.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrAttributesNotArray) || errors.Is(err, ErrMarketsRequired)
}
