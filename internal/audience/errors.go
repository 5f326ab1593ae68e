package audience

import "errors"

// Sentinel errors for the audience service layer.
var (
	ErrNotFound        = errors.New("audience not found")
	ErrNameRequired    = errors.New("name is required")
	ErrMarketsRequired = errors.New("at least one market is required")

	ErrRefreshInProgress = errors.New("audience refresh already in progress")
)

// IsValidationError reports whether err is a caller-fixable input error.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrNameRequired) || errors.Is(err, ErrMarketsRequired)
}
