package queryparser

import "errors"

// Sentinel errors for the query parser.
var (
	ErrEmptyQuery          = errors.New("Query is required")
	ErrProviderUnavailable = errors.New("parser provider unavailable")
	ErrUnparseableResponse = errors.New("model reply did not contain a criteria object")
)
