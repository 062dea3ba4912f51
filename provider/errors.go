package provider

import "errors"

// Configuration errors, fatal at construction.
var (
	ErrUnknownProvider = errors.New("unknown provider")
	ErrMissingAPIKey   = errors.New("missing provider API key")
)
