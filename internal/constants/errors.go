package constants

import "errors"

// Configuration errors.
var (
	ErrNoCatalogConfigured = errors.New("no catalog configured, use 'stacq config set endpoint URL' or --endpoint")
)

// Validation errors.
var (
	ErrInvalidBBox       = errors.New("bbox must have 4 or 6 coordinates")
	ErrInvalidKeyValue   = errors.New("expected key=value")
	ErrInvalidOutputFlag = errors.New("invalid value for output, expected table, json, or yaml")
)
