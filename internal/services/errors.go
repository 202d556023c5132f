package services

import "errors"

var (
	ErrMissingAPIKey = errors.New("api key required")
	ErrInvalidAPIKey = errors.New("invalid api key")
	ErrUnknownModel  = errors.New("unknown model")
	ErrInvalidInput  = errors.New("invalid settings")
)
