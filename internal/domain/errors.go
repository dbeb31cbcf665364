package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrValidation          = errors.New("validation failed")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrUpstreamTimeout     = errors.New("upstream generation timed out")
	ErrUpstreamQuota       = errors.New("upstream quota exceeded")
	ErrUpstream            = errors.New("upstream generation failed")
	ErrCancelled           = errors.New("generation cancelled")
	ErrStorage             = errors.New("storage failure")
)
