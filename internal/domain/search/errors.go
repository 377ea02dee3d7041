package search

import "errors"

// Sentinel error kinds for this package. These allow errors.Is from callers.
var (
	ErrValidation             = errors.New("invalid search parameters")
	ErrInsufficientCandidates = errors.New("not enough candidates for team size")
	ErrUnknownStrategy        = errors.New("unknown search strategy")
)
