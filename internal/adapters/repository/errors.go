package repository

import "errors"

// Sentinel kinds for leaderboard errors.
var (
	ErrNotFound     = errors.New("team not found")
	ErrInvalidLimit = errors.New("invalid leaderboard limit")
	ErrInvalidKey   = errors.New("team key must not be empty")
)
