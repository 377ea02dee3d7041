package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotStarted   = errors.New("service not started")
	ErrQueueFull    = errors.New("job queue full or closed")
	ErrDuplicateJob = errors.New("duplicate job id in batch")
)
