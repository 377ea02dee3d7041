package scoring

import (
	"errors"

	"github.com/okian/squadron/internal/domain/model"
)

// Sentinel error kinds for this package. These allow errors.Is from callers.
var (
	ErrInvalidConfig = errors.New("invalid scoring config")
	// ErrInvalidBuild aliases the model sentinel so callers can match either.
	ErrInvalidBuild = model.ErrInvalidBuild
)
