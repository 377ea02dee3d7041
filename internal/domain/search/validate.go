package search

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Shared validation used by every strategy. Option structs and requests
// are checked with struct tags; cross-field rules are checked by hand.

var validate = validator.New()

// validateRequest runs before any scoring work.
func validateRequest(req Request) error {
	if err := validateStruct(req); err != nil {
		return err
	}
	if len(req.Candidates) < req.TeamSize {
		return fmt.Errorf("%w: %d candidates for team size %d",
			ErrInsufficientCandidates, len(req.Candidates), req.TeamSize)
	}
	for i, b := range req.Candidates {
		if !b.Valid() {
			return fmt.Errorf("%w: candidate %d has no archetype", ErrValidation, i)
		}
	}
	return nil
}

func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s%s (got %v)", fe.Field(), fe.Tag(), param(fe.Param()), fe.Value()))
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(msgs, "; "))
}

func param(p string) string {
	if p == "" {
		return ""
	}
	return "=" + p
}

func topN(requested, fallback int) int {
	if requested > 0 {
		return requested
	}
	return fallback
}
