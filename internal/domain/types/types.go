// Package types contains presentation types shared by the service and the CLI.
package types

import (
	"github.com/okian/squadron/internal/domain/scoring"
	"github.com/okian/squadron/internal/domain/search"
)

// Entry represents a leaderboard entry
type Entry struct {
	Rank       int      `json:"rank"`
	Key        string   `json:"key"`
	Score      float64  `json:"score"`
	Archetypes []string `json:"archetypes"`
	Labels     []string `json:"labels"`
	Strategy   string   `json:"strategy,omitempty"`
	JobID      string   `json:"job_id,omitempty"`
}

// Suggestion is one ranked team as shown to users.
type Suggestion struct {
	Rank          int             `json:"rank"`
	Archetypes    []string        `json:"archetypes"`
	Labels        []string        `json:"labels"`
	TotalScore    float64         `json:"total_score"`
	BuffScore     float64         `json:"buff_score"`
	RoleScore     float64         `json:"role_score"`
	Penalty       float64         `json:"duplicate_penalty"`
	MissingBuffs  []string        `json:"missing_buffs"`
	UnfilledRoles []string        `json:"unfilled_roles"`
	Result        *scoring.Result `json:"details,omitempty"`
}

// Suggestions converts search output into presentation rows. Ranks are
// positions in the list, starting at 1. detailed attaches the full result.
func Suggestions(ranked []search.Ranked, detailed bool) []Suggestion {
	out := make([]Suggestion, len(ranked))
	for i, r := range ranked {
		out[i] = NewSuggestion(i+1, r.Team.Archetypes(), r.Team.Labels(), r.Result, detailed)
	}
	return out
}

// NewSuggestion builds a single row.
func NewSuggestion(rank int, archetypes, labels []string, res scoring.Result, detailed bool) Suggestion {
	s := Suggestion{
		Rank:          rank,
		Archetypes:    archetypes,
		Labels:        labels,
		TotalScore:    res.TotalScore,
		BuffScore:     res.BuffScore,
		RoleScore:     res.RoleScore,
		Penalty:       res.DuplicatePenalty,
		MissingBuffs:  res.MissingBuffs(),
		UnfilledRoles: res.UnfilledRoles(),
	}
	if detailed {
		s.Result = &res
	}
	return s
}
