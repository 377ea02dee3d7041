// Package search finds high-scoring teams from a candidate pool.
package search

import (
	"context"
	"sort"

	"github.com/okian/squadron/internal/domain/model"
	"github.com/okian/squadron/internal/domain/scoring"
)

// Strategy names.
const (
	StrategyExhaustive = "exhaustive"
	StrategyGenetic    = "genetic"
	// StrategySampling is an alias of StrategyExhaustive.
	StrategySampling = "sampling"
)

// Strategy searches for the best teams. Implementations hold no per-run
// state and may be shared between goroutines.
type Strategy interface {
	Name() string
	// Search returns up to TopN ranked teams, best first. Invalid input
	// fails before any scoring work; a cancelled ctx fails the whole run.
	Search(ctx context.Context, req Request) ([]Ranked, error)
}

// Request describes one search run.
type Request struct {
	TeamSize   int             `validate:"gt=0"`
	Candidates []model.Build   `validate:"required,min=1"`
	Config     *scoring.Config `validate:"required"`
	// Seed drives every random choice. Nil asks the strategy to draw one.
	Seed *int64
	// TopN caps the result list; zero selects the strategy default.
	TopN int `validate:"gte=0"`
}

// Ranked is one result team with its full evaluation.
type Ranked struct {
	Team   model.Team     `json:"-"`
	Result scoring.Result `json:"result"`
}

// Seed returns a pointer to s, for building requests inline.
func Seed(s int64) *int64 { return &s }

// sortRanked orders by total score desc; equal scores keep input order.
func sortRanked(rs []Ranked) {
	sort.SliceStable(rs, func(i, j int) bool {
		return rs[i].Result.TotalScore > rs[j].Result.TotalScore
	})
}

func decode(genome []int, candidates []model.Build) model.Team {
	team := make(model.Team, len(genome))
	for i, idx := range genome {
		team[i] = candidates[idx]
	}
	return team
}
