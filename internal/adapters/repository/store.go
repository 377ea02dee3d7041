// Package repository keeps the best teams seen across searches.
package repository

import "context"

// Meta describes where a team came from.
type Meta struct {
	Archetypes     []string
	Labels         []string
	Strategy       string
	JobID          string
	WeightsVersion string
}

// Entry represents a leaderboard row.
type Entry struct {
	Rank  int
	Key   string
	Score float64
	Meta  Meta
}

// Store provides read/write access to the ranking state.
type Store interface {
	// UpdateBest records a team's score if it beats the stored one.
	// Returns true if the store changed.
	UpdateBest(ctx context.Context, key string, score float64, meta Meta) (bool, error)

	// Rank returns the current rank and score for a team.
	// Returns ErrNotFound if the team is unknown.
	Rank(ctx context.Context, key string) (Entry, error)

	// TopN returns the top-N entries ordered by score desc.
	TopN(ctx context.Context, n int) ([]Entry, error)

	// Count returns the number of teams tracked.
	Count(ctx context.Context) int
}
