// Package config defines process configuration and how it is loaded.
//
// Conventions:
//   - New returns a Config holding every default.
//   - Load layers defaults, an optional YAML file and SQUADRON_* env vars.
//   - Errors wrap this package's sentinels so callers can use errors.Is.
package config

import (
	"fmt"
	"runtime"

	"github.com/go-playground/validator/v10"

	"github.com/okian/squadron/internal/domain/scoring"
	"github.com/okian/squadron/internal/domain/search"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn warning error"`

	// LogFormat is text or json.
	LogFormat string `koanf:"log_format" validate:"oneof=text json"`

	// MetricsAddr serves /metrics when set, e.g. ":9090".
	MetricsAddr string `koanf:"metrics_addr"`

	// WorkerCount sets the number of batch workers.
	WorkerCount int `koanf:"worker_count" validate:"gte=1"`

	// QueueSize bounds the in-memory job queue.
	QueueSize int `koanf:"queue_size" validate:"gte=1"`

	// ScoreCacheSize sets the size of each scoring memo table.
	ScoreCacheSize int `koanf:"score_cache_size" validate:"gte=1"`

	// LeaderboardCapacity bounds the team leaderboard; 0 keeps everything.
	LeaderboardCapacity int `koanf:"leaderboard_capacity" validate:"gte=0"`

	// CatalogPath points at the YAML build catalog.
	CatalogPath string `koanf:"catalog_path"`

	// Search defaults, used by the search command and by jobs that leave
	// a field unset.
	Strategy       string   `koanf:"strategy" validate:"oneof=exhaustive sampling genetic"`
	TeamSize       int      `koanf:"team_size" validate:"gte=1"`
	TopN           int      `koanf:"top_n" validate:"gte=0"`
	Samples        int      `koanf:"samples" validate:"gte=0"`
	Population     int      `koanf:"population" validate:"gte=0"`
	Generations    *int     `koanf:"generations" validate:"omitempty,gte=0"`
	CrossoverProb  *float64 `koanf:"crossover_prob" validate:"omitempty,gte=0,lte=1"`
	MutationProb   *float64 `koanf:"mutation_prob" validate:"omitempty,gte=0,lte=1"`
	TournamentSize int      `koanf:"tournament_size" validate:"gte=0"`
	Seed           *int64   `koanf:"seed"`

	// Candidate filters applied to the catalog.
	Playstyle  string   `koanf:"playstyle"`
	Archetypes []string `koanf:"archetypes"`

	// Scoring holds the weight tables. Tables given in the file replace
	// the defaults instead of merging with them.
	Scoring scoring.Weights `koanf:"scoring"`

	// Jobs lists batch searches for the batch command.
	Jobs []JobConfig `koanf:"jobs" validate:"dive"`
}

// JobConfig describes one batch search. Zero fields inherit from Config.
type JobConfig struct {
	Name           string   `koanf:"name"`
	Strategy       string   `koanf:"strategy" validate:"omitempty,oneof=exhaustive sampling genetic"`
	TeamSize       int      `koanf:"team_size" validate:"gte=0"`
	TopN           int      `koanf:"top_n" validate:"gte=0"`
	Samples        int      `koanf:"samples" validate:"gte=0"`
	Population     int      `koanf:"population" validate:"gte=0"`
	Generations    *int     `koanf:"generations" validate:"omitempty,gte=0"`
	CrossoverProb  *float64 `koanf:"crossover_prob" validate:"omitempty,gte=0,lte=1"`
	MutationProb   *float64 `koanf:"mutation_prob" validate:"omitempty,gte=0,lte=1"`
	TournamentSize int      `koanf:"tournament_size" validate:"gte=0"`
	Seed           *int64   `koanf:"seed"`
	Playstyle      string   `koanf:"playstyle"`
	Archetypes     []string `koanf:"archetypes"`
}

// New creates a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:       "info",
		LogFormat:      "text",
		WorkerCount:    runtime.NumCPU(),
		QueueSize:      1024,
		ScoreCacheSize: scoring.DefaultCacheSize,
		CatalogPath:    "configs/catalog.yaml",
		Strategy:       search.StrategyGenetic,
		TeamSize:       10,
		TopN:           5,
		Scoring:        DefaultWeights(),
	}
}

// DefaultWeights returns the stock buff and role tables.
func DefaultWeights() scoring.Weights {
	return scoring.Weights{
		Version: "1.0.0",
		Buffs: map[string]scoring.BuffWeight{
			"might":             {Weight: 1.0, Description: "Increased power"},
			"fury":              {Weight: 0.8, Description: "Increased critical chance"},
			"quickness":         {Weight: 1.2, Description: "Increased attack speed"},
			"alacrity":          {Weight: 1.0, Description: "Reduced recharge"},
			"protection":        {Weight: 1.0, Description: "Reduced incoming damage"},
			"regeneration":      {Weight: 0.8, Description: "Health over time"},
			"stability":         {Weight: 1.5, Description: "Crowd control immunity"},
			"aegis":             {Weight: 1.0, Description: "Blocks the next attack"},
			"resistance":        {Weight: 0.9, Description: "Condition immunity"},
			"condition_cleanse": {Weight: 1.1, Description: "Removes conditions"},
		},
		Roles: map[string]scoring.RoleWeight{
			"heal":      {Weight: 2.0, RequiredCount: 1, Description: "Primary healer"},
			"quickness": {Weight: 1.5, RequiredCount: 1, Description: "Quickness provider"},
			"alacrity":  {Weight: 1.5, RequiredCount: 1, Description: "Alacrity provider"},
			"dps":       {Weight: 1.0, RequiredCount: 3, Description: "Damage dealer"},
			"tank":      {Weight: 1.2, RequiredCount: 1, Description: "Holds aggro"},
			"support":   {Weight: 1.2, RequiredCount: 2, Description: "Utility and boons"},
		},
		Duplicate: scoring.DuplicatePenalty{Threshold: 2, PenaltyPerExtra: 0.5, Enabled: true},
	}
}

var validate = validator.New()

// Validate checks basic field constraints. Weight tables are validated by
// ScoringConfig.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// ScoringConfig builds the immutable scoring snapshot.
func (c *Config) ScoringConfig() (*scoring.Config, error) {
	sc, err := scoring.NewConfig(c.Scoring)
	if err != nil {
		return nil, fmt.Errorf("%w: scoring: %w", ErrInvalidConfig, err)
	}
	return sc, nil
}

// Params returns the strategy tuning set in the config.
func (c *Config) Params() search.Params {
	return search.Params{
		Samples:        c.Samples,
		Population:     c.Population,
		Generations:    c.Generations,
		CrossoverProb:  c.CrossoverProb,
		MutationProb:   c.MutationProb,
		TournamentSize: c.TournamentSize,
		TopN:           c.TopN,
	}
}

// Resolve fills unset job fields from c.
func (c *Config) Resolve(j JobConfig) JobConfig { //nolint:gocritic // hugeParam: value in, value out
	if j.Strategy == "" {
		j.Strategy = c.Strategy
	}
	if j.TeamSize == 0 {
		j.TeamSize = c.TeamSize
	}
	if j.TopN == 0 {
		j.TopN = c.TopN
	}
	if j.Samples == 0 {
		j.Samples = c.Samples
	}
	if j.Population == 0 {
		j.Population = c.Population
	}
	if j.Generations == nil {
		j.Generations = c.Generations
	}
	if j.CrossoverProb == nil {
		j.CrossoverProb = c.CrossoverProb
	}
	if j.MutationProb == nil {
		j.MutationProb = c.MutationProb
	}
	if j.TournamentSize == 0 {
		j.TournamentSize = c.TournamentSize
	}
	if j.Seed == nil {
		j.Seed = c.Seed
	}
	if j.Playstyle == "" {
		j.Playstyle = c.Playstyle
	}
	if len(j.Archetypes) == 0 {
		j.Archetypes = c.Archetypes
	}
	return j
}

// Params returns the strategy tuning of a job.
func (j JobConfig) Params() search.Params { //nolint:gocritic // hugeParam: small config value
	return search.Params{
		Samples:        j.Samples,
		Population:     j.Population,
		Generations:    j.Generations,
		CrossoverProb:  j.CrossoverProb,
		MutationProb:   j.MutationProb,
		TournamentSize: j.TournamentSize,
		TopN:           j.TopN,
	}
}
