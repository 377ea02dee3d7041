package search

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/squadron/internal/domain/scoring"
	"github.com/okian/squadron/pkg/logger"
	"github.com/okian/squadron/pkg/metrics"
)

// Enumeration limits.
const (
	// MaxCombinations is the hard cap on teams scored by one exhaustive run.
	MaxCombinations       = 5000
	defaultSamples        = 500
	defaultExhaustiveTopN = 5
	// cancelCheckInterval is how many combinations run between ctx checks.
	cancelCheckInterval = 256
)

// ExhaustiveOptions tunes an Exhaustive strategy.
type ExhaustiveOptions struct {
	Samples int `validate:"gt=0"`
	TopN    int `validate:"gt=0"`

	logger logger.Logger
}

// ExhaustiveOption applies a configuration option to ExhaustiveOptions.
type ExhaustiveOption func(*ExhaustiveOptions)

// WithSamples caps the combinations scored; the effective cap is
// min(samples, MaxCombinations).
func WithSamples(n int) ExhaustiveOption {
	return func(o *ExhaustiveOptions) { o.Samples = n }
}

// WithExhaustiveTopN sets the default result count.
func WithExhaustiveTopN(n int) ExhaustiveOption {
	return func(o *ExhaustiveOptions) { o.TopN = n }
}

// WithExhaustiveLogger sets a custom logger for the strategy.
func WithExhaustiveLogger(l logger.Logger) ExhaustiveOption {
	return func(o *ExhaustiveOptions) { o.logger = l }
}

// Exhaustive enumerates combinations without repetition in index
// lexicographic order. When C(n, k) is within the cap the result is the
// true optimum; otherwise it is the best of a deterministic prefix.
type Exhaustive struct {
	scorer scoring.Scorer
	opts   ExhaustiveOptions
	logger logger.Logger
}

// NewExhaustive validates options and builds the strategy.
func NewExhaustive(scorer scoring.Scorer, opts ...ExhaustiveOption) (*Exhaustive, error) {
	o := ExhaustiveOptions{Samples: defaultSamples, TopN: defaultExhaustiveTopN}
	for _, opt := range opts {
		opt(&o)
	}
	if scorer == nil {
		return nil, fmt.Errorf("%w: scorer is nil", ErrValidation)
	}
	if err := validateStruct(o); err != nil {
		return nil, err
	}
	l := o.logger
	if l == nil {
		l = logger.OrNop().Named("exhaustive")
	}
	return &Exhaustive{scorer: scorer, opts: o, logger: l}, nil
}

// Name implements Strategy.
func (e *Exhaustive) Name() string { return StrategyExhaustive }

// Options returns the effective options.
func (e *Exhaustive) Options() ExhaustiveOptions { return e.opts }

// Search implements Strategy.
func (e *Exhaustive) Search(ctx context.Context, req Request) ([]Ranked, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	start := time.Now()
	limit := e.opts.Samples
	if limit > MaxCombinations {
		limit = MaxCombinations
	}

	ranked := make([]Ranked, 0, limit)
	err := forEachCombination(len(req.Candidates), req.TeamSize, limit, func(n int, idx []int) error {
		if n%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		team := decode(idx, req.Candidates)
		res, err := e.scorer.Score(ctx, team, req.Config)
		if err != nil {
			return fmt.Errorf("score combination %v: %w", idx, err)
		}
		ranked = append(ranked, Ranked{Team: team, Result: res})
		return nil
	})
	metrics.RecordTeamsEvaluated(StrategyExhaustive, len(ranked))
	metrics.RecordSearchDuration(StrategyExhaustive, float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordSearchRun(StrategyExhaustive, "error")
		return nil, err
	}

	evaluated := len(ranked)
	sortRanked(ranked)
	n := topN(req.TopN, e.opts.TopN)
	if len(ranked) > n {
		ranked = ranked[:n]
	}

	metrics.RecordSearchRun(StrategyExhaustive, "ok")
	e.logger.Debug(ctx, "exhaustive search finished",
		logger.Int("evaluated", evaluated),
		logger.Int("candidates", len(req.Candidates)),
		logger.Int("team_size", req.TeamSize),
		logger.Duration("took", time.Since(start)),
	)
	return ranked, nil
}

// forEachCombination calls fn for the first limit k-combinations of
// [0, n) in lexicographic order. fn receives the running count and an
// index slice it must not retain.
func forEachCombination(n, k, limit int, fn func(count int, idx []int) error) error {
	if k > n || k <= 0 {
		return nil
	}
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	for count := 0; count < limit; count++ {
		if err := fn(count, idx); err != nil {
			return err
		}
		// Advance to the next combination.
		i := k - 1
		for i >= 0 && idx[i] == n-k+i {
			i--
		}
		if i < 0 {
			return nil
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
	return nil
}
