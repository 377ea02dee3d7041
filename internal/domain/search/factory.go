package search

import (
	"fmt"
	"strings"

	"github.com/okian/squadron/internal/domain/scoring"
)

// Params carries strategy tuning from configuration. Zero ints and nil
// pointers keep the strategy defaults; pointers are used where zero is a
// meaningful setting.
type Params struct {
	Samples        int
	Population     int
	Generations    *int
	CrossoverProb  *float64
	MutationProb   *float64
	TournamentSize int
	TopN           int
}

// New builds the strategy called name.
func New(name string, scorer scoring.Scorer, p Params) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case StrategyExhaustive, StrategySampling, "":
		var opts []ExhaustiveOption
		if p.Samples != 0 {
			opts = append(opts, WithSamples(p.Samples))
		}
		if p.TopN != 0 {
			opts = append(opts, WithExhaustiveTopN(p.TopN))
		}
		return NewExhaustive(scorer, opts...)
	case StrategyGenetic:
		var opts []GeneticOption
		if p.Population != 0 {
			opts = append(opts, WithPopulation(p.Population))
		}
		if p.Generations != nil {
			opts = append(opts, WithGenerations(*p.Generations))
		}
		if p.CrossoverProb != nil {
			opts = append(opts, WithCrossoverProb(*p.CrossoverProb))
		}
		if p.MutationProb != nil {
			opts = append(opts, WithMutationProb(*p.MutationProb))
		}
		if p.TournamentSize != 0 {
			opts = append(opts, WithTournamentSize(p.TournamentSize))
		}
		if p.TopN != 0 {
			opts = append(opts, WithGeneticTopN(p.TopN))
		}
		return NewGenetic(scorer, opts...)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}
