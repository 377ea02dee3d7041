package search

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/okian/squadron/internal/domain/dedupe"
	"github.com/okian/squadron/internal/domain/scoring"
	"github.com/okian/squadron/pkg/logger"
	"github.com/okian/squadron/pkg/metrics"
)

// Genetic defaults.
const (
	defaultPopulation     = 200
	defaultGenerations    = 40
	defaultCrossoverProb  = 0.8
	defaultMutationProb   = 0.2
	defaultTournamentSize = 3
	defaultGeneticTopN    = 10
)

// GeneticOptions tunes a Genetic strategy.
type GeneticOptions struct {
	Population     int     `validate:"gt=0"`
	Generations    int     `validate:"gte=0"`
	CrossoverProb  float64 `validate:"gte=0,lte=1"`
	MutationProb   float64 `validate:"gte=0,lte=1"`
	TournamentSize int     `validate:"gte=1"`
	TopN           int     `validate:"gt=0"`
}

// GenerationStats summarizes the population after one generation.
// Generation 0 is the initial population.
type GenerationStats struct {
	Generation int
	Best       float64
	Mean       float64
	Worst      float64
}

// GeneticOption applies a configuration option to a Genetic strategy.
type GeneticOption func(*Genetic)

// WithPopulation sets the population size.
func WithPopulation(n int) GeneticOption {
	return func(g *Genetic) { g.opts.Population = n }
}

// WithGenerations sets how many generations run after the initial one.
func WithGenerations(n int) GeneticOption {
	return func(g *Genetic) { g.opts.Generations = n }
}

// WithCrossoverProb sets the per-pair crossover probability.
func WithCrossoverProb(p float64) GeneticOption {
	return func(g *Genetic) { g.opts.CrossoverProb = p }
}

// WithMutationProb sets the per-individual mutation probability.
func WithMutationProb(p float64) GeneticOption {
	return func(g *Genetic) { g.opts.MutationProb = p }
}

// WithTournamentSize sets how many individuals compete per selection.
func WithTournamentSize(n int) GeneticOption {
	return func(g *Genetic) { g.opts.TournamentSize = n }
}

// WithGeneticTopN sets the default result count.
func WithGeneticTopN(n int) GeneticOption {
	return func(g *Genetic) { g.opts.TopN = n }
}

// WithGenerationHook observes per-generation statistics. The hook runs
// on the search goroutine.
func WithGenerationHook(hook func(GenerationStats)) GeneticOption {
	return func(g *Genetic) { g.hook = hook }
}

// WithGeneticLogger sets a custom logger for the strategy.
func WithGeneticLogger(l logger.Logger) GeneticOption {
	return func(g *Genetic) { g.logger = l }
}

// Genetic evolves teams encoded as index vectors into the candidate pool.
// A genome may repeat an index, so the same build can appear twice.
type Genetic struct {
	scorer scoring.Scorer
	opts   GeneticOptions
	hook   func(GenerationStats)
	logger logger.Logger
}

// NewGenetic validates options and builds the strategy.
func NewGenetic(scorer scoring.Scorer, opts ...GeneticOption) (*Genetic, error) {
	g := &Genetic{
		scorer: scorer,
		opts: GeneticOptions{
			Population:     defaultPopulation,
			Generations:    defaultGenerations,
			CrossoverProb:  defaultCrossoverProb,
			MutationProb:   defaultMutationProb,
			TournamentSize: defaultTournamentSize,
			TopN:           defaultGeneticTopN,
		},
	}
	for _, opt := range opts {
		opt(g)
	}
	if scorer == nil {
		return nil, fmt.Errorf("%w: scorer is nil", ErrValidation)
	}
	if err := validateStruct(g.opts); err != nil {
		return nil, err
	}
	if g.logger == nil {
		g.logger = logger.OrNop().Named("genetic")
	}
	return g, nil
}

// Name implements Strategy.
func (g *Genetic) Name() string { return StrategyGenetic }

// Options returns the effective options.
func (g *Genetic) Options() GeneticOptions { return g.opts }

type individual struct {
	genome  []int
	fitness float64
	valid   bool
}

func (in individual) clone() individual {
	out := in
	out.genome = append([]int(nil), in.genome...)
	return out
}

// run holds the state of one Search call.
type run struct {
	*Genetic
	req         Request
	rng         *rand.Rand
	evaluations int
}

// Search implements Strategy.
func (g *Genetic) Search(ctx context.Context, req Request) ([]Ranked, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	var seed int64
	if req.Seed != nil {
		seed = *req.Seed
	} else {
		s, err := NewSeed()
		if err != nil {
			return nil, err
		}
		seed = s
		g.logger.Info(ctx, "no seed supplied; drew one", logger.Int64("seed", seed))
	}

	start := time.Now()
	r := &run{Genetic: g, req: req, rng: rand.New(rand.NewSource(seed))} //nolint:gosec // deterministic search, not crypto
	out, err := r.evolve(ctx)
	metrics.RecordTeamsEvaluated(StrategyGenetic, r.evaluations)
	metrics.RecordSearchDuration(StrategyGenetic, float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordSearchRun(StrategyGenetic, "error")
		return nil, err
	}
	metrics.RecordSearchRun(StrategyGenetic, "ok")
	g.logger.Debug(ctx, "genetic search finished",
		logger.Int64("seed", seed),
		logger.Int("evaluations", r.evaluations),
		logger.Duration("took", time.Since(start)),
	)
	return out, nil
}

func (r *run) evolve(ctx context.Context) ([]Ranked, error) {
	size := r.opts.Population
	pop := make([]individual, size)
	for i := range pop {
		genome := make([]int, r.req.TeamSize)
		for j := range genome {
			genome[j] = r.rng.Intn(len(r.req.Candidates))
		}
		pop[i] = individual{genome: genome}
	}
	if err := r.evaluate(ctx, pop); err != nil {
		return nil, err
	}
	elite := pop[bestIndex(pop)].clone()
	r.report(0, pop)

	for gen := 1; gen <= r.opts.Generations; gen++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("genetic search stopped at generation %d: %w", gen, err)
		}

		offspring := r.selectTournament(pop)
		r.crossover(offspring)
		r.mutate(offspring)
		if err := r.evaluate(ctx, offspring); err != nil {
			return nil, err
		}

		// The elite replaces the worst offspring unmutated.
		offspring[worstIndex(offspring)] = elite.clone()
		pop = offspring
		if b := pop[bestIndex(pop)]; b.fitness > elite.fitness {
			elite = b.clone()
		}
		r.report(gen, pop)
	}

	return r.rank(ctx, pop)
}

func (r *run) evaluate(ctx context.Context, pop []individual) error {
	for i := range pop {
		if pop[i].valid {
			continue
		}
		res, err := r.scorer.Score(ctx, decode(pop[i].genome, r.req.Candidates), r.req.Config)
		if err != nil {
			return fmt.Errorf("evaluate genome %v: %w", pop[i].genome, err)
		}
		pop[i].fitness = res.TotalScore
		pop[i].valid = true
		r.evaluations++
	}
	return nil
}

// selectTournament fills a mating pool by repeated tournaments with
// replacement. Ties go to the first contender drawn.
func (r *run) selectTournament(pop []individual) []individual {
	out := make([]individual, len(pop))
	for i := range out {
		winner := pop[r.rng.Intn(len(pop))]
		for t := 1; t < r.opts.TournamentSize; t++ {
			if c := pop[r.rng.Intn(len(pop))]; c.fitness > winner.fitness {
				winner = c
			}
		}
		out[i] = winner.clone()
	}
	return out
}

// crossover applies two-point crossover to consecutive pairs.
func (r *run) crossover(pop []individual) {
	k := r.req.TeamSize
	if k < 2 {
		return
	}
	for i := 1; i < len(pop); i += 2 {
		if r.rng.Float64() >= r.opts.CrossoverProb {
			continue
		}
		a, b := pop[i-1].genome, pop[i].genome
		cx1 := r.rng.Intn(k) + 1
		cx2 := r.rng.Intn(k-1) + 1
		if cx2 >= cx1 {
			cx2++
		} else {
			cx1, cx2 = cx2, cx1
		}
		for j := cx1; j < cx2; j++ {
			a[j], b[j] = b[j], a[j]
		}
		pop[i-1].valid = false
		pop[i].valid = false
	}
}

// mutate resamples each gene of a chosen individual with probability
// 1/teamSize.
func (r *run) mutate(pop []individual) {
	perGene := 1.0 / float64(r.req.TeamSize)
	n := len(r.req.Candidates)
	for i := range pop {
		if r.rng.Float64() >= r.opts.MutationProb {
			continue
		}
		for j := range pop[i].genome {
			if r.rng.Float64() < perGene {
				pop[i].genome[j] = r.rng.Intn(n)
			}
		}
		pop[i].valid = false
	}
}

func (r *run) report(gen int, pop []individual) {
	stats := GenerationStats{
		Generation: gen,
		Best:       pop[bestIndex(pop)].fitness,
		Worst:      pop[worstIndex(pop)].fitness,
	}
	sum := 0.0
	for _, in := range pop {
		sum += in.fitness
	}
	stats.Mean = sum / float64(len(pop))

	if gen > 0 {
		metrics.RecordGeneration(stats.Best)
	}
	if r.hook != nil {
		r.hook(stats)
	}
}

// rank sorts the final population, drops teams that decode to the same
// multiset of builds, and scores the survivors in full.
func (r *run) rank(ctx context.Context, pop []individual) ([]Ranked, error) {
	sort.SliceStable(pop, func(i, j int) bool { return pop[i].fitness > pop[j].fitness })

	n := topN(r.req.TopN, r.opts.TopN)
	seen := dedupe.NewInMemoryDeduper()
	out := make([]Ranked, 0, n)
	for _, in := range pop {
		if len(out) == n {
			break
		}
		team := decode(in.genome, r.req.Candidates)
		if seen.SeenAndRecord(ctx, team.Fingerprint()) {
			continue
		}
		res, err := r.scorer.Score(ctx, team, r.req.Config)
		if err != nil {
			return nil, fmt.Errorf("score result team: %w", err)
		}
		out = append(out, Ranked{Team: team, Result: res})
	}
	// Re-scoring reproduces the fitness exactly, so order is preserved.
	return out, nil
}

func bestIndex(pop []individual) int {
	best := 0
	for i := 1; i < len(pop); i++ {
		if pop[i].fitness > pop[best].fitness {
			best = i
		}
	}
	return best
}

func worstIndex(pop []individual) int {
	worst := 0
	for i := 1; i < len(pop); i++ {
		if pop[i].fitness < pop[worst].fitness {
			worst = i
		}
	}
	return worst
}

var (
	_ Strategy = (*Genetic)(nil)
	_ Strategy = (*Exhaustive)(nil)
)
