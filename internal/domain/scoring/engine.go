// Package scoring evaluates team compositions against weighted buff and
// role tables.
package scoring

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/okian/squadron/internal/domain/model"
	"github.com/okian/squadron/pkg/logger"
	"github.com/okian/squadron/pkg/metrics"
)

// Score composition constants.
const (
	BuffComponentWeight = 0.4
	RoleComponentWeight = 0.5
	// PenaltyDampening is the largest fraction removed from the total.
	PenaltyDampening = 0.1
	// DefaultCacheSize bounds each memo table.
	DefaultCacheSize = 2048
)

// Scorer evaluates a team under a config.
type Scorer interface {
	Score(ctx context.Context, team model.Team, cfg *Config) (Result, error)
}

// Engine implements Scorer. It is pure apart from its memo tables, which
// never change results, and is safe for concurrent use.
type Engine struct {
	cacheSize int
	clock     func() time.Time
	logger    logger.Logger

	buffs *memo[buffOutcome]
	roles *memo[roleOutcome]
	dups  *memo[float64]
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithCacheSize bounds each memo table; zero or less disables caching.
func WithCacheSize(size int) Option {
	return func(e *Engine) { e.cacheSize = size }
}

// WithClock overrides the timestamp source.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithLogger sets a custom logger for the engine.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates a scoring engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		cacheSize: DefaultCacheSize,
		clock:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logger.OrNop().Named("scoring")
	}

	e.buffs = newMemo[buffOutcome]("buff", e.cacheSize)
	e.roles = newMemo[roleOutcome]("role", e.cacheSize)
	e.dups = newMemo[float64]("duplicate", e.cacheSize)
	return e
}

// Score evaluates team under cfg.
func (e *Engine) Score(ctx context.Context, team model.Team, cfg *Config) (Result, error) {
	if cfg == nil {
		return Result{}, fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}
	for i, b := range team {
		if !b.Valid() {
			metrics.RecordScoringError()
			return Result{}, fmt.Errorf("%w: member %d has no archetype", ErrInvalidBuild, i)
		}
	}
	metrics.RecordTeamScored()

	if len(team) == 0 {
		return Result{
			TotalScore:    1.0,
			BuffScore:     1.0,
			RoleScore:     1.0,
			BuffBreakdown: map[string]float64{},
			RoleBreakdown: map[string]float64{},
			BuffCoverage:  []BuffCoverage{},
			RoleCoverage:  []RoleCoverage{},
			GroupCoverage: []GroupCoverage{},
			Timestamp:     e.clock(),
		}, nil
	}

	ordered, sorted := teamKeys(team)
	groups := team.Subgroups()

	buff := e.buffs.getOrCompute(ordered+"#"+cfg.buffKey, func() buffOutcome {
		return computeBuffs(groups, cfg)
	}).clone()
	role := e.roles.getOrCompute(sorted+"#"+cfg.roleKey, func() roleOutcome {
		return computeRoles(team, cfg)
	}).clone()
	dupRaw := e.dups.getOrCompute(sorted+"#"+cfg.dupKey, func() float64 {
		return computeDuplicates(team, cfg.duplicate)
	})

	normBuff := 0.0
	if cfg.buffTotal > 0 {
		normBuff = clamp01(buff.raw / cfg.buffTotal)
	}
	normRole := 0.0
	if cfg.roleTotal > 0 {
		normRole = clamp01(role.raw / cfg.roleTotal)
	}

	total := normBuff*BuffComponentWeight + normRole*RoleComponentWeight
	penaltyRatio := 0.0
	if denom := buff.raw + role.raw; denom > 0 {
		penaltyRatio = math.Min(1, dupRaw/denom)
	}
	total = clamp01(total * (1 - penaltyRatio*PenaltyDampening))

	res := Result{
		TotalScore:          total,
		BuffScore:           normBuff,
		RoleScore:           normRole,
		DuplicatePenalty:    penaltyRatio,
		DuplicatePenaltyRaw: dupRaw,
		BuffBreakdown:       buff.breakdown,
		RoleBreakdown:       role.breakdown,
		BuffCoverage:        buff.coverage,
		RoleCoverage:        role.coverage,
		GroupCoverage:       groupCoverage(groups),
		Timestamp:           e.clock(),
	}

	if missing := res.MissingBuffs(); len(missing) > 0 {
		e.logger.Debug(ctx, "team is missing buffs",
			logger.String("team", strings.Join(team.Archetypes(), ",")),
			logger.Any("missing", missing),
		)
	}
	return res, nil
}

// CacheLen reports the number of entries across memo tables.
func (e *Engine) CacheLen() int {
	return e.buffs.len() + e.roles.len() + e.dups.len()
}

// Purge drops every memoized entry.
func (e *Engine) Purge() {
	e.buffs.purge()
	e.roles.purge()
	e.dups.purge()
}

// teamKeys returns the ordered and order-insensitive canonical keys.
// Buff coverage depends on chunking so it uses the ordered key; role and
// duplicate counts are whole-team and use the sorted one.
func teamKeys(team model.Team) (ordered, sorted string) {
	keys := make([]string, len(team))
	for i, b := range team {
		keys[i] = b.ScoringKey()
	}
	ordered = strings.Join(keys, "|")
	sort.Strings(keys)
	sorted = strings.Join(keys, "|")
	return ordered, sorted
}

func computeBuffs(groups []model.Team, cfg *Config) buffOutcome {
	out := buffOutcome{
		breakdown: make(map[string]float64, len(cfg.buffs)),
		coverage:  make([]BuffCoverage, 0, len(cfg.buffs)),
	}
	for _, entry := range cfg.buffs {
		covered := 0
		var providers []string
		seen := map[string]struct{}{}
		for _, g := range groups {
			inGroup := false
			for _, b := range g {
				if !b.HasBuff(entry.Buff) {
					continue
				}
				inGroup = true
				if _, ok := seen[b.ArchetypeID()]; !ok {
					seen[b.ArchetypeID()] = struct{}{}
					providers = append(providers, b.ArchetypeID())
				}
			}
			if inGroup {
				covered++
			}
		}

		ratio := math.Min(1, float64(covered)/float64(len(groups)))
		contribution := entry.Weight * ratio
		out.raw += contribution
		out.breakdown[entry.Buff] = contribution
		out.coverage = append(out.coverage, BuffCoverage{
			Buff:          entry.Buff,
			Weight:        entry.Weight,
			Covered:       ratio == 1,
			GroupsCovered: covered,
			GroupCount:    len(groups),
			ProvidedBy:    providers,
		})
	}
	return out
}

func computeRoles(team model.Team, cfg *Config) roleOutcome {
	out := roleOutcome{
		breakdown: make(map[string]float64, len(cfg.roles)),
		coverage:  make([]RoleCoverage, 0, len(cfg.roles)),
	}
	for _, entry := range cfg.roles {
		fulfilled := 0
		var providers []string
		seen := map[string]struct{}{}
		for _, b := range team {
			if !b.HasRole(entry.Role) {
				continue
			}
			fulfilled++
			if _, ok := seen[b.ArchetypeID()]; !ok {
				seen[b.ArchetypeID()] = struct{}{}
				providers = append(providers, b.ArchetypeID())
			}
		}

		// Role memo keys ignore member order, so providers must too.
		sort.Strings(providers)

		ratio := 1.0
		if entry.RequiredCount > 0 {
			ratio = math.Min(1, float64(fulfilled)/float64(entry.RequiredCount))
		}
		contribution := entry.Weight * ratio
		out.raw += contribution
		out.breakdown[entry.Role] = contribution
		out.coverage = append(out.coverage, RoleCoverage{
			Role:           entry.Role,
			Weight:         entry.Weight,
			RequiredCount:  entry.RequiredCount,
			FulfilledCount: fulfilled,
			Fulfilled:      fulfilled >= entry.RequiredCount,
			ProvidedBy:     providers,
		})
	}
	return out
}

func computeDuplicates(team model.Team, p DuplicatePenalty) float64 {
	if !p.Enabled || p.Threshold < 1 || p.PenaltyPerExtra <= 0 {
		return 0
	}
	counts := make(map[string]int, len(team))
	order := make([]string, 0, len(team))
	for _, b := range team {
		if counts[b.ArchetypeID()] == 0 {
			order = append(order, b.ArchetypeID())
		}
		counts[b.ArchetypeID()]++
	}
	// Sum in a fixed order so the float result does not depend on map order.
	sort.Strings(order)
	raw := 0.0
	for _, id := range order {
		if extra := counts[id] - p.Threshold; extra > 0 {
			raw += float64(extra) * p.PenaltyPerExtra
		}
	}
	return raw
}

func clamp01(x float64) float64 {
	if math.IsNaN(x) || x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
