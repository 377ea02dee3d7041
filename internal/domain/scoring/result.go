package scoring

import (
	"sort"
	"time"

	"github.com/okian/squadron/internal/domain/model"
)

// BuffCoverage reports how one buff is spread across subgroups.
type BuffCoverage struct {
	Buff          string   `json:"buff"`
	Weight        float64  `json:"weight"`
	Covered       bool     `json:"covered"`
	GroupsCovered int      `json:"groups_covered"`
	GroupCount    int      `json:"group_count"`
	ProvidedBy    []string `json:"provided_by"`
}

// RoleCoverage reports how many members fill one role.
type RoleCoverage struct {
	Role           string   `json:"role"`
	Weight         float64  `json:"weight"`
	RequiredCount  int      `json:"required_count"`
	FulfilledCount int      `json:"fulfilled_count"`
	Fulfilled      bool     `json:"fulfilled"`
	ProvidedBy     []string `json:"provided_by"`
}

// GroupCoverage lists the members and combined buffs of one subgroup.
type GroupCoverage struct {
	Index      int      `json:"index"`
	Archetypes []string `json:"archetypes"`
	Buffs      []string `json:"buffs"`
}

// Result is the full evaluation of one team. Every call returns a fresh
// value owned by the caller.
type Result struct {
	TotalScore          float64            `json:"total_score"`
	BuffScore           float64            `json:"buff_score"`
	RoleScore           float64            `json:"role_score"`
	DuplicatePenalty    float64            `json:"duplicate_penalty"`
	DuplicatePenaltyRaw float64            `json:"duplicate_penalty_raw"`
	BuffBreakdown       map[string]float64 `json:"buff_breakdown"`
	RoleBreakdown       map[string]float64 `json:"role_breakdown"`
	BuffCoverage        []BuffCoverage     `json:"buff_coverage"`
	RoleCoverage        []RoleCoverage     `json:"role_coverage"`
	GroupCoverage       []GroupCoverage    `json:"group_coverage"`
	Timestamp           time.Time          `json:"timestamp"`
}

// MissingBuffs lists buffs that are not present in every subgroup.
func (r Result) MissingBuffs() []string {
	var out []string
	for _, bc := range r.BuffCoverage {
		if !bc.Covered {
			out = append(out, bc.Buff)
		}
	}
	return out
}

// UnfilledRoles lists roles whose required count is not met.
func (r Result) UnfilledRoles() []string {
	var out []string
	for _, rc := range r.RoleCoverage {
		if !rc.Fulfilled {
			out = append(out, rc.Role)
		}
	}
	return out
}

// buffOutcome is the memoized part of buff scoring.
type buffOutcome struct {
	raw       float64
	breakdown map[string]float64
	coverage  []BuffCoverage
}

// roleOutcome is the memoized part of role scoring.
type roleOutcome struct {
	raw       float64
	breakdown map[string]float64
	coverage  []RoleCoverage
}

func (o buffOutcome) clone() buffOutcome {
	out := buffOutcome{raw: o.raw, breakdown: cloneBreakdown(o.breakdown)}
	out.coverage = make([]BuffCoverage, len(o.coverage))
	for i, bc := range o.coverage {
		bc.ProvidedBy = append([]string(nil), bc.ProvidedBy...)
		out.coverage[i] = bc
	}
	return out
}

func (o roleOutcome) clone() roleOutcome {
	out := roleOutcome{raw: o.raw, breakdown: cloneBreakdown(o.breakdown)}
	out.coverage = make([]RoleCoverage, len(o.coverage))
	for i, rc := range o.coverage {
		rc.ProvidedBy = append([]string(nil), rc.ProvidedBy...)
		out.coverage[i] = rc
	}
	return out
}

func cloneBreakdown(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// groupCoverage is recomputed per call since it is cheap.
func groupCoverage(groups []model.Team) []GroupCoverage {
	out := make([]GroupCoverage, len(groups))
	for i, g := range groups {
		seen := map[string]struct{}{}
		var buffs []string
		for _, b := range g {
			for _, buff := range b.Buffs() {
				if _, ok := seen[buff]; ok {
					continue
				}
				seen[buff] = struct{}{}
				buffs = append(buffs, buff)
			}
		}
		sort.Strings(buffs)
		out[i] = GroupCoverage{Index: i, Archetypes: g.Archetypes(), Buffs: buffs}
	}
	return out
}
