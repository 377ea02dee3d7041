package model

import (
	"sort"
	"strings"
)

// Team is an ordered sequence of builds. The same build may appear
// more than once.
type Team []Build

// Clone returns a shallow copy; builds themselves are immutable.
func (t Team) Clone() Team {
	if t == nil {
		return nil
	}
	out := make(Team, len(t))
	copy(out, t)
	return out
}

// Archetypes lists member archetype ids in team order.
func (t Team) Archetypes() []string {
	out := make([]string, len(t))
	for i, b := range t {
		out[i] = b.ArchetypeID()
	}
	return out
}

// Labels lists member labels in team order.
func (t Team) Labels() []string {
	out := make([]string, len(t))
	for i, b := range t {
		out[i] = b.Label()
	}
	return out
}

// Fingerprint identifies the team as a multiset of builds: two teams
// holding the same builds in any order share a fingerprint.
func (t Team) Fingerprint() string {
	keys := make([]string, len(t))
	for i, b := range t {
		keys[i] = b.Key()
	}
	sort.Strings(keys)
	return strings.Join(keys, "|")
}

// SquadSize is the subgroup size used when splitting a team.
const SquadSize = 5

// Subgroups splits the team into consecutive chunks of SquadSize. The
// last chunk may be shorter and is never padded.
func (t Team) Subgroups() []Team {
	if len(t) == 0 {
		return nil
	}
	groups := make([]Team, 0, (len(t)+SquadSize-1)/SquadSize)
	for start := 0; start < len(t); start += SquadSize {
		end := start + SquadSize
		if end > len(t) {
			end = len(t)
		}
		groups = append(groups, t[start:end])
	}
	return groups
}
