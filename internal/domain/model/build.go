// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrInvalidBuild is returned when a build has no archetype.
var ErrInvalidBuild = errors.New("invalid build")

// Build describes one player configuration. Builds are immutable: the
// constructor copies its inputs and every accessor returns a copy.
type Build struct {
	archetypeID  string
	eliteVariant string
	buffs        []string // sorted, unique
	roles        []string // sorted, unique
	playstyles   []string // sorted, unique
	weapons      []string
	utilities    []string
	description  string
}

// BuildOption applies an optional attribute to a Build under construction.
type BuildOption func(*Build)

// WithEliteVariant sets the elite specialization label.
func WithEliteVariant(elite string) BuildOption {
	return func(b *Build) { b.eliteVariant = strings.TrimSpace(elite) }
}

// WithBuffs sets the group effects the build provides.
func WithBuffs(buffs ...string) BuildOption {
	return func(b *Build) { b.buffs = tagSet(buffs) }
}

// WithRoles sets the team functions the build fulfills.
func WithRoles(roles ...string) BuildOption {
	return func(b *Build) { b.roles = tagSet(roles) }
}

// WithPlaystyles sets the play contexts the build fits.
func WithPlaystyles(playstyles ...string) BuildOption {
	return func(b *Build) { b.playstyles = tagSet(playstyles) }
}

// WithWeapons sets the ordered weapon labels.
func WithWeapons(weapons ...string) BuildOption {
	return func(b *Build) { b.weapons = cloneStrings(weapons) }
}

// WithUtilities sets the ordered utility labels.
func WithUtilities(utilities ...string) BuildOption {
	return func(b *Build) { b.utilities = cloneStrings(utilities) }
}

// WithDescription sets free-form text.
func WithDescription(description string) BuildOption {
	return func(b *Build) { b.description = description }
}

// NewBuild constructs a Build for the given archetype.
func NewBuild(archetypeID string, opts ...BuildOption) (Build, error) {
	archetypeID = strings.TrimSpace(archetypeID)
	if archetypeID == "" {
		return Build{}, fmt.Errorf("%w: archetype id must not be empty", ErrInvalidBuild)
	}

	b := Build{archetypeID: archetypeID}
	for _, opt := range opts {
		opt(&b)
	}
	return b, nil
}

// MustBuild is NewBuild for static tables and tests; it panics on error.
func MustBuild(archetypeID string, opts ...BuildOption) Build {
	b, err := NewBuild(archetypeID, opts...)
	if err != nil {
		panic(err)
	}
	return b
}

// Valid reports whether b was produced by NewBuild.
func (b Build) Valid() bool { return b.archetypeID != "" }

func (b Build) ArchetypeID() string  { return b.archetypeID }
func (b Build) EliteVariant() string { return b.eliteVariant }
func (b Build) Description() string  { return b.description }
func (b Build) Buffs() []string      { return cloneStrings(b.buffs) }
func (b Build) Roles() []string      { return cloneStrings(b.roles) }
func (b Build) Playstyles() []string { return cloneStrings(b.playstyles) }
func (b Build) Weapons() []string    { return cloneStrings(b.weapons) }
func (b Build) Utilities() []string  { return cloneStrings(b.utilities) }

// HasBuff reports whether the build provides buff.
func (b Build) HasBuff(buff string) bool { return containsSorted(b.buffs, buff) }

// HasRole reports whether the build fulfills role.
func (b Build) HasRole(role string) bool { return containsSorted(b.roles, role) }

// HasPlaystyle reports whether the build fits playstyle.
func (b Build) HasPlaystyle(playstyle string) bool { return containsSorted(b.playstyles, playstyle) }

// ScoringKey returns a canonical string over the fields scoring reads:
// archetype, buffs and roles. Equal values always yield equal keys.
func (b Build) ScoringKey() string {
	var sb strings.Builder
	writeField(&sb, b.archetypeID)
	writeList(&sb, b.buffs)
	writeList(&sb, b.roles)
	return sb.String()
}

// Key returns a canonical string over every field of the build.
func (b Build) Key() string {
	var sb strings.Builder
	writeField(&sb, b.archetypeID)
	writeField(&sb, b.eliteVariant)
	writeList(&sb, b.buffs)
	writeList(&sb, b.roles)
	writeList(&sb, b.playstyles)
	writeList(&sb, b.weapons)
	writeList(&sb, b.utilities)
	writeField(&sb, b.description)
	return sb.String()
}

// Label returns "archetype (elite)" or just the archetype.
func (b Build) Label() string {
	if b.eliteVariant == "" {
		return b.archetypeID
	}
	return b.archetypeID + " (" + b.eliteVariant + ")"
}

// writeField writes a length-prefixed string so that separators inside
// tags can never make two different builds collide.
func writeField(sb *strings.Builder, s string) {
	sb.WriteString(strconv.Itoa(len(s)))
	sb.WriteByte(':')
	sb.WriteString(s)
}

func writeList(sb *strings.Builder, items []string) {
	sb.WriteByte('[')
	sb.WriteString(strconv.Itoa(len(items)))
	for _, it := range items {
		sb.WriteByte(',')
		writeField(sb, it)
	}
	sb.WriteByte(']')
}

func tagSet(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func containsSorted(list []string, s string) bool {
	i := sort.SearchStrings(list, s)
	return i < len(list) && list[i] == s
}

func cloneStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
