package scoring

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// BuffWeight is the importance of one buff.
type BuffWeight struct {
	Weight      float64 `koanf:"weight" yaml:"weight" validate:"gte=0"`
	Description string  `koanf:"description" yaml:"description"`
}

// RoleWeight is the importance of one role and how many members must fill it.
type RoleWeight struct {
	Weight        float64 `koanf:"weight" yaml:"weight" validate:"gte=0"`
	RequiredCount int     `koanf:"required_count" yaml:"required_count" validate:"gte=1"`
	Description   string  `koanf:"description" yaml:"description"`
}

// DuplicatePenalty discourages stacking the same archetype.
type DuplicatePenalty struct {
	Threshold       int     `koanf:"threshold" yaml:"threshold" validate:"gte=1"`
	PenaltyPerExtra float64 `koanf:"penalty_per_extra" yaml:"penalty_per_extra" validate:"gte=0"`
	Enabled         bool    `koanf:"enabled" yaml:"enabled"`
}

// DefaultDuplicatePenalty returns threshold 2, one point per extra copy.
func DefaultDuplicatePenalty() DuplicatePenalty {
	return DuplicatePenalty{Threshold: 2, PenaltyPerExtra: 1.0, Enabled: true}
}

// Weights is the mutable input used to build a Config.
type Weights struct {
	Version   string                `koanf:"version" yaml:"version"`
	Buffs     map[string]BuffWeight `koanf:"buff_weights" yaml:"buff_weights" validate:"dive,keys,required,endkeys"`
	Roles     map[string]RoleWeight `koanf:"role_weights" yaml:"role_weights" validate:"dive,keys,required,endkeys"`
	Duplicate DuplicatePenalty      `koanf:"duplicate_penalty" yaml:"duplicate_penalty"`
}

// BuffEntry is one row of the buff table.
type BuffEntry struct {
	Buff string
	BuffWeight
}

// RoleEntry is one row of the role table.
type RoleEntry struct {
	Role string
	RoleWeight
}

// Config is a validated, immutable snapshot of Weights. It is safe to
// share between goroutines.
type Config struct {
	version   string
	buffs     []BuffEntry // sorted by tag
	roles     []RoleEntry // sorted by tag
	duplicate DuplicatePenalty
	buffTotal float64
	roleTotal float64

	buffKey string
	roleKey string
	dupKey  string
}

const defaultVersion = "1.0.0"

var validate = validator.New()

// NewConfig validates w and returns an immutable Config.
func NewConfig(w Weights) (*Config, error) {
	if err := validate.Struct(w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	// Map values are not reached by dive on the key set alone.
	for tag, bw := range w.Buffs {
		if !finite(bw.Weight) {
			return nil, fmt.Errorf("%w: buff %q weight must be finite", ErrInvalidConfig, tag)
		}
		if err := validate.Struct(bw); err != nil {
			return nil, fmt.Errorf("%w: buff %q: %v", ErrInvalidConfig, tag, err)
		}
	}
	for tag, rw := range w.Roles {
		if !finite(rw.Weight) {
			return nil, fmt.Errorf("%w: role %q weight must be finite", ErrInvalidConfig, tag)
		}
		if err := validate.Struct(rw); err != nil {
			return nil, fmt.Errorf("%w: role %q: %v", ErrInvalidConfig, tag, err)
		}
	}
	if !finite(w.Duplicate.PenaltyPerExtra) {
		return nil, fmt.Errorf("%w: duplicate penalty must be finite", ErrInvalidConfig)
	}

	c := &Config{
		version:   w.Version,
		duplicate: w.Duplicate,
	}
	if c.version == "" {
		c.version = defaultVersion
	}

	c.buffs = make([]BuffEntry, 0, len(w.Buffs))
	for tag, bw := range w.Buffs {
		c.buffs = append(c.buffs, BuffEntry{Buff: tag, BuffWeight: bw})
		c.buffTotal += bw.Weight
	}
	sort.Slice(c.buffs, func(i, j int) bool { return c.buffs[i].Buff < c.buffs[j].Buff })

	c.roles = make([]RoleEntry, 0, len(w.Roles))
	for tag, rw := range w.Roles {
		c.roles = append(c.roles, RoleEntry{Role: tag, RoleWeight: rw})
		c.roleTotal += rw.Weight
	}
	sort.Slice(c.roles, func(i, j int) bool { return c.roles[i].Role < c.roles[j].Role })

	c.buffKey = c.fingerprintBuffs()
	c.roleKey = c.fingerprintRoles()
	c.dupKey = fmt.Sprintf("%t:%d:%s", c.duplicate.Enabled, c.duplicate.Threshold,
		strconv.FormatFloat(c.duplicate.PenaltyPerExtra, 'g', -1, 64))
	return c, nil
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

// MustConfig is NewConfig for static tables and tests; it panics on error.
func MustConfig(w Weights) *Config {
	c, err := NewConfig(w)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Config) Version() string { return c.version }

// BuffWeights returns a copy of the buff table sorted by tag.
func (c *Config) BuffWeights() []BuffEntry {
	out := make([]BuffEntry, len(c.buffs))
	copy(out, c.buffs)
	return out
}

// RoleWeights returns a copy of the role table sorted by tag.
func (c *Config) RoleWeights() []RoleEntry {
	out := make([]RoleEntry, len(c.roles))
	copy(out, c.roles)
	return out
}

func (c *Config) DuplicatePenalty() DuplicatePenalty { return c.duplicate }

// Weights returns a mutable copy suitable for building a new Config.
func (c *Config) Weights() Weights {
	w := Weights{
		Version:   c.version,
		Buffs:     make(map[string]BuffWeight, len(c.buffs)),
		Roles:     make(map[string]RoleWeight, len(c.roles)),
		Duplicate: c.duplicate,
	}
	for _, b := range c.buffs {
		w.Buffs[b.Buff] = b.BuffWeight
	}
	for _, r := range c.roles {
		w.Roles[r.Role] = r.RoleWeight
	}
	return w
}

// Fingerprint is a canonical string over every scoring-relevant value.
func (c *Config) Fingerprint() string {
	return c.buffKey + "#" + c.roleKey + "#" + c.dupKey
}

func (c *Config) fingerprintBuffs() string {
	parts := make([]string, len(c.buffs))
	for i, b := range c.buffs {
		parts[i] = strconv.Quote(b.Buff) + "=" + strconv.FormatFloat(b.Weight, 'g', -1, 64)
	}
	return strings.Join(parts, ";")
}

func (c *Config) fingerprintRoles() string {
	parts := make([]string, len(c.roles))
	for i, r := range c.roles {
		parts[i] = strconv.Quote(r.Role) + "=" + strconv.FormatFloat(r.Weight, 'g', -1, 64) +
			"/" + strconv.Itoa(r.RequiredCount)
	}
	return strings.Join(parts, ";")
}
