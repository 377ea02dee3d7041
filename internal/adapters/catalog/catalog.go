// Package catalog loads the pool of candidate builds from YAML.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/squadron/internal/domain/model"
	"github.com/okian/squadron/pkg/logger"
	"github.com/okian/squadron/pkg/metrics"
)

// Sentinel kinds for catalog errors.
var (
	ErrLoad          = errors.New("load catalog failed")
	ErrEmpty         = errors.New("catalog has no builds")
	ErrDuplicateName = errors.New("duplicate build name")
	ErrBuildNotFound = errors.New("build not found")
	ErrNoCandidates  = errors.New("no builds match the filters")
)

// record is the on-disk shape of one build.
type record struct {
	Name        string   `koanf:"name"`
	Archetype   string   `koanf:"archetype"`
	Elite       string   `koanf:"elite"`
	Buffs       []string `koanf:"buffs"`
	Roles       []string `koanf:"roles"`
	Playstyles  []string `koanf:"playstyles"`
	Weapons     []string `koanf:"weapons"`
	Utilities   []string `koanf:"utilities"`
	Description string   `koanf:"description"`
}

// Entry is a named build.
type Entry struct {
	Name  string
	Build model.Build
}

// Catalog is an immutable, ordered set of named builds.
type Catalog struct {
	entries []Entry
	byName  map[string]int
}

// Load reads a catalog file of the form `builds: [...]`.
func Load(ctx context.Context, path string) (*Catalog, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoad, path, err)
	}

	var records []record
	if err := k.UnmarshalWithConf("builds", &records, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoad, path, err)
	}

	c, err := build(records)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	metrics.UpdateCatalogBuilds(c.Len())
	logger.OrNop().Named("catalog").Info(ctx, "catalog loaded",
		logger.String("path", path),
		logger.Int("builds", c.Len()),
	)
	return c, nil
}

// New builds a catalog from entries; names must be unique.
func New(entries ...Entry) (*Catalog, error) {
	c := &Catalog{byName: make(map[string]int, len(entries))}
	for _, e := range entries {
		if !e.Build.Valid() {
			return nil, fmt.Errorf("%w: %q", model.ErrInvalidBuild, e.Name)
		}
		if e.Name == "" {
			e.Name = e.Build.Label()
		}
		key := strings.ToLower(e.Name)
		if _, ok := c.byName[key]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateName, e.Name)
		}
		c.byName[key] = len(c.entries)
		c.entries = append(c.entries, e)
	}
	if len(c.entries) == 0 {
		return nil, ErrEmpty
	}
	return c, nil
}

func build(records []record) (*Catalog, error) {
	entries := make([]Entry, 0, len(records))
	for i, r := range records {
		b, err := model.NewBuild(r.Archetype,
			model.WithEliteVariant(r.Elite),
			model.WithBuffs(r.Buffs...),
			model.WithRoles(r.Roles...),
			model.WithPlaystyles(r.Playstyles...),
			model.WithWeapons(r.Weapons...),
			model.WithUtilities(r.Utilities...),
			model.WithDescription(r.Description),
		)
		if err != nil {
			return nil, fmt.Errorf("build %d (%q): %w", i, r.Name, err)
		}
		entries = append(entries, Entry{Name: r.Name, Build: b})
	}
	return New(entries...)
}

// Len returns the number of builds.
func (c *Catalog) Len() int { return len(c.entries) }

// Entries returns every entry in file order.
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Lookup finds a build by name, ignoring case.
func (c *Catalog) Lookup(name string) (model.Build, error) {
	i, ok := c.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return model.Build{}, fmt.Errorf("%w: %q", ErrBuildNotFound, name)
	}
	return c.entries[i].Build, nil
}

// Filter returns the builds supporting playstyle whose archetype is in
// archetypes. Empty filters match everything; matching ignores case.
func (c *Catalog) Filter(playstyle string, archetypes []string) ([]model.Build, error) {
	allowed := make(map[string]struct{}, len(archetypes))
	for _, a := range archetypes {
		if a = strings.ToLower(strings.TrimSpace(a)); a != "" {
			allowed[a] = struct{}{}
		}
	}
	playstyle = strings.TrimSpace(playstyle)

	var out []model.Build
	for _, e := range c.entries {
		if len(allowed) > 0 {
			if _, ok := allowed[strings.ToLower(e.Build.ArchetypeID())]; !ok {
				continue
			}
		}
		if playstyle != "" && !supports(e.Build, playstyle) {
			continue
		}
		out = append(out, e.Build)
	}

	metrics.UpdateCatalogCandidates(len(out))
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: playstyle=%q archetypes=%v", ErrNoCandidates, playstyle, archetypes)
	}
	return out, nil
}

func supports(b model.Build, playstyle string) bool {
	for _, p := range b.Playstyles() {
		if strings.EqualFold(p, playstyle) {
			return true
		}
	}
	return false
}
