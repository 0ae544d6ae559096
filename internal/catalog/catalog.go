// Package catalog holds the reference data describing every stat a reroll can
// produce: its display name, polarity and the ordered list of value variants.
//
// A Catalog is immutable after construction and safe for concurrent use
// without locking.
package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// Polarity classifies a stat as offensive or defensive.
type Polarity string

// Polarity values.
const (
	Offensive Polarity = "offensive"
	Defensive Polarity = "defensive"
)

// Valid reports whether p is a known polarity.
func (p Polarity) Valid() bool {
	return p == Offensive || p == Defensive
}

// ErrUnknownStat is returned when a stat name is not in the catalog.
var ErrUnknownStat = errors.New("unknown stat")

// ErrInvalidCatalog is returned when catalog data fails validation.
var ErrInvalidCatalog = errors.New("invalid catalog")

// StatDefinition describes one stat and the values it can roll.
type StatDefinition struct {
	Name     string   `yaml:"name" json:"name"`
	Polarity Polarity `yaml:"polarity" json:"polarity"`
	Variants []string `yaml:"variants" json:"variants"`
}

// HasVariant reports whether v is spelled exactly like one of the variants.
func (d StatDefinition) HasVariant(v string) bool {
	for _, variant := range d.Variants {
		if variant == v {
			return true
		}
	}
	return false
}

func (d StatDefinition) clone() StatDefinition {
	d.Variants = append([]string(nil), d.Variants...)
	return d
}

// Catalog is an ordered, immutable set of stat definitions.
type Catalog struct {
	stats []StatDefinition
	index map[string]int
}

// New validates defs and builds a Catalog that preserves their order.
func New(defs []StatDefinition) (*Catalog, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("%w: no stats defined", ErrInvalidCatalog)
	}

	c := &Catalog{
		stats: make([]StatDefinition, 0, len(defs)),
		index: make(map[string]int, len(defs)),
	}
	for i, d := range defs {
		d.Name = strings.TrimSpace(d.Name)
		if d.Name == "" {
			return nil, fmt.Errorf("%w: stat %d has no name", ErrInvalidCatalog, i)
		}
		if _, dup := c.index[d.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate stat %q", ErrInvalidCatalog, d.Name)
		}
		if !d.Polarity.Valid() {
			return nil, fmt.Errorf("%w: stat %q has polarity %q", ErrInvalidCatalog, d.Name, d.Polarity)
		}
		if len(d.Variants) == 0 {
			return nil, fmt.Errorf("%w: stat %q has no variants", ErrInvalidCatalog, d.Name)
		}
		seen := make(map[string]bool, len(d.Variants))
		for _, v := range d.Variants {
			if strings.TrimSpace(v) == "" {
				return nil, fmt.Errorf("%w: stat %q has an empty variant", ErrInvalidCatalog, d.Name)
			}
			if seen[v] {
				return nil, fmt.Errorf("%w: stat %q lists variant %q twice", ErrInvalidCatalog, d.Name, v)
			}
			seen[v] = true
		}

		c.index[d.Name] = len(c.stats)
		c.stats = append(c.stats, d.clone())
	}
	return c, nil
}

// Lookup returns the definition for name.
func (c *Catalog) Lookup(name string) (StatDefinition, error) {
	i, ok := c.index[name]
	if !ok {
		return StatDefinition{}, fmt.Errorf("%w: %q", ErrUnknownStat, name)
	}
	return c.stats[i].clone(), nil
}

// Variants returns the ordered variants of the named stat.
func (c *Catalog) Variants(name string) ([]string, error) {
	d, err := c.Lookup(name)
	if err != nil {
		return nil, err
	}
	return d.Variants, nil
}

// Contains reports whether name is a catalog stat.
func (c *Catalog) Contains(name string) bool {
	_, ok := c.index[name]
	return ok
}

// All returns every definition in declaration order.
func (c *Catalog) All() []StatDefinition {
	out := make([]StatDefinition, len(c.stats))
	for i, d := range c.stats {
		out[i] = d.clone()
	}
	return out
}

// ByPolarity returns the definitions with polarity p in declaration order.
func (c *Catalog) ByPolarity(p Polarity) []StatDefinition {
	var out []StatDefinition
	for _, d := range c.stats {
		if d.Polarity == p {
			out = append(out, d.clone())
		}
	}
	return out
}

// Names returns the stat names in declaration order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.stats))
	for i, d := range c.stats {
		names[i] = d.Name
	}
	return names
}

// Len returns the number of stats.
func (c *Catalog) Len() int {
	return len(c.stats)
}
