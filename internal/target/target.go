// Package target holds the user's desired stat set and decides whether a
// capture satisfies it.
package target

import (
	"errors"
	"fmt"
	"strings"

	"github.com/npratt/reroll/internal/catalog"
	"github.com/npratt/reroll/internal/normalize"
)

// ErrInvalidSelection is returned for an empty selection or one naming an
// unknown stat, the same stat twice, or a value the stat cannot roll.
var ErrInvalidSelection = errors.New("invalid target selection")

// Pair is one desired (stat, value) combination.
type Pair struct {
	Stat    string `yaml:"stat" mapstructure:"stat" json:"stat"`
	Variant string `yaml:"variant" mapstructure:"variant" json:"variant"`
}

// String renders the pair as "Stat=Variant".
func (p Pair) String() string {
	return p.Stat + "=" + p.Variant
}

// ParsePair parses the "Stat=Variant" spelling used on the command line.
func ParsePair(s string) (Pair, error) {
	i := strings.LastIndex(s, "=")
	if i < 0 {
		return Pair{}, fmt.Errorf("%w: %q is not stat=value", ErrInvalidSelection, s)
	}
	p := Pair{
		Stat:    strings.TrimSpace(s[:i]),
		Variant: strings.TrimSpace(s[i+1:]),
	}
	if p.Stat == "" || p.Variant == "" {
		return Pair{}, fmt.Errorf("%w: %q is not stat=value", ErrInvalidSelection, s)
	}
	return p, nil
}

// Selection is a validated, immutable set of target pairs.
type Selection struct {
	pairs []Pair
}

// NewSelection validates pairs against cat. Variants are stored in their
// catalog spelling.
func NewSelection(cat *catalog.Catalog, pairs []Pair) (Selection, error) {
	if len(pairs) == 0 {
		return Selection{}, fmt.Errorf("%w: no targets", ErrInvalidSelection)
	}

	seen := make(map[string]bool, len(pairs))
	out := make([]Pair, 0, len(pairs))
	for _, p := range pairs {
		def, err := cat.Lookup(p.Stat)
		if err != nil {
			return Selection{}, fmt.Errorf("%w: %w", ErrInvalidSelection, err)
		}
		if seen[p.Stat] {
			return Selection{}, fmt.Errorf("%w: %q listed twice", ErrInvalidSelection, p.Stat)
		}
		seen[p.Stat] = true

		variant, ok := catalogVariant(def, p.Variant)
		if !ok {
			return Selection{}, fmt.Errorf("%w: %q cannot roll %q (want one of %s)",
				ErrInvalidSelection, p.Stat, p.Variant, strings.Join(def.Variants, ", "))
		}
		out = append(out, Pair{Stat: p.Stat, Variant: variant})
	}
	return Selection{pairs: out}, nil
}

func catalogVariant(def catalog.StatDefinition, v string) (string, bool) {
	if def.HasVariant(v) {
		return v, true
	}
	for _, variant := range def.Variants {
		if normalize.SameValue(variant, v) {
			return variant, true
		}
	}
	return "", false
}

// Pairs returns a copy of the selection.
func (s Selection) Pairs() []Pair {
	return append([]Pair(nil), s.pairs...)
}

// Len returns the number of pairs.
func (s Selection) Len() int {
	return len(s.pairs)
}

// Empty reports whether the selection holds no pairs. Only the zero value is
// empty; NewSelection never returns one.
func (s Selection) Empty() bool {
	return len(s.pairs) == 0
}

// String renders the selection as a comma-separated pair list.
func (s Selection) String() string {
	parts := make([]string, len(s.pairs))
	for i, p := range s.pairs {
		parts[i] = p.String()
	}
	return strings.Join(parts, ", ")
}

// Satisfied reports whether every pair of sel is present in detected with an
// equal value. There is no partial satisfaction.
func Satisfied(detected []normalize.DetectedStat, sel Selection) (bool, error) {
	if sel.Empty() {
		return false, fmt.Errorf("%w: no targets", ErrInvalidSelection)
	}

	byName := make(map[string]string, len(detected))
	for _, d := range detected {
		byName[d.Name] = d.Variant
	}
	for _, p := range sel.pairs {
		got, ok := byName[p.Stat]
		if !ok || !normalize.SameValue(got, p.Variant) {
			return false, nil
		}
	}
	return true, nil
}

// Missing lists the pairs of sel not satisfied by detected.
func Missing(detected []normalize.DetectedStat, sel Selection) []Pair {
	byName := make(map[string]string, len(detected))
	for _, d := range detected {
		byName[d.Name] = d.Variant
	}
	var out []Pair
	for _, p := range sel.pairs {
		if got, ok := byName[p.Stat]; !ok || !normalize.SameValue(got, p.Variant) {
			out = append(out, p)
		}
	}
	return out
}
