// Package normalize turns the raw text lines recognised in one capture into
// (stat, value) pairs, tolerating the usual OCR noise: stray spaces and dots,
// look-alike characters and values glued to the stat name.
//
// Normalization is pure: the same lines always produce the same output, and a
// line that cannot be understood is dropped rather than reported as an error.
package normalize

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/npratt/reroll/internal/catalog"
)

// ErrAmbiguousName is returned when two catalog names reduce to the same
// skeleton under the configured confusion table.
var ErrAmbiguousName = errors.New("ambiguous stat names")

// DetectedStat is one stat recognised in a capture.
type DetectedStat struct {
	Name    string `json:"name"`
	RawText string `json:"raw_text"`
	Variant string `json:"variant"`
}

// Options configures the confusion tables. Nil slices select the defaults;
// empty non-nil slices disable substitution.
type Options struct {
	NameConfusions  []Confusion
	ValueConfusions []Confusion
}

// statIndex caches the comparable forms of one stat's variants.
type statIndex struct {
	def      catalog.StatDefinition
	byCanon  map[string]string
	byNumber map[string][]string
	decimal  bool
}

// Normalizer maps OCR lines onto a catalog.
type Normalizer struct {
	names     *strings.Replacer
	values    *strings.Replacer
	skeletons map[string]string
	stats     map[string]*statIndex
}

// New builds a Normalizer for cat.
func New(cat *catalog.Catalog, opts Options) (*Normalizer, error) {
	nameConf := opts.NameConfusions
	if nameConf == nil {
		nameConf = DefaultNameConfusions()
	}
	valueConf := opts.ValueConfusions
	if valueConf == nil {
		valueConf = DefaultValueConfusions()
	}

	n := &Normalizer{
		names:     newReplacer(nameConf, true),
		values:    newReplacer(valueConf, false),
		skeletons: make(map[string]string, cat.Len()),
		stats:     make(map[string]*statIndex, cat.Len()),
	}

	for _, def := range cat.All() {
		sk := n.Skeleton(def.Name)
		if other, dup := n.skeletons[sk]; dup {
			return nil, fmt.Errorf("%w: %q and %q both reduce to %q", ErrAmbiguousName, other, def.Name, sk)
		}
		n.skeletons[sk] = def.Name

		idx := &statIndex{
			def:      def,
			byCanon:  make(map[string]string, len(def.Variants)),
			byNumber: make(map[string][]string, len(def.Variants)),
		}
		for _, v := range def.Variants {
			canon, ok := CanonicalValue(v)
			if !ok {
				continue
			}
			idx.byCanon[canon] = v
			if strings.Contains(canon, ".") {
				idx.decimal = true
			}
			num := numberPart(canon)
			idx.byNumber[num] = append(idx.byNumber[num], v)
		}
		n.stats[def.Name] = idx
	}
	return n, nil
}

// Skeleton reduces a stat name to the form used for tolerant comparison:
// lower-cased, whitespace and dots removed, name confusions applied.
func (n *Normalizer) Skeleton(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if unicode.IsSpace(r) || r == '.' {
			continue
		}
		b.WriteRune(r)
	}
	return n.names.Replace(b.String())
}

// Normalize converts the lines of one capture. Unparseable lines are dropped.
// When a stat appears more than once the last occurrence wins and takes the
// position of that occurrence.
func (n *Normalizer) Normalize(lines []string) []DetectedStat {
	parsed := make([]DetectedStat, 0, len(lines))
	last := make(map[string]int, len(lines))
	for _, line := range lines {
		d, ok := n.ParseLine(line)
		if !ok {
			continue
		}
		last[d.Name] = len(parsed)
		parsed = append(parsed, d)
	}

	out := make([]DetectedStat, 0, len(last))
	for i, d := range parsed {
		if last[d.Name] == i {
			out = append(out, d)
		}
	}
	return out
}

// ParseLine recognises a single line. It reports false when the line does not
// name a catalog stat followed by a value.
func (n *Normalizer) ParseLine(line string) (DetectedStat, bool) {
	trimmed := strings.TrimRight(strings.TrimSpace(line), ".,;:")
	if trimmed == "" {
		return DetectedStat{}, false
	}

	for _, split := range splitCandidates(trimmed) {
		name, ok := n.matchName(split.name)
		if !ok {
			continue
		}
		variant, ok := n.resolveValue(name, split.value)
		if !ok {
			continue
		}
		return DetectedStat{Name: name, RawText: line, Variant: variant}, true
	}
	return DetectedStat{}, false
}

// matchName prefers an exact catalog name and falls back to the skeleton.
func (n *Normalizer) matchName(part string) (string, bool) {
	if _, ok := n.stats[part]; ok {
		return part, true
	}
	sk := n.Skeleton(part)
	if sk == "" {
		return "", false
	}
	name, ok := n.skeletons[sk]
	return name, ok
}

// CanonicalValue canonicalises an OCR value token for the named stat after
// applying the value confusion table. The token must contain a real digit.
func (n *Normalizer) CanonicalValue(token string) (string, bool) {
	if !hasDigit(token) {
		return "", false
	}
	return CanonicalValue(n.values.Replace(token))
}

// resolveValue maps a token onto the stat's catalog spelling when possible.
func (n *Normalizer) resolveValue(name, token string) (string, bool) {
	idx := n.stats[name]
	if !hasDigit(token) {
		return "", false
	}
	token = n.values.Replace(token)
	// "1.200" is a misread "1,200" unless the stat has fractional variants.
	if !idx.decimal {
		token = undotThousands(token)
	}
	canon, ok := CanonicalValue(token)
	if !ok {
		return "", false
	}

	if v, ok := idx.byCanon[canon]; ok {
		return v, true
	}
	// OCR dropped the unit: accept when exactly one variant has this number.
	if numberPart(canon) == canon {
		if vs := idx.byNumber[canon]; len(vs) == 1 {
			return vs[0], true
		}
	}
	return canon, true
}

type lineSplit struct {
	name  string
	value string
}

// splitCandidates lists the ways a line can be divided into name and value,
// most likely first: the last field as the value, then a value glued onto
// the end of the last field.
func splitCandidates(line string) []lineSplit {
	fields := joinValueFields(strings.Fields(line))
	var out []lineSplit

	if len(fields) >= 2 {
		value := fields[len(fields)-1]
		name := strings.Join(fields[:len(fields)-1], " ")
		name = strings.TrimSpace(strings.TrimRight(name, "+ "))
		if value != "+" && name != "" {
			out = append(out, lineSplit{name: name, value: value})
		}
	}

	lastField := fields[len(fields)-1]
	if i := gluedValueStart(lastField); i > 0 {
		head := append(append([]string(nil), fields[:len(fields)-1]...), lastField[:i])
		name := strings.TrimSpace(strings.TrimRight(strings.Join(head, " "), "+ "))
		if name != "" {
			out = append(out, lineSplit{name: name, value: lastField[i:]})
		}
	}
	return out
}

// joinValueFields rejoins a value OCR split at a space: a lone unit ("36 %")
// or a digit group after a separator ("1, 200").
func joinValueFields(fields []string) []string {
	n := len(fields)
	if n >= 2 && isUnit(fields[n-1]) && hasDigit(fields[n-2]) {
		fields = append(fields[:n-2:n-2], fields[n-2]+fields[n-1])
		n--
	}
	for n >= 2 {
		prev, last := fields[n-2], fields[n-1]
		if !hasDigit(prev) || !strings.ContainsAny(prev[len(prev)-1:], ",.") || !startsWithDigit(last) {
			break
		}
		fields = append(fields[:n-2:n-2], prev+last)
		n--
	}
	return fields
}

func isUnit(field string) bool {
	switch field {
	case "%", "s", "S":
		return true
	}
	return false
}

func startsWithDigit(field string) bool {
	return field != "" && field[0] >= '0' && field[0] <= '9'
}

// gluedValueStart returns the index where a value glued to a word begins:
// a '+' followed by the value, or the first digit. It returns -1 when the
// field holds no digit.
func gluedValueStart(field string) int {
	for i, r := range field {
		if r == '+' && hasDigit(field[i:]) {
			return i
		}
		if r >= '0' && r <= '9' {
			return i
		}
	}
	return -1
}
