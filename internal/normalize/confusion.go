package normalize

import "strings"

// Confusion maps a character sequence OCR commonly produces to the one it
// usually stands for.
type Confusion struct {
	From string `yaml:"from" mapstructure:"from" json:"from"`
	To   string `yaml:"to" mapstructure:"to" json:"to"`
}

// DefaultNameConfusions are applied to both sides of a stat name comparison,
// after lower-casing.
func DefaultNameConfusions() []Confusion {
	return []Confusion{
		{From: "0", To: "o"},
		{From: "1", To: "l"},
		{From: "|", To: "l"},
		{From: "i", To: "l"},
		{From: "5", To: "s"},
		{From: "rn", To: "m"},
	}
}

// DefaultValueConfusions repair letters read in place of digits inside a
// value token.
func DefaultValueConfusions() []Confusion {
	return []Confusion{
		{From: "O", To: "0"},
		{From: "o", To: "0"},
		{From: "D", To: "0"},
		{From: "l", To: "1"},
		{From: "I", To: "1"},
		{From: "|", To: "1"},
	}
}

func newReplacer(pairs []Confusion, lower bool) *strings.Replacer {
	args := make([]string, 0, len(pairs)*2)
	for _, p := range pairs {
		if p.From == "" {
			continue
		}
		from, to := p.From, p.To
		if lower {
			from, to = strings.ToLower(from), strings.ToLower(to)
		}
		args = append(args, from, to)
	}
	return strings.NewReplacer(args...)
}
