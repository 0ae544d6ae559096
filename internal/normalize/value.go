package normalize

import (
	"regexp"
	"strings"
)

var (
	valuePattern    = regexp.MustCompile(`^(\d+)(?:\.(\d+))?([%s]?)$`)
	dottedThousands = regexp.MustCompile(`^\+?\d{1,3}(?:\.\d{3})+[%sS]?$`)
)

// undotThousands rewrites dot-grouped thousands ("1.200", "+2.400") with
// commas. Other spellings are returned unchanged.
func undotThousands(v string) string {
	if !dottedThousands.MatchString(v) {
		return v
	}
	return strings.ReplaceAll(v, ".", ",")
}

// CanonicalValue reduces a value spelling to a comparable form: leading '+',
// thousands separators and leading zeros are dropped and the unit suffix
// ('%' or 's') is kept. "+1,200" and "1200" both become "1200".
// It reports false when v is not a number with an optional unit.
func CanonicalValue(v string) (string, bool) {
	s := strings.TrimSpace(v)
	s = strings.TrimLeft(s, "+")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")
	if strings.HasSuffix(s, "S") {
		s = strings.TrimSuffix(s, "S") + "s"
	}

	m := valuePattern.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}

	whole := strings.TrimLeft(m[1], "0")
	if whole == "" {
		whole = "0"
	}
	out := whole
	if frac := strings.TrimRight(m[2], "0"); frac != "" {
		out += "." + frac
	}
	return out + m[3], true
}

// SameValue reports whether a and b spell the same value. Numeric values are
// compared in canonical form, anything else must match exactly.
func SameValue(a, b string) bool {
	ca, okA := CanonicalValue(a)
	cb, okB := CanonicalValue(b)
	if okA && okB {
		return ca == cb
	}
	return strings.TrimSpace(a) == strings.TrimSpace(b)
}

// numberPart strips the unit suffix from a canonical value.
func numberPart(canon string) string {
	return strings.TrimRight(canon, "%s")
}

func hasDigit(s string) bool {
	for _, r := range s {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}
