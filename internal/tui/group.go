package tui

import (
	"github.com/npratt/reroll/internal/catalog"
	"github.com/npratt/reroll/internal/normalize"
)

// Group is a set of detected stats sharing a polarity.
type Group struct {
	Label string
	Stats []normalize.DetectedStat
}

// GroupDetected splits detected stats into offensive and defensive groups in
// detection order. Stats the catalog does not know land in a trailing "other"
// group. Empty groups are omitted. A nil catalog yields a single group.
func GroupDetected(cat *catalog.Catalog, detected []normalize.DetectedStat) []Group {
	if len(detected) == 0 {
		return nil
	}
	if cat == nil {
		return []Group{{Label: "detected", Stats: detected}}
	}

	var off, def, other []normalize.DetectedStat
	for _, d := range detected {
		sd, err := cat.Lookup(d.Name)
		switch {
		case err != nil:
			other = append(other, d)
		case sd.Polarity == catalog.Offensive:
			off = append(off, d)
		default:
			def = append(def, d)
		}
	}

	var groups []Group
	for _, g := range []Group{
		{Label: string(catalog.Offensive), Stats: off},
		{Label: string(catalog.Defensive), Stats: def},
		{Label: "other", Stats: other},
	} {
		if len(g.Stats) > 0 {
			groups = append(groups, g)
		}
	}
	return groups
}
