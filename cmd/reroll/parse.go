package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/npratt/reroll/internal/catalog"
	"github.com/npratt/reroll/internal/events"
	"github.com/npratt/reroll/internal/normalize"
	"github.com/npratt/reroll/internal/target"
	"github.com/npratt/reroll/internal/tui"
)

// runParse normalizes OCR text read from r and, when sel is not empty,
// reports whether it satisfies the selection. It returns whether it matched.
func runParse(w io.Writer, r io.Reader, norm *normalize.Normalizer, cat *catalog.Catalog, sel target.Selection) (bool, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return false, fmt.Errorf("read text: %w", err)
	}

	detected := norm.Normalize(lines)
	if len(detected) == 0 {
		_, _ = fmt.Fprintln(w, "no stats recognised")
	}
	for _, g := range tui.GroupDetected(cat, detected) {
		_, _ = fmt.Fprintf(w, "%-10s %s\n", g.Label+":", events.FormatDetected(g.Stats))
	}

	if sel.Empty() {
		return false, nil
	}
	ok, err := target.Satisfied(detected, sel)
	if err != nil {
		return false, err
	}
	if ok {
		_, _ = fmt.Fprintf(w, "match:     %s\n", sel)
		return true, nil
	}
	missing := target.Missing(detected, sel)
	parts := make([]string, len(missing))
	for i, p := range missing {
		parts[i] = p.String()
	}
	_, _ = fmt.Fprintf(w, "missing:   %s\n", strings.Join(parts, ", "))
	return false, nil
}
