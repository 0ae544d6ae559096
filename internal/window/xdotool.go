package window

import (
	"context"
	"errors"
	"fmt"
	osexec "os/exec"
	"strconv"
	"strings"

	"github.com/npratt/reroll/internal/exec"
)

// XdotoolLister lists X11 windows with xdotool.
func XdotoolLister(runner exec.CommandRunner, command string) Lister {
	return func(ctx context.Context, class string) ([]Candidate, error) {
		all, err := searchIDs(ctx, runner, command, "search", "--class", class)
		if err != nil {
			return nil, err
		}
		visible, err := searchIDs(ctx, runner, command, "search", "--onlyvisible", "--class", class)
		if err != nil {
			return nil, err
		}
		shown := make(map[uintptr]bool, len(visible))
		for _, id := range visible {
			shown[id] = true
		}

		cands := make([]Candidate, 0, len(all))
		for _, id := range all {
			name, err := runner.Run(ctx, command, "getwindowname", strconv.FormatUint(uint64(id), 10))
			if err != nil {
				// Windows can vanish between search and query.
				continue
			}
			cands = append(cands, Candidate{
				Handle:  id,
				Title:   strings.TrimSpace(string(name)),
				Visible: shown[id],
			})
		}
		return cands, nil
	}
}

// searchIDs runs an xdotool search. xdotool exits 1 when nothing matches.
func searchIDs(ctx context.Context, runner exec.CommandRunner, command string, args ...string) ([]uintptr, error) {
	out, err := runner.Run(ctx, command, args...)
	if err != nil {
		var exitErr *osexec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return nil, nil
		}
		return nil, err
	}

	var ids []uintptr
	for _, field := range strings.Fields(string(out)) {
		id, err := strconv.ParseUint(field, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse window id %q: %w", field, err)
		}
		ids = append(ids, uintptr(id))
	}
	return ids, nil
}

// ID formats a handle the way xdotool and import expect.
func ID(c Candidate) string {
	return strconv.FormatUint(uint64(c.Handle), 10)
}
