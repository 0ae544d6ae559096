package main

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/npratt/reroll/internal/catalog"
	"github.com/npratt/reroll/internal/controller"
	"github.com/npratt/reroll/internal/daemon"
	"github.com/npratt/reroll/internal/events"
	"github.com/npratt/reroll/internal/tui"
)

// crlfWriter turns "\n" into "\r\n" for a terminal in raw mode.
type crlfWriter struct {
	w io.Writer
}

func (c crlfWriter) Write(p []byte) (int, error) {
	if _, err := c.w.Write(bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))); err != nil {
		return 0, err
	}
	return len(p), nil
}

// streamEvents prints each event until the run ends, ch closes or ctx is done.
func streamEvents(ctx context.Context, w io.Writer, ch <-chan events.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			_, _ = fmt.Fprintln(w, events.FormatWithTimestamp(ev))
			if _, ok := ev.(*events.RunEndEvent); ok {
				return
			}
		}
	}
}

// printSummary writes the final state of a run.
func printSummary(w io.Writer, snap controller.Snapshot, cat *catalog.Catalog) {
	_, _ = fmt.Fprintf(w, "run %s: %s after %d attempt(s) in %s\n",
		events.ShortID(snap.RunID), snap.Status, snap.Attempt, snap.Elapsed().Truncate(time.Millisecond))
	if len(snap.Targets) > 0 {
		_, _ = fmt.Fprintf(w, "  targets:   %s\n", strings.Join(snap.Targets, ", "))
	}
	for _, g := range tui.GroupDetected(cat, snap.LastDetected) {
		_, _ = fmt.Fprintf(w, "  %-10s %s\n", g.Label+":", events.FormatDetected(g.Stats))
	}
	if snap.Error != nil {
		_, _ = fmt.Fprintf(w, "  error:     %s\n", snap.Error)
	}
}

// printStatus writes a daemon status response in human-readable form.
func printStatus(w io.Writer, status *daemon.StatusResponse, cat *catalog.Catalog) {
	_, _ = fmt.Fprintf(w, "Status: %s\n", status.Status)
	_, _ = fmt.Fprintf(w, "Uptime: %s\n", status.Uptime)
	_, _ = fmt.Fprintf(w, "Started: %s\n", status.StartTime)
	if status.Run.RunID == "" {
		_, _ = fmt.Fprintln(w, "No runs yet")
		return
	}
	printSummary(w, status.Run, cat)
}

// catalogFromStats rebuilds a catalog from a daemon response, or returns nil
// when the stats do not validate.
func catalogFromStats(stats []catalog.StatDefinition) *catalog.Catalog {
	cat, err := catalog.New(stats)
	if err != nil {
		return nil
	}
	return cat
}

// printCatalog lists stats grouped by polarity.
func printCatalog(w io.Writer, stats []catalog.StatDefinition) {
	for _, p := range []catalog.Polarity{catalog.Offensive, catalog.Defensive} {
		_, _ = fmt.Fprintf(w, "%s:\n", p)
		for _, s := range stats {
			if s.Polarity == p {
				_, _ = fmt.Fprintf(w, "  %-24s %s\n", s.Name, strings.Join(s.Variants, " "))
			}
		}
	}
}

// tailLast prints the last n lines from the event log.
func tailLast(w io.Writer, path string, n int) error {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			_, _ = fmt.Fprintln(w, "No events yet (log file does not exist)")
			return nil
		}
		return fmt.Errorf("open log file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var lines []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read log file: %w", err)
	}

	if len(lines) == 0 {
		_, _ = fmt.Fprintln(w, "No events yet")
		return nil
	}

	start := 0
	if len(lines) > n {
		start = len(lines) - n
	}
	for _, line := range lines[start:] {
		printEventLine(w, line)
	}
	return nil
}

// waitForFile waits for a file to be created and returns the opened file.
func waitForFile(ctx context.Context, path string) (*os.File, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(500 * time.Millisecond):
			file, err := os.Open(path)
			if err == nil {
				return file, nil
			}
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("open file: %w", err)
			}
		}
	}
}

// tailFollow prints lines appended to the event log until ctx is done.
func tailFollow(ctx context.Context, w io.Writer, path string) error {
	file, err := os.Open(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("open log file: %w", err)
		}
		_, _ = fmt.Fprintln(w, "Waiting for log file to be created...")
		file, err = waitForFile(ctx, path)
		if err != nil {
			return err
		}
	}
	defer func() { _ = file.Close() }()

	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("seek to end: %w", err)
	}

	_, _ = fmt.Fprintln(w, "Following events (Ctrl+C to stop)...")
	reader := bufio.NewReader(file)
	var partial string
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		line, err := reader.ReadString('\n')
		if err == io.EOF {
			partial += line
			time.Sleep(100 * time.Millisecond)
			continue
		}
		if err != nil {
			return fmt.Errorf("read log: %w", err)
		}
		printEventLine(w, strings.TrimSuffix(partial+line, "\n"))
		partial = ""
	}
}

// printEventLine prints one event log line. Lines that are not known events
// are printed as they are.
func printEventLine(w io.Writer, line string) {
	ev, err := events.ParseEvent([]byte(line))
	if err != nil || ev == nil {
		_, _ = fmt.Fprintln(w, line)
		return
	}
	_, _ = fmt.Fprintln(w, events.FormatWithTimestamp(ev))
}
