package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/npratt/reroll/internal/normalize"
)

// StateBufferSize is the recommended buffer size for state sink subscriptions.
const StateBufferSize = 1000

// CurrentStateVersion is the current state file format version.
// Increment this when making incompatible changes to the State struct.
const CurrentStateVersion = 1

// State is the persisted summary of the most recent run plus lifetime totals.
type State struct {
	Version       int                      `json:"version"`
	Status        string                   `json:"status"`
	RunID         string                   `json:"run_id,omitempty"`
	Targets       []string                 `json:"targets,omitempty"`
	Attempts      int                      `json:"attempts"`
	LastDetected  []normalize.DetectedStat `json:"last_detected,omitempty"`
	LastError     string                   `json:"last_error,omitempty"`
	StartedAt     time.Time                `json:"started_at,omitempty"`
	EndedAt       time.Time                `json:"ended_at,omitempty"`
	TotalRuns     int                      `json:"total_runs"`
	TotalAttempts int                      `json:"total_attempts"`
	TotalMatches  int                      `json:"total_matches"`
	UpdatedAt     time.Time                `json:"updated_at"`
}

// DefaultMinSaveDelay is the minimum time between debounced saves.
const DefaultMinSaveDelay = 2 * time.Second

// StateSink persists the run summary to a JSON file.
type StateSink struct {
	path     string
	state    *State
	dirty    bool
	mu       sync.Mutex
	done     chan struct{}
	lastSave time.Time
	minDelay time.Duration
}

// NewStateSink creates a new StateSink that writes to the specified path.
func NewStateSink(path string) *StateSink {
	return &StateSink{
		path:     path,
		state:    &State{Version: CurrentStateVersion, Status: "idle"},
		done:     make(chan struct{}),
		minDelay: DefaultMinSaveDelay,
	}
}

// Start ensures the directory exists, loads existing state, and begins processing events.
func (s *StateSink) Start(ctx context.Context, events <-chan Event) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	if err := s.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load state: %w", err)
	}

	go s.run(ctx, events)
	return nil
}

func (s *StateSink) run(ctx context.Context, events <-chan Event) {
	defer close(s.done)

	for {
		select {
		case <-ctx.Done():
			s.flushIfDirty()
			return
		case event, ok := <-events:
			if !ok {
				s.flushIfDirty()
				return
			}
			s.handleEvent(event)
		}
	}
}

func (s *StateSink) handleEvent(event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch e := event.(type) {
	case *RunStartEvent:
		s.state.Status = "running"
		s.state.RunID = e.RunID
		s.state.Targets = e.Targets
		s.state.Attempts = 0
		s.state.LastDetected = nil
		s.state.LastError = ""
		s.state.StartedAt = e.Timestamp()
		s.state.EndedAt = time.Time{}
		s.state.TotalRuns++
		s.dirty = true
		s.saveUnlocked()
		return

	case *RunStateChangedEvent:
		if !s.currentRun(e.RunID) {
			return
		}
		s.state.Status = e.To
		s.dirty = true

	case *AttemptEndEvent:
		if !s.currentRun(e.RunID) {
			return
		}
		s.state.Attempts = e.Attempt
		s.state.LastDetected = e.Detected
		s.state.TotalAttempts++
		s.dirty = true

	case *ErrorEvent:
		if !s.currentRun(e.RunID) {
			return
		}
		s.state.LastError = e.Message
		s.dirty = true

	case *RunEndEvent:
		if !s.currentRun(e.RunID) {
			return
		}
		s.state.Status = e.Status
		s.state.Attempts = e.Attempts
		if e.Error != "" {
			s.state.LastError = e.Error
		}
		if e.Matched() {
			s.state.TotalMatches++
		}
		s.state.EndedAt = e.Timestamp()
		s.dirty = true
		// Terminal state is always written immediately.
		s.saveUnlocked()
		return
	}

	if s.dirty && time.Since(s.lastSave) >= s.minDelay {
		s.saveUnlocked()
	}
}

// currentRun reports whether an event for runID belongs to the run the state
// describes. Late events from an earlier run are dropped. Caller holds mu.
func (s *StateSink) currentRun(runID string) bool {
	return runID == "" || s.state.RunID == "" || runID == s.state.RunID
}

func (s *StateSink) saveUnlocked() {
	s.state.UpdatedAt = time.Now()

	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "state sink: marshal error: %v\n", err)
		return
	}

	// Atomic write: temp file + rename
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "state sink: write error: %v\n", err)
		return
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		fmt.Fprintf(os.Stderr, "state sink: rename error: %v\n", err)
		return
	}

	s.dirty = false
	s.lastSave = time.Now()
}

func (s *StateSink) flushIfDirty() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dirty {
		s.saveUnlocked()
	}
}

// Stop waits for the run goroutine to finish. The final save happens there.
func (s *StateSink) Stop() error {
	<-s.done
	return nil
}

// Load reads the state file from disk. A corrupt or incompatible file is moved
// aside and a fresh state is used.
func (s *StateSink) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		s.discardUnlocked("state file corrupted", slog.Any("error", err))
		return nil
	}
	if state.Version != CurrentStateVersion {
		s.discardUnlocked("incompatible state version",
			slog.Int("file_version", state.Version),
			slog.Int("current_version", CurrentStateVersion))
		return nil
	}

	// A previous process may have died mid-run.
	if state.Status == "running" || state.Status == "stopping" {
		state.Status = "interrupted"
	}
	s.state = &state
	return nil
}

// discardUnlocked backs up the state file and resets to a fresh state.
// Must be called with s.mu held.
func (s *StateSink) discardUnlocked(reason string, attrs ...any) {
	attrs = append([]any{slog.String("path", s.path)}, attrs...)
	if err := os.Rename(s.path, s.path+".backup"); err != nil {
		slog.Warn(reason+", failed to backup", append(attrs, slog.Any("backup_error", err))...)
	} else {
		slog.Warn(reason+", backed up and starting fresh", attrs...)
	}
	s.state = &State{Version: CurrentStateVersion, Status: "idle"}
}

// State returns a copy of the current state.
func (s *StateSink) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := *s.state
	st.Targets = append([]string(nil), s.state.Targets...)
	st.LastDetected = append([]normalize.DetectedStat(nil), s.state.LastDetected...)
	return st
}

// Path returns the state file path.
func (s *StateSink) Path() string {
	return s.path
}

// SetMinDelay sets the minimum delay between saves (for testing).
func (s *StateSink) SetMinDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.minDelay = d
}

// ReadState loads a state file without starting a sink.
func ReadState(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	return &st, nil
}
