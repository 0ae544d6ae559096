package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/npratt/reroll/internal/catalog"
	"github.com/npratt/reroll/internal/events"
	"github.com/npratt/reroll/internal/normalize"
)

// Status values shown in the header before the controller reports one.
const (
	statusIdle       = "idle"
	statusCancelling = "cancelling..."
)

// runInfo holds the run being followed.
type runInfo struct {
	ID        string
	Targets   []string
	Region    string
	StartTime time.Time
	EndTime   time.Time
}

// eventLine represents a formatted event for display.
type eventLine struct {
	Time  time.Time
	Text  string
	Style lipgloss.Style
}

// model is the bubbletea model for the TUI.
type model struct {
	// Event source
	eventChan <-chan events.Event
	catalog   *catalog.Catalog

	// Run state
	status   string
	run      *runInfo
	attempt  int
	detected []normalize.DetectedStat
	rawLines []string
	matched  bool
	errLine  string
	elapsed  time.Duration

	// Event log
	eventLines []eventLine

	// UI state
	width      int
	height     int
	scrollPos  int
	autoScroll bool
	spinner    spinner.Model

	// Callbacks
	onCancel  func()
	onQuit    func()
	exitOnEnd bool
}

// eventMsg wraps an event for the bubbletea message system.
type eventMsg events.Event

// newModel creates a new model with the given configuration.
func newModel(
	eventChan <-chan events.Event,
	cat *catalog.Catalog,
	onCancel, onQuit func(),
	exitOnEnd bool,
) model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.StatusRunning

	return model{
		eventChan:  eventChan,
		catalog:    cat,
		status:     statusIdle,
		autoScroll: true,
		spinner:    sp,
		onCancel:   onCancel,
		onQuit:     onQuit,
		exitOnEnd:  exitOnEnd,
	}
}

// Init implements tea.Model.
func (m model) Init() tea.Cmd {
	return tea.Batch(
		waitForEvent(m.eventChan),
		doTick(),
		m.spinner.Tick,
	)
}

// Update, handleKey, handleEvent, handleTick are implemented in update.go
// View is implemented in view.go

// running reports whether the followed run is still in progress.
func (m model) running() bool {
	return m.run != nil && m.run.EndTime.IsZero()
}

// visibleLines returns the number of event lines that fit in the viewport.
func (m model) visibleLines() int {
	// Height minus: border (2), header (3), dividers (3), footer (1), stats block
	return max(1, m.height-9-m.statsHeight())
}

// statsHeight is the number of lines the detected-stats block occupies.
func (m model) statsHeight() int {
	n := 1 // group placeholder or first group
	if groups := GroupDetected(m.catalog, m.detected); len(groups) > 1 {
		n = len(groups)
	}
	if m.errLine != "" {
		n++
	}
	return n
}
