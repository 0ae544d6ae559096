package tui

import (
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/npratt/reroll/internal/events"
)

const (
	// maxEventLines is the maximum number of event lines to keep in the buffer.
	maxEventLines = 1000
	// trimEventLines is the number of lines to remove when buffer exceeds max.
	trimEventLines = 100
	// tickInterval is the interval for refreshing the elapsed time.
	tickInterval = time.Second
)

// channelClosedMsg signals that the event channel was closed.
type channelClosedMsg struct{}

// tickMsg signals a periodic tick for the elapsed-time display.
type tickMsg time.Time

// waitForEvent creates a command that waits for the next event from the channel.
// Returns channelClosedMsg if the channel is closed.
func waitForEvent(ch <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-ch
		if !ok {
			return channelClosedMsg{}
		}
		return eventMsg(event)
	}
}

// doTick creates a command that waits for the tick interval and sends a tickMsg.
func doTick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model. It handles all message types and updates the model.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case eventMsg:
		ended := m.handleEvent(events.Event(msg))
		if ended && m.exitOnEnd {
			return m, tea.Quit
		}
		return m, waitForEvent(m.eventChan)

	case channelClosedMsg:
		slog.Info("event channel closed, exiting TUI")
		return m, tea.Quit

	case tickMsg:
		m.handleTick(time.Time(msg))
		return m, doTick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	default:
		return m, nil
	}
}

// handleKey processes keyboard input and returns the updated model and command.
func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "c":
		if !m.running() {
			return m, nil
		}
		if m.onCancel != nil {
			m.onCancel()
		}
		m.status = statusCancelling
		return m, nil

	case "q", "ctrl+c":
		// Leaving the view must not leave the game clicking unattended.
		if m.running() && m.onCancel != nil {
			m.onCancel()
		}
		if m.onQuit != nil {
			m.onQuit()
		}
		return m, tea.Quit

	case "up", "k":
		m.autoScroll = false
		if m.scrollPos > 0 {
			m.scrollPos--
		}
		return m, nil

	case "down", "j":
		maxScroll := len(m.eventLines) - m.visibleLines()
		if m.scrollPos < maxScroll {
			m.scrollPos++
		}
		if m.scrollPos >= maxScroll {
			m.autoScroll = true
		}
		return m, nil

	case "home", "g":
		m.autoScroll = false
		m.scrollPos = 0
		return m, nil

	case "end", "G":
		m.autoScroll = true
		m.scrollPos = max(0, len(m.eventLines)-m.visibleLines())
		return m, nil

	default:
		return m, nil
	}
}

// handleEvent processes an event, updates model state and reports whether the
// run reached a terminal state.
func (m *model) handleEvent(event events.Event) bool {
	ended := false

	switch e := event.(type) {
	case *events.RunStartEvent:
		m.run = &runInfo{
			ID:        e.RunID,
			Targets:   e.Targets,
			Region:    e.Region,
			StartTime: event.Timestamp(),
		}
		m.status = "running"
		m.attempt = 0
		m.detected = nil
		m.rawLines = nil
		m.matched = false
		m.errLine = ""
		m.elapsed = 0

	case *events.RunStateChangedEvent:
		if m.status != statusCancelling || e.To != "running" {
			m.status = e.To
		}

	case *events.AttemptEndEvent:
		m.attempt = e.Attempt
		m.detected = e.Detected
		m.rawLines = e.RawLines
		m.matched = e.Matched

	case *events.ErrorEvent:
		m.errLine = events.Format(e)

	case *events.RunEndEvent:
		m.status = e.Status
		m.attempt = max(m.attempt, e.Attempts)
		if len(e.Detected) > 0 {
			m.detected = e.Detected
		}
		m.matched = e.Matched()
		m.elapsed = time.Duration(e.DurationMs) * time.Millisecond
		if m.run != nil {
			m.run.EndTime = event.Timestamp()
		}
		ended = true
	}

	m.appendLine(event)
	return ended
}

// appendLine adds the formatted event to the log, trimming and following the
// tail as needed.
func (m *model) appendLine(event events.Event) {
	text := events.Format(event)
	if text == "" {
		return
	}

	m.eventLines = append(m.eventLines, eventLine{
		Time:  event.Timestamp(),
		Text:  text,
		Style: StyleForEvent(event),
	})

	if len(m.eventLines) > maxEventLines {
		m.eventLines = m.eventLines[trimEventLines:]
		m.scrollPos = max(0, m.scrollPos-trimEventLines)
	}

	if m.autoScroll {
		maxScroll := len(m.eventLines) - m.visibleLines()
		if maxScroll > 0 {
			m.scrollPos = maxScroll
		}
	}
}

// handleTick refreshes the elapsed time of a run in progress.
func (m *model) handleTick(now time.Time) {
	if m.running() && !m.run.StartTime.IsZero() {
		m.elapsed = now.Sub(m.run.StartTime)
	}
}
