package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/npratt/reroll/internal/catalog"
	"github.com/npratt/reroll/internal/events"
)

const (
	minWidth  = 50
	minHeight = 14
)

// View implements tea.Model. This renders the full TUI display.
func (m model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	if m.width < minWidth || m.height < minHeight {
		return m.renderTooSmall()
	}

	w := safeWidth(m.width - 4) // Account for container borders

	sections := []string{
		m.renderHeader(w),
		m.renderDivider(w),
		m.renderStats(w),
		m.renderDivider(w),
		m.renderEvents(w),
		m.renderDivider(w),
		m.renderFooter(),
	}

	// Height() can cause clipping issues; let content determine size
	rendered := styles.Container.
		Width(safeWidth(m.width - 2)).
		Render(strings.Join(sections, "\n"))

	return lipgloss.Place(m.width, m.height, lipgloss.Left, lipgloss.Top, rendered)
}

// renderTooSmall renders a minimal message for terminals that are too small.
func (m model) renderTooSmall() string {
	return fmt.Sprintf("Terminal too small (%dx%d). Need %dx%d minimum.",
		m.width, m.height, minWidth, minHeight)
}

// renderHeader renders status, targets and the attempt counter.
func (m model) renderHeader(w int) string {
	status := m.renderStatus()
	elapsed := styles.Duration.Render(formatElapsed(m.elapsed))
	statusLine := spread(w, status, elapsed)

	targets := "no active run"
	if m.run != nil {
		targets = "targets: " + strings.Join(m.run.Targets, ", ")
	}
	targetLine := styles.Targets.Render(truncate(targets, w))

	attempt := styles.Label.Render(fmt.Sprintf("attempt: %d", m.attempt))
	runID := ""
	if m.run != nil {
		runID = styles.Label.Render("run: " + events.ShortID(m.run.ID))
	}
	attemptLine := spread(w, attempt, runID)

	return strings.Join([]string{statusLine, targetLine, attemptLine}, "\n")
}

// renderStatus renders the status indicator with appropriate styling.
func (m model) renderStatus() string {
	text := strings.ToUpper(m.status)
	var style lipgloss.Style

	switch m.status {
	case "running":
		return m.spinner.View() + " " + styles.StatusRunning.Render(text)
	case "stopping", statusCancelling:
		style = styles.StatusStopping
	case "stopped-matched":
		style = styles.StatusMatched
	case "stopped-cancelled", "stopped-error":
		style = styles.StatusStopped
	default:
		style = styles.StatusIdle
	}

	return style.Render(text)
}

// renderStats renders the last detected stats grouped by polarity plus the
// error line, if any.
func (m model) renderStats(w int) string {
	var lines []string

	groups := GroupDetected(m.catalog, m.detected)
	if len(groups) == 0 {
		placeholder := "no stats recognised yet"
		if m.attempt > 0 {
			placeholder = "no stats recognised in the last capture"
		}
		lines = append(lines, styles.Label.Render(placeholder))
	}
	for _, g := range groups {
		label := styles.Label.Render(fmt.Sprintf("%-10s", g.Label+":"))
		text := truncate(events.FormatDetected(g.Stats), w-lipgloss.Width(label)-1)
		lines = append(lines, label+" "+groupStyle(g.Label).Render(text))
	}

	if m.errLine != "" {
		lines = append(lines, styles.Error.Render(truncate(m.errLine, w)))
	}
	return strings.Join(lines, "\n")
}

func groupStyle(label string) lipgloss.Style {
	switch label {
	case string(catalog.Offensive):
		return styles.Offensive
	case string(catalog.Defensive):
		return styles.Defensive
	default:
		return styles.Other
	}
}

// renderDivider renders a horizontal divider line.
func (m model) renderDivider(w int) string {
	return styles.Divider.Render(strings.Repeat("─", w))
}

// renderEvents renders the scrollable event feed.
func (m model) renderEvents(w int) string {
	visible := m.visibleLines()

	if len(m.eventLines) == 0 {
		placeholder := "Waiting for events..."
		padding := strings.Repeat("\n", visible/2)
		return padding + lipgloss.PlaceHorizontal(w, lipgloss.Center, placeholder)
	}

	scrollPos := safeScroll(m.scrollPos, len(m.eventLines), visible)
	endPos := min(scrollPos+visible, len(m.eventLines))

	var lines []string
	for _, el := range m.eventLines[scrollPos:endPos] {
		lines = append(lines, m.renderEventLine(el, w))
	}

	for len(lines) < visible {
		lines = append(lines, "")
	}

	return strings.Join(lines, "\n")
}

// renderEventLine renders a single event with timestamp and styling.
func (m model) renderEventLine(el eventLine, maxWidth int) string {
	prefix := el.Time.Format("15:04:05") + " "

	textWidth := maxWidth - len(prefix)
	if textWidth < 10 {
		textWidth = 10
	}

	return styles.Muted.Render(prefix) + el.Style.Render(truncate(el.Text, textWidth))
}

// renderFooter renders keyboard shortcuts help text.
func (m model) renderFooter() string {
	help := "q: quit  ↑/↓: scroll  g/G: top/bottom"
	if m.running() {
		help = "esc/c: cancel  q: quit  ↑/↓: scroll"
	}
	return styles.Footer.Render(help)
}

// spread places left and right at opposite ends of a line of width w.
func spread(w int, left, right string) string {
	gap := max(1, w-lipgloss.Width(left)-lipgloss.Width(right))
	return lipgloss.JoinHorizontal(lipgloss.Top, left, strings.Repeat(" ", gap), right)
}

// formatElapsed renders a duration as m:ss or h:mm:ss.
func formatElapsed(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d / time.Hour)
	mins := int(d/time.Minute) % 60
	secs := int(d/time.Second) % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, mins, secs)
	}
	return fmt.Sprintf("%d:%02d", mins, secs)
}

func truncate(s string, w int) string {
	return events.Truncate(s, max(w, 4))
}

// safeWidth returns a width that is at least 1 to prevent negative values.
func safeWidth(w int) int {
	if w < 1 {
		return 1
	}
	return w
}

// safeScroll clamps scroll position to valid bounds.
func safeScroll(pos, totalLines, visibleLines int) int {
	if pos < 0 {
		return 0
	}
	maxScroll := totalLines - visibleLines
	if maxScroll < 0 {
		return 0
	}
	if pos > maxScroll {
		return maxScroll
	}
	return pos
}

// StyleForEvent returns the appropriate style for an event type.
func StyleForEvent(event events.Event) lipgloss.Style {
	switch e := event.(type) {
	case *events.AttemptEndEvent:
		if e.Matched {
			return styles.Match
		}
		return styles.Attempt
	case *events.RunEndEvent:
		if e.Matched() {
			return styles.Match
		}
		if e.Error != "" {
			return styles.Error
		}
		return styles.Run
	case *events.RunStartEvent, *events.RunStateChangedEvent:
		return styles.Run
	case *events.ErrorEvent, *events.KillSwitchEvent:
		return styles.Error
	default:
		return styles.Muted
	}
}
