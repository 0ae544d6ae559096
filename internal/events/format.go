package events

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/npratt/reroll/internal/normalize"
)

const (
	maxLineLength     = 200
	truncateIndicator = "..."
)

// Format converts an event to a human-readable string for display.
// Returns empty string for nil or unknown event types.
func Format(event Event) string {
	if event == nil {
		return ""
	}

	switch e := event.(type) {
	case *RunStartEvent:
		return fmt.Sprintf("run %s started: %s", ShortID(e.RunID), strings.Join(e.Targets, ", "))
	case *RunStateChangedEvent:
		return fmt.Sprintf("state: %s -> %s", e.From, e.To)
	case *AttemptEndEvent:
		return formatAttemptEnd(e)
	case *RunEndEvent:
		return formatRunEnd(e)
	case *KillSwitchEvent:
		return "kill switch tripped"
	case *ErrorEvent:
		return formatError(e)
	default:
		return ""
	}
}

// FormatWithTimestamp formats an event with a timestamp prefix.
func FormatWithTimestamp(event Event) string {
	if event == nil {
		return ""
	}
	ts := event.Timestamp().Format("15:04:05")
	detail := Format(event)
	if detail == "" {
		return fmt.Sprintf("[%s] %s", ts, event.Type())
	}
	return fmt.Sprintf("[%s] %s", ts, detail)
}

func formatAttemptEnd(e *AttemptEndEvent) string {
	marker := "-"
	if e.Matched {
		marker = "+"
	}
	if len(e.Detected) == 0 {
		return fmt.Sprintf("[%s] attempt %d: no stats recognised", marker, e.Attempt)
	}
	return Truncate(fmt.Sprintf("[%s] attempt %d: %s", marker, e.Attempt, FormatDetected(e.Detected)), maxLineLength)
}

func formatRunEnd(e *RunEndEvent) string {
	switch {
	case e.Error != "":
		return fmt.Sprintf("run %s %s after %d attempts: %s", ShortID(e.RunID), e.Status, e.Attempts, Truncate(SafeString(e.Error), 100))
	default:
		return fmt.Sprintf("run %s %s after %d attempts", ShortID(e.RunID), e.Status, e.Attempts)
	}
}

func formatError(e *ErrorEvent) string {
	msg := SafeString(e.Message)
	severity := SafeString(e.Severity)
	if severity == "" {
		severity = SeverityError
	}
	prefix := strings.ToUpper(severity)
	if e.Attempt > 0 {
		return fmt.Sprintf("%s: attempt %d %s - %s", prefix, e.Attempt, e.Kind, Truncate(msg, 100))
	}
	return fmt.Sprintf("%s: %s", prefix, Truncate(msg, 100))
}

// FormatDetected renders detected stats as "Name Value; Name Value".
func FormatDetected(detected []normalize.DetectedStat) string {
	parts := make([]string, len(detected))
	for i, d := range detected {
		parts[i] = d.Name + " " + d.Variant
	}
	return strings.Join(parts, "; ")
}

// ShortID returns the first segment of a run ID for display.
func ShortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}

// Truncate shortens text to maxLen, adding indicator if truncated.
func Truncate(s string, maxLen int) string {
	s = SafeString(s)
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= len(truncateIndicator) {
		return truncateIndicator
	}
	return s[:maxLen-len(truncateIndicator)] + truncateIndicator
}

// ansiRegex matches ANSI escape sequences.
var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// SafeString sanitizes a string for display by removing escape sequences and
// control characters and collapsing whitespace.
func SafeString(s string) string {
	s = ansiRegex.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")

	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		if r == ' ' || !unicode.IsControl(r) {
			sb.WriteRune(r)
		}
	}

	return strings.Join(strings.Fields(sb.String()), " ")
}
