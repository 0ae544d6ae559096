package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/npratt/reroll/internal/catalog"
	"github.com/npratt/reroll/internal/events"
	"github.com/npratt/reroll/internal/normalize"
)

func TestSafeWidth(t *testing.T) {
	tests := []struct {
		name     string
		input    int
		expected int
	}{
		{"positive", 100, 100},
		{"zero", 0, 1},
		{"negative", -10, 1},
		{"one", 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := safeWidth(tt.input)
			if result != tt.expected {
				t.Errorf("safeWidth(%d) = %d, want %d", tt.input, result, tt.expected)
			}
		})
	}
}

func TestSafeScroll(t *testing.T) {
	tests := []struct {
		name         string
		pos          int
		totalLines   int
		visibleLines int
		expected     int
	}{
		{"normal position", 5, 20, 10, 5},
		{"negative position", -5, 20, 10, 0},
		{"at max", 10, 20, 10, 10},
		{"past max", 15, 20, 10, 10},
		{"more visible than total", 5, 5, 10, 0},
		{"zero total", 0, 0, 10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := safeScroll(tt.pos, tt.totalLines, tt.visibleLines)
			if result != tt.expected {
				t.Errorf("safeScroll(%d, %d, %d) = %d, want %d",
					tt.pos, tt.totalLines, tt.visibleLines, result, tt.expected)
			}
		})
	}
}

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0:00"},
		{1500 * time.Millisecond, "0:02"},
		{75 * time.Second, "1:15"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1:02:03"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := formatElapsed(tt.in); got != tt.want {
				t.Errorf("formatElapsed(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestView_Loading(t *testing.T) {
	m := newModel(make(chan events.Event), nil, nil, nil, false)
	if got := m.View(); got != "Loading..." {
		t.Errorf("View() = %q, want Loading...", got)
	}
}

func TestView_TooSmall(t *testing.T) {
	m := testModel()
	m.width = 30
	m.height = 10

	got := m.View()
	if !strings.Contains(got, "Terminal too small (30x10)") {
		t.Errorf("View() = %q, want too-small message", got)
	}
}

func TestView_Idle(t *testing.T) {
	m := testModel()
	got := m.View()

	for _, want := range []string{"IDLE", "no active run", "attempt: 0", "no stats recognised yet", "Waiting for events...", "q: quit"} {
		if !strings.Contains(got, want) {
			t.Errorf("View() missing %q", want)
		}
	}
}

func TestView_RunningShowsGroupsAndCancelHint(t *testing.T) {
	m := testModel()
	m.handleEvent(runStart("All Attack Up.=75", "Crit. DMG=36%"))
	m.handleEvent(attemptEnd(7, false,
		stat("All Attack Up.", "45"),
		stat("HP Auto Heal", "240"),
		stat("Crit. DMG", "9%"),
	))

	got := m.View()
	for _, want := range []string{
		"RUNNING",
		"targets: All Attack Up.=75, Crit. DMG=36%",
		"attempt: 7",
		"run: 3f2a9c1e",
		"offensive:",
		"All Attack Up. 45; Crit. DMG 9%",
		"defensive:",
		"HP Auto Heal 240",
		"esc/c: cancel",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("View() missing %q", want)
		}
	}
}

func TestView_ErrorLine(t *testing.T) {
	m := testModel()
	m.handleEvent(runStart("Crit. DMG=36%"))
	m.handleEvent(&events.ErrorEvent{
		BaseEvent: events.NewInternalEvent(events.EventError),
		Attempt:   3,
		Kind:      "ocr",
		Message:   "tesseract not installed",
		Severity:  events.SeverityError,
	})
	m.handleEvent(runEnd("stopped-error", 3))

	got := m.View()
	if !strings.Contains(got, "ERROR: attempt 3 ocr - tesseract not installed") {
		t.Error("View() missing error line")
	}
	if !strings.Contains(got, "STOPPED-ERROR") {
		t.Error("View() missing terminal status")
	}
	if strings.Contains(got, "esc/c: cancel") {
		t.Error("cancel hint shown after the run ended")
	}
}

func TestGroupDetected(t *testing.T) {
	cat := catalog.Default()
	detected := []normalize.DetectedStat{
		stat("HP Auto Heal", "240"),
		stat("All Attack Up.", "45"),
		stat("Mystery", "1"),
		stat("Crit. DMG", "9%"),
	}

	groups := GroupDetected(cat, detected)
	if len(groups) != 3 {
		t.Fatalf("groups = %d, want 3", len(groups))
	}

	wantLabels := []string{"offensive", "defensive", "other"}
	wantCounts := []int{2, 1, 1}
	for i, g := range groups {
		if g.Label != wantLabels[i] {
			t.Errorf("group %d label = %q, want %q", i, g.Label, wantLabels[i])
		}
		if len(g.Stats) != wantCounts[i] {
			t.Errorf("group %q has %d stats, want %d", g.Label, len(g.Stats), wantCounts[i])
		}
	}
	if groups[0].Stats[0].Name != "All Attack Up." {
		t.Errorf("offensive order = %+v, want detection order", groups[0].Stats)
	}
}

func TestGroupDetected_EmptyAndNilCatalog(t *testing.T) {
	if groups := GroupDetected(catalog.Default(), nil); groups != nil {
		t.Errorf("GroupDetected(nil) = %+v, want nil", groups)
	}

	groups := GroupDetected(nil, []normalize.DetectedStat{stat("Crit. DMG", "9%")})
	if len(groups) != 1 || groups[0].Label != "detected" {
		t.Errorf("GroupDetected without catalog = %+v, want single detected group", groups)
	}
}

func TestStyleForEvent(t *testing.T) {
	tests := []struct {
		name  string
		event events.Event
		want  lipgloss.Style
	}{
		{"match", attemptEnd(1, true), styles.Match},
		{"miss", attemptEnd(1, false), styles.Attempt},
		{"matched end", runEnd("stopped-matched", 1), styles.Match},
		{"cancelled end", runEnd("stopped-cancelled", 1), styles.Run},
		{"start", runStart(), styles.Run},
		{"kill switch", &events.KillSwitchEvent{BaseEvent: events.NewEvent(events.EventKillSwitch, events.SourceKillSwitch)}, styles.Error},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StyleForEvent(tt.event)
			if got.GetForeground() != tt.want.GetForeground() {
				t.Errorf("foreground = %v, want %v", got.GetForeground(), tt.want.GetForeground())
			}
		})
	}
}
