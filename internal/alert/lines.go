// Every user-facing string the timer produces lives here. Keep lines short;
// they are printed and spoken verbatim.

package alert

import (
	"fmt"

	"github.com/hammamikhairi/ottofry/internal/domain"
)

// Warning thresholds in seconds remaining, checked on every tick.
var WarningThresholds = []int{300, 60, 30}

// ── Session ──────────────────────────────────────────────────────

// LineStart is announced when the cook begins.
func LineStart(name string, cookMinutes, temperature int) string {
	return fmt.Sprintf("Starting %s. Cooking for %d minutes at %d degrees.", name, cookMinutes, temperature)
}

func LinePaused() string {
	return "Timer paused"
}

func LineResumed() string {
	return "Timer resumed"
}

func LineComplete(name string) string {
	return fmt.Sprintf("Your %s is ready! Remove from the air fryer now.", name)
}

// LineWarning returns the canned text for a warning threshold.
func LineWarning(threshold int) string {
	switch {
	case threshold >= 60 && threshold%60 == 0:
		m := threshold / 60
		if m == 1 {
			return "1 minute remaining"
		}
		return fmt.Sprintf("%d minutes remaining", m)
	case threshold == 1:
		return "1 second remaining"
	default:
		return fmt.Sprintf("%d seconds remaining", threshold)
	}
}

// WarningKey is the fired-set key for a warning threshold.
func WarningKey(threshold int) string {
	return fmt.Sprintf("warning-%d", threshold)
}

// ── Voice ────────────────────────────────────────────────────────

func LineVoiceEnabled() string {
	return "Voice alerts enabled"
}

func LineVoiceDisabled() string {
	return "Voice alerts disabled"
}

func LineVoiceTest() string {
	return "Voice alerts are working!"
}

// ── Presentation ─────────────────────────────────────────────────

// LineSelected describes a freshly selected food.
func LineSelected(r *domain.FoodRecipe, celsius bool) string {
	return fmt.Sprintf("%s selected: %s at %s. Say start when it's in the basket.",
		r.Name, FormatMinutes(r.CookTimeMinutes), FormatTemperature(r.Temperature, celsius))
}

// LineStatus summarises a snapshot in one line.
func LineStatus(s domain.Snapshot) string {
	if s.Recipe == nil {
		return "Nothing selected."
	}
	switch s.Status {
	case domain.StatusIdle:
		return fmt.Sprintf("%s ready to start, %s.", s.Recipe.Name, FormatMinutes(s.Recipe.CookTimeMinutes))
	case domain.StatusComplete:
		return fmt.Sprintf("%s is done.", s.Recipe.Name)
	}
	line := fmt.Sprintf("%s %s, %s left (%d%%).", s.Recipe.Name, s.Status, FormatTime(s.RemainingSeconds), int(s.Progress()*100))
	if next, ok := s.NextAction(); ok {
		line += fmt.Sprintf(" Next: %s at %s.", next.Type, FormatMinutes(next.AtMinute))
	}
	return line
}

// StaticLines returns every fixed line so a voice cache can prefetch them.
func StaticLines() []string {
	out := []string{
		LinePaused(),
		LineResumed(),
		LineVoiceEnabled(),
		LineVoiceDisabled(),
		LineVoiceTest(),
	}
	for _, t := range WarningThresholds {
		out = append(out, LineWarning(t))
	}
	return out
}

// ── Formatting ───────────────────────────────────────────────────

// FormatTime renders seconds as MM:SS.
func FormatTime(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// FormatMinutes renders a minute count as "N min".
func FormatMinutes(minutes int) string {
	return fmt.Sprintf("%d min", minutes)
}

// FormatTemperature renders a Fahrenheit temperature, optionally as Celsius.
func FormatTemperature(fahrenheit int, celsius bool) string {
	if celsius {
		return fmt.Sprintf("%d°C", domain.FahrenheitToCelsius(fahrenheit))
	}
	return fmt.Sprintf("%d°F", fahrenheit)
}
