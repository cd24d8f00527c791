package conversation

import (
	"context"
	"testing"

	"github.com/hammamikhairi/ottofry/internal/domain"
	"github.com/hammamikhairi/ottofry/internal/logger"
)

func TestKeywordParser(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	parser := NewKeywordParser(log)
	ctx := context.Background()

	tests := []struct {
		input       string
		wantType    domain.IntentType
		wantPayload string
	}{
		// Browsing
		{"list", domain.IntentListFoods, ""},
		{"menu", domain.IntentListFoods, ""},
		{"category frozen", domain.IntentCategory, "frozen"},
		{"veggies", domain.IntentCategory, "vegetable"},
		{"Snacks", domain.IntentCategory, "snack"},
		{"search chicken", domain.IntentSearch, "chicken"},
		{"/fries", domain.IntentSearch, "fries"},

		// Select by number
		{"1", domain.IntentSelectFood, "1"},
		{"29", domain.IntentSelectFood, "29"},

		// Select by name
		{"select chicken-wings", domain.IntentSelectFood, "chicken-wings"},
		{"cook  salmon ", domain.IntentSelectFood, "salmon"},
		{"show bacon", domain.IntentShowFood, "bacon"},

		// Timer commands
		{"start", domain.IntentStart, ""},
		{"go", domain.IntentStart, ""},
		{"pause", domain.IntentPause, ""},
		{"resume", domain.IntentResume, ""},
		{"reset", domain.IntentReset, ""},
		{"ok", domain.IntentDismissAlert, ""},
		{"dismiss", domain.IntentDismissAlert, ""},
		{"status", domain.IntentStatus, ""},

		// Preferences
		{"voice on", domain.IntentVoiceOn, ""},
		{"mute", domain.IntentVoiceOff, ""},
		{"test voice", domain.IntentTestVoice, ""},
		{"celsius", domain.IntentToggleUnits, ""},
		{"recent", domain.IntentRecent, ""},

		// Help / quit
		{"help", domain.IntentHelp, ""},
		{"?", domain.IntentHelp, ""},
		{"q", domain.IntentQuit, ""},

		// Unknown
		{"flambé the cat", domain.IntentUnknown, "flambé the cat"},
		{"", domain.IntentUnknown, ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			intent, err := parser.Parse(ctx, tt.input, domain.Snapshot{})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if intent.Type != tt.wantType {
				t.Errorf("input=%q: got type %s, want %s", tt.input, intent.Type, tt.wantType)
			}
			if tt.wantPayload != "" && intent.Payload != tt.wantPayload {
				t.Errorf("input=%q: got payload %q, want %q", tt.input, intent.Payload, tt.wantPayload)
			}
		})
	}
}

func TestStartWhilePausedResumes(t *testing.T) {
	parser := NewKeywordParser(logger.New(logger.LevelOff, nil))

	intent, err := parser.Parse(context.Background(), "go", domain.Snapshot{Status: domain.StatusPaused})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if intent.Type != domain.IntentResume {
		t.Errorf("got %s, want resume", intent.Type)
	}
}

func TestNotifierFormats(t *testing.T) {
	var lines []string
	n := NewCLINotifier(logger.New(logger.LevelOff, nil), func(format string, a ...any) {
		lines = append(lines, format)
	})
	ctx := context.Background()
	if err := n.Notify(ctx, "Timer paused"); err != nil {
		t.Fatal(err)
	}
	if err := n.NotifyUrgent(ctx, "Flip the wings"); err != nil {
		t.Fatal(err)
	}
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
}
