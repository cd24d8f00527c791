// Package conversation provides intent parsing and user notification implementations.
package conversation

import (
	"context"
	"regexp"
	"strings"

	"github.com/hammamikhairi/ottofry/internal/domain"
	"github.com/hammamikhairi/ottofry/internal/logger"
)

// Compile-time interface check.
var _ domain.IntentParser = (*KeywordParser)(nil)

// KeywordParser matches user input to intents using keywords and simple patterns.
type KeywordParser struct {
	log      *logger.Logger
	patterns []patternRule
}

// patternRule maps a regex to an intent. When payload is true the first
// capture group (or the whole input) is carried along.
type patternRule struct {
	regex   *regexp.Regexp
	intent  domain.IntentType
	payload bool
}

// NewKeywordParser creates a keyword-based intent parser.
func NewKeywordParser(log *logger.Logger) *KeywordParser {
	p := &KeywordParser{log: log}
	p.patterns = []patternRule{
		{regex: regexp.MustCompile(`(?i)^(list|foods|menu|browse|all)$`), intent: domain.IntentListFoods},
		{regex: regexp.MustCompile(`(?i)^(?:category|cat)\s+(\S+)$`), intent: domain.IntentCategory, payload: true},
		{regex: regexp.MustCompile(`(?i)^(proteins?|vegetables?|veg|veggies|frozen|snacks?)$`), intent: domain.IntentCategory, payload: true},
		{regex: regexp.MustCompile(`(?i)^(?:search|find|/)\s*(.+)$`), intent: domain.IntentSearch, payload: true},
		{regex: regexp.MustCompile(`(?i)^(?:select|pick|choose|cook)\s+(.+)$`), intent: domain.IntentSelectFood, payload: true},
		{regex: regexp.MustCompile(`(?i)^(?:show|info|details)\s+(.+)$`), intent: domain.IntentShowFood, payload: true},
		{regex: regexp.MustCompile(`(?i)^(start|go|begin|let'?s go)$`), intent: domain.IntentStart},
		{regex: regexp.MustCompile(`(?i)^(pause|hold|wait|brb|p)$`), intent: domain.IntentPause},
		{regex: regexp.MustCompile(`(?i)^(resume|continue|unpause|back)$`), intent: domain.IntentResume},
		{regex: regexp.MustCompile(`(?i)^(reset|cancel|restart|clear)$`), intent: domain.IntentReset},
		{regex: regexp.MustCompile(`(?i)^(dismiss|ok|okay|got it|done|d)$`), intent: domain.IntentDismissAlert},
		{regex: regexp.MustCompile(`(?i)^(status|time|left|where|s)$`), intent: domain.IntentStatus},
		{regex: regexp.MustCompile(`(?i)^(test voice|voice test|say something)$`), intent: domain.IntentTestVoice},
		{regex: regexp.MustCompile(`(?i)^(voice on|unmute|speak)$`), intent: domain.IntentVoiceOn},
		{regex: regexp.MustCompile(`(?i)^(voice off|mute|quiet|shh+)$`), intent: domain.IntentVoiceOff},
		{regex: regexp.MustCompile(`(?i)^(units|celsius|fahrenheit|c|f)$`), intent: domain.IntentToggleUnits},
		{regex: regexp.MustCompile(`(?i)^(recent|history)$`), intent: domain.IntentRecent},
		{regex: regexp.MustCompile(`(?i)^(help|h|\?)$`), intent: domain.IntentHelp},
		{regex: regexp.MustCompile(`(?i)^(quit|exit|q)$`), intent: domain.IntentQuit},
	}
	return p
}

// Parse converts user input into an intent. The snapshot lets a few
// words mean the obvious thing for the current state: "go" on a paused
// timer resumes it.
func (p *KeywordParser) Parse(ctx context.Context, input string, snap domain.Snapshot) (*domain.Intent, error) {
	trimmed := strings.Join(strings.Fields(input), " ")
	if trimmed == "" {
		return &domain.Intent{Type: domain.IntentUnknown}, nil
	}

	p.log.Debug("parsing input: %q", trimmed)

	// Select by list number ("1", "12").
	if len(trimmed) <= 2 && isDigits(trimmed) {
		return &domain.Intent{Type: domain.IntentSelectFood, Payload: trimmed}, nil
	}

	for _, rule := range p.patterns {
		m := rule.regex.FindStringSubmatch(trimmed)
		if m == nil {
			continue
		}
		intent := &domain.Intent{Type: rule.intent}
		if rule.payload {
			intent.Payload = strings.TrimSpace(m[len(m)-1])
		}
		if intent.Type == domain.IntentCategory {
			intent.Payload = string(NormalizeCategory(intent.Payload))
		}
		if intent.Type == domain.IntentStart && snap.Status == domain.StatusPaused {
			intent.Type = domain.IntentResume
		}
		p.log.Debug("matched intent: %s", intent.Type)
		return intent, nil
	}

	p.log.Debug("no match, returning unknown intent")
	return &domain.Intent{Type: domain.IntentUnknown, Payload: trimmed}, nil
}

// NormalizeCategory maps loose spellings ("veggies", "snacks") to a
// catalog category. Unknown words pass through lowercased.
func NormalizeCategory(s string) domain.Category {
	switch w := strings.ToLower(strings.TrimSpace(s)); w {
	case "protein", "proteins", "meat":
		return domain.CategoryProtein
	case "vegetable", "vegetables", "veg", "veggies":
		return domain.CategoryVegetable
	case "frozen":
		return domain.CategoryFrozen
	case "snack", "snacks":
		return domain.CategorySnack
	default:
		return domain.Category(w)
	}
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}
