package domain

// IntentType classifies what the user wants to do.
type IntentType int

const (
	IntentUnknown IntentType = iota
	IntentListFoods
	IntentCategory // payload: category key
	IntentSearch   // payload: query
	IntentSelectFood
	IntentShowFood
	IntentStart
	IntentPause
	IntentResume
	IntentReset
	IntentDismissAlert
	IntentStatus
	IntentVoiceOn
	IntentVoiceOff
	IntentTestVoice
	IntentToggleUnits
	IntentRecent
	IntentHelp
	IntentQuit
)

// String returns a human-readable intent type.
func (i IntentType) String() string {
	for name, t := range intentNames {
		if t == i {
			return name
		}
	}
	return "unknown"
}

// Intent represents a parsed user action.
type Intent struct {
	Type    IntentType
	Payload string // optional context, e.g. food id or list number for select
}

// intentNames maps snake_case names to IntentType values.
var intentNames = map[string]IntentType{
	"list_foods":    IntentListFoods,
	"category":      IntentCategory,
	"search":        IntentSearch,
	"select_food":   IntentSelectFood,
	"show_food":     IntentShowFood,
	"start":         IntentStart,
	"pause":         IntentPause,
	"resume":        IntentResume,
	"reset":         IntentReset,
	"dismiss_alert": IntentDismissAlert,
	"status":        IntentStatus,
	"voice_on":      IntentVoiceOn,
	"voice_off":     IntentVoiceOff,
	"test_voice":    IntentTestVoice,
	"toggle_units":  IntentToggleUnits,
	"recent":        IntentRecent,
	"help":          IntentHelp,
	"quit":          IntentQuit,
	"unknown":       IntentUnknown,
}

// IntentFromString converts a snake_case intent name to an IntentType.
// Returns IntentUnknown for unrecognized names.
func IntentFromString(name string) IntentType {
	if t, ok := intentNames[name]; ok {
		return t
	}
	return IntentUnknown
}
