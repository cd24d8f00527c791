package domain

import (
	"sort"
	"time"
)

// SessionStatus tracks the lifecycle of a cooking session.
type SessionStatus int

const (
	StatusIdle SessionStatus = iota
	StatusRunning
	StatusPaused
	StatusComplete
)

// String returns a human-readable session status.
func (s SessionStatus) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusRunning:
		return "running"
	case StatusPaused:
		return "paused"
	case StatusComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// Active reports whether the cook is underway (running or paused).
func (s SessionStatus) Active() bool {
	return s == StatusRunning || s == StatusPaused
}

// AlertKind distinguishes the messages the dispatcher delivers.
type AlertKind int

const (
	AlertAction AlertKind = iota
	AlertWarning
	AlertAnnouncement
	AlertCompletion
)

// String returns a human-readable alert kind.
func (k AlertKind) String() string {
	switch k {
	case AlertAction:
		return "action"
	case AlertWarning:
		return "warning"
	case AlertAnnouncement:
		return "announcement"
	case AlertCompletion:
		return "completion"
	default:
		return "unknown"
	}
}

// Alert is the single visible mid-cook prompt. Only scheduled actions
// occupy the slot.
type Alert struct {
	Kind           AlertKind
	ActionType     ActionType
	Message        string
	Key            string
	FiredAtElapsed int // session elapsed seconds when it fired
	FiredAt        time.Time
}

// Session is the mutable record of one cooking attempt. It is owned by the
// engine; everyone else sees a Snapshot.
type Session struct {
	ID               string
	Status           SessionStatus
	Recipe           *FoodRecipe
	TotalSeconds     int
	RemainingSeconds int
	ElapsedSeconds   int
	FiredActionKeys  map[string]struct{}
	FiredWarningKeys map[string]struct{}
	CurrentAlert     *Alert
	SelectedAt       time.Time
	StartedAt        time.Time
	UpdatedAt        time.Time
}

// NewSession returns an idle session with zeroed counters and no recipe.
func NewSession() *Session {
	return &Session{
		Status:           StatusIdle,
		FiredActionKeys:  make(map[string]struct{}),
		FiredWarningKeys: make(map[string]struct{}),
	}
}

// Snapshot returns an immutable copy of the session.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		ID:               s.ID,
		Status:           s.Status,
		Recipe:           s.Recipe.Clone(),
		TotalSeconds:     s.TotalSeconds,
		RemainingSeconds: s.RemainingSeconds,
		ElapsedSeconds:   s.ElapsedSeconds,
		FiredActionKeys:  sortedKeys(s.FiredActionKeys),
		FiredWarningKeys: sortedKeys(s.FiredWarningKeys),
		SelectedAt:       s.SelectedAt,
		StartedAt:        s.StartedAt,
		UpdatedAt:        s.UpdatedAt,
	}
	if s.CurrentAlert != nil {
		a := *s.CurrentAlert
		snap.CurrentAlert = &a
	}
	return snap
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Snapshot is a read-only view of a session handed to the presentation.
type Snapshot struct {
	ID               string
	Status           SessionStatus
	Recipe           *FoodRecipe
	TotalSeconds     int
	RemainingSeconds int
	ElapsedSeconds   int
	FiredActionKeys  []string
	FiredWarningKeys []string
	CurrentAlert     *Alert
	SelectedAt       time.Time
	StartedAt        time.Time
	UpdatedAt        time.Time
}

// ElapsedMinutes returns the whole minutes elapsed so far.
func (s Snapshot) ElapsedMinutes() int {
	return s.ElapsedSeconds / 60
}

// Progress returns the completed fraction in [0, 1].
func (s Snapshot) Progress() float64 {
	if s.TotalSeconds <= 0 {
		return 0
	}
	return float64(s.TotalSeconds-s.RemainingSeconds) / float64(s.TotalSeconds)
}

// HasFired reports whether the given action key has been delivered.
func (s Snapshot) HasFired(key string) bool {
	i := sort.SearchStrings(s.FiredActionKeys, key)
	return i < len(s.FiredActionKeys) && s.FiredActionKeys[i] == key
}

// NextAction returns the earliest scheduled action that has not fired yet.
func (s Snapshot) NextAction() (ScheduledAction, bool) {
	if s.Recipe == nil {
		return ScheduledAction{}, false
	}
	for _, a := range s.Recipe.ScheduledActions {
		if !s.HasFired(a.Key()) {
			return a, true
		}
	}
	return ScheduledAction{}, false
}
