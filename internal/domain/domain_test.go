package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneIsDeep(t *testing.T) {
	orig := &FoodRecipe{
		ID:               "wings",
		CookTimeMinutes:  24,
		ScheduledActions: []ScheduledAction{{AtMinute: 12, Type: ActionFlip, Message: "Flip"}},
		Instructions:     []Instruction{{Step: 1, Text: "Dry", Phase: PhaseBefore}},
	}
	c := orig.Clone()
	c.ScheduledActions[0].Message = "changed"
	c.Instructions[0].Text = "changed"

	assert.Equal(t, "Flip", orig.ScheduledActions[0].Message)
	assert.Equal(t, "Dry", orig.Instructions[0].Text)
	assert.Nil(t, (*FoodRecipe)(nil).Clone())
}

func TestScheduledActionKey(t *testing.T) {
	a := ScheduledAction{AtMinute: 0, Type: ActionFlip}
	assert.Equal(t, "0-flip", a.Key())
}

func TestSnapshotHelpers(t *testing.T) {
	s := NewSession()
	s.Recipe = &FoodRecipe{
		CookTimeMinutes: 10,
		ScheduledActions: []ScheduledAction{
			{AtMinute: 4, Type: ActionCheck},
			{AtMinute: 7, Type: ActionFlip},
		},
	}
	s.TotalSeconds = 600
	s.RemainingSeconds = 150
	s.ElapsedSeconds = 450
	s.FiredActionKeys["4-check"] = struct{}{}

	snap := s.Snapshot()
	assert.Equal(t, 7, snap.ElapsedMinutes())
	assert.InDelta(t, 0.75, snap.Progress(), 1e-9)
	assert.True(t, snap.HasFired("4-check"))
	assert.False(t, snap.HasFired("7-flip"))

	next, ok := snap.NextAction()
	require.True(t, ok)
	assert.Equal(t, "7-flip", next.Key())

	// Mutating the snapshot must not leak into the session.
	snap.Recipe.ScheduledActions[0].AtMinute = 99
	assert.Equal(t, 4, s.Recipe.ScheduledActions[0].AtMinute)
}

func TestProgressWithoutRecipe(t *testing.T) {
	assert.Zero(t, NewSession().Snapshot().Progress())
}

func TestFahrenheitToCelsius(t *testing.T) {
	assert.Equal(t, 204, FahrenheitToCelsius(400))
	assert.Equal(t, 191, FahrenheitToCelsius(375))
	assert.Equal(t, 0, FahrenheitToCelsius(32))
	assert.Equal(t, -18, FahrenheitToCelsius(0))
}

func TestIntentRoundTrip(t *testing.T) {
	assert.Equal(t, IntentPause, IntentFromString("pause"))
	assert.Equal(t, "dismiss_alert", IntentDismissAlert.String())
	assert.Equal(t, IntentUnknown, IntentFromString("juggle"))
}
