package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/ottofry/internal/logger"
)

func newTestPreferences() *Preferences {
	return NewPreferences(NewMemoryStore(logger.New(logger.LevelOff, nil)))
}

func TestVoiceEnabledDefaultsToTrue(t *testing.T) {
	p := newTestPreferences()
	ctx := context.Background()

	on, err := p.VoiceEnabled(ctx)
	require.NoError(t, err)
	assert.True(t, on)

	require.NoError(t, p.SetVoiceEnabled(ctx, false))
	on, err = p.VoiceEnabled(ctx)
	require.NoError(t, err)
	assert.False(t, on)
}

func TestShowCelsius(t *testing.T) {
	p := newTestPreferences()
	ctx := context.Background()

	c, err := p.ShowCelsius(ctx)
	require.NoError(t, err)
	assert.False(t, c)

	require.NoError(t, p.SetShowCelsius(ctx, true))
	c, err = p.ShowCelsius(ctx)
	require.NoError(t, err)
	assert.True(t, c)
}

func TestCorruptBoolFallsBackToDefault(t *testing.T) {
	store := NewMemoryStore(logger.New(logger.LevelOff, nil))
	p := NewPreferences(store)
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, KeyVoiceEnabled, "maybe"))

	on, err := p.VoiceEnabled(ctx)
	assert.Error(t, err)
	assert.True(t, on)
}

func TestPushRecent(t *testing.T) {
	p := newTestPreferences()
	ctx := context.Background()

	for _, id := range []string{"bacon", "salmon", "steak", "bacon", "shrimp", "tater-tots", "samosas"} {
		require.NoError(t, p.PushRecent(ctx, id))
	}

	recent, err := p.RecentFoods(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"samosas", "tater-tots", "shrimp", "bacon", "steak"}, recent)
}

func TestRecentFoodsEmpty(t *testing.T) {
	recent, err := newTestPreferences().RecentFoods(context.Background())
	require.NoError(t, err)
	assert.Empty(t, recent)
}
