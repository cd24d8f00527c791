package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/hammamikhairi/ottofry/internal/domain"
)

// Preference keys.
const (
	KeyVoiceEnabled = "voice_enabled"
	KeyShowCelsius  = "show_celsius"
	KeyRecentFoods  = "recent_foods"
)

// MaxRecentFoods bounds the recent-foods list.
const MaxRecentFoods = 5

// Preferences layers typed accessors over a PreferenceStore.
type Preferences struct {
	store domain.PreferenceStore
}

// NewPreferences wraps store.
func NewPreferences(store domain.PreferenceStore) *Preferences {
	return &Preferences{store: store}
}

// VoiceEnabled reports the voice flag; true when never set.
func (p *Preferences) VoiceEnabled(ctx context.Context) (bool, error) {
	return p.getBool(ctx, KeyVoiceEnabled, true)
}

// SetVoiceEnabled persists the voice flag.
func (p *Preferences) SetVoiceEnabled(ctx context.Context, enabled bool) error {
	return p.store.Set(ctx, KeyVoiceEnabled, strconv.FormatBool(enabled))
}

// ShowCelsius reports whether temperatures display in Celsius.
func (p *Preferences) ShowCelsius(ctx context.Context) (bool, error) {
	return p.getBool(ctx, KeyShowCelsius, false)
}

// SetShowCelsius persists the temperature unit.
func (p *Preferences) SetShowCelsius(ctx context.Context, celsius bool) error {
	return p.store.Set(ctx, KeyShowCelsius, strconv.FormatBool(celsius))
}

// RecentFoods returns recently selected food ids, newest first.
func (p *Preferences) RecentFoods(ctx context.Context) ([]string, error) {
	v, err := p.store.Get(ctx, KeyRecentFoods)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []string
	for _, id := range strings.Split(v, ",") {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out, nil
}

// PushRecent moves foodID to the front of the recent list.
func (p *Preferences) PushRecent(ctx context.Context, foodID string) error {
	recent, err := p.RecentFoods(ctx)
	if err != nil {
		return err
	}
	out := []string{foodID}
	for _, id := range recent {
		if id != foodID && len(out) < MaxRecentFoods {
			out = append(out, id)
		}
	}
	return p.store.Set(ctx, KeyRecentFoods, strings.Join(out, ","))
}

func (p *Preferences) getBool(ctx context.Context, key string, def bool) (bool, error) {
	v, err := p.store.Get(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		return def, nil
	}
	if err != nil {
		return def, err
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("preference %s=%q: %w", key, v, err)
	}
	return b, nil
}
