package domain

import "context"

// RecipeSource provides the food catalog. Implementations can be embedded,
// file-based, or anything else; they never mutate a returned recipe.
type RecipeSource interface {
	List(ctx context.Context) ([]*FoodRecipe, error)
	ByCategory(ctx context.Context, category Category) ([]*FoodRecipe, error)
	Search(ctx context.Context, query string) ([]*FoodRecipe, error)
	Get(ctx context.Context, id string) (*FoodRecipe, error)
}

// PreferenceStore is the key-value store behind user preferences.
// Get returns ErrNotFound for a missing key.
type PreferenceStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

// IntentParser converts raw user input into structured intents.
type IntentParser interface {
	Parse(ctx context.Context, input string, snap Snapshot) (*Intent, error)
}

// Notifier delivers text messages to the user. Implementations can write
// to stdout, a terminal UI, or push notifications.
type Notifier interface {
	Notify(ctx context.Context, message string) error
	NotifyUrgent(ctx context.Context, message string) error
}

// VoiceSink speaks text. The core decides whether and what to say; the
// sink decides how. Speak reports whether delivery was attempted, which
// is false whenever the sink is disabled.
type VoiceSink interface {
	SetEnabled(enabled bool)
	Enabled() bool
	Speak(ctx context.Context, text string) (bool, error)
}
