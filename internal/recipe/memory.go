// Package recipe provides the air fryer food catalog.
package recipe

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/hammamikhairi/ottofry/internal/domain"
	"github.com/hammamikhairi/ottofry/internal/logger"
	"github.com/hammamikhairi/ottofry/internal/metrics"
)

// Compile-time interface check.
var _ domain.RecipeSource = (*MemorySource)(nil)

// MemorySource holds the catalog in memory in its declared order. Safe for
// concurrent reads; Replace swaps the whole set atomically.
type MemorySource struct {
	mu    sync.RWMutex
	foods []*domain.FoodRecipe
	byID  map[string]*domain.FoodRecipe
	log   *logger.Logger
}

// NewMemorySource creates a source preloaded with the built-in catalog.
func NewMemorySource(log *logger.Logger) *MemorySource {
	src := &MemorySource{log: log}
	if err := src.Load(builtinCatalog); err != nil {
		panic(fmt.Sprintf("built-in catalog: %v", err))
	}
	return src
}

// NewFileSource creates a source from a catalog file on disk.
func NewFileSource(path string, log *logger.Logger) (*MemorySource, error) {
	src := &MemorySource{log: log}
	if err := src.LoadFile(path); err != nil {
		return nil, err
	}
	return src, nil
}

// LoadFile replaces the catalog with the contents of path.
func (s *MemorySource) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading catalog %s: %w", path, err)
	}
	if err := s.Load(data); err != nil {
		return fmt.Errorf("catalog %s: %w", path, err)
	}
	return nil
}

// Load parses data and replaces the catalog. Invalid foods are logged and
// skipped; on error the previous catalog stays in place.
func (s *MemorySource) Load(data []byte) error {
	foods, problems, err := Parse(data)
	for _, p := range problems {
		s.log.Warn("skipping catalog entry: %v", p)
	}
	if err != nil {
		return err
	}
	s.Replace(foods)
	return nil
}

// Replace swaps in a new set of foods.
func (s *MemorySource) Replace(foods []*domain.FoodRecipe) {
	byID := make(map[string]*domain.FoodRecipe, len(foods))
	for _, f := range foods {
		byID[f.ID] = f
	}

	s.mu.Lock()
	s.foods = foods
	s.byID = byID
	s.mu.Unlock()

	metrics.CatalogFoods.Set(float64(len(foods)))
	s.log.Debug("catalog loaded, count=%d", len(foods))
}

// List returns every food in catalog order.
func (s *MemorySource) List(ctx context.Context) ([]*domain.FoodRecipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*domain.FoodRecipe(nil), s.foods...), nil
}

// ByCategory returns the foods of one category. An empty category or "all"
// returns everything.
func (s *MemorySource) ByCategory(ctx context.Context, category domain.Category) ([]*domain.FoodRecipe, error) {
	if category == "" || category == "all" {
		return s.List(ctx)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.FoodRecipe
	for _, f := range s.foods {
		if f.Category == category {
			out = append(out, f)
		}
	}
	return out, nil
}

// Search returns foods whose name or category contains the query, ignoring
// case. A blank query returns everything.
func (s *MemorySource) Search(ctx context.Context, query string) ([]*domain.FoodRecipe, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return s.List(ctx)
	}
	s.log.Debug("searching catalog for: %s", q)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.FoodRecipe
	for _, f := range s.foods {
		if matches(f, q) {
			out = append(out, f)
		}
	}
	return out, nil
}

func matches(f *domain.FoodRecipe, query string) bool {
	return strings.Contains(strings.ToLower(f.Name), query) ||
		strings.Contains(strings.ToLower(string(f.Category)), query)
}

// Get returns a food by id.
func (s *MemorySource) Get(ctx context.Context, id string) (*domain.FoodRecipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.byID[id]
	if !ok {
		s.log.Debug("food not found: %s", id)
		return nil, fmt.Errorf("food %q: %w", id, domain.ErrNotFound)
	}
	return f, nil
}

// Categories returns the categories present in the catalog, in first-seen
// order.
func (s *MemorySource) Categories() []domain.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Category
	seen := make(map[domain.Category]bool)
	for _, f := range s.foods {
		if !seen[f.Category] {
			seen[f.Category] = true
			out = append(out, f.Category)
		}
	}
	return out
}

// Len returns the number of foods.
func (s *MemorySource) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.foods)
}
