package recipe

import (
	_ "embed"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/hammamikhairi/ottofry/internal/domain"
)

//go:embed foods.yaml
var builtinCatalog []byte

// catalogFile is the on-disk shape of a catalog.
type catalogFile struct {
	Foods []foodEntry `yaml:"foods"`
}

type foodEntry struct {
	ID           string             `yaml:"id"`
	Name         string             `yaml:"name"`
	Category     string             `yaml:"category"`
	CookTime     int                `yaml:"cook_time"`
	Temperature  int                `yaml:"temperature"`
	Icon         string             `yaml:"icon"`
	Actions      []actionEntry      `yaml:"actions"`
	Instructions []instructionEntry `yaml:"instructions"`
	Tip          string             `yaml:"tip"`
}

type actionEntry struct {
	AtMinute int    `yaml:"at_minute"`
	Type     string `yaml:"type"`
	Message  string `yaml:"message"`
}

type instructionEntry struct {
	Step  int    `yaml:"step"`
	Phase string `yaml:"phase"`
	Text  string `yaml:"text"`
}

// Parse decodes a YAML catalog. Foods that fail validation are skipped and
// reported in the returned problems; err is set only when the document
// itself cannot be decoded or no valid food remains.
func Parse(data []byte) (foods []*domain.FoodRecipe, problems []error, err error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, nil, fmt.Errorf("decoding catalog: %w", err)
	}

	seen := make(map[string]bool, len(file.Foods))
	for i, entry := range file.Foods {
		food, verr := entry.toDomain()
		if verr == nil && seen[food.ID] {
			verr = fmt.Errorf("duplicate id %q", food.ID)
		}
		if verr != nil {
			problems = append(problems, fmt.Errorf("food #%d (%s): %w", i+1, entry.ID, verr))
			continue
		}
		seen[food.ID] = true
		foods = append(foods, food)
	}

	if len(foods) == 0 {
		return nil, problems, errors.New("catalog contains no valid foods")
	}
	return foods, problems, nil
}

func (e foodEntry) toDomain() (*domain.FoodRecipe, error) {
	if e.ID == "" {
		return nil, errors.New("missing id")
	}
	if e.Name == "" {
		return nil, errors.New("missing name")
	}
	cat := domain.Category(e.Category)
	if !cat.Valid() {
		return nil, fmt.Errorf("unknown category %q", e.Category)
	}
	if e.CookTime <= 0 {
		return nil, fmt.Errorf("cook time must be positive, got %d", e.CookTime)
	}

	food := &domain.FoodRecipe{
		ID:              e.ID,
		Name:            e.Name,
		Category:        cat,
		CookTimeMinutes: e.CookTime,
		Temperature:     e.Temperature,
		Icon:            e.Icon,
		Tip:             e.Tip,
	}

	for _, a := range e.Actions {
		typ := domain.ActionType(a.Type)
		if !typ.Valid() {
			return nil, fmt.Errorf("unknown action type %q", a.Type)
		}
		if a.AtMinute < 0 || a.AtMinute >= e.CookTime {
			return nil, fmt.Errorf("action %s at minute %d outside 0..%d", a.Type, a.AtMinute, e.CookTime-1)
		}
		food.ScheduledActions = append(food.ScheduledActions, domain.ScheduledAction{
			AtMinute: a.AtMinute,
			Type:     typ,
			Message:  a.Message,
		})
	}

	for _, in := range e.Instructions {
		phase := domain.Phase(in.Phase)
		if !phase.Valid() {
			return nil, fmt.Errorf("unknown phase %q in step %d", in.Phase, in.Step)
		}
		food.Instructions = append(food.Instructions, domain.Instruction{
			Step:  in.Step,
			Text:  in.Text,
			Phase: phase,
		})
	}
	return food, nil
}
