// Package domain defines the core types and interfaces for the air-fryer
// cooking assistant. All other packages depend on domain; domain depends
// on nothing.
package domain

import "fmt"

// Category groups foods in the catalog.
type Category string

const (
	CategoryProtein   Category = "protein"
	CategoryVegetable Category = "vegetable"
	CategoryFrozen    Category = "frozen"
	CategorySnack     Category = "snack"
)

// Label returns the plural display name of the category.
func (c Category) Label() string {
	switch c {
	case CategoryProtein:
		return "Proteins"
	case CategoryVegetable:
		return "Vegetables"
	case CategoryFrozen:
		return "Frozen Foods"
	case CategorySnack:
		return "Snacks"
	default:
		return string(c)
	}
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryProtein, CategoryVegetable, CategoryFrozen, CategorySnack:
		return true
	}
	return false
}

// ActionType is the kind of mid-cook action a recipe schedules.
type ActionType string

const (
	ActionFlip  ActionType = "flip"
	ActionShake ActionType = "shake"
	ActionCheck ActionType = "check"
	ActionSpray ActionType = "spray"
)

// Valid reports whether a is a known action type.
func (a ActionType) Valid() bool {
	switch a {
	case ActionFlip, ActionShake, ActionCheck, ActionSpray:
		return true
	}
	return false
}

// Label returns the upper-case banner label shown with an alert.
func (a ActionType) Label() string {
	switch a {
	case ActionFlip:
		return "FLIP"
	case ActionShake:
		return "SHAKE"
	case ActionCheck:
		return "CHECK"
	case ActionSpray:
		return "SPRAY"
	default:
		return "ACTION"
	}
}

// Phase says when an instruction applies relative to the cook.
type Phase string

const (
	PhaseBefore Phase = "before"
	PhaseDuring Phase = "during"
	PhaseAfter  Phase = "after"
)

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	switch p {
	case PhaseBefore, PhaseDuring, PhaseAfter:
		return true
	}
	return false
}

// FoodRecipe is one catalog entry. Treat it as immutable once loaded; the
// engine works on a Clone so catalog reloads never reach a running cook.
type FoodRecipe struct {
	ID               string
	Name             string
	Category         Category
	CookTimeMinutes  int
	Temperature      int // Fahrenheit
	Icon             string
	ScheduledActions []ScheduledAction
	Instructions     []Instruction
	Tip              string
}

// ScheduledAction is an event due at a given elapsed minute.
type ScheduledAction struct {
	AtMinute int
	Type     ActionType
	Message  string
}

// Key identifies the action within a session: "{atMinute}-{type}".
func (a ScheduledAction) Key() string {
	return fmt.Sprintf("%d-%s", a.AtMinute, a.Type)
}

// Instruction is a single preparation or serving step.
type Instruction struct {
	Step  int
	Text  string
	Phase Phase
}

// CookTimeSeconds returns the total cook duration in seconds.
func (r *FoodRecipe) CookTimeSeconds() int {
	return r.CookTimeMinutes * 60
}

// InstructionsFor returns the instructions of a single phase, in order.
func (r *FoodRecipe) InstructionsFor(p Phase) []Instruction {
	var out []Instruction
	for _, in := range r.Instructions {
		if in.Phase == p {
			out = append(out, in)
		}
	}
	return out
}

// Clone returns a deep copy of the recipe.
func (r *FoodRecipe) Clone() *FoodRecipe {
	if r == nil {
		return nil
	}
	c := *r
	c.ScheduledActions = append([]ScheduledAction(nil), r.ScheduledActions...)
	c.Instructions = append([]Instruction(nil), r.Instructions...)
	return &c
}

// FahrenheitToCelsius converts a recipe temperature for display, rounded
// to the nearest degree.
func FahrenheitToCelsius(f int) int {
	c := float64(f-32) * 5 / 9
	if c < 0 {
		return int(c - 0.5)
	}
	return int(c + 0.5)
}
