package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/hammamikhairi/ottofry/internal/alert"
	"github.com/hammamikhairi/ottofry/internal/conversation"
	"github.com/hammamikhairi/ottofry/internal/domain"
	"github.com/hammamikhairi/ottofry/internal/engine"
	"github.com/hammamikhairi/ottofry/internal/logger"
	"github.com/hammamikhairi/ottofry/internal/recipe"
	"github.com/hammamikhairi/ottofry/internal/storage"
)

// output is the subset of display.UI the REPL writes to.
type output interface {
	Println(a ...any)
	PrintChat(text string)
	PrintHeader(text string)
	PrintLine(text string)
	PrintHint(text string)
	PrintUrgent(text string)
}

type cliApp struct {
	engine   *engine.Engine
	catalog  *recipe.MemorySource
	alerts   *alert.Dispatcher
	prefs    *storage.Preferences
	parser   domain.IntentParser
	ui       output
	log      *logger.Logger
	prefetch func(ctx context.Context, texts ...string) // nil when TTS is off
	setUnits func(celsius bool)                         // nil without a status bar
	reloaded <-chan struct{}                            // nil without a catalog watcher

	celsius  bool
	lastList []*domain.FoodRecipe // numbered picks refer to the last list shown
}

// run reads input lines until quit, the input closes, or ctx ends.
// Engine snapshots are watched so the after-cook steps print on completion.
func (a *cliApp) run(ctx context.Context, input <-chan string) {
	updates, unsubscribe := a.engine.Subscribe(8)
	defer unsubscribe()

	if c, err := a.prefs.ShowCelsius(ctx); err == nil {
		a.applyUnits(c)
	} else {
		a.log.Warn("reading unit preference: %v", err)
	}

	a.ui.PrintChat("What are we frying? Type 'list' to browse, or 'help'.")
	last := a.engine.Snapshot().Status

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			if snap.Status == domain.StatusComplete && last != domain.StatusComplete {
				a.showPhase(snap.Recipe, domain.PhaseAfter, "Once it's out:")
			}
			last = snap.Status
		case <-a.reloaded:
			a.lastList = nil
			a.ui.PrintHint(fmt.Sprintf("Food list reloaded (%d foods).", a.catalog.Len()))
		case line, ok := <-input:
			if !ok {
				return
			}
			if !a.handleLine(ctx, line) {
				return
			}
		}
	}
}

// handleLine parses and dispatches one input line. Returns false on quit.
func (a *cliApp) handleLine(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return true
	}
	intent, err := a.parser.Parse(ctx, line, a.engine.Snapshot())
	if err != nil {
		a.log.Error("parsing input: %v", err)
		return true
	}
	a.log.Debug("intent: %s (payload=%q)", intent.Type, intent.Payload)
	return a.handleIntent(ctx, intent)
}

func (a *cliApp) handleIntent(ctx context.Context, intent *domain.Intent) bool {
	switch intent.Type {
	case domain.IntentHelp:
		a.showHelp()
	case domain.IntentListFoods:
		a.listFoods(ctx)
	case domain.IntentCategory:
		a.listCategory(ctx, intent.Payload)
	case domain.IntentSearch:
		a.search(ctx, intent.Payload)
	case domain.IntentSelectFood:
		a.selectFood(ctx, intent.Payload)
	case domain.IntentShowFood:
		a.showFood(ctx, intent.Payload)
	case domain.IntentStart:
		_, err := a.engine.Start(ctx)
		a.command("start", err)
	case domain.IntentPause:
		_, err := a.engine.Pause(ctx)
		a.command("pause", err)
	case domain.IntentResume:
		_, err := a.engine.Resume(ctx)
		a.command("resume", err)
	case domain.IntentReset:
		if _, err := a.engine.Reset(ctx); a.command("reset", err) {
			a.ui.PrintChat("Timer reset.")
		}
	case domain.IntentDismissAlert:
		_, err := a.engine.DismissAlert(ctx)
		a.command("dismiss", err)
	case domain.IntentStatus:
		a.ui.PrintChat(alert.LineStatus(a.engine.Snapshot()))
	case domain.IntentVoiceOn, domain.IntentVoiceOff:
		a.setVoice(ctx, intent.Type == domain.IntentVoiceOn)
	case domain.IntentTestVoice:
		if !a.alerts.TestVoice(ctx) {
			a.ui.PrintHint("Voice is off. Type 'voice on' first.")
		}
	case domain.IntentToggleUnits:
		a.toggleUnits(ctx)
	case domain.IntentRecent:
		a.showRecent(ctx)
	case domain.IntentQuit:
		a.ui.PrintChat("Bye! Unplug the fryer.")
		return false
	default:
		a.ui.PrintHint(fmt.Sprintf("Didn't catch %q. Type 'help' for commands.", intent.Payload))
	}
	return true
}

// command reports a timer command failure in plain words. Returns true on success.
func (a *cliApp) command(name string, err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, domain.ErrNoRecipeSelected):
		a.ui.PrintHint("Pick a food first. Type 'list' to browse.")
	case errors.Is(err, domain.ErrInvalidTransition):
		a.ui.PrintHint(fmt.Sprintf("Can't %s while %s.", name, a.engine.Snapshot().Status))
	default:
		a.log.Error("%s: %v", name, err)
		a.ui.PrintUrgent(fmt.Sprintf("Error: %v", err))
	}
	return false
}

// ── Browsing ─────────────────────────────────────────────────────

func (a *cliApp) listFoods(ctx context.Context) {
	foods, err := a.catalog.List(ctx)
	if err != nil {
		a.ui.PrintUrgent(fmt.Sprintf("Error loading foods: %v", err))
		return
	}
	a.printList("All foods:", foods)
}

func (a *cliApp) listCategory(ctx context.Context, payload string) {
	cat := conversation.NormalizeCategory(payload)
	if !cat.Valid() {
		var names []string
		for _, c := range a.catalog.Categories() {
			names = append(names, string(c))
		}
		a.ui.PrintHint(fmt.Sprintf("Unknown category %q. Try: %s.", payload, strings.Join(names, ", ")))
		return
	}
	foods, err := a.catalog.ByCategory(ctx, cat)
	if err != nil {
		a.ui.PrintUrgent(fmt.Sprintf("Error: %v", err))
		return
	}
	a.printList(cat.Label()+":", foods)
}

func (a *cliApp) search(ctx context.Context, query string) {
	foods, err := a.catalog.Search(ctx, query)
	if err != nil {
		a.ui.PrintUrgent(fmt.Sprintf("Error: %v", err))
		return
	}
	if len(foods) == 0 {
		a.ui.PrintHint(fmt.Sprintf("No foods match %q.", query))
		return
	}
	a.printList(fmt.Sprintf("Matches for %q:", query), foods)
}

func (a *cliApp) printList(title string, foods []*domain.FoodRecipe) {
	a.lastList = foods
	a.ui.PrintHeader(title)
	for i, f := range foods {
		a.ui.PrintLine(fmt.Sprintf("[%2d] %s %s", i+1, f.Icon, f.Name))
		a.ui.PrintHint(fmt.Sprintf("     %s · %s", alert.FormatMinutes(f.CookTimeMinutes), alert.FormatTemperature(f.Temperature, a.celsius)))
	}
	a.ui.PrintChat("Pick one by number or name.")
}

// resolveFood maps a list number, id, or unambiguous name to a food.
func (a *cliApp) resolveFood(ctx context.Context, payload string) (*domain.FoodRecipe, error) {
	if n, err := strconv.Atoi(payload); err == nil {
		list := a.lastList
		if list == nil {
			if list, err = a.catalog.List(ctx); err != nil {
				return nil, err
			}
		}
		if n < 1 || n > len(list) {
			return nil, fmt.Errorf("no food numbered %d: %w", n, domain.ErrNotFound)
		}
		return list[n-1], nil
	}

	if f, err := a.catalog.Get(ctx, strings.ToLower(payload)); err == nil {
		return f, nil
	}

	matches, err := a.catalog.Search(ctx, payload)
	if err != nil {
		return nil, err
	}
	for _, m := range matches {
		if strings.EqualFold(m.Name, payload) {
			return m, nil
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%q: %w", payload, domain.ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		a.printList(fmt.Sprintf("Which one did you mean by %q?", payload), matches)
		return nil, nil
	}
}

func (a *cliApp) selectFood(ctx context.Context, payload string) {
	f, err := a.resolveFood(ctx, payload)
	if err != nil {
		a.ui.PrintHint(fmt.Sprintf("Couldn't find %q. Try 'search %s'.", payload, payload))
		return
	}
	if f == nil {
		return
	}

	snap, err := a.engine.SelectFood(ctx, f.ID)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			a.ui.PrintHint(fmt.Sprintf("A cook is %s. Type 'reset' first.", snap.Status))
			return
		}
		a.ui.PrintUrgent(fmt.Sprintf("Error: %v", err))
		return
	}

	a.ui.PrintChat(alert.LineSelected(f, a.celsius))
	a.showPhase(f, domain.PhaseBefore, "Before you start:")
	if f.Tip != "" {
		a.ui.PrintHint("tip: " + f.Tip)
	}

	if a.prefetch != nil {
		lines := []string{
			alert.LineStart(f.Name, f.CookTimeMinutes, f.Temperature),
			alert.LineComplete(f.Name),
		}
		for _, act := range f.ScheduledActions {
			lines = append(lines, act.Message)
		}
		a.prefetch(ctx, lines...)
	}
}

func (a *cliApp) showFood(ctx context.Context, payload string) {
	f, err := a.resolveFood(ctx, payload)
	if err != nil {
		a.ui.PrintHint(fmt.Sprintf("Couldn't find %q.", payload))
		return
	}
	if f == nil {
		return
	}

	a.ui.PrintHeader(fmt.Sprintf("=== %s %s ===", f.Icon, f.Name))
	a.ui.PrintLine(fmt.Sprintf("%s at %s (%s)", alert.FormatMinutes(f.CookTimeMinutes), alert.FormatTemperature(f.Temperature, a.celsius), f.Category.Label()))
	for _, act := range f.ScheduledActions {
		a.ui.PrintHint(fmt.Sprintf("  @ %s: %s %s", alert.FormatMinutes(act.AtMinute), act.Type.Label(), act.Message))
	}
	a.showPhase(f, domain.PhaseBefore, "Before:")
	a.showPhase(f, domain.PhaseDuring, "During:")
	a.showPhase(f, domain.PhaseAfter, "After:")
	if f.Tip != "" {
		a.ui.PrintHint("tip: " + f.Tip)
	}
}

func (a *cliApp) showPhase(f *domain.FoodRecipe, p domain.Phase, title string) {
	if f == nil {
		return
	}
	steps := f.InstructionsFor(p)
	if len(steps) == 0 {
		return
	}
	a.ui.PrintHeader(title)
	for _, s := range steps {
		a.ui.PrintLine(fmt.Sprintf("%d. %s", s.Step, s.Text))
	}
}

// ── Preferences ──────────────────────────────────────────────────

func (a *cliApp) setVoice(ctx context.Context, on bool) {
	if err := a.alerts.SetVoiceEnabled(ctx, on); err != nil {
		a.log.Warn("saving voice preference: %v", err)
		a.ui.PrintHint("Voice changed for this run, but the setting couldn't be saved.")
	}
	if on {
		a.ui.PrintChat(alert.LineVoiceEnabled())
	} else {
		a.ui.PrintChat(alert.LineVoiceDisabled())
	}
}

func (a *cliApp) toggleUnits(ctx context.Context) {
	a.applyUnits(!a.celsius)
	if err := a.prefs.SetShowCelsius(ctx, a.celsius); err != nil {
		a.log.Warn("saving unit preference: %v", err)
	}
	unit := "Fahrenheit"
	if a.celsius {
		unit = "Celsius"
	}
	a.ui.PrintChat("Showing temperatures in " + unit + ".")
}

func (a *cliApp) applyUnits(celsius bool) {
	a.celsius = celsius
	if a.setUnits != nil {
		a.setUnits(celsius)
	}
}

func (a *cliApp) showRecent(ctx context.Context) {
	ids, err := a.prefs.RecentFoods(ctx)
	if err != nil {
		a.ui.PrintUrgent(fmt.Sprintf("Error: %v", err))
		return
	}
	var foods []*domain.FoodRecipe
	for _, id := range ids {
		if f, err := a.catalog.Get(ctx, id); err == nil {
			foods = append(foods, f)
		}
	}
	if len(foods) == 0 {
		a.ui.PrintHint("Nothing cooked yet.")
		return
	}
	a.printList("Recently selected:", foods)
}

func (a *cliApp) showHelp() {
	a.ui.PrintHeader("Commands:")
	for _, l := range []string{
		"list | <category> | search <text>   browse foods",
		"<number> | select <name>            pick a food",
		"show <name>                         instructions and schedule",
		"start | pause | resume | reset      run the timer",
		"ok                                  dismiss the current alert",
		"status                              time left and next action",
		"voice on | voice off | test voice   spoken alerts",
		"units                               toggle °F / °C",
		"recent                              recently picked foods",
		"quit                                exit",
	} {
		a.ui.PrintLine(l)
	}
}
