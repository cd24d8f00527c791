package display

import (
	"context"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/ottofry/internal/domain"
)

func baconSnapshot(status domain.SessionStatus) domain.Snapshot {
	return domain.Snapshot{
		Status: status,
		Recipe: &domain.FoodRecipe{
			ID:               "bacon",
			Name:             "Bacon",
			CookTimeMinutes:  10,
			Temperature:      400,
			ScheduledActions: []domain.ScheduledAction{{AtMinute: 5, Type: domain.ActionFlip, Message: "Flip the bacon"}},
		},
		TotalSeconds:     600,
		RemainingSeconds: 450,
		ElapsedSeconds:   150,
	}
}

func newTestModel(t *testing.T) (model, chan domain.Snapshot, chan string) {
	t.Helper()
	updates := make(chan domain.Snapshot, 1)
	input := make(chan string, 1)
	var celsius atomic.Bool
	m := newModel(updates, &celsius, input, make(chan struct{}))
	next, _ := m.Update(tea.WindowSizeMsg{Width: 200, Height: 40})
	return next.(model), updates, input
}

func TestViewWithoutSelection(t *testing.T) {
	m, _, _ := newTestModel(t)
	view := m.View()
	assert.Contains(t, view, promptText)
	assert.NotContains(t, view, "│")
}

func TestViewRunningSession(t *testing.T) {
	m, _, _ := newTestModel(t)
	next, cmd := m.Update(snapshotMsg{snap: baconSnapshot(domain.StatusRunning)})
	require.NotNil(t, cmd)

	view := next.(model).View()
	assert.Contains(t, view, "Bacon")
	assert.Contains(t, view, "07:30")
	assert.Contains(t, view, "400°F")
	assert.Contains(t, view, "next: flip @ 5 min")
}

func TestViewCelsiusAndStates(t *testing.T) {
	m, _, _ := newTestModel(t)
	m.celsius.Store(true)

	next, _ := m.Update(snapshotMsg{snap: baconSnapshot(domain.StatusPaused)})
	view := next.(model).View()
	assert.Contains(t, view, "204°C")
	assert.Contains(t, view, "paused")

	done := baconSnapshot(domain.StatusComplete)
	done.RemainingSeconds, done.ElapsedSeconds = 0, 600
	next, _ = m.Update(snapshotMsg{snap: done})
	assert.Contains(t, next.(model).View(), "DONE!")
}

func TestViewShowsCurrentAlert(t *testing.T) {
	m, _, _ := newTestModel(t)
	snap := baconSnapshot(domain.StatusRunning)
	snap.CurrentAlert = &domain.Alert{Kind: domain.AlertAction, ActionType: domain.ActionFlip, Message: "Flip the bacon", Key: "5-flip"}

	next, _ := m.Update(snapshotMsg{snap: snap})
	view := next.(model).View()
	assert.Contains(t, view, "FLIP")
	assert.Contains(t, view, "Flip the bacon")
	assert.Less(t, strings.Index(view, "Flip the bacon"), strings.Index(view, promptText))
}

func TestClosedStreamKeepsLastSnapshot(t *testing.T) {
	m, _, _ := newTestModel(t)
	next, _ := m.Update(snapshotMsg{snap: baconSnapshot(domain.StatusRunning)})
	next, cmd := next.(model).Update(snapshotMsg{closed: true})
	assert.Nil(t, cmd)
	assert.Contains(t, next.(model).View(), "Bacon")
}

func TestEnterSendsInput(t *testing.T) {
	m, _, input := newTestModel(t)
	m.input.SetValue("start")

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, "start", <-input)
	assert.Empty(t, next.(model).input.Value())
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "OttoFry", titleFor(domain.Snapshot{}))
	assert.Equal(t, "OttoFry · Bacon 07:30", titleFor(baconSnapshot(domain.StatusRunning)))
}

func TestRenderBanner(t *testing.T) {
	out := renderBanner(120)
	assert.Contains(t, out, tagline)
	assert.GreaterOrEqual(t, strings.Count(out, "\n"), 6)
}

func TestPrintMsgIsPrintedAboveView(t *testing.T) {
	m, _, _ := newTestModel(t)
	next, cmd := m.Update(printMsg{text: "Flip the wings"})
	require.NotNil(t, cmd)
	assert.Equal(t, m.View(), next.(model).View())
}

func TestPrintAfterProgramStopsDoesNotBlock(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	u := NewUI()
	m := newModel(nil, &u.celsius, u.inputCh, u.readyCh)
	// A program whose context has ended never reads its message queue.
	u.program.Store(tea.NewProgram(m, tea.WithContext(ctx), tea.WithInput(nil), tea.WithOutput(io.Discard)))

	done := make(chan struct{})
	go func() {
		u.Printf("%s remaining", "1 minute")
		u.Println("Timer paused")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("printing blocked on a stopped program")
	}
}
