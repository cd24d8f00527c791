// Package display provides the terminal UI using Bubble Tea.
//
// The [UI] type keeps a status bar for the cooking session and an input
// prompt at the bottom of the terminal. The bar is redrawn from engine
// snapshots pushed over a channel. All other output goes through the event
// loop as print messages, so concurrent writes never garble the display and
// never block once the loop has exited.
package display

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hammamikhairi/ottofry/internal/alert"
	"github.com/hammamikhairi/ottofry/internal/domain"
)

// ── Styles ───────────────────────────────────────────────────────

var (
	barBg = lipgloss.NewStyle().
		Background(lipgloss.Color("#27272a")).
		Foreground(lipgloss.Color("#a1a1aa"))

	timerRunStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fde68a"))

	timerPausedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#71717a")).
				Italic(true)

	timerDoneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fca5a5"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#a1a1aa"))

	sepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#52525b"))

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#94a3b8"))

	alertStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#18181b")).
			Background(lipgloss.Color("#fdba74"))

	// ── Output styles (soft palette) ──

	// BannerStyle is the muted slate used for the startup banner.
	BannerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#94a3b8"))

	chatStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#bae6fd"))

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#bbf7d0"))

	primaryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#d4d4d8"))

	secondaryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#71717a"))

	urgentOutputStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#fca5a5"))

	userInputEchoStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#a1a1aa"))
)

const promptText = "fry> "

// ── UI ───────────────────────────────────────────────────────────

// UI manages the terminal through Bubble Tea.
//
// Call [NewUI] then [UI.Run] (blocking). Other goroutines may safely call
// [UI.Println], [UI.Printf], and read from [UI.InputChan] at any time
// after [UI.WaitReady] returns.
type UI struct {
	program atomic.Pointer[tea.Program]
	updates <-chan domain.Snapshot
	inputCh chan string
	readyCh chan struct{}
	quitCh  chan struct{}
	celsius atomic.Bool
	done    atomic.Bool
}

// NewUI creates the display. Call Follow before Run to feed the status bar.
func NewUI() *UI {
	return &UI{
		inputCh: make(chan string, 16),
		readyCh: make(chan struct{}),
		quitCh:  make(chan struct{}),
	}
}

// Follow sets the snapshot stream that drives the status bar. Must be
// called before Run.
func (u *UI) Follow(updates <-chan domain.Snapshot) { u.updates = updates }

// SetCelsius switches the temperature unit shown in the status bar.
func (u *UI) SetCelsius(on bool) { u.celsius.Store(on) }

// Println prints a line above the prompt. Falls back to fmt.Println
// before the program starts or after it exits.
func (u *UI) Println(a ...any) {
	u.print(strings.TrimSuffix(fmt.Sprintln(a...), "\n"))
}

// Printf prints formatted text above the prompt on its own line.
func (u *UI) Printf(format string, a ...any) {
	u.print(fmt.Sprintf(format, a...))
}

// print hands text to the event loop. Send gives up when the program's
// context ends, so callers holding locks never wait on a dead loop.
func (u *UI) print(text string) {
	p := u.program.Load()
	if p == nil || u.done.Load() {
		fmt.Println(text)
		return
	}
	p.Send(printMsg{text: text})
}

// InputChan returns completed user-input lines.
func (u *UI) InputChan() <-chan string { return u.inputCh }

// ── Styled print helpers ─────────────────────────────────────────

// PrintChat prints a conversational line.
func (u *UI) PrintChat(text string) {
	u.Println(chatStyle.Render("  " + text))
}

// PrintHeader prints a section header such as a food name.
func (u *UI) PrintHeader(text string) {
	u.Println(headerStyle.Render("  " + text))
}

// PrintLine prints primary body text.
func (u *UI) PrintLine(text string) {
	u.Println(primaryStyle.Render("  " + text))
}

// PrintHint prints a secondary/dimmed line.
func (u *UI) PrintHint(text string) {
	u.Println(secondaryStyle.Render("  " + text))
}

// PrintUrgent prints an error or alert line.
func (u *UI) PrintUrgent(text string) {
	u.Println(urgentOutputStyle.Render("  " + text))
}

// echoLine renders the user's typed command for the scrollback.
func echoLine(text string) string {
	return promptStyle.Render("fry") + secondaryStyle.Render("> ") + userInputEchoStyle.Render(text)
}

// WaitReady blocks until the Bubble Tea event loop is running. Reports
// false if the UI exited before becoming ready.
func (u *UI) WaitReady() bool {
	select {
	case <-u.readyCh:
		return true
	case <-u.quitCh:
		return false
	}
}

// Quit tells Bubble Tea to exit.
func (u *UI) Quit() {
	if p := u.program.Load(); p != nil {
		p.Quit()
	}
}

// QuitChan is closed when Run returns.
func (u *UI) QuitChan() <-chan struct{} { return u.quitCh }

// Run starts the Bubble Tea event loop. Blocks until quit.
func (u *UI) Run() error {
	m := newModel(u.updates, &u.celsius, u.inputCh, u.readyCh)

	p := tea.NewProgram(m)
	u.program.Store(p)
	_, err := p.Run()
	u.done.Store(true)
	close(u.quitCh)
	return err
}

// ── Bubble Tea model ─────────────────────────────────────────────

type model struct {
	updates <-chan domain.Snapshot
	celsius *atomic.Bool
	input   textinput.Model
	bar     progress.Model
	inputCh chan<- string
	readyCh chan struct{}
	snap    domain.Snapshot
	width   int
}

// printMsg is a line to print above the rendered area.
type printMsg struct{ text string }

// snapshotMsg carries a new engine state; closed reports the stream ended.
type snapshotMsg struct {
	snap   domain.Snapshot
	closed bool
}

func newModel(updates <-chan domain.Snapshot, celsius *atomic.Bool, inputCh chan<- string, readyCh chan struct{}) model {
	ti := textinput.New()
	// Plain-text prompt keeps the textinput width math correct.
	ti.Prompt = promptText
	ti.PromptStyle = promptStyle
	ti.TextStyle = userInputEchoStyle
	ti.Cursor.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#94a3b8"))
	ti.Focus()
	ti.CharLimit = 200
	ti.Width = 60

	return model{
		updates: updates,
		celsius: celsius,
		input:   ti,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage(), progress.WithWidth(20)),
		inputCh: inputCh,
		readyCh: readyCh,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		waitForSnapshot(m.updates),
		signalReady(m.readyCh),
	)
}

func signalReady(ch chan struct{}) tea.Cmd {
	return func() tea.Msg {
		close(ch)
		return nil
	}
}

func waitForSnapshot(ch <-chan domain.Snapshot) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		snap, ok := <-ch
		return snapshotMsg{snap: snap, closed: !ok}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			return m, tea.Quit
		case tea.KeyEnter:
			v := m.input.Value()
			m.input.Reset()
			if strings.TrimSpace(v) == "" {
				return m, nil
			}
			m.inputCh <- v
			return m, tea.Println(echoLine(v))
		}

	case printMsg:
		return m, tea.Println(msg.text)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		if msg.Width > len(promptText) {
			m.input.Width = msg.Width - len(promptText)
		}
		return m, nil

	case snapshotMsg:
		if msg.closed {
			return m, nil
		}
		m.snap = msg.snap
		return m, tea.Batch(waitForSnapshot(m.updates), tea.SetWindowTitle(titleFor(m.snap)))
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) View() string {
	var b strings.Builder

	if a := m.snap.CurrentAlert; a != nil {
		b.WriteString(alertStyle.Render(fmt.Sprintf(" %s  %s ", a.ActionType.Label(), a.Message)))
		b.WriteByte('\n')
	}
	if m.snap.Recipe != nil {
		b.WriteString(m.renderBar())
		b.WriteByte('\n')
	}

	b.WriteByte('\n')
	b.WriteString(m.input.View())
	return b.String()
}

func (m model) renderBar() string {
	s := m.snap
	r := s.Recipe
	celsius := m.celsius != nil && m.celsius.Load()

	var clock string
	switch s.Status {
	case domain.StatusRunning:
		clock = timerRunStyle.Render(alert.FormatTime(s.RemainingSeconds))
	case domain.StatusPaused:
		clock = timerPausedStyle.Render(alert.FormatTime(s.RemainingSeconds) + " paused")
	case domain.StatusComplete:
		clock = timerDoneStyle.Render("DONE!")
	default:
		clock = timerPausedStyle.Render(alert.FormatTime(s.TotalSeconds) + " ready")
	}

	parts := []string{
		labelStyle.Render(strings.TrimSpace(r.Icon + " " + r.Name)),
		labelStyle.Render(alert.FormatTemperature(r.Temperature, celsius)),
		clock,
		m.bar.ViewAs(s.Progress()),
	}
	if next, ok := s.NextAction(); ok && s.Status != domain.StatusComplete {
		parts = append(parts, labelStyle.Render(fmt.Sprintf("next: %s @ %s", next.Type, alert.FormatMinutes(next.AtMinute))))
	}

	content := " " + strings.Join(parts, sepStyle.Render("  │  ")) + " "

	w := m.width
	if w <= 0 {
		w = 80
	}
	return barBg.Width(w).Render(content)
}

func titleFor(s domain.Snapshot) string {
	if s.Recipe == nil {
		return "OttoFry"
	}
	switch s.Status {
	case domain.StatusComplete:
		return "OttoFry · " + s.Recipe.Name + " DONE!"
	case domain.StatusPaused:
		return "OttoFry · " + s.Recipe.Name + " paused"
	default:
		return "OttoFry · " + s.Recipe.Name + " " + alert.FormatTime(s.RemainingSeconds)
	}
}
