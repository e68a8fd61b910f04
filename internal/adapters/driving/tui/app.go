package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lectern-ai/lectern/internal/adapters/driving/tui/styles"
	"github.com/lectern-ai/lectern/internal/core/domain"
)

// chromeHeight is the number of terminal rows consumed by the header,
// input field and status bar around the transcript viewport.
const chromeHeight = 6

// Exchange is one question/answer pair in the session transcript.
type Exchange struct {
	// Question is the user's input as submitted.
	Question string

	// Answer holds the assistant's reply once it has arrived.
	Answer domain.Answer

	// Err is set instead of Answer when the query failed.
	Err error

	// Pending is true while the assistant is still working on this turn.
	Pending bool
}

// answerReceived carries the assistant's reply back to the model.
type answerReceived struct {
	Answer domain.Answer
	Err    error
}

// keyMap defines the keybindings for the chat view.
type keyMap struct {
	Send       key.Binding
	ScrollUp   key.Binding
	ScrollDown key.Binding
	Quit       key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Send: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send"),
		),
		ScrollUp: key.NewBinding(
			key.WithKeys("up", "pgup"),
			key.WithHelp("↑/pgup", "scroll"),
		),
		ScrollDown: key.NewBinding(
			key.WithKeys("down", "pgdown"),
			key.WithHelp("↓/pgdn", "scroll"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "esc"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}
}

// App is the chat TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea. One assistant session
// is created per App and reused for every question.
type App struct {
	// ports provides access to core services via driving ports.
	ports *Ports

	// ctx is the context for cancellation.
	ctx context.Context

	// styles holds the TUI styles.
	styles *styles.Styles

	// keys holds the active keybindings.
	keys keyMap

	// input is the question entry field.
	input textinput.Model

	// viewport scrolls the session transcript.
	viewport viewport.Model

	// spinner animates while a query is in flight.
	spinner spinner.Model

	// sessionID identifies the assistant session for this run.
	sessionID string

	// transcript is the ordered list of question/answer exchanges.
	transcript []Exchange

	// waiting is true while a query is in flight.
	waiting bool

	// err holds the last error that occurred.
	err error

	// width and height are terminal dimensions.
	width  int
	height int

	// ready indicates if the app has received its dimensions.
	ready bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new chat application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()

	input := textinput.New()
	input.Placeholder = "Ask about your courses..."
	input.CharLimit = 512
	input.Width = 50
	input.Focus()

	sp := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(s.Muted),
	)

	return &App{
		ports:     ports,
		ctx:       context.Background(),
		styles:    s,
		keys:      defaultKeyMap(),
		input:     input,
		viewport:  viewport.New(80, 20),
		spinner:   sp,
		sessionID: ports.Assistant.NewSession(),
	}, nil
}

// WithContext sets the context for service calls.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

// Init initialises the application.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		tea.SetWindowTitle("lectern - Course Assistant"),
		textinput.Blink,
	)
}

// Update handles incoming messages and updates the model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case answerReceived:
		return a.handleAnswer(msg)

	case spinner.TickMsg:
		if !a.waiting {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		a.refreshViewport()
		return a, cmd
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

// handleKey routes key presses between the input field and the viewport.
func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keys.Quit):
		return a, tea.Quit

	case key.Matches(msg, a.keys.Send):
		return a.submit()

	case key.Matches(msg, a.keys.ScrollUp), key.Matches(msg, a.keys.ScrollDown):
		var cmd tea.Cmd
		a.viewport, cmd = a.viewport.Update(msg)
		return a, cmd
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

// submit sends the current input to the assistant. Empty input and
// submissions while a query is already in flight are ignored.
func (a *App) submit() (tea.Model, tea.Cmd) {
	if a.waiting {
		return a, nil
	}
	question := strings.TrimSpace(a.input.Value())
	if question == "" {
		return a, nil
	}

	a.transcript = append(a.transcript, Exchange{Question: question, Pending: true})
	a.waiting = true
	a.err = nil
	a.input.Reset()
	a.refreshViewport()

	return a, tea.Batch(a.spinner.Tick, a.ask(question))
}

// ask queries the assistant off the UI loop and reports back as a message.
func (a *App) ask(question string) tea.Cmd {
	return func() tea.Msg {
		answer, err := a.ports.Assistant.Query(a.ctx, a.sessionID, question)
		return answerReceived{Answer: answer, Err: err}
	}
}

// handleAnswer records the assistant's reply in the transcript.
func (a *App) handleAnswer(msg answerReceived) (tea.Model, tea.Cmd) {
	a.waiting = false
	a.err = msg.Err

	if n := len(a.transcript); n > 0 {
		ex := &a.transcript[n-1]
		ex.Pending = false
		ex.Answer = msg.Answer
		ex.Err = msg.Err
	}

	a.refreshViewport()
	return a, nil
}

// View renders the application.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	header := a.styles.Title.Render("Lectern") + " " +
		a.styles.Muted.Render("Course Materials Assistant")

	sections := []string{
		header,
		a.viewport.View(),
		a.styles.InputField.Render(a.input.View()),
		a.statusLine(),
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// statusLine renders state on the left and keybinding hints on the right.
func (a *App) statusLine() string {
	var left string
	switch {
	case a.waiting:
		left = a.styles.Muted.Render("Thinking...")
	case a.err != nil:
		left = a.styles.Error.Render(fmt.Sprintf("Error: %s", a.err))
	default:
		left = a.styles.Muted.Render("Ready")
	}

	bindings := []key.Binding{a.keys.Send, a.keys.ScrollUp, a.keys.Quit}
	hints := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		hints = append(hints, fmt.Sprintf("%s: %s", h.Key, h.Desc))
	}
	right := a.styles.Help.Render(strings.Join(hints, " | "))

	padding := a.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if padding < 1 {
		padding = 1
	}

	return a.styles.StatusBar.Width(a.width).Render(
		left + strings.Repeat(" ", padding) + right,
	)
}

// refreshViewport re-renders the transcript and scrolls to the latest turn.
func (a *App) refreshViewport() {
	a.viewport.SetContent(a.renderTranscript())
	a.viewport.GotoBottom()
}

// renderTranscript renders every exchange as a user block followed by an
// assistant block with its source list.
func (a *App) renderTranscript() string {
	if len(a.transcript) == 0 {
		return a.styles.Muted.Render("Ask a question about your courses to get started.")
	}

	width := a.viewport.Width
	if width < 20 {
		width = 20
	}
	body := a.styles.Normal.Width(width)

	blocks := make([]string, 0, len(a.transcript)*2)
	for _, ex := range a.transcript {
		blocks = append(blocks,
			a.styles.UserLabel.Render("You")+"\n"+body.Render(ex.Question))

		label := a.styles.AssistantLabel.Render("Lectern")
		switch {
		case ex.Pending:
			blocks = append(blocks,
				label+"\n"+a.spinner.View()+a.styles.Muted.Render(" Thinking..."))
		case ex.Err != nil:
			blocks = append(blocks,
				label+"\n"+a.styles.Error.Render(fmt.Sprintf("Error: %s", ex.Err)))
		default:
			block := label + "\n" + body.Render(ex.Answer.Text)
			if len(ex.Answer.Sources) > 0 {
				block += "\n" + a.renderSources(ex.Answer.Sources)
			}
			blocks = append(blocks, block)
		}
	}

	return strings.Join(blocks, "\n\n")
}

// renderSources renders an answer's citations as an indented list.
func (a *App) renderSources(sources []domain.Source) string {
	lines := make([]string, 0, len(sources)+1)
	lines = append(lines, a.styles.Muted.Render("Sources:"))
	for _, s := range sources {
		label := s.Text
		if s.Link != "" {
			label += " (" + s.Link + ")"
		}
		lines = append(lines, a.styles.Muted.Render("  - "+label))
	}
	return strings.Join(lines, "\n")
}

// SetDimensions updates the terminal dimensions and resizes components.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true

	inputWidth := width - 6
	if inputWidth < 20 {
		inputWidth = 20
	}
	a.input.Width = inputWidth

	vpHeight := height - chromeHeight
	if vpHeight < 3 {
		vpHeight = 3
	}
	a.viewport.Width = width
	a.viewport.Height = vpHeight
	a.refreshViewport()
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running TUI: %w", err)
	}
	return nil
}

// SessionID returns the assistant session id for this run.
func (a *App) SessionID() string {
	return a.sessionID
}

// Transcript returns a copy of the session transcript.
func (a *App) Transcript() []Exchange {
	out := make([]Exchange, len(a.transcript))
	copy(out, a.transcript)
	return out
}

// Waiting returns whether a query is in flight.
func (a *App) Waiting() bool {
	return a.waiting
}

// InputValue returns the current input field contents.
func (a *App) InputValue() string {
	return a.input.Value()
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has received its dimensions.
func (a *App) Ready() bool {
	return a.ready
}

// Width returns the current terminal width.
func (a *App) Width() int {
	return a.width
}

// Height returns the current terminal height.
func (a *App) Height() int {
	return a.height
}
