// Package ask provides the question and answer view for the TUI.
package ask

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/docrag/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/docrag/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/docrag/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/docrag/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docrag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docrag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driving"
)

// Focus identifies which part of the view receives keys.
type Focus int

const (
	// FocusQuestion routes keys to the question input.
	FocusQuestion Focus = iota
	// FocusCategory routes keys to the category input.
	FocusCategory
	// FocusAnswer routes keys to the answer pane and sources.
	FocusAnswer
)

// View is the ask view: question and category inputs, an answer pane and
// the sources behind the answer.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	question  *input.Field
	category  *input.Field
	answer    viewport.Model
	sources   *list.SourceList
	statusbar *status.Bar

	engine driving.Engine
	ctx    context.Context

	width   int
	height  int
	ready   bool
	err     error
	focus   Focus
	pending bool
	result  *domain.QueryResult
}

// NewView creates a new ask view.
func NewView(s *styles.Styles, km *keymap.KeyMap, engine driving.Engine) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &View{
		styles:    s,
		keymap:    km,
		question:  input.NewQuestionInput(s),
		category:  input.NewCategoryInput(s),
		answer:    viewport.New(80, 8),
		sources:   list.NewSourceList(s),
		statusbar: status.NewBar(s, km),
		engine:    engine,
		ctx:       context.Background(),
		width:     80,
		height:    24,
		focus:     FocusQuestion,
	}
}

// WithContext sets the context for the view.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return tea.Batch(v.question.Init(), v.refreshStatus())
}

// Update handles messages for the ask view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.AskCompleted:
		v.handleAskCompleted(msg)
		return v, v.refreshStatus()

	case messages.StatusRefreshed:
		v.statusbar.SetEngineStatus(msg.Status)
		return v, nil

	case messages.ErrorOccurred:
		v.setError(msg.Err)
		return v, nil
	}

	var cmd tea.Cmd
	if v.focus == FocusAnswer {
		v.answer, cmd = v.answer.Update(msg)
	}
	return v, cmd
}

// handleKeyMsg processes keyboard input.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	if msg.Type == tea.KeyEsc {
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	}

	if v.focus == FocusAnswer {
		return v.handleAnswerKey(msg)
	}

	switch {
	case keymap.Matches(msg.String(), v.keymap.SwitchField):
		return v, v.switchField()
	case msg.Type == tea.KeyEnter:
		return v, v.submit()
	}

	var cmd tea.Cmd
	if v.focus == FocusCategory {
		v.category, cmd = v.category.Update(msg)
	} else {
		v.question, cmd = v.question.Update(msg)
	}
	return v, cmd
}

// handleAnswerKey navigates sources and scrolls the answer.
func (v *View) handleAnswerKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		v.sources.MoveUp()
		return v, nil
	case "down", "j":
		v.sources.MoveDown()
		return v, nil
	case "n":
		v.NewQuestion()
		return v, v.question.Focus()
	}

	var cmd tea.Cmd
	v.answer, cmd = v.answer.Update(msg)
	return v, cmd
}

// switchField toggles focus between the two inputs.
func (v *View) switchField() tea.Cmd {
	if v.focus == FocusQuestion {
		v.focus = FocusCategory
		v.question.Blur()
		return v.category.Focus()
	}
	v.focus = FocusQuestion
	v.category.Blur()
	return v.question.Focus()
}

// submit sends the question unless it is blank or one is already pending.
func (v *View) submit() tea.Cmd {
	question := strings.TrimSpace(v.question.Value())
	if question == "" || v.pending {
		return nil
	}
	req := domain.QueryRequest{
		Question: question,
		Category: strings.TrimSpace(v.category.Value()),
	}

	v.pending = true
	v.err = nil
	v.statusbar.SetState(status.StateThinking)
	v.statusbar.SetCategory(req.Category)
	return v.performAsk(req)
}

// performAsk runs the question against the engine.
func (v *View) performAsk(req domain.QueryRequest) tea.Cmd {
	return func() tea.Msg {
		if v.engine == nil {
			return messages.AskCompleted{Err: ErrNoEngine}
		}
		result, err := v.engine.Answer().Ask(v.ctx, req)
		return messages.AskCompleted{Result: result, Err: err}
	}
}

// refreshStatus reads engine readiness for the status bar.
func (v *View) refreshStatus() tea.Cmd {
	if v.engine == nil {
		return nil
	}
	return func() tea.Msg {
		return messages.StatusRefreshed{Status: v.engine.Status(v.ctx)}
	}
}

// handleAskCompleted shows the answer and its sources.
func (v *View) handleAskCompleted(msg messages.AskCompleted) {
	v.pending = false
	if msg.Err != nil {
		v.setError(msg.Err)
		return
	}
	if msg.Result == nil {
		return
	}

	v.err = nil
	v.result = msg.Result
	v.sources.SetSources(msg.Result.Sources)
	v.answer.SetContent(v.renderAnswer())
	v.answer.GotoTop()
	v.statusbar.SetState(status.StateAnswered)
	v.statusbar.SetSourceCount(len(msg.Result.Sources))

	v.focus = FocusAnswer
	v.question.Blur()
	v.category.Blur()
}

func (v *View) setError(err error) {
	v.pending = false
	v.err = err
	v.statusbar.SetState(status.StateError)
	v.statusbar.SetMessage(err.Error())
}

// renderAnswer wraps the answer text to the pane width.
func (v *View) renderAnswer() string {
	if v.result == nil {
		return ""
	}
	mode := v.styles.Muted.Render(fmt.Sprintf("(%s)", v.result.Mode))
	body := v.styles.Answer.Width(max(v.width-4, 20)).Render(v.result.Answer)
	return mode + "\n" + body
}

// View renders the ask view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := make([]string, 0, 12)
	sections = append(sections,
		v.styles.Title.Render("Document Q&A"), "",
		v.question.View(),
		v.category.View(), "",
	)

	if v.err != nil {
		sections = append(sections, v.styles.Error.Render("Error: "+v.err.Error()), "")
	}

	if v.result != nil {
		sections = append(sections, v.answer.View(), "")
		if v.result.Mode == domain.AnswerModeRetrieval {
			sections = append(sections, v.sources.View(), "")
		}
	}

	sections = append(sections, v.statusbar.View())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	v.question.SetWidth(width)
	v.category.SetWidth(width)
	v.statusbar.SetWidth(width)

	// Header, inputs and status take about ten rows; the rest is split
	// between the answer and its sources.
	body := max(height-10, 6)
	v.answer.Width = width
	v.answer.Height = body / 2
	v.sources.SetDimensions(width, body-body/2)
	if v.result != nil {
		v.answer.SetContent(v.renderAnswer())
	}
}

// NewQuestion clears the answer and refocuses the question input.
// The category is kept so follow-up questions stay in scope.
func (v *View) NewQuestion() {
	v.focus = FocusQuestion
	v.category.Blur()
	v.question.Focus()
	v.question.SetValue("")
	v.result = nil
	v.sources.SetSources(nil)
	v.answer.SetContent("")
	v.err = nil
	v.statusbar.Clear()
}

// Width returns the current width.
func (v *View) Width() int {
	return v.width
}

// Height returns the current height.
func (v *View) Height() int {
	return v.height
}

// Ready returns whether the view is ready to render.
func (v *View) Ready() bool {
	return v.ready
}

// Question returns the current question text.
func (v *View) Question() string {
	return v.question.Value()
}

// SetQuestion sets the question text.
func (v *View) SetQuestion(q string) {
	v.question.SetValue(q)
}

// Category returns the current category scope.
func (v *View) Category() string {
	return v.category.Value()
}

// SetCategory sets the category scope.
func (v *View) SetCategory(c string) {
	v.category.SetValue(c)
}

// Focus returns which part of the view has focus.
func (v *View) Focus() Focus {
	return v.focus
}

// Pending reports whether a question is in flight.
func (v *View) Pending() bool {
	return v.pending
}

// Result returns the last answer, or nil.
func (v *View) Result() *domain.QueryResult {
	return v.result
}

// SelectedSource returns the highlighted source, or nil.
func (v *View) SelectedSource() *domain.Source {
	return v.sources.SelectedSource()
}

// Err returns the current error, if any.
func (v *View) Err() error {
	return v.err
}
