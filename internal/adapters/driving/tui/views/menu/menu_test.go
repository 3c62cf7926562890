package menu

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docrag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docrag/internal/adapters/driving/tui/styles"
)

func labels(v *View) []string {
	out := make([]string, 0, len(v.Items()))
	for _, it := range v.Items() {
		out = append(out, it.Label)
	}
	return out
}

func TestNewView(t *testing.T) {
	view := NewView(styles.DefaultStyles(), true)

	require.NotNil(t, view)
	assert.Equal(t, []string{"Ask a question", "Documents", "Reindex documents", "Help", "Quit"}, labels(view))
	assert.Equal(t, 0, view.Selected())
	assert.Equal(t, 80, view.width)
	assert.Equal(t, 24, view.height)
	assert.Nil(t, view.Init())
}

func TestNewView_WithoutIngest(t *testing.T) {
	view := NewView(nil, false)

	assert.NotNil(t, view.styles)
	assert.NotContains(t, labels(view), "Reindex documents")
	assert.Len(t, view.Items(), 4)
}

func TestView_Update_WindowSize(t *testing.T) {
	view := NewView(nil, true)

	updated, cmd := view.Update(tea.WindowSizeMsg{Width: 100, Height: 50})

	assert.Equal(t, view, updated)
	assert.Nil(t, cmd)
	assert.True(t, view.ready)
	assert.Equal(t, 100, view.width)
}

func TestView_Update_Navigate(t *testing.T) {
	view := NewView(nil, true)
	down := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}}
	up := tea.KeyMsg{Type: tea.KeyUp}

	for range 10 {
		view.Update(down)
	}
	assert.Equal(t, 4, view.Selected())

	view.Update(up)
	assert.Equal(t, 3, view.Selected())

	for range 10 {
		view.Update(up)
	}
	assert.Equal(t, 0, view.Selected())
}

func TestView_Update_Enter(t *testing.T) {
	tests := []struct {
		name     string
		selected int
		want     tea.Msg
	}{
		{"ask", 0, messages.ViewChanged{View: messages.ViewAsk}},
		{"documents", 1, messages.ViewChanged{View: messages.ViewDocuments}},
		{"reindex", 2, messages.IngestRequested{}},
		{"help", 3, messages.ViewChanged{View: messages.ViewHelp}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view := NewView(nil, true)
			view.selected = tt.selected

			_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEnter})

			require.NotNil(t, cmd)
			assert.Equal(t, tt.want, cmd())
		})
	}
}

func TestView_Update_Quit(t *testing.T) {
	tests := []struct {
		name string
		key  tea.KeyMsg
		sel  int
	}{
		{"quit item", tea.KeyMsg{Type: tea.KeyEnter}, 4},
		{"q", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}}, 0},
		{"esc", tea.KeyMsg{Type: tea.KeyEsc}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view := NewView(nil, true)
			view.selected = tt.sel

			_, cmd := view.Update(tt.key)

			require.NotNil(t, cmd)
			assert.IsType(t, tea.QuitMsg{}, cmd())
		})
	}
}

func TestView_View(t *testing.T) {
	view := NewView(nil, true)
	assert.Equal(t, "Initialising...", view.View())

	view.SetDimensions(80, 24)
	out := view.View()

	assert.Contains(t, out, "docrag")
	assert.Contains(t, out, "> ")
	assert.Contains(t, out, "Ask a question")
	assert.Contains(t, out, "[q] Quit")
}
