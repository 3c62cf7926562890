// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/docrag/internal/core/domain"
)

// AskRequested is a command to answer a question.
type AskRequested struct {
	Request domain.QueryRequest
}

// AskCompleted carries an answer back to the model.
type AskCompleted struct {
	Result *domain.QueryResult
	Err    error
}

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewMenu is the main navigation menu.
	ViewMenu ViewType = iota
	// ViewAsk is the question, answer and sources view.
	ViewAsk
	// ViewDocuments lists the corpus.
	ViewDocuments
	// ViewHelp is the help/keybindings view.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewMenu:
		return "menu"
	case ViewAsk:
		return "ask"
	case ViewDocuments:
		return "documents"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}

// DocumentsLoaded carries the corpus listing.
type DocumentsLoaded struct {
	Documents []domain.DocumentInfo
	Err       error
}

// StatusRefreshed carries the engine readiness.
type StatusRefreshed struct {
	Status domain.EngineStatus
}

// IngestRequested asks the app to rebuild the index.
type IngestRequested struct{}

// IngestCompleted signals an ingestion run finished.
type IngestCompleted struct {
	Report *domain.IngestReport
	Err    error
}

// CategorySelected opens the ask view scoped to a category.
type CategorySelected struct {
	Category string
}
