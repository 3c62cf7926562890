package tui

import "errors"

// ErrMissingEngine is returned when the query engine is not provided.
var ErrMissingEngine = errors.New("tui: query engine is required")

// ErrNoIngest is reported when a reindex is requested without an ingest service.
var ErrNoIngest = errors.New("tui: ingest service not available")
