package ask

import "errors"

// ErrNoEngine indicates that no query engine was provided.
var ErrNoEngine = errors.New("query engine is required")
