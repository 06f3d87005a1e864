package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Interaction is one audited turn through the reply pipeline, whatever
// branch produced it.
type Interaction struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UserText  string    `json:"user_text"`
	Reply     string    `json:"reply"`
	Route     string    `json:"route"` // "filler", "onboarding", "search", "model", "model_degraded"
	Model     string    `json:"model"` // model name, empty for non-model routes
	LatencyMs int64     `json:"latency_ms"`
}

// Note is a standing note the user pinned outside the chat flow; recent
// notes are injected into the prompt preamble.
type Note struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Source    string    `json:"source"` // "cli", "api", "mcp", or an imported filename
	Content   string    `json:"content"`
}
