// Package summarize bounds transcript growth: every 20th turn it asks
// the model to compress the recent conversation into a standing fact
// and truncates the transcript to a short suffix. Summarization is
// best-effort and never blocks the reply path.
package summarize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nilay/saathi/internal/memory"
)

const (
	// triggerInterval fires the compression on every Nth turn,
	// checked right after the turn is appended.
	triggerInterval = 20

	// summaryWindow is how many recent turns feed the compression.
	summaryWindow = 10

	// keepTail is the transcript suffix kept after a successful
	// compression; truncation always removes from the front.
	keepTail = 8
)

// ModelClient is the language-generation collaborator.
type ModelClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Summarizer compresses older turns into standing facts.
type Summarizer struct {
	llm    ModelClient
	logger *slog.Logger
}

// New creates a Summarizer backed by the given model client.
func New(llm ModelClient) *Summarizer {
	return &Summarizer{llm: llm, logger: slog.Default()}
}

// Maybe runs the counter-triggered compression. It fires only when the
// transcript length is an exact multiple of the interval (the 20th,
// 40th, ... turn — never retroactively for skipped counts). On success
// the new fact is appended (unless already present verbatim) and the
// transcript is truncated to its most recent 8 entries. Model failures
// are logged and swallowed, leaving the profile untouched.
//
// Returns true when a fact was recorded.
func (s *Summarizer) Maybe(ctx context.Context, p *memory.Profile) bool {
	if len(p.History) == 0 || len(p.History)%triggerInterval != 0 {
		return false
	}

	prompt := buildPrompt(p.Window(summaryWindow))
	summary, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		s.logger.Warn("memory summarization failed, keeping transcript as-is", "error", err)
		return false
	}

	summary = strings.TrimSpace(summary)
	if summary == "" || p.HasFact(summary) {
		return false
	}

	p.AppendFact(summary)
	p.TruncateHistory(keepTail)
	return true
}

func buildPrompt(window []memory.Turn) string {
	var sb strings.Builder
	sb.WriteString("Summarize the key personal facts or recurring interests about the user in 2-4 short bullets (no full paragraphs):\n")
	for _, t := range window {
		fmt.Fprintf(&sb, "User: %s\nAssistant: %s\n", t.User, t.Bot)
	}
	return sb.String()
}
