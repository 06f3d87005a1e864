// Package composer builds the prompt payload for each model call: a
// persona+profile preamble, a bounded window of recent turns, and the
// new-turn marker, in that fixed order.
package composer

import (
	"fmt"
	"strings"
	"time"

	"github.com/nilay/saathi/internal/memory"
)

const (
	// DefaultWindowSize is the number of recent turns included in the
	// transcript window.
	DefaultWindowSize = 8

	// maxNotesTokens caps standing-note content injected into the
	// preamble (4 chars/token heuristic).
	maxNotesTokens = 1000

	// recentFacts is how many of the newest facts make the preamble digest.
	recentFacts = 3
)

// Composer assembles prompt payloads from the profile, standing notes,
// and the incoming utterance.
type Composer struct {
	BotName    string
	WindowSize int
}

// New creates a Composer. A windowSize <= 0 falls back to DefaultWindowSize.
func New(botName string, windowSize int) *Composer {
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}
	return &Composer{BotName: botName, WindowSize: windowSize}
}

// Compose renders the full prompt: preamble, transcript window (oldest
// to newest, all of them when history is shorter than the window),
// then the new utterance awaiting a reply.
func (c *Composer) Compose(p *memory.Profile, utterance string, notes []string, now time.Time) string {
	var sb strings.Builder

	sb.WriteString(c.preamble(p, notes, now))

	window := p.Window(c.WindowSize)
	if len(window) > 0 {
		sb.WriteString("\n\nConversation so far:\n")
		sb.WriteString(c.renderWindow(window))
	}

	fmt.Fprintf(&sb, "\n\nYou: %s\n%s:", utterance, c.BotName)
	return sb.String()
}

func (c *Composer) preamble(p *memory.Profile, notes []string, now time.Time) string {
	var sb strings.Builder

	fmt.Fprintf(&sb,
		"You are %s, a warm and friendly personal companion. You keep replies short, natural, and conversational, and you remember details the user has shared and bring them up naturally.",
		c.BotName)
	fmt.Fprintf(&sb, " The current date and time is %s.", formatNow(now, p.Timezone()))
	sb.WriteString(" ")
	sb.WriteString(summarizeProfile(p))

	if noteBlock := renderNotes(notes); noteBlock != "" {
		sb.WriteString("\n\n[Standing notes]\n")
		sb.WriteString(noteBlock)
	}

	return sb.String()
}

// summarizeProfile is the compact profile digest injected into the
// preamble: name, location, a register hint, and the last few facts.
func summarizeProfile(p *memory.Profile) string {
	var parts []string

	if p.Name != "" {
		parts = append(parts, fmt.Sprintf("The user's name is %s.", p.Name))
	}
	if p.Location.City != "" {
		loc := p.Location.City
		if p.Location.Country != "" {
			loc += ", " + p.Location.Country
		}
		parts = append(parts, fmt.Sprintf("They are in %s.", loc))
	}
	// Advisory only: the value steers register, and the model is told
	// never to state it.
	if p.Gender == memory.GenderMale || p.Gender == memory.GenderFemale {
		parts = append(parts, fmt.Sprintf("The user has identified as %s; use this only to choose a natural register and never mention it explicitly.", p.Gender))
	}
	if len(p.Facts) > 0 {
		start := len(p.Facts) - recentFacts
		if start < 0 {
			start = 0
		}
		parts = append(parts, "Recent: "+strings.Join(p.Facts[start:], "; "))
	}

	if len(parts) == 0 {
		return "You don't know much about the user yet."
	}
	return strings.Join(parts, " ")
}

// renderWindow renders turns as two-line user/bot blocks, oldest first.
func (c *Composer) renderWindow(window []memory.Turn) string {
	var sb strings.Builder
	for i, t := range window {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "You: %s\n%s: %s", t.User, c.BotName, t.Bot)
	}
	return sb.String()
}

// renderNotes bullets the notes in the order given, dropping whatever
// exceeds the token budget.
func renderNotes(notes []string) string {
	var sb strings.Builder
	remaining := maxNotesTokens
	for _, n := range notes {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		entry := "- " + n + "\n"
		tokens := EstimateTokens(entry)
		if tokens > remaining {
			continue
		}
		sb.WriteString(entry)
		remaining -= tokens
	}
	return strings.TrimRight(sb.String(), "\n")
}

// EstimateTokens provides a rough token count using 4 chars per token heuristic.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}

func formatNow(now time.Time, tz string) string {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.UTC
	}
	return now.In(loc).Format("Monday, 02 January 2006 03:04 PM")
}
