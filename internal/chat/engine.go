// Package chat sequences one turn through the reply pipeline: fact
// extraction, routing (filler, onboarding, live search, or the model),
// transcript bookkeeping, counter-triggered summarization, and
// persistence. Every turn produces a non-empty reply: collaborator
// failures degrade to apology text, they never propagate as hard
// failures.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nilay/saathi/internal/composer"
	"github.com/nilay/saathi/internal/extract"
	"github.com/nilay/saathi/internal/memory"
	"github.com/nilay/saathi/internal/storage"
	"github.com/nilay/saathi/internal/summarize"
)

// Route identifies which branch produced a reply.
type Route string

const (
	RouteFiller        Route = "filler"
	RouteOnboarding    Route = "onboarding"
	RouteSearch        Route = "search"
	RouteModel         Route = "model"
	RouteModelDegraded Route = "model_degraded"
)

// Onboarding selects how much the assistant insists on before chatting.
type Onboarding string

const (
	OnboardingOff  Onboarding = "off"  // chat immediately
	OnboardingName Onboarding = "name" // require a name first
	OnboardingFull Onboarding = "full" // require name, then gender
)

// DefaultSearchKeywords routes utterances about live data to the search
// collaborator instead of the model.
var DefaultSearchKeywords = []string{
	"news", "weather", "stock", "price", "sensex", "nifty", "update", "rate",
}

// fillerReply answers blank input without touching any state.
const fillerReply = "Say something! I'm listening."

// ModelClient is the language-generation collaborator.
type ModelClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Model() string
}

// SearchClient is the web-search collaborator.
type SearchClient interface {
	Available() bool
	Answer(ctx context.Context, query string) (string, error)
}

// ProfileStore loads and saves the durable profile record.
type ProfileStore interface {
	Load() (*memory.Profile, error)
	Save(*memory.Profile) error
}

// AuditLog records handled turns; failures here never affect replies.
type AuditLog interface {
	SaveInteraction(i storage.Interaction) error
	RecentNoteContents(limit int) ([]string, error)
}

// Config tunes the engine.
type Config struct {
	Onboarding     Onboarding
	SearchKeywords []string // defaults to DefaultSearchKeywords
	PromptNotes    int      // standing notes injected per prompt, default 5
}

// Reply is the outcome of one turn.
type Reply struct {
	Text  string `json:"text"`
	Route Route  `json:"route"`
}

// Engine is the reply orchestrator. It is single-tenant: the profile is
// loaded once at construction and mutated in place for the lifetime of
// the session, and a mutex serializes turns so one utterance is fully
// resolved before the next is accepted.
type Engine struct {
	mu         sync.Mutex
	store      ProfileStore
	profile    *memory.Profile
	composer   *composer.Composer
	summarizer *summarize.Summarizer
	llm        ModelClient
	search     SearchClient
	audit      AuditLog // optional
	cfg        Config
	clock      func() time.Time
	logger     *slog.Logger
}

// NewEngine loads the profile and wires the pipeline. A corrupt or
// unreadable profile record fails here, at session start, so the
// caller can surface a clear diagnostic instead of limping along.
func NewEngine(store ProfileStore, comp *composer.Composer, summarizer *summarize.Summarizer, llm ModelClient, search SearchClient, audit AuditLog, cfg Config) (*Engine, error) {
	p, err := store.Load()
	if err != nil {
		return nil, err
	}
	if len(cfg.SearchKeywords) == 0 {
		cfg.SearchKeywords = DefaultSearchKeywords
	}
	if cfg.PromptNotes <= 0 {
		cfg.PromptNotes = 5
	}
	if cfg.Onboarding == "" {
		cfg.Onboarding = OnboardingOff
	}
	return &Engine{
		store:      store,
		profile:    p,
		composer:   comp,
		summarizer: summarizer,
		llm:        llm,
		search:     search,
		audit:      audit,
		cfg:        cfg,
		clock:      time.Now,
		logger:     slog.Default(),
	}, nil
}

// Reply resolves one user utterance. The ordered checks short-circuit
// on the first match: blank input, onboarding prompts, live-data
// search, and finally the model path. Only profile persistence errors
// are returned; collaborator failures become degraded replies.
func (e *Engine) Reply(ctx context.Context, utterance string) (Reply, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := e.clock()
	reply, err := e.reply(ctx, utterance)
	if err != nil {
		return Reply{}, err
	}

	e.record(utterance, reply, e.clock().Sub(start))
	return reply, nil
}

func (e *Engine) reply(ctx context.Context, utterance string) (Reply, error) {
	trimmed := strings.TrimSpace(utterance)
	if trimmed == "" {
		return Reply{Text: fillerReply, Route: RouteFiller}, nil
	}

	nameWas := e.profile.Name
	if extract.Apply(e.profile, trimmed) {
		if err := e.store.Save(e.profile); err != nil {
			return Reply{}, fmt.Errorf("persisting extracted fields: %w", err)
		}
	}

	if r, ok := e.onboard(nameWas); ok {
		return r, nil
	}

	if e.wantsLiveData(trimmed) {
		return e.searchReply(ctx, trimmed), nil
	}

	return e.modelReply(ctx, trimmed)
}

// onboard returns an early reply while required profile fields are
// missing. Onboarding turns never enter the transcript.
func (e *Engine) onboard(nameWas string) (Reply, bool) {
	if e.cfg.Onboarding == OnboardingOff {
		return Reply{}, false
	}

	if e.profile.Name == "" {
		return Reply{
			Text:  "Before we chat — what should I call you?",
			Route: RouteOnboarding,
		}, true
	}
	if nameWas == "" {
		// The name arrived in this very utterance; greet and stop here.
		return Reply{
			Text:  fmt.Sprintf("Nice to meet you, %s! What's on your mind?", e.profile.Name),
			Route: RouteOnboarding,
		}, true
	}

	if e.cfg.Onboarding == OnboardingFull && e.profile.Gender == "" {
		return Reply{
			Text:  "One more thing so I get the tone right: how do you identify, if you'd like to share?",
			Route: RouteOnboarding,
		}, true
	}

	return Reply{}, false
}

func (e *Engine) wantsLiveData(utterance string) bool {
	lower := strings.ToLower(utterance)
	for _, k := range e.cfg.SearchKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// searchReply answers a live-data intent from the search collaborator,
// bypassing the model. Like the onboarding prompts, these replies do
// not enter the transcript. An unavailable or failing search still
// yields a non-empty reply.
func (e *Engine) searchReply(ctx context.Context, query string) Reply {
	if !e.search.Available() {
		return Reply{Text: "I can't do live searches right now — no search access is configured.", Route: RouteSearch}
	}

	answer, err := e.search.Answer(ctx, query)
	if err != nil {
		e.logger.Warn("live search failed", "error", err)
		return Reply{Text: "I tried a live search but it didn't work out. Ask me again in a bit?", Route: RouteSearch}
	}
	return Reply{Text: "Here's what a live search turned up: " + answer, Route: RouteSearch}
}

// modelReply runs the full path: compose the context window, call the
// model once, degrade to an apology on failure, append the turn, fire
// the summarization trigger, persist.
func (e *Engine) modelReply(ctx context.Context, utterance string) (Reply, error) {
	notes := e.promptNotes()
	prompt := e.composer.Compose(e.profile, utterance, notes, e.clock())

	route := RouteModel
	text, err := e.llm.Complete(ctx, prompt)
	if err != nil {
		e.logger.Warn("model call failed, degrading reply", "error", err)
		text = fmt.Sprintf("Sorry, I hit a snag answering that (%v). Mind trying again?", err)
		route = RouteModelDegraded
	} else if text == "" {
		text = "I'm not sure what to say to that — tell me more?"
	}

	e.profile.AppendTurn(utterance, text)
	e.summarizer.Maybe(ctx, e.profile)

	if err := e.store.Save(e.profile); err != nil {
		return Reply{}, fmt.Errorf("persisting transcript: %w", err)
	}
	return Reply{Text: text, Route: route}, nil
}

func (e *Engine) promptNotes() []string {
	if e.audit == nil {
		return nil
	}
	notes, err := e.audit.RecentNoteContents(e.cfg.PromptNotes)
	if err != nil {
		e.logger.Warn("loading standing notes failed", "error", err)
		return nil
	}
	return notes
}

// record appends the turn to the audit log, best-effort.
func (e *Engine) record(utterance string, r Reply, elapsed time.Duration) {
	if e.audit == nil {
		return
	}
	model := ""
	if r.Route == RouteModel || r.Route == RouteModelDegraded {
		model = e.llm.Model()
	}
	err := e.audit.SaveInteraction(storage.Interaction{
		ID:        uuid.New().String(),
		CreatedAt: e.clock(),
		UserText:  utterance,
		Reply:     r.Text,
		Route:     string(r.Route),
		Model:     model,
		LatencyMs: elapsed.Milliseconds(),
	})
	if err != nil {
		e.logger.Warn("recording interaction failed", "error", err)
	}
}

// Profile returns a deep copy of the current profile.
func (e *Engine) Profile() memory.Profile {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.profile.Clone()
}

// History returns up to limit recent turns, oldest first.
func (e *Engine) History(limit int) []memory.Turn {
	e.mu.Lock()
	defer e.mu.Unlock()
	w := e.profile.Window(limit)
	out := make([]memory.Turn, len(w))
	copy(out, w)
	return out
}

// UpdateProfile applies fn to the live profile and persists the result.
// Used by the management surfaces (PATCH /profile, geolocation fill).
func (e *Engine) UpdateProfile(fn func(*memory.Profile)) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.profile)
	if err := e.store.Save(e.profile); err != nil {
		return fmt.Errorf("persisting profile update: %w", err)
	}
	return nil
}
