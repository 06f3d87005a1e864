package summarize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/nilay/saathi/internal/memory"
)

type mockModel struct {
	reply string
	err   error
	calls int
	seen  string
}

func (m *mockModel) Complete(_ context.Context, prompt string) (string, error) {
	m.calls++
	m.seen = prompt
	return m.reply, m.err
}

func profileWithTurns(n int) *memory.Profile {
	p := memory.NewProfile()
	for i := 0; i < n; i++ {
		p.AppendTurn(fmt.Sprintf("u%d", i), fmt.Sprintf("b%d", i))
	}
	return p
}

func TestMaybe_FiresOnlyOnIntervalBoundary(t *testing.T) {
	for _, n := range []int{1, 19, 21, 39} {
		m := &mockModel{reply: "- fact"}
		p := profileWithTurns(n)
		if New(m).Maybe(context.Background(), p) {
			t.Errorf("fired at %d turns", n)
		}
		if m.calls != 0 {
			t.Errorf("model called at %d turns", n)
		}
	}

	for _, n := range []int{20, 40} {
		m := &mockModel{reply: "- fact"}
		p := profileWithTurns(n)
		if !New(m).Maybe(context.Background(), p) {
			t.Errorf("did not fire at %d turns", n)
		}
	}
}

func TestMaybe_DoesNotFireOnEmptyHistory(t *testing.T) {
	m := &mockModel{reply: "- fact"}
	if New(m).Maybe(context.Background(), memory.NewProfile()) {
		t.Error("fired on empty history")
	}
}

func TestMaybe_TruncatesToTail(t *testing.T) {
	m := &mockModel{reply: "- likes chai"}
	p := profileWithTurns(20)

	if !New(m).Maybe(context.Background(), p) {
		t.Fatal("expected fire at 20 turns")
	}
	if len(p.History) != keepTail {
		t.Errorf("history length after fire = %d, want %d", len(p.History), keepTail)
	}
	if p.History[0].User != "u12" {
		t.Errorf("truncation should keep the newest suffix, got first turn %q", p.History[0].User)
	}
	if len(p.Facts) != 1 || p.Facts[0] != "- likes chai" {
		t.Errorf("facts = %v", p.Facts)
	}
}

func TestMaybe_SummaryWindowIsRecentTurns(t *testing.T) {
	m := &mockModel{reply: "- fact"}
	p := profileWithTurns(20)
	New(m).Maybe(context.Background(), p)

	if strings.Contains(m.seen, "User: u9\n") {
		t.Error("prompt should not include turns outside the 10-turn window")
	}
	if !strings.Contains(m.seen, "User: u10\n") || !strings.Contains(m.seen, "User: u19\n") {
		t.Errorf("prompt missing expected window turns:\n%s", m.seen)
	}
}

func TestMaybe_DuplicateFactSkipped(t *testing.T) {
	m := &mockModel{reply: "- likes chai"}
	p := profileWithTurns(20)
	p.AppendFact("- likes chai")

	if New(m).Maybe(context.Background(), p) {
		t.Error("verbatim duplicate must not be recorded")
	}
	if len(p.Facts) != 1 {
		t.Errorf("facts grew to %v", p.Facts)
	}
	// No truncation either: history stays as it was.
	if len(p.History) != 20 {
		t.Errorf("history truncated despite duplicate, len=%d", len(p.History))
	}
}

func TestMaybe_EmptySummarySkipped(t *testing.T) {
	m := &mockModel{reply: "   \n"}
	p := profileWithTurns(20)

	if New(m).Maybe(context.Background(), p) {
		t.Error("empty summary must not be recorded")
	}
	if len(p.History) != 20 || len(p.Facts) != 0 {
		t.Errorf("profile mutated on empty summary: %d turns, %v facts", len(p.History), p.Facts)
	}
}

func TestMaybe_ModelErrorSwallowed(t *testing.T) {
	m := &mockModel{err: errors.New("model down")}
	p := profileWithTurns(20)

	if New(m).Maybe(context.Background(), p) {
		t.Error("expected no fact on model error")
	}
	if len(p.History) != 20 || len(p.Facts) != 0 {
		t.Errorf("profile mutated on failure: %d turns, %v facts", len(p.History), p.Facts)
	}
}
