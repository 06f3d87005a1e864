package composer

import (
	"strings"
	"testing"
	"time"

	"github.com/nilay/saathi/internal/memory"
)

var testNow = time.Date(2025, 6, 14, 10, 30, 0, 0, time.UTC)

func TestCompose_ShortHistoryUsesAll(t *testing.T) {
	c := New("Mira", 8)
	p := memory.NewProfile()
	p.AppendTurn("one", "r1")
	p.AppendTurn("two", "r2")
	p.AppendTurn("three", "r3")

	prompt := c.Compose(p, "four", nil, testNow)

	// All 3 turns, oldest first.
	i1 := strings.Index(prompt, "You: one")
	i2 := strings.Index(prompt, "You: two")
	i3 := strings.Index(prompt, "You: three")
	if i1 < 0 || i2 < 0 || i3 < 0 {
		t.Fatalf("missing turns in prompt:\n%s", prompt)
	}
	if !(i1 < i2 && i2 < i3) {
		t.Errorf("turns out of order: %d %d %d", i1, i2, i3)
	}
}

func TestCompose_WindowBoundsHistory(t *testing.T) {
	c := New("Mira", 8)
	p := memory.NewProfile()
	for i := 0; i < 12; i++ {
		p.AppendTurn("turn"+string(rune('a'+i)), "r")
	}

	prompt := c.Compose(p, "next", nil, testNow)

	if strings.Contains(prompt, "You: turna") {
		t.Error("oldest turn should be outside the window")
	}
	if !strings.Contains(prompt, "You: turne") {
		t.Error("expected 8th-from-last turn inside the window")
	}
}

func TestCompose_FixedSectionOrder(t *testing.T) {
	c := New("Mira", 8)
	p := memory.NewProfile()
	p.Name = "Asha"
	p.AppendTurn("hello", "hi")

	prompt := c.Compose(p, "how are you", nil, testNow)

	persona := strings.Index(prompt, "You are Mira")
	transcript := strings.Index(prompt, "Conversation so far:")
	marker := strings.LastIndex(prompt, "You: how are you")
	if persona != 0 {
		t.Errorf("preamble should lead the prompt, found at %d", persona)
	}
	if !(persona < transcript && transcript < marker) {
		t.Errorf("sections out of order: persona=%d transcript=%d marker=%d", persona, transcript, marker)
	}
	if !strings.HasSuffix(prompt, "Mira:") {
		t.Errorf("prompt should end at the reply marker, got %q", prompt[len(prompt)-20:])
	}
}

func TestCompose_EmptyHistoryOmitsTranscript(t *testing.T) {
	c := New("Mira", 8)
	prompt := c.Compose(memory.NewProfile(), "hi", nil, testNow)
	if strings.Contains(prompt, "Conversation so far:") {
		t.Error("transcript section should be absent with no history")
	}
}

func TestSummarizeProfile(t *testing.T) {
	p := memory.NewProfile()
	if got := summarizeProfile(p); !strings.Contains(got, "don't know much") {
		t.Errorf("empty profile summary = %q", got)
	}

	p.Name = "Asha"
	p.Location = memory.Location{City: "Delhi", Country: "India"}
	p.AppendFact("f1")
	p.AppendFact("f2")
	p.AppendFact("f3")
	p.AppendFact("f4")

	got := summarizeProfile(p)
	if !strings.Contains(got, "Asha") || !strings.Contains(got, "Delhi, India") {
		t.Errorf("summary missing identity/location: %q", got)
	}
	if strings.Contains(got, "f1") {
		t.Errorf("summary should only carry the last %d facts: %q", recentFacts, got)
	}
	if !strings.Contains(got, "f2; f3; f4") {
		t.Errorf("summary missing recent facts: %q", got)
	}
}

func TestCompose_GenderNeverEchoedWithoutGuard(t *testing.T) {
	c := New("Mira", 8)
	p := memory.NewProfile()
	p.Gender = memory.GenderMale

	prompt := c.Compose(p, "hi", nil, testNow)
	if !strings.Contains(prompt, "never mention it explicitly") {
		t.Error("gender hint must carry the do-not-echo instruction")
	}
}

func TestCompose_NotesBudget(t *testing.T) {
	c := New("Mira", 8)
	p := memory.NewProfile()

	big := strings.Repeat("x", maxNotesTokens*4)
	prompt := c.Compose(p, "hi", []string{"remember the milk", big}, testNow)

	if !strings.Contains(prompt, "[Standing notes]") {
		t.Fatal("expected standing notes section")
	}
	if !strings.Contains(prompt, "- remember the milk") {
		t.Error("expected small note to be included")
	}
	if strings.Contains(prompt, big) {
		t.Error("oversized note should have been dropped")
	}
}

func TestCompose_TimezoneFromProfile(t *testing.T) {
	c := New("Mira", 8)
	p := memory.NewProfile()
	p.Location.Timezone = "Asia/Kolkata"

	// 10:30 UTC is 16:00 IST.
	prompt := c.Compose(p, "hi", nil, testNow)
	if !strings.Contains(prompt, "04:00 PM") {
		t.Errorf("expected IST-rendered time in prompt:\n%s", prompt)
	}
}
