package extract

import (
	"testing"

	"github.com/nilay/saathi/internal/memory"
)

func TestApply_Name(t *testing.T) {
	tests := []struct {
		name      string
		utterance string
		wantName  string
	}{
		{"basic phrase", "my name is Asha", "Asha"},
		{"lowercased input", "MY NAME IS ravi", "Ravi"},
		{"mid-sentence", "hello, my name is priya and I like tea", "Priya"},
		{"this is phrase", "hi, this is Arjun", "Arjun"},
		{"native phrase", "mera naam Kiran hai", "Kiran"},
		{"native phrase without closer", "mera naam Kiran", ""},
		{"no phrase", "what a lovely day", ""},
		{"trailing punctuation", "my name is Asha.", "Asha"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := memory.NewProfile()
			Apply(p, tt.utterance)
			if p.Name != tt.wantName {
				t.Errorf("Apply(%q): name = %q, want %q", tt.utterance, p.Name, tt.wantName)
			}
		})
	}
}

func TestApply_NoPhraseLeavesNameUnchanged(t *testing.T) {
	p := memory.NewProfile()
	p.Name = "Asha"

	changed := Apply(p, "tell me about the weather in space")
	if changed {
		t.Error("expected no change")
	}
	if p.Name != "Asha" {
		t.Errorf("name changed to %q", p.Name)
	}
}

func TestApply_FirstMatchWinsAcrossCalls(t *testing.T) {
	p := memory.NewProfile()

	Apply(p, "my name is Asha")
	Apply(p, "my name is Ravi")

	if p.Name != "Asha" {
		t.Errorf("expected first captured name to stick, got %q", p.Name)
	}
}

func TestApply_PhraseListOrderBreaksTies(t *testing.T) {
	// Both "my name is" and "this is" appear; the earlier rule in
	// NameRules wins regardless of position in the utterance.
	p := memory.NewProfile()
	Apply(p, "this is Arjun but my name is Asha")
	if p.Name != "Asha" {
		t.Errorf("expected priority order to pick Asha, got %q", p.Name)
	}
}

func TestApply_MalformedMatchLeavesFieldUnchanged(t *testing.T) {
	p := memory.NewProfile()
	changed := Apply(p, "my name is")
	if changed || p.Name != "" {
		t.Errorf("expected no change on malformed match, got name %q", p.Name)
	}

	p.Name = "Asha"
	Apply(p, "my name is   ")
	if p.Name != "Asha" {
		t.Errorf("expected existing name preserved, got %q", p.Name)
	}
}

func TestApply_Gender(t *testing.T) {
	tests := []struct {
		name       string
		utterance  string
		wantGender memory.Gender
	}{
		{"male marker", "i am a man of simple tastes", memory.GenderMale},
		{"female marker", "i'm a woman from Pune", memory.GenderFemale},
		{"both markers resolve male", "i am a woman, no wait, i am a man", memory.GenderMale},
		{"no marker", "i am an engineer", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := memory.NewProfile()
			Apply(p, tt.utterance)
			if p.Gender != tt.wantGender {
				t.Errorf("Apply(%q): gender = %q, want %q", tt.utterance, p.Gender, tt.wantGender)
			}
		})
	}
}

func TestApply_NameAndGenderSameUtterance(t *testing.T) {
	p := memory.NewProfile()
	changed := Apply(p, "my name is Asha and i am a woman")
	if !changed {
		t.Fatal("expected change")
	}
	if p.Name != "Asha" || p.Gender != memory.GenderFemale {
		t.Errorf("got name %q gender %q", p.Name, p.Gender)
	}
}
