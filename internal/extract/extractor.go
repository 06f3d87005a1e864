// Package extract pattern-matches raw user utterances to fill the
// structured profile fields (name, gender). Absence of a match is not
// an error; fields are simply left unchanged.
package extract

import (
	"strings"
	"unicode"

	"github.com/nilay/saathi/internal/memory"
)

// NameRule is one trigger phrase for name capture. Rules are evaluated
// in NameRules order; the first phrase found in the utterance wins and
// later rules are not consulted for that call.
type NameRule struct {
	// Phrase is the lower-case trigger, e.g. "my name is".
	Phrase string
	// Stop, when non-empty, is a closing keyword that must follow the
	// phrase for the rule to match; the captured token ends there.
	Stop string
}

// NameRules is the fixed priority order for name capture. The order is
// part of the contract: ties between phrases are broken by position in
// this list, not by any notion of confidence.
var NameRules = []NameRule{
	{Phrase: "my name is"},
	{Phrase: "this is"},
	{Phrase: "mera naam", Stop: "hai"},
}

// Gender keyword sets. The male set is scanned before the female set,
// so an utterance carrying both markers resolves to male.
var (
	maleKeywords = []string{
		"i am a man", "i'm a man",
		"i am male", "i'm male",
		"i am a guy", "i'm a guy",
	}
	femaleKeywords = []string{
		"i am a woman", "i'm a woman",
		"i am female", "i'm female",
		"i am a girl", "i'm a girl",
	}
)

// Apply scans the utterance and updates profile fields in place,
// reporting whether anything changed. Name is first-match-wins for the
// lifetime of the profile: once set it is never overwritten. A phrase
// match with no following token leaves the field unchanged.
func Apply(p *memory.Profile, utterance string) bool {
	lower := strings.ToLower(utterance)
	changed := false

	if p.Name == "" {
		if name, ok := matchName(lower); ok {
			p.Name = name
			changed = true
		}
	}

	if g, ok := matchGender(lower); ok && g != p.Gender {
		p.Gender = g
		changed = true
	}

	return changed
}

// matchName returns the title-cased token following the first matching
// trigger phrase, or ok=false when no rule matches or the match is
// malformed (phrase present, no token after it).
func matchName(lower string) (string, bool) {
	for _, r := range NameRules {
		idx := strings.Index(lower, r.Phrase)
		if idx < 0 {
			continue
		}
		rest := lower[idx+len(r.Phrase):]
		if r.Stop != "" {
			cut := strings.Index(rest, r.Stop)
			if cut < 0 {
				// The closing keyword is part of the trigger; without
				// it this rule does not match at all.
				continue
			}
			rest = rest[:cut]
		}
		// Only the first matching phrase is honored per call.
		token := firstToken(rest)
		if token == "" {
			return "", false
		}
		return titleCase(token), true
	}
	return "", false
}

func matchGender(lower string) (memory.Gender, bool) {
	if containsAny(lower, maleKeywords) {
		return memory.GenderMale, true
	}
	if containsAny(lower, femaleKeywords) {
		return memory.GenderFemale, true
	}
	return "", false
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

// firstToken returns the first whitespace-delimited token of s with
// surrounding punctuation stripped, or "" if there is none.
func firstToken(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return strings.TrimFunc(fields[0], func(r rune) bool {
		return unicode.IsPunct(r)
	})
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	return string(unicode.ToUpper(runes[0])) + string(runes[1:])
}
