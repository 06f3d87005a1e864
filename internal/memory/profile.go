// Package memory owns the durable user profile: a single JSON record
// holding the user's name, gender, location, standing facts, and the
// recent conversation transcript.
//
// The store is single-tenant by design: one profile per file, one
// reader/writer, unconditional overwrite on save. Two sessions pointed
// at the same file will silently lose each other's updates.
//
// Known weakness carried over from the original behavior: facts are
// deduplicated by exact string equality only, so near-duplicate
// summaries can accumulate over long sessions.
package memory

// Gender is an advisory field extracted from self-identification
// phrases. It steers tone only and must never be echoed verbatim in
// generated text.
type Gender string

const (
	GenderMale    Gender = "male"
	GenderFemale  Gender = "female"
	GenderUnknown Gender = "unknown"
)

// SchemaVersion is written into every saved profile record.
const SchemaVersion = 1

// DefaultTimezone applies when the profile has no location.
const DefaultTimezone = "Asia/Kolkata"

// MaxFacts bounds the standing fact list. The original kept it
// unbounded; past the cap the oldest fact is dropped.
const MaxFacts = 64

// Location is the user's coarse whereabouts, usually filled once from
// the geolocation collaborator.
type Location struct {
	City     string `json:"city,omitempty"`
	Country  string `json:"country,omitempty"`
	Timezone string `json:"timezone,omitempty"`
}

// IsZero reports whether no location has been recorded yet.
func (l Location) IsZero() bool {
	return l.City == "" && l.Country == "" && l.Timezone == ""
}

// Turn is one (user utterance, assistant reply) pair.
type Turn struct {
	User string `json:"user"`
	Bot  string `json:"bot"`
}

// Profile is the entire persisted state: one record per deployment.
type Profile struct {
	SchemaVersion int      `json:"schema_version"`
	Name          string   `json:"name,omitempty"`
	Gender        Gender   `json:"gender,omitempty"`
	Location      Location `json:"location"`
	Facts         []string `json:"facts"`
	History       []Turn   `json:"history"`
}

// NewProfile returns a zero-valued profile at the current schema version.
func NewProfile() *Profile {
	return &Profile{
		SchemaVersion: SchemaVersion,
		Facts:         []string{},
		History:       []Turn{},
	}
}

// Timezone returns the profile timezone, falling back to DefaultTimezone.
func (p *Profile) Timezone() string {
	if p.Location.Timezone != "" {
		return p.Location.Timezone
	}
	return DefaultTimezone
}

// HasFact reports whether fact is already present, by exact string
// equality (case-sensitive).
func (p *Profile) HasFact(fact string) bool {
	for _, f := range p.Facts {
		if f == fact {
			return true
		}
	}
	return false
}

// AppendFact appends a fact, dropping the oldest entry once MaxFacts
// is exceeded.
func (p *Profile) AppendFact(fact string) {
	p.Facts = append(p.Facts, fact)
	if len(p.Facts) > MaxFacts {
		p.Facts = p.Facts[len(p.Facts)-MaxFacts:]
	}
}

// AppendTurn appends one completed turn to the transcript.
func (p *Profile) AppendTurn(user, bot string) {
	p.History = append(p.History, Turn{User: user, Bot: bot})
}

// Window returns the most recent n turns, oldest first. With fewer
// than n turns it returns all of them.
func (p *Profile) Window(n int) []Turn {
	if n <= 0 || len(p.History) == 0 {
		return nil
	}
	if len(p.History) <= n {
		return p.History
	}
	return p.History[len(p.History)-n:]
}

// TruncateHistory keeps the most recent keep turns, removing from the
// front. Ordering stays chronological.
func (p *Profile) TruncateHistory(keep int) {
	if keep < 0 {
		keep = 0
	}
	if len(p.History) > keep {
		p.History = p.History[len(p.History)-keep:]
	}
}

// Clone returns a deep copy, so callers can hand profiles across API
// boundaries without aliasing the live record.
func (p *Profile) Clone() Profile {
	cp := *p
	if p.Facts != nil {
		cp.Facts = make([]string, len(p.Facts))
		copy(cp.Facts, p.Facts)
	}
	if p.History != nil {
		cp.History = make([]Turn, len(p.History))
		copy(cp.History, p.History)
	}
	return cp
}
