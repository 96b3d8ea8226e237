// internal/intent/types.go
package intent

import (
	"encoding/json"
	"fmt"
	"time"
)

// Intention is a declared plan. Once encoded into a token it is never patched.
type Intention struct {
	Activity    string
	ScheduledAt time.Time
	Place       string // optional, "" means absent
	Note        string // optional, "" means absent
	CreatedAt   int64  // epoch milliseconds
}

// wireIntention is the canonical structured form carried inside a token.
// Field order is fixed so that encoding is byte-for-byte deterministic.
type wireIntention struct {
	Activity    string `json:"activity"`
	ScheduledAt string `json:"scheduledAt"`
	Place       string `json:"place,omitempty"`
	Note        string `json:"note,omitempty"`
	CreatedAt   int64  `json:"createdAt"`
}

// Layouts accepted for scheduledAt, most specific first. The zone-less ones
// are what browser datetime-local inputs produce.
var scheduledAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// ParseScheduledAt parses an ISO 8601 date-time. Values without a zone are
// read in loc.
func ParseScheduledAt(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	var lastErr error
	for _, layout := range scheduledAtLayouts {
		t, err := time.ParseInLocation(layout, s, loc)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, fmt.Errorf("parsing scheduledAt %q: %w", s, lastErr)
}

func (i Intention) MarshalJSON() ([]byte, error) {
	if i.ScheduledAt.IsZero() {
		return nil, fmt.Errorf("scheduledAt is required")
	}
	return json.Marshal(wireIntention{
		Activity:    i.Activity,
		ScheduledAt: i.ScheduledAt.Format(time.RFC3339Nano),
		Place:       i.Place,
		Note:        i.Note,
		CreatedAt:   i.CreatedAt,
	})
}

func (i *Intention) UnmarshalJSON(data []byte) error {
	var w wireIntention
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	var at time.Time
	if w.ScheduledAt != "" {
		t, err := ParseScheduledAt(w.ScheduledAt, time.Local)
		if err != nil {
			return err
		}
		at = t
	}
	*i = Intention{
		Activity:    w.Activity,
		ScheduledAt: at,
		Place:       w.Place,
		Note:        w.Note,
		CreatedAt:   w.CreatedAt,
	}
	return nil
}

// Equal reports whether both intentions carry the same fields. Instants are
// compared with time.Time.Equal, so differing zone representations of the
// same moment are equal.
func (i Intention) Equal(o Intention) bool {
	return i.Activity == o.Activity &&
		i.ScheduledAt.Equal(o.ScheduledAt) &&
		i.Place == o.Place &&
		i.Note == o.Note &&
		i.CreatedAt == o.CreatedAt
}

// Kind is the single interaction a viewer may register on a token.
type Kind string

const (
	KindInterested Kind = "interested"
	KindHere       Kind = "here"
)

// Kinds lists every interaction kind.
var Kinds = []Kind{KindInterested, KindHere}

func (k Kind) Valid() bool {
	return k == KindInterested || k == KindHere
}

// ParseKind maps a wire value onto a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown interaction kind %q", s)
	}
	return k, nil
}

// InteractionStats holds per-token counters.
type InteractionStats struct {
	InterestedCount int `json:"interestedCount"`
	HereCount       int `json:"hereCount"`
}

// Increment returns a copy of s with the counter for k raised by one.
func (s InteractionStats) Increment(k Kind) InteractionStats {
	switch k {
	case KindInterested:
		s.InterestedCount++
	case KindHere:
		s.HereCount++
	}
	return s
}

// Valid reports whether both counters are non-negative.
func (s InteractionStats) Valid() bool {
	return s.InterestedCount >= 0 && s.HereCount >= 0
}
