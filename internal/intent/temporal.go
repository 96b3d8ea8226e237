package intent

import (
	"strings"
	"time"
)

const (
	// ExpiryWindow is how long after scheduledAt an intention stays live.
	ExpiryWindow = 2 * time.Hour

	// CoarseningLead is how far ahead of scheduledAt the exact place starts
	// being disclosed.
	CoarseningLead = time.Hour
)

// IsExpired reports whether now is strictly past scheduledAt + ExpiryWindow.
func IsExpired(i Intention, now time.Time) bool {
	return now.After(i.ScheduledAt.Add(ExpiryWindow))
}

// ExpiresAt returns the last instant at which i is still live.
func ExpiresAt(i Intention) time.Time {
	return i.ScheduledAt.Add(ExpiryWindow)
}

// FormatForDisplay renders scheduledAt relative to now's calendar day, in
// now's location.
func FormatForDisplay(scheduledAt, now time.Time) string {
	at := scheduledAt.In(now.Location())
	clock := at.Format("3:04 PM")
	if sameDay(at, now) {
		return "Today at " + clock
	}
	return at.Format("January 2") + " at " + clock
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// LocationPrecision returns the place as much as it should be disclosed at
// now. More than CoarseningLead ahead, only the last two comma-separated
// segments are shown; closer than that, or once the plan has started, the
// full place is shown. A place without commas is never cut.
func LocationPrecision(i Intention, now time.Time) string {
	if i.Place == "" {
		return ""
	}
	if i.ScheduledAt.Sub(now) <= CoarseningLead {
		return i.Place
	}
	return coarsen(i.Place)
}

// coarsen keeps the last two segments, each trimmed, joined by ", ".
func coarsen(place string) string {
	parts := strings.Split(place, ",")
	if len(parts) < 2 {
		return place
	}
	tail := parts[len(parts)-2:]
	for k := range tail {
		tail[k] = strings.TrimSpace(tail[k])
	}
	return strings.Join(tail, ", ")
}
