package intent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsExpired(t *testing.T) {
	at := time.Date(2025, time.March, 14, 18, 30, 0, 0, time.UTC)
	i := Intention{Activity: "Dinner", ScheduledAt: at}

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{name: "well before", now: at.Add(-24 * time.Hour), want: false},
		{name: "at start", now: at, want: false},
		{name: "just inside window", now: at.Add(2*time.Hour - time.Millisecond), want: false},
		{name: "exactly at boundary", now: at.Add(2 * time.Hour), want: false},
		{name: "just past boundary", now: at.Add(2*time.Hour + time.Millisecond), want: true},
		{name: "long past", now: at.Add(30 * 24 * time.Hour), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsExpired(i, tt.now))
		})
	}
}

func TestIsExpiredIsTerminal(t *testing.T) {
	at := time.Date(2025, time.March, 14, 18, 30, 0, 0, time.UTC)
	i := Intention{Activity: "Dinner", ScheduledAt: at}

	expired := false
	for now := at; now.Before(at.Add(6 * time.Hour)); now = now.Add(7 * time.Minute) {
		got := IsExpired(i, now)
		if expired {
			assert.True(t, got, "un-expired at %s", now)
		}
		expired = got
	}
	assert.True(t, expired)
	assert.Equal(t, at.Add(ExpiryWindow), ExpiresAt(i))
}

func TestFormatForDisplay(t *testing.T) {
	loc := time.FixedZone("PST", -8*60*60)
	now := time.Date(2025, time.March, 14, 9, 0, 0, 0, loc)

	tests := []struct {
		name string
		at   time.Time
		want string
	}{
		{name: "later today", at: time.Date(2025, time.March, 14, 18, 30, 0, 0, loc), want: "Today at 6:30 PM"},
		{name: "earlier today", at: time.Date(2025, time.March, 14, 0, 5, 0, 0, loc), want: "Today at 12:05 AM"},
		{name: "tomorrow", at: time.Date(2025, time.March, 15, 7, 0, 0, 0, loc), want: "March 15 at 7:00 AM"},
		{name: "next year same day", at: time.Date(2026, time.March, 14, 9, 0, 0, 0, loc), want: "March 14 at 9:00 AM"},
		{
			// 02:30 UTC on the 15th is still the 14th in PST.
			name: "converted into viewer zone",
			at:   time.Date(2025, time.March, 15, 2, 30, 0, 0, time.UTC),
			want: "Today at 6:30 PM",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatForDisplay(tt.at, now))
		})
	}
}

func TestLocationPrecision(t *testing.T) {
	now := time.Date(2025, time.March, 14, 12, 0, 0, 0, time.UTC)
	const cafe = "Blue Bottle Coffee, Mission District, San Francisco"

	tests := []struct {
		name  string
		place string
		at    time.Time
		want  string
	}{
		{name: "absent place", place: "", at: now.Add(3 * time.Hour), want: ""},
		{name: "far future coarsened", place: cafe, at: now.Add(3 * time.Hour), want: "Mission District, San Francisco"},
		{name: "imminent shows full", place: cafe, at: now.Add(30 * time.Minute), want: cafe},
		{name: "exactly one hour shows full", place: cafe, at: now.Add(time.Hour), want: cafe},
		{name: "just over one hour coarsened", place: cafe, at: now.Add(time.Hour + time.Millisecond), want: "Mission District, San Francisco"},
		{name: "started shows full", place: cafe, at: now.Add(-30 * time.Minute), want: cafe},
		{name: "no comma never cut", place: "Dolores Park", at: now.Add(72 * time.Hour), want: "Dolores Park"},
		{name: "two segments trimmed", place: " Mission District ,  San Francisco ", at: now.Add(3 * time.Hour), want: "Mission District, San Francisco"},
		{name: "unspaced segments rejoined with a space", place: "a,b,c", at: now.Add(3 * time.Hour), want: "b, c"},
		{name: "many segments", place: "Table 4, Cafe, 5th Ave, Brooklyn, NY", at: now.Add(48 * time.Hour), want: "Brooklyn, NY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			i := Intention{Activity: "Coffee", ScheduledAt: tt.at, Place: tt.place}
			assert.Equal(t, tt.want, LocationPrecision(i, now))
		})
	}
}
