// Package annotate derives display-only fields for backend records.
// The transformation is pure: input records are copied, never
// mutated, and order is preserved.
package annotate

import (
	"fmt"
	"math"
	"time"

	"github.com/csheth/studyscout/internal/webui"
)

// Placeholder is the time range shown for records whose update
// timestamp is missing or unusable.
const Placeholder = "some time ago"

// TimeFormatter renders a timestamp as a human-readable relative
// range, e.g. "3 days ago".
type TimeFormatter func(t time.Time) string

// Chat is a backend chat plus its derived display fields. The range
// is computed once when the record is fetched and reused on every
// render.
type Chat struct {
	webui.Chat
	TimeRange string
}

// Records annotates a fetched batch of chats. Records without a
// positive update timestamp get the Placeholder range, as does
// everything when f is nil.
func Records(in []webui.Chat, f TimeFormatter) []Chat {
	out := make([]Chat, 0, len(in))
	for _, rec := range in {
		timeRange := Placeholder
		if rec.UpdatedAt > 0 && f != nil {
			timeRange = f(time.Unix(rec.UpdatedAt, 0))
		}
		out = append(out, Chat{Chat: rec, TimeRange: timeRange})
	}
	return out
}

// RelativeRange builds a TimeFormatter that buckets timestamps by
// calendar-day distance from now:
//
//	same day            "today"
//	1 day               "yesterday"
//	2..6 days           "N days ago"
//	7..29 days          "N weeks ago"
//	30..364 days        "N months ago"
//	365+ days           "N years ago"
//
// Timestamps in the future clamp to "today".
func RelativeRange(now time.Time) TimeFormatter {
	return func(t time.Time) string {
		days := calendarDaysBetween(t, now)
		switch {
		case days <= 0:
			return "today"
		case days == 1:
			return "yesterday"
		case days < 7:
			return fmt.Sprintf("%d days ago", days)
		case days < 30:
			return agoText(days/7, "week")
		case days < 365:
			return agoText(days/30, "month")
		default:
			return agoText(days/365, "year")
		}
	}
}

func agoText(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}

// calendarDaysBetween counts midnights between t and now in now's
// location, rounding to absorb DST shifts.
func calendarDaysBetween(t, now time.Time) int {
	loc := now.Location()
	ty, tm, td := t.In(loc).Date()
	ny, nm, nd := now.Date()
	tStart := time.Date(ty, tm, td, 0, 0, 0, 0, loc)
	nStart := time.Date(ny, nm, nd, 0, 0, 0, 0, loc)
	return int(math.Round(nStart.Sub(tStart).Hours() / 24))
}
