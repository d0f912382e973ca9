// Package renewal computes subscription due dates.
//
// Months are added on the calendar: the day of month is kept, and when the
// target month is too short the date moves to the first day of the month
// after it. So January 31 plus one month is March 1, not February 28.
package renewal

import (
	"math"
	"time"

	"github.com/xraph/pandda/subscription"
)

// NextDueDate adds months to current, keeping the day of month, the clock
// time and the location. A day that does not exist in the target month
// yields the 1st of the following month.
func NextDueDate(current time.Time, months int) time.Time {
	year, month, day := current.Date()
	hour, minute, sec := current.Clock()
	loc := current.Location()

	// Normalise the target month through time.Date on day 1, which never
	// overflows.
	target := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, loc)
	ty, tm, _ := target.Date()

	if day > daysIn(ty, tm, loc) {
		return time.Date(ty, tm+1, 1, hour, minute, sec, current.Nanosecond(), loc)
	}
	return time.Date(ty, tm, day, hour, minute, sec, current.Nanosecond(), loc)
}

// Renew returns the due date sub moves to after one renewal of a plan
// lasting planDurationMonths.
func Renew(sub *subscription.Subscription, planDurationMonths int) time.Time {
	return NextDueDate(sub.DueDate, planDurationMonths)
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

// ──────────────────────────────────────────────────
// Expiry windows
// ──────────────────────────────────────────────────

// Window names an expiry filter over due dates.
type Window string

const (
	WindowAll         Window = ""
	WindowCurrent     Window = "current"
	WindowDueSoon     Window = "due_soon"     // due within the next 3 days
	WindowOverdue     Window = "overdue"      // overdue by less than 30 days
	WindowLongOverdue Window = "long_overdue" // overdue by 30 days or more
	WindowOverdueAll  Window = "overdue_all"  // any due date in the past
)

const (
	dueSoonDays    = 3
	longOverdueDay = 30
)

// DaysUntil returns the whole days from now to due, rounded up. It is
// negative once due has passed by more than a day.
func DaysUntil(due, now time.Time) int {
	return ceilDays(due.Sub(now))
}

func ceilDays(d time.Duration) int {
	v := math.Ceil(float64(d) / float64(24*time.Hour))
	if v == 0 {
		return 0
	}
	return int(v)
}

// Classify places due into exactly one of WindowDueSoon, WindowOverdue,
// WindowLongOverdue or WindowCurrent.
func Classify(due, now time.Time) Window {
	switch {
	case Matches(WindowDueSoon, due, now):
		return WindowDueSoon
	case Matches(WindowOverdue, due, now):
		return WindowOverdue
	case due.Before(now):
		return WindowLongOverdue
	default:
		return WindowCurrent
	}
}

// Matches reports whether due falls in w. The overdue windows may overlap
// with WindowDueSoon on the day a subscription falls due.
func Matches(w Window, due, now time.Time) bool {
	switch w {
	case WindowAll:
		return true
	case WindowDueSoon:
		d := DaysUntil(due, now)
		return d >= 0 && d <= dueSoonDays
	case WindowOverdue:
		o := ceilDays(now.Sub(due))
		return o > 0 && o < longOverdueDay
	case WindowLongOverdue:
		return ceilDays(now.Sub(due)) >= longOverdueDay
	case WindowOverdueAll:
		return due.Before(now)
	case WindowCurrent:
		return Classify(due, now) == WindowCurrent
	default:
		return false
	}
}

// ParseWindow validates a window name.
func ParseWindow(s string) (Window, bool) {
	switch w := Window(s); w {
	case WindowAll, WindowCurrent, WindowDueSoon, WindowOverdue, WindowLongOverdue, WindowOverdueAll:
		return w, true
	default:
		return "", false
	}
}
