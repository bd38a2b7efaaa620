package types

import (
	"fmt"
	"time"
)

// NextBillingDate calculates the next billing date based on the given start time,
// billing interval, and interval threshold (the frequency multiplier).
// For example:
// - If the interval is MONTH and the threshold is 2, we add two months.
// - If the interval is YEAR and the threshold is 1, we add one year.
// - If the interval is WEEK and the threshold is 3, we add 21 days (3 weeks).
// - If the interval is DAY and the threshold is 10, we add 10 days.
// Month and year additions are clamped so that e.g. Jan 31 + 1 month lands on the
// last day of February rather than spilling into March.
func NextBillingDate(start time.Time, threshold int, interval BillingInterval) (time.Time, error) {
	if threshold <= 0 {
		return start, fmt.Errorf("interval threshold must be a positive integer, got %d", threshold)
	}

	switch interval {
	case BillingIntervalDay:
		return AddClampedDate(start, 0, 0, threshold), nil
	case BillingIntervalWeek:
		return AddClampedDate(start, 0, 0, 7*threshold), nil
	case BillingIntervalMonth:
		return AddClampedDate(start, 0, threshold, 0), nil
	case BillingIntervalYear:
		return AddClampedDate(start, threshold, 0, 0), nil
	default:
		return start, fmt.Errorf("invalid billing interval: %s", interval)
	}
}

// AddClampedDate behaves like time.AddDate but clamps the day of month to the
// last valid day of the target month instead of normalizing into the next one.
func AddClampedDate(t time.Time, years, months, days int) time.Time {
	y, m, d := t.Date()
	h, min, sec := t.Clock()

	newY := y + years
	newM := time.Month(int(m) + months)

	for newM > 12 {
		newM -= 12
		newY++
	}
	for newM < 1 {
		newM += 12
		newY--
	}

	// Find the last valid day of the new month
	firstOfNextMonth := time.Date(newY, newM+1, 1, 0, 0, 0, 0, t.Location())
	lastDay := firstOfNextMonth.Add(-24 * time.Hour).Day()

	newD := d + days
	if newD > lastDay && days == 0 {
		newD = lastDay
	}

	return time.Date(newY, newM, newD, h, min, sec, t.Nanosecond(), t.Location())
}
