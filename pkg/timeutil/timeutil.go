// Package timeutil provides timezone-aware calendar helpers and a swappable clock.
// Users are bucketed into calendar days in one configured location, so every
// helper takes an explicit *time.Location instead of relying on time.Local.
// No external dependencies - uses only standard library.
package timeutil

import (
	"fmt"
	"sync"
	"time"
)

// Common date/time layouts.
const (
	FormatDate     = "2006-01-02"
	FormatDateTime = "2006-01-02 15:04:05"
)

// ═══════════════════════════════════════════════════════════════════════════
// Clock
// ═══════════════════════════════════════════════════════════════════════════

// Clock is the source of "now" for handlers and jobs.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock is a manually advanced clock for tests and replays.
type FixedClock struct {
	mu sync.Mutex
	t  time.Time
}

// NewFixedClock creates a FixedClock set to t.
func NewFixedClock(t time.Time) *FixedClock {
	return &FixedClock{t: t}
}

// Now implements Clock.
func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

// Set moves the clock to t.
func (c *FixedClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

// Advance moves the clock forward by d.
func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// ═══════════════════════════════════════════════════════════════════════════
// Locations
// ═══════════════════════════════════════════════════════════════════════════

// LoadLocation resolves an IANA zone name. "UTC" and "" map to time.UTC.
// Fixed offsets like "+05:00" are accepted for hosts without tzdata.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" || name == "UTC" {
		return time.UTC, nil
	}
	if loc, err := time.LoadLocation(name); err == nil {
		return loc, nil
	}

	var sign byte
	var hh, mm int
	if n, err := fmt.Sscanf(name, "%c%02d:%02d", &sign, &hh, &mm); err == nil && n == 3 && (sign == '+' || sign == '-') {
		offset := hh*3600 + mm*60
		if sign == '-' {
			offset = -offset
		}
		return time.FixedZone(name, offset), nil
	}

	return nil, fmt.Errorf("unknown time zone %q", name)
}

// ═══════════════════════════════════════════════════════════════════════════
// Calendar helpers
// ═══════════════════════════════════════════════════════════════════════════

// StartOfDay returns 00:00:00 of t's calendar day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
}

// NextStartOfDay returns the first midnight in loc strictly after t.
func NextStartOfDay(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day()+1, 0, 0, 0, 0, loc)
}

// IsSameDay checks if two times fall on the same calendar day in loc.
func IsSameDay(t1, t2 time.Time, loc *time.Location) bool {
	y1, m1, d1 := t1.In(loc).Date()
	y2, m2, d2 := t2.In(loc).Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// CalendarDaysBetween counts calendar-day boundaries crossed going from t1 to t2
// in loc. It is negative when t2 is on an earlier day than t1. Unlike a
// duration divided by 24h it is exact across DST transitions.
func CalendarDaysBetween(t1, t2 time.Time, loc *time.Location) int {
	y1, m1, d1 := t1.In(loc).Date()
	y2, m2, d2 := t2.In(loc).Date()
	a := time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC)
	b := time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

// FormatRelative returns a short human-readable distance between t and now.
func FormatRelative(t, now time.Time) string {
	d := now.Sub(t)
	if d < 0 {
		return "in " + formatDuration(-d)
	}
	if d < time.Minute {
		return "just now"
	}
	return formatDuration(d) + " ago"
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "a moment"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}
