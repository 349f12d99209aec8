package scheduler

import (
	"fmt"
	"time"

	"github.com/studypet/studypet-hub/pkg/timeutil"
)

// IntervalSchedule schedules a job to run at a fixed interval.
type IntervalSchedule struct {
	Interval time.Duration
}

// NewIntervalSchedule creates a new IntervalSchedule.
func NewIntervalSchedule(interval time.Duration) *IntervalSchedule {
	return &IntervalSchedule{Interval: interval}
}

// Next returns the next scheduled time.
func (s *IntervalSchedule) Next(t time.Time) time.Time {
	return t.Add(s.Interval)
}

// String returns the string representation of the schedule.
func (s *IntervalSchedule) String() string {
	return fmt.Sprintf("@every %s", s.Interval)
}

// DailySchedule runs a job once per calendar day, Offset after midnight in Location.
type DailySchedule struct {
	Offset   time.Duration
	Location *time.Location
}

// NewDailySchedule creates a DailySchedule. A nil location means UTC.
func NewDailySchedule(offset time.Duration, loc *time.Location) *DailySchedule {
	if loc == nil {
		loc = time.UTC
	}
	return &DailySchedule{Offset: offset, Location: loc}
}

// Next returns the first run time strictly after t.
func (s *DailySchedule) Next(t time.Time) time.Time {
	today := timeutil.StartOfDay(t, s.Location).Add(s.Offset)
	if today.After(t) {
		return today
	}
	return timeutil.NextStartOfDay(t, s.Location).Add(s.Offset)
}

// String returns the string representation of the schedule.
func (s *DailySchedule) String() string {
	return fmt.Sprintf("@daily+%s %s", s.Offset, s.Location)
}
