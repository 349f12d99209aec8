package progression

import (
	"fmt"
	"time"
)

// DateLayout - формат календарной даты при сериализации.
const DateLayout = "2006-01-02"

// Date представляет календарную дату без времени и часового пояса.
// Все сравнения "сегодня/вчера" выполняются над Date, а не над разницей во времени.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf возвращает календарную дату момента t в часовом поясе loc.
// При loc == nil используется UTC.
func DateOf(t time.Time, loc *time.Location) Date {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return Date{Year: y, Month: m, Day: d}
}

// NewDate создаёт дату с нормализацией (например, 32 января -> 1 февраля).
func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC), time.UTC)
}

// ParseDate разбирает дату в формате YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateOf(t, time.UTC), nil
}

// IsZero возвращает true для нулевой даты.
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// Midnight возвращает полночь этой даты в UTC.
func (d Date) Midnight() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// AddDays сдвигает дату на n календарных дней.
func (d Date) AddDays(n int) Date {
	return NewDate(d.Year, d.Month, d.Day+n)
}

// DaysSince возвращает число календарных дней от earlier до d.
// Отрицательно, если earlier позже d.
func (d Date) DaysSince(earlier Date) int {
	// Полночь в UTC не зависит от перехода на летнее время,
	// поэтому разница всегда кратна 24 часам.
	return int(d.Midnight().Sub(earlier.Midnight()).Hours() / 24)
}

// Before возвращает true, если d раньше other.
func (d Date) Before(other Date) bool {
	return d.Midnight().Before(other.Midnight())
}

// Equal возвращает true для одинаковых дат.
func (d Date) Equal(other Date) bool {
	return d == other
}

// String возвращает дату в формате YYYY-MM-DD.
func (d Date) String() string {
	return d.Midnight().Format(DateLayout)
}

// MarshalText реализует encoding.TextMarshaler.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText реализует encoding.TextUnmarshaler.
func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
