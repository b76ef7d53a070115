package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jinzhu/now"
)

const dateLayout = "2006-01-02"

// Date is a calendar day.  The wrapped time is always midnight UTC so two
// Dates compare equal with == when they denote the same day.
type Date struct {
	time.Time
}

// NewDate truncates t to the beginning of its day in UTC.
func NewDate(t time.Time) Date {
	return Date{Time: now.With(t.UTC()).BeginningOfDay()}
}

// ParseDate parses a "YYYY-MM-DD" string.
func ParseDate(s string) (Date, error) {
	t, err := time.ParseInLocation(dateLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return NewDate(t), nil
}

// SameDay reports whether d and o denote the same calendar day.
func (d Date) SameDay(o Date) bool { return d.Time.Equal(o.Time) }

// EndOfDay returns the last instant of the day, used for range queries.
func (d Date) EndOfDay() time.Time { return now.With(d.Time).EndOfDay() }

func (d Date) String() string { return d.Time.Format(dateLayout) }

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Scan accepts DATE columns read with parseTime=true (time.Time) or as text.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*d = NewDate(v)
		return nil
	case []byte:
		return d.scanString(string(v))
	case string:
		return d.scanString(v)
	case nil:
		*d = Date{}
		return nil
	}
	return fmt.Errorf("cannot scan %T into Date", src)
}

func (d *Date) scanString(s string) error {
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) Value() (driver.Value, error) { return d.String(), nil }

// TimeOfDay is a wall-clock time stored as minutes since midnight.
// Cross-midnight spans are not representable in a reservation, so a plain
// minute count is enough to order and compare slots within one day.
type TimeOfDay int

// ParseTimeOfDay accepts exactly "HH:MM" and "HH:MM:SS" (seconds are
// dropped).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	bad := fmt.Errorf("invalid time %q: expected HH:MM", s)
	if len(s) != 5 && len(s) != 8 {
		return 0, bad
	}
	h, okH := twoDigits(s[0:2])
	m, okM := twoDigits(s[3:5])
	if !okH || !okM || s[2] != ':' || h > 23 || m > 59 {
		return 0, bad
	}
	if len(s) == 8 {
		if sec, ok := twoDigits(s[6:8]); !ok || s[5] != ':' || sec > 59 {
			return 0, bad
		}
	}
	return TimeOfDay(h*60 + m), nil
}

func twoDigits(s string) (int, bool) {
	if s[0] < '0' || s[0] > '9' || s[1] < '0' || s[1] > '9' {
		return 0, false
	}
	return int(s[0]-'0')*10 + int(s[1]-'0'), true
}

// Clock builds a TimeOfDay from hours and minutes.
func Clock(h, m int) TimeOfDay { return TimeOfDay(h*60 + m) }

func (t TimeOfDay) String() string { return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60) }

func (t TimeOfDay) MarshalJSON() ([]byte, error) { return json.Marshal(t.String()) }

func (t *TimeOfDay) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Scan accepts TIME columns, which the MySQL driver returns as text even
// with parseTime=true.
func (t *TimeOfDay) Scan(src any) error {
	switch v := src.(type) {
	case []byte:
		return t.scanString(string(v))
	case string:
		return t.scanString(v)
	case time.Time:
		*t = Clock(v.Hour(), v.Minute())
		return nil
	}
	return fmt.Errorf("cannot scan %T into TimeOfDay", src)
}

func (t *TimeOfDay) scanString(s string) error {
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t TimeOfDay) Value() (driver.Value, error) { return t.String() + ":00", nil }
