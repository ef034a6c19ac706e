package market

import (
	"fmt"
	"strings"
	"time"
)

// ClockTime is a wall-clock time of day, independent of date and zone.
type ClockTime struct {
	Hour   int
	Minute int
}

func (c ClockTime) minutes() int {
	return c.Hour*60 + c.Minute
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// ParseClockTime parses "HH:MM".
func ParseClockTime(s string) (ClockTime, error) {
	var c ClockTime
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%d:%d", &c.Hour, &c.Minute); err != nil {
		return ClockTime{}, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	if c.Hour < 0 || c.Hour > 23 || c.Minute < 0 || c.Minute > 59 {
		return ClockTime{}, fmt.Errorf("clock time %q out of range", s)
	}
	return c, nil
}

// Interval is an inclusive trading window. Start after End means the window
// wraps past midnight.
type Interval struct {
	Start ClockTime
	End   ClockTime
}

func (iv Interval) contains(c ClockTime) bool {
	m := c.minutes()
	s, e := iv.Start.minutes(), iv.End.minutes()
	if s <= e {
		return s <= m && m <= e
	}
	return m >= s || m <= e
}

// Session answers trading-hour membership and forced-liquidation windows.
// Both checks are pure functions of wall-clock time.
type Session struct {
	hours      []Interval
	dayClose   ClockTime
	nightStart ClockTime
	nightClose *ClockTime
}

// Default futures sessions: day 09:00-11:30 / 13:00-15:00, night 21:00-02:30.
func defaultHours() []Interval {
	return []Interval{
		{ClockTime{9, 0}, ClockTime{11, 30}},
		{ClockTime{13, 0}, ClockTime{15, 0}},
		{ClockTime{21, 0}, ClockTime{23, 59}},
		{ClockTime{0, 0}, ClockTime{2, 30}},
	}
}

// NewSession builds a session policy. An empty hours slice selects the default
// futures schedule. nightClose, when non-nil, enables the pre-close window for
// the night session.
func NewSession(hours []Interval, nightClose *ClockTime) *Session {
	if len(hours) == 0 {
		hours = defaultHours()
	}
	return &Session{
		hours:      hours,
		dayClose:   ClockTime{14, 55},
		nightStart: ClockTime{21, 0},
		nightClose: nightClose,
	}
}

// IsTradingTime reports whether t falls within any configured interval,
// bounds inclusive.
func (s *Session) IsTradingTime(t time.Time) bool {
	c := ClockTime{t.Hour(), t.Minute()}
	for _, iv := range s.hours {
		if iv.contains(c) {
			return true
		}
	}
	return false
}

// ShouldForceClose reports whether open lots must be liquidated at t: at or
// after 14:55 in the day session, or within five minutes before the
// instrument's night close when one is configured.
func (s *Session) ShouldForceClose(t time.Time) bool {
	c := ClockTime{t.Hour(), t.Minute()}
	m := c.minutes()

	dayStart := ClockTime{9, 0}.minutes()
	if m >= dayStart && m < s.nightStart.minutes() {
		return m >= s.dayClose.minutes()
	}

	if s.nightClose == nil {
		return false
	}
	window := Interval{
		Start: fromMinutes(s.nightClose.minutes() - 5),
		End:   *s.nightClose,
	}
	return window.contains(c)
}

func fromMinutes(m int) ClockTime {
	m = ((m % 1440) + 1440) % 1440
	return ClockTime{m / 60, m % 60}
}
