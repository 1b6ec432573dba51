package schedule

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const minutesPerDay = 24 * 60

var (
	ErrInvalidClock = errors.New("invalid time of day, expected H:MM or HH:MM")
	ErrInvalidRange = errors.New("invalid schedule, expected HH:MM - HH:MM with start before end")
)

// Clock is a wall-clock time of day, in minutes since midnight.
type Clock int

// NewClock returns the Clock for hour:minute.
func NewClock(hour, minute int) Clock {
	return Clock(hour*60 + minute)
}

// ClockOf returns the wall-clock time of t in its own location.
func ClockOf(t time.Time) Clock {
	return NewClock(t.Hour(), t.Minute())
}

// ParseClock parses "H:MM" or "HH:MM" (24h). A trailing ":SS" is accepted and dropped.
func ParseClock(s string) (Clock, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, errors.Wrapf(ErrInvalidClock, "parsing %q", s)
	}
	if l := len(parts[0]); l < 1 || l > 2 || len(parts[1]) != 2 {
		return 0, errors.Wrapf(ErrInvalidClock, "parsing %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, errors.Wrapf(ErrInvalidClock, "parsing %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, errors.Wrapf(ErrInvalidClock, "parsing %q", s)
	}
	if len(parts) == 3 {
		if sec, err := strconv.Atoi(parts[2]); err != nil || len(parts[2]) != 2 || sec < 0 || sec > 59 {
			return 0, errors.Wrapf(ErrInvalidClock, "parsing %q", s)
		}
	}
	return NewClock(h, m), nil
}

func (c Clock) Hour() int   { return int(c.normalized()) / 60 }
func (c Clock) Minute() int { return int(c.normalized()) % 60 }

// normalized folds window bounds that spill over midnight back into a single day, for display only.
func (c Clock) normalized() Clock {
	return ((c % minutesPerDay) + minutesPerDay) % minutesPerDay
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

func (c Clock) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Clock) UnmarshalText(text []byte) error {
	parsed, err := ParseClock(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func (c Clock) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *Clock) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errors.Wrap(ErrInvalidClock, err.Error())
	}
	return c.UnmarshalText([]byte(s))
}

// UnmarshalParam lets echo bind query and path params into a Clock.
func (c *Clock) UnmarshalParam(param string) error {
	return c.UnmarshalText([]byte(param))
}
