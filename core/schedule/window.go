package schedule

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

const (
	// Offset is how far (in minutes) a window reaches around a scheduled boundary.
	Offset = 60
	// ExitOffset is the extra reach past the end granted to exit (retiro) actions.
	ExitOffset = 60
)

// Window is an inclusive span of wall-clock minutes within one calendar day.
// Bounds may fall outside [00:00, 24:00) when a course starts or ends close to midnight.
type Window struct {
	From Clock `json:"from"`
	To   Clock `json:"to"`
}

func (w Window) Contains(c Clock) bool {
	return w.From <= c && c <= w.To
}

// Range is a course's scheduled time range, eg. "8:00 - 12:00".
type Range struct {
	Start Clock
	End   Clock
}

// ParseRange parses "HH:MM - HH:MM". Start must come before End.
func ParseRange(s string) (Range, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 2 {
		return Range{}, errors.Wrapf(ErrInvalidRange, "parsing %q", s)
	}
	start, err := ParseClock(parts[0])
	if err != nil {
		return Range{}, errors.Wrapf(ErrInvalidRange, "parsing %q", s)
	}
	end, err := ParseClock(parts[1])
	if err != nil {
		return Range{}, errors.Wrapf(ErrInvalidRange, "parsing %q", s)
	}
	if end <= start {
		return Range{}, errors.Wrapf(ErrInvalidRange, "parsing %q", s)
	}
	return Range{Start: start, End: end}, nil
}

// MustParseRange is like ParseRange but panics on error. Meant for tests and fixtures.
func MustParseRange(s string) Range {
	r, err := ParseRange(s)
	if err != nil {
		panic(err)
	}
	return r
}

func (r Range) IsZero() bool { return r.Start == 0 && r.End == 0 }

func (r Range) String() string {
	return r.Start.String() + " - " + r.End.String()
}

// Span is the window around the whole course: an hour before the start up to an hour after the end,
// plus one more hour for exit actions.
func (r Range) Span(isExit bool) Window {
	return Window{From: r.Start - Offset, To: r.End + endReach(isExit)}
}

// CheckIn is the ingress window: one hour either side of the start.
func (r Range) CheckIn() Window {
	return Window{From: r.Start - Offset, To: r.Start + Offset}
}

// CheckOut is the egress window: one hour before the end up to one hour after it (two for exit actions).
func (r Range) CheckOut(isExit bool) Window {
	return Window{From: r.End - Offset, To: r.End + endReach(isExit)}
}

// InWindow reports whether now falls in the course span.
func (r Range) InWindow(now Clock, isExit bool) bool {
	return r.Span(isExit).Contains(now)
}

func endReach(isExit bool) Clock {
	if isExit {
		return Offset + ExitOffset
	}
	return Offset
}

func (r Range) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Range) UnmarshalText(text []byte) error {
	parsed, err := ParseRange(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

func (r Range) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *Range) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errors.Wrap(ErrInvalidRange, err.Error())
	}
	return r.UnmarshalText([]byte(s))
}

// Windows groups every action window of a course.
type Windows struct {
	Schedule Range  `json:"schedule"`
	Span     Window `json:"span"`
	ExitSpan Window `json:"exit_span"`
	CheckIn  Window `json:"check_in"`
	CheckOut Window `json:"check_out"`
	Exit     Window `json:"exit"`
}

func (r Range) Windows() Windows {
	return Windows{
		Schedule: r,
		Span:     r.Span(false),
		ExitSpan: r.Span(true),
		CheckIn:  r.CheckIn(),
		CheckOut: r.CheckOut(false),
		Exit:     r.CheckOut(true),
	}
}
