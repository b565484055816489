// Package timeslot implements time-of-day arithmetic: slots within a day and sets of disjoint slots.
package timeslot

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	Midnight TimeOfDay = 0
	EndOfDay TimeOfDay = 24 * 60 * 60
)

var (
	ErrInvalidTimeOfDay = errors.New("invalid time of day")
	ErrBackwards        = errors.New("backwards time slot")
)

// TimeOfDay is a number of seconds since midnight, in [Midnight, EndOfDay].
type TimeOfDay int

// ParseTimeOfDay parses "HH:MM" or "HH:MM:SS". "24:00" is the end of the day.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, errors.Wrap(ErrInvalidTimeOfDay, s)
	}
	vals := make([]int, 3)
	for i, p := range parts {
		if len(p) != 2 {
			return 0, errors.Wrap(ErrInvalidTimeOfDay, s)
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, errors.Wrap(ErrInvalidTimeOfDay, s)
		}
		vals[i] = n
	}
	if vals[1] > 59 || vals[2] > 59 {
		return 0, errors.Wrap(ErrInvalidTimeOfDay, s)
	}
	tod := TimeOfDay(vals[0]*3600 + vals[1]*60 + vals[2])
	if tod > EndOfDay {
		return 0, errors.Wrap(ErrInvalidTimeOfDay, s)
	}
	return tod, nil
}

// MustParse is like ParseTimeOfDay but panics on error.
func MustParse(s string) TimeOfDay {
	tod, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return tod
}

// FromTime returns the time of day of t, in t's location.
func FromTime(t time.Time) TimeOfDay {
	h, m, s := t.Clock()
	return TimeOfDay(h*3600 + m*60 + s)
}

// On returns the wall clock instant at this time of day on the date of `date` (in date's location).
// On days when the clocks change it is not the same as adding t to midnight.
func (t TimeOfDay) On(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, int(t)/3600, (int(t)%3600)/60, int(t)%60, 0, date.Location())
}

func (t TimeOfDay) String() string {
	h, m, s := int(t)/3600, (int(t)%3600)/60, int(t)%60
	if s != 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", h, m)
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	tod, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = tod
	return nil
}

// Slot is the half-open interval [Start, End) within a day.
type Slot struct {
	Start TimeOfDay `json:"starts_at"`
	End   TimeOfDay `json:"ends_at"`
}

func NewSlot(start, end TimeOfDay) (Slot, error) {
	if end < start {
		return Slot{}, ErrBackwards
	}
	return Slot{Start: start, End: end}, nil
}

// ParseSlot parses two times of day.
func ParseSlot(start, end string) (Slot, error) {
	st, err := ParseTimeOfDay(start)
	if err != nil {
		return Slot{}, err
	}
	et, err := ParseTimeOfDay(end)
	if err != nil {
		return Slot{}, err
	}
	return NewSlot(st, et)
}

func (s Slot) Duration() time.Duration { return time.Duration(s.End-s.Start) * time.Second }
func (s Slot) Empty() bool             { return s.End <= s.Start }

// Overlaps reports whether the two slots share any time. Touching slots do not overlap.
func (s Slot) Overlaps(o Slot) bool {
	return s.Start < o.End && o.Start < s.End
}

func (s Slot) Contains(o Slot) bool {
	return s.Start <= o.Start && o.End <= s.End
}

// Minus removes o from s, leaving zero, one or two slots.
func (s Slot) Minus(o Slot) []Slot {
	if !s.Overlaps(o) {
		if s.Empty() {
			return nil
		}
		return []Slot{s}
	}
	var rest []Slot
	if s.Start < o.Start {
		rest = append(rest, Slot{Start: s.Start, End: o.Start})
	}
	if o.End < s.End {
		rest = append(rest, Slot{Start: o.End, End: s.End})
	}
	return rest
}

func (s Slot) String() string {
	return s.Start.String() + " - " + s.End.String()
}

// Set is a sorted list of disjoint, non-touching, non-empty slots.
// The zero value is an empty set.
type Set []Slot

// NewSet normalises the given slots into a Set.
func NewSet(slots ...Slot) Set {
	var set Set
	for _, s := range slots {
		set = set.Add(s)
	}
	return set
}

// Add merges s into the set.
func (set Set) Add(s Slot) Set {
	if s.Empty() {
		return set
	}
	merged := make(Set, 0, len(set)+1)
	for _, cur := range set {
		if cur.End < s.Start || s.End < cur.Start {
			merged = append(merged, cur)
			continue
		}
		// overlapping or touching: absorb into s
		if cur.Start < s.Start {
			s.Start = cur.Start
		}
		if cur.End > s.End {
			s.End = cur.End
		}
	}
	merged = append(merged, s)
	sort.Slice(merged, func(i, j int) bool { return merged[i].Start < merged[j].Start })
	return merged
}

// Subtract removes s from every slot in the set.
func (set Set) Subtract(s Slot) Set {
	if s.Empty() {
		return set
	}
	rest := make(Set, 0, len(set)+1)
	for _, cur := range set {
		rest = append(rest, cur.Minus(s)...)
	}
	return rest
}

func (set Set) SubtractSet(o Set) Set {
	for _, s := range o {
		set = set.Subtract(s)
	}
	return set
}

// AtLeast keeps only the slots lasting d or longer.
func (set Set) AtLeast(d time.Duration) Set {
	kept := make(Set, 0, len(set))
	for _, s := range set {
		if s.Duration() >= d {
			kept = append(kept, s)
		}
	}
	return kept
}

func (set Set) Duration() time.Duration {
	var total time.Duration
	for _, s := range set {
		total += s.Duration()
	}
	return total
}

func (set Set) Empty() bool { return len(set) == 0 }

func (set Set) String() string {
	parts := make([]string, 0, len(set))
	for _, s := range set {
		parts = append(parts, s.String())
	}
	return strings.Join(parts, ", ")
}
