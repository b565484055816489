package event

import (
	"fmt"
	"strings"
	"time"

	"github.com/xronos/xronos/core"
	"github.com/xronos/xronos/core/timeslot"
)

// Category classifies events. Events in non-busy categories do not make their resources unavailable.
type Category struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	PeckingOrder int       `json:"pecking_order"`
	Schoolwide   bool      `json:"schoolwide"`
	Publish      bool      `json:"publish"`
	Public       bool      `json:"public"`
	ForUsers     bool      `json:"for_users"`
	Unimportant  bool      `json:"unimportant"`
	Busy         bool      `json:"busy"`
	Privileged   bool      `json:"privileged"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type NewCategory struct {
	Name         string `json:"name" validate:"notblank,max=255"`
	PeckingOrder int    `json:"pecking_order"`
	Schoolwide   bool   `json:"schoolwide"`
	Publish      *bool  `json:"publish"`
	Public       bool   `json:"public"`
	ForUsers     *bool  `json:"for_users"`
	Unimportant  bool   `json:"unimportant"`
	Busy         *bool  `json:"busy"`
	Privileged   bool   `json:"privileged"`
}

type Event struct {
	ID           string    `json:"id"`
	Body         string    `json:"body"`
	CategoryID   string    `json:"category_id"`
	OwnerID      string    `json:"owner_id,omitempty"` // empty for system events, e.g. lessons
	OrganiserID  string    `json:"organiser_id,omitempty"`
	StartsAt     time.Time `json:"starts_at"`
	EndsAt       time.Time `json:"ends_at"`
	AllDay       bool      `json:"all_day"`
	Private      bool      `json:"private"`
	NonExistent  bool      `json:"non_existent"`
	CollectionID string    `json:"collection_id,omitempty"`
	Constrained  bool      `json:"constrained"` // some commitment has been confirmed
	Complete     bool      `json:"complete"`    // no commitment awaits action
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Overlaps reports whether the event takes up any time in [start, end).
// An instantaneous event overlaps when it falls inside the range. A zero bound is open.
func (e Event) Overlaps(start, end time.Time) bool {
	if !end.IsZero() && !e.StartsAt.Before(end) {
		return false
	}
	if start.IsZero() {
		return true
	}
	if e.EndsAt.Equal(e.StartsAt) {
		return !e.StartsAt.Before(start)
	}
	return e.EndsAt.After(start)
}

// OnDate reports whether the event touches the given day.
func (e Event) OnDate(date time.Time) bool {
	day := core.Date(date.In(e.StartsAt.Location()))
	return e.Overlaps(day, day.AddDate(0, 0, 1))
}

// TimeSlotOn returns the part of the given day taken by the event.
// All day events and the inner days of multi-day events take the whole day.
func (e Event) TimeSlotOn(date time.Time) (timeslot.Slot, bool) {
	loc := date.Location()
	day := core.Date(date)
	if !e.Overlaps(day, day.AddDate(0, 0, 1)) {
		return timeslot.Slot{}, false
	}
	if e.AllDay {
		return timeslot.Slot{Start: timeslot.Midnight, End: timeslot.EndOfDay}, true
	}
	slot := timeslot.Slot{Start: timeslot.Midnight, End: timeslot.EndOfDay}
	if starts := e.StartsAt.In(loc); core.Date(starts).Equal(day) {
		slot.Start = timeslot.FromTime(starts)
	}
	if ends := e.EndsAt.In(loc); core.Date(ends).Equal(day) {
		slot.End = timeslot.FromTime(ends)
	}
	return slot, true
}

// CouldBeRepeated is true for events starting and ending on the same day.
func (e Event) CouldBeRepeated() bool {
	end := e.EndsAt
	if e.AllDay && end.After(e.StartsAt) {
		end = end.Add(-time.Nanosecond) // all day events end at the following midnight
	}
	return core.Date(e.StartsAt).Equal(core.Date(end.In(e.StartsAt.Location())))
}

// CanBeRepeated additionally requires the event to exist already.
func (e Event) CanBeRepeated() bool {
	return e.ID != "" && e.CouldBeRepeated()
}

func (e Event) Duration() time.Duration { return e.EndsAt.Sub(e.StartsAt) }

// DurationString gives "All day" or the duration in hours and minutes, e.g. "1 hour 30 mins".
func (e Event) DurationString() string {
	if e.AllDay {
		return "All day"
	}
	mins := int(e.Duration().Minutes())
	hours, mins := mins/60, mins%60
	var parts []string
	switch {
	case hours == 1:
		parts = append(parts, "1 hour")
	case hours > 1:
		parts = append(parts, fmt.Sprintf("%d hours", hours))
	}
	switch {
	case mins == 1:
		parts = append(parts, "1 min")
	case mins > 1 || hours == 0:
		parts = append(parts, fmt.Sprintf("%d mins", mins))
	}
	return strings.Join(parts, " ")
}

// IntervalString gives "HH:MM - HH:MM" in loc, or "All day".
func (e Event) IntervalString(loc *time.Location) string {
	if e.AllDay {
		return "All day"
	}
	return e.StartsAt.In(loc).Format("15:04") + " - " + e.EndsAt.In(loc).Format("15:04")
}

// NewEvent contains information needed to create a new Event.
type NewEvent struct {
	Body        string    `json:"body" validate:"notblank,max=255"`
	CategoryID  string    `json:"category_id" validate:"required"`
	OrganiserID string    `json:"organiser_id"`
	StartsAt    time.Time `json:"starts_at" validate:"required"`
	EndsAt      time.Time `json:"ends_at" validate:"required,gtefield=StartsAt"`
	AllDay      bool      `json:"all_day"`
	Private     bool      `json:"private"`
	ElementIDs  []string  `json:"element_ids"` // resources to commit straight away
}

// UpdateEvent defines what information may be provided to modify an existing Event.
type UpdateEvent struct {
	Body        string     `json:"body" validate:"omitempty,max=255"`
	CategoryID  string     `json:"category_id"`
	OrganiserID *string    `json:"organiser_id"`
	StartsAt    *time.Time `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at"`
	AllDay      *bool      `json:"all_day"`
	Private     *bool      `json:"private"`
	NonExistent *bool      `json:"non_existent"`
}

// NewTiming is where an event was dropped when dragged around the calendar.
type NewTiming struct {
	StartsAt time.Time `json:"starts_at" validate:"required"`
	AllDay   bool      `json:"all_day"`
}

// Retimes reports whether the update moves the event in time.
func (ue UpdateEvent) Retimes() bool {
	return ue.StartsAt != nil || ue.EndsAt != nil || ue.AllDay != nil
}

type QueryFilter struct {
	Start              time.Time `query:"start"`
	End                time.Time `query:"end"`
	OwnerID            string    `query:"owner_id"`
	OrganiserID        string    `query:"organiser_id"`
	CategoryIDs        []string  `query:"category_id"`
	ElementIDs         []string  `query:"element_id"` // events with a commitment to any of these
	CollectionID       string    `query:"collection_id"`
	Search             string    `query:"search"`
	IncludeNonExistent bool      `query:"include_non_existent"`
	IDs                []string  `query:"id"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// Status of a commitment in the approval workflow.
type Status string

const (
	StatusUncontrolled Status = "uncontrolled" // element has no owner, nothing to approve
	StatusRequested    Status = "requested"
	StatusConfirmed    Status = "confirmed"
	StatusRejected     Status = "rejected"
	StatusNoted        Status = "noted" // owner has queried the request
)

func (s Status) Valid() bool {
	switch s {
	case StatusUncontrolled, StatusRequested, StatusConfirmed, StatusRejected, StatusNoted:
		return true
	}
	return false
}

// Tentative commitments still need some action.
func (s Status) Tentative() bool {
	return s == StatusRequested || s == StatusRejected || s == StatusNoted
}

// Constraining commitments have been approved.
func (s Status) Constraining() bool { return s == StatusConfirmed }

func (s Status) Uncontrolled() bool { return s == StatusUncontrolled }

// Commitment links an event to an element.
type Commitment struct {
	ID        string    `json:"id"`
	EventID   string    `json:"event_id"`
	ElementID string    `json:"element_id"`
	Status    Status    `json:"status"`
	ByWhomID  string    `json:"by_whom_id,omitempty"` // who approved, rejected or noted
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// read only
	ElementName string `json:"element_name,omitempty"`
	ElementKind string `json:"element_kind,omitempty"`
}

type NewCommitment struct {
	ElementID string `json:"element_id" validate:"required"`
}

type CommitmentReason struct {
	Reason string `json:"reason" validate:"max=1000"`
}

type CommitmentFilter struct {
	IDs                []string
	EventIDs           []string
	ElementIDs         []string
	Statuses           []Status
	Start              time.Time // with End, commitments of events overlapping [Start, End)
	End                time.Time
	IncludeNonExistent bool
}

// NoteKind tells ordinary notes from the ones maintained by the clash checker.
type NoteKind string

const (
	NoteOrdinary NoteKind = "ordinary"
	NoteClashes  NoteKind = "clashes"
)

// ParentType of a note.
type ParentType string

const (
	ParentEvent      ParentType = "event"
	ParentCommitment ParentType = "commitment"
)

type Note struct {
	ID           string     `json:"id"`
	ParentType   ParentType `json:"parent_type"`
	ParentID     string     `json:"parent_id"`
	OwnerID      string     `json:"owner_id,omitempty"`
	Title        string     `json:"title"`
	Contents     string     `json:"contents"`
	Kind         NoteKind   `json:"kind"`
	ReadOnly     bool       `json:"read_only"`
	VisibleStaff bool       `json:"visible_staff"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type NewNote struct {
	Title        string `json:"title" validate:"max=255"`
	Contents     string `json:"contents" validate:"notblank"`
	VisibleStaff *bool  `json:"visible_staff"`
}

type UpdateNote struct {
	Title        *string `json:"title" validate:"omitempty,max=255"`
	Contents     *string `json:"contents"`
	VisibleStaff *bool   `json:"visible_staff"`
}

type NoteFilter struct {
	ParentType ParentType
	ParentIDs  []string
	Kind       NoteKind
}

// Collection repeats a template event on chosen weekdays, every N weeks, between two dates.
type Collection struct {
	ID               string         `json:"id"`
	EventID          string         `json:"event_id"` // template
	RequestingUserID string         `json:"requesting_user_id,omitempty"`
	StartsOn         time.Time      `json:"starts_on"`
	EndsOn           time.Time      `json:"ends_on"`
	Days             []time.Weekday `json:"days"`
	EveryNWeeks      int            `json:"every_n_weeks"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

type NewCollection struct {
	StartsOn    string `json:"starts_on" validate:"required,datetime=2006-01-02"`
	EndsOn      string `json:"ends_on" validate:"required,datetime=2006-01-02"`
	Days        []int  `json:"days" validate:"required,min=1,dive,min=0,max=6"`
	EveryNWeeks int    `json:"every_n_weeks" validate:"omitempty,min=1,max=52"`
}

// Detail is an event with its commitments.
type Detail struct {
	Event
	Commitments []Commitment `json:"commitments"`
}

// InvolvesAny reports whether the event is committed to any of the given elements.
// With firmOnly, tentative commitments do not count.
func (d Detail) InvolvesAny(elementIDs []string, firmOnly bool) bool {
	for _, c := range d.Commitments {
		if firmOnly && c.Status.Tentative() {
			continue
		}
		for _, id := range elementIDs {
			if c.ElementID == id {
				return true
			}
		}
	}
	return false
}

// DirectCommitments returns the event's commitments to elements of the given kind.
func (d Detail) DirectCommitments(kind string) []Commitment {
	var cs []Commitment
	for _, c := range d.Commitments {
		if c.ElementKind == kind {
			cs = append(cs, c)
		}
	}
	return cs
}
