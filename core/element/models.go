package element

import (
	"time"

	"github.com/xronos/xronos/core"
)

// Kind is the sort of entity an Element stands for.
type Kind string

const (
	KindStaff    Kind = "staff"
	KindPupil    Kind = "pupil"
	KindLocation Kind = "location"
	KindGroup    Kind = "group"
	KindProperty Kind = "property"
	KindService  Kind = "service"
	KindSubject  Kind = "subject"
)

var AllKinds = []Kind{KindStaff, KindPupil, KindLocation, KindGroup, KindProperty, KindService, KindSubject}

func (k Kind) Valid() bool {
	for _, kind := range AllKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Atomic kinds are the ones which can actually be double-booked: people and rooms.
func (k Kind) Atomic() bool {
	return k == KindStaff || k == KindPupil || k == KindLocation
}

// Element is any schedulable resource. Kind specific attributes live in optional fields.
type Element struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Kind         Kind   `json:"kind"`
	Current      bool   `json:"current"`
	SourceID     string `json:"source_id,omitempty"`
	Email        string `json:"email,omitempty"`
	Initials     string `json:"initials,omitempty"`
	ShortName    string `json:"short_name,omitempty"`
	Owned        bool   `json:"owned"`         // some concern controls approvals
	RequiresForm bool   `json:"requires_form"` // requests always go through approval

	// groups only
	OwnerID      string     `json:"owner_id,omitempty"`
	UserEditable bool       `json:"user_editable"`
	StartsOn     *time.Time `json:"starts_on,omitempty"`
	EndsOn       *time.Time `json:"ends_on,omitempty"`

	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

func (e Element) IsGroup() bool { return e.Kind == KindGroup }

// ActiveOn reports whether a group exists on the given date. Non-groups are always active.
func (e Element) ActiveOn(date time.Time) bool {
	if !e.IsGroup() {
		return true
	}
	return activeBetween(e.StartsOn, e.EndsOn, date)
}

func activeBetween(startsOn, endsOn *time.Time, date time.Time) bool {
	d := core.Date(date)
	if startsOn != nil && d.Before(core.Date(startsOn.In(date.Location()))) {
		return false
	}
	if endsOn != nil && d.After(core.Date(endsOn.In(date.Location()))) {
		return false
	}
	return true
}

// Membership puts an element in a group for a span of dates.
// An inverse membership excludes the element from a group it would otherwise reach through a sub-group.
type Membership struct {
	ID        string     `json:"id"`
	GroupID   string     `json:"group_id"`
	ElementID string     `json:"element_id"`
	StartsOn  time.Time  `json:"starts_on"`
	EndsOn    *time.Time `json:"ends_on,omitempty"`
	Inverse   bool       `json:"inverse"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (m Membership) ActiveOn(date time.Time) bool {
	return activeBetween(&m.StartsOn, m.EndsOn, date)
}

// Concern is a user's relationship with an element.
type Concern struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	ElementID       string    `json:"element_id"`
	Equality        bool      `json:"equality"` // the element *is* the user
	Owns            bool      `json:"owns"`     // user approves requests for the element
	EditAny         bool      `json:"edit_any"`
	SubeditAny      bool      `json:"subedit_any"`
	SkipPermissions bool      `json:"skip_permissions"`
	Visible         bool      `json:"visible"`
	Colour          string    `json:"colour"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// CanCommit reports whether this concern lets the user make firm commitments to the element.
func (c Concern) CanCommit() bool {
	return c.Owns || c.SkipPermissions
}

// UserCanDelete is false for concerns which grant something; only an admin may remove those.
func (c Concern) UserCanDelete() bool {
	return !(c.Equality || c.Owns || c.EditAny || c.SubeditAny || c.SkipPermissions)
}

// NewElement contains information needed to create a new Element.
type NewElement struct {
	Name         string     `json:"name" validate:"notblank"`
	Kind         Kind       `json:"kind" validate:"required,elementkind"`
	Current      *bool      `json:"current"`
	SourceID     string     `json:"source_id"`
	Email        string     `json:"email" validate:"omitempty,email"`
	Initials     string     `json:"initials" validate:"max=10"`
	ShortName    string     `json:"short_name" validate:"max=30"`
	RequiresForm bool       `json:"requires_form"`
	UserEditable *bool      `json:"user_editable"`
	StartsOn     *time.Time `json:"starts_on"`
	EndsOn       *time.Time `json:"ends_on" validate:"omitempty,gtefield=StartsOn"`
}

// UpdateElement defines what information may be provided to modify an existing Element.
type UpdateElement struct {
	Name         string     `json:"name"`
	Current      *bool      `json:"current"`
	SourceID     *string    `json:"source_id"`
	Email        *string    `json:"email" validate:"omitempty,email"`
	Initials     *string    `json:"initials" validate:"omitempty,max=10"`
	ShortName    *string    `json:"short_name" validate:"omitempty,max=30"`
	RequiresForm *bool      `json:"requires_form"`
	UserEditable *bool      `json:"user_editable"`
	StartsOn     *time.Time `json:"starts_on"`
	EndsOn       *time.Time `json:"ends_on"`
}

type QueryFilter struct {
	Search   string   `query:"search"`
	Kinds    []string `query:"kind"`
	Current  *bool    `query:"current"`
	SourceID string   `query:"source_id"`
	OwnerID  string   `query:"owner_id"`
	IDs      []string `query:"id"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.SourceID = core.CleanString(qf.SourceID)
}

// NewMembership adds an element to a group.
type NewMembership struct {
	ElementID string     `json:"element_id" validate:"required"`
	StartsOn  *time.Time `json:"starts_on"`
	EndsOn    *time.Time `json:"ends_on"`
	Inverse   bool       `json:"inverse"`
}

type MembershipFilter struct {
	GroupIDs   []string
	ElementIDs []string
	Inverse    *bool
}

// NewConcern links the acting user to an element.
type NewConcern struct {
	UserID          string `json:"user_id"` // admins only; defaults to the acting user
	ElementID       string `json:"element_id" validate:"required"`
	Equality        bool   `json:"equality"`
	Owns            bool   `json:"owns"`
	EditAny         bool   `json:"edit_any"`
	SubeditAny      bool   `json:"subedit_any"`
	SkipPermissions bool   `json:"skip_permissions"`
	Visible         *bool  `json:"visible"`
	Colour          string `json:"colour" validate:"omitempty,hexcolor"`
}

// Privileged reports whether the concern grants anything only an admin may hand out.
func (nc NewConcern) Privileged() bool {
	return nc.Equality || nc.Owns || nc.EditAny || nc.SubeditAny || nc.SkipPermissions
}

type UpdateConcern struct {
	Visible         *bool  `json:"visible"`
	Colour          string `json:"colour" validate:"omitempty,hexcolor"`
	Equality        *bool  `json:"equality"`
	Owns            *bool  `json:"owns"`
	EditAny         *bool  `json:"edit_any"`
	SubeditAny      *bool  `json:"subedit_any"`
	SkipPermissions *bool  `json:"skip_permissions"`
}

// Privileged reports whether the update touches flags only an admin may change.
func (uc UpdateConcern) Privileged() bool {
	return uc.Equality != nil || uc.Owns != nil || uc.EditAny != nil || uc.SubeditAny != nil || uc.SkipPermissions != nil
}

type ConcernFilter struct {
	UserID     string
	ElementIDs []string
	Owns       *bool
	Equality   *bool
}
