package user

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/xronos/xronos/core"
)

// Permissions are the capability flags of a user, stored as a JSON column.
type Permissions struct {
	Admin              bool `json:"admin"`
	Editor             bool `json:"editor"`
	EditAllEvents      bool `json:"edit_all_events"`
	SubeditAllEvents   bool `json:"subedit_all_events"`
	CanRepeatEvents    bool `json:"can_repeat_events"`
	CanRelocateLessons bool `json:"can_relocate_lessons"`
	CanAddConcerns     bool `json:"can_add_concerns"`
	CanAddResources    bool `json:"can_add_resources"`
	CanAddNotes        bool `json:"can_add_notes"`
	CanHasGroups       bool `json:"can_has_groups"`
	CanFindFree        bool `json:"can_find_free"`
	ArrangesCover      bool `json:"arranges_cover"`
	Exams              bool `json:"exams"`
	Privileged         bool `json:"privileged"`
	Secretary          bool `json:"secretary"`
	CanRoam            bool `json:"can_roam"`
	CanSu              bool `json:"can_su"`
	CanViewUnconfirmed bool `json:"can_view_unconfirmed"`
	PublicGroups       bool `json:"public_groups"`
}

// StaffDefaults are the permissions given to a new member of staff.
func StaffDefaults() Permissions {
	return Permissions{
		Editor:          true,
		CanRepeatEvents: true,
		CanAddConcerns:  true,
		CanAddNotes:     true,
		CanHasGroups:    true,
		CanFindFree:     true,
	}
}

type User struct {
	ID                   string      `json:"id"`
	Name                 string      `json:"name"`
	Username             string      `json:"username"`
	Email                string      `json:"email"`
	IsActive             bool        `json:"is_active"`
	Staff                bool        `json:"staff"`
	FirstDay             int         `json:"first_day"` // first day of the week shown, 0 = Sunday
	CorrespondingStaffID string      `json:"corresponding_staff_id,omitempty"`
	Permissions          Permissions `json:"permissions"`
	ElementOwner         bool        `json:"element_owner"` // owns at least one element
	PasswordHash         []byte      `json:"-"`
	CreatedAt            time.Time   `json:"created_at"` // UTC
	UpdatedAt            time.Time   `json:"updated_at"` // UTC
	LastLogin            time.Time   `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) IsAdmin() bool { return u.Permissions.Admin }

// Known reports whether the user is a logged in member of the school rather than a guest.
func (u *User) Known() bool { return u.ID != "" && u.IsActive }

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name            string       `json:"name" validate:"required"`
	Username        string       `json:"username" validate:"omitempty,min=3,alphanum_"`
	Email           string       `json:"email" validate:"omitempty,email"`
	Password        string       `json:"password" validate:"required"`
	PasswordConfirm string       `json:"password_confirm" validate:"required,eqfield=Password"`
	Staff           bool         `json:"staff"`
	FirstDay        int          `json:"first_day" validate:"min=0,max=6"`
	Permissions     *Permissions `json:"permissions"`
}

func (nu *NewUser) Clean() {
	nu.Name = core.CleanString(nu.Name)
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
}

// UpdateUser defines what information may be provided to modify an existing User.
type UpdateUser struct {
	Name                 string       `json:"name"`
	Username             string       `json:"username" validate:"omitempty,min=3,alphanum_"`
	Email                string       `json:"email" validate:"omitempty,email"`
	IsActive             *bool        `json:"is_active"`
	Staff                *bool        `json:"staff"`
	FirstDay             *int         `json:"first_day" validate:"omitempty,min=0,max=6"`
	CorrespondingStaffID *string      `json:"corresponding_staff_id"`
	Permissions          *Permissions `json:"permissions"`
	Password             string       `json:"password" validate:"omitempty"`
	PasswordConfirm      string       `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

// Clean fills blank identity fields from the original user, so that they validate as a whole.
func (uu *UpdateUser) Clean(orig User) {
	if name := core.CleanString(uu.Name); name != "" {
		uu.Name = name
	} else {
		uu.Name = orig.Name
	}
	if uname := core.CleanString(uu.Username, true /* lower */); uname != "" {
		uu.Username = uname
	} else {
		uu.Username = orig.Username
	}
	if email := core.CleanString(uu.Email, true /* lower */); email != "" {
		uu.Email = email
	} else {
		uu.Email = orig.Email
	}
}

// LoginUser is used to authenticate with a username or e-mail address.
type LoginUser struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type QueryFilter struct {
	Search      string    `query:"search"`
	IsActive    *bool     `query:"is_active"`
	Staff       *bool     `query:"staff"`
	Admin       *bool     `query:"admin"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.IsActive == nil && qf.Staff == nil && qf.Admin == nil &&
		qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// GetFilter picks a single user by one of its unique fields.
type GetFilter struct {
	ID              string
	Username        string
	Email           string
	UsernameOrEmail string
}
