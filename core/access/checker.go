// Package access decides what a user may do with events, elements and their satellites.
package access

import (
	"context"

	"github.com/pkg/errors"

	"github.com/xronos/xronos/core"
	"github.com/xronos/xronos/core/element"
	"github.com/xronos/xronos/core/event"
	"github.com/xronos/xronos/core/user"
)

// Checker answers permission questions for one user. It is built per request and not
// meant to outlive it: concerns are loaded once.
type Checker struct {
	User     user.User
	Concerns []element.Concern

	// OwnElementID is the element the user is, StaffElementID the staff element
	// corresponding to the user. Either may be empty.
	OwnElementID   string
	StaffElementID string

	EnforcePermissions  bool
	RoomCoverConfigured bool
}

var _ event.Requester = (*Checker)(nil) // interface compliance check

// ConcernSource lists the concerns of a user.
type ConcernSource interface {
	QueryConcerns(ctx context.Context, filter element.ConcernFilter) ([]element.Concern, error)
}

// NewChecker loads the concerns of usr and reads the scheduling settings from conf.
func NewChecker(ctx context.Context, usr user.User, concerns ConcernSource, conf *core.Config) (*Checker, error) {
	chk := &Checker{User: usr, StaffElementID: usr.CorrespondingStaffID}
	if conf != nil {
		chk.EnforcePermissions = conf.Scheduling.EnforcePermissions
		chk.RoomCoverConfigured = conf.Scheduling.RoomCoverGroupElementID != ""
	}
	if usr.ID == "" {
		return chk, nil
	}
	cs, err := concerns.QueryConcerns(ctx, element.ConcernFilter{UserID: usr.ID})
	if err != nil {
		return nil, errors.Wrap(err, "loading user concerns")
	}
	chk.Concerns = cs
	for _, c := range cs {
		if c.Equality {
			chk.OwnElementID = c.ElementID
			break
		}
	}
	return chk, nil
}

func (chk *Checker) UserID() string { return chk.User.ID }

func (chk *Checker) perms() user.Permissions { return chk.User.Permissions }

func (chk *Checker) Admin() bool { return chk.perms().Admin }

// Known users are the ones linked to an element of their own.
func (chk *Checker) Known() bool { return chk.OwnElementID != "" }

func (chk *Checker) Staff() bool { return chk.StaffElementID != "" || chk.User.Staff }

// Owns reports whether the user approves requests for the element.
func (chk *Checker) Owns(elementID string) bool {
	for _, c := range chk.Concerns {
		if c.Owns && c.ElementID == elementID {
			return true
		}
	}
	return false
}

func (chk *Checker) OwnsEvent(evt event.Event) bool {
	return chk.User.ID != "" && evt.OwnerID == chk.User.ID
}

// SeesMenu is true for users with something to do beyond looking at schedules.
func (chk *Checker) SeesMenu() bool {
	p := chk.perms()
	return p.Admin || p.Editor || p.CanHasGroups || p.CanFindFree || chk.User.ElementOwner || p.Exams
}

func (chk *Checker) CreateEvents() bool { return chk.perms().Editor || chk.perms().Admin }

func (chk *Checker) CreateGroups() bool { return chk.Staff() || chk.perms().Admin }

func (chk *Checker) CanTriggerCoverCheck() bool { return chk.perms().ArrangesCover }

func (chk *Checker) CanAddResources() bool { return chk.perms().Admin || chk.perms().CanAddResources }

// ElementsGivingEdit are the elements whose events the user may edit.
// An element with both edit flags set only appears here.
func (chk *Checker) ElementsGivingEdit() []string {
	var ids []string
	for _, c := range chk.Concerns {
		if c.EditAny {
			ids = append(ids, c.ElementID)
		}
	}
	return ids
}

// ElementsGivingSubedit are the elements whose events the user may sub-edit.
func (chk *Checker) ElementsGivingSubedit() []string {
	var ids []string
	for _, c := range chk.Concerns {
		if c.SubeditAny && !c.EditAny {
			ids = append(ids, c.ElementID)
		}
	}
	return ids
}

func (chk *Checker) OwnedElements() []string {
	var ids []string
	for _, c := range chk.Concerns {
		if c.Owns {
			ids = append(ids, c.ElementID)
		}
	}
	return ids
}

// CanEditEvent covers unsaved events too: anyone may fill in a new one.
func (chk *Checker) CanEditEvent(d event.Detail) bool {
	return chk.Admin() ||
		chk.perms().EditAllEvents ||
		d.ID == "" ||
		(chk.CreateEvents() && chk.OwnsEvent(d.Event)) ||
		(chk.CreateEvents() && d.InvolvesAny(chk.ElementsGivingEdit(), true))
}

func (chk *Checker) CanEditGroup(grp element.Element) bool {
	return chk.Admin() ||
		(chk.CreateGroups() && grp.OwnerID == chk.User.ID && grp.UserEditable)
}

func (chk *Checker) CanEditConcern(c element.Concern) bool {
	return c.UserID == chk.User.ID || chk.Admin()
}

// CanEditNote needs the element of the parent commitment for commitment notes; pass "" otherwise.
func (chk *Checker) CanEditNote(n event.Note, commitmentElementID string) bool {
	if n.ReadOnly {
		return false
	}
	return n.OwnerID == chk.User.ID ||
		(n.ParentType == event.ParentCommitment && commitmentElementID != "" && chk.Owns(commitmentElementID))
}

// CanSubedit allows changing an event's resources without the right to change the event itself.
func (chk *Checker) CanSubedit(d event.Detail) bool {
	return chk.CanEditEvent(d) ||
		chk.perms().SubeditAllEvents ||
		chk.OrganiserOf(d.Event) ||
		(chk.CreateEvents() && d.InvolvesAny(chk.ElementsGivingSubedit(), true))
}

func (chk *Checker) CanRepeat(d event.Detail) bool {
	return chk.perms().CanRepeatEvents && chk.CanSubedit(d) && d.CanBeRepeated()
}

// CouldRepeat does not require the event to have been saved yet.
func (chk *Checker) CouldRepeat(d event.Detail) bool {
	return chk.perms().CanRepeatEvents && chk.CanSubedit(d) && d.CouldBeRepeated()
}

// CanRelocate reports whether the user may move a lesson to another room: a system event with
// exactly one room, taught by the user or with the relocation flag, and a room cover group configured.
func (chk *Checker) CanRelocate(d event.Detail) bool {
	if d.OwnerID != "" || len(d.DirectCommitments(string(element.KindLocation))) != 1 || !chk.RoomCoverConfigured {
		return false
	}
	if chk.perms().CanRelocateLessons {
		return true
	}
	if chk.StaffElementID == "" {
		return false
	}
	for _, c := range d.DirectCommitments(string(element.KindStaff)) {
		if c.ElementID == chk.StaffElementID {
			return true
		}
	}
	return false
}

func (chk *Checker) OrganiserOf(evt event.Event) bool {
	return chk.StaffElementID != "" && chk.StaffElementID == evt.OrganiserID
}

// CanDeleteConcern: users who cannot add concerns cannot delete their own either. Admins may
// delete anyone else's but are bound like everybody else for their own.
func (chk *Checker) CanDeleteConcern(c element.Concern) bool {
	if c.UserID == chk.User.ID {
		return chk.perms().CanAddConcerns && c.UserCanDelete()
	}
	return chk.Admin()
}

// CanDeleteNote only covers event notes; commitment notes go with their commitment.
func (chk *Checker) CanDeleteNote(n event.Note) bool {
	return n.OwnerID == chk.User.ID && n.ParentType == event.ParentEvent && chk.perms().CanAddNotes
}

// CanDeleteCommitment: editors always may. Sub-editors may not remove approved commitments, nor
// commitments to owned elements which bypassed approval.
func (chk *Checker) CanDeleteCommitment(c event.Commitment, d event.Detail, el element.Element) bool {
	if d.ID == "" || el.ID == "" {
		return false
	}
	return chk.CanEditEvent(d) ||
		(chk.CanSubedit(d) && !c.Status.Constraining() && !(el.Owned && c.Status.Uncontrolled()))
}

// CanRetime is the thorough check used for the edit dialogue.
func (chk *Checker) CanRetime(d event.Detail) bool {
	switch {
	case d.ID == "":
		return true
	case chk.Admin() || chk.perms().EditAllEvents ||
		(chk.CreateEvents() && d.InvolvesAny(chk.ElementsGivingEdit(), true)):
		return true
	case chk.CreateEvents() && chk.OwnsEvent(d.Event):
		return !d.Constrained
	}
	return false
}

// CanDragTiming is the cheaper check used for dragging events around; it may refuse
// what CanRetime allows.
func (chk *Checker) CanDragTiming(evt event.Event) bool {
	switch {
	case chk.Admin() || chk.perms().EditAllEvents:
		return true
	case chk.CreateEvents() && chk.OwnsEvent(evt) && evt.CollectionID == "":
		return !evt.Constrained
	}
	return false
}

func (chk *Checker) CanApprove(c event.Commitment) bool { return chk.Owns(c.ElementID) }

// CanCommit is looser than CanApprove: some users skip permissions without approving.
func (chk *Checker) CanCommit(elementID string) bool {
	for _, c := range chk.Concerns {
		if c.ElementID == elementID && c.CanCommit() {
			return true
		}
	}
	return false
}

func (chk *Checker) CanCompleteFormsFor(evt event.Event) bool {
	return chk.OwnsEvent(evt) || chk.OrganiserOf(evt)
}

// CanViewJournalFor covers elements and events, singly or as a whole. Admins only for now.
func (chk *Checker) CanViewJournalFor() bool { return chk.Admin() }

// CanDrag reports whether the user may drag the concern's element onto the schedule.
func (chk *Checker) CanDrag(c element.Concern) bool {
	return chk.perms().CanAddResources || (chk.OwnElementID != "" && chk.OwnElementID == c.ElementID)
}

// NeedsPermissionFor: even users who may commit go through approval when the element wants a form.
func (chk *Checker) NeedsPermissionFor(el element.Element) bool {
	return chk.EnforcePermissions && el.Owned && (!chk.CanCommit(el.ID) || el.RequiresForm)
}

// CanAddNote allows notes on events the user may edit, sub-edit or complete forms for.
func (chk *Checker) CanAddNote(d event.Detail) bool {
	return chk.perms().CanAddNotes && (chk.CanSubedit(d) || chk.CanCompleteFormsFor(d.Event))
}

// CanCreateConcern: admins may hand out privileged concerns and concerns for other users.
func (chk *Checker) CanCreateConcern(nc element.NewConcern) bool {
	if chk.Admin() {
		return true
	}
	return chk.perms().CanAddConcerns && (nc.UserID == "" || nc.UserID == chk.User.ID) && !nc.Privileged()
}

// CanUpdateConcern: only admins may change the privileged flags.
func (chk *Checker) CanUpdateConcern(c element.Concern, uc element.UpdateConcern) bool {
	if !chk.CanEditConcern(c) {
		return false
	}
	return chk.Admin() || !uc.Privileged()
}

func (chk *Checker) CanFindFree() bool { return chk.perms().CanFindFree || chk.Admin() }
