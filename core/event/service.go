package event

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/xronos/xronos/core"
	"github.com/xronos/xronos/core/element"
)

var (
	// errors
	ErrNotFound             = errors.New("event not found")
	ErrCategoryNotFound     = errors.New("event category not found")
	ErrCommitmentNotFound   = errors.New("commitment not found")
	ErrNoteNotFound         = errors.New("note not found")
	ErrCollectionNotFound   = errors.New("event collection not found")
	ErrAlreadyCommitted     = errors.New("element is already committed to this event")
	ErrCategoryExists       = errors.New("an event category with this name already exists")
	ErrCategoryInUse        = errors.New("event category is still used by events")
	ErrNotControlled        = errors.New("commitment is not subject to approval")
	ErrCannotRepeat         = errors.New("event cannot be repeated")
	ErrReadOnlyNote         = errors.New("note is read only")
	ErrInvalidCollectionDay = errors.New("invalid day of week")

	NowFunc = time.Now // mockable
)

type (
	Repository interface {
		CreateCategory(ctx context.Context, cat Category) (Category, error)
		GetCategory(ctx context.Context, id string) (Category, error)
		// QueryCategories returns the categories with the given names, or all of them when none are given.
		QueryCategories(ctx context.Context, names ...string) ([]Category, error)
		DeleteCategory(ctx context.Context, id string) error

		CreateEvent(ctx context.Context, evt Event) (Event, error)
		GetEvent(ctx context.Context, id string) (Event, error)
		QueryEvents(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Event, error)
		UpdateEvent(ctx context.Context, evt Event) (Event, error)
		// DeleteEventsByID also removes the events' commitments and notes.
		DeleteEventsByID(ctx context.Context, ids []string) (int, error)

		CreateCommitment(ctx context.Context, c Commitment) (Commitment, error)
		GetCommitment(ctx context.Context, id string) (Commitment, error)
		QueryCommitments(ctx context.Context, filter CommitmentFilter) ([]Commitment, error)
		UpdateCommitment(ctx context.Context, c Commitment) (Commitment, error)
		// DeleteCommitment also removes the commitment's notes.
		DeleteCommitment(ctx context.Context, id string) error

		CreateNote(ctx context.Context, n Note) (Note, error)
		GetNote(ctx context.Context, id string) (Note, error)
		QueryNotes(ctx context.Context, filter NoteFilter) ([]Note, error)
		UpdateNote(ctx context.Context, n Note) (Note, error)
		DeleteNote(ctx context.Context, id string) error

		CreateCollection(ctx context.Context, coll Collection) (Collection, error)
		GetCollection(ctx context.Context, id string) (Collection, error)
		UpdateCollection(ctx context.Context, coll Collection) (Collection, error)
	}

	// Elements resolves the resources events are committed to.
	Elements interface {
		Get(ctx context.Context, id string) (element.Element, error)
		Query(ctx context.Context, filter *element.QueryFilter, ordering []core.DBOrdering) ([]element.Element, error)
		Members(ctx context.Context, groupID string, date time.Time, recurse bool) ([]element.Element, error)
		WithGroups(ctx context.Context, elementIDs []string, date time.Time) ([]string, error)
		QueryConcerns(ctx context.Context, filter element.ConcernFilter) ([]element.Concern, error)
	}

	// Directory looks up who to e-mail about a user's requests.
	Directory interface {
		Address(ctx context.Context, userID string) (mail.Address, error)
	}

	// PendingInvalidator drops cached pending counts.
	PendingInvalidator interface {
		Invalidate(ctx context.Context, userIDs ...string) error
	}

	// Requester is the user asking for a commitment.
	Requester interface {
		UserID() string
		NeedsPermissionFor(el element.Element) bool
	}

	Deps struct {
		Elements  Elements
		Directory Directory
		Mail      core.EmailService
		Pending   PendingInvalidator
		Logger    core.Logger
		Conf      *core.Config
	}

	Service struct {
		repo Repository
		Deps
	}
)

func NewService(repo Repository, deps Deps) *Service {
	return &Service{repo: repo, Deps: deps}
}

func (svc *Service) location() *time.Location {
	if svc.Conf != nil && svc.Conf.Scheduling.Location != nil {
		return svc.Conf.Scheduling.Location
	}
	return time.UTC
}

func (svc *Service) enforcePermissions() bool {
	return svc.Conf != nil && svc.Conf.Scheduling.EnforcePermissions
}

// Categories

func (svc *Service) CreateCategory(ctx context.Context, nc NewCategory) (Category, error) {
	nc.Name = core.CleanString(nc.Name)
	existing, err := svc.repo.QueryCategories(ctx, nc.Name)
	if err != nil {
		return Category{}, errors.Wrap(err, "checking category uniqueness")
	}
	if len(existing) > 0 {
		return Category{}, core.NewValidationError(ErrCategoryExists, core.FieldError{Field: "name", Error: ErrCategoryExists.Error()})
	}

	now := NowFunc().UTC()
	cat := Category{
		Name:         nc.Name,
		PeckingOrder: nc.PeckingOrder,
		Schoolwide:   nc.Schoolwide,
		Publish:      true,
		Public:       nc.Public,
		ForUsers:     true,
		Unimportant:  nc.Unimportant,
		Busy:         true,
		Privileged:   nc.Privileged,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if nc.Publish != nil {
		cat.Publish = *nc.Publish
	}
	if nc.ForUsers != nil {
		cat.ForUsers = *nc.ForUsers
	}
	if nc.Busy != nil {
		cat.Busy = *nc.Busy
	}
	return svc.repo.CreateCategory(ctx, cat)
}

func (svc *Service) GetCategory(ctx context.Context, id string) (Category, error) {
	return svc.repo.GetCategory(ctx, id)
}

func (svc *Service) QueryCategories(ctx context.Context, names ...string) ([]Category, error) {
	return svc.repo.QueryCategories(ctx, names...)
}

func (svc *Service) DeleteCategory(ctx context.Context, id string) error {
	return svc.repo.DeleteCategory(ctx, id)
}

// Events

// Create saves a new event owned by the requester and commits the requested elements to it.
func (svc *Service) Create(ctx context.Context, req Requester, ne NewEvent) (Detail, error) {
	if _, err := svc.repo.GetCategory(ctx, ne.CategoryID); err != nil {
		return Detail{}, fieldErr(err, ErrCategoryNotFound, "category_id")
	}
	if ne.OrganiserID != "" {
		if _, err := svc.Elements.Get(ctx, ne.OrganiserID); err != nil {
			return Detail{}, fieldErr(err, element.ErrNotFound, "organiser_id")
		}
	}

	seen := make(map[string]bool, len(ne.ElementIDs))
	for _, elementID := range ne.ElementIDs {
		if seen[elementID] {
			return Detail{}, core.NewValidationError(ErrAlreadyCommitted, core.FieldError{Field: "element_ids", Error: ErrAlreadyCommitted.Error()})
		}
		seen[elementID] = true
		if _, err := svc.Elements.Get(ctx, elementID); err != nil {
			return Detail{}, fieldErr(err, element.ErrNotFound, "element_ids")
		}
	}

	now := NowFunc().UTC()
	evt := Event{
		Body:        core.CleanString(ne.Body),
		CategoryID:  ne.CategoryID,
		OwnerID:     req.UserID(),
		OrganiserID: ne.OrganiserID,
		StartsAt:    ne.StartsAt,
		EndsAt:      ne.EndsAt,
		AllDay:      ne.AllDay,
		Private:     ne.Private,
		Complete:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if evt.AllDay {
		evt.StartsAt, evt.EndsAt = svc.allDayBounds(evt.StartsAt, evt.EndsAt)
	}
	evt, err := svc.repo.CreateEvent(ctx, evt)
	if err != nil {
		return Detail{}, errors.Wrap(err, "creating event")
	}

	for _, elementID := range ne.ElementIDs {
		if _, err := svc.AddCommitment(ctx, req, evt.ID, elementID); err != nil {
			if _, derr := svc.repo.DeleteEventsByID(ctx, []string{evt.ID}); derr != nil && svc.Logger != nil {
				svc.Logger.Error("failed to remove partly created event", derr)
			}
			return Detail{}, err
		}
	}
	return svc.GetDetail(ctx, evt.ID)
}

// allDayBounds stretches the span to cover whole days in the scheduling location.
func (svc *Service) allDayBounds(starts, ends time.Time) (time.Time, time.Time) {
	loc := svc.location()
	starts = core.Date(starts.In(loc))
	last := core.Date(ends.In(loc))
	if ends.In(loc).Equal(last) && last.After(starts) {
		return starts, last // already ends at midnight
	}
	return starts, last.AddDate(0, 0, 1)
}

func (svc *Service) Get(ctx context.Context, id string) (Event, error) {
	return svc.repo.GetEvent(ctx, id)
}

func (svc *Service) GetDetail(ctx context.Context, id string) (Detail, error) {
	evt, err := svc.repo.GetEvent(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	cs, err := svc.repo.QueryCommitments(ctx, CommitmentFilter{EventIDs: []string{id}, IncludeNonExistent: true})
	if err != nil {
		return Detail{}, errors.Wrap(err, "querying commitments")
	}
	return Detail{Event: evt, Commitments: cs}, nil
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Event, error) {
	return svc.repo.QueryEvents(ctx, filter, ordering)
}

// Update modifies an event. Moving an event in time sends every decided commitment back for approval.
func (svc *Service) Update(ctx context.Context, id string, ue UpdateEvent) (Event, error) {
	evt, err := svc.repo.GetEvent(ctx, id)
	if err != nil {
		return Event{}, err
	}
	if body := core.CleanString(ue.Body); body != "" {
		evt.Body = body
	}
	if ue.CategoryID != "" && ue.CategoryID != evt.CategoryID {
		if _, err := svc.repo.GetCategory(ctx, ue.CategoryID); err != nil {
			return Event{}, fieldErr(err, ErrCategoryNotFound, "category_id")
		}
		evt.CategoryID = ue.CategoryID
	}
	if ue.OrganiserID != nil {
		if *ue.OrganiserID != "" {
			if _, err := svc.Elements.Get(ctx, *ue.OrganiserID); err != nil {
				return Event{}, fieldErr(err, element.ErrNotFound, "organiser_id")
			}
		}
		evt.OrganiserID = *ue.OrganiserID
	}
	if ue.Private != nil {
		evt.Private = *ue.Private
	}
	if ue.NonExistent != nil {
		evt.NonExistent = *ue.NonExistent
	}

	retimed := false
	if ue.Retimes() {
		starts, ends, allDay := evt.StartsAt, evt.EndsAt, evt.AllDay
		if ue.StartsAt != nil {
			starts = *ue.StartsAt
		}
		if ue.EndsAt != nil {
			ends = *ue.EndsAt
		}
		if ue.AllDay != nil {
			allDay = *ue.AllDay
		}
		if ends.Before(starts) {
			return Event{}, core.NewValidationError(nil, core.FieldError{Field: "ends_at", Error: "cannot be before starts_at"})
		}
		if allDay {
			starts, ends = svc.allDayBounds(starts, ends)
		}
		retimed = !starts.Equal(evt.StartsAt) || !ends.Equal(evt.EndsAt) || allDay != evt.AllDay
		evt.StartsAt, evt.EndsAt, evt.AllDay = starts, ends, allDay
	}
	evt.UpdatedAt = NowFunc().UTC()

	evt, err = svc.repo.UpdateEvent(ctx, evt)
	if err != nil {
		return Event{}, errors.Wrap(err, "updating event")
	}
	if retimed {
		if err := svc.resubmitCommitments(ctx, evt); err != nil {
			return Event{}, err
		}
		return svc.refreshFlags(ctx, evt.ID)
	}
	return evt, nil
}

// Move drops an event at a new start, keeping its length. A timed event dropped among the all
// day events becomes a one day event; an all day event dropped into the day lasts an hour.
func (svc *Service) Move(ctx context.Context, id string, nt NewTiming) (Event, error) {
	evt, err := svc.repo.GetEvent(ctx, id)
	if err != nil {
		return Event{}, err
	}
	starts, ends := nt.StartsAt, nt.StartsAt
	switch {
	case nt.AllDay && evt.AllDay:
		days := int((evt.Duration() + 12*time.Hour) / (24 * time.Hour)) // whole days, whatever the clocks did
		if days < 1 {
			days = 1
		}
		starts = core.Date(starts.In(svc.location()))
		ends = starts.AddDate(0, 0, days)
	case nt.AllDay:
		// one day, from allDayBounds
	case evt.AllDay:
		ends = starts.Add(time.Hour)
	default:
		ends = starts.Add(evt.Duration())
	}
	allDay := nt.AllDay
	return svc.Update(ctx, id, UpdateEvent{StartsAt: &starts, EndsAt: &ends, AllDay: &allDay})
}

// Clone saves a copy of an event owned by the requester, committed to the same elements.
// The copy's commitments go through approval afresh; notes and the collection stay behind.
func (svc *Service) Clone(ctx context.Context, req Requester, id string) (Detail, error) {
	d, err := svc.GetDetail(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	elementIDs := make([]string, 0, len(d.Commitments))
	for _, c := range d.Commitments {
		elementIDs = append(elementIDs, c.ElementID)
	}
	return svc.Create(ctx, req, NewEvent{
		Body:        d.Body,
		CategoryID:  d.CategoryID,
		OrganiserID: d.OrganiserID,
		StartsAt:    d.StartsAt,
		EndsAt:      d.EndsAt,
		AllDay:      d.AllDay,
		Private:     d.Private,
		ElementIDs:  elementIDs,
	})
}

// resubmitCommitments puts decided commitments back to requested after a retime.
func (svc *Service) resubmitCommitments(ctx context.Context, evt Event) error {
	cs, err := svc.repo.QueryCommitments(ctx, CommitmentFilter{
		EventIDs:           []string{evt.ID},
		Statuses:           []Status{StatusConfirmed, StatusRejected, StatusNoted},
		IncludeNonExistent: true,
	})
	if err != nil {
		return errors.Wrap(err, "querying decided commitments")
	}
	affected := []string{evt.OwnerID}
	for _, c := range cs {
		c.Status = StatusRequested
		c.ByWhomID = ""
		c.Reason = ""
		c.UpdatedAt = NowFunc().UTC()
		if _, err := svc.repo.UpdateCommitment(ctx, c); err != nil {
			return errors.Wrap(err, "resubmitting commitment")
		}
		owners, err := svc.elementOwners(ctx, c.ElementID)
		if err != nil {
			return err
		}
		affected = append(affected, owners...)
	}
	svc.invalidatePending(ctx, affected...)
	return nil
}

// Delete removes events along with their commitments and notes.
func (svc *Service) Delete(ctx context.Context, ids ...string) (int, error) {
	affected := make([]string, 0, len(ids))
	evts, err := svc.repo.QueryEvents(ctx, &QueryFilter{IDs: ids, IncludeNonExistent: true}, nil)
	if err != nil {
		return 0, errors.Wrap(err, "querying events")
	}
	for _, evt := range evts {
		affected = append(affected, evt.OwnerID)
	}
	cs, err := svc.repo.QueryCommitments(ctx, CommitmentFilter{EventIDs: ids, Statuses: []Status{StatusRequested}, IncludeNonExistent: true})
	if err != nil {
		return 0, errors.Wrap(err, "querying commitments")
	}
	for _, c := range cs {
		owners, err := svc.elementOwners(ctx, c.ElementID)
		if err != nil {
			return 0, err
		}
		affected = append(affected, owners...)
	}

	cnt, err := svc.repo.DeleteEventsByID(ctx, ids)
	if err != nil {
		return 0, errors.Wrap(err, "deleting events")
	}
	svc.invalidatePending(ctx, affected...)
	return cnt, nil
}

// Commitments

// AddCommitment commits an element to an event, with a status depending on whether the
// element is controlled and whether the requester may commit it directly.
func (svc *Service) AddCommitment(ctx context.Context, req Requester, eventID, elementID string) (Commitment, error) {
	evt, err := svc.repo.GetEvent(ctx, eventID)
	if err != nil {
		return Commitment{}, err
	}
	el, err := svc.Elements.Get(ctx, elementID)
	if err != nil {
		return Commitment{}, fieldErr(err, element.ErrNotFound, "element_id")
	}
	existing, err := svc.repo.QueryCommitments(ctx, CommitmentFilter{
		EventIDs:           []string{evt.ID},
		ElementIDs:         []string{el.ID},
		IncludeNonExistent: true,
	})
	if err != nil {
		return Commitment{}, errors.Wrap(err, "checking existing commitments")
	}
	if len(existing) > 0 {
		return Commitment{}, core.NewValidationError(ErrAlreadyCommitted, core.FieldError{Field: "element_id", Error: ErrAlreadyCommitted.Error()})
	}

	now := NowFunc().UTC()
	c := Commitment{
		EventID:     evt.ID,
		ElementID:   el.ID,
		Status:      svc.initialStatus(req, el),
		CreatedAt:   now,
		UpdatedAt:   now,
		ElementName: el.Name,
		ElementKind: string(el.Kind),
	}
	if c.Status == StatusConfirmed {
		c.ByWhomID = req.UserID()
	}
	c, err = svc.repo.CreateCommitment(ctx, c)
	if err != nil {
		return Commitment{}, errors.Wrap(err, "creating commitment")
	}
	if _, err := svc.refreshFlags(ctx, evt.ID); err != nil {
		return Commitment{}, err
	}

	if c.Status == StatusRequested {
		owners, err := svc.elementOwners(ctx, el.ID)
		if err != nil {
			return Commitment{}, err
		}
		svc.notifyRequest(ctx, evt, el, req.UserID(), owners)
		svc.invalidatePending(ctx, append(owners, evt.OwnerID)...)
	}
	return c, nil
}

func (svc *Service) initialStatus(req Requester, el element.Element) Status {
	if !svc.enforcePermissions() || !el.Owned {
		return StatusUncontrolled
	}
	if req.NeedsPermissionFor(el) {
		return StatusRequested
	}
	return StatusConfirmed
}

func (svc *Service) GetCommitment(ctx context.Context, id string) (Commitment, error) {
	return svc.repo.GetCommitment(ctx, id)
}

func (svc *Service) QueryCommitments(ctx context.Context, filter CommitmentFilter) ([]Commitment, error) {
	return svc.repo.QueryCommitments(ctx, filter)
}

func (svc *Service) Approve(ctx context.Context, approverID, commitmentID string) (Commitment, error) {
	return svc.decide(ctx, approverID, commitmentID, StatusConfirmed, "")
}

func (svc *Service) Reject(ctx context.Context, approverID, commitmentID, reason string) (Commitment, error) {
	return svc.decide(ctx, approverID, commitmentID, StatusRejected, reason)
}

// NoteCommitment marks a commitment as noted: the owner wants more information before deciding.
func (svc *Service) NoteCommitment(ctx context.Context, approverID, commitmentID, reason string) (Commitment, error) {
	return svc.decide(ctx, approverID, commitmentID, StatusNoted, reason)
}

func (svc *Service) decide(ctx context.Context, approverID, commitmentID string, status Status, reason string) (Commitment, error) {
	c, err := svc.repo.GetCommitment(ctx, commitmentID)
	if err != nil {
		return Commitment{}, err
	}
	if c.Status.Uncontrolled() {
		return Commitment{}, core.NewValidationError(ErrNotControlled)
	}
	evt, err := svc.repo.GetEvent(ctx, c.EventID)
	if err != nil {
		return Commitment{}, errors.Wrap(err, "finding commitment event")
	}

	now := NowFunc().UTC()
	c.Status = status
	c.ByWhomID = approverID
	c.Reason = core.CleanString(reason)
	c.UpdatedAt = now
	c, err = svc.repo.UpdateCommitment(ctx, c)
	if err != nil {
		return Commitment{}, errors.Wrap(err, "updating commitment")
	}

	if c.Reason != "" {
		if _, err := svc.repo.CreateNote(ctx, Note{
			ParentType:   ParentCommitment,
			ParentID:     c.ID,
			OwnerID:      approverID,
			Title:        string(status),
			Contents:     c.Reason,
			Kind:         NoteOrdinary,
			VisibleStaff: true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}); err != nil {
			return Commitment{}, errors.Wrap(err, "saving reason")
		}
	}
	if _, err := svc.refreshFlags(ctx, evt.ID); err != nil {
		return Commitment{}, err
	}

	owners, err := svc.elementOwners(ctx, c.ElementID)
	if err != nil {
		return Commitment{}, err
	}
	svc.invalidatePending(ctx, append(owners, evt.OwnerID)...)
	svc.notifyDecision(ctx, evt, c, approverID)
	return c, nil
}

func (svc *Service) RemoveCommitment(ctx context.Context, id string) error {
	c, err := svc.repo.GetCommitment(ctx, id)
	if err != nil {
		return err
	}
	evt, err := svc.repo.GetEvent(ctx, c.EventID)
	if err != nil {
		return errors.Wrap(err, "finding commitment event")
	}
	if err := svc.repo.DeleteCommitment(ctx, id); err != nil {
		return errors.Wrap(err, "deleting commitment")
	}
	if _, err := svc.refreshFlags(ctx, evt.ID); err != nil {
		return err
	}
	if c.Status.Tentative() {
		owners, err := svc.elementOwners(ctx, c.ElementID)
		if err != nil {
			return err
		}
		svc.invalidatePending(ctx, append(owners, evt.OwnerID)...)
	}
	return nil
}

// refreshFlags recomputes the event's constrained and complete flags from its commitments.
func (svc *Service) refreshFlags(ctx context.Context, eventID string) (Event, error) {
	evt, err := svc.repo.GetEvent(ctx, eventID)
	if err != nil {
		return Event{}, errors.Wrap(err, "finding event")
	}
	cs, err := svc.repo.QueryCommitments(ctx, CommitmentFilter{EventIDs: []string{eventID}, IncludeNonExistent: true})
	if err != nil {
		return Event{}, errors.Wrap(err, "querying commitments")
	}
	constrained, complete := false, true
	for _, c := range cs {
		if c.Status.Constraining() {
			constrained = true
		}
		if c.Status.Tentative() {
			complete = false
		}
	}
	if evt.Constrained == constrained && evt.Complete == complete {
		return evt, nil
	}
	evt.Constrained, evt.Complete = constrained, complete
	evt.UpdatedAt = NowFunc().UTC()
	evt, err = svc.repo.UpdateEvent(ctx, evt)
	return evt, errors.Wrap(err, "updating event flags")
}

func (svc *Service) elementOwners(ctx context.Context, elementID string) ([]string, error) {
	owns := true
	cs, err := svc.Elements.QueryConcerns(ctx, element.ConcernFilter{ElementIDs: []string{elementID}, Owns: &owns})
	if err != nil {
		return nil, errors.Wrap(err, "querying element owners")
	}
	ids := make([]string, 0, len(cs))
	for _, c := range cs {
		ids = append(ids, c.UserID)
	}
	return ids, nil
}

func (svc *Service) invalidatePending(ctx context.Context, userIDs ...string) {
	if svc.Pending == nil {
		return
	}
	ids := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		if id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return
	}
	if err := svc.Pending.Invalidate(ctx, ids...); err != nil && svc.Logger != nil {
		svc.Logger.Warn("invalidating pending counts", err)
	}
}

// Notes

func (svc *Service) AddNote(ctx context.Context, ownerID string, parentType ParentType, parentID string, nn NewNote) (Note, error) {
	switch parentType {
	case ParentEvent:
		if _, err := svc.repo.GetEvent(ctx, parentID); err != nil {
			return Note{}, err
		}
	case ParentCommitment:
		if _, err := svc.repo.GetCommitment(ctx, parentID); err != nil {
			return Note{}, err
		}
	default:
		return Note{}, core.NewValidationError(nil, core.FieldError{Field: "parent_type", Error: "unknown parent type"})
	}

	now := NowFunc().UTC()
	n := Note{
		ParentType:   parentType,
		ParentID:     parentID,
		OwnerID:      ownerID,
		Title:        core.CleanString(nn.Title),
		Contents:     nn.Contents,
		Kind:         NoteOrdinary,
		VisibleStaff: true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if nn.VisibleStaff != nil {
		n.VisibleStaff = *nn.VisibleStaff
	}
	return svc.repo.CreateNote(ctx, n)
}

func (svc *Service) GetNote(ctx context.Context, id string) (Note, error) {
	return svc.repo.GetNote(ctx, id)
}

func (svc *Service) Notes(ctx context.Context, parentType ParentType, parentID string) ([]Note, error) {
	return svc.repo.QueryNotes(ctx, NoteFilter{ParentType: parentType, ParentIDs: []string{parentID}})
}

func (svc *Service) UpdateNote(ctx context.Context, id string, un UpdateNote) (Note, error) {
	n, err := svc.repo.GetNote(ctx, id)
	if err != nil {
		return Note{}, err
	}
	if n.ReadOnly {
		return Note{}, core.NewValidationError(ErrReadOnlyNote)
	}
	if un.Title != nil {
		n.Title = core.CleanString(*un.Title)
	}
	if un.Contents != nil {
		n.Contents = *un.Contents
	}
	if un.VisibleStaff != nil {
		n.VisibleStaff = *un.VisibleStaff
	}
	n.UpdatedAt = NowFunc().UTC()
	return svc.repo.UpdateNote(ctx, n)
}

func (svc *Service) DeleteNote(ctx context.Context, id string) error {
	return svc.repo.DeleteNote(ctx, id)
}

// fieldErr turns a not found error into a validation error on field.
func fieldErr(err, notFound error, field string) error {
	if errors.Cause(err) == notFound {
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return err
}
