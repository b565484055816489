package element

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/xronos/xronos/core"
)

var (
	// errors
	ErrNotFound           = errors.New("element not found")
	ErrMembershipNotFound = errors.New("membership not found")
	ErrConcernNotFound    = errors.New("concern not found")
	ErrConcernExists      = errors.New("user already has a concern with this element")
	ErrNotAGroup          = errors.New("element is not a group")
	ErrSelfMembership     = errors.New("a group cannot be a member of itself")

	NowFunc = time.Now // mockable
)

type (
	Repository interface {
		CreateElement(ctx context.Context, el Element) (Element, error)
		GetElement(ctx context.Context, id string) (Element, error)
		QueryElements(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Element, error)
		UpdateElement(ctx context.Context, el Element) (Element, error)
		// DeleteElementsByID also removes the memberships and concerns of the deleted elements.
		DeleteElementsByID(ctx context.Context, ids []string) (int, error)

		CreateMembership(ctx context.Context, m Membership) (Membership, error)
		GetMembership(ctx context.Context, id string) (Membership, error)
		QueryMemberships(ctx context.Context, filter MembershipFilter) ([]Membership, error)
		DeleteMembership(ctx context.Context, id string) error

		CreateConcern(ctx context.Context, c Concern) (Concern, error)
		GetConcern(ctx context.Context, id string) (Concern, error)
		QueryConcerns(ctx context.Context, filter ConcernFilter) ([]Concern, error)
		UpdateConcern(ctx context.Context, c Concern) (Concern, error)
		DeleteConcern(ctx context.Context, id string) error
	}

	// OwnerFlagger keeps a user's "element owner" flag in step with their owning concerns.
	OwnerFlagger interface {
		SetElementOwner(ctx context.Context, userID string, owner bool) error
	}

	// PendingInvalidator drops cached pending counts, which depend on the elements a user owns.
	PendingInvalidator interface {
		Invalidate(ctx context.Context, userIDs ...string) error
	}

	Service struct {
		repo    Repository
		owners  OwnerFlagger
		pending PendingInvalidator
	}
)

func NewService(repo Repository, owners OwnerFlagger) *Service {
	return &Service{repo: repo, owners: owners}
}

// SetPending completes a service built before the pending counts tracker existed.
func (svc *Service) SetPending(pending PendingInvalidator) { svc.pending = pending }

func (svc *Service) Create(ctx context.Context, ne NewElement, ownerID string) (Element, error) {
	now := NowFunc().UTC()
	el := Element{
		Name:         core.CleanString(ne.Name),
		Kind:         ne.Kind,
		Current:      true,
		SourceID:     ne.SourceID,
		Email:        core.CleanString(ne.Email, true /* lower */),
		Initials:     ne.Initials,
		ShortName:    ne.ShortName,
		RequiresForm: ne.RequiresForm,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if ne.Current != nil {
		el.Current = *ne.Current
	}
	if el.IsGroup() {
		el.OwnerID = ownerID
		el.UserEditable = true
		if ne.UserEditable != nil {
			el.UserEditable = *ne.UserEditable
		}
		starts := core.Date(now)
		if ne.StartsOn != nil {
			starts = *ne.StartsOn
		}
		el.StartsOn = &starts
		el.EndsOn = ne.EndsOn
	}
	el, err := svc.repo.CreateElement(ctx, el)
	if err != nil {
		return Element{}, errors.Wrap(err, "creating element")
	}
	return el, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Element, error) {
	return svc.repo.GetElement(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Element, error) {
	return svc.repo.QueryElements(ctx, filter, ordering)
}

func (svc *Service) Update(ctx context.Context, id string, ue UpdateElement) (Element, error) {
	el, err := svc.repo.GetElement(ctx, id)
	if err != nil {
		return Element{}, err
	}
	if name := core.CleanString(ue.Name); name != "" {
		el.Name = name
	}
	if ue.Current != nil {
		el.Current = *ue.Current
	}
	if ue.SourceID != nil {
		el.SourceID = *ue.SourceID
	}
	if ue.Email != nil {
		el.Email = core.CleanString(*ue.Email, true /* lower */)
	}
	if ue.Initials != nil {
		el.Initials = *ue.Initials
	}
	if ue.ShortName != nil {
		el.ShortName = *ue.ShortName
	}
	if ue.RequiresForm != nil {
		el.RequiresForm = *ue.RequiresForm
	}
	if el.IsGroup() {
		if ue.UserEditable != nil {
			el.UserEditable = *ue.UserEditable
		}
		if ue.StartsOn != nil {
			el.StartsOn = ue.StartsOn
		}
		if ue.EndsOn != nil {
			el.EndsOn = ue.EndsOn
		}
		if el.StartsOn != nil && el.EndsOn != nil && el.EndsOn.Before(*el.StartsOn) {
			return Element{}, core.NewValidationError(nil, core.FieldError{Field: "ends_on", Error: "cannot be before starts_on"})
		}
	}
	el.UpdatedAt = NowFunc().UTC()
	return svc.repo.UpdateElement(ctx, el)
}

// Delete removes elements and refreshes the element owner flag of every user who owned one of them.
func (svc *Service) Delete(ctx context.Context, ids ...string) (int, error) {
	owning, err := svc.repo.QueryConcerns(ctx, ConcernFilter{ElementIDs: ids, Owns: boolPtr(true)})
	if err != nil {
		return 0, errors.Wrap(err, "querying owning concerns")
	}
	cnt, err := svc.repo.DeleteElementsByID(ctx, ids)
	if err != nil {
		return 0, errors.Wrap(err, "deleting elements")
	}
	for _, c := range owning {
		if err := svc.refreshUserOwnership(ctx, c.UserID); err != nil {
			return cnt, err
		}
	}
	return cnt, nil
}

// Groups

func (svc *Service) AddMember(ctx context.Context, groupID string, nm NewMembership) (Membership, error) {
	grp, err := svc.repo.GetElement(ctx, groupID)
	if err != nil {
		return Membership{}, err
	}
	if !grp.IsGroup() {
		return Membership{}, ErrNotAGroup
	}
	if nm.ElementID == groupID {
		return Membership{}, core.NewValidationError(ErrSelfMembership, core.FieldError{Field: "element_id", Error: ErrSelfMembership.Error()})
	}
	if _, err := svc.repo.GetElement(ctx, nm.ElementID); err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Membership{}, core.NewValidationError(err, core.FieldError{Field: "element_id", Error: err.Error()})
		}
		return Membership{}, err
	}

	now := NowFunc().UTC()
	m := Membership{
		GroupID:   groupID,
		ElementID: nm.ElementID,
		StartsOn:  core.Date(now),
		EndsOn:    nm.EndsOn,
		Inverse:   nm.Inverse,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if nm.StartsOn != nil {
		m.StartsOn = *nm.StartsOn
	}
	if m.EndsOn != nil && m.EndsOn.Before(m.StartsOn) {
		return Membership{}, core.NewValidationError(nil, core.FieldError{Field: "ends_on", Error: "cannot be before starts_on"})
	}
	return svc.repo.CreateMembership(ctx, m)
}

func (svc *Service) RemoveMember(ctx context.Context, groupID, membershipID string) error {
	m, err := svc.repo.GetMembership(ctx, membershipID)
	if err != nil {
		return err
	}
	if m.GroupID != groupID {
		return ErrMembershipNotFound
	}
	return svc.repo.DeleteMembership(ctx, membershipID)
}

func (svc *Service) Memberships(ctx context.Context, groupID string) ([]Membership, error) {
	return svc.repo.QueryMemberships(ctx, MembershipFilter{GroupIDs: []string{groupID}})
}

// Members returns the members of a group on a date.
// Without recursion these are the direct members of any kind; with recursion, sub-groups
// are flattened away and only non-group elements are returned.
func (svc *Service) Members(ctx context.Context, groupID string, date time.Time, recurse bool) ([]Element, error) {
	grp, err := svc.repo.GetElement(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !grp.IsGroup() {
		return nil, ErrNotAGroup
	}

	var ids []string
	if recurse {
		set, err := svc.atomicMembers(ctx, groupID, date, map[string]bool{})
		if err != nil {
			return nil, err
		}
		ids = keys(set)
	} else {
		included, excluded, err := svc.directMembers(ctx, []string{groupID}, date)
		if err != nil {
			return nil, err
		}
		for id := range included {
			if !excluded[id] {
				ids = append(ids, id)
			}
		}
	}
	return svc.loadActive(ctx, ids, date, recurse)
}

func (svc *Service) directMembers(ctx context.Context, groupIDs []string, date time.Time) (included, excluded map[string]bool, err error) {
	ms, err := svc.repo.QueryMemberships(ctx, MembershipFilter{GroupIDs: groupIDs})
	if err != nil {
		return nil, nil, errors.Wrap(err, "querying memberships")
	}
	included, excluded = map[string]bool{}, map[string]bool{}
	for _, m := range ms {
		if !m.ActiveOn(date) {
			continue
		}
		if m.Inverse {
			excluded[m.ElementID] = true
		} else {
			included[m.ElementID] = true
		}
	}
	return included, excluded, nil
}

func (svc *Service) atomicMembers(ctx context.Context, groupID string, date time.Time, seen map[string]bool) (map[string]bool, error) {
	seen[groupID] = true
	included, excluded, err := svc.directMembers(ctx, []string{groupID}, date)
	if err != nil {
		return nil, err
	}
	if len(included) == 0 {
		return map[string]bool{}, nil
	}
	members, err := svc.repo.QueryElements(ctx, &QueryFilter{IDs: keys(included)}, nil)
	if err != nil {
		return nil, errors.Wrap(err, "querying members")
	}

	result := map[string]bool{}
	for _, el := range members {
		if el.IsGroup() {
			if seen[el.ID] || !el.ActiveOn(date) {
				continue
			}
			sub, err := svc.atomicMembers(ctx, el.ID, date, seen)
			if err != nil {
				return nil, err
			}
			for id := range sub {
				result[id] = true
			}
		} else {
			result[el.ID] = true
		}
	}
	for id := range excluded {
		delete(result, id)
	}
	return result, nil
}

// GroupsOf returns the groups an element belongs to on a date, optionally following
// groups of groups. Inverse memberships stop the walk at the group they exclude from.
func (svc *Service) GroupsOf(ctx context.Context, elementID string, date time.Time, recurse bool) ([]Element, error) {
	ids, err := svc.groupIDsOf(ctx, []string{elementID}, date, recurse)
	if err != nil {
		return nil, err
	}
	return svc.loadActive(ctx, ids, date, false)
}

func (svc *Service) groupIDsOf(ctx context.Context, elementIDs []string, date time.Time, recurse bool) ([]string, error) {
	seen := make(map[string]bool, len(elementIDs))
	for _, id := range elementIDs {
		seen[id] = true
	}
	var found []string
	frontier := elementIDs
	for len(frontier) > 0 {
		ms, err := svc.repo.QueryMemberships(ctx, MembershipFilter{ElementIDs: frontier})
		if err != nil {
			return nil, errors.Wrap(err, "querying memberships")
		}
		excluded := map[[2]string]bool{}
		for _, m := range ms {
			if m.Inverse && m.ActiveOn(date) {
				excluded[[2]string{m.ElementID, m.GroupID}] = true
			}
		}
		var next []string
		for _, m := range ms {
			if m.Inverse || !m.ActiveOn(date) || seen[m.GroupID] || excluded[[2]string{m.ElementID, m.GroupID}] {
				continue
			}
			seen[m.GroupID] = true
			found = append(found, m.GroupID)
			next = append(next, m.GroupID)
		}
		if !recurse {
			break
		}
		frontier = next
	}
	return found, nil
}

// WithGroups returns the given element IDs followed by every group any of them belongs to on date.
func (svc *Service) WithGroups(ctx context.Context, elementIDs []string, date time.Time) ([]string, error) {
	groups, err := svc.groupIDsOf(ctx, elementIDs, date, true)
	if err != nil {
		return nil, err
	}
	all := make([]string, 0, len(elementIDs)+len(groups))
	all = append(all, elementIDs...)
	return append(all, groups...), nil
}

func (svc *Service) loadActive(ctx context.Context, ids []string, date time.Time, atomicOnly bool) ([]Element, error) {
	if len(ids) == 0 {
		return []Element{}, nil
	}
	els, err := svc.repo.QueryElements(ctx, &QueryFilter{IDs: ids}, []core.DBOrdering{{Field: "name", Ascending: true}})
	if err != nil {
		return nil, errors.Wrap(err, "querying elements")
	}
	active := make([]Element, 0, len(els))
	for _, el := range els {
		if !el.ActiveOn(date) || (atomicOnly && el.IsGroup()) {
			continue
		}
		active = append(active, el)
	}
	return active, nil
}

// Concerns

func (svc *Service) CreateConcern(ctx context.Context, userID string, nc NewConcern) (Concern, error) {
	el, err := svc.repo.GetElement(ctx, nc.ElementID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Concern{}, core.NewValidationError(err, core.FieldError{Field: "element_id", Error: err.Error()})
		}
		return Concern{}, err
	}
	existing, err := svc.repo.QueryConcerns(ctx, ConcernFilter{UserID: userID, ElementIDs: []string{el.ID}})
	if err != nil {
		return Concern{}, errors.Wrap(err, "checking concern uniqueness")
	}
	if len(existing) > 0 {
		return Concern{}, core.NewValidationError(ErrConcernExists, core.FieldError{Field: "element_id", Error: ErrConcernExists.Error()})
	}

	colour := nc.Colour
	if colour == "" {
		mine, err := svc.repo.QueryConcerns(ctx, ConcernFilter{UserID: userID})
		if err != nil {
			return Concern{}, errors.Wrap(err, "querying user concerns")
		}
		colour = FreeColour(mine)
	}

	now := NowFunc().UTC()
	c := Concern{
		UserID:          userID,
		ElementID:       el.ID,
		Equality:        nc.Equality,
		Owns:            nc.Owns,
		EditAny:         nc.EditAny,
		SubeditAny:      nc.SubeditAny,
		SkipPermissions: nc.SkipPermissions,
		Visible:         true,
		Colour:          colour,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if nc.Visible != nil {
		c.Visible = *nc.Visible
	}
	c, err = svc.repo.CreateConcern(ctx, c)
	if err != nil {
		return Concern{}, errors.Wrap(err, "creating concern")
	}
	if c.Owns {
		if err := svc.ownershipChanged(ctx, c); err != nil {
			return Concern{}, err
		}
	}
	return c, nil
}

func (svc *Service) GetConcern(ctx context.Context, id string) (Concern, error) {
	return svc.repo.GetConcern(ctx, id)
}

func (svc *Service) QueryConcerns(ctx context.Context, filter ConcernFilter) ([]Concern, error) {
	return svc.repo.QueryConcerns(ctx, filter)
}

func (svc *Service) UpdateConcern(ctx context.Context, id string, uc UpdateConcern) (Concern, error) {
	c, err := svc.repo.GetConcern(ctx, id)
	if err != nil {
		return Concern{}, err
	}
	ownedBefore := c.Owns

	if uc.Visible != nil {
		c.Visible = *uc.Visible
	}
	if uc.Colour != "" {
		c.Colour = uc.Colour
	}
	if uc.Equality != nil {
		c.Equality = *uc.Equality
	}
	if uc.Owns != nil {
		c.Owns = *uc.Owns
	}
	if uc.EditAny != nil {
		c.EditAny = *uc.EditAny
	}
	if uc.SubeditAny != nil {
		c.SubeditAny = *uc.SubeditAny
	}
	if uc.SkipPermissions != nil {
		c.SkipPermissions = *uc.SkipPermissions
	}
	c.UpdatedAt = NowFunc().UTC()

	c, err = svc.repo.UpdateConcern(ctx, c)
	if err != nil {
		return Concern{}, errors.Wrap(err, "updating concern")
	}
	if c.Owns != ownedBefore {
		if err := svc.ownershipChanged(ctx, c); err != nil {
			return Concern{}, err
		}
	}
	return c, nil
}

func (svc *Service) DeleteConcern(ctx context.Context, id string) error {
	c, err := svc.repo.GetConcern(ctx, id)
	if err != nil {
		return err
	}
	if err := svc.repo.DeleteConcern(ctx, id); err != nil {
		return errors.Wrap(err, "deleting concern")
	}
	if c.Owns {
		return svc.ownershipChanged(ctx, c)
	}
	return nil
}

// OwnElement returns the element the user *is* (staff or pupil), if any.
func (svc *Service) OwnElement(ctx context.Context, userID string) (Element, error) {
	cs, err := svc.repo.QueryConcerns(ctx, ConcernFilter{UserID: userID, Equality: boolPtr(true)})
	if err != nil {
		return Element{}, errors.Wrap(err, "querying own concern")
	}
	if len(cs) == 0 {
		return Element{}, ErrNotFound
	}
	return svc.repo.GetElement(ctx, cs[0].ElementID)
}

// ownershipChanged keeps element.Owned and the user's element owner flag in step after
// an owning concern came or went.
func (svc *Service) ownershipChanged(ctx context.Context, c Concern) error {
	el, err := svc.repo.GetElement(ctx, c.ElementID)
	if err != nil {
		if errors.Cause(err) != ErrNotFound {
			return errors.Wrap(err, "finding concern element")
		}
	} else {
		owners, err := svc.repo.QueryConcerns(ctx, ConcernFilter{ElementIDs: []string{el.ID}, Owns: boolPtr(true)})
		if err != nil {
			return errors.Wrap(err, "querying element owners")
		}
		if owned := len(owners) > 0; owned != el.Owned {
			el.Owned = owned
			el.UpdatedAt = NowFunc().UTC()
			if _, err := svc.repo.UpdateElement(ctx, el); err != nil {
				return errors.Wrap(err, "updating element ownership")
			}
		}
	}
	return svc.refreshUserOwnership(ctx, c.UserID)
}

// refreshUserOwnership runs whenever the set of elements a user owns changes, so their
// permissions pending count is dropped from the cache too.
func (svc *Service) refreshUserOwnership(ctx context.Context, userID string) error {
	if svc.pending != nil {
		if err := svc.pending.Invalidate(ctx, userID); err != nil {
			return errors.Wrap(err, "invalidating pending counts")
		}
	}
	if svc.owners == nil {
		return nil
	}
	owned, err := svc.repo.QueryConcerns(ctx, ConcernFilter{UserID: userID, Owns: boolPtr(true)})
	if err != nil {
		return errors.Wrap(err, "querying owned concerns")
	}
	return errors.Wrap(svc.owners.SetElementOwner(ctx, userID, len(owned) > 0), "setting element owner flag")
}

func keys(set map[string]bool) []string {
	ks := make([]string, 0, len(set))
	for k := range set {
		ks = append(ks, k)
	}
	return ks
}

func boolPtr(b bool) *bool { return &b }
