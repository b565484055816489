package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/xronos/xronos/core"
	"github.com/xronos/xronos/core/element"
)

type elementRepository struct {
	db *DB
}

var _ element.Repository = (*elementRepository)(nil) // interface compliance check

func NewElementRepository(db *DB) element.Repository {
	return &elementRepository{db: db}
}

func (repo *elementRepository) CreateElement(_ context.Context, el element.Element) (element.Element, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	el.ID = newID()
	repo.db.elements[el.ID] = &el
	return el, nil
}

func (repo *elementRepository) GetElement(_ context.Context, id string) (element.Element, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if el, ok := repo.db.elements[id]; ok {
		return *el, nil
	}
	return element.Element{}, element.ErrNotFound
}

func (repo *elementRepository) QueryElements(_ context.Context, filter *element.QueryFilter, ordering []core.DBOrdering) ([]element.Element, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	els := make([]element.Element, 0, len(repo.db.elements))
	var ids map[string]bool
	var search string
	if filter != nil {
		if len(filter.IDs) > 0 {
			ids = idSet(filter.IDs)
		}
		search = strings.ToLower(filter.Search)
	}
	for _, el := range repo.db.elements {
		if filter != nil {
			if ids != nil && !ids[el.ID] {
				continue
			}
			if search != "" && !strings.Contains(strings.ToLower(el.Name), search) {
				continue
			}
			if len(filter.Kinds) > 0 && !stringIn(string(el.Kind), filter.Kinds) {
				continue
			}
			if filter.Current != nil && el.Current != *filter.Current {
				continue
			}
			if filter.SourceID != "" && el.SourceID != filter.SourceID {
				continue
			}
			if filter.OwnerID != "" && el.OwnerID != filter.OwnerID {
				continue
			}
		}
		els = append(els, *el)
	}

	sort.SliceStable(els, func(i, j int) bool { return els[i].Name < els[j].Name })
	for k := len(ordering) - 1; k >= 0; k-- {
		ord := ordering[k]
		sort.SliceStable(els, func(i, j int) bool {
			a, b := els[i], els[j]
			if !ord.Ascending {
				a, b = b, a
			}
			switch ord.Field {
			case "kind":
				return a.Kind < b.Kind
			case "created_at":
				return a.CreatedAt.Before(b.CreatedAt)
			default:
				return a.Name < b.Name
			}
		})
	}
	return els, nil
}

func (repo *elementRepository) UpdateElement(_ context.Context, el element.Element) (element.Element, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.elements[el.ID]; !ok {
		return element.Element{}, element.ErrNotFound
	}
	repo.db.elements[el.ID] = &el
	return el, nil
}

func (repo *elementRepository) DeleteElementsByID(_ context.Context, ids []string) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var cnt int
	for _, id := range ids {
		if _, ok := repo.db.elements[id]; ok {
			delete(repo.db.elements, id)
			cnt++
		}
	}
	for id, m := range repo.db.memberships {
		if stringIn(m.GroupID, ids) || stringIn(m.ElementID, ids) {
			delete(repo.db.memberships, id)
		}
	}
	for id, c := range repo.db.concerns {
		if stringIn(c.ElementID, ids) {
			delete(repo.db.concerns, id)
		}
	}
	for id, c := range repo.db.commitments {
		if stringIn(c.ElementID, ids) {
			delete(repo.db.commitments, id)
		}
	}
	return cnt, nil
}

// Memberships

func (repo *elementRepository) CreateMembership(_ context.Context, m element.Membership) (element.Membership, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	m.ID = newID()
	repo.db.memberships[m.ID] = &m
	return m, nil
}

func (repo *elementRepository) GetMembership(_ context.Context, id string) (element.Membership, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if m, ok := repo.db.memberships[id]; ok {
		return *m, nil
	}
	return element.Membership{}, element.ErrMembershipNotFound
}

func (repo *elementRepository) QueryMemberships(_ context.Context, filter element.MembershipFilter) ([]element.Membership, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	ms := make([]element.Membership, 0)
	for _, m := range repo.db.memberships {
		if len(filter.GroupIDs) > 0 && !stringIn(m.GroupID, filter.GroupIDs) {
			continue
		}
		if len(filter.ElementIDs) > 0 && !stringIn(m.ElementID, filter.ElementIDs) {
			continue
		}
		if filter.Inverse != nil && m.Inverse != *filter.Inverse {
			continue
		}
		ms = append(ms, *m)
	}
	sort.Slice(ms, func(i, j int) bool { return ms[i].StartsOn.Before(ms[j].StartsOn) })
	return ms, nil
}

func (repo *elementRepository) DeleteMembership(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.memberships[id]; !ok {
		return element.ErrMembershipNotFound
	}
	delete(repo.db.memberships, id)
	return nil
}

// Concerns

func (repo *elementRepository) CreateConcern(_ context.Context, c element.Concern) (element.Concern, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	c.ID = newID()
	repo.db.concerns[c.ID] = &c
	return c, nil
}

func (repo *elementRepository) GetConcern(_ context.Context, id string) (element.Concern, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if c, ok := repo.db.concerns[id]; ok {
		return *c, nil
	}
	return element.Concern{}, element.ErrConcernNotFound
}

func (repo *elementRepository) QueryConcerns(_ context.Context, filter element.ConcernFilter) ([]element.Concern, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	cs := make([]element.Concern, 0)
	for _, c := range repo.db.concerns {
		if filter.UserID != "" && c.UserID != filter.UserID {
			continue
		}
		if len(filter.ElementIDs) > 0 && !stringIn(c.ElementID, filter.ElementIDs) {
			continue
		}
		if filter.Owns != nil && c.Owns != *filter.Owns {
			continue
		}
		if filter.Equality != nil && c.Equality != *filter.Equality {
			continue
		}
		cs = append(cs, *c)
	}
	sort.Slice(cs, func(i, j int) bool { return cs[i].CreatedAt.Before(cs[j].CreatedAt) })
	return cs, nil
}

func (repo *elementRepository) UpdateConcern(_ context.Context, c element.Concern) (element.Concern, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.concerns[c.ID]; !ok {
		return element.Concern{}, element.ErrConcernNotFound
	}
	repo.db.concerns[c.ID] = &c
	return c, nil
}

func (repo *elementRepository) DeleteConcern(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.concerns[id]; !ok {
		return element.ErrConcernNotFound
	}
	delete(repo.db.concerns, id)
	return nil
}
