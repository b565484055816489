package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/xronos/xronos/core"
	"github.com/xronos/xronos/core/event"
)

type eventRepository struct {
	db *DB
}

var _ event.Repository = (*eventRepository)(nil) // interface compliance check

func NewEventRepository(db *DB) event.Repository {
	return &eventRepository{db: db}
}

// Categories

func (repo *eventRepository) CreateCategory(_ context.Context, cat event.Category) (event.Category, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	cat.ID = newID()
	repo.db.categories[cat.ID] = &cat
	return cat, nil
}

func (repo *eventRepository) GetCategory(_ context.Context, id string) (event.Category, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if cat, ok := repo.db.categories[id]; ok {
		return *cat, nil
	}
	return event.Category{}, event.ErrCategoryNotFound
}

func (repo *eventRepository) QueryCategories(_ context.Context, names ...string) ([]event.Category, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	cats := make([]event.Category, 0, len(repo.db.categories))
	for _, cat := range repo.db.categories {
		if len(names) > 0 && !stringIn(cat.Name, names) {
			continue
		}
		cats = append(cats, *cat)
	}
	sort.Slice(cats, func(i, j int) bool {
		if cats[i].PeckingOrder != cats[j].PeckingOrder {
			return cats[i].PeckingOrder < cats[j].PeckingOrder
		}
		return cats[i].Name < cats[j].Name
	})
	return cats, nil
}

func (repo *eventRepository) DeleteCategory(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.categories[id]; !ok {
		return event.ErrCategoryNotFound
	}
	for _, evt := range repo.db.events {
		if evt.CategoryID == id {
			return event.ErrCategoryInUse
		}
	}
	delete(repo.db.categories, id)
	return nil
}

// Events

func (repo *eventRepository) CreateEvent(_ context.Context, evt event.Event) (event.Event, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	evt.ID = newID()
	repo.db.events[evt.ID] = &evt
	return evt, nil
}

func (repo *eventRepository) GetEvent(_ context.Context, id string) (event.Event, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if evt, ok := repo.db.events[id]; ok {
		return *evt, nil
	}
	return event.Event{}, event.ErrNotFound
}

func (repo *eventRepository) QueryEvents(_ context.Context, filter *event.QueryFilter, ordering []core.DBOrdering) ([]event.Event, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if filter == nil {
		filter = &event.QueryFilter{}
	}
	var ids, committed map[string]bool
	if len(filter.IDs) > 0 {
		ids = idSet(filter.IDs)
	}
	if len(filter.ElementIDs) > 0 {
		committed = make(map[string]bool)
		for _, c := range repo.db.commitments {
			if stringIn(c.ElementID, filter.ElementIDs) {
				committed[c.EventID] = true
			}
		}
	}
	search := strings.ToLower(filter.Search)

	evts := make([]event.Event, 0)
	for _, evt := range repo.db.events {
		switch {
		case ids != nil && !ids[evt.ID],
			committed != nil && !committed[evt.ID],
			evt.NonExistent && !filter.IncludeNonExistent,
			!evt.Overlaps(filter.Start, filter.End),
			filter.OwnerID != "" && evt.OwnerID != filter.OwnerID,
			filter.OrganiserID != "" && evt.OrganiserID != filter.OrganiserID,
			len(filter.CategoryIDs) > 0 && !stringIn(evt.CategoryID, filter.CategoryIDs),
			filter.CollectionID != "" && evt.CollectionID != filter.CollectionID,
			search != "" && !strings.Contains(strings.ToLower(evt.Body), search):
			continue
		}
		evts = append(evts, *evt)
	}

	sort.SliceStable(evts, func(i, j int) bool { return evts[i].StartsAt.Before(evts[j].StartsAt) })
	for k := len(ordering) - 1; k >= 0; k-- {
		ord := ordering[k]
		sort.SliceStable(evts, func(i, j int) bool {
			a, b := evts[i], evts[j]
			if !ord.Ascending {
				a, b = b, a
			}
			switch ord.Field {
			case "body":
				return a.Body < b.Body
			case "ends_at":
				return a.EndsAt.Before(b.EndsAt)
			case "created_at":
				return a.CreatedAt.Before(b.CreatedAt)
			default:
				return a.StartsAt.Before(b.StartsAt)
			}
		})
	}
	return evts, nil
}

func (repo *eventRepository) UpdateEvent(_ context.Context, evt event.Event) (event.Event, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.events[evt.ID]; !ok {
		return event.Event{}, event.ErrNotFound
	}
	repo.db.events[evt.ID] = &evt
	return evt, nil
}

func (repo *eventRepository) DeleteEventsByID(_ context.Context, ids []string) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var cnt int
	for _, id := range ids {
		if _, ok := repo.db.events[id]; ok {
			delete(repo.db.events, id)
			cnt++
		}
	}
	var commitmentIDs []string
	for id, c := range repo.db.commitments {
		if stringIn(c.EventID, ids) {
			commitmentIDs = append(commitmentIDs, id)
			delete(repo.db.commitments, id)
		}
	}
	for id, n := range repo.db.notes {
		if (n.ParentType == event.ParentEvent && stringIn(n.ParentID, ids)) ||
			(n.ParentType == event.ParentCommitment && stringIn(n.ParentID, commitmentIDs)) {
			delete(repo.db.notes, id)
		}
	}
	return cnt, nil
}

// Commitments

// withElement fills in the read only element fields.
func (repo *eventRepository) withElement(c event.Commitment) event.Commitment {
	if el, ok := repo.db.elements[c.ElementID]; ok {
		c.ElementName = el.Name
		c.ElementKind = string(el.Kind)
	}
	return c
}

func (repo *eventRepository) CreateCommitment(_ context.Context, c event.Commitment) (event.Commitment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	c.ID = newID()
	c.ElementName, c.ElementKind = "", ""
	repo.db.commitments[c.ID] = &c
	return repo.withElement(c), nil
}

func (repo *eventRepository) GetCommitment(_ context.Context, id string) (event.Commitment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if c, ok := repo.db.commitments[id]; ok {
		return repo.withElement(*c), nil
	}
	return event.Commitment{}, event.ErrCommitmentNotFound
}

func (repo *eventRepository) QueryCommitments(_ context.Context, filter event.CommitmentFilter) ([]event.Commitment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	statuses := make([]string, 0, len(filter.Statuses))
	for _, s := range filter.Statuses {
		statuses = append(statuses, string(s))
	}
	cs := make([]event.Commitment, 0)
	for _, c := range repo.db.commitments {
		switch {
		case len(filter.IDs) > 0 && !stringIn(c.ID, filter.IDs),
			len(filter.EventIDs) > 0 && !stringIn(c.EventID, filter.EventIDs),
			len(filter.ElementIDs) > 0 && !stringIn(c.ElementID, filter.ElementIDs),
			len(statuses) > 0 && !stringIn(string(c.Status), statuses):
			continue
		}
		evt, ok := repo.db.events[c.EventID]
		if !ok || (evt.NonExistent && !filter.IncludeNonExistent) || !evt.Overlaps(filter.Start, filter.End) {
			continue
		}
		cs = append(cs, repo.withElement(*c))
	}
	sort.Slice(cs, func(i, j int) bool { return cs[i].CreatedAt.Before(cs[j].CreatedAt) })
	return cs, nil
}

func (repo *eventRepository) UpdateCommitment(_ context.Context, c event.Commitment) (event.Commitment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.commitments[c.ID]; !ok {
		return event.Commitment{}, event.ErrCommitmentNotFound
	}
	stored := c
	stored.ElementName, stored.ElementKind = "", ""
	repo.db.commitments[c.ID] = &stored
	return repo.withElement(c), nil
}

func (repo *eventRepository) DeleteCommitment(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.commitments[id]; !ok {
		return event.ErrCommitmentNotFound
	}
	delete(repo.db.commitments, id)
	for nid, n := range repo.db.notes {
		if n.ParentType == event.ParentCommitment && n.ParentID == id {
			delete(repo.db.notes, nid)
		}
	}
	return nil
}

// Notes

func (repo *eventRepository) CreateNote(_ context.Context, n event.Note) (event.Note, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	n.ID = newID()
	repo.db.notes[n.ID] = &n
	return n, nil
}

func (repo *eventRepository) GetNote(_ context.Context, id string) (event.Note, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if n, ok := repo.db.notes[id]; ok {
		return *n, nil
	}
	return event.Note{}, event.ErrNoteNotFound
}

func (repo *eventRepository) QueryNotes(_ context.Context, filter event.NoteFilter) ([]event.Note, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	ns := make([]event.Note, 0)
	for _, n := range repo.db.notes {
		switch {
		case filter.ParentType != "" && n.ParentType != filter.ParentType,
			len(filter.ParentIDs) > 0 && !stringIn(n.ParentID, filter.ParentIDs),
			filter.Kind != "" && n.Kind != filter.Kind:
			continue
		}
		ns = append(ns, *n)
	}
	sort.Slice(ns, func(i, j int) bool { return ns[i].CreatedAt.Before(ns[j].CreatedAt) })
	return ns, nil
}

func (repo *eventRepository) UpdateNote(_ context.Context, n event.Note) (event.Note, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.notes[n.ID]; !ok {
		return event.Note{}, event.ErrNoteNotFound
	}
	repo.db.notes[n.ID] = &n
	return n, nil
}

func (repo *eventRepository) DeleteNote(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.notes[id]; !ok {
		return event.ErrNoteNotFound
	}
	delete(repo.db.notes, id)
	return nil
}

// Collections

func (repo *eventRepository) CreateCollection(_ context.Context, coll event.Collection) (event.Collection, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	coll.ID = newID()
	repo.db.collections[coll.ID] = &coll
	return coll, nil
}

func (repo *eventRepository) GetCollection(_ context.Context, id string) (event.Collection, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if coll, ok := repo.db.collections[id]; ok {
		return *coll, nil
	}
	return event.Collection{}, event.ErrCollectionNotFound
}

func (repo *eventRepository) UpdateCollection(_ context.Context, coll event.Collection) (event.Collection, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.collections[coll.ID]; !ok {
		return event.Collection{}, event.ErrCollectionNotFound
	}
	repo.db.collections[coll.ID] = &coll
	return coll, nil
}
