package event

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/xronos/xronos/core"
	"github.com/xronos/xronos/core/element"
	"github.com/xronos/xronos/core/timeslot"
)

// ClashNoteTitle is the title of the notes maintained by the clash checker.
const ClashNoteTitle = "Arranged absences"

// ClashSet holds the clashes found for one element.
type ClashSet struct {
	ElementID    string   `json:"element_id"`
	ResourceName string   `json:"resource_name"`
	Messages     []string `json:"messages"`
}

func (cs ClashSet) Empty() bool { return len(cs.Messages) == 0 }

// DetectClashes works out which of the given elements (usually the ones a user owns) would be
// double booked by the events a collection would generate from its template.
// One ClashSet is returned per element with clashes.
func (svc *Service) DetectClashes(ctx context.Context, coll Collection, template Event, elements []element.Element) ([]ClashSet, error) {
	loc := svc.location()
	dates, err := coll.Dates(loc)
	if err != nil {
		return nil, err
	}
	startsAt := timeslot.FromTime(template.StartsAt.In(loc))
	duration := template.Duration()

	result := make([]ClashSet, 0)
	evtCache := make(map[string]Event)
	for _, el := range elements {
		set := ClashSet{ElementID: el.ID, ResourceName: el.Name}
		seen := make(map[string]bool)
		for _, date := range dates {
			start := startsAt.On(date)
			end := start.Add(duration)
			if template.AllDay {
				start = core.Date(date)
				end = start.AddDate(0, 0, 1)
			}
			ids, err := svc.Elements.WithGroups(ctx, []string{el.ID}, date)
			if err != nil {
				return nil, errors.Wrap(err, "resolving groups")
			}
			cs, err := svc.repo.QueryCommitments(ctx, CommitmentFilter{ElementIDs: ids, Start: start.UTC(), End: end.UTC()})
			if err != nil {
				return nil, errors.Wrap(err, "querying commitments")
			}
			for _, c := range cs {
				if c.EventID == template.ID || seen[c.EventID] {
					continue
				}
				evt, err := svc.cachedEvent(ctx, evtCache, c.EventID)
				if err != nil {
					return nil, err
				}
				if coll.ID != "" && evt.CollectionID == coll.ID {
					continue
				}
				seen[c.EventID] = true
				set.Messages = append(set.Messages, svc.clashMessage(evt))
			}
		}
		if !set.Empty() {
			result = append(result, set)
		}
	}
	return result, nil
}

// clashMessage gives "dd/mm/yyyy - duration - body".
func (svc *Service) clashMessage(evt Event) string {
	return evt.StartsAt.In(svc.location()).Format("02/01/2006") + " - " + evt.DurationString() + " - " + evt.Body
}

func (svc *Service) cachedEvent(ctx context.Context, cache map[string]Event, id string) (Event, error) {
	if evt, ok := cache[id]; ok {
		return evt, nil
	}
	evt, err := svc.repo.GetEvent(ctx, id)
	if err != nil {
		return Event{}, errors.Wrap(err, "finding event")
	}
	cache[id] = evt
	return evt, nil
}

// ClashCheckResult sums up a clash check run.
type ClashCheckResult struct {
	EventsChecked int
	NotesCreated  int
	NotesUpdated  int
	NotesDeleted  int
	Clashes       []EventClashes
}

// EventClashes describes the clashes of one event.
type EventClashes struct {
	Date  time.Time
	Event Event
	Text  string
}

// CheckClashes looks at every event in the given categories from start to end (dates inclusive)
// and keeps exactly one clashes note on each event whose people or rooms are also committed
// elsewhere at the same time. Events without clashes lose any such note.
func (svc *Service) CheckClashes(ctx context.Context, start, end time.Time, categoryNames []string) (ClashCheckResult, error) {
	var res ClashCheckResult
	cats, err := svc.repo.QueryCategories(ctx, categoryNames...)
	if err != nil {
		return res, errors.Wrap(err, "querying categories")
	}
	if len(cats) == 0 {
		return res, nil
	}
	catIDs := make([]string, 0, len(cats))
	for _, c := range cats {
		catIDs = append(catIDs, c.ID)
	}

	loc := svc.location()
	first, last := core.Date(start.In(loc)), core.Date(end.In(loc))
	for date := first; !date.After(last); date = date.AddDate(0, 0, 1) {
		checker := clashChecker{svc: svc, date: date, resources: make(map[string][]element.Element)}
		evts, err := svc.repo.QueryEvents(ctx, &QueryFilter{
			Start:       date.UTC(),
			End:         date.AddDate(0, 0, 1).UTC(),
			CategoryIDs: catIDs,
		}, []core.DBOrdering{{Field: "starts_at", Ascending: true}})
		if err != nil {
			return res, errors.Wrap(err, "querying events")
		}
		for _, evt := range evts {
			res.EventsChecked++
			text, err := checker.clashText(ctx, evt)
			if err != nil {
				return res, err
			}
			created, updated, deleted, err := svc.syncClashNote(ctx, evt, text)
			if err != nil {
				return res, err
			}
			res.NotesCreated += created
			res.NotesUpdated += updated
			res.NotesDeleted += deleted
			if text != "" {
				res.Clashes = append(res.Clashes, EventClashes{Date: date, Event: evt, Text: text})
			}
		}
	}
	return res, nil
}

type clashChecker struct {
	svc       *Service
	date      time.Time
	resources map[string][]element.Element // event ID -> atomic resources
}

// atomicResources returns the people and rooms committed to an event, groups expanded.
func (cc *clashChecker) atomicResources(ctx context.Context, eventID string) ([]element.Element, error) {
	if rs, ok := cc.resources[eventID]; ok {
		return rs, nil
	}
	cs, err := cc.svc.repo.QueryCommitments(ctx, CommitmentFilter{EventIDs: []string{eventID}})
	if err != nil {
		return nil, errors.Wrap(err, "querying event commitments")
	}
	byID := make(map[string]element.Element)
	for _, c := range cs {
		el, err := cc.svc.Elements.Get(ctx, c.ElementID)
		if err != nil {
			if errors.Cause(err) == element.ErrNotFound {
				continue
			}
			return nil, errors.Wrap(err, "finding committed element")
		}
		if el.IsGroup() {
			members, err := cc.svc.Elements.Members(ctx, el.ID, cc.date, true)
			if err != nil {
				return nil, errors.Wrap(err, "expanding group")
			}
			for _, m := range members {
				if m.Kind.Atomic() {
					byID[m.ID] = m
				}
			}
		} else if el.Kind.Atomic() {
			byID[el.ID] = el
		}
	}
	rs := make([]element.Element, 0, len(byID))
	for _, el := range byID {
		rs = append(rs, el)
	}
	sort.Slice(rs, func(i, j int) bool { return rs[i].Name < rs[j].Name })
	cc.resources[eventID] = rs
	return rs, nil
}

// clashText describes the events clashing with evt and the resources they share, or "" if none.
func (cc *clashChecker) clashText(ctx context.Context, evt Event) (string, error) {
	resources, err := cc.atomicResources(ctx, evt.ID)
	if err != nil {
		return "", err
	}
	mine := make(map[string]bool, len(resources))
	for _, r := range resources {
		mine[r.ID] = true
	}

	var clashing []Event
	seen := map[string]bool{evt.ID: true}
	for _, r := range resources {
		ids, err := cc.svc.Elements.WithGroups(ctx, []string{r.ID}, cc.date)
		if err != nil {
			return "", errors.Wrap(err, "resolving groups")
		}
		cs, err := cc.svc.repo.QueryCommitments(ctx, CommitmentFilter{ElementIDs: ids, Start: evt.StartsAt, End: evt.EndsAt})
		if err != nil {
			return "", errors.Wrap(err, "querying commitments")
		}
		for _, c := range cs {
			if seen[c.EventID] {
				continue
			}
			seen[c.EventID] = true
			other, err := cc.svc.repo.GetEvent(ctx, c.EventID)
			if err != nil {
				return "", errors.Wrap(err, "finding clashing event")
			}
			clashing = append(clashing, other)
		}
	}
	if len(clashing) == 0 {
		return "", nil
	}
	sort.Slice(clashing, func(i, j int) bool {
		if !clashing[i].StartsAt.Equal(clashing[j].StartsAt) {
			return clashing[i].StartsAt.Before(clashing[j].StartsAt)
		}
		return clashing[i].Body < clashing[j].Body
	})

	loc := cc.svc.location()
	lines := make([]string, 0, 2*len(clashing))
	for _, ce := range clashing {
		lines = append(lines, ce.Body+" "+ce.IntervalString(loc))
		theirs, err := cc.atomicResources(ctx, ce.ID)
		if err != nil {
			return "", err
		}
		var names []string
		for _, r := range theirs {
			if mine[r.ID] {
				names = append(names, r.Name)
			}
		}
		if len(names) > 0 {
			lines = append(lines, indent(wrap(strings.Join(names, ", "), 78), 2))
		}
	}
	return strings.Join(lines, "\n"), nil
}

// syncClashNote leaves exactly one clashes note with the given text on the event, or none if text is empty.
func (svc *Service) syncClashNote(ctx context.Context, evt Event, text string) (created, updated, deleted int, err error) {
	notes, err := svc.repo.QueryNotes(ctx, NoteFilter{ParentType: ParentEvent, ParentIDs: []string{evt.ID}, Kind: NoteClashes})
	if err != nil {
		return 0, 0, 0, errors.Wrap(err, "querying clash notes")
	}

	if text == "" || len(notes) > 1 {
		for _, n := range notes {
			if err := svc.repo.DeleteNote(ctx, n.ID); err != nil {
				return created, updated, deleted, errors.Wrap(err, "deleting clash note")
			}
			deleted++
		}
		if text == "" {
			return created, updated, deleted, nil
		}
		notes = nil
	}

	now := NowFunc().UTC()
	if len(notes) == 1 {
		n := notes[0]
		if n.Contents == text {
			return created, updated, deleted, nil
		}
		n.Contents = text
		n.UpdatedAt = now
		if _, err := svc.repo.UpdateNote(ctx, n); err != nil {
			return created, updated, deleted, errors.Wrap(err, "updating clash note")
		}
		return created, 1, deleted, nil
	}

	if _, err := svc.repo.CreateNote(ctx, Note{
		ParentType:   ParentEvent,
		ParentID:     evt.ID,
		Title:        ClashNoteTitle,
		Contents:     text,
		Kind:         NoteClashes,
		ReadOnly:     true,
		VisibleStaff: true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}); err != nil {
		return created, updated, deleted, errors.Wrap(err, "creating clash note")
	}
	return 1, updated, deleted, nil
}

// wrap breaks s into lines of at most width characters, at spaces where possible.
func wrap(s string, width int) string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return ""
	}
	var b strings.Builder
	lineLen := 0
	for i, w := range words {
		if i > 0 {
			if lineLen+1+len(w) > width {
				b.WriteByte('\n')
				lineLen = 0
			} else {
				b.WriteByte(' ')
				lineLen++
			}
		}
		b.WriteString(w)
		lineLen += len(w)
	}
	return b.String()
}

func indent(s string, spaces int) string {
	pad := strings.Repeat(" ", spaces)
	return pad + strings.ReplaceAll(s, "\n", "\n"+pad)
}
