package event

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/teambition/rrule-go"

	"github.com/xronos/xronos/core"
	"github.com/xronos/xronos/core/timeslot"
)

var rruleWeekdays = [7]rrule.Weekday{rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA}

// Dates lists the days, in loc, on which the collection puts a copy of its template.
func (coll Collection) Dates(loc *time.Location) ([]time.Time, error) {
	if len(coll.Days) == 0 {
		return nil, nil
	}
	byDay := make([]rrule.Weekday, 0, len(coll.Days))
	for _, d := range coll.Days {
		if d < time.Sunday || d > time.Saturday {
			return nil, ErrInvalidCollectionDay
		}
		byDay = append(byDay, rruleWeekdays[d])
	}
	interval := coll.EveryNWeeks
	if interval < 1 {
		interval = 1
	}

	starts := core.Date(coll.StartsOn.In(loc))
	ends := core.Date(coll.EndsOn.In(loc))
	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Interval:  interval,
		Wkst:      rrule.MO,
		Byweekday: byDay,
		Dtstart:   starts,
		Until:     ends,
	})
	if err != nil {
		return nil, errors.Wrap(err, "building recurrence rule")
	}
	return rule.All(), nil
}

// BuildCollection turns a request into an unsaved collection for the template event.
func (svc *Service) BuildCollection(template Event, requesterID string, nc NewCollection) (Collection, error) {
	loc := svc.location()
	starts, err := time.ParseInLocation(core.DateLayout, nc.StartsOn, loc)
	if err != nil {
		return Collection{}, core.NewValidationError(err, core.FieldError{Field: "starts_on", Error: "invalid date"})
	}
	ends, err := time.ParseInLocation(core.DateLayout, nc.EndsOn, loc)
	if err != nil {
		return Collection{}, core.NewValidationError(err, core.FieldError{Field: "ends_on", Error: "invalid date"})
	}
	if ends.Before(starts) {
		return Collection{}, core.NewValidationError(nil, core.FieldError{Field: "ends_on", Error: "cannot be before starts_on"})
	}
	days := make([]time.Weekday, 0, len(nc.Days))
	seen := make(map[int]bool, len(nc.Days))
	for _, d := range nc.Days {
		if d < 0 || d > 6 {
			return Collection{}, core.NewValidationError(ErrInvalidCollectionDay, core.FieldError{Field: "days", Error: ErrInvalidCollectionDay.Error()})
		}
		if !seen[d] {
			seen[d] = true
			days = append(days, time.Weekday(d))
		}
	}
	every := nc.EveryNWeeks
	if every < 1 {
		every = 1
	}
	return Collection{
		ID:               template.CollectionID,
		EventID:          template.ID,
		RequestingUserID: requesterID,
		StartsOn:         starts,
		EndsOn:           ends,
		Days:             days,
		EveryNWeeks:      every,
	}, nil
}

func (svc *Service) GetCollection(ctx context.Context, id string) (Collection, error) {
	return svc.repo.GetCollection(ctx, id)
}

// Repeat saves a collection for the event and generates its copies, replacing any copies
// made by an earlier version of the collection. Commitments are copied with their status
// worked out afresh for the requester.
func (svc *Service) Repeat(ctx context.Context, req Requester, eventID string, nc NewCollection) (Collection, []Event, error) {
	template, err := svc.repo.GetEvent(ctx, eventID)
	if err != nil {
		return Collection{}, nil, err
	}
	if !template.CanBeRepeated() {
		return Collection{}, nil, core.NewValidationError(ErrCannotRepeat)
	}
	coll, err := svc.BuildCollection(template, req.UserID(), nc)
	if err != nil {
		return Collection{}, nil, err
	}
	dates, err := coll.Dates(svc.location())
	if err != nil {
		return Collection{}, nil, core.NewValidationError(err)
	}

	now := NowFunc().UTC()
	coll.UpdatedAt = now
	if coll.ID == "" {
		coll.CreatedAt = now
		if coll, err = svc.repo.CreateCollection(ctx, coll); err != nil {
			return Collection{}, nil, errors.Wrap(err, "creating collection")
		}
		template.CollectionID = coll.ID
		template.UpdatedAt = now
		if template, err = svc.repo.UpdateEvent(ctx, template); err != nil {
			return Collection{}, nil, errors.Wrap(err, "linking template to collection")
		}
	} else {
		if coll, err = svc.repo.UpdateCollection(ctx, coll); err != nil {
			return Collection{}, nil, errors.Wrap(err, "updating collection")
		}
		if err := svc.dropCopies(ctx, template); err != nil {
			return Collection{}, nil, err
		}
	}

	commitments, err := svc.repo.QueryCommitments(ctx, CommitmentFilter{EventIDs: []string{template.ID}, IncludeNonExistent: true})
	if err != nil {
		return Collection{}, nil, errors.Wrap(err, "querying template commitments")
	}

	loc := svc.location()
	templateDay := core.Date(template.StartsAt.In(loc))
	startsAt := timeslot.FromTime(template.StartsAt.In(loc))
	duration := template.Duration()

	copies := make([]Event, 0, len(dates))
	for _, date := range dates {
		if core.Date(date).Equal(templateDay) {
			continue
		}
		cp := template
		cp.ID = ""
		cp.StartsAt = startsAt.On(date).UTC()
		cp.EndsAt = cp.StartsAt.Add(duration)
		cp.Constrained = false
		cp.Complete = true
		cp.CreatedAt = now
		cp.UpdatedAt = now
		if cp, err = svc.repo.CreateEvent(ctx, cp); err != nil {
			return Collection{}, nil, errors.Wrap(err, "creating event copy")
		}
		for _, c := range commitments {
			if _, err := svc.AddCommitment(ctx, req, cp.ID, c.ElementID); err != nil {
				return Collection{}, nil, errors.Wrap(err, "copying commitment")
			}
		}
		if cp, err = svc.repo.GetEvent(ctx, cp.ID); err != nil {
			return Collection{}, nil, errors.Wrap(err, "reloading event copy")
		}
		copies = append(copies, cp)
	}
	return coll, copies, nil
}

// dropCopies deletes every event of the template's collection except the template itself.
func (svc *Service) dropCopies(ctx context.Context, template Event) error {
	evts, err := svc.repo.QueryEvents(ctx, &QueryFilter{CollectionID: template.CollectionID, IncludeNonExistent: true}, nil)
	if err != nil {
		return errors.Wrap(err, "querying collection events")
	}
	ids := make([]string, 0, len(evts))
	for _, evt := range evts {
		if evt.ID != template.ID {
			ids = append(ids, evt.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	_, err = svc.Delete(ctx, ids...)
	return err
}
