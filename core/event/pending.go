package event

import (
	"context"

	"github.com/pkg/errors"
)

// Pending counts the things waiting on, or for, a user.
type Pending struct {
	Permissions int `json:"permissions_pending"` // requests for elements the user owns
	Events      int `json:"events_pending"`      // the user's events with rejected or queried requests
	Waiting     int `json:"events_waiting"`      // the user's requests still awaiting a decision
}

func (p Pending) EventsTotal() int { return p.Permissions + p.Events }

// PendingCounts works out the pending counts of a user, considering only future events.
// staffElementID is the user's own staff element, if any: events it organises count as theirs.
func (svc *Service) PendingCounts(ctx context.Context, userID, staffElementID string, ownedElementIDs []string) (Pending, error) {
	var p Pending
	now := NowFunc().UTC()

	if len(ownedElementIDs) > 0 {
		cs, err := svc.repo.QueryCommitments(ctx, CommitmentFilter{
			ElementIDs: ownedElementIDs,
			Statuses:   []Status{StatusRequested},
			Start:      now,
		})
		if err != nil {
			return p, errors.Wrap(err, "counting permissions pending")
		}
		p.Permissions = len(cs)
	}

	mine, err := svc.repo.QueryEvents(ctx, &QueryFilter{OwnerID: userID, Start: now}, nil)
	if err != nil {
		return p, errors.Wrap(err, "querying own events")
	}
	incomplete := make(map[string]bool)
	var ownIncomplete []string
	for _, evt := range mine {
		if !evt.Complete {
			incomplete[evt.ID] = true
			ownIncomplete = append(ownIncomplete, evt.ID)
		}
	}
	if staffElementID != "" {
		organised, err := svc.repo.QueryEvents(ctx, &QueryFilter{OrganiserID: staffElementID, Start: now}, nil)
		if err != nil {
			return p, errors.Wrap(err, "querying organised events")
		}
		for _, evt := range organised {
			if !evt.Complete {
				incomplete[evt.ID] = true
			}
		}
	}
	if len(incomplete) == 0 {
		return p, nil
	}

	ids := make([]string, 0, len(incomplete))
	for id := range incomplete {
		ids = append(ids, id)
	}
	cs, err := svc.repo.QueryCommitments(ctx, CommitmentFilter{
		EventIDs: ids,
		Statuses: []Status{StatusRejected, StatusNoted},
	})
	if err != nil {
		return p, errors.Wrap(err, "counting events pending")
	}
	p.Events = len(cs)

	if len(ownIncomplete) > 0 {
		cs, err = svc.repo.QueryCommitments(ctx, CommitmentFilter{
			EventIDs: ownIncomplete,
			Statuses: []Status{StatusRequested},
		})
		if err != nil {
			return p, errors.Wrap(err, "counting events waiting")
		}
		p.Waiting = len(cs)
	}
	return p, nil
}
