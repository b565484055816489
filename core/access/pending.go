package access

import (
	"context"

	"github.com/pkg/errors"

	"github.com/xronos/xronos/core"
	"github.com/xronos/xronos/core/event"
)

type (
	// PendingCache keeps computed pending counts per user until invalidated.
	PendingCache interface {
		Get(ctx context.Context, userID string) (event.Pending, bool, error)
		Set(ctx context.Context, userID string, p event.Pending) error
		Invalidate(ctx context.Context, userIDs ...string) error
	}

	// PendingCounter computes the pending counts of a user.
	PendingCounter interface {
		PendingCounts(ctx context.Context, userID, staffElementID string, ownedElementIDs []string) (event.Pending, error)
	}

	// PendingTracker serves pending counts from the cache, computing them on a miss.
	// Cache failures are logged and the counts computed afresh.
	PendingTracker struct {
		cache   PendingCache
		counter PendingCounter
		logger  core.Logger
	}
)

var _ event.PendingInvalidator = (*PendingTracker)(nil) // interface compliance check

// NewPendingTracker builds a tracker; cache may be nil, in which case counts are always computed.
func NewPendingTracker(cache PendingCache, counter PendingCounter, logger core.Logger) *PendingTracker {
	return &PendingTracker{cache: cache, counter: counter, logger: logger}
}

// SetCounter completes a tracker built before the event service existed.
func (pt *PendingTracker) SetCounter(counter PendingCounter) { pt.counter = counter }

func (pt *PendingTracker) Pending(ctx context.Context, chk *Checker) (event.Pending, error) {
	if !chk.User.Known() {
		return event.Pending{}, nil
	}
	if pt.cache != nil {
		p, ok, err := pt.cache.Get(ctx, chk.User.ID)
		if err != nil {
			pt.warn("reading cached pending counts", err)
		} else if ok {
			return p, nil
		}
	}
	if pt.counter == nil {
		return event.Pending{}, errors.New("pending tracker has no counter")
	}
	p, err := pt.counter.PendingCounts(ctx, chk.User.ID, chk.StaffElementID, chk.OwnedElements())
	if err != nil {
		return event.Pending{}, err
	}
	if pt.cache != nil {
		if err := pt.cache.Set(ctx, chk.User.ID, p); err != nil {
			pt.warn("caching pending counts", err)
		}
	}
	return p, nil
}

func (pt *PendingTracker) PermissionsPending(ctx context.Context, chk *Checker) (int, error) {
	p, err := pt.Pending(ctx, chk)
	return p.Permissions, err
}

func (pt *PendingTracker) EventsPending(ctx context.Context, chk *Checker) (int, error) {
	p, err := pt.Pending(ctx, chk)
	return p.Events, err
}

func (pt *PendingTracker) EventsWaiting(ctx context.Context, chk *Checker) (int, error) {
	p, err := pt.Pending(ctx, chk)
	return p.Waiting, err
}

func (pt *PendingTracker) EventsPendingTotal(ctx context.Context, chk *Checker) (int, error) {
	p, err := pt.Pending(ctx, chk)
	return p.EventsTotal(), err
}

func (pt *PendingTracker) Invalidate(ctx context.Context, userIDs ...string) error {
	if pt.cache == nil || len(userIDs) == 0 {
		return nil
	}
	return pt.cache.Invalidate(ctx, userIDs...)
}

func (pt *PendingTracker) warn(msg string, err error) {
	if pt.logger != nil {
		pt.logger.Warn(msg, err)
	}
}
