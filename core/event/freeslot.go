package event

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/xronos/xronos/core"
	"github.com/xronos/xronos/core/timeslot"
)

var (
	ErrNoElements     = errors.New("at least one element is required")
	ErrInvalidMinutes = errors.New("minutes required must be a positive integer")
)

const maxSearchDays = 92

// FreeSlotFinder works out when all of a set of elements are free on a given day.
type FreeSlotFinder struct {
	svc        *Service
	elementIDs []string
	minutes    int
	window     timeslot.Slot
	categories map[string]Category
}

// NewFreeSlotFinder checks its arguments: minutes must be positive and the day window
// ("HH:MM" times) must not run backwards.
func (svc *Service) NewFreeSlotFinder(elementIDs []string, minutes int, dayStartsAt, dayEndsAt string) (*FreeSlotFinder, error) {
	if len(elementIDs) == 0 {
		return nil, ErrNoElements
	}
	if minutes <= 0 {
		return nil, ErrInvalidMinutes
	}
	window, err := timeslot.ParseSlot(dayStartsAt, dayEndsAt)
	if err != nil {
		return nil, err
	}
	return &FreeSlotFinder{
		svc:        svc,
		elementIDs: elementIDs,
		minutes:    minutes,
		window:     window,
		categories: make(map[string]Category),
	}, nil
}

// SlotsOn returns the parts of the window on date not taken by a busy event committed to
// any of the elements, directly or through a group.
func (f *FreeSlotFinder) SlotsOn(ctx context.Context, date time.Time) (timeslot.Set, error) {
	day := core.Date(date.In(f.svc.location()))
	free := timeslot.NewSet(f.window)

	ids, err := f.svc.Elements.WithGroups(ctx, f.elementIDs, day)
	if err != nil {
		return nil, errors.Wrap(err, "resolving groups")
	}
	cs, err := f.svc.repo.QueryCommitments(ctx, CommitmentFilter{
		ElementIDs: ids,
		Start:      day.UTC(),
		End:        day.AddDate(0, 0, 1).UTC(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "querying commitments")
	}

	seen := make(map[string]bool, len(cs))
	for _, c := range cs {
		if seen[c.EventID] {
			continue
		}
		seen[c.EventID] = true
		evt, err := f.svc.repo.GetEvent(ctx, c.EventID)
		if err != nil {
			return nil, errors.Wrap(err, "finding event")
		}
		busy, err := f.busy(ctx, evt.CategoryID)
		if err != nil {
			return nil, err
		}
		if !busy {
			continue
		}
		if slot, ok := evt.TimeSlotOn(day); ok {
			free = free.Subtract(slot)
		}
	}
	return free, nil
}

// Slots is SlotsOn without the slots shorter than the minutes required.
func (f *FreeSlotFinder) Slots(ctx context.Context, date time.Time) (timeslot.Set, error) {
	free, err := f.SlotsOn(ctx, date)
	if err != nil {
		return nil, err
	}
	return free.AtLeast(time.Duration(f.minutes) * time.Minute), nil
}

func (f *FreeSlotFinder) busy(ctx context.Context, categoryID string) (bool, error) {
	cat, ok := f.categories[categoryID]
	if !ok {
		var err error
		cat, err = f.svc.repo.GetCategory(ctx, categoryID)
		if err != nil {
			if errors.Cause(err) == ErrCategoryNotFound {
				return true, nil
			}
			return false, errors.Wrap(err, "finding category")
		}
		f.categories[categoryID] = cat
	}
	return cat.Busy, nil
}

// FreeTimeSearch asks for free time across several days. Zero fields take the configured defaults.
type FreeTimeSearch struct {
	ElementIDs []string `json:"element_ids" validate:"required,min=1"`
	Minutes    int      `json:"minutes" validate:"required,min=1"`
	StartDate  string   `json:"start_date" validate:"required,datetime=2006-01-02"`
	NumDays    int      `json:"num_days" validate:"omitempty,min=1"`
	Days       []int    `json:"days" validate:"omitempty,dive,min=0,max=6"` // 0 = Sunday
	StartsAt   string   `json:"starts_at" validate:"omitempty,timeofday"`
	EndsAt     string   `json:"ends_at" validate:"omitempty,timeofday"`
}

// FreeDay lists the free slots found on one date.
type FreeDay struct {
	Date  string       `json:"date"`
	Slots timeslot.Set `json:"slots"`
}

// FindFreeTime runs a FreeSlotFinder over NumDays days from StartDate, on the selected weekdays only.
func (svc *Service) FindFreeTime(ctx context.Context, fts FreeTimeSearch) ([]FreeDay, error) {
	conf := core.SchedulingConfig{
		FreeFinderNumDays:     14,
		FreeFinderDays:        []bool{false, true, true, true, true, true, false},
		FreeFinderDayStartsAt: "08:30",
		FreeFinderDayEndsAt:   "17:30",
	}
	if svc.Conf != nil {
		conf = svc.Conf.Scheduling
	}
	if fts.NumDays == 0 {
		fts.NumDays = conf.FreeFinderNumDays
	}
	if fts.NumDays > maxSearchDays {
		fts.NumDays = maxSearchDays
	}
	if fts.StartsAt == "" {
		fts.StartsAt = conf.FreeFinderDayStartsAt
	}
	if fts.EndsAt == "" {
		fts.EndsAt = conf.FreeFinderDayEndsAt
	}
	days := conf.FreeFinderDays
	if len(fts.Days) > 0 {
		days = make([]bool, 7)
		for _, d := range fts.Days {
			if d >= 0 && d <= 6 {
				days[d] = true
			}
		}
	}

	start, err := time.ParseInLocation(core.DateLayout, fts.StartDate, svc.location())
	if err != nil {
		return nil, core.NewValidationError(err, core.FieldError{Field: "start_date", Error: "invalid date"})
	}
	finder, err := svc.NewFreeSlotFinder(fts.ElementIDs, fts.Minutes, fts.StartsAt, fts.EndsAt)
	if err != nil {
		return nil, core.NewValidationError(err)
	}

	result := make([]FreeDay, 0, fts.NumDays)
	for i := 0; i < fts.NumDays; i++ {
		date := start.AddDate(0, 0, i)
		if len(days) == 7 && !days[date.Weekday()] {
			continue
		}
		slots, err := finder.Slots(ctx, date)
		if err != nil {
			return nil, err
		}
		if slots == nil {
			slots = timeslot.Set{}
		}
		result = append(result, FreeDay{Date: date.Format(core.DateLayout), Slots: slots})
	}
	return result, nil
}
