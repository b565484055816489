package event_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xronos/xronos/core"
	"github.com/xronos/xronos/core/access"
	"github.com/xronos/xronos/core/element"
	"github.com/xronos/xronos/core/event"
	"github.com/xronos/xronos/core/user"
	testutil "github.com/xronos/xronos/tests"
)

const testPassword = "Sup3r-S3cret!"

// monday is a fixed Monday morning, for tests that do not depend on the current date.
var monday = time.Date(2030, time.March, 4, 9, 0, 0, 0, time.UTC)

// upcoming is a Monday at least a week away, at 09:00 UTC.
func upcoming() time.Time {
	d := core.Date(time.Now().UTC().AddDate(0, 0, 7))
	for d.Weekday() != time.Monday {
		d = d.AddDate(0, 0, 1)
	}
	return d.Add(9 * time.Hour)
}

func checker(t *testing.T, svcs *testutil.Services, usr user.User) *access.Checker {
	t.Helper()
	chk, err := access.NewChecker(context.Background(), usr, svcs.Elements, svcs.Conf)
	require.NoError(t, err)
	return chk
}

func own(t *testing.T, svcs *testutil.Services, usr user.User, el element.Element) {
	t.Helper()
	_, err := svcs.Elements.CreateConcern(context.Background(), usr.ID, element.NewConcern{ElementID: el.ID, Owns: true})
	require.NoError(t, err)
}

func validationFields(t *testing.T, err error) map[string]string {
	t.Helper()
	verr, ok := errors.Cause(err).(*core.ValidationError)
	require.True(t, ok, "want a validation error, got %v", err)
	fields := make(map[string]string, len(verr.Fields))
	for _, f := range verr.Fields {
		fields[f.Field] = f.Error
	}
	return fields
}

func TestService_CreateCategory(t *testing.T) {
	svcs := testutil.NewServices(t)
	ctx := context.Background()

	cat, err := svcs.Events.CreateCategory(ctx, event.NewCategory{Name: "  Lesson "})
	require.NoError(t, err)
	assert.NotEmpty(t, cat.ID)
	assert.Equal(t, "Lesson", cat.Name)
	assert.True(t, cat.Publish)
	assert.True(t, cat.ForUsers)
	assert.True(t, cat.Busy)

	_, err = svcs.Events.CreateCategory(ctx, event.NewCategory{Name: "Lesson"})
	assert.Equal(t, map[string]string{"name": event.ErrCategoryExists.Error()}, validationFields(t, err))

	notBusy := false
	reminder, err := svcs.Events.CreateCategory(ctx, event.NewCategory{Name: "Reminder", Busy: &notBusy, Publish: &notBusy})
	require.NoError(t, err)
	assert.False(t, reminder.Busy)
	assert.False(t, reminder.Publish)

	cats, err := svcs.Events.QueryCategories(ctx, "Reminder")
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, reminder.ID, cats[0].ID)

	staff := testutil.CreateUser(t, svcs, "Jane Doe", "jdoe", testPassword, nil, true)
	d := testutil.CreateEvent(t, svcs, staff, reminder, "Reports due", monday, monday.Add(time.Hour))
	err = svcs.Events.DeleteCategory(ctx, reminder.ID)
	assert.Equal(t, event.ErrCategoryInUse, errors.Cause(err))
	_, err = svcs.Events.GetCategory(ctx, reminder.ID)
	require.NoError(t, err)

	_, err = svcs.Events.Delete(ctx, d.ID)
	require.NoError(t, err)
	require.NoError(t, svcs.Events.DeleteCategory(ctx, reminder.ID))
	_, err = svcs.Events.GetCategory(ctx, reminder.ID)
	assert.Equal(t, event.ErrCategoryNotFound, errors.Cause(err))
}

func TestService_Create(t *testing.T) {
	svcs := testutil.NewServices(t)
	ctx := context.Background()
	staff := testutil.CreateUser(t, svcs, "Jane Doe", "jdoe", testPassword, nil, true)
	lab := testutil.CreateElement(t, svcs, "Lab 1", element.KindLocation, "")
	cat := testutil.CreateCategory(t, svcs, "Lesson")
	chk := checker(t, svcs, staff)

	_, err := svcs.Events.Create(ctx, chk, event.NewEvent{Body: "Chemistry", CategoryID: "nope", StartsAt: monday, EndsAt: monday.Add(time.Hour)})
	assert.Equal(t, map[string]string{"category_id": event.ErrCategoryNotFound.Error()}, validationFields(t, err))

	_, err = svcs.Events.Create(ctx, chk, event.NewEvent{Body: "Chemistry", CategoryID: cat.ID, OrganiserID: "nope",
		StartsAt: monday, EndsAt: monday.Add(time.Hour)})
	assert.Equal(t, map[string]string{"organiser_id": element.ErrNotFound.Error()}, validationFields(t, err))

	// a bad element list leaves nothing behind
	for _, ids := range [][]string{{lab.ID, "nope"}, {lab.ID, lab.ID}} {
		_, err = svcs.Events.Create(ctx, chk, event.NewEvent{Body: "Chemistry", CategoryID: cat.ID,
			StartsAt: monday, EndsAt: monday.Add(time.Hour), ElementIDs: ids})
		assert.Contains(t, validationFields(t, err), "element_ids")
		evts, err := svcs.Events.Query(ctx, &event.QueryFilter{IncludeNonExistent: true,
			Start: monday.AddDate(0, 0, -1), End: monday.AddDate(0, 0, 1)}, nil)
		require.NoError(t, err)
		assert.Empty(t, evts)
	}

	d, err := svcs.Events.Create(ctx, chk, event.NewEvent{
		Body:       " Chemistry  ",
		CategoryID: cat.ID,
		StartsAt:   monday,
		EndsAt:     monday.Add(time.Hour),
		ElementIDs: []string{lab.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, "Chemistry", d.Body)
	assert.Equal(t, staff.ID, d.OwnerID)
	assert.True(t, d.Complete)
	assert.False(t, d.Constrained)
	require.Len(t, d.Commitments, 1)
	assert.Equal(t, lab.ID, d.Commitments[0].ElementID)
	assert.Equal(t, "Lab 1", d.Commitments[0].ElementName)
	assert.Equal(t, event.StatusUncontrolled, d.Commitments[0].Status)

	_, err = svcs.Events.AddCommitment(ctx, chk, d.ID, lab.ID)
	assert.Equal(t, map[string]string{"element_id": event.ErrAlreadyCommitted.Error()}, validationFields(t, err))
	_, err = svcs.Events.AddCommitment(ctx, chk, d.ID, "nope")
	assert.Equal(t, map[string]string{"element_id": element.ErrNotFound.Error()}, validationFields(t, err))

	trip, err := svcs.Events.Create(ctx, chk, event.NewEvent{
		Body:       "Trip",
		CategoryID: cat.ID,
		StartsAt:   monday.Add(time.Hour),
		EndsAt:     monday.Add(2 * time.Hour),
		AllDay:     true,
	})
	require.NoError(t, err)
	assert.Equal(t, core.Date(monday), trip.StartsAt.UTC())
	assert.Equal(t, core.Date(monday).AddDate(0, 0, 1), trip.EndsAt.UTC())
	assert.Empty(t, trip.Commitments)
}

func TestService_Update(t *testing.T) {
	svcs := testutil.NewServices(t)
	ctx := context.Background()
	staff := testutil.CreateUser(t, svcs, "Jane Doe", "jdoe", testPassword, nil, true)
	cat := testutil.CreateCategory(t, svcs, "Lesson")
	d := testutil.CreateEvent(t, svcs, staff, cat, "Chemistry", monday, monday.Add(time.Hour))

	_, err := svcs.Events.Update(ctx, "nope", event.UpdateEvent{Body: "Physics"})
	assert.Equal(t, event.ErrNotFound, errors.Cause(err))

	before := monday.Add(-time.Hour)
	_, err = svcs.Events.Update(ctx, d.ID, event.UpdateEvent{EndsAt: &before})
	assert.Equal(t, map[string]string{"ends_at": "cannot be before starts_at"}, validationFields(t, err))

	_, err = svcs.Events.Update(ctx, d.ID, event.UpdateEvent{CategoryID: "nope"})
	assert.Equal(t, map[string]string{"category_id": event.ErrCategoryNotFound.Error()}, validationFields(t, err))

	private := true
	evt, err := svcs.Events.Update(ctx, d.ID, event.UpdateEvent{Body: " Physics ", Private: &private})
	require.NoError(t, err)
	assert.Equal(t, "Physics", evt.Body)
	assert.True(t, evt.Private)
	assert.Equal(t, monday, evt.StartsAt.UTC())

	later, laterEnd := monday.Add(2*time.Hour), monday.Add(3*time.Hour)
	evt, err = svcs.Events.Update(ctx, d.ID, event.UpdateEvent{StartsAt: &later, EndsAt: &laterEnd})
	require.NoError(t, err)
	assert.Equal(t, later, evt.StartsAt.UTC())
	assert.Equal(t, laterEnd, evt.EndsAt.UTC())
}

func TestService_Move(t *testing.T) {
	svcs := testutil.NewServices(t)
	ctx := context.Background()
	staff := testutil.CreateUser(t, svcs, "Jane Doe", "jdoe", testPassword, nil, true)
	cat := testutil.CreateCategory(t, svcs, "Trip")
	d := testutil.CreateEvent(t, svcs, staff, cat, "Museum", monday, monday.Add(90*time.Minute))
	tuesday := core.Date(monday).AddDate(0, 0, 1)
	friday := core.Date(monday).AddDate(0, 0, 4)

	_, err := svcs.Events.Move(ctx, "nope", event.NewTiming{StartsAt: monday})
	assert.Equal(t, event.ErrNotFound, errors.Cause(err))

	tests := []struct {
		name       string
		setup      func(t *testing.T)
		to         event.NewTiming
		wantStarts time.Time
		wantEnds   time.Time
	}{
		{"keeps length", nil, event.NewTiming{StartsAt: monday.Add(2 * time.Hour)}, monday.Add(2 * time.Hour), monday.Add(210 * time.Minute)},
		{"into the all day row", nil, event.NewTiming{StartsAt: tuesday.Add(14 * time.Hour), AllDay: true}, tuesday, tuesday.AddDate(0, 0, 1)},
		{"keeps whole days", func(t *testing.T) {
			ends := tuesday.AddDate(0, 0, 3)
			_, err := svcs.Events.Update(ctx, d.ID, event.UpdateEvent{EndsAt: &ends})
			require.NoError(t, err)
		}, event.NewTiming{StartsAt: friday, AllDay: true}, friday, friday.AddDate(0, 0, 3)},
		{"out of the all day row", nil, event.NewTiming{StartsAt: friday.Add(10 * time.Hour)}, friday.Add(10 * time.Hour), friday.Add(11 * time.Hour)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setup != nil {
				tt.setup(t)
			}
			evt, err := svcs.Events.Move(ctx, d.ID, tt.to)
			require.NoError(t, err)
			assert.Equal(t, tt.to.AllDay, evt.AllDay)
			assert.Equal(t, tt.wantStarts, evt.StartsAt.UTC())
			assert.Equal(t, tt.wantEnds, evt.EndsAt.UTC())
		})
	}
}

func TestService_Clone(t *testing.T) {
	svcs := testutil.NewServices(t)
	ctx := context.Background()
	manager := testutil.CreateUser(t, svcs, "Site Manager", "manager", testPassword, &user.Permissions{}, false)
	staff := testutil.CreateUser(t, svcs, "Jane Doe", "jdoe", testPassword, nil, true)
	other := testutil.CreateUser(t, svcs, "John Smith", "jsmith", testPassword, nil, true)
	hall := testutil.CreateElement(t, svcs, "Main Hall", element.KindLocation, "")
	own(t, svcs, manager, hall)
	cat := testutil.CreateCategory(t, svcs, "Trip")
	d := testutil.CreateEvent(t, svcs, staff, cat, "Museum", monday, monday.Add(time.Hour), hall.ID)

	_, err := svcs.Events.Clone(ctx, checker(t, svcs, other), "nope")
	assert.Equal(t, event.ErrNotFound, errors.Cause(err))

	cp, err := svcs.Events.Clone(ctx, checker(t, svcs, other), d.ID)
	require.NoError(t, err)
	assert.NotEqual(t, d.ID, cp.ID)
	assert.Equal(t, other.ID, cp.OwnerID)
	assert.Equal(t, "Museum", cp.Body)
	assert.Equal(t, cat.ID, cp.CategoryID)
	assert.Equal(t, monday, cp.StartsAt.UTC())
	assert.Equal(t, monday.Add(time.Hour), cp.EndsAt.UTC())
	require.Len(t, cp.Commitments, 1)
	assert.Equal(t, hall.ID, cp.Commitments[0].ElementID)
	assert.Equal(t, event.StatusRequested, cp.Commitments[0].Status)

	orig, err := svcs.Events.GetDetail(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, staff.ID, orig.OwnerID)
	assert.Len(t, orig.Commitments, 1)
}

func TestService_commitmentWorkflow(t *testing.T) {
	svcs := testutil.NewServices(t)
	ctx := context.Background()
	manager := testutil.CreateUser(t, svcs, "Site Manager", "manager", testPassword, &user.Permissions{}, false)
	staff := testutil.CreateUser(t, svcs, "Jane Doe", "jdoe", testPassword, nil, true)
	hall := testutil.CreateElement(t, svcs, "Main Hall", element.KindLocation, "")
	own(t, svcs, manager, hall)
	cat := testutil.CreateCategory(t, svcs, "Concert")
	starts := upcoming()

	concert := testutil.CreateEvent(t, svcs, staff, cat, "Spring concert", starts, starts.Add(2*time.Hour), hall.ID)
	require.Len(t, concert.Commitments, 1)
	c := concert.Commitments[0]
	assert.Equal(t, event.StatusRequested, c.Status)
	assert.False(t, concert.Complete)

	sent := svcs.Mail.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "manager@example.com", sent[0].To[0].Address)
	assert.Equal(t, "Request for Main Hall", sent[0].Subject)
	assert.Contains(t, sent[0].TextContent, "Spring concert")

	managerChk, staffChk := checker(t, svcs, manager), checker(t, svcs, staff)
	p, err := svcs.Pending.Pending(ctx, managerChk)
	require.NoError(t, err)
	assert.Equal(t, event.Pending{Permissions: 1}, p)
	p, err = svcs.Pending.Pending(ctx, staffChk)
	require.NoError(t, err)
	assert.Equal(t, event.Pending{Waiting: 1}, p)

	// rejection keeps the reason as a note and sends the event owner a message
	c, err = svcs.Events.Reject(ctx, manager.ID, c.ID, "The hall is being painted")
	require.NoError(t, err)
	assert.Equal(t, event.StatusRejected, c.Status)
	assert.Equal(t, manager.ID, c.ByWhomID)

	notes, err := svcs.Events.Notes(ctx, event.ParentCommitment, c.ID)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "The hall is being painted", notes[0].Contents)
	assert.Equal(t, manager.ID, notes[0].OwnerID)

	sent = svcs.Mail.SentMessages()
	require.Len(t, sent, 2)
	assert.Equal(t, "jdoe@example.com", sent[1].To[0].Address)
	assert.Equal(t, "Request for Main Hall rejected", sent[1].Subject)

	p, err = svcs.Pending.Pending(ctx, staffChk)
	require.NoError(t, err)
	assert.Equal(t, event.Pending{Events: 1}, p)
	assert.Equal(t, 1, p.EventsTotal())

	c, err = svcs.Events.Approve(ctx, manager.ID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, event.StatusConfirmed, c.Status)
	assert.Empty(t, c.Reason)
	evt, err := svcs.Events.Get(ctx, concert.ID)
	require.NoError(t, err)
	assert.True(t, evt.Constrained)
	assert.True(t, evt.Complete)

	// moving the event sends the commitment back for approval
	moved, movedEnd := starts.Add(24*time.Hour), starts.Add(26*time.Hour)
	evt, err = svcs.Events.Update(ctx, concert.ID, event.UpdateEvent{StartsAt: &moved, EndsAt: &movedEnd})
	require.NoError(t, err)
	assert.False(t, evt.Constrained)
	assert.False(t, evt.Complete)
	c, err = svcs.Events.GetCommitment(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, event.StatusRequested, c.Status)
	assert.Empty(t, c.ByWhomID)

	c, err = svcs.Events.NoteCommitment(ctx, manager.ID, c.ID, "How many chairs?")
	require.NoError(t, err)
	assert.Equal(t, event.StatusNoted, c.Status)

	require.NoError(t, svcs.Events.RemoveCommitment(ctx, c.ID))
	evt, err = svcs.Events.Get(ctx, concert.ID)
	require.NoError(t, err)
	assert.True(t, evt.Complete)
	_, err = svcs.Events.GetCommitment(ctx, c.ID)
	assert.Equal(t, event.ErrCommitmentNotFound, errors.Cause(err))
	p, err = svcs.Pending.Pending(ctx, managerChk)
	require.NoError(t, err)
	assert.Equal(t, event.Pending{}, p)
}

func TestService_commitmentByOwner(t *testing.T) {
	svcs := testutil.NewServices(t)
	ctx := context.Background()
	manager := testutil.CreateUser(t, svcs, "Site Manager", "manager", testPassword, nil, true)
	hall := testutil.CreateElement(t, svcs, "Main Hall", element.KindLocation, "")
	own(t, svcs, manager, hall)
	cat := testutil.CreateCategory(t, svcs, "Concert")

	d := testutil.CreateEvent(t, svcs, manager, cat, "Spring concert", monday, monday.Add(time.Hour), hall.ID)
	require.Len(t, d.Commitments, 1)
	assert.Equal(t, event.StatusConfirmed, d.Commitments[0].Status)
	assert.Equal(t, manager.ID, d.Commitments[0].ByWhomID)
	assert.True(t, d.Constrained)
	assert.Empty(t, svcs.Mail.SentMessages())

	// the owner's own decisions do not generate mail either
	_, err := svcs.Events.Reject(ctx, manager.ID, d.Commitments[0].ID, "")
	require.NoError(t, err)
	assert.Empty(t, svcs.Mail.SentMessages())
	notes, err := svcs.Events.Notes(ctx, event.ParentCommitment, d.Commitments[0].ID)
	require.NoError(t, err)
	assert.Empty(t, notes)
}

func TestService_permissionsNotEnforced(t *testing.T) {
	svcs := testutil.NewServices(t)
	svcs.Conf.Scheduling.EnforcePermissions = false
	manager := testutil.CreateUser(t, svcs, "Site Manager", "manager", testPassword, &user.Permissions{}, false)
	staff := testutil.CreateUser(t, svcs, "Jane Doe", "jdoe", testPassword, nil, true)
	hall := testutil.CreateElement(t, svcs, "Main Hall", element.KindLocation, "")
	own(t, svcs, manager, hall)
	cat := testutil.CreateCategory(t, svcs, "Concert")

	d := testutil.CreateEvent(t, svcs, staff, cat, "Spring concert", monday, monday.Add(time.Hour), hall.ID)
	require.Len(t, d.Commitments, 1)
	assert.Equal(t, event.StatusUncontrolled, d.Commitments[0].Status)

	_, err := svcs.Events.Approve(context.Background(), manager.ID, d.Commitments[0].ID)
	verr, ok := errors.Cause(err).(*core.ValidationError)
	require.True(t, ok, "err = %v", err)
	assert.Equal(t, event.ErrNotControlled, verr.Err)
}

func TestService_Notes(t *testing.T) {
	svcs := testutil.NewServices(t)
	ctx := context.Background()
	staff := testutil.CreateUser(t, svcs, "Jane Doe", "jdoe", testPassword, nil, true)
	cat := testutil.CreateCategory(t, svcs, "Lesson")
	d := testutil.CreateEvent(t, svcs, staff, cat, "Chemistry", monday, monday.Add(time.Hour))

	_, err := svcs.Events.AddNote(ctx, staff.ID, event.ParentType("user"), d.ID, event.NewNote{Contents: "Hi"})
	assert.Equal(t, map[string]string{"parent_type": "unknown parent type"}, validationFields(t, err))
	_, err = svcs.Events.AddNote(ctx, staff.ID, event.ParentEvent, "nope", event.NewNote{Contents: "Hi"})
	assert.Equal(t, event.ErrNotFound, errors.Cause(err))
	_, err = svcs.Events.AddNote(ctx, staff.ID, event.ParentCommitment, "nope", event.NewNote{Contents: "Hi"})
	assert.Equal(t, event.ErrCommitmentNotFound, errors.Cause(err))

	hidden := false
	n, err := svcs.Events.AddNote(ctx, staff.ID, event.ParentEvent, d.ID, event.NewNote{Title: " Kit ", Contents: "Goggles", VisibleStaff: &hidden})
	require.NoError(t, err)
	assert.Equal(t, "Kit", n.Title)
	assert.Equal(t, event.NoteOrdinary, n.Kind)
	assert.False(t, n.VisibleStaff)

	contents := "Goggles and gloves"
	n, err = svcs.Events.UpdateNote(ctx, n.ID, event.UpdateNote{Contents: &contents})
	require.NoError(t, err)
	assert.Equal(t, contents, n.Contents)
	assert.Equal(t, "Kit", n.Title)

	notes, err := svcs.Events.Notes(ctx, event.ParentEvent, d.ID)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, n.ID, notes[0].ID)

	require.NoError(t, svcs.Events.DeleteNote(ctx, n.ID))
	_, err = svcs.Events.GetNote(ctx, n.ID)
	assert.Equal(t, event.ErrNoteNotFound, errors.Cause(err))
}

func TestService_Delete(t *testing.T) {
	svcs := testutil.NewServices(t)
	ctx := context.Background()
	staff := testutil.CreateUser(t, svcs, "Jane Doe", "jdoe", testPassword, nil, true)
	lab := testutil.CreateElement(t, svcs, "Lab 1", element.KindLocation, "")
	cat := testutil.CreateCategory(t, svcs, "Lesson")
	chemistry := testutil.CreateEvent(t, svcs, staff, cat, "Chemistry", monday, monday.Add(time.Hour), lab.ID)
	physics := testutil.CreateEvent(t, svcs, staff, cat, "Physics", monday.Add(time.Hour), monday.Add(2*time.Hour), lab.ID)
	n, err := svcs.Events.AddNote(ctx, staff.ID, event.ParentEvent, chemistry.ID, event.NewNote{Contents: "Goggles"})
	require.NoError(t, err)

	cnt, err := svcs.Events.Delete(ctx, chemistry.ID, "nope")
	require.NoError(t, err)
	assert.Equal(t, 1, cnt)

	_, err = svcs.Events.Get(ctx, chemistry.ID)
	assert.Equal(t, event.ErrNotFound, errors.Cause(err))
	_, err = svcs.Events.GetCommitment(ctx, chemistry.Commitments[0].ID)
	assert.Equal(t, event.ErrCommitmentNotFound, errors.Cause(err))
	_, err = svcs.Events.GetNote(ctx, n.ID)
	assert.Equal(t, event.ErrNoteNotFound, errors.Cause(err))

	cs, err := svcs.Events.QueryCommitments(ctx, event.CommitmentFilter{ElementIDs: []string{lab.ID}})
	require.NoError(t, err)
	require.Len(t, cs, 1)
	assert.Equal(t, physics.ID, cs[0].EventID)
}

func TestService_Query(t *testing.T) {
	svcs := testutil.NewServices(t)
	ctx := context.Background()
	staff := testutil.CreateUser(t, svcs, "Jane Doe", "jdoe", testPassword, nil, true)
	lab := testutil.CreateElement(t, svcs, "Lab 1", element.KindLocation, "")
	lesson := testutil.CreateCategory(t, svcs, "Lesson")
	trip := testutil.CreateCategory(t, svcs, "Trip")
	chemistry := testutil.CreateEvent(t, svcs, staff, lesson, "Chemistry", monday, monday.Add(time.Hour), lab.ID)
	museum := testutil.CreateEvent(t, svcs, staff, trip, "Museum", monday.AddDate(0, 0, 1), monday.AddDate(0, 0, 1).Add(time.Hour))

	ids := func(evts []event.Event) []string {
		var ids []string
		for _, e := range evts {
			ids = append(ids, e.ID)
		}
		return ids
	}
	tests := []struct {
		name   string
		filter event.QueryFilter
		want   []string
	}{
		{"all", event.QueryFilter{}, []string{chemistry.ID, museum.ID}},
		{"by category", event.QueryFilter{CategoryIDs: []string{trip.ID}}, []string{museum.ID}},
		{"by element", event.QueryFilter{ElementIDs: []string{lab.ID}}, []string{chemistry.ID}},
		{"by window", event.QueryFilter{Start: monday.AddDate(0, 0, 1), End: monday.AddDate(0, 0, 2)}, []string{museum.ID}},
		{"by search", event.QueryFilter{Search: "chem"}, []string{chemistry.ID}},
		{"no match", event.QueryFilter{OwnerID: "nope"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evts, err := svcs.Events.Query(ctx, &tt.filter, []core.DBOrdering{{Field: "starts_at", Ascending: true}})
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(evts))
		})
	}
}
