package element_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xronos/xronos/core"
	"github.com/xronos/xronos/core/element"
	"github.com/xronos/xronos/core/user"
	inmemdb "github.com/xronos/xronos/storage/database/inmem"
	"github.com/xronos/xronos/tests"
)

type invalidatorStub struct{ userIDs []string }

func (s *invalidatorStub) Invalidate(_ context.Context, userIDs ...string) error {
	s.userIDs = append(s.userIDs, userIDs...)
	return nil
}

func names(els []element.Element) []string {
	ns := make([]string, 0, len(els))
	for _, el := range els {
		ns = append(ns, el.Name)
	}
	return ns
}

func validationField(t *testing.T, err error) string {
	t.Helper()
	verr, ok := errors.Cause(err).(*core.ValidationError)
	require.True(t, ok, "got %v", err)
	require.NotEmpty(t, verr.Fields)
	return verr.Fields[0].Field
}

func TestService_Create(t *testing.T) {
	svcs := testutil.NewServices(t)
	ctx := context.Background()
	today := core.Date(time.Now().UTC())

	room, err := svcs.Elements.Create(ctx, element.NewElement{Name: "Lab 1", Kind: element.KindLocation}, "someone")
	require.NoError(t, err)
	assert.True(t, room.Current)
	assert.Empty(t, room.OwnerID)
	assert.Nil(t, room.StartsOn)

	grp, err := svcs.Elements.Create(ctx, element.NewElement{Name: "Chess club", Kind: element.KindGroup}, "someone")
	require.NoError(t, err)
	assert.Equal(t, "someone", grp.OwnerID)
	assert.True(t, grp.UserEditable)
	require.NotNil(t, grp.StartsOn)
	assert.Equal(t, today, *grp.StartsOn)

	past := today.AddDate(0, 0, -1)
	_, err = svcs.Elements.Update(ctx, grp.ID, element.UpdateElement{EndsOn: &past})
	assert.Equal(t, "ends_on", validationField(t, err))

	email := " Lab1@Example.com "
	room, err = svcs.Elements.Update(ctx, room.ID, element.UpdateElement{Name: "Lab One", Email: &email})
	require.NoError(t, err)
	assert.Equal(t, "Lab One", room.Name)
	assert.Equal(t, "lab1@example.com", room.Email)

	hall, err := svcs.Elements.Create(ctx, element.NewElement{Name: " Main Hall\n", Email: " Hall@Example.com", Kind: element.KindLocation}, "")
	require.NoError(t, err)
	assert.Equal(t, "Main Hall", hall.Name)
	assert.Equal(t, "hall@example.com", hall.Email)
}

func TestService_Groups(t *testing.T) {
	svcs := testutil.NewServices(t)
	ctx := context.Background()
	today := core.Date(time.Now().UTC())

	amy := testutil.CreateElement(t, svcs, "Amy", element.KindPupil, "")
	ben := testutil.CreateElement(t, svcs, "Ben", element.KindPupil, "")
	cat := testutil.CreateElement(t, svcs, "Cat", element.KindPupil, "")
	year7 := testutil.CreateElement(t, svcs, "Year 7", element.KindGroup, "")
	school := testutil.CreateElement(t, svcs, "School", element.KindGroup, "")

	add := func(grp element.Element, nm element.NewMembership) element.Membership {
		t.Helper()
		m, err := svcs.Elements.AddMember(ctx, grp.ID, nm)
		require.NoError(t, err)
		return m
	}
	add(year7, element.NewMembership{ElementID: amy.ID})
	add(year7, element.NewMembership{ElementID: ben.ID})
	yesterday := today.AddDate(0, 0, -1)
	lastWeek := today.AddDate(0, 0, -7)
	add(year7, element.NewMembership{ElementID: cat.ID, StartsOn: &lastWeek, EndsOn: &yesterday})
	add(school, element.NewMembership{ElementID: year7.ID})
	add(school, element.NewMembership{ElementID: ben.ID, Inverse: true})

	t.Run("invalid memberships", func(t *testing.T) {
		_, err := svcs.Elements.AddMember(ctx, amy.ID, element.NewMembership{ElementID: ben.ID})
		assert.Equal(t, element.ErrNotAGroup, err)

		_, err = svcs.Elements.AddMember(ctx, year7.ID, element.NewMembership{ElementID: year7.ID})
		assert.Equal(t, "element_id", validationField(t, err))

		_, err = svcs.Elements.AddMember(ctx, year7.ID, element.NewMembership{ElementID: "nope"})
		assert.Equal(t, "element_id", validationField(t, err))

		_, err = svcs.Elements.AddMember(ctx, year7.ID, element.NewMembership{ElementID: amy.ID, StartsOn: &today, EndsOn: &yesterday})
		assert.Equal(t, "ends_on", validationField(t, err))
	})

	t.Run("members", func(t *testing.T) {
		direct, err := svcs.Elements.Members(ctx, year7.ID, today, false)
		require.NoError(t, err)
		assert.Equal(t, []string{"Amy", "Ben"}, names(direct))

		lastWeeks, err := svcs.Elements.Members(ctx, year7.ID, lastWeek, false)
		require.NoError(t, err)
		assert.Equal(t, []string{"Cat"}, names(lastWeeks))

		direct, err = svcs.Elements.Members(ctx, school.ID, today, false)
		require.NoError(t, err)
		assert.Equal(t, []string{"Year 7"}, names(direct))

		atomic, err := svcs.Elements.Members(ctx, school.ID, today, true)
		require.NoError(t, err)
		assert.Equal(t, []string{"Amy"}, names(atomic))

		_, err = svcs.Elements.Members(ctx, amy.ID, today, false)
		assert.Equal(t, element.ErrNotAGroup, err)
	})

	t.Run("groups of", func(t *testing.T) {
		groups, err := svcs.Elements.GroupsOf(ctx, amy.ID, today, false)
		require.NoError(t, err)
		assert.Equal(t, []string{"Year 7"}, names(groups))

		groups, err = svcs.Elements.GroupsOf(ctx, amy.ID, today, true)
		require.NoError(t, err)
		assert.Equal(t, []string{"School", "Year 7"}, names(groups))

		ids, err := svcs.Elements.WithGroups(ctx, []string{amy.ID}, today)
		require.NoError(t, err)
		assert.Equal(t, []string{amy.ID, year7.ID, school.ID}, ids)

		ids, err = svcs.Elements.WithGroups(ctx, []string{cat.ID}, today)
		require.NoError(t, err)
		assert.Equal(t, []string{cat.ID}, ids)
	})

	t.Run("remove", func(t *testing.T) {
		ms, err := svcs.Elements.Memberships(ctx, school.ID)
		require.NoError(t, err)
		require.Len(t, ms, 2)
		assert.Equal(t, element.ErrMembershipNotFound, svcs.Elements.RemoveMember(ctx, year7.ID, ms[0].ID))
		for _, m := range ms {
			require.NoError(t, svcs.Elements.RemoveMember(ctx, school.ID, m.ID))
		}
		atomic, err := svcs.Elements.Members(ctx, school.ID, today, true)
		require.NoError(t, err)
		assert.Empty(t, atomic)
	})
}

func TestService_Concerns(t *testing.T) {
	svcs := testutil.NewServices(t)
	ctx := context.Background()
	usr := testutil.CreateUser(t, svcs, "Jane Doe", "jdoe", "Sup3r-S3cret!", nil, true)
	lab := testutil.CreateElement(t, svcs, "Lab 1", element.KindLocation, "")
	hall := testutil.CreateElement(t, svcs, "Main Hall", element.KindLocation, "")
	me := testutil.CreateElement(t, svcs, "Jane Doe", element.KindStaff, "")

	ownerFlag := func() bool {
		t.Helper()
		got, err := svcs.Users.GetByID(ctx, usr.ID)
		require.NoError(t, err)
		return got.ElementOwner
	}

	_, err := svcs.Elements.OwnElement(ctx, usr.ID)
	assert.Equal(t, element.ErrNotFound, err)
	_, err = svcs.Elements.CreateConcern(ctx, usr.ID, element.NewConcern{ElementID: me.ID, Equality: true})
	require.NoError(t, err)
	own, err := svcs.Elements.OwnElement(ctx, usr.ID)
	require.NoError(t, err)
	assert.Equal(t, me.ID, own.ID)

	c, err := svcs.Elements.CreateConcern(ctx, usr.ID, element.NewConcern{ElementID: lab.ID, Owns: true})
	require.NoError(t, err)
	assert.True(t, c.Visible)
	assert.Equal(t, element.DecentColours[1], c.Colour)
	assert.True(t, c.CanCommit())
	assert.False(t, c.UserCanDelete())
	assert.True(t, ownerFlag())
	got, err := svcs.Elements.Get(ctx, lab.ID)
	require.NoError(t, err)
	assert.True(t, got.Owned)

	_, err = svcs.Elements.CreateConcern(ctx, usr.ID, element.NewConcern{ElementID: lab.ID})
	assert.Equal(t, "element_id", validationField(t, err))
	_, err = svcs.Elements.CreateConcern(ctx, usr.ID, element.NewConcern{ElementID: "nope"})
	assert.Equal(t, "element_id", validationField(t, err))

	no := false
	c, err = svcs.Elements.UpdateConcern(ctx, c.ID, element.UpdateConcern{Owns: &no, Colour: "#000000"})
	require.NoError(t, err)
	assert.Equal(t, "#000000", c.Colour)
	assert.False(t, ownerFlag())
	got, err = svcs.Elements.Get(ctx, lab.ID)
	require.NoError(t, err)
	assert.False(t, got.Owned)

	// deleting an owned element clears the owner flag
	_, err = svcs.Elements.CreateConcern(ctx, usr.ID, element.NewConcern{ElementID: hall.ID, Owns: true})
	require.NoError(t, err)
	assert.True(t, ownerFlag())
	n, err := svcs.Elements.Delete(ctx, hall.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.False(t, ownerFlag())

	require.NoError(t, svcs.Elements.DeleteConcern(ctx, c.ID))
	_, err = svcs.Elements.GetConcern(ctx, c.ID)
	assert.Equal(t, element.ErrConcernNotFound, errors.Cause(err))
}

func TestService_ownershipInvalidatesPending(t *testing.T) {
	ctx := context.Background()
	db, err := inmemdb.Open()
	require.NoError(t, err)
	svc := element.NewService(inmemdb.NewElementRepository(db), nil)
	pending := &invalidatorStub{}
	svc.SetPending(pending)

	lab, err := svc.Create(ctx, element.NewElement{Name: "Lab 1", Kind: element.KindLocation}, "")
	require.NoError(t, err)
	_, err = svc.CreateConcern(ctx, "u1", element.NewConcern{ElementID: lab.ID})
	require.NoError(t, err)
	assert.Empty(t, pending.userIDs)

	c, err := svc.CreateConcern(ctx, "u2", element.NewConcern{ElementID: lab.ID, Owns: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"u2"}, pending.userIDs)

	no := false
	_, err = svc.UpdateConcern(ctx, c.ID, element.UpdateConcern{Owns: &no})
	require.NoError(t, err)
	assert.Equal(t, []string{"u2", "u2"}, pending.userIDs)

	yes := true
	_, err = svc.UpdateConcern(ctx, c.ID, element.UpdateConcern{Owns: &yes})
	require.NoError(t, err)
	_, err = svc.Delete(ctx, lab.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"u2", "u2", "u2", "u2"}, pending.userIDs)
}

func TestNewConcern_Privileged(t *testing.T) {
	tests := []struct {
		name string
		nc   element.NewConcern
		want bool
	}{
		{"plain", element.NewConcern{ElementID: "x"}, false},
		{"owns", element.NewConcern{ElementID: "x", Owns: true}, true},
		{"equality", element.NewConcern{ElementID: "x", Equality: true}, true},
		{"skip permissions", element.NewConcern{ElementID: "x", SkipPermissions: true}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.nc.Privileged())
		})
	}
	yes := true
	assert.False(t, element.UpdateConcern{Visible: &yes}.Privileged())
	assert.True(t, element.UpdateConcern{EditAny: &yes}.Privileged())
}

var _ element.OwnerFlagger = (*user.Service)(nil)
