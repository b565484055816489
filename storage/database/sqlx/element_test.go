package sqlxrepos

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xronos/xronos/core"
	"github.com/xronos/xronos/core/element"
)

func TestElementRepository_QueryElements(t *testing.T) {
	ctx := context.Background()
	db, mock := setupMockDB(t)
	repo := NewElementRepository(db)

	current := true
	starts := time.Date(2021, 9, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "name", "kind", "current", "owned", "starts_on", "ends_on"}).
		AddRow("g1", "Year 7", "group", true, false, starts, nil).
		AddRow("s1", "Jane Doe", "staff", true, true, nil, nil)
	mock.ExpectQuery(`SELECT (.+) FROM element WHERE kind IN \(\$1, \$2\) AND current = \$3 ORDER BY kind DESC`).
		WithArgs("group", "staff", true).
		WillReturnRows(rows)

	els, err := repo.QueryElements(ctx,
		&element.QueryFilter{Kinds: []string{"group", "staff"}, Current: &current},
		[]core.DBOrdering{{Field: "kind"}, {Field: "password"}},
	)
	require.NoError(t, err)
	require.Len(t, els, 2)
	assert.Equal(t, element.KindGroup, els[0].Kind)
	require.NotNil(t, els[0].StartsOn)
	assert.Equal(t, starts, *els[0].StartsOn)
	assert.Nil(t, els[0].EndsOn)
	assert.True(t, els[1].Owned)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestElementRepository_GetElement_NotFound(t *testing.T) {
	ctx := context.Background()
	db, mock := setupMockDB(t)
	repo := NewElementRepository(db)

	id := "0a6a1f3c-94c2-4b8e-8f61-0c3d3d2f9e10"
	mock.ExpectQuery(`SELECT (.+) FROM element WHERE id = \$1`).
		WithArgs(id).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetElement(ctx, id)
	assert.Equal(t, element.ErrNotFound, err)
	_, err = repo.GetElement(ctx, "bogus")
	assert.Equal(t, element.ErrNotFound, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestElementRepository_QueryMemberships(t *testing.T) {
	ctx := context.Background()
	db, mock := setupMockDB(t)
	repo := NewElementRepository(db)

	inverse := false
	starts := time.Date(2021, 9, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT (.+) FROM membership WHERE group_id IN \(\$1\) AND inverse = \$2 ORDER BY starts_on ASC`).
		WithArgs("g1", false).
		WillReturnRows(sqlmock.NewRows([]string{"id", "group_id", "element_id", "starts_on", "ends_on", "inverse"}).
			AddRow("m1", "g1", "p1", starts, nil, false))

	ms, err := repo.QueryMemberships(ctx, element.MembershipFilter{GroupIDs: []string{"g1"}, Inverse: &inverse})
	require.NoError(t, err)
	require.Len(t, ms, 1)
	assert.Equal(t, "p1", ms[0].ElementID)
	assert.Equal(t, starts, ms[0].StartsOn)
	assert.Nil(t, ms[0].EndsOn)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestElementRepository_Concerns(t *testing.T) {
	ctx := context.Background()
	db, mock := setupMockDB(t)
	repo := NewElementRepository(db)

	owns := true
	mock.ExpectQuery(`SELECT (.+) FROM concern WHERE user_id = \$1 AND owns = \$2 ORDER BY created_at ASC`).
		WithArgs("u1", true).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "element_id", "owns", "colour"}).
			AddRow("c1", "u1", "r1", true, "#225588"))

	cs, err := repo.QueryConcerns(ctx, element.ConcernFilter{UserID: "u1", Owns: &owns})
	require.NoError(t, err)
	require.Len(t, cs, 1)
	assert.True(t, cs[0].CanCommit())
	assert.Equal(t, "#225588", cs[0].Colour)

	id := "9f1d5c7a-2b3e-4f60-8a9b-0c1d2e3f4a5b"
	mock.ExpectExec(`DELETE FROM concern WHERE id = \$1`).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.Equal(t, element.ErrConcernNotFound, repo.DeleteConcern(ctx, id))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestElementRepository_DeleteElementsByID(t *testing.T) {
	ctx := context.Background()
	db, mock := setupMockDB(t)
	repo := NewElementRepository(db)

	mock.ExpectExec(`DELETE FROM element WHERE id IN \(\$1\)`).
		WithArgs("e1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	cnt, err := repo.DeleteElementsByID(ctx, []string{"e1"})
	require.NoError(t, err)
	assert.Equal(t, 1, cnt)
	assert.NoError(t, mock.ExpectationsWereMet())
}
