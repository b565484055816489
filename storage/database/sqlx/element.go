package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/xronos/xronos/core"
	"github.com/xronos/xronos/core/element"
)

const (
	elementColumns = `id, name, kind, current, source_id, email, initials, short_name, owned, requires_form,
	owner_id, user_editable, starts_on, ends_on, created_at, updated_at`
	membershipColumns = `id, group_id, element_id, starts_on, ends_on, inverse, created_at, updated_at`
	concernColumns    = `id, user_id, element_id, equality, owns, edit_any, subedit_any, skip_permissions,
	visible, colour, created_at, updated_at`
)

var elementOrderFields = map[string]string{
	"name":       "name",
	"kind":       "kind",
	"created_at": "created_at",
}

type elementRow struct {
	ID           string      `db:"id"`
	Name         string      `db:"name"`
	Kind         string      `db:"kind"`
	Current      bool        `db:"current"`
	SourceID     null.String `db:"source_id"`
	Email        null.String `db:"email"`
	Initials     null.String `db:"initials"`
	ShortName    null.String `db:"short_name"`
	Owned        bool        `db:"owned"`
	RequiresForm bool        `db:"requires_form"`
	OwnerID      null.String `db:"owner_id"`
	UserEditable bool        `db:"user_editable"`
	StartsOn     null.Time   `db:"starts_on"`
	EndsOn       null.Time   `db:"ends_on"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
}

type membershipRow struct {
	ID        string    `db:"id"`
	GroupID   string    `db:"group_id"`
	ElementID string    `db:"element_id"`
	StartsOn  time.Time `db:"starts_on"`
	EndsOn    null.Time `db:"ends_on"`
	Inverse   bool      `db:"inverse"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type concernRow struct {
	ID              string    `db:"id"`
	UserID          string    `db:"user_id"`
	ElementID       string    `db:"element_id"`
	Equality        bool      `db:"equality"`
	Owns            bool      `db:"owns"`
	EditAny         bool      `db:"edit_any"`
	SubeditAny      bool      `db:"subedit_any"`
	SkipPermissions bool      `db:"skip_permissions"`
	Visible         bool      `db:"visible"`
	Colour          string    `db:"colour"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

func nullString(s string) null.String { return null.NewString(s, s != "") }

func nullTime(t *time.Time) null.Time {
	if t == nil {
		return null.Time{}
	}
	return null.TimeFrom(t.UTC())
}

func timePtr(t null.Time) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

type elementRepository struct {
	db *sqlx.DB
}

var _ element.Repository = (*elementRepository)(nil) // interface compliance check

func NewElementRepository(db *sqlx.DB) element.Repository {
	return &elementRepository{db: db}
}

func (repo elementRepository) boil(el element.Element) elementRow {
	return elementRow{
		ID:           el.ID,
		Name:         el.Name,
		Kind:         string(el.Kind),
		Current:      el.Current,
		SourceID:     nullString(el.SourceID),
		Email:        nullString(el.Email),
		Initials:     nullString(el.Initials),
		ShortName:    nullString(el.ShortName),
		Owned:        el.Owned,
		RequiresForm: el.RequiresForm,
		OwnerID:      nullString(el.OwnerID),
		UserEditable: el.UserEditable,
		StartsOn:     nullTime(el.StartsOn),
		EndsOn:       nullTime(el.EndsOn),
		CreatedAt:    el.CreatedAt.UTC(),
		UpdatedAt:    el.UpdatedAt.UTC(),
	}
}

func (repo elementRepository) unboil(row elementRow) element.Element {
	return element.Element{
		ID:           row.ID,
		Name:         row.Name,
		Kind:         element.Kind(row.Kind),
		Current:      row.Current,
		SourceID:     row.SourceID.String,
		Email:        row.Email.String,
		Initials:     row.Initials.String,
		ShortName:    row.ShortName.String,
		Owned:        row.Owned,
		RequiresForm: row.RequiresForm,
		OwnerID:      row.OwnerID.String,
		UserEditable: row.UserEditable,
		StartsOn:     timePtr(row.StartsOn),
		EndsOn:       timePtr(row.EndsOn),
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}

func (repo elementRepository) CreateElement(ctx context.Context, el element.Element) (element.Element, error) {
	el.ID = uuid.New().String()
	q := `INSERT INTO element (` + elementColumns + `) VALUES (:id, :name, :kind, :current, :source_id, :email,
		:initials, :short_name, :owned, :requires_form, :owner_id, :user_editable, :starts_on, :ends_on,
		:created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, repo.boil(el)); err != nil {
		return element.Element{}, errors.Wrap(err, "inserting element")
	}
	return el, nil
}

func (repo elementRepository) GetElement(ctx context.Context, id string) (element.Element, error) {
	if _, err := uuid.Parse(id); err != nil {
		return element.Element{}, element.ErrNotFound
	}
	var row elementRow
	q := repo.db.Rebind("SELECT " + elementColumns + " FROM element WHERE id = ?")
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return element.Element{}, trapNoRowsErr(err, element.ErrNotFound, "finding element")
	}
	return repo.unboil(row), nil
}

func (repo elementRepository) QueryElements(ctx context.Context, filter *element.QueryFilter, ordering []core.DBOrdering) ([]element.Element, error) {
	var w where
	if filter != nil {
		if len(filter.IDs) > 0 {
			w.add("id IN (?)", filter.IDs)
		}
		if filter.Search != "" {
			w.add("name ILIKE ?", "%"+filter.Search+"%")
		}
		if len(filter.Kinds) > 0 {
			w.add("kind IN (?)", filter.Kinds)
		}
		if filter.Current != nil {
			w.add("current = ?", *filter.Current)
		}
		if filter.SourceID != "" {
			w.add("source_id = ?", filter.SourceID)
		}
		if filter.OwnerID != "" {
			w.add("owner_id = ?", filter.OwnerID)
		}
	}

	var rows []elementRow
	q := "SELECT " + elementColumns + " FROM element" + w.String() + orderBy(ordering, elementOrderFields, "name ASC")
	if err := selectIn(ctx, repo.db, &rows, q, w.args); err != nil {
		return nil, errors.Wrap(err, "querying elements")
	}
	els := make([]element.Element, 0, len(rows))
	for _, row := range rows {
		els = append(els, repo.unboil(row))
	}
	return els, nil
}

func (repo elementRepository) UpdateElement(ctx context.Context, el element.Element) (element.Element, error) {
	q := `UPDATE element SET name = :name, current = :current, source_id = :source_id, email = :email,
		initials = :initials, short_name = :short_name, owned = :owned, requires_form = :requires_form,
		owner_id = :owner_id, user_editable = :user_editable, starts_on = :starts_on, ends_on = :ends_on,
		updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, repo.boil(el))
	if err != nil {
		return element.Element{}, errors.Wrap(err, "updating element")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return element.Element{}, element.ErrNotFound
	}
	return el, nil
}

// DeleteElementsByID relies on the ON DELETE CASCADE of memberships, concerns and commitments.
func (repo elementRepository) DeleteElementsByID(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	q, args, err := bind(repo.db, "DELETE FROM element WHERE id IN (?)", []interface{}{ids})
	if err != nil {
		return 0, err
	}
	res, err := repo.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting elements")
	}
	cnt, err := res.RowsAffected()
	return int(cnt), errors.Wrap(err, "counting deleted elements")
}

// Memberships

func (repo elementRepository) unboilMembership(row membershipRow) element.Membership {
	return element.Membership{
		ID:        row.ID,
		GroupID:   row.GroupID,
		ElementID: row.ElementID,
		StartsOn:  row.StartsOn,
		EndsOn:    timePtr(row.EndsOn),
		Inverse:   row.Inverse,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

func (repo elementRepository) CreateMembership(ctx context.Context, m element.Membership) (element.Membership, error) {
	m.ID = uuid.New().String()
	row := membershipRow{
		ID:        m.ID,
		GroupID:   m.GroupID,
		ElementID: m.ElementID,
		StartsOn:  m.StartsOn.UTC(),
		EndsOn:    nullTime(m.EndsOn),
		Inverse:   m.Inverse,
		CreatedAt: m.CreatedAt.UTC(),
		UpdatedAt: m.UpdatedAt.UTC(),
	}
	q := `INSERT INTO membership (` + membershipColumns + `)
		VALUES (:id, :group_id, :element_id, :starts_on, :ends_on, :inverse, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return element.Membership{}, errors.Wrap(err, "inserting membership")
	}
	return m, nil
}

func (repo elementRepository) GetMembership(ctx context.Context, id string) (element.Membership, error) {
	if _, err := uuid.Parse(id); err != nil {
		return element.Membership{}, element.ErrMembershipNotFound
	}
	var row membershipRow
	q := repo.db.Rebind("SELECT " + membershipColumns + " FROM membership WHERE id = ?")
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return element.Membership{}, trapNoRowsErr(err, element.ErrMembershipNotFound, "finding membership")
	}
	return repo.unboilMembership(row), nil
}

func (repo elementRepository) QueryMemberships(ctx context.Context, filter element.MembershipFilter) ([]element.Membership, error) {
	var w where
	if len(filter.GroupIDs) > 0 {
		w.add("group_id IN (?)", filter.GroupIDs)
	}
	if len(filter.ElementIDs) > 0 {
		w.add("element_id IN (?)", filter.ElementIDs)
	}
	if filter.Inverse != nil {
		w.add("inverse = ?", *filter.Inverse)
	}

	var rows []membershipRow
	q := "SELECT " + membershipColumns + " FROM membership" + w.String() + " ORDER BY starts_on ASC"
	if err := selectIn(ctx, repo.db, &rows, q, w.args); err != nil {
		return nil, errors.Wrap(err, "querying memberships")
	}
	ms := make([]element.Membership, 0, len(rows))
	for _, row := range rows {
		ms = append(ms, repo.unboilMembership(row))
	}
	return ms, nil
}

func (repo elementRepository) DeleteMembership(ctx context.Context, id string) error {
	return deleteByID(ctx, repo.db, "membership", id, element.ErrMembershipNotFound)
}

// Concerns

func (repo elementRepository) boilConcern(c element.Concern) concernRow {
	return concernRow{
		ID:              c.ID,
		UserID:          c.UserID,
		ElementID:       c.ElementID,
		Equality:        c.Equality,
		Owns:            c.Owns,
		EditAny:         c.EditAny,
		SubeditAny:      c.SubeditAny,
		SkipPermissions: c.SkipPermissions,
		Visible:         c.Visible,
		Colour:          c.Colour,
		CreatedAt:       c.CreatedAt.UTC(),
		UpdatedAt:       c.UpdatedAt.UTC(),
	}
}

func (repo elementRepository) unboilConcern(row concernRow) element.Concern {
	return element.Concern{
		ID:              row.ID,
		UserID:          row.UserID,
		ElementID:       row.ElementID,
		Equality:        row.Equality,
		Owns:            row.Owns,
		EditAny:         row.EditAny,
		SubeditAny:      row.SubeditAny,
		SkipPermissions: row.SkipPermissions,
		Visible:         row.Visible,
		Colour:          row.Colour,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}
}

func (repo elementRepository) CreateConcern(ctx context.Context, c element.Concern) (element.Concern, error) {
	c.ID = uuid.New().String()
	q := `INSERT INTO concern (` + concernColumns + `) VALUES (:id, :user_id, :element_id, :equality, :owns,
		:edit_any, :subedit_any, :skip_permissions, :visible, :colour, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, repo.boilConcern(c)); err != nil {
		return element.Concern{}, errors.Wrap(err, "inserting concern")
	}
	return c, nil
}

func (repo elementRepository) GetConcern(ctx context.Context, id string) (element.Concern, error) {
	if _, err := uuid.Parse(id); err != nil {
		return element.Concern{}, element.ErrConcernNotFound
	}
	var row concernRow
	q := repo.db.Rebind("SELECT " + concernColumns + " FROM concern WHERE id = ?")
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return element.Concern{}, trapNoRowsErr(err, element.ErrConcernNotFound, "finding concern")
	}
	return repo.unboilConcern(row), nil
}

func (repo elementRepository) QueryConcerns(ctx context.Context, filter element.ConcernFilter) ([]element.Concern, error) {
	var w where
	if filter.UserID != "" {
		w.add("user_id = ?", filter.UserID)
	}
	if len(filter.ElementIDs) > 0 {
		w.add("element_id IN (?)", filter.ElementIDs)
	}
	if filter.Owns != nil {
		w.add("owns = ?", *filter.Owns)
	}
	if filter.Equality != nil {
		w.add("equality = ?", *filter.Equality)
	}

	var rows []concernRow
	q := "SELECT " + concernColumns + " FROM concern" + w.String() + " ORDER BY created_at ASC"
	if err := selectIn(ctx, repo.db, &rows, q, w.args); err != nil {
		return nil, errors.Wrap(err, "querying concerns")
	}
	cs := make([]element.Concern, 0, len(rows))
	for _, row := range rows {
		cs = append(cs, repo.unboilConcern(row))
	}
	return cs, nil
}

func (repo elementRepository) UpdateConcern(ctx context.Context, c element.Concern) (element.Concern, error) {
	q := `UPDATE concern SET equality = :equality, owns = :owns, edit_any = :edit_any, subedit_any = :subedit_any,
		skip_permissions = :skip_permissions, visible = :visible, colour = :colour, updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, repo.boilConcern(c))
	if err != nil {
		return element.Concern{}, errors.Wrap(err, "updating concern")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return element.Concern{}, element.ErrConcernNotFound
	}
	return c, nil
}

func (repo elementRepository) DeleteConcern(ctx context.Context, id string) error {
	return deleteByID(ctx, repo.db, "concern", id, element.ErrConcernNotFound)
}
