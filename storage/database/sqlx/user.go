package sqlxrepos

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/xronos/xronos/core"
	"github.com/xronos/xronos/core/user"
)

const userColumns = `id, name, username, email, is_active, staff, first_day, corresponding_staff_id,
	permissions, element_owner, password_hash, created_at, updated_at, last_login`

var userOrderFields = map[string]string{
	"name":       "name",
	"username":   "username",
	"email":      "email",
	"created_at": "created_at",
	"last_login": "last_login",
}

type userRow struct {
	ID                   string      `db:"id"`
	Name                 string      `db:"name"`
	Username             null.String `db:"username"`
	Email                null.String `db:"email"`
	IsActive             bool        `db:"is_active"`
	Staff                bool        `db:"staff"`
	FirstDay             int         `db:"first_day"`
	CorrespondingStaffID null.String `db:"corresponding_staff_id"`
	Permissions          null.JSON   `db:"permissions"`
	ElementOwner         bool        `db:"element_owner"`
	PasswordHash         []byte      `db:"password_hash"`
	CreatedAt            null.Time   `db:"created_at"`
	UpdatedAt            null.Time   `db:"updated_at"`
	LastLogin            null.Time   `db:"last_login"`
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo userRepository) boil(usr user.User) (userRow, error) {
	perms, err := json.Marshal(usr.Permissions)
	if err != nil {
		return userRow{}, errors.Wrap(err, "encoding permissions")
	}
	return userRow{
		ID:                   usr.ID,
		Name:                 usr.Name,
		Username:             null.NewString(usr.Username, usr.Username != ""),
		Email:                null.NewString(usr.Email, usr.Email != ""),
		IsActive:             usr.IsActive,
		Staff:                usr.Staff,
		FirstDay:             usr.FirstDay,
		CorrespondingStaffID: null.NewString(usr.CorrespondingStaffID, usr.CorrespondingStaffID != ""),
		Permissions:          null.JSONFrom(perms),
		ElementOwner:         usr.ElementOwner,
		PasswordHash:         usr.PasswordHash,
		CreatedAt:            null.NewTime(usr.CreatedAt.UTC(), !usr.CreatedAt.IsZero()),
		UpdatedAt:            null.NewTime(usr.UpdatedAt.UTC(), !usr.UpdatedAt.IsZero()),
		LastLogin:            null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}, nil
}

func (repo userRepository) unboil(row userRow) (user.User, error) {
	usr := user.User{
		ID:                   row.ID,
		Name:                 row.Name,
		Username:             row.Username.String,
		Email:                row.Email.String,
		IsActive:             row.IsActive,
		Staff:                row.Staff,
		FirstDay:             row.FirstDay,
		CorrespondingStaffID: row.CorrespondingStaffID.String,
		ElementOwner:         row.ElementOwner,
		PasswordHash:         row.PasswordHash,
		CreatedAt:            row.CreatedAt.Time,
		UpdatedAt:            row.UpdatedAt.Time,
		LastLogin:            row.LastLogin.Time,
	}
	if row.Permissions.Valid && len(row.Permissions.JSON) > 0 {
		if err := row.Permissions.Unmarshal(&usr.Permissions); err != nil {
			return user.User{}, errors.Wrap(err, "decoding permissions")
		}
	}
	return usr, nil
}

func (repo userRepository) unboilSlice(rows []userRow) ([]user.User, error) {
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		usr, err := repo.unboil(row)
		if err != nil {
			return nil, err
		}
		users = append(users, usr)
	}
	return users, nil
}

func (repo userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers []user.User) error {
	var w where
	w.add("(username = ? OR email = ?)", null.NewString(username, username != ""), null.NewString(email, email != ""))
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		w.add("id NOT IN (?)", ids)
	}

	var rows []userRow
	if err := selectIn(ctx, repo.db, &rows, "SELECT "+userColumns+` FROM "user"`+w.String()+" LIMIT 2", w.args); err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	for _, row := range rows {
		if username != "" && row.Username.String == username {
			return user.ErrUsernameExists
		}
		if email != "" && row.Email.String == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	row, err := repo.boil(usr)
	if err != nil {
		return user.User{}, err
	}
	q := `INSERT INTO "user" (` + userColumns + `) VALUES (:id, :name, :username, :email, :is_active, :staff,
		:first_day, :corresponding_staff_id, :permissions, :element_owner, :password_hash, :created_at, :updated_at, :last_login)`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	var w where
	if filter != nil {
		// users with Name, Username or Email matching the search keyword
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			w.add("(name ILIKE ? OR username ILIKE ? OR email ILIKE ?)", val, val, val)
		}
		if filter.IsActive != nil {
			w.add("is_active = ?", *filter.IsActive)
		}
		if filter.Staff != nil {
			w.add("staff = ?", *filter.Staff)
		}
		if filter.Admin != nil {
			w.add("COALESCE((permissions->>'admin')::boolean, false) = ?", *filter.Admin)
		}
		if !filter.CreatedFrom.IsZero() {
			w.add("created_at >= ?", filter.CreatedFrom.UTC())
		}
		if !filter.CreatedTo.IsZero() {
			w.add("created_at <= ?", filter.CreatedTo.UTC())
		}
	}

	var rows []userRow
	q := "SELECT " + userColumns + ` FROM "user"` + w.String() + orderBy(ordering, userOrderFields, "name ASC")
	if err := selectIn(ctx, repo.db, &rows, q, w.args); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return repo.unboilSlice(rows)
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	var w where
	switch {
	case filter.ID != "":
		if _, err := uuid.Parse(filter.ID); err != nil {
			return user.User{}, user.ErrNotFound
		}
		w.add("id = ?", filter.ID)
	case filter.Username != "":
		w.add("username = ?", filter.Username)
	case filter.Email != "":
		w.add("email = ?", filter.Email)
	case filter.UsernameOrEmail != "":
		w.add("(username = ? OR email = ?)", filter.UsernameOrEmail, filter.UsernameOrEmail)
	default:
		return user.User{}, user.ErrNotFound
	}

	var row userRow
	q := repo.db.Rebind("SELECT " + userColumns + ` FROM "user"` + w.String() + " LIMIT 1")
	if err := repo.db.GetContext(ctx, &row, q, w.args...); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user")
	}
	return repo.unboil(row)
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	row, err := repo.boil(usr)
	if err != nil {
		return user.User{}, err
	}
	q := `UPDATE "user" SET name = :name, username = :username, email = :email, is_active = :is_active,
		staff = :staff, first_day = :first_day, corresponding_staff_id = :corresponding_staff_id,
		permissions = :permissions, element_owner = :element_owner, password_hash = :password_hash,
		updated_at = :updated_at, last_login = :last_login
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, row)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo userRepository) DeleteUsersByID(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	q, args, err := bind(repo.db, `DELETE FROM "user" WHERE id IN (?)`, []interface{}{ids})
	if err != nil {
		return 0, err
	}
	res, err := repo.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	cnt, err := res.RowsAffected()
	return int(cnt), errors.Wrap(err, "counting deleted users")
}
