package echoapi

import (
	"context"
	"net/http"
	"testing"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xronos/xronos/core/element"
	"github.com/xronos/xronos/core/event"
	"github.com/xronos/xronos/core/user"
)

func deactivate(t *testing.T, env *testEnv, usr user.User) user.User {
	t.Helper()
	inactive := false
	usr, err := env.users.Update(context.Background(), usr.ID, user.UpdateUser{
		Name: usr.Name, Username: usr.Username, Email: usr.Email, IsActive: &inactive,
	})
	require.NoError(t, err)
	return usr
}

func TestUserApi_login(t *testing.T) {
	env := newTestEnv(t)
	usr := env.createUser(t, "Jane Doe", "jdoe", user.Permissions{})
	deactivate(t, env, env.createUser(t, "Gone Away", "gone", user.Permissions{}))

	authFailed := marshalObj(httpErr{Error: "authentication failed"})
	tests := []httpTest{
		{"missing password", http.MethodPost, "/v1/users/login", echo.Map{"username": "jdoe"}, "", http.StatusBadRequest,
			marshalObj(map[string]string{"password": "this field is required"})},
		{"unknown user", http.MethodPost, "/v1/users/login", echo.Map{"username": "nobody", "password": testPassword}, "", http.StatusBadRequest, authFailed},
		{"wrong password", http.MethodPost, "/v1/users/login", echo.Map{"username": "jdoe", "password": "nope"}, "", http.StatusBadRequest, authFailed},
		{"inactive user", http.MethodPost, "/v1/users/login", echo.Map{"username": "gone", "password": testPassword}, "", http.StatusBadRequest, authFailed},
		{"username", http.MethodPost, "/v1/users/login", echo.Map{"username": "jdoe", "password": testPassword}, "", http.StatusOK, nil},
		{"email, any case", http.MethodPost, "/v1/users/login", echo.Map{"username": " JDOE@example.com", "password": testPassword}, "", http.StatusOK, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.run(t, tt)
			if tt.wantCode != http.StatusOK {
				return
			}
			var resp LoginResponse
			decode(t, rec, &resp)
			claims := new(Claims)
			_, err := jwt.ParseWithClaims(resp.Token, claims, func(*jwt.Token) (interface{}, error) {
				return []byte(env.conf.SecretKey), nil
			})
			require.NoError(t, err)
			assert.Equal(t, usr.ID, claims.Subject)
			assert.Equal(t, "jdoe", claims.Username)
		})
	}

	got, err := env.users.GetByID(context.Background(), usr.ID)
	require.NoError(t, err)
	assert.False(t, got.LastLogin.IsZero(), "last login should be recorded")
}

func TestUserApi_tokenRefresh(t *testing.T) {
	env := newTestEnv(t)
	usr := env.createUser(t, "Jane Doe", "jdoe", user.Permissions{})
	token := getToken(t, env.conf, usr)

	env.run(t, httpTest{name: "no token", method: http.MethodPost, path: "/v1/users/token-refresh",
		wantCode: http.StatusUnauthorized, wantData: marshalObj(errMissingToken)})
	env.run(t, httpTest{name: "bad token", method: http.MethodPost, path: "/v1/users/token-refresh", token: token + "x",
		wantCode: http.StatusUnauthorized})

	rec := env.run(t, httpTest{name: "ok", method: http.MethodPost, path: "/v1/users/token-refresh", token: token, wantCode: http.StatusOK})
	var resp LoginResponse
	decode(t, rec, &resp)
	assert.NotEmpty(t, resp.Token)
}

func TestUserApi_me(t *testing.T) {
	env := newTestEnv(t)
	usr := env.createUser(t, "Jane Doe", "jdoe", user.Permissions{Editor: true})
	gone := env.createUser(t, "Gone Away", "gone", user.Permissions{})
	goneToken := getToken(t, env.conf, gone)
	deactivate(t, env, gone)
	deleted := env.createUser(t, "Deleted", "deleted", user.Permissions{})
	deletedToken := getToken(t, env.conf, deleted)
	_, err := env.users.Delete(context.Background(), deleted.ID)
	require.NoError(t, err)

	tests := []httpTest{
		{"no token", http.MethodGet, "/v1/users/me", nil, "", http.StatusUnauthorized, marshalObj(errMissingToken)},
		{"deleted user", http.MethodGet, "/v1/users/me", nil, deletedToken, http.StatusUnauthorized,
			marshalObj(httpErr{Error: "user not authenticated"})},
		{"inactive user", http.MethodGet, "/v1/users/me", nil, goneToken, http.StatusForbidden,
			marshalObj(httpErr{Error: "account deactivated"})},
		{"ok", http.MethodGet, "/v1/users/me", nil, getToken(t, env.conf, usr), http.StatusOK,
			marshalObj(MeResponse{User: usr, Capabilities: UserCapabilities{SeesMenu: true, CreateEvents: true}})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env.run(t, tt)
		})
	}
}

func TestUserApi_meCapabilities(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		usr  user.User
		want UserCapabilities
	}{
		{"nobody", env.createUser(t, "Pupil", "pupil", user.Permissions{}), UserCapabilities{}},
		{"admin", env.createUser(t, "Admin", "admin", user.Permissions{Admin: true}),
			UserCapabilities{SeesMenu: true, CreateEvents: true, CreateGroups: true, CanFindFree: true, CanViewJournal: true}},
		{"cover arranger", env.createUser(t, "Cover", "cover", user.Permissions{ArrangesCover: true}),
			UserCapabilities{CanTriggerCoverCheck: true}},
		{"staff", env.createStaff(t, "Jane Doe", "jdoe"),
			UserCapabilities{SeesMenu: true, CreateEvents: true, CreateGroups: true, CanFindFree: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.run(t, httpTest{method: http.MethodGet, path: "/v1/users/me", token: getToken(t, env.conf, tt.usr), wantCode: http.StatusOK})
			var got MeResponse
			decode(t, rec, &got)
			assert.Equal(t, tt.usr.ID, got.ID)
			assert.Equal(t, tt.want, got.Capabilities)
		})
	}
}

func TestUserApi_mePending(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "Site Manager", "manager", user.Permissions{})
	tutor := env.createUser(t, "Jane Doe", "jdoe", user.StaffDefaults())
	hall := env.createElement(t, "Main Hall", element.KindLocation, "")
	env.own(t, owner, hall)
	cat := env.createCategory(t, "Trip")
	env.createEvent(t, tutor, cat, nextWeek(), hall.ID)

	rec := env.run(t, httpTest{name: "owner", method: http.MethodGet, path: "/v1/users/me/pending",
		token: getToken(t, env.conf, owner), wantCode: http.StatusOK})
	var resp PendingResponse
	decode(t, rec, &resp)
	assert.Equal(t, 1, resp.Permissions)
	assert.Equal(t, 1, resp.EventsTotal)

	rec = env.run(t, httpTest{name: "requester", method: http.MethodGet, path: "/v1/users/me/pending",
		token: getToken(t, env.conf, tutor), wantCode: http.StatusOK})
	resp = PendingResponse{}
	decode(t, rec, &resp)
	assert.Equal(t, event.Pending{Waiting: 1}, resp.Pending)
	assert.Equal(t, 0, resp.EventsTotal)
}

func TestUserApi_create(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser(t, "Admin", "admin", user.Permissions{Admin: true})
	usr := env.createUser(t, "Jane Doe", "jdoe", user.Permissions{})
	adminToken := getToken(t, env.conf, admin)

	newUsr := echo.Map{
		"name": "John Smith", "username": "jsmith", "email": "jsmith@example.com",
		"password": "Gr8-Expectations", "password_confirm": "Gr8-Expectations", "staff": true,
	}
	tests := []httpTest{
		{"not admin", http.MethodPost, "/v1/users", newUsr, getToken(t, env.conf, usr), http.StatusForbidden,
			marshalObj(httpErr{Error: "permission denied"})},
		{"password mismatch", http.MethodPost, "/v1/users", echo.Map{
			"name": "John Smith", "username": "jsmith", "password": "Gr8-Expectations", "password_confirm": "other",
		}, adminToken, http.StatusBadRequest, nil},
		{"username taken", http.MethodPost, "/v1/users", echo.Map{
			"name": "John Smith", "username": "JDOE", "password": "Gr8-Expectations", "password_confirm": "Gr8-Expectations",
		}, adminToken, http.StatusBadRequest, marshalObj(map[string]string{"username": user.ErrUsernameExists.Error()})},
		{"ok", http.MethodPost, "/v1/users", newUsr, adminToken, http.StatusCreated, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env.run(t, tt)
		})
	}

	created, err := env.users.GetByUsernameOrEmail(context.Background(), "jsmith")
	require.NoError(t, err)
	assert.True(t, created.Staff)
	assert.Equal(t, user.StaffDefaults(), created.Permissions)
}

func TestUserApi_query(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser(t, "Admin", "admin", user.Permissions{Admin: true})
	usr := env.createUser(t, "Jane Doe", "jdoe", user.Permissions{})
	adminToken := getToken(t, env.conf, admin)

	tests := []httpTest{
		{"no token", http.MethodGet, "/v1/users", nil, "", http.StatusUnauthorized, marshalObj(errMissingToken)},
		{"not admin", http.MethodGet, "/v1/users", nil, getToken(t, env.conf, usr), http.StatusForbidden,
			marshalObj(httpErr{Error: "permission denied"})},
		{"all", http.MethodGet, "/v1/users", nil, adminToken, http.StatusOK, marshalObj([]user.User{admin, usr})},
		{"reversed", http.MethodGet, "/v1/users?ordering=-name", nil, adminToken, http.StatusOK, marshalObj([]user.User{usr, admin})},
		{"search", http.MethodGet, "/v1/users?search=jane", nil, adminToken, http.StatusOK, marshalObj([]user.User{usr})},
		{"admins", http.MethodGet, "/v1/users?admin=true", nil, adminToken, http.StatusOK, marshalObj([]user.User{admin})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env.run(t, tt)
		})
	}
}

func TestUserApi_retrieve(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser(t, "Admin", "admin", user.Permissions{Admin: true})
	usr := env.createUser(t, "Jane Doe", "jdoe", user.Permissions{})
	other := env.createUser(t, "John Smith", "jsmith", user.Permissions{})
	token := getToken(t, env.conf, usr)

	tests := []httpTest{
		{"self", http.MethodGet, "/v1/users/" + usr.ID, nil, token, http.StatusOK, marshalObj(usr)},
		{"someone else", http.MethodGet, "/v1/users/" + other.ID, nil, token, http.StatusNotFound,
			marshalObj(httpErr{Error: "not found"})},
		{"admin", http.MethodGet, "/v1/users/" + other.ID, nil, getToken(t, env.conf, admin), http.StatusOK, marshalObj(other)},
		{"unknown", http.MethodGet, "/v1/users/nope", nil, getToken(t, env.conf, admin), http.StatusNotFound, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env.run(t, tt)
		})
	}
}

func TestUserApi_update(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser(t, "Admin", "admin", user.Permissions{Admin: true})
	usr := env.createUser(t, "Jane Doe", "jdoe", user.Permissions{})
	token := getToken(t, env.conf, usr)
	path := "/v1/users/" + usr.ID

	tests := []httpTest{
		{"own permissions", http.MethodPut, path, echo.Map{"permissions": echo.Map{"admin": true}}, token, http.StatusForbidden, nil},
		{"own username", http.MethodPut, path, echo.Map{"username": "janed"}, token, http.StatusForbidden, nil},
		{"weak password", http.MethodPut, path, echo.Map{"password": "password", "password_confirm": "password"}, token, http.StatusBadRequest, nil},
		{"own name", http.MethodPut, path, echo.Map{"name": "Jane Smith", "first_day": 1}, token, http.StatusOK, nil},
		{"admin grants", http.MethodPut, path, echo.Map{"permissions": echo.Map{"editor": true}}, getToken(t, env.conf, admin), http.StatusOK, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env.run(t, tt)
		})
	}

	got, err := env.users.GetByID(context.Background(), usr.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane Smith", got.Name)
	assert.Equal(t, "jdoe", got.Username)
	assert.Equal(t, 1, got.FirstDay)
	assert.Equal(t, user.Permissions{Editor: true}, got.Permissions)
}

func TestUserApi_destroy(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser(t, "Admin", "admin", user.Permissions{Admin: true})
	usr := env.createUser(t, "Jane Doe", "jdoe", user.Permissions{})
	other := env.createUser(t, "John Smith", "jsmith", user.Permissions{})
	adminToken := getToken(t, env.conf, admin)

	tests := []httpTest{
		{"not admin", http.MethodDelete, "/v1/users/" + usr.ID, nil, getToken(t, env.conf, usr), http.StatusForbidden, nil},
		{"self", http.MethodDelete, "/v1/users/" + admin.ID, nil, adminToken, http.StatusForbidden, nil},
		{"ok", http.MethodDelete, "/v1/users/" + usr.ID, nil, adminToken, http.StatusNoContent, nil},
		{"multiple with self", http.MethodDelete, "/v1/users?id=" + other.ID + "&id=" + admin.ID, nil, adminToken, http.StatusForbidden, nil},
		{"multiple", http.MethodDelete, "/v1/users?id=" + other.ID, nil, adminToken, http.StatusNoContent, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env.run(t, tt)
		})
	}

	users, err := env.users.Query(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []user.User{admin}, users)
}
