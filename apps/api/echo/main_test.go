package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/xronos/xronos/core"
	"github.com/xronos/xronos/core/element"
	"github.com/xronos/xronos/core/event"
	"github.com/xronos/xronos/core/user"
	"github.com/xronos/xronos/services/roster"
	"github.com/xronos/xronos/tests"
)

const testPassword = "Sup3r-S3cret!"

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type (
	httpTest struct {
		name     string
		method   string
		path     string
		body     interface{}
		token    string
		wantCode int
		wantData []byte
	}

	httpErr struct {
		Error string `json:"error"`
	}

	testEnv struct {
		*testutil.Services
		srv      Server
		conf     *core.Config
		users    *user.Service
		elements *element.Service
		events   *event.Service
	}
)

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	svcs := testutil.NewServices(t)
	validate, translator := core.NewValidator()
	user.InitValidators(validate, translator)
	element.InitValidators(validate, translator)

	srv := NewServer(ServerDeps{
		Conf:           svcs.Conf,
		Logger:         svcs.Logger,
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
		UserSvc:        svcs.Users,
		ElementSvc:     svcs.Elements,
		EventSvc:       svcs.Events,
		Pending:        svcs.Pending,
		Importer:       roster.NewImporter(svcs.Elements, svcs.Logger),
	})
	return &testEnv{Services: svcs, srv: srv, conf: svcs.Conf, users: svcs.Users, elements: svcs.Elements, events: svcs.Events}
}

// fixtures

func (env *testEnv) createUser(t *testing.T, name, uname string, perms user.Permissions) user.User {
	return testutil.CreateUser(t, env.Services, name, uname, testPassword, &perms, false)
}

// createStaff creates a member of staff with the default staff permissions.
func (env *testEnv) createStaff(t *testing.T, name, uname string) user.User {
	return testutil.CreateUser(t, env.Services, name, uname, testPassword, nil, true)
}

func (env *testEnv) createElement(t *testing.T, name string, kind element.Kind, ownerID string) element.Element {
	return testutil.CreateElement(t, env.Services, name, kind, ownerID)
}

// own makes usr the approver of el.
func (env *testEnv) own(t *testing.T, usr user.User, el element.Element) element.Concern {
	t.Helper()
	c, err := env.elements.CreateConcern(context.Background(), usr.ID, element.NewConcern{ElementID: el.ID, Owns: true})
	require.NoError(t, err)
	return c
}

func (env *testEnv) createCategory(t *testing.T, name string) event.Category {
	return testutil.CreateCategory(t, env.Services, name)
}

// createEvent saves an hour long event owned by usr, committing elementIDs to it.
func (env *testEnv) createEvent(t *testing.T, usr user.User, cat event.Category, starts time.Time, elementIDs ...string) event.Detail {
	return testutil.CreateEvent(t, env.Services, usr, cat, "Trip to the museum", starts, starts.Add(time.Hour), elementIDs...)
}

// nextWeek is a weekday morning a week from now, at 10:00 UTC.
func nextWeek() time.Time {
	d := core.Date(time.Now().UTC().AddDate(0, 0, 7))
	for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		d = d.AddDate(0, 0, 1)
	}
	return d.Add(10 * time.Hour)
}

// requests

func getToken(t *testing.T, conf *core.Config, usr user.User) string {
	t.Helper()
	token, err := GenerateToken(GetUserClaims(usr, conf), conf)
	require.NoError(t, err)
	return token
}

func newRequest(method, path string, data ...interface{}) *http.Request {
	var body io.Reader
	if len(data) > 0 && data[0] != nil {
		b, _ := json.Marshal(data[0])
		body = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func newAuthRequest(method, path, token string, data ...interface{}) *http.Request {
	req := newRequest(method, path, data...)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	return req
}

func newUploadRequest(path, token, filename string, content []byte, fields map[string]string) *http.Request {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if filename != "" {
		part, _ := w.CreateFormFile(importFileField, filename)
		_, _ = part.Write(content)
	}
	for k, v := range fields {
		_ = w.WriteField(k, v)
	}
	_ = w.Close()

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	return req
}

func (env *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	env.srv.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) run(t *testing.T, tt httpTest) *httptest.ResponseRecorder {
	t.Helper()
	rec := env.do(newAuthRequest(tt.method, tt.path, tt.token, tt.body))
	checkCodeAndData(t, tt, rec)
	return rec
}

// decode unmarshals the response body into v.
func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func marshalObj(obj interface{}) []byte {
	b, _ := json.Marshal(obj)
	return b
}

func jsonBytesEqual(a, b []byte) (bool, error) {
	var j, j2 interface{}
	if err := json.Unmarshal(a, &j); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j2, j), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("%s %s: code = %v, wantCode = %v, body = %s", tt.method, tt.path, rec.Code, tt.wantCode, rec.Body.String())
	}
	if tt.wantData == nil {
		return
	}
	if eq, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData); err != nil {
		t.Errorf("%s %s: comparing bodies: %v", tt.method, tt.path, err)
	} else if !eq {
		t.Errorf("%s %s: data = %s, wantData = %s", tt.method, tt.path, rec.Body.String(), tt.wantData)
	}
}

func TestServer_home(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(newRequest(http.MethodGet, "/"))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Welcome to Xronos API!", rec.Body.String())
}
