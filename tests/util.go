// Package testutil wires the services over the in-memory store for package tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xronos/xronos/core"
	"github.com/xronos/xronos/core/access"
	"github.com/xronos/xronos/core/element"
	"github.com/xronos/xronos/core/event"
	"github.com/xronos/xronos/core/user"
	emailsvc "github.com/xronos/xronos/services/email"
	logsvc "github.com/xronos/xronos/services/logger"
	inmemdb "github.com/xronos/xronos/storage/database/inmem"
)

type Services struct {
	Conf     *core.Config
	Logger   core.Logger
	Users    *user.Service
	Elements *element.Service
	Events   *event.Service
	Mail     *emailsvc.ConsoleService
	Pending  *access.PendingTracker
}

// NewServices returns services sharing a fresh in-memory store, configured with core.NewTestConfig.
func NewServices(t *testing.T) *Services {
	t.Helper()
	db, err := inmemdb.Open()
	require.NoError(t, err)

	conf := core.NewTestConfig()
	logger := logsvc.NewRollbarLogger(zap.NewNop(), conf)
	usrSvc := user.NewService(inmemdb.NewUserRepository(db))
	elSvc := element.NewService(inmemdb.NewElementRepository(db), usrSvc)
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	pending := access.NewPendingTracker(nil, nil, logger)
	evSvc := event.NewService(inmemdb.NewEventRepository(db), event.Deps{
		Elements:  elSvc,
		Directory: usrSvc,
		Mail:      mailSvc,
		Pending:   pending,
		Logger:    logger,
		Conf:      conf,
	})
	pending.SetCounter(evSvc)
	elSvc.SetPending(pending)

	return &Services{
		Conf:     conf,
		Logger:   logger,
		Users:    usrSvc,
		Elements: elSvc,
		Events:   evSvc,
		Mail:     mailSvc,
		Pending:  pending,
	}
}

// CreateUser saves an active user. Nil perms with staff set gives the staff defaults.
func CreateUser(t *testing.T, svcs *Services, name, uname, pwd string, perms *user.Permissions, staff bool) user.User {
	t.Helper()
	usr, err := svcs.Users.Create(context.Background(), user.NewUser{
		Name:        name,
		Username:    uname,
		Email:       uname + "@example.com",
		Password:    pwd,
		Staff:       staff,
		Permissions: perms,
	})
	require.NoError(t, err)
	return usr
}

func CreateElement(t *testing.T, svcs *Services, name string, kind element.Kind, ownerID string) element.Element {
	t.Helper()
	el, err := svcs.Elements.Create(context.Background(), element.NewElement{Name: name, Kind: kind}, ownerID)
	require.NoError(t, err)
	return el
}

func CreateCategory(t *testing.T, svcs *Services, name string) event.Category {
	t.Helper()
	cat, err := svcs.Events.CreateCategory(context.Background(), event.NewCategory{Name: name})
	require.NoError(t, err)
	return cat
}

// CreateEvent saves an event owned by usr from starts to ends, committing elementIDs to it.
func CreateEvent(t *testing.T, svcs *Services, usr user.User, cat event.Category, body string, starts, ends time.Time, elementIDs ...string) event.Detail {
	t.Helper()
	chk, err := access.NewChecker(context.Background(), usr, svcs.Elements, svcs.Conf)
	require.NoError(t, err)
	d, err := svcs.Events.Create(context.Background(), chk, event.NewEvent{
		Body:       body,
		CategoryID: cat.ID,
		StartsAt:   starts,
		EndsAt:     ends,
		ElementIDs: elementIDs,
	})
	require.NoError(t, err)
	return d
}
