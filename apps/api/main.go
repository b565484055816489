package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof" // register the /debug/pprof handlers

	"github.com/pkg/errors"

	echoapi "github.com/xronos/xronos/apps/api/echo"
	"github.com/xronos/xronos/core"
	"github.com/xronos/xronos/core/access"
	"github.com/xronos/xronos/core/element"
	"github.com/xronos/xronos/core/event"
	"github.com/xronos/xronos/core/user"
	emailsvc "github.com/xronos/xronos/services/email"
	logsvc "github.com/xronos/xronos/services/logger"
	"github.com/xronos/xronos/services/roster"
	"github.com/xronos/xronos/storage/cache"
	"github.com/xronos/xronos/storage/database"
	inmemdb "github.com/xronos/xronos/storage/database/inmem"
	sqlxrepos "github.com/xronos/xronos/storage/database/sqlx"
)

type repositories struct {
	users    user.Repository
	elements element.Repository
	events   event.Repository
	close    func() error
}

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	zl, err := logsvc.NewZap(conf)
	if err != nil {
		log.Fatalf("setting up zap: %v", err)
	}
	logger := logsvc.NewRollbarLogger(zl.Named("api"), conf)
	logger.Enable(!conf.Debug)
	defer logger.Sync()

	// set up DB
	repos, err := setUpRepositories(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = repos.close(); err != nil {
			logger.Error("failed to close database", err)
		}
	}()

	// set up pending counts cache
	var pendingCache access.PendingCache
	if conf.Redis.Addr != "" {
		client := cache.NewRedisClient(conf)
		if err = cache.Ping(context.Background(), client); err != nil {
			logger.Fatal(fmt.Sprintf("connecting to redis: %v", err), err)
		}
		defer func() { _ = client.Close() }()
		pendingCache = cache.NewPendingCache(client, conf.Redis.PendingTTL)
	}

	// set up services
	mailSvc := emailsvc.NewService(conf, logger)
	usrSvc := user.NewService(repos.users)
	elSvc := element.NewService(repos.elements, usrSvc)
	pending := access.NewPendingTracker(pendingCache, nil, logger)
	evSvc := event.NewService(repos.events, event.Deps{
		Elements:  elSvc,
		Directory: usrSvc,
		Mail:      mailSvc,
		Pending:   pending,
		Logger:    logger,
		Conf:      conf,
	})
	pending.SetCounter(evSvc)
	elSvc.SetPending(pending)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate, translator := core.NewValidator()
	user.InitValidators(validate, translator)
	element.InitValidators(validate, translator)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:       conf,
		Logger:     logger,
		Validate:   validate,
		Translator: translator,
		UserSvc:    usrSvc,
		ElementSvc: elSvc,
		EventSvc:   evSvc,
		Pending:    pending,
		Importer:   roster.NewImporter(elSvc, logger),
	})

	go server.Start()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

// setUpRepositories opens postgres (creating and migrating it if needed), or an in-memory
// store when the database engine is "memory".
func setUpRepositories(conf *core.Config) (repositories, error) {
	if conf.Database.Engine == "memory" {
		db, err := inmemdb.Open()
		if err != nil {
			return repositories{}, err
		}
		return repositories{
			users:    inmemdb.NewUserRepository(db),
			elements: inmemdb.NewElementRepository(db),
			events:   inmemdb.NewEventRepository(db),
			close:    func() error { return nil },
		}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout*2)
	defer cancel()
	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		return repositories{}, err
	}
	db, err := database.Open(ctx, conf)
	if err != nil {
		return repositories{}, err
	}
	if err = database.Migrate(db, "up"); err != nil {
		_ = db.Close()
		return repositories{}, errors.Wrap(err, "migrating database")
	}
	return repositories{
		users:    sqlxrepos.NewUserRepository(db),
		elements: sqlxrepos.NewElementRepository(db),
		events:   sqlxrepos.NewEventRepository(db),
		close:    db.Close,
	}, nil
}
