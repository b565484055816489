package main

import (
	"context"
	"log"
	"os"

	"github.com/jmoiron/sqlx"

	"github.com/xronos/xronos/core"
	"github.com/xronos/xronos/core/access"
	"github.com/xronos/xronos/core/element"
	"github.com/xronos/xronos/core/event"
	"github.com/xronos/xronos/core/user"
	emailsvc "github.com/xronos/xronos/services/email"
	logsvc "github.com/xronos/xronos/services/logger"
	"github.com/xronos/xronos/services/roster"
	"github.com/xronos/xronos/storage/database"
	inmemdb "github.com/xronos/xronos/storage/database/inmem"
	sqlxrepos "github.com/xronos/xronos/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	zl, err := logsvc.NewZap(conf)
	if err != nil {
		log.Fatalf("setting up zap: %v", err)
	}
	logger := logsvc.NewRollbarLogger(zl.Named("admin"), conf)
	logger.Enable(!conf.Debug)
	defer logger.Sync()

	// set up DB
	var (
		db    *sqlx.DB
		users user.Repository
		els   element.Repository
		evts  event.Repository
	)
	if conf.Database.Engine == "memory" {
		mem, err := inmemdb.Open()
		if err != nil {
			logger.Fatal("opening in-memory database", err)
		}
		users, els, evts = inmemdb.NewUserRepository(mem), inmemdb.NewElementRepository(mem), inmemdb.NewEventRepository(mem)
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout*2)
		if err = database.CreateIfNotExist(ctx, conf); err != nil {
			logger.Fatal("creating database", err)
		}
		db, err = database.Open(ctx, conf)
		cancel()
		if err != nil {
			logger.Fatal("opening database", err)
		}
		defer func() { _ = db.Close() }()
		users, els, evts = sqlxrepos.NewUserRepository(db), sqlxrepos.NewElementRepository(db), sqlxrepos.NewEventRepository(db)
	}

	// set up services
	usrSvc := user.NewService(users)
	elSvc := element.NewService(els, usrSvc)
	pending := access.NewPendingTracker(nil, nil, logger)
	evSvc := event.NewService(evts, event.Deps{
		Elements:  elSvc,
		Directory: usrSvc,
		Mail:      emailsvc.NewService(conf, logger),
		Pending:   pending,
		Logger:    logger,
		Conf:      conf,
	})
	pending.SetCounter(evSvc)
	elSvc.SetPending(pending)

	// start CLI
	cli := commandLine{
		conf:     conf,
		db:       db,
		out:      os.Stdout,
		usrSvc:   usrSvc,
		evSvc:    evSvc,
		importer: roster.NewImporter(elSvc, logger),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error("admin command failed", err)
		}
		logger.Sync()
		os.Exit(1)
	}
}
