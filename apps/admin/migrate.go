package main

import (
	"github.com/pkg/errors"

	"github.com/xronos/xronos/storage/database"
)

var migrateFunc = database.Migrate // mockable

var errNoMigrations = errors.New("migrations need a postgres database")

func (cli *commandLine) migrate(args []string) error {
	if cli.db == nil && !cli.conf.TestMode {
		return errNoMigrations
	}
	return migrateFunc(cli.db, args[0], args[1:]...)
}
