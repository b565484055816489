package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/xronos/xronos/core/element"
	"github.com/xronos/xronos/services/roster"
)

func (cli *commandLine) importRoster(kind, path string, retire bool) error {
	k := element.Kind(kind)
	if !roster.Importable(k) {
		return errors.Errorf("cannot import %q elements", kind)
	}
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "opening roster")
	}
	defer func() { _ = f.Close() }()

	records, err := roster.Read(path, f)
	if err != nil {
		return err
	}
	res, err := cli.importer.Import(context.Background(), k, records, retire)
	if err != nil {
		return err
	}
	for _, msg := range res.Errors {
		fmt.Fprintln(cli.out, msg)
	}
	fmt.Fprintf(cli.out, "%d created, %d updated, %d unchanged, %d retired\n", res.Created, res.Updated, res.Unchanged, res.Retired)
	return nil
}
