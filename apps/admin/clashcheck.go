package main

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/xronos/xronos/core"
)

// clashCheck runs the nightly clash check over `days` days from `from` (today when blank).
func (cli *commandLine) clashCheck(from string, days int) error {
	if days < 1 {
		return errors.New("days must be at least 1")
	}
	loc := cli.conf.Scheduling.Location
	if loc == nil {
		loc = time.UTC
	}
	start := core.Date(time.Now().In(loc))
	if from != "" {
		var err error
		if start, err = time.ParseInLocation(core.DateLayout, from, loc); err != nil {
			return errors.Errorf("from must be of form YYYY-MM-DD (got '%s')", from)
		}
	}
	end := start.AddDate(0, 0, days-1)

	res, err := cli.evSvc.CheckClashes(context.Background(), start, end, cli.conf.Scheduling.ClashCategories)
	if err != nil {
		return err
	}
	for _, c := range res.Clashes {
		fmt.Fprintf(cli.out, "%s %s: %s\n", c.Date.Format(core.DateLayout), c.Event.Body, c.Text)
	}
	fmt.Fprintf(cli.out, "checked %d events: %d notes created, %d updated, %d deleted\n",
		res.EventsChecked, res.NotesCreated, res.NotesUpdated, res.NotesDeleted)
	return nil
}
