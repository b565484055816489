package echoapi

import (
	"bytes"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/xronos/xronos/core"
	"github.com/xronos/xronos/core/element"
	"github.com/xronos/xronos/core/event"
	icalsvc "github.com/xronos/xronos/services/ical"
)

const (
	icalContentType = "text/calendar; charset=utf-8"
	icalPastDays    = 28
	icalFutureDays  = 365
)

type icalApi struct {
	events   *event.Service
	elements *element.Service
	conf     *core.Config
}

// registerICalAPI exposes element schedules to calendar clients, which cannot send tokens.
func registerICalAPI(g *echo.Group, s *server) {
	api := icalApi{events: s.EventSvc, elements: s.ElementSvc, conf: s.Conf}
	g.GET("/ical/:id", api.feed)
}

func (api *icalApi) feed(ctx echo.Context) error {
	rctx := ctx.Request().Context()
	el, err := api.elements.Get(rctx, ctx.Param("id"))
	if err != nil {
		return err
	}

	loc := api.conf.Scheduling.Location
	if loc == nil {
		loc = time.UTC
	}
	now := nowFunc()
	today := core.Date(now.In(loc))

	ids, err := api.elements.WithGroups(rctx, []string{el.ID}, today)
	if err != nil {
		return errors.Wrap(err, "resolving groups")
	}
	cats, err := api.events.QueryCategories(rctx)
	if err != nil {
		return errors.Wrap(err, "querying categories")
	}
	published := make(map[string]string, len(cats))
	for _, cat := range cats {
		if cat.Publish {
			published[cat.ID] = cat.Name
		}
	}

	evts, err := api.events.Query(rctx, &event.QueryFilter{
		Start:      today.AddDate(0, 0, -icalPastDays),
		End:        today.AddDate(0, 0, icalFutureDays),
		ElementIDs: ids,
	}, nil)
	if err != nil {
		return errors.Wrap(err, "querying events")
	}
	shown := make([]event.Event, 0, len(evts))
	for _, evt := range evts {
		if _, ok := published[evt.CategoryID]; ok {
			shown = append(shown, evt)
		}
	}

	var buf bytes.Buffer
	feed := icalsvc.Feed{
		Element:    el,
		Events:     shown,
		Categories: published,
		Location:   loc,
		Host:       api.conf.Server.Host,
		Now:        now,
	}
	if err := feed.Write(&buf); err != nil {
		return err
	}
	return ctx.Blob(http.StatusOK, icalContentType, buf.Bytes())
}
