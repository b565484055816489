package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/xronos/xronos/core/element"
	"github.com/xronos/xronos/core/event"
)

type schedulingApi struct {
	events   *event.Service
	elements *element.Service
	validate *validator.Validate
}

func registerSchedulingAPI(g *echo.Group, auth []echo.MiddlewareFunc, s *server) {
	api := schedulingApi{events: s.EventSvc, elements: s.ElementSvc, validate: s.Validate}

	cg := g.Group("/events/:id/collection", auth...)
	cg.POST("", api.repeat)
	cg.POST("/clashes", api.clashes)

	g.POST("/freefinder", api.findFree, auth...)
}

type RepeatResponse struct {
	Collection event.Collection `json:"collection"`
	Events     []event.Event    `json:"events"`
}

// repeat saves the event's collection and (re)generates its copies.
func (api *schedulingApi) repeat(ctx echo.Context) error {
	chk, err := getContextChecker(ctx)
	if err != nil {
		return err
	}
	d, err := api.events.GetDetail(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	if !chk.CanRepeat(d) {
		return errHttpForbidden
	}
	var data event.NewCollection
	if err := bindAndValidate(ctx, api.validate, &data, "NewCollection"); err != nil {
		return err
	}

	coll, evts, err := api.events.Repeat(ctx.Request().Context(), chk, d.ID, data)
	if err != nil {
		return errors.Wrap(err, "repeating event")
	}
	if evts == nil {
		evts = []event.Event{}
	}
	return ctx.JSON(http.StatusCreated, RepeatResponse{Collection: coll, Events: evts})
}

// clashes previews which of the user's own elements a collection would double book.
func (api *schedulingApi) clashes(ctx echo.Context) error {
	chk, err := getContextChecker(ctx)
	if err != nil {
		return err
	}
	d, err := api.events.GetDetail(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	if !chk.CouldRepeat(d) {
		return errHttpForbidden
	}
	var data event.NewCollection
	if err := bindAndValidate(ctx, api.validate, &data, "NewCollection"); err != nil {
		return err
	}

	coll, err := api.events.BuildCollection(d.Event, chk.UserID(), data)
	if err != nil {
		return err
	}
	sets := []event.ClashSet{}
	if owned := chk.OwnedElements(); len(owned) > 0 {
		els, err := api.elements.Query(ctx.Request().Context(), &element.QueryFilter{IDs: owned}, nil)
		if err != nil {
			return errors.Wrap(err, "loading owned elements")
		}
		if sets, err = api.events.DetectClashes(ctx.Request().Context(), coll, d.Event, els); err != nil {
			return errors.Wrap(err, "detecting clashes")
		}
	}
	return ctx.JSON(http.StatusOK, sets)
}

func (api *schedulingApi) findFree(ctx echo.Context) error {
	chk, err := getContextChecker(ctx)
	if err != nil {
		return err
	}
	if !chk.CanFindFree() {
		return errHttpForbidden
	}
	var data event.FreeTimeSearch
	if err := bindAndValidate(ctx, api.validate, &data, "FreeTimeSearch"); err != nil {
		return err
	}

	days, err := api.events.FindFreeTime(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "finding free time")
	}
	if days == nil {
		days = []event.FreeDay{}
	}
	return ctx.JSON(http.StatusOK, days)
}
