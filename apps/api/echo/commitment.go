package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/xronos/xronos/core/access"
	"github.com/xronos/xronos/core/element"
	"github.com/xronos/xronos/core/event"
)

type commitmentApi struct {
	events   *event.Service
	elements *element.Service
	validate *validator.Validate
}

func registerCommitmentAPI(g *echo.Group, auth []echo.MiddlewareFunc, s *server) {
	api := commitmentApi{events: s.EventSvc, elements: s.ElementSvc, validate: s.Validate}

	g.POST("/events/:id/commitments", api.create, auth...)

	cg := g.Group("/commitments/:id", auth...)
	cg.DELETE("", api.destroy)
	cg.PUT("/approve", api.approve)
	cg.PUT("/reject", api.reject)
	cg.PUT("/note", api.note)
	cg.GET("/notes", api.notes)
}

// decision loads the commitment an approval route acts upon and checks the user owns its element.
func (api *commitmentApi) decision(ctx echo.Context) (event.Commitment, *access.Checker, error) {
	chk, err := getContextChecker(ctx)
	if err != nil {
		return event.Commitment{}, nil, err
	}
	c, err := api.events.GetCommitment(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return event.Commitment{}, nil, err
	}
	if !chk.CanApprove(c) {
		return event.Commitment{}, nil, errHttpForbidden
	}
	return c, chk, nil
}

func (api *commitmentApi) create(ctx echo.Context) error {
	chk, err := getContextChecker(ctx)
	if err != nil {
		return err
	}
	d, err := api.events.GetDetail(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	if !chk.CanSubedit(d) {
		return errHttpForbidden
	}
	var data event.NewCommitment
	if err := bindAndValidate(ctx, api.validate, &data, "NewCommitment"); err != nil {
		return err
	}

	c, err := api.events.AddCommitment(ctx.Request().Context(), chk, d.ID, data.ElementID)
	if err != nil {
		return errors.Wrap(err, "adding commitment")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *commitmentApi) destroy(ctx echo.Context) error {
	chk, err := getContextChecker(ctx)
	if err != nil {
		return err
	}
	c, err := api.events.GetCommitment(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	d, err := api.events.GetDetail(ctx.Request().Context(), c.EventID)
	if err != nil {
		return errors.Wrap(err, "finding commitment event")
	}
	el, err := api.elements.Get(ctx.Request().Context(), c.ElementID)
	if err != nil {
		return errors.Wrap(err, "finding commitment element")
	}
	if !chk.CanDeleteCommitment(c, d, el) {
		return errHttpForbidden
	}
	if err := api.events.RemoveCommitment(ctx.Request().Context(), c.ID); err != nil {
		return errors.Wrap(err, "removing commitment")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *commitmentApi) approve(ctx echo.Context) error {
	c, chk, err := api.decision(ctx)
	if err != nil {
		return err
	}
	c, err = api.events.Approve(ctx.Request().Context(), chk.UserID(), c.ID)
	if err != nil {
		return errors.Wrap(err, "approving commitment")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *commitmentApi) reject(ctx echo.Context) error {
	c, chk, err := api.decision(ctx)
	if err != nil {
		return err
	}
	var data event.CommitmentReason
	if err := bindAndValidate(ctx, api.validate, &data, "CommitmentReason"); err != nil {
		return err
	}
	c, err = api.events.Reject(ctx.Request().Context(), chk.UserID(), c.ID, data.Reason)
	if err != nil {
		return errors.Wrap(err, "rejecting commitment")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *commitmentApi) note(ctx echo.Context) error {
	c, chk, err := api.decision(ctx)
	if err != nil {
		return err
	}
	var data event.CommitmentReason
	if err := bindAndValidate(ctx, api.validate, &data, "CommitmentReason"); err != nil {
		return err
	}
	c, err = api.events.NoteCommitment(ctx.Request().Context(), chk.UserID(), c.ID, data.Reason)
	if err != nil {
		return errors.Wrap(err, "noting commitment")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *commitmentApi) notes(ctx echo.Context) error {
	c, err := api.events.GetCommitment(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	ns, err := api.events.Notes(ctx.Request().Context(), event.ParentCommitment, c.ID)
	if err != nil {
		return errors.Wrap(err, "querying notes")
	}
	if ns == nil {
		ns = []event.Note{}
	}
	return ctx.JSON(http.StatusOK, ns)
}
