package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/xronos/xronos/core/element"
)

type concernApi struct {
	svc      *element.Service
	validate *validator.Validate
}

func registerConcernAPI(g *echo.Group, auth []echo.MiddlewareFunc, s *server) {
	api := concernApi{svc: s.ElementSvc, validate: s.Validate}

	cg := g.Group("/concerns", auth...)
	cg.GET("", api.query)
	cg.POST("", api.create)
	cg.PUT("/:id", api.update)
	cg.DELETE("/:id", api.destroy)
}

// query lists the acting user's concerns. Admins may ask for another user's with ?user_id.
func (api *concernApi) query(ctx echo.Context) error {
	chk, err := getContextChecker(ctx)
	if err != nil {
		return err
	}
	userID := chk.UserID()
	if uid := ctx.QueryParam("user_id"); uid != "" && uid != userID {
		if !chk.Admin() {
			return errHttpForbidden
		}
		userID = uid
	}

	cs, err := api.svc.QueryConcerns(ctx.Request().Context(), element.ConcernFilter{UserID: userID})
	if err != nil {
		return errors.Wrap(err, "querying concerns")
	}
	resp := make([]ConcernResponse, 0, len(cs))
	for _, c := range cs {
		resp = append(resp, ConcernResponse{Concern: c, CanDrag: userID == chk.UserID() && chk.CanDrag(c)})
	}
	return ctx.JSON(http.StatusOK, resp)
}

// ConcernResponse says whether the element may be dragged onto the schedule. Only ever
// true when listing the requester's own concerns.
type ConcernResponse struct {
	element.Concern
	CanDrag bool `json:"can_drag"`
}

func (api *concernApi) create(ctx echo.Context) error {
	var data element.NewConcern
	if err := bindAndValidate(ctx, api.validate, &data, "NewConcern"); err != nil {
		return err
	}
	chk, err := getContextChecker(ctx)
	if err != nil {
		return err
	}
	if !chk.CanCreateConcern(data) {
		return errHttpForbidden
	}

	userID := data.UserID
	if userID == "" {
		userID = chk.UserID()
	}
	c, err := api.svc.CreateConcern(ctx.Request().Context(), userID, data)
	if err != nil {
		return errors.Wrap(err, "creating concern")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *concernApi) update(ctx echo.Context) error {
	c, err := api.svc.GetConcern(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	var data element.UpdateConcern
	if err := bindAndValidate(ctx, api.validate, &data, "UpdateConcern"); err != nil {
		return err
	}
	chk, err := getContextChecker(ctx)
	if err != nil {
		return err
	}
	if !chk.CanEditConcern(c) {
		return errHttpNotFound
	}
	if !chk.CanUpdateConcern(c, data) {
		return errHttpForbidden
	}

	c, err = api.svc.UpdateConcern(ctx.Request().Context(), c.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating concern")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *concernApi) destroy(ctx echo.Context) error {
	c, err := api.svc.GetConcern(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	chk, err := getContextChecker(ctx)
	if err != nil {
		return err
	}
	if !chk.CanEditConcern(c) {
		return errHttpNotFound
	}
	if !chk.CanDeleteConcern(c) {
		return errHttpForbidden
	}
	if err := api.svc.DeleteConcern(ctx.Request().Context(), c.ID); err != nil {
		return errors.Wrap(err, "deleting concern")
	}
	return ctx.NoContent(http.StatusNoContent)
}
