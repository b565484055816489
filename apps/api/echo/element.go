package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/xronos/xronos/core"
	"github.com/xronos/xronos/core/access"
	"github.com/xronos/xronos/core/element"
)

type elementApi struct {
	svc      *element.Service
	conf     *core.Config
	validate *validator.Validate
}

func registerElementAPI(g *echo.Group, auth []echo.MiddlewareFunc, s *server) {
	api := elementApi{
		svc:      s.ElementSvc,
		conf:     s.Conf,
		validate: s.Validate,
	}

	eg := g.Group("/elements", auth...)
	eg.GET("", api.query)
	eg.POST("", api.create)
	eg.GET("/:id", api.retrieve)
	eg.PUT("/:id", api.update)
	eg.DELETE("/:id", api.destroy)
	eg.GET("/:id/groups", api.groups)

	gg := g.Group("/groups/:id", auth...)
	gg.GET("/members", api.members)
	gg.GET("/memberships", api.memberships)
	gg.POST("/members", api.addMember)
	gg.DELETE("/members/:mid", api.removeMember)
}

// canManage: groups belong to their owner, every other resource to admins.
func canManage(chk *access.Checker, el element.Element) bool {
	if el.IsGroup() {
		return chk.CanEditGroup(el)
	}
	return chk.Admin()
}

func (api *elementApi) group(ctx echo.Context) (element.Element, error) {
	grp, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return element.Element{}, err
	}
	if !grp.IsGroup() {
		return element.Element{}, errHttpNotFound
	}
	return grp, nil
}

// Handlers

func (api *elementApi) query(ctx echo.Context) error {
	filter := new(element.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []element.Element{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	els, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying elements")
	}
	if els == nil {
		els = []element.Element{}
	}
	return ctx.JSON(http.StatusOK, els)
}

func (api *elementApi) retrieve(ctx echo.Context) error {
	el, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, el)
}

func (api *elementApi) create(ctx echo.Context) error {
	var data element.NewElement
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewElement")
	}
	data.Name = core.CleanString(data.Name)
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	chk, err := getContextChecker(ctx)
	if err != nil {
		return err
	}
	if data.Kind == element.KindGroup {
		if !chk.CreateGroups() {
			return errHttpForbidden
		}
	} else if !chk.CanAddResources() {
		return errHttpForbidden
	}

	el, err := api.svc.Create(ctx.Request().Context(), data, chk.UserID())
	if err != nil {
		return errors.Wrap(err, "creating element")
	}
	return ctx.JSON(http.StatusCreated, el)
}

func (api *elementApi) update(ctx echo.Context) error {
	el, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	chk, err := getContextChecker(ctx)
	if err != nil {
		return err
	}
	if !canManage(chk, el) {
		return errHttpForbidden
	}

	var data element.UpdateElement
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateElement")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}
	if data.UserEditable != nil && !chk.Admin() {
		return errHttpForbidden
	}

	el, err = api.svc.Update(ctx.Request().Context(), el.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating element")
	}
	return ctx.JSON(http.StatusOK, el)
}

func (api *elementApi) destroy(ctx echo.Context) error {
	el, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	chk, err := getContextChecker(ctx)
	if err != nil {
		return err
	}
	if !canManage(chk, el) {
		return errHttpForbidden
	}
	if _, err := api.svc.Delete(ctx.Request().Context(), el.ID); err != nil {
		return errors.Wrap(err, "deleting element")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// groups lists the groups an element belongs to on ?date (today by default), ?recurse=true
// following groups of groups.
func (api *elementApi) groups(ctx echo.Context) error {
	date, err := dateParam(ctx, "date", api.conf.Scheduling.Location)
	if err != nil {
		return err
	}
	if _, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	grps, err := api.svc.GroupsOf(ctx.Request().Context(), ctx.Param("id"), date, boolParam(ctx, "recurse"))
	if err != nil {
		return errors.Wrap(err, "finding groups")
	}
	if grps == nil {
		grps = []element.Element{}
	}
	return ctx.JSON(http.StatusOK, grps)
}

func (api *elementApi) members(ctx echo.Context) error {
	grp, err := api.group(ctx)
	if err != nil {
		return err
	}
	date, err := dateParam(ctx, "date", api.conf.Scheduling.Location)
	if err != nil {
		return err
	}
	els, err := api.svc.Members(ctx.Request().Context(), grp.ID, date, boolParam(ctx, "recurse"))
	if err != nil {
		return errors.Wrap(err, "finding members")
	}
	if els == nil {
		els = []element.Element{}
	}
	return ctx.JSON(http.StatusOK, els)
}

func (api *elementApi) memberships(ctx echo.Context) error {
	grp, err := api.group(ctx)
	if err != nil {
		return err
	}
	ms, err := api.svc.Memberships(ctx.Request().Context(), grp.ID)
	if err != nil {
		return errors.Wrap(err, "querying memberships")
	}
	if ms == nil {
		ms = []element.Membership{}
	}
	return ctx.JSON(http.StatusOK, ms)
}

func (api *elementApi) addMember(ctx echo.Context) error {
	grp, err := api.group(ctx)
	if err != nil {
		return err
	}
	chk, err := getContextChecker(ctx)
	if err != nil {
		return err
	}
	if !chk.CanEditGroup(grp) {
		return errHttpForbidden
	}

	var data element.NewMembership
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMembership")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	m, err := api.svc.AddMember(ctx.Request().Context(), grp.ID, data)
	if err != nil {
		return errors.Wrap(err, "adding member")
	}
	return ctx.JSON(http.StatusCreated, m)
}

func (api *elementApi) removeMember(ctx echo.Context) error {
	grp, err := api.group(ctx)
	if err != nil {
		return err
	}
	chk, err := getContextChecker(ctx)
	if err != nil {
		return err
	}
	if !chk.CanEditGroup(grp) {
		return errHttpForbidden
	}
	if err := api.svc.RemoveMember(ctx.Request().Context(), grp.ID, ctx.Param("mid")); err != nil {
		return errors.Wrap(err, "removing member")
	}
	return ctx.NoContent(http.StatusNoContent)
}
