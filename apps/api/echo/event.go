package echoapi

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/xronos/xronos/core"
	"github.com/xronos/xronos/core/access"
	"github.com/xronos/xronos/core/event"
)

const (
	privateEventBody  = "Private event"
	defaultRangeWeeks = 1
)

type eventApi struct {
	svc      *event.Service
	conf     *core.Config
	validate *validator.Validate
}

func registerEventAPI(g *echo.Group, auth []echo.MiddlewareFunc, s *server) {
	api := eventApi{svc: s.EventSvc, conf: s.Conf, validate: s.Validate}

	cg := g.Group("/categories", auth...)
	cg.GET("", api.queryCategories)
	cg.POST("", api.createCategory, adminMiddleware())
	cg.DELETE("/:id", api.destroyCategory, adminMiddleware())

	eg := g.Group("/events", auth...)
	eg.GET("", api.query)
	eg.POST("", api.create)
	eg.GET("/:id", api.retrieve)
	eg.PUT("/:id", api.update)
	eg.DELETE("/:id", api.destroy)
	eg.PUT("/:id/moved", api.moved)
	eg.POST("/:id/clone", api.clone)
	eg.GET("/:id/notes", api.notes)
	eg.POST("/:id/notes", api.addNote)

	ng := g.Group("/notes", auth...)
	ng.PUT("/:id", api.updateNote)
	ng.DELETE("/:id", api.destroyNote)
}

type EventQuery struct {
	Start              string   `query:"start"`
	End                string   `query:"end"`
	OwnerID            string   `query:"owner_id"`
	OrganiserID        string   `query:"organiser_id"`
	CategoryIDs        []string `query:"category_id"`
	ElementIDs         []string `query:"element_id"`
	CollectionID       string   `query:"collection_id"`
	Search             string   `query:"search"`
	IncludeNonExistent bool     `query:"include_non_existent"`
}

// parseInstant accepts RFC 3339 timestamps and plain dates, taken as midnight in loc.
func parseInstant(field, val string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, val); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(core.DateLayout, val, loc)
	if err != nil {
		return time.Time{}, core.NewValidationError(err, core.FieldError{Field: field, Error: "expected a date or an RFC 3339 time"})
	}
	return t, nil
}

// filter defaults to the week starting today.
func (q EventQuery) filter(loc *time.Location) (*event.QueryFilter, error) {
	if loc == nil {
		loc = time.UTC
	}
	f := &event.QueryFilter{
		OwnerID:            q.OwnerID,
		OrganiserID:        q.OrganiserID,
		CategoryIDs:        q.CategoryIDs,
		ElementIDs:         q.ElementIDs,
		CollectionID:       q.CollectionID,
		Search:             q.Search,
		IncludeNonExistent: q.IncludeNonExistent,
	}
	var err error
	if q.Start == "" {
		f.Start = core.Date(nowFunc().In(loc))
	} else if f.Start, err = parseInstant("start", q.Start, loc); err != nil {
		return nil, err
	}
	if q.End == "" {
		f.End = f.Start.AddDate(0, 0, 7*defaultRangeWeeks)
	} else if f.End, err = parseInstant("end", q.End, loc); err != nil {
		return nil, err
	}
	if f.End.Before(f.Start) {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "end", Error: "cannot be before start"})
	}
	f.Clean()
	return f, nil
}

// redact hides the body of private events from everyone but their owner and admins.
// EventPermissions tells the client what the user may do with an event.
type EventPermissions struct {
	CanEdit       bool `json:"can_edit"`
	CanSubedit    bool `json:"can_subedit"`
	CanRetime     bool `json:"can_retime"`
	CanDragTiming bool `json:"can_drag_timing"`
	CanRelocate   bool `json:"can_relocate"`
	CanRepeat     bool `json:"can_repeat"`
	CanAddNote    bool `json:"can_add_note"`
}

type EventResponse struct {
	event.Detail
	Permissions EventPermissions `json:"permissions"`
}

func eventPermissions(chk *access.Checker, d event.Detail) EventPermissions {
	return EventPermissions{
		CanEdit:       chk.CanEditEvent(d),
		CanSubedit:    chk.CanSubedit(d),
		CanRetime:     chk.CanRetime(d),
		CanDragTiming: chk.CanDragTiming(d.Event),
		CanRelocate:   chk.CanRelocate(d),
		CanRepeat:     chk.CanRepeat(d),
		CanAddNote:    chk.CanAddNote(d),
	}
}

func hidden(chk *access.Checker, evt event.Event) bool {
	return evt.Private && !chk.Admin() && !chk.OwnsEvent(evt)
}

func redact(chk *access.Checker, evt event.Event) event.Event {
	if hidden(chk, evt) {
		evt.Body = privateEventBody
	}
	return evt
}

// Categories

func (api *eventApi) queryCategories(ctx echo.Context) error {
	cats, err := api.svc.QueryCategories(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying categories")
	}
	if cats == nil {
		cats = []event.Category{}
	}
	return ctx.JSON(http.StatusOK, cats)
}

func (api *eventApi) createCategory(ctx echo.Context) error {
	var data event.NewCategory
	if err := bindAndValidate(ctx, api.validate, &data, "NewCategory"); err != nil {
		return err
	}
	cat, err := api.svc.CreateCategory(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating category")
	}
	return ctx.JSON(http.StatusCreated, cat)
}

func (api *eventApi) destroyCategory(ctx echo.Context) error {
	if err := api.svc.DeleteCategory(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting category")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Events

func (api *eventApi) detail(ctx echo.Context) (event.Detail, *access.Checker, error) {
	chk, err := getContextChecker(ctx)
	if err != nil {
		return event.Detail{}, nil, err
	}
	d, err := api.svc.GetDetail(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return event.Detail{}, nil, err
	}
	return d, chk, nil
}

func (api *eventApi) query(ctx echo.Context) error {
	var q EventQuery
	if err := ctx.Bind(&q); err != nil {
		return errors.Wrap(err, "binding to EventQuery")
	}
	filter, err := q.filter(api.conf.Scheduling.Location)
	if err != nil {
		return err
	}
	chk, err := getContextChecker(ctx)
	if err != nil {
		return err
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	evts, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying events")
	}
	res := make([]event.Event, 0, len(evts))
	for _, evt := range evts {
		res = append(res, redact(chk, evt))
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *eventApi) retrieve(ctx echo.Context) error {
	d, chk, err := api.detail(ctx)
	if err != nil {
		return err
	}
	perms := eventPermissions(chk, d)
	d.Event = redact(chk, d.Event)
	return ctx.JSON(http.StatusOK, EventResponse{Detail: d, Permissions: perms})
}

func (api *eventApi) create(ctx echo.Context) error {
	var data event.NewEvent
	if err := bindAndValidate(ctx, api.validate, &data, "NewEvent"); err != nil {
		return err
	}
	chk, err := getContextChecker(ctx)
	if err != nil {
		return err
	}
	if !chk.CreateEvents() {
		return errHttpForbidden
	}

	d, err := api.svc.Create(ctx.Request().Context(), chk, data)
	if err != nil {
		return errors.Wrap(err, "creating event")
	}
	return ctx.JSON(http.StatusCreated, d)
}

func (api *eventApi) update(ctx echo.Context) error {
	d, chk, err := api.detail(ctx)
	if err != nil {
		return err
	}
	var data event.UpdateEvent
	if err := bindAndValidate(ctx, api.validate, &data, "UpdateEvent"); err != nil {
		return err
	}
	if !chk.CanEditEvent(d) || (data.Retimes() && !chk.CanRetime(d)) {
		return errHttpForbidden
	}

	evt, err := api.svc.Update(ctx.Request().Context(), d.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating event")
	}
	return ctx.JSON(http.StatusOK, evt)
}

// moved retimes an event dragged to a new place on the calendar.
func (api *eventApi) moved(ctx echo.Context) error {
	d, chk, err := api.detail(ctx)
	if err != nil {
		return err
	}
	var data event.NewTiming
	if err := bindAndValidate(ctx, api.validate, &data, "NewTiming"); err != nil {
		return err
	}
	if !chk.CanRetime(d) {
		return errHttpForbidden
	}

	evt, err := api.svc.Move(ctx.Request().Context(), d.ID, data)
	if err != nil {
		return errors.Wrap(err, "moving event")
	}
	return ctx.JSON(http.StatusOK, evt)
}

// clone copies an event for the current user, who can then edit the copy.
func (api *eventApi) clone(ctx echo.Context) error {
	d, chk, err := api.detail(ctx)
	if err != nil {
		return err
	}
	if !chk.CreateEvents() || hidden(chk, d.Event) {
		return errHttpForbidden
	}

	cp, err := api.svc.Clone(ctx.Request().Context(), chk, d.ID)
	if err != nil {
		return errors.Wrap(err, "cloning event")
	}
	return ctx.JSON(http.StatusCreated, cp)
}

func (api *eventApi) destroy(ctx echo.Context) error {
	d, chk, err := api.detail(ctx)
	if err != nil {
		return err
	}
	if !chk.CanEditEvent(d) {
		return errHttpForbidden
	}
	if _, err := api.svc.Delete(ctx.Request().Context(), d.ID); err != nil {
		return errors.Wrap(err, "deleting event")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Notes

func (api *eventApi) notes(ctx echo.Context) error {
	d, _, err := api.detail(ctx)
	if err != nil {
		return err
	}
	ns, err := api.svc.Notes(ctx.Request().Context(), event.ParentEvent, d.ID)
	if err != nil {
		return errors.Wrap(err, "querying notes")
	}
	if ns == nil {
		ns = []event.Note{}
	}
	return ctx.JSON(http.StatusOK, ns)
}

func (api *eventApi) addNote(ctx echo.Context) error {
	d, chk, err := api.detail(ctx)
	if err != nil {
		return err
	}
	if !chk.CanAddNote(d) {
		return errHttpForbidden
	}
	var data event.NewNote
	if err := bindAndValidate(ctx, api.validate, &data, "NewNote"); err != nil {
		return err
	}

	n, err := api.svc.AddNote(ctx.Request().Context(), chk.UserID(), event.ParentEvent, d.ID, data)
	if err != nil {
		return errors.Wrap(err, "adding note")
	}
	return ctx.JSON(http.StatusCreated, n)
}

func (api *eventApi) updateNote(ctx echo.Context) error {
	chk, err := getContextChecker(ctx)
	if err != nil {
		return err
	}
	n, err := api.svc.GetNote(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	var elementID string
	if n.ParentType == event.ParentCommitment {
		c, err := api.svc.GetCommitment(ctx.Request().Context(), n.ParentID)
		if err != nil {
			return errors.Wrap(err, "finding note commitment")
		}
		elementID = c.ElementID
	}
	if !chk.CanEditNote(n, elementID) {
		return errHttpForbidden
	}

	var data event.UpdateNote
	if err := bindAndValidate(ctx, api.validate, &data, "UpdateNote"); err != nil {
		return err
	}
	n, err = api.svc.UpdateNote(ctx.Request().Context(), n.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating note")
	}
	return ctx.JSON(http.StatusOK, n)
}

func (api *eventApi) destroyNote(ctx echo.Context) error {
	chk, err := getContextChecker(ctx)
	if err != nil {
		return err
	}
	n, err := api.svc.GetNote(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	if !chk.CanDeleteNote(n) {
		return errHttpForbidden
	}
	if err := api.svc.DeleteNote(ctx.Request().Context(), n.ID); err != nil {
		return errors.Wrap(err, "deleting note")
	}
	return ctx.NoContent(http.StatusNoContent)
}
