package echoapi

import (
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/xronos/xronos/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// bindAndValidate binds the request body (or query) into data, then validates it.
func bindAndValidate(ctx echo.Context, validate *validator.Validate, data interface{}, what string) error {
	if err := ctx.Bind(data); err != nil {
		return errors.Wrap(err, "binding to "+what)
	}
	return validate.Struct(data)
}

// dateParam reads a YYYY-MM-DD query parameter in loc, defaulting to today.
func dateParam(ctx echo.Context, name string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	val := ctx.QueryParam(name)
	if val == "" {
		return core.Date(nowFunc().In(loc)), nil
	}
	date, err := time.ParseInLocation(core.DateLayout, val, loc)
	if err != nil {
		return time.Time{}, core.NewValidationError(err, core.FieldError{Field: name, Error: "date must be of form YYYY-MM-DD"})
	}
	return date, nil
}

func boolParam(ctx echo.Context, name string) bool {
	b, _ := strconv.ParseBool(ctx.QueryParam(name))
	return b
}
