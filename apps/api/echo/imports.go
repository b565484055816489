package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/xronos/xronos/core"
	"github.com/xronos/xronos/core/element"
	"github.com/xronos/xronos/services/roster"
)

const importFileField = "file"

type importApi struct {
	importer *roster.Importer
}

func registerImportAPI(g *echo.Group, auth []echo.MiddlewareFunc, s *server) {
	api := importApi{importer: s.Importer}

	ig := g.Group("/imports", auth...)
	ig.POST("/:kind", api.importRoster, adminMiddleware())
}

// importRoster loads a CSV or XLSX roster of `kind` elements from the multipart "file" field.
// A "retire" form value of true retires current elements missing from the roster.
func (api *importApi) importRoster(ctx echo.Context) error {
	kind := element.Kind(ctx.Param("kind"))
	if !roster.Importable(kind) {
		return errHttpNotFound
	}

	fh, err := ctx.FormFile(importFileField)
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: importFileField, Error: "a CSV or XLSX file is required"})
	}
	f, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer func() { _ = f.Close() }()

	records, err := roster.Read(fh.Filename, f)
	if err != nil {
		if errors.Cause(err) == roster.ErrUnsupportedFormat {
			return err
		}
		return core.NewValidationError(err, core.FieldError{Field: importFileField, Error: err.Error()})
	}
	retire, _ := strconv.ParseBool(ctx.FormValue("retire"))

	res, err := api.importer.Import(ctx.Request().Context(), kind, records, retire)
	if err != nil {
		return errors.Wrap(err, "importing roster")
	}
	return ctx.JSON(http.StatusOK, res)
}
