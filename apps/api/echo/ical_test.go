package echoapi

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xronos/xronos/core/element"
	"github.com/xronos/xronos/core/event"
)

func TestICalApi_feed(t *testing.T) {
	env := newTestEnv(t)
	staff := env.createStaff(t, "Jane Doe", "jdoe")
	lab := env.createElement(t, "Lab 1", element.KindLocation, "")
	lesson := env.createCategory(t, "Lesson")
	publish := false
	hidden, err := env.events.CreateCategory(context.Background(), event.NewCategory{Name: "Maintenance", Publish: &publish})
	require.NoError(t, err)

	shown := env.createEvent(t, staff, lesson, nextWeek(), lab.ID)
	env.createEvent(t, staff, hidden, nextWeek().AddDate(0, 0, 1), lab.ID)

	rec := env.do(newRequest(http.MethodGet, "/v1/ical/"+lab.ID))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), "text/calendar"))

	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "BEGIN:VCALENDAR"))
	assert.Contains(t, body, "X-WR-CALNAME:Lab 1")
	assert.Equal(t, 1, strings.Count(body, "BEGIN:VEVENT"))
	assert.Contains(t, body, "SUMMARY:Trip to the museum")
	assert.Contains(t, body, "UID:"+shown.ID+"@")

	rec = env.do(newRequest(http.MethodGet, "/v1/ical/nope"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestICalApi_emptyFeed(t *testing.T) {
	env := newTestEnv(t)
	lab := env.createElement(t, "Lab 1", element.KindLocation, "")

	rec := env.do(newRequest(http.MethodGet, "/v1/ical/"+lab.ID))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "BEGIN:VCALENDAR")
	assert.NotContains(t, rec.Body.String(), "BEGIN:VEVENT")
}
