package icalsvc

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xronos/xronos/core/element"
	"github.com/xronos/xronos/core/event"
)

func TestFeed_Write(t *testing.T) {
	start := time.Date(2021, 10, 4, 9, 0, 0, 0, time.UTC)
	feed := Feed{
		Element: element.Element{ID: "r1", Name: "Main hall", Kind: element.KindLocation},
		Events: []event.Event{
			{ID: "e1", Body: "Assembly", CategoryID: "c1", StartsAt: start, EndsAt: start.Add(time.Hour), Complete: true},
			{ID: "e2", Body: "Interview", Private: true, StartsAt: start.Add(2 * time.Hour), EndsAt: start.Add(3 * time.Hour)},
			{ID: "e3", Body: "Sports day", AllDay: true, StartsAt: start.Truncate(24 * time.Hour), EndsAt: start.Truncate(24*time.Hour).AddDate(0, 0, 1), Complete: true},
			{ID: "e4", Body: "Cancelled", NonExistent: true, StartsAt: start, EndsAt: start.Add(time.Hour)},
		},
		Categories: map[string]string{"c1": "Assembly"},
		Host:       "xronos.test",
		Now:        start,
	}

	var buf bytes.Buffer
	require.NoError(t, feed.Write(&buf))

	cal, err := ical.NewDecoder(&buf).Decode()
	require.NoError(t, err)
	events := cal.Events()
	require.Len(t, events, 3)

	summary := func(e ical.Event) string {
		s, err := e.Props.Text(ical.PropSummary)
		require.NoError(t, err)
		return s
	}
	assert.Equal(t, "Assembly", summary(events[0]))
	assert.Equal(t, "Private event", summary(events[1]))
	assert.Equal(t, "Sports day", summary(events[2]))

	uid, err := events[0].Props.Text(ical.PropUID)
	require.NoError(t, err)
	assert.Equal(t, "e1@xronos.test", uid)

	status, err := events[1].Props.Text(ical.PropStatus)
	require.NoError(t, err)
	assert.Equal(t, "TENTATIVE", status)

	dtstart, err := events[0].DateTimeStart(time.UTC)
	require.NoError(t, err)
	assert.True(t, dtstart.Equal(start))

	assert.Equal(t, ical.ValueDate, events[2].Props.Get(ical.PropDateTimeStart).ValueType())
}

func TestFeed_WriteEmpty(t *testing.T) {
	feed := Feed{
		Element: element.Element{ID: "s1", Name: "Smith, J", Kind: element.KindStaff},
		Events:  []event.Event{{ID: "e1", NonExistent: true}},
		Host:    "xronos.test",
	}

	var buf bytes.Buffer
	require.NoError(t, feed.Write(&buf))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "BEGIN:VCALENDAR\r\n"))
	assert.Contains(t, out, "X-WR-CALNAME:Smith\\, J\r\n")
	assert.True(t, strings.HasSuffix(out, "END:VCALENDAR\r\n"))
	assert.NotContains(t, out, "VEVENT")
}
