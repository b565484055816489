// Package icalsvc renders element schedules as iCalendar feeds.
package icalsvc

import (
	"io"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/pkg/errors"

	"github.com/xronos/xronos/core/element"
	"github.com/xronos/xronos/core/event"
)

const productID = "-//Xronos//Schedule feed//EN"

// Feed is everything a calendar is built from.
type Feed struct {
	Element    element.Element
	Events     []event.Event
	Categories map[string]string // {category id: name}
	Location   *time.Location
	Host       string // used to build globally unique UIDs
	Now        time.Time
}

func (f Feed) calendar() *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	cal.Props.SetText("X-WR-CALNAME", f.Element.Name)

	loc := f.Location
	if loc == nil {
		loc = time.UTC
	}
	for _, evt := range f.Events {
		if evt.NonExistent {
			continue
		}
		ve := ical.NewEvent()
		ve.Props.SetText(ical.PropUID, evt.ID+"@"+f.Host)
		ve.Props.SetDateTime(ical.PropDateTimeStamp, f.Now.UTC())

		summary := evt.Body
		if evt.Private {
			summary = "Private event"
		}
		ve.Props.SetText(ical.PropSummary, summary)

		if evt.AllDay {
			ve.Props.SetDate(ical.PropDateTimeStart, evt.StartsAt.In(loc))
			ve.Props.SetDate(ical.PropDateTimeEnd, evt.EndsAt.In(loc))
		} else {
			ve.Props.SetDateTime(ical.PropDateTimeStart, evt.StartsAt.UTC())
			ve.Props.SetDateTime(ical.PropDateTimeEnd, evt.EndsAt.UTC())
		}
		if name, ok := f.Categories[evt.CategoryID]; ok && name != "" {
			ve.Props.SetText(ical.PropCategories, name)
		}
		status := "CONFIRMED"
		if !evt.Complete {
			status = "TENTATIVE"
		}
		ve.Props.SetText(ical.PropStatus, status)
		if !evt.UpdatedAt.IsZero() {
			ve.Props.SetDateTime(ical.PropLastModified, evt.UpdatedAt.UTC())
		}
		cal.Children = append(cal.Children, ve.Component)
	}
	return cal
}

// Write encodes the feed to w. A feed without events is still a valid calendar.
func (f Feed) Write(w io.Writer) error {
	cal := f.calendar()
	if len(cal.Children) == 0 {
		return f.writeEmpty(w)
	}
	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return errors.Wrap(err, "encoding calendar")
	}
	return nil
}

var textEscaper = strings.NewReplacer(`\`, `\\`, ";", `\;`, ",", `\,`, "\n", `\n`)

// writeEmpty writes the calendar header by hand: the encoder refuses calendars without components.
func (f Feed) writeEmpty(w io.Writer) error {
	lines := []string{
		"BEGIN:" + ical.CompCalendar,
		ical.PropVersion + ":2.0",
		ical.PropProductID + ":" + productID,
		"X-WR-CALNAME:" + textEscaper.Replace(f.Element.Name),
		"END:" + ical.CompCalendar,
	}
	if _, err := io.WriteString(w, strings.Join(lines, "\r\n")+"\r\n"); err != nil {
		return errors.Wrap(err, "writing empty calendar")
	}
	return nil
}
