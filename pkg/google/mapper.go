package google

import (
	"fmt"
	"strconv"
	"time"

	"github.com/doneboard/doneboard/pkg/task"
	"google.golang.org/api/calendar/v3"
)

// The calendar schema has no completion attribute, so it is bolted on as a
// private extended property with a string-encoded boolean. The string shape
// exists only in this file; the rest of the engine sees a typed bool.
const (
	completedFlagKey = "completed"
	flagTrue         = "true"
)

const allDayFormat = "2006-01-02"

// taskFromEvent maps a raw remote event record to a Task. Missing description
// and missing start are tolerated; a missing or unparseable end makes the
// record unmappable.
func taskFromEvent(event *calendar.Event) (task.Task, error) {
	end, allDay, err := parseEventTime(event.End)
	if err != nil {
		return task.Task{}, fmt.Errorf("event %s: %w", event.Id, err)
	}

	t := task.Task{
		ID:          event.Id,
		Title:       event.Summary,
		Description: event.Description,
		EndTime:     end,
		AllDay:      allDay,
	}
	if start, _, err := parseEventTime(event.Start); err == nil {
		t.StartTime = start
	}
	if event.ExtendedProperties != nil {
		t.Completed = event.ExtendedProperties.Private[completedFlagKey] == flagTrue
	}
	return t, nil
}

// eventFromTask builds the remote payload for create and update. It never
// sets an id (ids are server-assigned) and always sends the description so
// clearing it overwrites stale remote text instead of leaving it in place.
func eventFromTask(t task.Task) *calendar.Event {
	event := &calendar.Event{
		Summary:         t.Title,
		Description:     t.Description,
		End:             formatEventTime(t.EndTime, t.AllDay),
		ForceSendFields: []string{"Description"},
	}
	if !t.StartTime.IsZero() {
		event.Start = formatEventTime(t.StartTime, t.AllDay)
	}
	return event
}

// completionPatch carries only the completion flag, so a PATCH with it leaves
// every other field of the remote record untouched.
func completionPatch(completed bool) *calendar.Event {
	return &calendar.Event{
		ExtendedProperties: completionProperties(completed),
	}
}

func completionProperties(completed bool) *calendar.EventExtendedProperties {
	return &calendar.EventExtendedProperties{
		Private: map[string]string{completedFlagKey: strconv.FormatBool(completed)},
	}
}

func parseEventTime(edt *calendar.EventDateTime) (time.Time, bool, error) {
	if edt == nil {
		return time.Time{}, false, task.ErrMissingEnd
	}
	if edt.DateTime != "" {
		t, err := time.Parse(time.RFC3339, edt.DateTime)
		if err != nil {
			return time.Time{}, false, fmt.Errorf("unparseable datetime %q: %w", edt.DateTime, task.ErrMissingEnd)
		}
		return t, false, nil
	}
	if edt.Date != "" {
		// All-day events carry a bare calendar date without a zone.
		t, err := time.Parse(allDayFormat, edt.Date)
		if err != nil {
			return time.Time{}, false, fmt.Errorf("unparseable date %q: %w", edt.Date, task.ErrMissingEnd)
		}
		return t, true, nil
	}
	return time.Time{}, false, task.ErrMissingEnd
}

func formatEventTime(t time.Time, allDay bool) *calendar.EventDateTime {
	if allDay {
		return &calendar.EventDateTime{Date: t.Format(allDayFormat)}
	}
	// Timestamps go over the wire normalized to UTC with an explicit zone.
	return &calendar.EventDateTime{
		DateTime: t.UTC().Format(time.RFC3339),
		TimeZone: "UTC",
	}
}
