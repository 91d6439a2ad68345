package google

import (
	"testing"
	"time"

	"github.com/doneboard/doneboard/pkg/task"
	"github.com/stretchr/testify/assert"
	"google.golang.org/api/calendar/v3"
)

func TestTaskFromEvent_TimedEvent(t *testing.T) {
	// given
	event := &calendar.Event{
		Id:          "evt-1",
		Summary:     "Dentist",
		Description: "Bring insurance card",
		Start:       &calendar.EventDateTime{DateTime: "2024-06-10T09:00:00Z"},
		End:         &calendar.EventDateTime{DateTime: "2024-06-10T10:00:00Z"},
		ExtendedProperties: &calendar.EventExtendedProperties{
			Private: map[string]string{"completed": "true"},
		},
	}

	// when
	mapped, err := taskFromEvent(event)

	// then
	assert.NoError(t, err)
	assert.Equal(t, "evt-1", mapped.ID)
	assert.Equal(t, "Dentist", mapped.Title)
	assert.Equal(t, "Bring insurance card", mapped.Description)
	assert.Equal(t, time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC), mapped.StartTime)
	assert.Equal(t, time.Date(2024, 6, 10, 10, 0, 0, 0, time.UTC), mapped.EndTime)
	assert.False(t, mapped.AllDay)
	assert.True(t, mapped.Completed)
}

func TestTaskFromEvent_AllDayEvent(t *testing.T) {
	// given
	event := &calendar.Event{
		Id:      "evt-2",
		Summary: "Holiday",
		Start:   &calendar.EventDateTime{Date: "2024-06-10"},
		End:     &calendar.EventDateTime{Date: "2024-06-11"},
	}

	// when
	mapped, err := taskFromEvent(event)

	// then
	assert.NoError(t, err)
	assert.True(t, mapped.AllDay)
	assert.Equal(t, time.Date(2024, 6, 11, 0, 0, 0, 0, time.UTC), mapped.EndTime)
}

func TestTaskFromEvent_ToleratesMissingDescriptionAndStart(t *testing.T) {
	// given
	event := &calendar.Event{
		Id:      "evt-3",
		Summary: "Quick note",
		End:     &calendar.EventDateTime{DateTime: "2024-06-10T10:00:00Z"},
	}

	// when
	mapped, err := taskFromEvent(event)

	// then
	assert.NoError(t, err)
	assert.Equal(t, "", mapped.Description)
	assert.True(t, mapped.StartTime.IsZero())
}

func TestTaskFromEvent_MissingCompletionFlagMeansNotCompleted(t *testing.T) {
	// given: an event created outside the app, without the private property
	event := &calendar.Event{
		Id:  "evt-4",
		End: &calendar.EventDateTime{DateTime: "2024-06-10T10:00:00Z"},
	}

	// when
	mapped, err := taskFromEvent(event)

	// then
	assert.NoError(t, err)
	assert.False(t, mapped.Completed)
}

func TestTaskFromEvent_NonTrueFlagValuesMeanNotCompleted(t *testing.T) {
	// given
	event := &calendar.Event{
		Id:  "evt-5",
		End: &calendar.EventDateTime{DateTime: "2024-06-10T10:00:00Z"},
		ExtendedProperties: &calendar.EventExtendedProperties{
			Private: map[string]string{"completed": "yes"},
		},
	}

	// when
	mapped, err := taskFromEvent(event)

	// then: only the literal "true" counts
	assert.NoError(t, err)
	assert.False(t, mapped.Completed)
}

func TestTaskFromEvent_MissingEndIsUnmappable(t *testing.T) {
	// given
	event := &calendar.Event{
		Id:      "evt-6",
		Summary: "No end",
		Start:   &calendar.EventDateTime{DateTime: "2024-06-10T09:00:00Z"},
	}

	// when
	_, err := taskFromEvent(event)

	// then
	assert.ErrorIs(t, err, task.ErrMissingEnd)
}

func TestTaskFromEvent_UnparseableEndIsUnmappable(t *testing.T) {
	// given
	event := &calendar.Event{
		Id:  "evt-7",
		End: &calendar.EventDateTime{DateTime: "next tuesday"},
	}

	// when
	_, err := taskFromEvent(event)

	// then
	assert.ErrorIs(t, err, task.ErrMissingEnd)
}

func TestEventFromTask_RoundTripsEditableFields(t *testing.T) {
	// given
	original := task.Task{
		Title:       "Write report",
		Description: "Q2 numbers",
		StartTime:   time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC),
		EndTime:     time.Date(2024, 6, 10, 17, 0, 0, 0, time.UTC),
	}

	// when
	event := eventFromTask(original)
	back, err := taskFromEvent(event)

	// then
	assert.NoError(t, err)
	assert.Equal(t, original.Title, back.Title)
	assert.Equal(t, original.Description, back.Description)
	assert.Equal(t, original.StartTime.Unix(), back.StartTime.Unix())
	assert.Equal(t, original.EndTime.Unix(), back.EndTime.Unix())
	assert.False(t, back.AllDay)
}

func TestEventFromTask_NeverSetsId(t *testing.T) {
	// given
	event := eventFromTask(task.Task{ID: "local-id", Title: "x", EndTime: time.Now()})

	// then: ids are server-assigned
	assert.Empty(t, event.Id)
}

func TestEventFromTask_NormalizesTimestampsToUtc(t *testing.T) {
	// given
	warsaw, err := time.LoadLocation("Europe/Warsaw")
	assert.NoError(t, err)
	end := time.Date(2024, 6, 10, 23, 30, 0, 0, warsaw)

	// when
	event := eventFromTask(task.Task{Title: "late call", EndTime: end})

	// then
	assert.Equal(t, "2024-06-10T21:30:00Z", event.End.DateTime)
	assert.Equal(t, "UTC", event.End.TimeZone)
}

func TestEventFromTask_AllDayUsesDateShape(t *testing.T) {
	// when
	event := eventFromTask(task.Task{
		Title:   "Holiday",
		EndTime: time.Date(2024, 6, 11, 0, 0, 0, 0, time.UTC),
		AllDay:  true,
	})

	// then
	assert.Equal(t, "2024-06-11", event.End.Date)
	assert.Empty(t, event.End.DateTime)
}

func TestEventFromTask_ForcesDescriptionField(t *testing.T) {
	// given: the description was cleared locally
	event := eventFromTask(task.Task{Title: "x", EndTime: time.Now()})

	// then: the empty description still goes over the wire
	assert.Contains(t, event.ForceSendFields, "Description")
}

func TestEventFromTask_OmitsZeroStart(t *testing.T) {
	// when
	event := eventFromTask(task.Task{Title: "x", EndTime: time.Now()})

	// then
	assert.Nil(t, event.Start)
}

func TestCompletionPatch_CarriesOnlyTheFlag(t *testing.T) {
	// when
	patch := completionPatch(true)

	// then: nothing but the private property is present, so a PATCH built
	// from it cannot clobber unrelated fields
	assert.Equal(t, "true", patch.ExtendedProperties.Private["completed"])
	assert.Empty(t, patch.Summary)
	assert.Empty(t, patch.Description)
	assert.Nil(t, patch.Start)
	assert.Nil(t, patch.End)

	off := completionPatch(false)
	assert.Equal(t, "false", off.ExtendedProperties.Private["completed"])
}
