package task

import "time"

// Task is the engine's view of a single remote calendar event. Instances are
// ephemeral: they are rebuilt from the remote store on every fetch and the
// remote store stays the single source of truth.
type Task struct {
	ID          string
	Title       string
	Description string
	StartTime   time.Time // zero when the event has no start
	EndTime     time.Time // zero when the event has no end; such tasks are never bucketed
	AllDay      bool
	Completed   bool
}

// HasEnd reports whether the task can be categorized at all.
func (t Task) HasEnd() bool {
	return !t.EndTime.IsZero()
}

// EndDate returns the calendar date (midnight UTC) of the task's end in the
// given location. All-day events carry a bare date with no zone, so they are
// read as-is instead of being shifted through the location.
func (t Task) EndDate(loc *time.Location) time.Time {
	if t.AllDay {
		year, month, day := t.EndTime.Date()
		return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	}
	year, month, day := t.EndTime.In(loc).Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

type Category string

const (
	CategoryOverdue   Category = "overdue"
	CategoryToday     Category = "today"
	CategoryTomorrow  Category = "tomorrow"
	CategoryUpcoming  Category = "upcoming"
	CategoryCompleted Category = "completed"
)

// Buckets groups tasks by category. Slice order is the remote store's return
// order; tasks are never resorted.
type Buckets struct {
	Overdue   []Task
	Today     []Task
	Tomorrow  []Task
	Upcoming  []Task
	Completed []Task
}
