package task

import (
	"time"

	log "github.com/sirupsen/logrus"
)

// Categorize buckets tasks by their end date relative to today. The buckets
// are mutually exclusive and a completed task always lands in the completed
// bucket, whatever its date.
//
// today is injected so the function stays pure; its Location() is the
// timezone the calendar-date comparison happens in. Comparison is by
// calendar date only, never by instant: a task due 23:59 today and one due
// 00:01 today are both "today".
func Categorize(tasks []Task, today time.Time) Buckets {
	loc := today.Location()
	todayDate := dateOf(today, loc)
	tomorrowDate := dateOf(today.AddDate(0, 0, 1), loc)

	var b Buckets
	for _, t := range tasks {
		if !t.HasEnd() {
			// Unclassifiable: dropped from every bucket, not coerced.
			log.Debugf("skipping task without end date: %q (%s)", t.Title, t.ID)
			continue
		}
		if t.Completed {
			b.Completed = append(b.Completed, t)
			continue
		}
		endDate := t.EndDate(loc)
		switch {
		case endDate.Before(todayDate):
			b.Overdue = append(b.Overdue, t)
		case endDate.Equal(todayDate):
			b.Today = append(b.Today, t)
		case endDate.Equal(tomorrowDate):
			b.Tomorrow = append(b.Tomorrow, t)
		default:
			b.Upcoming = append(b.Upcoming, t)
		}
	}
	return b
}

func dateOf(t time.Time, loc *time.Location) time.Time {
	year, month, day := t.In(loc).Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
