package task

import (
	"math"
	"time"
)

// Ratio is a completion rate in [0, 1]. A zero denominator yields 0, never NaN.
type Ratio struct {
	Completed int
	Total     int
	Value     float64
}

type Progress struct {
	Overall Ratio
	Today   Ratio
}

// ComputeProgress derives completion ratios from categorized buckets.
//
// Overdue tasks deliberately do not count toward the overall denominator:
// they are surfaced as a separate concern, not as part of the completion
// rate. This is an inherited product rule, and an unusual one; confirm with
// stakeholders before changing it.
func ComputeProgress(b Buckets, today time.Time) Progress {
	overallTotal := len(b.Today) + len(b.Tomorrow) + len(b.Upcoming) + len(b.Completed)

	loc := today.Location()
	todayDate := dateOf(today, loc)
	completedToday := 0
	for _, t := range b.Completed {
		if t.EndDate(loc).Equal(todayDate) {
			completedToday++
		}
	}

	return Progress{
		Overall: ratio(len(b.Completed), overallTotal),
		Today:   ratio(completedToday, len(b.Today)),
	}
}

func ratio(completed, total int) Ratio {
	r := Ratio{Completed: completed, Total: total}
	if total == 0 {
		return r
	}
	r.Value = math.Min(float64(completed)/float64(total), 1.0)
	return r
}
