package task

import "time"

// Snapshot is the read-only view model handed to presentation: buckets plus
// the progress derived from them. It is recomputed after every successful
// fetch and after every resolved mutation.
type Snapshot struct {
	Buckets  Buckets
	Progress Progress
}

// Project categorizes tasks and computes progress in one step.
func Project(tasks []Task, today time.Time) Snapshot {
	buckets := Categorize(tasks, today)
	return Snapshot{
		Buckets:  buckets,
		Progress: ComputeProgress(buckets, today),
	}
}
