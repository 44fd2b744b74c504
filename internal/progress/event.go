// Package progress defines crawl lifecycle events and a non-blocking
// fan-out hub for delivering them to sinks.
package progress

import (
	"errors"
	"fmt"
	"time"
)

// Stage denotes the type of milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	StageJobStart Stage = "JOB_START"
	StageJobDone  Stage = "JOB_DONE"
	StageJobError Stage = "JOB_ERROR"
	StageBookDone Stage = "BOOK_DONE"
)

// Event captures a single crawl progress milestone.
type Event struct {
	// JobID identifies the job run; synchronous crawls use "sync".
	JobID string
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage denotes which lifecycle milestone occurred.
	Stage Stage
	// BookID scopes BOOK_DONE events to a source book.
	BookID string
	// Completed and Total carry running book counts for BOOK_DONE.
	Completed int
	Total     int
	// Note lets emitters attach low-volume context (e.g. error text).
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.JobID == "" {
		return errors.New("job id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageJobStart, StageJobDone, StageJobError:
	case StageBookDone:
		if e.BookID == "" {
			return errors.New("book done requires book id")
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	return nil
}
