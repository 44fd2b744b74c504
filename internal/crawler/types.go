// Package crawler defines core types shared across subsystems.
package crawler

import "time"

// Mode selects which catalog section a crawl targets and how the
// resulting books are shaped.
type Mode string

// Supported crawl modes.
const (
	// ModeLong returns chapters as a separate ordered list.
	ModeLong Mode = "long"
	// ModeShort folds chapter text into the description for a
	// single-page reading view and leaves the chapter list empty.
	ModeShort Mode = "short"
)

// ParseMode maps a client-supplied mode string onto a Mode, defaulting
// to ModeLong for anything unrecognized.
func ParseMode(s string) Mode {
	if s == string(ModeShort) {
		return ModeShort
	}
	return ModeLong
}

// Chapter is a single chapter page. Immutable once constructed.
type Chapter struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Source  string `json:"source"`
}

// Book is the assembled record for one crawled book. Chapters is empty
// in short mode, where chapter text lives in Description instead.
type Book struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	SourceBook  string    `json:"source_book"`
	Chapters    []Chapter `json:"chapters"`
}

// JobStatus represents the lifecycle state of a crawl job.
type JobStatus string

// Job status values held in the job store.
const (
	JobStatusPending JobStatus = "pending"
	JobStatusRunning JobStatus = "running"
	JobStatusDone    JobStatus = "done"
	JobStatusError   JobStatus = "error"
)

// IsTerminal reports whether a status ends the job lifecycle.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusDone || s == JobStatusError
}

// Job is the record kept for each submitted crawl request. A single
// background worker is the only writer of a given job; polling readers
// may observe it in any state.
type Job struct {
	ID        string     `json:"id"`
	Status    JobStatus  `json:"status"`
	Progress  int        `json:"progress"`
	Result    []Book     `json:"result,omitempty"`
	ErrorText string     `json:"error,omitempty"`
	Submitted time.Time  `json:"submitted_at"`
	Started   *time.Time `json:"started_at,omitempty"`
	Finished  *time.Time `json:"finished_at,omitempty"`
}

// ChapterPolicy bounds chapter acquisition for a single book. With
// Concurrency > 1 every index up to MaxChapters is attempted in
// parallel; otherwise indexes are fetched one at a time and the crawl
// stops after MaxConsecutiveMisses misses in a row.
type ChapterPolicy struct {
	MaxChapters          int
	MaxConsecutiveMisses int
	Concurrency          int
}

// CrawlRequest captures the per-crawl knobs requested by the client.
type CrawlRequest struct {
	NumBooks int           `json:"num_books"`
	Mode     Mode          `json:"mode"`
	Chapters ChapterPolicy `json:"-"`

	// OnBook, when set, is invoked once per successfully crawled book
	// in completion order, together with the running completed count
	// and the number of selected books. It may be called from multiple
	// goroutines.
	OnBook func(book Book, completed, total int) `json:"-"`
}

// QueueItem wraps a submitted job ready to run.
type QueueItem struct {
	JobID     string
	Request   CrawlRequest
	Submitted int64
}
