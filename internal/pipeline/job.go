package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"crypto-tracker/internal/logging"
	"crypto-tracker/internal/models"

	"github.com/google/uuid"
)

// Fetcher retrieves the raw market page.
type Fetcher interface {
	FetchMarkets(ctx context.Context) ([]models.MarketCoin, error)
}

// SheetWriter persists a table and its summary.
type SheetWriter interface {
	Write(table *models.Table, report *models.SummaryReport) error
}

// Archiver stores the rows of a successful run.
type Archiver interface {
	SaveSnapshot(ctx context.Context, runID string, capturedAt time.Time, table *models.Table) error
}

// Listener receives every run except skipped ones.
type Listener interface {
	Publish(result Result)
}

type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// Result describes one run.
type Result struct {
	RunID      string                `json:"run_id"`
	Status     Status                `json:"status"`
	StartedAt  time.Time             `json:"started_at"`
	CapturedAt time.Time             `json:"captured_at"`
	FinishedAt time.Time             `json:"finished_at"`
	Table      *models.Table         `json:"table,omitempty"`
	Report     *models.SummaryReport `json:"report,omitempty"`
	Error      string                `json:"error,omitempty"`

	// Err is the cause of a failed run; WriteErr a logged but tolerated
	// persistence failure.
	Err      error `json:"-"`
	WriteErr error `json:"-"`
}

// Job runs fetch, transform, analyze and write once per call to Run.
type Job struct {
	fetcher  Fetcher
	writer   SheetWriter
	archiver Archiver
	listener Listener
	logger   *logging.Logger
	console  io.Writer
	now      func() time.Time
}

type JobOption func(*Job)

func WithArchiver(a Archiver) JobOption {
	return func(j *Job) { j.archiver = a }
}

func WithListener(l Listener) JobOption {
	return func(j *Job) { j.listener = l }
}

// WithConsole sets where the "Updated at" notice goes (stdout by default).
func WithConsole(w io.Writer) JobOption {
	return func(j *Job) {
		if w != nil {
			j.console = w
		}
	}
}

func WithClock(now func() time.Time) JobOption {
	return func(j *Job) {
		if now != nil {
			j.now = now
		}
	}
}

func NewJob(fetcher Fetcher, writer SheetWriter, logger *logging.Logger, opts ...JobOption) *Job {
	j := &Job{
		fetcher: fetcher,
		writer:  writer,
		logger:  logger,
		console: os.Stdout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Run executes one job. Failures never escape: they are logged as CRITICAL
// and reported in the returned Result.
func (j *Job) Run(ctx context.Context) (res Result) {
	res = Result{RunID: uuid.NewString(), StartedAt: j.now()}

	defer func() {
		if r := recover(); r != nil {
			res.fail(fmt.Errorf("panic: %v", r))
			j.logger.Critical("Job failed: %v", res.Err)
		}
		res.FinishedAt = j.now()
		if j.listener != nil && res.Status != StatusSkipped {
			j.listener.Publish(res)
		}
	}()

	raw, err := j.fetcher.FetchMarkets(ctx)
	if err != nil {
		res.fail(err)
		j.logger.Critical("Job failed: %v", err)
		return res
	}
	if len(raw) == 0 {
		res.Status = StatusSkipped
		return res
	}

	// Rows are stamped when the data arrived, not when the run began.
	res.CapturedAt = j.now()
	table := Transform(raw, res.CapturedAt)
	report := Analyze(table)
	res.Table, res.Report = table, report

	// Write failures are logged by the writer and do not fail the run.
	res.WriteErr = j.writer.Write(table, report)

	if j.archiver != nil {
		if err := j.archiver.SaveSnapshot(ctx, res.RunID, res.CapturedAt, table); err != nil {
			j.logger.Error("History Error: %v", err)
		}
	}

	res.Status = StatusSucceeded
	fmt.Fprintf(j.console, "Updated at %s\n", j.now().Format(TimestampLayout))
	return res
}

func (r *Result) fail(err error) {
	r.Status = StatusFailed
	r.Err = err
	r.Error = err.Error()
}
