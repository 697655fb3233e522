// Package scheduler drains a lazy record source in bounded batches on a
// background goroutine, reporting progress between batches and delivering
// the complete result or a single error at the end.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mcncl/jsondelta/internal/errors"
	"github.com/mcncl/jsondelta/internal/logging"
	"github.com/mcncl/jsondelta/internal/models"
)

// EventType represents the type of job event.
type EventType string

const (
	// EventProgress reports the number of records produced so far.
	EventProgress EventType = "progress"
	// EventError signals a fatal error. No event follows it.
	EventError EventType = "error"
	// EventDone delivers the complete result. No event follows it.
	EventDone EventType = "done"
)

// Event is a single job event. Data holds a ProgressData, ErrorData or
// DoneData matching Type.
type Event struct {
	Type EventType   `json:"type"`
	Data interface{} `json:"data"`
}

// ProgressData reports progress.
type ProgressData struct {
	EmittedCount int `json:"emittedCount"`
}

// ErrorData carries the failure that ended a job.
type ErrorData struct {
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// DoneData carries every record in emission order.
type DoneData struct {
	Records []models.Record `json:"records"`
}

// Source yields records until it reports false.
type Source interface {
	Next() (models.Record, bool)
}

// Producer prepares the Source for a job. It runs on the job goroutine, so
// parsing and other setup work stays off the caller.
type Producer func(ctx context.Context) (Source, error)

// Config controls batching.
type Config struct {
	BatchSize int           // Records per turn (default: 200)
	Pause     time.Duration // Yield between turns; 0 only reschedules
}

// DefaultConfig returns the default batching configuration.
func DefaultConfig() Config {
	return Config{
		BatchSize: 200,
		Pause:     5 * time.Millisecond,
	}
}

// Scheduler starts jobs and tracks the ones still running.
type Scheduler struct {
	config Config
	logger *slog.Logger

	mu     sync.Mutex
	active map[string]*Job
}

// New creates a Scheduler. A non-positive BatchSize selects the default and
// a nil logger discards output.
func New(config Config, logger *slog.Logger) *Scheduler {
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultConfig().BatchSize
	}
	if config.Pause < 0 {
		config.Pause = 0
	}
	logger = logging.OrDiscard(logger)
	return &Scheduler{
		config: config,
		logger: logger,
		active: make(map[string]*Job),
	}
}

// Config returns the effective configuration.
func (s *Scheduler) Config() Config {
	return s.config
}

// Start runs produce and drains its Source on a new goroutine. Cancelling
// ctx cancels the job.
func (s *Scheduler) Start(ctx context.Context, produce Producer) *Job {
	ctx, cancel := context.WithCancel(ctx)
	job := &Job{
		ID:        uuid.New().String(),
		StartedAt: time.Now(),
		ctx:       ctx,
		cancel:    cancel,
		events:    make(chan Event),
	}

	s.mu.Lock()
	s.active[job.ID] = job
	s.mu.Unlock()

	go s.run(job, produce)
	return job
}

// Cancel cancels the running job with the given ID.
func (s *Scheduler) Cancel(id string) bool {
	s.mu.Lock()
	job, ok := s.active[id]
	s.mu.Unlock()
	if ok {
		job.Cancel()
	}
	return ok
}

// Active returns the number of jobs that have not finished.
func (s *Scheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

// Shutdown cancels every running job.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	jobs := make([]*Job, 0, len(s.active))
	for _, j := range s.active {
		jobs = append(jobs, j)
	}
	s.mu.Unlock()

	for _, j := range jobs {
		j.Cancel()
	}
}

func (s *Scheduler) run(job *Job, produce Producer) {
	logger := s.logger.With("job", job.ID)
	defer func() {
		job.cancel()
		close(job.events)
		s.mu.Lock()
		delete(s.active, job.ID)
		s.mu.Unlock()
		logger.Debug("job finished", "elapsed", time.Since(job.StartedAt))
	}()

	logger.Debug("job started", "batch_size", s.config.BatchSize)

	src, err := safeProduce(job.ctx, produce)
	if err != nil {
		logger.Debug("job failed before producing records", "error", err)
		job.send(Event{Type: EventError, Data: ErrorData{Message: err.Error(), Err: err}})
		return
	}

	if src == nil {
		job.send(Event{Type: EventDone, Data: DoneData{Records: []models.Record{}}})
		return
	}

	d := &drain{src: src, records: []models.Record{}}
	if err := d.fill(1); err != nil {
		job.send(Event{Type: EventError, Data: ErrorData{Message: err.Error(), Err: err}})
		return
	}

	for {
		if job.ctx.Err() != nil {
			logger.Debug("job cancelled", "emitted", len(d.records))
			return
		}
		if err := d.fill(s.config.BatchSize); err != nil {
			logger.Debug("job failed", "emitted", len(d.records), "error", err)
			job.send(Event{Type: EventError, Data: ErrorData{Message: err.Error(), Err: err}})
			return
		}
		if !d.more {
			job.send(Event{Type: EventDone, Data: DoneData{Records: d.records}})
			return
		}
		if !job.send(Event{Type: EventProgress, Data: ProgressData{EmittedCount: len(d.records)}}) {
			return
		}
		if !s.yield(job.ctx) {
			return
		}
	}
}

func (s *Scheduler) yield(ctx context.Context) bool {
	if s.config.Pause == 0 {
		runtime.Gosched()
		return ctx.Err() == nil
	}
	timer := time.NewTimer(s.config.Pause)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func safeProduce(ctx context.Context, produce Producer) (src Source, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = errors.NewDiffError(fmt.Sprintf("panic while preparing comparison: %v", p), nil)
		}
	}()
	return produce(ctx)
}

// drain pulls records from a Source one ahead of what it has accepted, so
// it knows whether the Source is exhausted without another call.
type drain struct {
	src     Source
	records []models.Record
	next    models.Record
	more    bool
	primed  bool
}

// fill accepts up to n records. The first call only primes the lookahead.
func (d *drain) fill(n int) (err error) {
	defer func() {
		if p := recover(); p != nil {
			d.src, d.records = nil, nil
			err = errors.NewDiffError(fmt.Sprintf("panic while comparing: %v", p), nil)
		}
	}()
	if !d.primed {
		d.primed = true
		d.next, d.more = d.src.Next()
		return nil
	}
	for i := 0; i < n && d.more; i++ {
		d.records = append(d.records, d.next)
		d.next, d.more = d.src.Next()
	}
	if !d.more {
		d.src = nil
	}
	return nil
}

// Job is a running comparison.
type Job struct {
	ID        string
	StartedAt time.Time

	ctx    context.Context
	cancel context.CancelFunc
	events chan Event
}

// Events returns the event channel. It is closed after the terminal event,
// or without one when the job is cancelled. The job blocks until each
// event is received.
func (j *Job) Events() <-chan Event {
	return j.events
}

// Cancel stops the job at its next batch boundary. Nothing is sent after
// the job notices; a batch already running is not interrupted.
func (j *Job) Cancel() {
	j.cancel()
}

// Wait blocks until the job ends and returns its records. Progress events
// are discarded. A cancelled job reports errors.ErrCancelled; if ctx ends
// first the job is cancelled and ctx's error returned.
func (j *Job) Wait(ctx context.Context) ([]models.Record, error) {
	for {
		select {
		case ev, ok := <-j.events:
			if !ok {
				return nil, errors.NewDiffError("comparison did not finish", errors.ErrCancelled)
			}
			switch data := ev.Data.(type) {
			case DoneData:
				return data.Records, nil
			case ErrorData:
				if data.Err != nil {
					return nil, data.Err
				}
				return nil, errors.NewDiffError(data.Message, nil)
			}
		case <-ctx.Done():
			j.Cancel()
			return nil, ctx.Err()
		}
	}
}

// send delivers ev unless the job has been cancelled.
func (j *Job) send(ev Event) bool {
	if j.ctx.Err() != nil {
		return false
	}
	select {
	case j.events <- ev:
		return true
	case <-j.ctx.Done():
		return false
	}
}
