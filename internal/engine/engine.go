// Package engine wires parsing, preparation, diffing and scheduling into a
// single comparison request.
package engine

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"

	"github.com/mcncl/jsondelta/internal/canon"
	"github.com/mcncl/jsondelta/internal/differ"
	"github.com/mcncl/jsondelta/internal/errors"
	"github.com/mcncl/jsondelta/internal/logging"
	"github.com/mcncl/jsondelta/internal/models"
	"github.com/mcncl/jsondelta/internal/parser"
	"github.com/mcncl/jsondelta/internal/resolver"
	"github.com/mcncl/jsondelta/internal/scheduler"
)

// Request is one comparison: two raw documents and the policies to apply.
type Request struct {
	Left  []byte
	Right []byte

	// Ignore names object fields dropped at every depth.
	Ignore []string
	// Nested names object fields whose string values hold JSON documents.
	Nested []string
	// UniqueKeys aligns arrays by key field instead of position.
	UniqueKeys *resolver.Table
}

// Options tune document preparation.
type Options struct {
	UnicodeNFC bool
	Logger     *slog.Logger
}

// Prepared holds the canonical trees of a request and a Walker over them.
type Prepared struct {
	Left   *models.Value
	Right  *models.Value
	Walker *differ.Walker
}

// Prepare parses both documents, expands nested JSON, drops ignored fields
// and canonicalizes the result. Every call builds its own key sets and
// unique key table, so requests never share state.
func Prepare(req Request, opts Options) (*Prepared, error) {
	logger := logging.OrDiscard(opts.Logger)
	ignore := canon.NewKeySet(req.Ignore...)
	nested := canon.NewKeySet(req.Nested...)
	var copts []canon.Option
	if opts.UnicodeNFC {
		copts = append(copts, canon.WithUnicodeNFC())
	}

	left, err := prepareSide("left", req.Left, ignore, nested, copts, logger)
	if err != nil {
		return nil, err
	}
	right, err := prepareSide("right", req.Right, ignore, nested, copts, logger)
	if err != nil {
		return nil, err
	}

	walkerOpts := []differ.Option{differ.WithIgnore(ignore.Names()...)}
	if req.UniqueKeys.Len() > 0 {
		walkerOpts = append(walkerOpts, differ.WithResolver(req.UniqueKeys.Clone()))
	}

	return &Prepared{
		Left:   left,
		Right:  right,
		Walker: differ.New(left, right, walkerOpts...),
	}, nil
}

func prepareSide(side string, data []byte, ignore, nested canon.KeySet, copts []canon.Option, logger *slog.Logger) (*models.Value, error) {
	v, err := parser.ParseBytes(data)
	if err != nil {
		msg, cause := err.Error(), err
		var appErr *errors.AppError
		if stderrors.As(err, &appErr) {
			msg, cause = appErr.Message, appErr.Err
		}
		return nil, errors.NewParsingError(fmt.Sprintf("%s document: %s", side, msg), cause)
	}

	v = canon.Expand(v, nested, logger.With("side", side))
	v = canon.Filter(v, ignore)
	return canon.Canonicalize(v, copts...), nil
}

// Config configures an Engine.
type Config struct {
	Batch      scheduler.Config
	UnicodeNFC bool
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{Batch: scheduler.DefaultConfig()}
}

// Engine runs comparison requests as scheduled jobs.
type Engine struct {
	config    Config
	logger    *slog.Logger
	scheduler *scheduler.Scheduler
}

// New creates an Engine. A nil logger discards output.
func New(config Config, logger *slog.Logger) *Engine {
	logger = logging.OrDiscard(logger)
	return &Engine{
		config:    config,
		logger:    logger,
		scheduler: scheduler.New(config.Batch, logger),
	}
}

// Scheduler returns the scheduler running the engine's jobs.
func (e *Engine) Scheduler() *scheduler.Scheduler {
	return e.scheduler
}

// Start runs req as a background job. Parse failures arrive as the job's
// error event.
func (e *Engine) Start(ctx context.Context, req Request) *scheduler.Job {
	return e.start(ctx, req, nil)
}

func (e *Engine) start(ctx context.Context, req Request, prepared **Prepared) *scheduler.Job {
	return e.scheduler.Start(ctx, func(ctx context.Context) (scheduler.Source, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p, err := Prepare(req, Options{UnicodeNFC: e.config.UnicodeNFC, Logger: e.logger})
		if err != nil {
			return nil, err
		}
		if prepared != nil {
			*prepared = p
		}
		return p.Walker, nil
	})
}

// Result is the outcome of a finished comparison.
type Result struct {
	Records []models.Record `json:"records"`
	Stats   models.Stats    `json:"stats"`
}

// Compare runs req and waits for the result.
func (e *Engine) Compare(ctx context.Context, req Request) (*Result, error) {
	var prepared *Prepared
	job := e.start(ctx, req, &prepared)
	records, err := job.Wait(ctx)
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		err = errors.NewDiffError("comparison cancelled", fmt.Errorf("%w: %w", errors.ErrCancelled, err))
	}
	if err != nil {
		return nil, err
	}
	res := &Result{Records: records}
	if prepared != nil {
		res.Stats = models.NewStats(records, prepared.Left, prepared.Right)
	} else {
		res.Stats = models.NewStats(records, nil, nil)
	}
	return res, nil
}
