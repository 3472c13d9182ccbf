// Package pipeline runs the extraction stages for one document in order,
// isolating stage failures and collecting their errors.
//
// A stage runs only when every field it requires is present; otherwise it is
// skipped. A failed stage records its error and the run continues, unless
// the stage is mandatory, in which case the run is aborted. Cancelling the
// context between stages also aborts the run and leaves the remaining
// stages, including storage, unrun.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/matsen/citegraph/internal/logging"
	"github.com/matsen/citegraph/internal/metadata"
	"github.com/matsen/citegraph/internal/metrics"
)

// RunState is the terminal state of a run.
type RunState string

const (
	RunCompleted RunState = "completed"
	RunAborted   RunState = "aborted"
)

// Result is the outcome of one run. Callers must inspect Stages and Errors;
// a returned Result does not imply success.
type Result struct {
	RunID  string   `json:"run_id"`
	Path   string   `json:"path"`
	Status RunState `json:"status"`

	// Metadata is the consolidated record. When consolidation never ran it is a
	// partial record carrying the path and the errors.
	Metadata *metadata.DocumentMetadata `json:"metadata,omitempty"`
	Stages   []StageStatus              `json:"stages"`
	Errors   []error                    `json:"-"`

	State State `json:"-"`
}

// ErrorStrings renders Errors in order.
func (r Result) ErrorStrings() []string {
	out := make([]string, len(r.Errors))
	for i, err := range r.Errors {
		out[i] = err.Error()
	}
	return out
}

// Coordinator runs a fixed list of stages.
type Coordinator struct {
	stages  []Stage
	logger  logging.Logger
	metrics *metrics.Metrics
	newID   func() string
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// WithIDFunc overrides run ID generation.
func WithIDFunc(f func() string) Option {
	return func(c *Coordinator) { c.newID = f }
}

// New returns a coordinator for stages, run in the given order.
func New(stages []Stage, opts ...Option) *Coordinator {
	c := &Coordinator{
		stages: stages,
		logger: logging.Nop(),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run processes one document.
func (c *Coordinator) Run(ctx context.Context, path string) Result {
	res := Result{
		RunID:  c.newID(),
		Path:   path,
		Status: RunCompleted,
		Stages: make([]StageStatus, len(c.stages)),
	}
	log := c.logger.With(logging.String("run_id", res.RunID), logging.String("path", path))

	for i, st := range c.stages {
		res.Stages[i] = StageStatus{Name: st.Name(), Status: StatusPending}
	}

	state := State{Path: path}
	for i, st := range c.stages {
		status := &res.Stages[i]

		if res.Status == RunAborted {
			status.Status = StatusSkipped
			status.Reason = "pipeline aborted"
			continue
		}
		if err := ctx.Err(); err != nil {
			res.Status = RunAborted
			state = state.withError(fmt.Errorf("%w before %s: %v", ErrAborted, st.Name(), err))
			status.Status = StatusSkipped
			status.Reason = "pipeline aborted"
			log.Warn("pipeline cancelled", logging.String("stage", st.Name()), logging.Err(err))
			continue
		}
		if missing := state.Missing(st.Requires()); len(missing) > 0 {
			status.Status = StatusSkipped
			status.Reason = "missing input: " + joinFields(missing)
			c.metrics.RecordStage(st.Name(), string(StatusSkipped), 0)
			log.Debug("stage skipped", logging.String("stage", st.Name()), logging.String("reason", status.Reason))
			continue
		}

		status.Status = StatusRunning
		start := time.Now()
		out := st.Run(ctx, state)
		status.Duration = time.Since(start)

		switch out.Status {
		case StatusSucceeded:
			state = state.Merge(out.Delta).withStep(st.Name())
			status.Status = StatusSucceeded
		case StatusSkipped:
			status.Status = StatusSkipped
			status.Reason = out.Reason
		default:
			status.Status = StatusFailed
			err := out.Err
			if err == nil {
				err = errors.New("stage reported failure without an error")
			}
			if !IsExtractionError(err) {
				err = &StageError{Stage: st.Name(), Err: err}
			}
			status.Error = err.Error()
			state = state.withError(err)
			if st.Mandatory() {
				res.Status = RunAborted
			}
		}

		c.metrics.RecordStage(st.Name(), string(status.Status), status.Duration)
		fields := []logging.Field{
			logging.String("stage", st.Name()),
			logging.String("status", string(status.Status)),
			logging.Duration("duration", status.Duration),
		}
		if status.Status == StatusFailed {
			log.Warn("stage failed", append(fields, logging.String("error", status.Error))...)
		} else {
			log.Info("stage finished", fields...)
		}
	}

	res.State = state
	res.Metadata = state.Record
	if res.Metadata == nil {
		res.Metadata = partialRecord(state)
	}
	res.Errors = state.Errors
	c.metrics.RecordPipeline(string(res.Status))
	log.Info("pipeline finished",
		logging.String("status", string(res.Status)),
		logging.Int("errors", len(res.Errors)),
	)
	return res
}

// partialRecord builds the record returned when consolidation never ran, so
// callers always get the path and the errors that stopped the run.
func partialRecord(s State) *metadata.DocumentMetadata {
	var fingerprint string
	if s.Text != nil {
		fingerprint = s.Text.Fingerprint
	}
	doc := metadata.New(s.Path, fingerprint)
	doc.Errors = append(doc.Errors, s.ErrorStrings()...)
	doc.Processing.StepsCompleted = append(doc.Processing.StepsCompleted, s.Steps...)
	for k, v := range s.Methods {
		doc.Processing.ExtractionMethods[k] = v
	}
	doc.NeedsReview = true
	return &doc
}

// RunBatch processes paths with at most concurrency pipelines in flight.
// Each document is independent; a failing document never stops the others.
// Results are in path order.
func (c *Coordinator) RunBatch(ctx context.Context, paths []string, concurrency int) []Result {
	if concurrency < 1 {
		concurrency = 1
	}
	results := make([]Result, len(paths))

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			results[i] = c.Run(ctx, p)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func joinFields(fs []Field) string {
	names := make([]string, len(fs))
	for i, f := range fs {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}
