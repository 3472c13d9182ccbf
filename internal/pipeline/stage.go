package pipeline

import (
	"context"
	"time"
)

// Status is the state of one stage within a run.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// Stage is one unit of the pipeline. Run must not modify the State it is
// given and must not cause external side effects before it returns
// successfully.
type Stage interface {
	Name() string
	// Requires lists the fields that must be present for the stage to run.
	Requires() []Field
	// Mandatory stages abort the pipeline when they fail.
	Mandatory() bool
	Run(ctx context.Context, s State) StageResult
}

// StageResult is the outcome of Stage.Run.
type StageResult struct {
	Status Status
	// Delta holds the fields produced by a succeeded stage. Its Errors are
	// non-fatal problems met along the way.
	Delta  State
	Err    error
	Reason string
}

// Succeeded returns a successful result carrying delta.
func Succeeded(delta State) StageResult {
	return StageResult{Status: StatusSucceeded, Delta: delta}
}

// Failed returns a failed result.
func Failed(err error) StageResult {
	return StageResult{Status: StatusFailed, Err: err}
}

// Skipped returns a result for a stage that chose not to run.
func Skipped(reason string) StageResult {
	return StageResult{Status: StatusSkipped, Reason: reason}
}

// StageStatus is the reported status of one stage after a run.
type StageStatus struct {
	Name     string        `json:"name"`
	Status   Status        `json:"status"`
	Error    string        `json:"error,omitempty"`
	Reason   string        `json:"reason,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}
