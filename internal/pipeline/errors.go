package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/sells-group/blog-cli/internal/generate"
	"github.com/sells-group/blog-cli/internal/model"
)

// Stage names a pipeline step.
type Stage string

const (
	StageValidate Stage = "validate"
	StageFetch    Stage = "fetch"
	StageAnnotate Stage = "annotate"
	StageGenerate Stage = "generate"
	StagePersist  Stage = "persist"
	StagePublish  Stage = "publish"
)

// StageError wraps a fatal error with the stage it came from.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline: %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// NoContentError is returned when every identifier failed to fetch. The
// backend is never called in that case.
type NoContentError struct {
	Warnings []model.Warning
}

func (e *NoContentError) Error() string {
	if len(e.Warnings) == 0 {
		return "no content: no sources given"
	}
	return fmt.Sprintf("no content: all %d sources failed", len(e.Warnings))
}

// InvalidRequestError reports a request rejected before any fetching.
type InvalidRequestError struct {
	Err error
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("invalid request: %v", e.Err)
}

func (e *InvalidRequestError) Unwrap() error { return e.Err }

// Reason classifies a fatal pipeline error for the run ledger. Anything
// unrecognized is a persistence failure.
func Reason(err error) model.FailureReason {
	var (
		noContent *NoContentError
		genErr    *generate.GenerationError
	)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return model.FailureCanceled
	case errors.As(err, &noContent):
		return model.FailureNoContent
	case errors.As(err, &genErr):
		return model.FailureGeneration
	}
	return model.FailurePersistence
}
