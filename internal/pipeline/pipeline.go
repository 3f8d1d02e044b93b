// Package pipeline sequences a generation run: fetch, annotate, generate,
// persist, then optional publication.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/blog-cli/internal/annotate"
	"github.com/sells-group/blog-cli/internal/generate"
	"github.com/sells-group/blog-cli/internal/model"
	"github.com/sells-group/blog-cli/internal/publish"
	"github.com/sells-group/blog-cli/internal/source"
	"github.com/sells-group/blog-cli/internal/store"
)

// Persister writes a finished post and returns where it went.
type Persister interface {
	Write(ctx context.Context, content string) (string, error)
}

// Result is the outcome of one run. On failure it still carries the run ID,
// warnings, state trail and stage timings gathered so far.
type Result struct {
	RunID    string
	Title    string
	Backend  generate.Kind
	Content  string
	FilePath string
	Items    int
	Warnings []model.Warning
	Reason   model.FailureReason
	States   []model.RunStatus
	Stages   []model.StageResult
}

// Status returns the last state the run reached.
func (r *Result) Status() model.RunStatus {
	if len(r.States) == 0 {
		return model.RunStatusIdle
	}
	return r.States[len(r.States)-1]
}

// Pipeline runs generation requests. It is safe for concurrent use; each
// call to Run owns its content.
type Pipeline struct {
	web         source.Fetcher
	social      source.Fetcher
	annotator   *annotate.Annotator
	backends    *generate.Registry
	writer      Persister
	store       store.Store
	publisher   *publish.Publisher
	metrics     *Metrics
	concurrency int
}

// Option configures optional Pipeline collaborators.
type Option func(*Pipeline)

// WithStore records runs in the ledger.
func WithStore(s store.Store) Option {
	return func(p *Pipeline) { p.store = s }
}

// WithPublisher publishes persisted posts.
func WithPublisher(pub *publish.Publisher) Option {
	return func(p *Pipeline) { p.publisher = pub }
}

// WithMetrics records Prometheus metrics.
func WithMetrics(m *Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithConcurrency bounds concurrent fetches. Values below 2 fetch
// sequentially.
func WithConcurrency(n int) Option {
	return func(p *Pipeline) { p.concurrency = n }
}

// New creates a Pipeline. A nil annotator falls back to source alt text.
func New(web, social source.Fetcher, ann *annotate.Annotator, backends *generate.Registry, writer Persister, opts ...Option) *Pipeline {
	if ann == nil {
		ann = annotate.New(nil)
	}
	p := &Pipeline{
		web:         web,
		social:      social,
		annotator:   ann,
		backends:    backends,
		writer:      writer,
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Backends lists the configured generation backends.
func (p *Pipeline) Backends() []generate.Kind {
	return p.backends.Kinds()
}

// Run executes one request. The backend is resolved before anything is
// fetched. Fatal errors are returned as *StageError.
func (p *Pipeline) Run(ctx context.Context, req model.Request) (*Result, error) {
	req = req.Clean()
	if req.Backend == "" {
		req.Backend = string(generate.KindOpenAI)
	}
	res := &Result{Title: req.Title, States: []model.RunStatus{model.RunStatusIdle}}

	backend, err := p.backends.Resolve(req.Backend)
	if err != nil {
		return res, &StageError{Stage: StageValidate, Err: &InvalidRequestError{Err: err}}
	}
	res.Backend = backend.Kind()

	defer p.metrics.runStarted()()
	x := &execution{p: p, res: res, start: time.Now()}
	x.open(ctx, req)
	x.log.Info("pipeline: starting run",
		zap.Int("urls", len(req.URLs)),
		zap.Int("subreddits", len(req.Subreddits)),
	)

	// Fetching
	x.transition(ctx, model.RunStatusFetching)
	var items []*model.ContentItem
	err = x.track(StageFetch, func() error {
		var warnings []model.Warning
		items, warnings = p.fetchAll(ctx, req)
		res.Warnings = append(res.Warnings, warnings...)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if len(items) == 0 {
			return &NoContentError{Warnings: append([]model.Warning(nil), warnings...)}
		}
		return nil
	})
	if err != nil {
		return res, x.fail(ctx, StageFetch, err)
	}
	res.Items = len(items)

	// Annotating
	x.transition(ctx, model.RunStatusAnnotating)
	_ = x.track(StageAnnotate, func() error {
		st := p.annotator.AnnotateWithStats(ctx, items)
		p.metrics.observeAnnotate(p.annotator.Mode(), st)
		x.log.Debug("pipeline: images annotated",
			zap.Int("images", model.ImageCount(items)),
			zap.Int("described", st.Described),
			zap.Int("fallback", st.Fallback),
		)
		return nil
	})
	if err := ctx.Err(); err != nil {
		return res, x.fail(ctx, StageAnnotate, err)
	}

	// Generating
	x.transition(ctx, model.RunStatusGenerating)
	var content string
	err = x.track(StageGenerate, func() error {
		var genErr error
		content, genErr = backend.Generate(ctx, items)
		if genErr == nil {
			return nil
		}
		var ge *generate.GenerationError
		if !errors.As(genErr, &ge) {
			genErr = &generate.GenerationError{Backend: backend.Kind(), Err: genErr}
		}
		return genErr
	})
	if err != nil {
		return res, x.fail(ctx, StageGenerate, err)
	}

	// Persisting
	var path string
	err = x.track(StagePersist, func() error {
		var writeErr error
		path, writeErr = p.writer.Write(ctx, content)
		return writeErr
	})
	if err != nil {
		return res, x.fail(ctx, StagePersist, err)
	}
	res.Content = content
	res.FilePath = path
	res.States = append(res.States, model.RunStatusPersisted)

	if p.publisher != nil {
		_ = x.track(StagePublish, func() error {
			warnings := p.publisher.Publish(ctx, publish.Artifact{
				RunID:   res.RunID,
				Title:   res.Title,
				Path:    path,
				Content: content,
			})
			p.metrics.observePublish(warnings)
			res.Warnings = append(res.Warnings, warnings...)
			return nil
		})
	}

	x.complete(ctx)
	return res, nil
}

// execution is the bookkeeping for a single Run.
type execution struct {
	p      *Pipeline
	res    *Result
	log    *zap.Logger
	start  time.Time
	ledger bool
}

// open assigns the run ID, creating the ledger record when a store is set.
func (x *execution) open(ctx context.Context, req model.Request) {
	x.res.RunID = uuid.NewString()
	if x.p.store != nil {
		run, err := x.p.store.CreateRun(ctx, req)
		if err != nil {
			zap.L().Warn("pipeline: failed to create run record", zap.Error(err))
		} else {
			x.res.RunID = run.ID
			x.ledger = true
		}
	}
	x.log = zap.L().With(
		zap.String("run_id", x.res.RunID),
		zap.String("title", x.res.Title),
		zap.String("backend", string(x.res.Backend)),
	)
}

func (x *execution) transition(ctx context.Context, status model.RunStatus) {
	x.res.States = append(x.res.States, status)
	if !x.ledger {
		return
	}
	if err := x.p.store.UpdateRunStatus(context.WithoutCancel(ctx), x.res.RunID, status); err != nil {
		x.log.Warn("pipeline: failed to update status", zap.String("status", string(status)), zap.Error(err))
	}
}

func (x *execution) track(stage Stage, fn func() error) error {
	start := time.Now()
	err := fn()
	d := time.Since(start)
	x.p.metrics.observeStage(stage, d)

	sr := model.StageResult{
		Name:     string(stage),
		Status:   model.StageStatusComplete,
		Duration: d.Milliseconds(),
	}
	if err != nil {
		sr.Status = model.StageStatusFailed
		sr.Error = err.Error()
		x.log.Warn("pipeline: stage failed",
			zap.String("stage", string(stage)),
			zap.Int64("duration_ms", sr.Duration),
			zap.Error(err),
		)
	} else {
		x.log.Info("pipeline: stage complete",
			zap.String("stage", string(stage)),
			zap.Int64("duration_ms", sr.Duration),
		)
	}
	x.res.Stages = append(x.res.Stages, sr)
	return err
}

func (x *execution) fail(ctx context.Context, stage Stage, err error) error {
	reason := Reason(err)
	x.res.Reason = reason
	x.res.States = append(x.res.States, model.RunStatusFailed)
	x.p.metrics.observeRun(x.res.Backend, model.RunStatusFailed, reason)

	if x.ledger {
		ferr := x.p.store.FailRun(context.WithoutCancel(ctx), x.res.RunID, model.RunFailure{
			Reason:   reason,
			Error:    err.Error(),
			Warnings: x.res.Warnings,
		})
		if ferr != nil {
			x.log.Warn("pipeline: failed to record failure", zap.Error(ferr))
		}
	}

	x.log.Error("pipeline: run failed",
		zap.String("stage", string(stage)),
		zap.String("reason", string(reason)),
		zap.Int("warnings", len(x.res.Warnings)),
		zap.Int64("duration_ms", time.Since(x.start).Milliseconds()),
		zap.Error(err),
	)
	return &StageError{Stage: stage, Err: err}
}

func (x *execution) complete(ctx context.Context) {
	x.p.metrics.observeRun(x.res.Backend, model.RunStatusPersisted, "")

	if x.ledger {
		err := x.p.store.CompleteRun(context.WithoutCancel(ctx), x.res.RunID, model.RunOutcome{
			FilePath:  x.res.FilePath,
			ItemCount: x.res.Items,
			Warnings:  x.res.Warnings,
		})
		if err != nil {
			x.log.Warn("pipeline: failed to complete run record", zap.Error(err))
		}
	}

	x.log.Info("pipeline: run complete",
		zap.String("file", x.res.FilePath),
		zap.Int("items", x.res.Items),
		zap.Int("warnings", len(x.res.Warnings)),
		zap.Int64("duration_ms", time.Since(x.start).Milliseconds()),
	)
}
