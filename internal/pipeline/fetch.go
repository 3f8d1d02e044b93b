package pipeline

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/blog-cli/internal/model"
	"github.com/sells-group/blog-cli/internal/resilience"
	"github.com/sells-group/blog-cli/internal/source"
)

var errNoFetcher = eris.New("no fetcher configured")

type fetchJob struct {
	fetcher    source.Fetcher
	kind       model.SourceKind
	identifier string
}

// fetchAll fetches web identifiers then social identifiers. Results land in
// pre-assigned slots so the merged list keeps submission order no matter
// which fetch finishes first. Failures become warnings.
func (p *Pipeline) fetchAll(ctx context.Context, req model.Request) ([]*model.ContentItem, []model.Warning) {
	jobs := make([]fetchJob, 0, len(req.URLs)+len(req.Subreddits))
	for _, u := range req.URLs {
		jobs = append(jobs, fetchJob{fetcher: p.web, kind: model.SourceWeb, identifier: u})
	}
	for _, s := range req.Subreddits {
		jobs = append(jobs, fetchJob{fetcher: p.social, kind: model.SourceSocial, identifier: s})
	}

	items := make([]*model.ContentItem, len(jobs))
	errs := make([]*source.FetchError, len(jobs))

	if p.concurrency <= 1 {
		for i, job := range jobs {
			items[i], errs[i] = fetchOne(ctx, job)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(p.concurrency)
		for i, job := range jobs {
			g.Go(func() error {
				items[i], errs[i] = fetchOne(ctx, job)
				return nil
			})
		}
		_ = g.Wait()
	}

	var (
		out      []*model.ContentItem
		warnings []model.Warning
	)
	for i, job := range jobs {
		if fe := errs[i]; fe != nil {
			w := fe.Warning()
			warnings = append(warnings, w)
			p.metrics.observeFetch(job.kind, fe, w.Transient)
			zap.L().Warn("pipeline: fetch failed, skipping",
				zap.String("source", string(job.kind)),
				zap.String("identifier", job.identifier),
				zap.String("class", string(resilience.Classify(fe.Err))),
				zap.Error(fe.Err),
			)
			continue
		}
		p.metrics.observeFetch(job.kind, nil, false)
		out = append(out, items[i])
	}
	return out, warnings
}

func fetchOne(ctx context.Context, job fetchJob) (*model.ContentItem, *source.FetchError) {
	fail := func(err error) *source.FetchError {
		var fe *source.FetchError
		if errors.As(err, &fe) {
			return fe
		}
		return &source.FetchError{Kind: job.kind, Identifier: job.identifier, Err: err}
	}

	if job.fetcher == nil {
		return nil, fail(errNoFetcher)
	}
	if err := ctx.Err(); err != nil {
		return nil, fail(err)
	}
	item, err := job.fetcher.Fetch(ctx, job.identifier)
	if err != nil {
		return nil, fail(err)
	}
	if item == nil {
		return nil, fail(source.ErrNotFound)
	}
	return item, nil
}
