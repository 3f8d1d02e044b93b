// Package publish sends persisted artifacts to optional external sinks.
// Publication is best-effort: failures become run warnings.
package publish

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/blog-cli/internal/model"
)

// Artifact is a persisted blog post ready for publication.
type Artifact struct {
	RunID   string
	Title   string
	Path    string
	Content string
}

// Sink is a publication destination.
type Sink interface {
	Name() string
	Publish(ctx context.Context, a Artifact) error
}

// Publisher fans an artifact out to every configured sink in order.
type Publisher struct {
	sinks []Sink
}

// NewPublisher creates a Publisher. Nil sinks are ignored.
func NewPublisher(sinks ...Sink) *Publisher {
	p := &Publisher{}
	for _, s := range sinks {
		if s != nil {
			p.sinks = append(p.sinks, s)
		}
	}
	return p
}

// Sinks returns the names of configured sinks.
func (p *Publisher) Sinks() []string {
	names := make([]string, len(p.sinks))
	for i, s := range p.sinks {
		names[i] = s.Name()
	}
	return names
}

// Publish sends a to every sink and returns one warning per failed sink.
func (p *Publisher) Publish(ctx context.Context, a Artifact) []model.Warning {
	var warnings []model.Warning
	for _, s := range p.sinks {
		start := time.Now()
		err := s.Publish(ctx, a)
		log := zap.L().With(
			zap.String("sink", s.Name()),
			zap.String("run_id", a.RunID),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		if err != nil {
			log.Warn("publish: sink failed", zap.Error(err))
			warnings = append(warnings, model.Warning{
				Stage:      "publish",
				Identifier: s.Name(),
				Message:    err.Error(),
			})
			continue
		}
		log.Info("publish: sink complete")
	}
	return warnings
}
