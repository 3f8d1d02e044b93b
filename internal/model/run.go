package model

import (
	"strings"
	"time"
)

// RunStatus represents the current state of a generation run.
type RunStatus string

const (
	RunStatusIdle       RunStatus = "idle"
	RunStatusFetching   RunStatus = "fetching"
	RunStatusAnnotating RunStatus = "annotating"
	RunStatusGenerating RunStatus = "generating"
	RunStatusPersisted  RunStatus = "persisted"
	RunStatusFailed     RunStatus = "failed"
)

// Terminal reports whether no further transitions are possible.
func (s RunStatus) Terminal() bool {
	return s == RunStatusPersisted || s == RunStatusFailed
}

// FailureReason explains why a run ended in RunStatusFailed.
type FailureReason string

const (
	FailureNoContent   FailureReason = "no_content"
	FailureGeneration  FailureReason = "generation"
	FailurePersistence FailureReason = "persistence"
	FailureCanceled    FailureReason = "canceled"
)

// Request is one blog generation job: the sources to aggregate and the
// backend to generate with.
type Request struct {
	Title      string   `json:"title" yaml:"title"`
	URLs       []string `json:"urls" yaml:"urls"`
	Subreddits []string `json:"subreddits" yaml:"subreddits"`
	Backend    string   `json:"ai_model" yaml:"ai_model"`
}

// HasSources reports whether at least one non-blank identifier is present.
func (r Request) HasSources() bool {
	for _, s := range r.URLs {
		if strings.TrimSpace(s) != "" {
			return true
		}
	}
	for _, s := range r.Subreddits {
		if strings.TrimSpace(s) != "" {
			return true
		}
	}
	return false
}

// Clean returns a copy with identifiers trimmed and blank entries dropped.
func (r Request) Clean() Request {
	out := r
	out.Title = strings.TrimSpace(r.Title)
	out.Backend = strings.ToLower(strings.TrimSpace(r.Backend))
	out.URLs = compact(r.URLs)
	out.Subreddits = compact(r.Subreddits)
	return out
}

func compact(in []string) []string {
	var out []string
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Warning is a recovered, non-fatal problem recorded during a run.
type Warning struct {
	Stage      string     `json:"stage"`
	Source     SourceKind `json:"source,omitempty"`
	Identifier string     `json:"identifier,omitempty"`
	Message    string     `json:"message"`
	Transient  bool       `json:"transient"`
}

// StageStatus represents the outcome of one pipeline stage.
type StageStatus string

const (
	StageStatusComplete StageStatus = "complete"
	StageStatusFailed   StageStatus = "failed"
)

// StageResult holds timing and outcome for one pipeline stage.
type StageResult struct {
	Name     string      `json:"name"`
	Status   StageStatus `json:"status"`
	Duration int64       `json:"duration_ms"`
	Error    string      `json:"error,omitempty"`
}

// Run is the ledger record of a single generation run. Content is never
// stored, only metadata about the run.
type Run struct {
	ID        string        `json:"id"`
	Request   Request       `json:"request"`
	Status    RunStatus     `json:"status"`
	Reason    FailureReason `json:"reason,omitempty"`
	FilePath  string        `json:"file_path,omitempty"`
	ItemCount int           `json:"item_count"`
	Warnings  []Warning     `json:"warnings,omitempty"`
	Error     string        `json:"error,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// RunOutcome is what a successful run reports back to the ledger.
type RunOutcome struct {
	FilePath  string
	ItemCount int
	Warnings  []Warning
}

// RunFailure is what a failed run reports back to the ledger.
type RunFailure struct {
	Reason   FailureReason
	Error    string
	Warnings []Warning
}
