package pipeline

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/blog-cli/internal/generate"
	"github.com/sells-group/blog-cli/internal/model"
	"github.com/sells-group/blog-cli/internal/store"
)

// --- Fetcher Mock ---

type mockFetcher struct {
	mock.Mock
	kind model.SourceKind
}

func (m *mockFetcher) Kind() model.SourceKind { return m.kind }

func (m *mockFetcher) Fetch(ctx context.Context, identifier string) (*model.ContentItem, error) {
	args := m.Called(ctx, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ContentItem), args.Error(1)
}

// --- Backend Mock ---

type mockBackend struct {
	mock.Mock
	kind generate.Kind
}

func (m *mockBackend) Kind() generate.Kind { return m.kind }

func (m *mockBackend) Generate(ctx context.Context, items []*model.ContentItem) (string, error) {
	args := m.Called(ctx, items)
	return args.String(0), args.Error(1)
}

// --- Persister Mock ---

type mockPersister struct {
	mock.Mock
}

func (m *mockPersister) Write(ctx context.Context, content string) (string, error) {
	args := m.Called(ctx, content)
	return args.String(0), args.Error(1)
}

// --- Store Mock ---

type mockStore struct {
	mock.Mock
}

func (m *mockStore) CreateRun(ctx context.Context, req model.Request) (*model.Run, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Run), args.Error(1)
}

func (m *mockStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	return m.Called(ctx, runID, status).Error(0)
}

func (m *mockStore) CompleteRun(ctx context.Context, runID string, outcome model.RunOutcome) error {
	return m.Called(ctx, runID, outcome).Error(0)
}

func (m *mockStore) FailRun(ctx context.Context, runID string, failure model.RunFailure) error {
	return m.Called(ctx, runID, failure).Error(0)
}

func (m *mockStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Run), args.Error(1)
}

func (m *mockStore) ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Run), args.Error(1)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockStore) Close() error {
	return m.Called().Error(0)
}

var _ store.Store = (*mockStore)(nil)

// delayed returns a Run hook that sleeps before the mocked call returns.
func delayed(d time.Duration) func(mock.Arguments) {
	return func(mock.Arguments) { time.Sleep(d) }
}
