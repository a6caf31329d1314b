package entry

import (
	"context"
	"testing"
	"time"

	"github.com/kailas-cloud/storedex/internal/db/memory"
	domentry "github.com/kailas-cloud/storedex/internal/domain/entry"
	"github.com/kailas-cloud/storedex/internal/domain/geo"
)

// mockStore wraps an in-memory store and lets tests override single calls.
type mockStore struct {
	*memory.Store
	setFn  func(ctx context.Context, key string, value []byte) error
	mgetFn func(ctx context.Context, keys []string) ([][]byte, error)
	scanFn func(ctx context.Context, pattern string) ([]string, error)
	delFn  func(ctx context.Context, key string) error
}

func newMockStore() *mockStore {
	return &mockStore{Store: memory.NewStore()}
}

func (m *mockStore) Set(ctx context.Context, key string, value []byte) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value)
	}
	return m.Store.Set(ctx, key, value) //nolint:wrapcheck // test double
}

func (m *mockStore) MGet(ctx context.Context, keys []string) ([][]byte, error) {
	if m.mgetFn != nil {
		return m.mgetFn(ctx, keys)
	}
	return m.Store.MGet(ctx, keys) //nolint:wrapcheck // test double
}

func (m *mockStore) Scan(ctx context.Context, pattern string) ([]string, error) {
	if m.scanFn != nil {
		return m.scanFn(ctx, pattern)
	}
	return m.Store.Scan(ctx, pattern) //nolint:wrapcheck // test double
}

func (m *mockStore) Del(ctx context.Context, key string) error {
	if m.delFn != nil {
		return m.delFn(ctx, key)
	}
	return m.Store.Del(ctx, key) //nolint:wrapcheck // test double
}

func testEntry(t *testing.T, id, slugValue, name string) domentry.Entry {
	t.Helper()
	e, err := domentry.New(id, slugValue, domentry.Draft{
		Name:        name,
		Description: "desc",
		Tags:        []string{"coffee"},
		Address:     "1 Main St",
		Coordinates: &geo.Point{Lng: 2.35, Lat: 48.85},
		AuthorID:    "user-1",
	}, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return e
}
