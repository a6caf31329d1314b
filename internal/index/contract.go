package index

import (
	"context"

	"github.com/kailas-cloud/storedex/internal/domain/entry"
	domaingeo "github.com/kailas-cloud/storedex/internal/domain/geo"
	"github.com/kailas-cloud/storedex/internal/index/geo"
	"github.com/kailas-cloud/storedex/internal/index/text"
)

// TextIndex is the relevance index. Stage must not mutate index state.
type TextIndex interface {
	Stage(ctx context.Context, e entry.Entry) (text.Staged, error)
	Apply(s text.Staged)
	Search(query string, limit int) []text.Hit
	Len() int
}

// GeoIndex is the radius index. Stage must not mutate index state.
type GeoIndex interface {
	Stage(ctx context.Context, e entry.Entry) (geo.Staged, error)
	Apply(s geo.Staged)
	Near(center domaingeo.Point, maxDistance float64, limit int) []geo.Hit
	Len() int
}

// Source lists every persisted entry for a rebuild.
type Source interface {
	All(ctx context.Context) ([]entry.Entry, error)
}
