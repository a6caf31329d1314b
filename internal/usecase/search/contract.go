package search

import (
	"github.com/kailas-cloud/storedex/internal/domain/geo"
	"github.com/kailas-cloud/storedex/internal/index"
)

// Index answers text and radius queries over the indexed snapshot.
type Index interface {
	Search(query string, limit int) []index.SearchHit
	Near(center geo.Point, maxDistance float64, limit int) []index.NearHit
}
