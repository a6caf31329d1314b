// Package geo implements the in-memory radius index over entry coordinates.
//
// Index is not safe for concurrent use; the owning coordinator serializes Apply
// against readers.
package geo

import (
	"context"
	"fmt"
	"sort"

	"github.com/kailas-cloud/storedex/internal/domain"
	"github.com/kailas-cloud/storedex/internal/domain/entry"
	domaingeo "github.com/kailas-cloud/storedex/internal/domain/geo"
)

// Hit is a radius query match.
type Hit struct {
	ID       string
	Distance float64 // meters
}

// Staged is the geo state of one entry, ready to be applied.
// An entry without coordinates stages as a removal.
type Staged struct {
	id     string
	point  domaingeo.Point
	remove bool
}

// ID returns the staged entry id.
func (s Staged) ID() string { return s.id }

// Index stores one point per entry id.
type Index struct {
	points map[string]domaingeo.Point
}

// New creates an empty geo index.
func New() *Index {
	return &Index{points: make(map[string]domaingeo.Point)}
}

// Stage validates the coordinates of e. Out-of-range coordinates fail with
// domain.ErrInvalidCoordinates.
func (ix *Index) Stage(ctx context.Context, e entry.Entry) (Staged, error) {
	if err := ctx.Err(); err != nil {
		return Staged{}, err //nolint:wrapcheck // context errors are returned as is
	}
	p, ok := e.Coordinates()
	if !ok {
		return Staged{id: e.ID(), remove: true}, nil
	}
	if !p.Valid() {
		return Staged{}, fmt.Errorf("entry %s lng=%f lat=%f: %w", e.ID(), p.Lng, p.Lat, domain.ErrInvalidCoordinates)
	}
	return Staged{id: e.ID(), point: p}, nil
}

// Apply replaces any prior point for the staged entry id.
func (ix *Index) Apply(s Staged) {
	if s.remove {
		delete(ix.points, s.id)
		return
	}
	ix.points[s.id] = s.point
}

// Remove drops the entry from the index.
func (ix *Index) Remove(id string) { delete(ix.points, id) }

// Len returns the number of indexed points.
func (ix *Index) Len() int { return len(ix.points) }

// Near returns entries within maxDistance meters of center, nearest first,
// ties broken by id, truncated to limit.
func (ix *Index) Near(center domaingeo.Point, maxDistance float64, limit int) []Hit {
	if limit <= 0 || maxDistance < 0 {
		return nil
	}

	box := domaingeo.BoundingBox(center, maxDistance)
	var hits []Hit
	for id, p := range ix.points {
		if !box.Contains(p) {
			continue
		}
		if d := center.DistanceTo(p); d <= maxDistance {
			hits = append(hits, Hit{ID: id, Distance: d})
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}
