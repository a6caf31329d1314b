package geo

import (
	"context"
	"errors"
	"reflect"
	"strconv"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/kailas-cloud/storedex/internal/domain"
	"github.com/kailas-cloud/storedex/internal/domain/entry"
	domaingeo "github.com/kailas-cloud/storedex/internal/domain/geo"
)

func mkEntry(id string, p *domaingeo.Point) entry.Entry {
	return entry.Reconstruct(id, id, id, "", nil, entry.Location{Coordinates: p}, "", "u", time.Time{})
}

func pt(lng, lat float64) *domaingeo.Point { return &domaingeo.Point{Lng: lng, Lat: lat} }

func indexAll(t testing.TB, entries ...entry.Entry) *Index {
	t.Helper()
	ix := New()
	for _, e := range entries {
		s, err := ix.Stage(context.Background(), e)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		ix.Apply(s)
	}
	return ix
}

func ids(hits []Hit) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.ID
	}
	return out
}

func TestNear_RadiusBoundary(t *testing.T) {
	// (0, 0.1) is ~11.1km from the origin.
	ix := indexAll(t, mkEntry("a", pt(0, 0.1)))
	origin := domaingeo.Point{}

	if hits := ix.Near(origin, 10_000, 10); len(hits) != 0 {
		t.Fatalf("Near(10km) = %v, want empty", hits)
	}
	if got := ids(ix.Near(origin, 12_000, 10)); !reflect.DeepEqual(got, []string{"a"}) {
		t.Fatalf("Near(12km) = %v", got)
	}
}

func TestNear_SortedByDistance(t *testing.T) {
	ix := indexAll(t,
		mkEntry("far", pt(0, 0.05)),
		mkEntry("near", pt(0, 0.01)),
		mkEntry("mid", pt(0.03, 0)),
	)
	got := ids(ix.Near(domaingeo.Point{}, 10_000, 10))
	if !reflect.DeepEqual(got, []string{"near", "mid", "far"}) {
		t.Fatalf("Near() = %v", got)
	}
	if got := ids(ix.Near(domaingeo.Point{}, 10_000, 2)); len(got) != 2 {
		t.Fatalf("limit not applied: %v", got)
	}
}

func TestNear_TiesByID(t *testing.T) {
	ix := indexAll(t, mkEntry("b", pt(0, 0.01)), mkEntry("a", pt(0, 0.01)))
	if got := ids(ix.Near(domaingeo.Point{}, 10_000, 10)); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("Near() = %v", got)
	}
}

func TestStage_NoCoordinatesIsNeverIndexed(t *testing.T) {
	ix := indexAll(t, mkEntry("a", pt(0, 0)))
	ix.Apply(mustStage(t, ix, mkEntry("a", nil)))
	ix.Apply(mustStage(t, ix, mkEntry("b", nil)))

	if ix.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", ix.Len())
	}
}

func mustStage(t *testing.T, ix *Index, e entry.Entry) Staged {
	t.Helper()
	s, err := ix.Stage(context.Background(), e)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return s
}

func TestStage_InvalidCoordinates(t *testing.T) {
	_, err := New().Stage(context.Background(), mkEntry("a", pt(181, 0)))
	if !errors.Is(err, domain.ErrInvalidCoordinates) {
		t.Fatalf("expected ErrInvalidCoordinates, got %v", err)
	}
}

func TestApply_Idempotent(t *testing.T) {
	e := mkEntry("a", pt(0, 0.01))
	ix := indexAll(t, e, mkEntry("b", pt(0.02, 0)))
	before := ix.Near(domaingeo.Point{}, 10_000, 10)
	ix.Apply(mustStage(t, ix, e))
	if after := ix.Near(domaingeo.Point{}, 10_000, 10); !reflect.DeepEqual(before, after) {
		t.Fatalf("re-indexing changed results: %v vs %v", before, after)
	}
}

func TestNear_NeverExceedsRadius(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		center := domaingeo.Point{
			Lng: rapid.Float64Range(-180, 180).Draw(t, "lng"),
			Lat: rapid.Float64Range(-85, 85).Draw(t, "lat"),
		}
		n := rapid.IntRange(1, 30).Draw(t, "n")
		ix := New()
		for i := 0; i < n; i++ {
			lng := center.Lng + rapid.Float64Range(-0.3, 0.3).Draw(t, "dlng")
			if lng > 180 {
				lng -= 360
			}
			if lng < -180 {
				lng += 360
			}
			p := domaingeo.Point{Lng: lng, Lat: center.Lat + rapid.Float64Range(-0.3, 0.3).Draw(t, "dlat")}
			ix.Apply(Staged{id: strconv.Itoa(i), point: p})
		}
		radius := rapid.Float64Range(0, 40_000).Draw(t, "radius")

		hits := ix.Near(center, radius, n)
		want := 0
		for _, p := range ix.points {
			if center.DistanceTo(p) <= radius {
				want++
			}
		}
		if len(hits) != want {
			t.Fatalf("Near() returned %d hits, brute force found %d", len(hits), want)
		}
		for i, h := range hits {
			if h.Distance > radius {
				t.Fatalf("hit %s at %.1fm exceeds radius %.1fm", h.ID, h.Distance, radius)
			}
			if i > 0 && hits[i-1].Distance > h.Distance {
				t.Fatalf("hits not sorted: %v", hits)
			}
		}
	})
}

func BenchmarkNear(b *testing.B) {
	ix := New()
	for i := 0; i < 10_000; i++ {
		lng := float64(i%100) * 0.01
		lat := float64(i/100) * 0.01
		ix.Apply(Staged{id: strconv.Itoa(i), point: domaingeo.Point{Lng: lng, Lat: lat}})
	}
	center := domaingeo.Point{Lng: 0.5, Lat: 0.5}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ix.Near(center, 10_000, 10)
	}
}
