package entry

import (
	"encoding/json"
	"fmt"
	"time"

	domentry "github.com/kailas-cloud/storedex/internal/domain/entry"
	"github.com/kailas-cloud/storedex/internal/domain/geo"
)

// entryJSON is the stored representation. Location follows GeoJSON point order [lng, lat].
type entryJSON struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Slug        string       `json:"slug"`
	Description string       `json:"description,omitempty"`
	Tags        []string     `json:"tags,omitempty"`
	Location    locationJSON `json:"location"`
	Photo       string       `json:"photo,omitempty"`
	AuthorID    string       `json:"author_id"`
	CreatedAt   time.Time    `json:"created_at"`
}

type locationJSON struct {
	Type        string    `json:"type,omitempty"`
	Coordinates []float64 `json:"coordinates,omitempty"`
	Address     string    `json:"address"`
}

func marshalEntry(e *domentry.Entry) ([]byte, error) {
	doc := entryJSON{
		ID:          e.ID(),
		Name:        e.Name(),
		Slug:        e.Slug(),
		Description: e.Description(),
		Tags:        e.Tags(),
		Location:    locationJSON{Address: e.Location().Address},
		Photo:       e.Photo(),
		AuthorID:    e.AuthorID(),
		CreatedAt:   e.CreatedAt(),
	}
	if p, ok := e.Coordinates(); ok {
		doc.Location.Type = "Point"
		doc.Location.Coordinates = []float64{p.Lng, p.Lat}
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal entry %s: %w", e.ID(), err)
	}
	return data, nil
}

func unmarshalEntry(data []byte) (domentry.Entry, error) {
	var doc entryJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return domentry.Entry{}, fmt.Errorf("unmarshal entry: %w", err)
	}

	loc := domentry.Location{Address: doc.Location.Address}
	if len(doc.Location.Coordinates) == 2 {
		loc.Coordinates = &geo.Point{Lng: doc.Location.Coordinates[0], Lat: doc.Location.Coordinates[1]}
	}
	return domentry.Reconstruct(
		doc.ID, doc.Name, doc.Slug, doc.Description, doc.Tags, loc,
		doc.Photo, doc.AuthorID, doc.CreatedAt,
	), nil
}
