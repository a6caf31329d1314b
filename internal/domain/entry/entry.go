package entry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/kailas-cloud/storedex/internal/domain"
	"github.com/kailas-cloud/storedex/internal/domain/geo"
)

// MaxNameLength is the maximum display name length in characters.
const MaxNameLength = 256

// MaxDescriptionLength is the maximum description length in characters.
const MaxDescriptionLength = 16384

// Location holds where an entry is. Coordinates may be absent on hydrated legacy records;
// such entries never take part in geo queries.
type Location struct {
	Coordinates *geo.Point
	Address     string
}

// Draft is a validated-on-demand create request.
type Draft struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Tags        []string   `json:"tags"`
	Address     string     `json:"address"`
	Coordinates *geo.Point `json:"coordinates"`
	Photo       string     `json:"photo"`
	AuthorID    string     `json:"author_id"`
}

// Normalized returns a copy with trimmed strings and canonical tags.
func (d Draft) Normalized() Draft {
	d.Name = strings.TrimSpace(d.Name)
	d.Description = strings.TrimSpace(d.Description)
	d.Address = strings.TrimSpace(d.Address)
	d.Tags = NormalizeTags(d.Tags)
	return d
}

// Validate reports every missing or invalid field as a *domain.ValidationError.
func (d Draft) Validate() error {
	err := validation.ValidateStruct(&d,
		validation.Field(&d.Name,
			validation.Required.Error("name is required"),
			validation.RuneLength(1, MaxNameLength),
		),
		validation.Field(&d.Description, validation.RuneLength(0, MaxDescriptionLength)),
		validation.Field(&d.Address, validation.Required.Error("address is required")),
		validation.Field(&d.Coordinates,
			validation.NotNil.Error("coordinates are required"),
			validation.By(coordinatesInRange),
		),
		validation.Field(&d.AuthorID, validation.Required.Error("author is required")),
	)
	return toValidationError(err)
}

// Entry is the catalog entry aggregate (immutable value object).
type Entry struct {
	id          string
	name        string
	slug        string
	description string
	tags        []string
	location    Location
	photo       string
	authorID    string
	createdAt   time.Time
}

// New validates the draft and creates an Entry with the given identity and slug.
func New(id, slugValue string, d Draft, createdAt time.Time) (Entry, error) {
	if id == "" {
		return Entry{}, fmt.Errorf("entry ID is required")
	}
	if slugValue == "" {
		return Entry{}, fmt.Errorf("entry slug is required")
	}
	d = d.Normalized()
	if err := d.Validate(); err != nil {
		return Entry{}, err
	}

	p := *d.Coordinates
	return Entry{
		id:          id,
		name:        d.Name,
		slug:        slugValue,
		description: d.Description,
		tags:        d.Tags,
		location:    Location{Coordinates: &p, Address: d.Address},
		photo:       d.Photo,
		authorID:    d.AuthorID,
		createdAt:   createdAt.UTC(),
	}, nil
}

// Reconstruct creates an Entry without validation (storage hydration).
func Reconstruct(
	id, name, slugValue, description string, tags []string, loc Location,
	photo, authorID string, createdAt time.Time,
) Entry {
	return Entry{
		id: id, name: name, slug: slugValue, description: description,
		tags: tags, location: loc, photo: photo, authorID: authorID, createdAt: createdAt,
	}
}

// ID returns the entry identifier.
func (e *Entry) ID() string { return e.id }

// Name returns the display name.
func (e *Entry) Name() string { return e.name }

// Slug returns the unique URL identifier.
func (e *Entry) Slug() string { return e.slug }

// Description returns the free-text description.
func (e *Entry) Description() string { return e.description }

// Tags returns the sorted, deduplicated tags.
func (e *Entry) Tags() []string { return e.tags }

// Location returns the address and coordinates.
func (e *Entry) Location() Location { return e.location }

// Coordinates returns the point and whether the entry has one.
func (e *Entry) Coordinates() (geo.Point, bool) {
	if e.location.Coordinates == nil {
		return geo.Point{}, false
	}
	return *e.location.Coordinates, true
}

// Photo returns the opaque photo filename supplied by the upload layer.
func (e *Entry) Photo() string { return e.photo }

// AuthorID returns the owning user reference.
func (e *Entry) AuthorID() string { return e.authorID }

// CreatedAt returns the creation timestamp.
func (e *Entry) CreatedAt() time.Time { return e.createdAt }

// HasTag reports whether the entry carries tag.
func (e *Entry) HasTag(tag string) bool {
	i := sort.SearchStrings(e.tags, tag)
	return i < len(e.tags) && e.tags[i] == tag
}

// WithSlug returns a copy with the slug replaced.
func (e *Entry) WithSlug(s string) Entry {
	c := *e
	c.slug = s
	return c
}

// Apply returns a copy with the patch applied. The slug is left untouched;
// the caller reassigns it when nameChanged is true.
func (e *Entry) Apply(p Patch) (updated Entry, nameChanged bool, err error) {
	if err := p.Validate(); err != nil {
		return Entry{}, false, err
	}
	if p.ActorID != "" && p.ActorID != e.authorID {
		return Entry{}, false, fmt.Errorf("entry %s: %w", e.id, domain.ErrNotOwner)
	}

	c := *e
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		nameChanged = name != e.name
		c.name = name
	}
	if p.Description != nil {
		c.description = strings.TrimSpace(*p.Description)
	}
	if p.Tags != nil {
		c.tags = NormalizeTags(*p.Tags)
	}
	if p.Address != nil {
		c.location.Address = strings.TrimSpace(*p.Address)
	}
	if p.Coordinates != nil {
		pt := *p.Coordinates
		c.location.Coordinates = &pt
	}
	if p.Photo != nil {
		c.photo = *p.Photo
	}
	return c, nameChanged, nil
}

// NormalizeTags trims, drops empties, deduplicates, and sorts tags.
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil
	}
	sort.Strings(out)
	return out
}

func coordinatesInRange(value any) error {
	p, ok := value.(*geo.Point)
	if !ok || p == nil {
		return nil
	}
	if !p.Valid() {
		return errors.New("longitude must be within [-180,180] and latitude within [-90,90]")
	}
	return nil
}

func toValidationError(err error) error {
	if err == nil {
		return nil
	}
	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	fields := make(map[string]string, len(verrs))
	for name, ferr := range verrs {
		fields[name] = ferr.Error()
	}
	return &domain.ValidationError{Fields: fields}
}
