package entry

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/kailas-cloud/storedex/internal/domain"
	"github.com/kailas-cloud/storedex/internal/domain/geo"
)

// Patch is a partial entry update. Nil fields are unchanged.
type Patch struct {
	Name        *string    `json:"name"`
	Description *string    `json:"description"`
	Tags        *[]string  `json:"tags"`
	Address     *string    `json:"address"`
	Coordinates *geo.Point `json:"coordinates"`
	Photo       *string    `json:"photo"`
	// ActorID, when set, must match the entry author.
	ActorID string `json:"-"`
}

// Normalized returns a copy with trimmed strings.
func (p Patch) Normalized() Patch {
	p.Name = trimmed(p.Name)
	p.Description = trimmed(p.Description)
	p.Address = trimmed(p.Address)
	return p
}

// Validate checks that at least one field is provided and that provided fields are usable.
// Provided fields follow the same rules as Draft.
func (p Patch) Validate() error {
	if p.Name == nil && p.Description == nil && p.Tags == nil &&
		p.Address == nil && p.Coordinates == nil && p.Photo == nil {
		return domain.NewValidationError("patch", "at least one field must be provided")
	}

	p = p.Normalized()
	err := validation.ValidateStruct(&p,
		validation.Field(&p.Name,
			validation.NilOrNotEmpty.Error("name cannot be blank"),
			validation.RuneLength(1, MaxNameLength),
		),
		validation.Field(&p.Description, validation.RuneLength(0, MaxDescriptionLength)),
		validation.Field(&p.Address, validation.NilOrNotEmpty.Error("address cannot be blank")),
		validation.Field(&p.Coordinates, validation.By(coordinatesInRange)),
	)
	return toValidationError(err)
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}
