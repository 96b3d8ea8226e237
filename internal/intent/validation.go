package intent

import (
	"strings"

	"intentlink/internal/errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Limits caps the free-text fields a producer accepts. The codec itself
// never enforces them.
type Limits struct {
	ActivityMax int
	PlaceMax    int
	NoteMax     int
}

// DefaultLimits mirrors the share form.
var DefaultLimits = Limits{
	ActivityMax: 120,
	PlaceMax:    200,
	NoteMax:     280,
}

// ValidateIntention checks that an intention is well-formed enough to share.
func ValidateIntention(i *Intention, limits Limits) error {
	err := validation.ValidateStruct(i,
		validation.Field(&i.Activity,
			validation.By(notBlank),
			validation.RuneLength(0, limits.ActivityMax),
		),
		validation.Field(&i.ScheduledAt, validation.Required.Error("scheduledAt is required")),
		validation.Field(&i.Place, validation.RuneLength(0, limits.PlaceMax)),
		validation.Field(&i.Note, validation.RuneLength(0, limits.NoteMax)),
	)
	if err != nil {
		return errors.ValidationError("invalid intention", err)
	}
	return nil
}

func notBlank(value interface{}) error {
	s, _ := value.(string)
	if strings.TrimSpace(s) == "" {
		return validation.NewError("validation_blank", "activity is required")
	}
	return nil
}
