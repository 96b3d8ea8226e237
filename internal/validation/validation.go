package validation

import (
	"encoding/json"
	"net/http"

	"intentlink/internal/errors"
	"intentlink/internal/intent"
	"intentlink/internal/view"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// MaxBodyBytes caps request bodies. Intentions are small.
const MaxBodyBytes = 16 << 10

type Validator interface {
	Validate() error
}

// InteractionRequest is the body of an interaction call.
type InteractionRequest struct {
	Kind intent.Kind `json:"kind"`
}

func (r InteractionRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Kind, validation.Required, validation.By(func(v any) error {
			if k, _ := v.(intent.Kind); !k.Valid() {
				return validation.NewError("validation_kind", "must be interested or here")
			}
			return nil
		})),
	)
}

// DecodeShareRequest reads a share request from the body. Field level checks
// happen when the intention is built.
func DecodeShareRequest(w http.ResponseWriter, r *http.Request) (*view.ShareRequest, error) {
	var req view.ShareRequest
	if err := decode(w, r, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

func DecodeInteractionRequest(w http.ResponseWriter, r *http.Request) (*InteractionRequest, error) {
	var req InteractionRequest
	if err := decode(w, r, &req); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, errors.ValidationError("invalid interaction", err)
	}
	return &req, nil
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.ValidationError("invalid request body", err.Error())
	}
	return nil
}

var _ Validator = InteractionRequest{}
