// Package view composes decoding, the temporal rules and interaction state
// into the models the rendering side consumes.
package view

import (
	stderrors "errors"
	"strings"
	"time"

	"intentlink/internal/errors"
	"intentlink/internal/intent"
	istorage "intentlink/internal/intent/storage"
	"intentlink/internal/storage"

	"go.uber.org/zap"
)

// Page is everything a share page shows for one token.
type Page struct {
	Token          string                  `json:"token"`
	URL            string                  `json:"url"`
	Activity       string                  `json:"activity"`
	ScheduledAt    time.Time               `json:"scheduledAt"`
	When           string                  `json:"when"`
	Place          string                  `json:"place,omitempty"`
	PlaceCoarsened bool                    `json:"placeCoarsened"`
	Note           string                  `json:"note,omitempty"`
	CreatedAt      int64                   `json:"createdAt"`
	Expired        bool                    `json:"expired"`
	ExpiresAt      time.Time               `json:"expiresAt"`
	Stats          intent.InteractionStats `json:"stats"`
	Choice         intent.Kind             `json:"choice,omitempty"`
}

// Preview is the field set an image renderer needs.
type Preview struct {
	Activity string `json:"activity"`
	When     string `json:"when"`
	Place    string `json:"place,omitempty"`
	Expired  bool   `json:"expired"`
}

// ShareRequest is raw form input for a new intention.
type ShareRequest struct {
	Activity    string `json:"activity"`
	ScheduledAt string `json:"scheduledAt"`
	Place       string `json:"place,omitempty"`
	Note        string `json:"note,omitempty"`
}

// Shared is the outcome of sharing an intention.
type Shared struct {
	Token     string           `json:"token"`
	URL       string           `json:"url"`
	Intention intent.Intention `json:"intention"`
}

// Interaction is the outcome of a viewer registering interest.
type Interaction struct {
	Accepted bool                    `json:"accepted"`
	Choice   intent.Kind             `json:"choice,omitempty"`
	Stats    intent.InteractionStats `json:"stats"`
}

type Options struct {
	BaseURL     string
	RoutePrefix string
	Location    *time.Location
	Limits      intent.Limits
}

type Service struct {
	decoder      *intent.DecodeCache
	kv           storage.KV
	interactions *istorage.Store
	opts         Options
	logger       *zap.Logger
}

func NewService(decoder *intent.DecodeCache, kv storage.KV, opts Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.RoutePrefix == "" {
		opts.RoutePrefix = "i"
	}
	return &Service{
		decoder:      decoder,
		kv:           kv,
		interactions: istorage.NewStore(kv, logger),
		opts:         opts,
		logger:       logger,
	}
}

// RoutePrefix is the path segment share links put before the token.
func (s *Service) RoutePrefix() string {
	return s.opts.RoutePrefix
}

// ShareURL returns the link that carries token.
func (s *Service) ShareURL(token string) string {
	return strings.TrimRight(s.opts.BaseURL, "/") + "/" + s.opts.RoutePrefix + "/" + token
}

// Share validates raw input, stamps it and encodes it into a share link.
func (s *Service) Share(req ShareRequest, now time.Time) (*Shared, error) {
	i := intent.Intention{
		Activity:  strings.TrimSpace(req.Activity),
		Place:     strings.TrimSpace(req.Place),
		Note:      strings.TrimSpace(req.Note),
		CreatedAt: now.UnixMilli(),
	}
	if req.ScheduledAt != "" {
		at, err := intent.ParseScheduledAt(strings.TrimSpace(req.ScheduledAt), s.opts.Location)
		if err != nil {
			return nil, errors.ValidationError("invalid scheduledAt", err.Error())
		}
		i.ScheduledAt = at
	}

	if err := intent.ValidateIntention(&i, s.opts.Limits); err != nil {
		return nil, err
	}
	if intent.IsExpired(i, now) {
		return nil, errors.ValidationError("scheduledAt is too far in the past", nil)
	}

	token, err := intent.Encode(i)
	if err != nil {
		return nil, err
	}
	return &Shared{Token: token, URL: s.ShareURL(token), Intention: i}, nil
}

// Render builds the page for token as viewerID sees it at now.
func (s *Service) Render(token, viewerID string, now time.Time) (*Page, error) {
	i, err := s.decoder.Decode(token)
	if err != nil {
		return nil, err
	}

	now = now.In(s.opts.Location)
	place := intent.LocationPrecision(i, now)
	page := &Page{
		Token:          token,
		URL:            s.ShareURL(token),
		Activity:       i.Activity,
		ScheduledAt:    i.ScheduledAt,
		When:           intent.FormatForDisplay(i.ScheduledAt, now),
		Place:          place,
		PlaceCoarsened: place != i.Place,
		Note:           i.Note,
		CreatedAt:      i.CreatedAt,
		Expired:        intent.IsExpired(i, now),
		ExpiresAt:      intent.ExpiresAt(i),
		Stats:          s.interactions.GetStats(token),
	}
	if choice, ok := s.forViewer(viewerID).Choice(token); ok {
		page.Choice = choice
	}
	return page, nil
}

// Preview builds the image-preview fields for token at now.
func (s *Service) Preview(token string, now time.Time) (*Preview, error) {
	i, err := s.decoder.Decode(token)
	if err != nil {
		return nil, err
	}
	now = now.In(s.opts.Location)
	return &Preview{
		Activity: i.Activity,
		When:     intent.FormatForDisplay(i.ScheduledAt, now),
		Place:    intent.LocationPrecision(i, now),
		Expired:  intent.IsExpired(i, now),
	}, nil
}

// Stats returns the counters for a valid token.
func (s *Service) Stats(token string) (intent.InteractionStats, error) {
	if _, err := s.decoder.Decode(token); err != nil {
		return intent.InteractionStats{}, err
	}
	return s.interactions.GetStats(token), nil
}

// Interact registers kind for viewerID on token. Expired intentions take no
// new interactions. Store failures are logged and answered with the last
// known stats rather than failing the request.
func (s *Service) Interact(token, viewerID string, kind intent.Kind, now time.Time) (*Interaction, error) {
	if !kind.Valid() {
		return nil, errors.ValidationError("unknown interaction kind", string(kind))
	}
	i, err := s.decoder.Decode(token)
	if err != nil {
		return nil, err
	}
	if intent.IsExpired(i, now) {
		return nil, errors.ValidationError("intention has expired", nil)
	}

	reg, err := s.forViewer(viewerID).Register(token, kind)
	if err != nil {
		if stderrors.Is(err, errors.ErrValidation) {
			return nil, err
		}
		s.logger.Warn("recording interaction failed",
			zap.String("token", token),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
		return &Interaction{Stats: s.interactions.GetStats(token)}, nil
	}
	return &Interaction{Accepted: reg.Accepted, Choice: reg.Choice, Stats: reg.Stats}, nil
}

// forViewer scopes choice markers to one viewer. An empty viewerID means the
// store already belongs to a single viewer.
func (s *Service) forViewer(viewerID string) *istorage.Store {
	if viewerID == "" {
		return s.interactions
	}
	return s.interactions.WithChoices(storage.Namespace(s.kv, "viewer:"+viewerID+":"))
}
