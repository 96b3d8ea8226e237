// internal/intent/storage/store.go
package storage

import (
	"encoding/json"
	stderrors "errors"
	"fmt"

	"intentlink/internal/errors"
	"intentlink/internal/intent"
	"intentlink/internal/storage"

	"go.uber.org/zap"
)

const (
	statsPrefix  = "intention_stats_"
	choicePrefix = "intention_choice_"
)

// StatsKey is the store key holding a token's InteractionStats.
func StatsKey(token string) string {
	return statsPrefix + token
}

// ChoiceKey is the store key holding a viewer's UserChoice for a token.
func ChoiceKey(token string) string {
	return choicePrefix + token
}

// ReadOutcome tags how a stats read was resolved.
type ReadOutcome int

const (
	ReadFound ReadOutcome = iota
	ReadMissing
	// ReadCorrupt means a value existed but did not parse; zero stats were
	// substituted.
	ReadCorrupt
	// ReadFailed means the store itself errored; zero stats were substituted.
	ReadFailed
)

func (o ReadOutcome) String() string {
	switch o {
	case ReadFound:
		return "found"
	case ReadMissing:
		return "missing"
	case ReadCorrupt:
		return "corrupt"
	case ReadFailed:
		return "failed"
	}
	return fmt.Sprintf("ReadOutcome(%d)", int(o))
}

// StatsLookup is the result of reading a token's stats. Stats is always
// usable, whatever the outcome.
type StatsLookup struct {
	Stats   intent.InteractionStats
	Outcome ReadOutcome
}

// Defaulted reports whether Stats is a substitute for a bad stored value.
func (l StatsLookup) Defaulted() bool {
	return l.Outcome == ReadCorrupt || l.Outcome == ReadFailed
}

// Registration is the result of a viewer trying to register an interaction.
type Registration struct {
	Accepted bool
	Choice   intent.Kind
	Stats    intent.InteractionStats
}

// errAlreadyChosen aborts a choice write when a marker already exists.
var errAlreadyChosen = stderrors.New("choice already recorded")

// Store keeps InteractionStats and UserChoice in key-value stores. Stats
// and choices share one store unless WithChoices splits them.
type Store struct {
	kv      storage.KV
	choices storage.KV
	logger  *zap.Logger
}

func NewStore(kv storage.KV, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{kv: kv, choices: kv, logger: logger}
}

// WithChoices returns a Store that keeps UserChoice markers in choices and
// shares stats with s. A server holding every viewer's markers passes a
// per-viewer namespace here.
func (s *Store) WithChoices(choices storage.KV) *Store {
	return &Store{kv: s.kv, choices: choices, logger: s.logger}
}

// LookupStats reads the stats for token, tagging how the read went.
func (s *Store) LookupStats(token string) StatsLookup {
	raw, found, err := s.kv.Get(StatsKey(token))
	if err != nil {
		s.logger.Warn("reading interaction stats", zap.String("token", token), zap.Error(err))
		return StatsLookup{Outcome: ReadFailed}
	}
	if !found {
		return StatsLookup{Outcome: ReadMissing}
	}
	stats, ok := parseStats(raw)
	if !ok {
		s.logger.Warn("corrupt interaction stats, using defaults", zap.String("token", token))
		return StatsLookup{Outcome: ReadCorrupt}
	}
	return StatsLookup{Stats: stats, Outcome: ReadFound}
}

// GetStats returns the stats for token, or zero stats when there are none
// or they cannot be read. It never fails.
func (s *Store) GetStats(token string) intent.InteractionStats {
	return s.LookupStats(token).Stats
}

// RecordInteraction adds one to the counter for kind and returns the new
// stats. It does not check whether the viewer already interacted; see
// Register. On a store that is not an Updater the read-modify-write is not
// atomic.
func (s *Store) RecordInteraction(token string, kind intent.Kind) (intent.InteractionStats, error) {
	if !kind.Valid() {
		return intent.InteractionStats{}, errors.ValidationError(fmt.Sprintf("unknown interaction kind %q", kind), nil)
	}

	if u, ok := s.kv.(storage.Updater); ok {
		var updated intent.InteractionStats
		err := u.Update(StatsKey(token), func(current string, found bool) (string, error) {
			var stats intent.InteractionStats
			if found {
				stats, _ = parseStats(current)
			}
			updated = stats.Increment(kind)
			return marshalStats(updated)
		})
		if err != nil {
			return intent.InteractionStats{}, fmt.Errorf("recording interaction: %w", err)
		}
		return updated, nil
	}

	updated := s.GetStats(token).Increment(kind)
	value, err := marshalStats(updated)
	if err != nil {
		return intent.InteractionStats{}, err
	}
	if err := s.kv.Set(StatsKey(token), value); err != nil {
		return intent.InteractionStats{}, fmt.Errorf("recording interaction: %w", err)
	}
	return updated, nil
}

// Choice returns the interaction already registered on token, if any.
// Unreadable or unknown markers read as no choice.
func (s *Store) Choice(token string) (intent.Kind, bool) {
	raw, found, err := s.choices.Get(ChoiceKey(token))
	if err != nil {
		s.logger.Warn("reading user choice", zap.String("token", token), zap.Error(err))
		return "", false
	}
	if !found {
		return "", false
	}
	kind, err := intent.ParseKind(raw)
	if err != nil {
		return "", false
	}
	return kind, true
}

// Register records kind for token at most once per viewer: the UserChoice
// marker is checked and written before the counter moves, and removed again
// if the counter cannot be written. When a marker is already present the
// current stats are returned with Accepted false.
func (s *Store) Register(token string, kind intent.Kind) (Registration, error) {
	if !kind.Valid() {
		return Registration{}, errors.ValidationError(fmt.Sprintf("unknown interaction kind %q", kind), nil)
	}

	prior, err := s.markChoice(token, kind)
	if stderrors.Is(err, errAlreadyChosen) {
		return Registration{Choice: prior, Stats: s.GetStats(token)}, nil
	}
	if err != nil {
		return Registration{}, err
	}

	stats, err := s.RecordInteraction(token, kind)
	if err != nil {
		// the marker only stands for an interaction that was counted
		if derr := s.choices.Delete(ChoiceKey(token)); derr != nil {
			s.logger.Error("rolling back user choice",
				zap.String("token", token),
				zap.Error(derr),
			)
		}
		return Registration{}, err
	}
	return Registration{Accepted: true, Choice: kind, Stats: stats}, nil
}

// markChoice writes the marker unless one exists, in which case it returns
// the existing choice and errAlreadyChosen.
func (s *Store) markChoice(token string, kind intent.Kind) (intent.Kind, error) {
	if u, ok := s.choices.(storage.Updater); ok {
		var prior intent.Kind
		err := u.Update(ChoiceKey(token), func(current string, found bool) (string, error) {
			if found {
				if k, err := intent.ParseKind(current); err == nil {
					prior = k
					return "", errAlreadyChosen
				}
			}
			return string(kind), nil
		})
		if stderrors.Is(err, errAlreadyChosen) {
			return prior, errAlreadyChosen
		}
		if err != nil {
			return "", fmt.Errorf("recording choice: %w", err)
		}
		return "", nil
	}

	if prior, ok := s.Choice(token); ok {
		return prior, errAlreadyChosen
	}
	if err := s.choices.Set(ChoiceKey(token), string(kind)); err != nil {
		return "", fmt.Errorf("recording choice: %w", err)
	}
	return "", nil
}

func parseStats(raw string) (intent.InteractionStats, bool) {
	var stats intent.InteractionStats
	if err := json.Unmarshal([]byte(raw), &stats); err != nil {
		return intent.InteractionStats{}, false
	}
	if !stats.Valid() {
		return intent.InteractionStats{}, false
	}
	return stats, true
}

func marshalStats(stats intent.InteractionStats) (string, error) {
	data, err := json.Marshal(stats)
	if err != nil {
		return "", fmt.Errorf("marshaling stats: %w", err)
	}
	return string(data), nil
}
