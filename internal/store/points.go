package store

import (
	"encoding/json"
	"fmt"

	"github.com/guildtools/stockpile/internal/model"
)

const pointsKey = "item_points"

// Multiplier bounds for per-item contribution points.
const (
	MinMultiplier = 1
	MaxMultiplier = 100
)

// PointsMap maps "domain/category/name" to a contribution multiplier.
// Unlisted items score at the default multiplier of 1.
type PointsMap map[string]int

// PointsKey builds the map key for one item.
func PointsKey(domain model.Domain, category, name string) string {
	return fmt.Sprintf("%s/%s/%s", domain, category, name)
}

// Multiplier returns the configured multiplier for an item, default 1.
func (m PointsMap) Multiplier(domain model.Domain, category, name string) int {
	if v, ok := m[PointsKey(domain, category, name)]; ok {
		return v
	}
	return 1
}

// PointsStore keeps the per-item multiplier map as a single settings
// document.
type PointsStore struct {
	settings *SettingsStore
}

func NewPointsStore(settings *SettingsStore) *PointsStore {
	return &PointsStore{settings: settings}
}

// Load returns the stored points map, empty when never configured.
func (s *PointsStore) Load() (PointsMap, error) {
	raw, err := s.settings.Get(pointsKey)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return PointsMap{}, nil
	}
	var m PointsMap
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("decode points map: %w", err)
	}
	return m, nil
}

// Set stores a multiplier for one item. A multiplier of 1 removes the
// entry since 1 is the default.
func (s *PointsStore) Set(domain model.Domain, category, name string, multiplier int) error {
	if multiplier < MinMultiplier || multiplier > MaxMultiplier {
		return fmt.Errorf("multiplier %d outside [%d, %d]: %w", multiplier, MinMultiplier, MaxMultiplier, ErrValidation)
	}

	m, err := s.Load()
	if err != nil {
		return err
	}

	key := PointsKey(domain, category, name)
	if multiplier == 1 {
		delete(m, key)
	} else {
		m[key] = multiplier
	}

	encoded, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode points map: %w", err)
	}
	return s.settings.Set(pointsKey, string(encoded))
}
