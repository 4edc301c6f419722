package model

import "time"

// SpawnedEntity is a creature placed on the map near a device.
// Key identifies this particular spawn; ID is the remote creature id and may repeat.
type SpawnedEntity struct {
	Key             string  `json:"key"`
	ID              int     `json:"id"`
	DisplayName     string  `json:"display_name"`
	PrimaryCategory string  `json:"primary_category"`
	Latitude        float64 `json:"latitude"`
	Longitude       float64 `json:"longitude"`
	ImageRef        string  `json:"image_ref"`
}

// NewSpawnedEntity builds an entity from a lookup payload placed at pos.
func NewSpawnedEntity(key string, p *Pokemon, pos LocationFix) SpawnedEntity {
	return SpawnedEntity{
		Key:             key,
		ID:              p.ID,
		DisplayName:     p.Name,
		PrimaryCategory: p.PrimaryType(),
		Latitude:        pos.Latitude,
		Longitude:       pos.Longitude,
		ImageRef:        p.ImageRef(),
	}
}

// Position returns the entity coordinates as a fix.
func (e SpawnedEntity) Position() LocationFix {
	return LocationFix{Latitude: e.Latitude, Longitude: e.Longitude}
}

// Catch is a persisted record of an entity caught by a device.
type Catch struct {
	ID         string    `json:"id"`
	DeviceHash string    `json:"-"`
	SpawnKey   string    `json:"spawn_key"`
	SpeciesID  int       `json:"species_id"`
	Name       string    `json:"name"`
	Category   string    `json:"category"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	ImageRef   string    `json:"image_ref"`
	CaughtAt   time.Time `json:"caught_at"`
}
