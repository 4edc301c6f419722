package model

import (
	"errors"
	"fmt"
)

// UnknownType is the primary category of a creature without type slots.
const UnknownType = "unknown"

// FallbackSpriteURL is the sprite substituted when a payload carries no image.
const FallbackSpriteURL = "https://raw.githubusercontent.com/PokeAPI/sprites/master/sprites/pokemon/%d.png"

// ErrMalformed marks a lookup payload that is missing required fields.
var ErrMalformed = errors.New("malformed pokemon payload")

// NamedResource is a PokéAPI reference to another resource.
type NamedResource struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// TypeSlot is one entry of a creature's ordered type list.
type TypeSlot struct {
	Slot int           `json:"slot"`
	Type NamedResource `json:"type"`
}

// Artwork holds a single optional front image.
type Artwork struct {
	FrontDefault *string `json:"front_default"`
}

// OtherSprites holds the alternative sprite sets; only official artwork is used.
type OtherSprites struct {
	OfficialArtwork Artwork `json:"official-artwork"`
}

// Sprites is the sprite section of a creature payload. Every URL may be null.
type Sprites struct {
	FrontDefault *string      `json:"front_default"`
	FrontShiny   *string      `json:"front_shiny"`
	Other        OtherSprites `json:"other"`
}

// Pokemon is the creature payload returned by GET /pokemon/{id}.
type Pokemon struct {
	ID             int        `json:"id"`
	Name           string     `json:"name"`
	Height         int        `json:"height"`
	Weight         int        `json:"weight"`
	BaseExperience int        `json:"base_experience"`
	Types          []TypeSlot `json:"types"`
	Sprites        Sprites    `json:"sprites"`
}

// Validate checks the fields the spawn scheduler relies on.
func (p *Pokemon) Validate() error {
	if p.ID <= 0 {
		return fmt.Errorf("%w: id %d", ErrMalformed, p.ID)
	}
	if p.Name == "" {
		return fmt.Errorf("%w: empty name for id %d", ErrMalformed, p.ID)
	}
	return nil
}

// PrimaryType returns the name of the first type slot or UnknownType.
func (p *Pokemon) PrimaryType() string {
	if len(p.Types) == 0 || p.Types[0].Type.Name == "" {
		return UnknownType
	}
	return p.Types[0].Type.Name
}

// ImageRef picks official artwork, then the default sprite, then the fallback URL.
func (p *Pokemon) ImageRef() string {
	if u := p.Sprites.Other.OfficialArtwork.FrontDefault; u != nil && *u != "" {
		return *u
	}
	if u := p.Sprites.FrontDefault; u != nil && *u != "" {
		return *u
	}
	return FallbackSprite(p.ID)
}

// FallbackSprite returns the deterministic sprite URL for a creature id.
func FallbackSprite(id int) string {
	return fmt.Sprintf(FallbackSpriteURL, id)
}

// SpeciesRef is one entry of the paginated species list.
type SpeciesRef struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// SpeciesPage is the payload of GET /pokemon?limit=&offset=.
type SpeciesPage struct {
	Count    int          `json:"count"`
	Next     *string      `json:"next"`
	Previous *string      `json:"previous"`
	Results  []SpeciesRef `json:"results"`
}
