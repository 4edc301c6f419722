package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestPokemon_ImageRef(t *testing.T) {
	tests := []struct {
		name    string
		sprites Sprites
		want    string
	}{
		{
			name: "official artwork wins",
			sprites: Sprites{
				FrontDefault: strPtr("default.png"),
				Other:        OtherSprites{OfficialArtwork: Artwork{FrontDefault: strPtr("art.png")}},
			},
			want: "art.png",
		},
		{
			name:    "default sprite when no artwork",
			sprites: Sprites{FrontDefault: strPtr("default.png")},
			want:    "default.png",
		},
		{
			name:    "empty strings treated as absent",
			sprites: Sprites{FrontDefault: strPtr(""), Other: OtherSprites{OfficialArtwork: Artwork{FrontDefault: strPtr("")}}},
			want:    "https://raw.githubusercontent.com/PokeAPI/sprites/master/sprites/pokemon/7.png",
		},
		{
			name: "fallback when both absent",
			want: "https://raw.githubusercontent.com/PokeAPI/sprites/master/sprites/pokemon/7.png",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Pokemon{ID: 7, Name: "squirtle", Sprites: tt.sprites}
			assert.Equal(t, tt.want, p.ImageRef())
		})
	}
}

func TestPokemon_PrimaryType(t *testing.T) {
	p := &Pokemon{ID: 1, Name: "bulbasaur", Types: []TypeSlot{
		{Slot: 1, Type: NamedResource{Name: "grass"}},
		{Slot: 2, Type: NamedResource{Name: "poison"}},
	}}
	assert.Equal(t, "grass", p.PrimaryType())

	p.Types = nil
	assert.Equal(t, UnknownType, p.PrimaryType())
}

func TestPokemon_Validate(t *testing.T) {
	assert.NoError(t, (&Pokemon{ID: 25, Name: "pikachu"}).Validate())
	assert.ErrorIs(t, (&Pokemon{ID: 0, Name: "missingno"}).Validate(), ErrMalformed)
	assert.ErrorIs(t, (&Pokemon{ID: 25}).Validate(), ErrMalformed)
}

func TestNewSpawnedEntity(t *testing.T) {
	p := &Pokemon{
		ID:      25,
		Name:    "pikachu",
		Types:   []TypeSlot{{Slot: 1, Type: NamedResource{Name: "electric"}}},
		Sprites: Sprites{FrontDefault: strPtr("X")},
	}

	e := NewSpawnedEntity("k1", p, NewLocationFix(10.001, 19.999))

	assert.Equal(t, SpawnedEntity{
		Key:             "k1",
		ID:              25,
		DisplayName:     "pikachu",
		PrimaryCategory: "electric",
		Latitude:        10.001,
		Longitude:       19.999,
		ImageRef:        "X",
	}, e)
	assert.Equal(t, NewLocationFix(10.001, 19.999), e.Position())
}
