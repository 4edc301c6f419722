package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/udisondev/geospawn/internal/model"
)

// Pokemon создаёт минимальный валидный payload с одним типом и без спрайтов.
func Pokemon(id int, name, typ string) *model.Pokemon {
	return &model.Pokemon{
		ID:    id,
		Name:  name,
		Types: []model.TypeSlot{{Slot: 1, Type: model.NamedResource{Name: typ}}},
	}
}

// Pikachu — payload с default sprite "X" и без official artwork.
func Pikachu() *model.Pokemon {
	p := Pokemon(25, "pikachu", "electric")
	sprite := "X"
	p.Sprites.FrontDefault = &sprite
	return p
}

// PikachuJSON — тот же payload в формате PokéAPI.
const PikachuJSON = `{
	"id": 25,
	"name": "pikachu",
	"height": 4,
	"weight": 60,
	"base_experience": 112,
	"types": [{"slot": 1, "type": {"name": "electric", "url": "https://pokeapi.co/api/v2/type/13/"}}],
	"sprites": {"front_default": "X", "front_shiny": null, "other": {"official-artwork": {"front_default": null}}}
}`

// Epoch — фиксированное начало времени для clock.Manual.
var Epoch = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// ContextWithTimeout создаёт context с timeout и отменяет его при завершении теста.
func ContextWithTimeout(tb testing.TB, d time.Duration) context.Context {
	tb.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), d)
	tb.Cleanup(cancel)
	return ctx
}
