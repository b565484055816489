package element

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFreeColour(t *testing.T) {
	assert.Equal(t, DecentColours[0], FreeColour(nil))
	assert.Equal(t, DecentColours[1], FreeColour([]Concern{{Colour: "#483d8b"}}))

	all := make([]Concern, 0, len(DecentColours))
	for _, c := range DecentColours {
		all = append(all, Concern{Colour: c})
	}
	defer func() { randIntn = rand.Intn }()

	randIntn = func(int) int { return 16 }
	assert.Equal(t, "#101010", FreeColour(all))

	// a random colour already in use on every attempt
	all = append(all, Concern{Colour: "#101010"})
	assert.Equal(t, FallbackColour, FreeColour(all))
}
