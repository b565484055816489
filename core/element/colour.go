package element

import (
	"fmt"
	"math/rand"
	"strings"
)

// DecentColours are handed out in order to a user's new concerns.
var DecentColours = []string{
	"#483D8B", // DarkSlateBlue
	"#CD5C5C", // IndianRed
	"#B8860B", // DarkGoldenRod
	"#7B68EE", // MediumSlateBlue
	"#808000", // Olive
	"#6B8E23", // OliveDrab
	"#DB7093", // PaleVioletRed
	"#2E8B57", // SeaGreen
	"#A0522D", // Sienna
	"#008080", // Teal
	"#3CB371", // MediumSeaGreen
	"#2F4F4F", // DarkSlateGray
	"#556B2F", // DarkOliveGreen
	"#FF6347", // Tomato
	"#BF1A5B",
	"#126787",
	"#112146",
	"#013B05",
	"#558068",
	"#B34608",
	"#5F1731",
}

// FallbackColour is used once random generation keeps hitting colours in use.
const FallbackColour = "Gray"

var randIntn = rand.Intn // mockable

// FreeColour picks the first palette colour not used by any of the concerns,
// then tries random dark colours, then gives up with FallbackColour.
func FreeColour(concerns []Concern) string {
	inUse := make(map[string]bool, len(concerns))
	for _, c := range concerns {
		inUse[strings.ToUpper(c.Colour)] = true
	}
	for _, colour := range DecentColours {
		if !inUse[colour] {
			return colour
		}
	}
	for i := 0; i < 100; i++ {
		if colour := randomColour(); !inUse[colour] {
			return colour
		}
	}
	return FallbackColour
}

// randomColour returns a reasonably dark colour, upper case.
func randomColour() string {
	for {
		r, g, b := randIntn(256), randIntn(256), randIntn(256)
		if r+g+b < 512 {
			return fmt.Sprintf("#%02X%02X%02X", r, g, b)
		}
	}
}
