// Package mahjong supplies the tile set, the shuffled wall, and the win
// predicates consumed by the game engine. Everything here is pure data and
// pure functions; no goroutines, no I/O.
package mahjong

import (
	"fmt"
	"math/rand"
	"sort"
	"time"
)

// Suits. Man/Pin/Sou run 1-9; Wind runs 1-4 (E,S,W,N); Dragon runs 1-3
// (White, Green, Red).
const (
	SuitMan    = "Man"
	SuitPin    = "Pin"
	SuitSou    = "Sou"
	SuitWind   = "Wind"
	SuitDragon = "Dragon"
)

// TotalTiles is the size of a full wall (34 kinds x 4 copies).
const TotalTiles = 136

// HandSize is the number of tiles a player holds between turns.
const HandSize = 13

// Tile is a single mahjong tile. ID is unique within one wall (0-135) so
// tiles remain distinguishable across copies of the same kind. Red marks a
// red five (aka dora); it never affects win-shape checks.
type Tile struct {
	Suit  string `json:"suit"`
	Value int    `json:"value"`
	Red   bool   `json:"red,omitempty"`
	ID    int    `json:"id"`
}

var windNames = []string{"East", "South", "West", "North"}
var dragonNames = []string{"White", "Green", "Red"}

// String returns the display form of the tile, e.g. "Man 5", "Red Pin 5",
// "East", "Green".
func (t Tile) String() string {
	switch t.Suit {
	case SuitWind:
		return windNames[t.Value-1]
	case SuitDragon:
		return dragonNames[t.Value-1]
	default:
		if t.Red {
			return fmt.Sprintf("Red %s %d", t.Suit, t.Value)
		}
		return fmt.Sprintf("%s %d", t.Suit, t.Value)
	}
}

// SameKind reports whether two tiles are the same kind, ignoring ID and red
// marking. This is the equality the win predicates care about.
func (t Tile) SameKind(o Tile) bool {
	return t.Suit == o.Suit && t.Value == o.Value
}

func (t Tile) isHonor() bool {
	return t.Suit == SuitWind || t.Suit == SuitDragon
}

// NewWall builds the full 136-tile set and shuffles it. When aka is true the
// first five of each numbered suit is a red five.
func NewWall(aka bool) []Tile {
	wall := make([]Tile, 0, TotalTiles)
	id := 0

	for _, suit := range []string{SuitMan, SuitPin, SuitSou} {
		for value := 1; value <= 9; value++ {
			for copyIdx := 0; copyIdx < 4; copyIdx++ {
				wall = append(wall, Tile{
					Suit:  suit,
					Value: value,
					Red:   aka && value == 5 && copyIdx == 0,
					ID:    id,
				})
				id++
			}
		}
	}
	for value := 1; value <= 4; value++ {
		for copyIdx := 0; copyIdx < 4; copyIdx++ {
			wall = append(wall, Tile{Suit: SuitWind, Value: value, ID: id})
			id++
		}
	}
	for value := 1; value <= 3; value++ {
		for copyIdx := 0; copyIdx < 4; copyIdx++ {
			wall = append(wall, Tile{Suit: SuitDragon, Value: value, ID: id})
			id++
		}
	}

	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	r.Shuffle(len(wall), func(i, j int) {
		wall[i], wall[j] = wall[j], wall[i]
	})
	return wall
}

var suitOrder = map[string]int{
	SuitMan:    1,
	SuitPin:    2,
	SuitSou:    3,
	SuitWind:   4,
	SuitDragon: 5,
}

// Sort orders tiles by suit then value, in place. Players' hands are kept
// sorted for display and so the win predicates can assume sorted input.
func Sort(tiles []Tile) {
	sort.Slice(tiles, func(i, j int) bool {
		if suitOrder[tiles[i].Suit] != suitOrder[tiles[j].Suit] {
			return suitOrder[tiles[i].Suit] < suitOrder[tiles[j].Suit]
		}
		return tiles[i].Value < tiles[j].Value
	})
}
