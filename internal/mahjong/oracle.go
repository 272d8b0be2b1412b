package mahjong

// Oracle answers whether a declared win is actually legal. The engine never
// consults it to gate a declaration; declarations are accepted provisionally
// and the oracle is only asked at resolution time (on a doubt, or when a
// doubt window expires).
type Oracle interface {
	// CanDeclareRon reports whether hand plus the opponent's discarded tile
	// forms a winning hand.
	CanDeclareRon(hand []Tile, discard Tile) bool
	// CanDeclareTumo reports whether the 14-tile hand (own draw included)
	// forms a winning hand.
	CanDeclareTumo(hand []Tile) bool
}

// ShapeOracle is the standard Oracle: a hand wins when it decomposes into
// four melds (triplets or runs) and a pair, or into seven distinct pairs.
type ShapeOracle struct{}

func (ShapeOracle) CanDeclareRon(hand []Tile, discard Tile) bool {
	if len(hand) != HandSize {
		return false
	}
	full := make([]Tile, 0, HandSize+1)
	full = append(full, hand...)
	full = append(full, discard)
	return isWinningHand(full)
}

func (ShapeOracle) CanDeclareTumo(hand []Tile) bool {
	if len(hand) != HandSize+1 {
		return false
	}
	full := make([]Tile, len(hand))
	copy(full, hand)
	return isWinningHand(full)
}

func isWinningHand(tiles []Tile) bool {
	Sort(tiles)
	if isSevenPairs(tiles) {
		return true
	}
	return decompose(tiles, 4, 1)
}

// isSevenPairs checks the chiitoitsu shape: seven pairs of distinct kinds.
func isSevenPairs(sorted []Tile) bool {
	if len(sorted) != 14 {
		return false
	}
	for i := 0; i < 14; i += 2 {
		if !sorted[i].SameKind(sorted[i+1]) {
			return false
		}
		if i > 0 && sorted[i].SameKind(sorted[i-1]) {
			return false
		}
	}
	return true
}

// decompose greedily consumes the sorted hand from the front, trying a pair,
// a triplet, then a run anchored on the first tile.
func decompose(sorted []Tile, meldsNeeded, pairsNeeded int) bool {
	if len(sorted) == 0 {
		return meldsNeeded == 0 && pairsNeeded == 0
	}
	if len(sorted) < meldsNeeded*3+pairsNeeded*2 {
		return false
	}

	if pairsNeeded > 0 && len(sorted) >= 2 && sorted[0].SameKind(sorted[1]) {
		if decompose(sorted[2:], meldsNeeded, pairsNeeded-1) {
			return true
		}
	}

	if meldsNeeded > 0 && len(sorted) >= 3 &&
		sorted[0].SameKind(sorted[1]) && sorted[0].SameKind(sorted[2]) {
		if decompose(sorted[3:], meldsNeeded-1, pairsNeeded) {
			return true
		}
	}

	if meldsNeeded > 0 && !sorted[0].isHonor() && sorted[0].Value <= 7 {
		idx2 := findKind(sorted, 1, sorted[0].Suit, sorted[0].Value+1)
		if idx2 > 0 {
			idx3 := findKind(sorted, idx2+1, sorted[0].Suit, sorted[0].Value+2)
			if idx3 > 0 {
				rest := make([]Tile, 0, len(sorted)-3)
				for i, t := range sorted {
					if i != 0 && i != idx2 && i != idx3 {
						rest = append(rest, t)
					}
				}
				if decompose(rest, meldsNeeded-1, pairsNeeded) {
					return true
				}
			}
		}
	}

	return false
}

func findKind(sorted []Tile, from int, suit string, value int) int {
	for i := from; i < len(sorted); i++ {
		if sorted[i].Suit == suit && sorted[i].Value == value {
			return i
		}
	}
	return -1
}
