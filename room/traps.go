package room

import "math/rand"

// IsSafeZone reports whether pos is one of the start fields.
func IsSafeZone(pos int) bool {
	for _, z := range SafeZones {
		if z == pos {
			return true
		}
	}
	return false
}

// GenerateTrapFields draws TrapFieldCount distinct board positions outside the
// safe zones, in draw order.
func GenerateTrapFields(rng *rand.Rand) []int {
	traps := make([]int, 0, TrapFieldCount)
	taken := make(map[int]bool, TrapFieldCount)
	for len(traps) < TrapFieldCount {
		pos := rng.Intn(BoardSize)
		if taken[pos] || IsSafeZone(pos) {
			continue
		}
		taken[pos] = true
		traps = append(traps, pos)
	}
	return traps
}
