// Package zone maps world coordinates to named regions.
package zone

// Zone is a symbolic region label. It carries no identity beyond its name;
// callers recompute it from position whenever they need it.
type Zone string

const (
	BarbarianVillage Zone = "Barbarian Village"
	FishingSpot      Zone = "Fishing Spot"
	GrandExchange    Zone = "Grand Exchange"
	Wilderness       Zone = "Wilderness"
	Lumbridge        Zone = "Lumbridge"
)

// Classify resolves (x, z) to a region. The checks run in fixed priority
// order; the first match wins, Lumbridge is the fallback.
func Classify(x, z float64) Zone {
	switch {
	case x < -10 && z < -10:
		return BarbarianVillage
	case x > 25 && z < 0:
		return FishingSpot
	case x > 0 && z > 25:
		return GrandExchange
	case abs(x) > 30 || abs(z) > 30:
		return Wilderness
	default:
		return Lumbridge
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
