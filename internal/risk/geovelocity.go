package risk

import "math"

const earthRadiusKm = 6371

// haversineDistance returns the great-circle distance in kilometers between
// two coordinates.
func haversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// GeoVelocityScorer maps implied travel velocity between two logins to a
// suspicion score. Pure, no state.
type GeoVelocityScorer struct{}

// NewGeoVelocityScorer creates a GeoVelocityScorer
func NewGeoVelocityScorer() *GeoVelocityScorer {
	return &GeoVelocityScorer{}
}

// Score computes the velocity implied by moving from previous to current in
// hoursElapsed and maps it to a score. Missing locations or a non-positive
// elapsed time score 0; absence of travel history is not evidence of risk.
func (g *GeoVelocityScorer) Score(current, previous *Location, hoursElapsed float64) float64 {
	if current == nil || previous == nil || hoursElapsed <= 0 {
		return 0
	}

	distanceKm := haversineDistance(
		previous.Latitude, previous.Longitude,
		current.Latitude, current.Longitude,
	)
	velocity := distanceKm / hoursElapsed

	switch {
	case velocity > 800:
		return 100
	case velocity > 500:
		return 80
	case velocity > 300:
		return 60
	case velocity > 200:
		return 40
	case velocity > 100:
		return 20
	default:
		return 0
	}
}
