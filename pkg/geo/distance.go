package geo

import "math"

const earthRadiusKm = 6371.0

// DistanceKm calculates the great-circle distance between two points using the Haversine formula
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	lat1Rad := toRadians(lat1)
	lat2Rad := toRadians(lat2)
	deltaLat := toRadians(lat2 - lat1)
	deltaLng := toRadians(lng2 - lng1)

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLng/2)*math.Sin(deltaLng/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	r := math.Round(v*pow) / pow
	if r == 0 {
		// avoid "-0.000" leaking into cache keys
		return 0
	}
	return r
}

// BoundingBox returns the south, west, north, east box that encloses a circle of radiusKm.
func BoundingBox(lat, lng, radiusKm float64) (south, west, north, east float64) {
	dLat := radiusKm / 111.32
	cosLat := math.Cos(toRadians(lat))
	dLng := 180.0
	if cosLat > 1e-9 {
		dLng = radiusKm / (111.32 * cosLat)
	}
	south = math.Max(-90, lat-dLat)
	north = math.Min(90, lat+dLat)
	west = math.Max(-180, lng-dLng)
	east = math.Min(180, lng+dLng)
	return south, west, north, east
}

func toRadians(degrees float64) float64 {
	return degrees * math.Pi / 180
}
