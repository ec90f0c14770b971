package maps

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-polyline"
)

const earthRadiusMiles = 3959

// Point is a sampled coordinate along a route's geometry.
type Point struct {
	Latitude  float64
	Longitude float64
}

// decodePath decodes a Google encoded polyline into an XY line string
// (X = longitude, Y = latitude).
func decodePath(encoded string) (*geom.LineString, error) {
	coords, _, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, eris.Wrap(err, "maps: decode polyline")
	}

	flat := make([]float64, 0, len(coords)*2)
	for _, c := range coords {
		flat = append(flat, c[1], c[0]) // encoded order is lat,lng
	}
	return geom.NewLineStringFlat(geom.XY, flat), nil
}

// samplingInterval picks a waypoint spacing from the route length. Short
// urban routes sample densely; long highway routes sparsely.
func samplingInterval(distanceMiles float64) float64 {
	switch {
	case distanceMiles < 5:
		return 0.5
	case distanceMiles < 10:
		return 0.75
	case distanceMiles < 20:
		return 1.5
	case distanceMiles < 40:
		return 2.5
	default:
		return 4.0
	}
}

// samplePath walks the line string and emits a point roughly every
// intervalMiles. The start is always included; the end is included when it
// sits more than a tenth of a mile past the last sample.
func samplePath(path *geom.LineString, intervalMiles float64) []Point {
	n := path.NumCoords()
	if n == 0 {
		return nil
	}

	first := path.Coord(0)
	points := []Point{{Latitude: first[1], Longitude: first[0]}}

	accumulated := 0.0
	for i := 1; i < n; i++ {
		prev, curr := path.Coord(i-1), path.Coord(i)
		accumulated += haversineMiles(prev[1], prev[0], curr[1], curr[0])
		if accumulated >= intervalMiles {
			points = append(points, Point{Latitude: curr[1], Longitude: curr[0]})
			accumulated = 0.0
		}
	}

	if n > 1 {
		last := path.Coord(n - 1)
		tail := points[len(points)-1]
		if haversineMiles(tail.Latitude, tail.Longitude, last[1], last[0]) > 0.1 {
			points = append(points, Point{Latitude: last[1], Longitude: last[0]})
		}
	}

	return points
}

// haversineMiles is the great-circle distance between two points.
func haversineMiles(lat1, lon1, lat2, lon2 float64) float64 {
	rlat1 := lat1 * math.Pi / 180
	rlat2 := lat2 * math.Pi / 180
	dlat := (lat2 - lat1) * math.Pi / 180
	dlon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(rlat1)*math.Cos(rlat2)*math.Sin(dlon/2)*math.Sin(dlon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMiles * c
}
