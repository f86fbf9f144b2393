// Package geo holds the GPS math shared across domains: great-circle and
// equirectangular distances plus route simplification.
//
// Simplify implements the Ramer-Douglas-Peucker algorithm over an activity
// stream. It returns indices of points to keep rather than copying data, so
// callers preserve all per-sample metadata (time, heart rate, cadence, ...).
package geo

import (
	"errors"
	"fmt"
	"math"
)

// MetersPerDegreeLat is constant globally (~111.32 km per degree).
const MetersPerDegreeLat = 111_320.0

// coincidentThreshold is the segment length in degrees below which the two
// endpoints of a working range are treated as the same point.
const coincidentThreshold = 1e-10

// ErrNoGpsCoordinates is returned when fewer than two samples carry both
// coordinates.
var ErrNoGpsCoordinates = errors.New("no valid GPS coordinates found in activity stream")

// InvalidEpsilonError reports a tolerance that is zero, negative or not finite.
type InvalidEpsilonError struct {
	Epsilon float64
}

func (e InvalidEpsilonError) Error() string {
	return fmt.Sprintf("epsilon must be positive, got %v", e.Epsilon)
}

// Sample is the slice of an activity stream row the simplifier needs.
// Latitude and longitude are optional; rows missing either are skipped,
// never interpolated.
type Sample struct {
	Lat *float64
	Lng *float64
}

type gpsPoint struct {
	lat float64
	lng float64
}

// Simplify reduces a GPS route using the Ramer-Douglas-Peucker algorithm.
//
// It returns indices into samples to keep, sorted ascending. The first and
// last valid points are always kept. The reduction walks an explicit work
// list instead of recursing so multi-hour routes with tens of thousands of
// samples cannot exhaust the stack.
//
// Fails with InvalidEpsilonError when epsilon is not a finite positive
// number, and with ErrNoGpsCoordinates when fewer than two samples have both
// coordinates set.
func Simplify(samples []Sample, epsilon float64) ([]int, error) {
	if epsilon <= 0 || math.IsNaN(epsilon) || math.IsInf(epsilon, 0) {
		return nil, InvalidEpsilonError{Epsilon: epsilon}
	}

	points, indexMap := extractGpsPoints(samples)
	if len(points) < 2 {
		return nil, ErrNoGpsCoordinates
	}
	if len(points) == 2 {
		return []int{indexMap[0], indexMap[1]}, nil
	}

	keep := rdpIterative(points, epsilon)

	result := make([]int, 0, len(points))
	for i, kept := range keep {
		if kept {
			result = append(result, indexMap[i])
		}
	}
	return result, nil
}

// extractGpsPoints filters samples to those with both coordinates, returning
// the points and a mapping from filtered position back to original index.
func extractGpsPoints(samples []Sample) ([]gpsPoint, []int) {
	var points []gpsPoint
	var indexMap []int
	for i, s := range samples {
		if s.Lat == nil || s.Lng == nil {
			continue
		}
		points = append(points, gpsPoint{lat: *s.Lat, lng: *s.Lng})
		indexMap = append(indexMap, i)
	}
	return points, indexMap
}

func rdpIterative(points []gpsPoint, epsilon float64) []bool {
	n := len(points)
	keep := make([]bool, n)
	keep[0] = true
	keep[n-1] = true

	stack := [][2]int{{0, n - 1}}
	for len(stack) > 0 {
		rng := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		start, end := rng[0], rng[1]
		if end-start <= 1 {
			continue
		}

		maxIdx, maxDist := farthestPoint(points, start, end)
		if maxDist > epsilon {
			keep[maxIdx] = true
			stack = append(stack, [2]int{start, maxIdx}, [2]int{maxIdx, end})
		}
	}
	return keep
}

// farthestPoint finds the point strictly between start and end with the
// maximum perpendicular distance to the chord. Ties go to the first point in
// forward scan order.
func farthestPoint(points []gpsPoint, start, end int) (int, float64) {
	maxIdx := start
	maxDist := 0.0

	lineStart := points[start]
	lineEnd := points[end]

	for i := start + 1; i < end; i++ {
		dist := perpendicularDistance(points[i], lineStart, lineEnd)
		if dist > maxDist {
			maxDist = dist
			maxIdx = i
		}
	}
	return maxIdx, maxDist
}

// perpendicularDistance returns the distance in meters from point to the
// line through lineStart and lineEnd, computed with the cross product in
// degree space and projected to meters at the chord's average latitude.
func perpendicularDistance(point, lineStart, lineEnd gpsPoint) float64 {
	lineDx := lineEnd.lng - lineStart.lng
	lineDy := lineEnd.lat - lineStart.lat
	pointDx := point.lng - lineStart.lng
	pointDy := point.lat - lineStart.lat

	cross := pointDx*lineDy - pointDy*lineDx
	lineLenDeg := math.Sqrt(lineDx*lineDx + lineDy*lineDy)

	if lineLenDeg < coincidentThreshold {
		// Chord degenerates to a point.
		return EquirectangularM(point.lat, point.lng, lineStart.lat, lineStart.lng)
	}

	distDeg := math.Abs(cross) / lineLenDeg
	avgLat := (lineStart.lat + lineEnd.lat) / 2
	return degreesToMeters(distDeg, avgLat)
}

// EquirectangularM returns the distance in meters between two coordinates
// using an equirectangular projection. About 30x faster than haversine with
// <0.5% error below 100 km, which is all a single activity track needs.
func EquirectangularM(lat1, lng1, lat2, lng2 float64) float64 {
	avgLatRad := (lat1 + lat2) / 2 * math.Pi / 180
	metersPerDegreeLng := MetersPerDegreeLat * math.Cos(avgLatRad)

	dx := (lng2 - lng1) * metersPerDegreeLng
	dy := (lat2 - lat1) * MetersPerDegreeLat
	return math.Sqrt(dx*dx + dy*dy)
}

func degreesToMeters(degrees, latitude float64) float64 {
	latRad := latitude * math.Pi / 180
	metersPerDegree := math.Sqrt(MetersPerDegreeLat*MetersPerDegreeLat +
		(MetersPerDegreeLat*math.Cos(latRad))*(MetersPerDegreeLat*math.Cos(latRad)))
	return degrees * metersPerDegree
}

// HaversineKm returns the great-circle distance between two coordinates in
// kilometers.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	const earthRadiusKm = 6371.0

	dLat := (lat2 - lat1) * math.Pi / 180
	dLng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
