package geo

import (
	"errors"
	"math"
	"testing"
)

func TestHaversineKm(t *testing.T) {
	// Jakarta (-6.2, 106.816) to Bandung (-6.9175, 107.6191) ~ 115-120 km
	d := HaversineKm(-6.2, 106.816, -6.9175, 107.6191)
	if d < 100 || d > 140 {
		t.Fatalf("unexpected distance: %v", d)
	}
}

func sample(lat, lng float64) Sample {
	return Sample{Lat: &lat, Lng: &lng}
}

func TestSimplifyEmpty(t *testing.T) {
	_, err := Simplify(nil, 10.0)
	if !errors.Is(err, ErrNoGpsCoordinates) {
		t.Fatalf("expected ErrNoGpsCoordinates, got %v", err)
	}
}

func TestSimplifySinglePoint(t *testing.T) {
	_, err := Simplify([]Sample{sample(48.8566, 2.3522)}, 10.0)
	if !errors.Is(err, ErrNoGpsCoordinates) {
		t.Fatalf("expected ErrNoGpsCoordinates, got %v", err)
	}
}

func TestSimplifyTwoPoints(t *testing.T) {
	indices, err := Simplify([]Sample{sample(48.8566, 2.3522), sample(48.8567, 2.3523)}, 10.0)
	if err != nil {
		t.Fatalf("simplify: %v", err)
	}
	if len(indices) != 2 || indices[0] != 0 || indices[1] != 1 {
		t.Fatalf("expected [0 1], got %v", indices)
	}
}

func TestSimplifyInvalidEpsilon(t *testing.T) {
	points := []Sample{sample(48.8566, 2.3522), sample(48.8567, 2.3523)}

	for _, epsilon := range []float64{-10.0, 0.0, math.NaN(), math.Inf(1)} {
		_, err := Simplify(points, epsilon)
		var epsErr InvalidEpsilonError
		if !errors.As(err, &epsErr) {
			t.Fatalf("epsilon %v: expected InvalidEpsilonError, got %v", epsilon, err)
		}
	}
}

func TestSimplifyNoCoordinates(t *testing.T) {
	_, err := Simplify([]Sample{{}, {}}, 10.0)
	if !errors.Is(err, ErrNoGpsCoordinates) {
		t.Fatalf("expected ErrNoGpsCoordinates, got %v", err)
	}
}

func TestSimplifyCollinearKeepsEndpoints(t *testing.T) {
	points := []Sample{
		sample(48.0, 2.0),
		sample(48.1, 2.1),
		sample(48.2, 2.2),
	}

	indices, err := Simplify(points, 100.0)
	if err != nil {
		t.Fatalf("simplify: %v", err)
	}
	if len(indices) != 2 || indices[0] != 0 || indices[1] != 2 {
		t.Fatalf("expected [0 2], got %v", indices)
	}
}

func TestSimplifyTriangleAllKept(t *testing.T) {
	points := []Sample{
		sample(48.0, 2.0),
		sample(48.1, 2.0),
		sample(48.0, 2.1),
	}

	indices, err := Simplify(points, 1.0)
	if err != nil {
		t.Fatalf("simplify: %v", err)
	}
	if len(indices) != 3 {
		t.Fatalf("expected all 3 points kept, got %v", indices)
	}
}

func TestSimplifyZigzagReduction(t *testing.T) {
	points := []Sample{
		sample(48.0, 2.0),
		sample(48.01, 2.01),
		sample(48.02, 2.0),
		sample(48.03, 2.01),
		sample(48.04, 2.0),
	}

	indices, err := Simplify(points, 2000.0)
	if err != nil {
		t.Fatalf("simplify high tolerance: %v", err)
	}
	if len(indices) != 2 || indices[0] != 0 || indices[1] != 4 {
		t.Fatalf("high tolerance should reduce to endpoints, got %v", indices)
	}

	indices, err = Simplify(points, 10.0)
	if err != nil {
		t.Fatalf("simplify low tolerance: %v", err)
	}
	if len(indices) <= 2 {
		t.Fatalf("low tolerance should keep more points, got %v", indices)
	}
}

func TestSimplifySparseCoordinates(t *testing.T) {
	points := []Sample{
		sample(48.0, 2.0),
		{}, // no GPS fix
		sample(48.2, 2.2),
		sample(48.3, 2.3),
	}

	indices, err := Simplify(points, 10.0)
	if err != nil {
		t.Fatalf("simplify: %v", err)
	}
	// Indices must map back to original positions, skipping the gap.
	if indices[0] != 0 || indices[len(indices)-1] != 3 {
		t.Fatalf("expected endpoints 0 and 3, got %v", indices)
	}
	for _, idx := range indices {
		if idx == 1 {
			t.Fatalf("point without coordinates must never be retained: %v", indices)
		}
	}
}

func TestSimplifyAlwaysKeepsFirstAndLast(t *testing.T) {
	points := []Sample{
		sample(48.0, 2.0),
		sample(48.1, 2.1),
		sample(48.2, 2.2),
		sample(48.3, 2.3),
		sample(48.4, 2.4),
	}

	indices, err := Simplify(points, 1000.0)
	if err != nil {
		t.Fatalf("simplify: %v", err)
	}
	if indices[0] != 0 || indices[len(indices)-1] != 4 {
		t.Fatalf("endpoints must survive any tolerance, got %v", indices)
	}
}

func TestSimplifyIndicesAscending(t *testing.T) {
	var points []Sample
	for i := 0; i < 50; i++ {
		zigzag := 0.0
		if i%2 == 1 {
			zigzag = 0.001
		}
		points = append(points, sample(48.0+float64(i)*0.001, 2.0+zigzag))
	}

	indices, err := Simplify(points, 5.0)
	if err != nil {
		t.Fatalf("simplify: %v", err)
	}
	for i := 1; i < len(indices); i++ {
		if indices[i] <= indices[i-1] {
			t.Fatalf("indices not strictly ascending: %v", indices)
		}
	}
}

func TestEquirectangularM(t *testing.T) {
	// Paris, roughly 1 km east.
	d := EquirectangularM(48.8566, 2.3522, 48.8566, 2.3662)
	if math.Abs(d-1000.0) > 50.0 {
		t.Fatalf("expected ~1000m, got %v", d)
	}
}

func TestPerpendicularDistanceDegenerateChord(t *testing.T) {
	// Both chord endpoints coincide; distance falls back to point-to-point.
	p := gpsPoint{lat: 48.01, lng: 2.0}
	a := gpsPoint{lat: 48.0, lng: 2.0}
	d := perpendicularDistance(p, a, a)
	want := EquirectangularM(48.01, 2.0, 48.0, 2.0)
	if math.Abs(d-want) > 1e-9 {
		t.Fatalf("expected %v, got %v", want, d)
	}
}
