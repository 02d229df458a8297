package geo

import (
	"math"
	"testing"
)

func TestDistanceKm(t *testing.T) {
	tests := []struct {
		name      string
		a, b      Point
		wantKm    float64
		tolerance float64
	}{
		{
			name:      "same point",
			a:         Point{Lon: 30.5, Lat: 50.4},
			b:         Point{Lon: 30.5, Lat: 50.4},
			wantKm:    0,
			tolerance: 0.001,
		},
		{
			name: "one degree latitude",
			a:    Point{Lon: 0, Lat: 0},
			b:    Point{Lon: 0, Lat: 1},
			// One degree of latitude is about 111.2 km.
			wantKm:    111.2,
			tolerance: 0.5,
		},
		{
			name:      "kyiv to kharkiv",
			a:         Point{Lon: 30.5234, Lat: 50.4501},
			b:         Point{Lon: 36.2304, Lat: 49.9935},
			wantKm:    409,
			tolerance: 5,
		},
		{
			name:      "antipodal",
			a:         Point{Lon: 0, Lat: 0},
			b:         Point{Lon: 180, Lat: 0},
			wantKm:    math.Pi * 6371.0,
			tolerance: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceKm(tt.a, tt.b)
			if math.Abs(got-tt.wantKm) > tt.tolerance {
				t.Errorf("DistanceKm = %.3f, want %.3f ± %.3f", got, tt.wantKm, tt.tolerance)
			}
		})
	}
}

func TestDistanceSymmetric(t *testing.T) {
	a := Point{Lon: 30.5, Lat: 50.4}
	b := Point{Lon: 36.2, Lat: 49.9}
	if d1, d2 := DistanceKm(a, b), DistanceKm(b, a); math.Abs(d1-d2) > 1e-9 {
		t.Errorf("distance not symmetric: %v vs %v", d1, d2)
	}
}

func TestCentroid(t *testing.T) {
	if _, ok := Centroid(nil); ok {
		t.Error("expected no centroid for empty slice")
	}

	c, ok := Centroid([]Point{{Lon: 10, Lat: 20}})
	if !ok || c.Lon != 10 || c.Lat != 20 {
		t.Errorf("single-point centroid = %+v, ok=%v", c, ok)
	}

	c, ok = Centroid([]Point{
		{Lon: 0, Lat: 0},
		{Lon: 2, Lat: 4},
	})
	if !ok || c.Lon != 1 || c.Lat != 2 {
		t.Errorf("centroid = %+v, want {1 2}", c)
	}
}
