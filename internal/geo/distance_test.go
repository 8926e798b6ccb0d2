package geo

import (
	"math"
	"testing"
)

func TestDistanceKm(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		wantKm                 float64
		tolerance              float64
	}{
		{"same point", 12.9716, 77.5946, 12.9716, 77.5946, 0, 0.001},
		{"bangalore to chennai", 12.9716, 77.5946, 13.0827, 80.2707, 290.0, 5.0},
		{"short hop across city", 12.9716, 77.5946, 12.9816, 77.6046, 1.55, 0.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceKm(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			if math.Abs(got-tt.wantKm) > tt.tolerance {
				t.Errorf("DistanceKm() = %v, want %v ± %v", got, tt.wantKm, tt.tolerance)
			}
		})
	}
}

func TestDistanceKmSymmetric(t *testing.T) {
	d1 := DistanceKm(12.9716, 77.5946, 13.0827, 80.2707)
	d2 := DistanceKm(13.0827, 80.2707, 12.9716, 77.5946)
	if math.Abs(d1-d2) > 1e-9 {
		t.Errorf("distance not symmetric: %v vs %v", d1, d2)
	}
}

func TestFormatDistance(t *testing.T) {
	if got := FormatDistance(0.45); got != "450m" {
		t.Errorf("FormatDistance(0.45) = %q, want 450m", got)
	}
	if got := FormatDistance(2.34); got != "2.3km" {
		t.Errorf("FormatDistance(2.34) = %q, want 2.3km", got)
	}
}
