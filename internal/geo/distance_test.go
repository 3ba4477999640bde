package geo

import "testing"

func TestHaversineKm_ZeroDistance(t *testing.T) {
	d := HaversineKm(10, 20, 10, 20)
	if d < 0 || d > 1e-9 {
		t.Fatalf("zero distance expected ~0, got %v", d)
	}
}

func TestHaversineKm_OneDegreeLatitude(t *testing.T) {
	// One degree of latitude is ~111 km everywhere.
	d := HaversineKm(0, 0, 1, 0)
	if d < 110 || d > 112.5 {
		t.Fatalf("one degree latitude = %v km, want ~111", d)
	}
}

func TestIsWithinRadiusKm(t *testing.T) {
	if !IsWithinRadiusKm(12.9716, 77.5946, 12.9800, 77.6000, 5) {
		t.Fatalf("expected points ~1km apart to be within 5km")
	}
	if IsWithinRadiusKm(12.9716, 77.5946, 13.2, 77.9, 5) {
		t.Fatalf("expected far points to be outside 5km")
	}
}

func TestBoundingBoxKm_ContainsRadius(t *testing.T) {
	lat, lng := 28.6139, 77.2090
	box := BoundingBoxKm(lat, lng, 5)
	if !box.Contains(lat, lng) {
		t.Fatalf("box must contain its centre")
	}
	// A point 4.9 km north must be inside the box.
	north := lat + 4.9/KmPerDegreeLat
	if !box.Contains(north, lng) {
		t.Fatalf("box must contain a point inside the radius")
	}
	if box.Contains(lat+0.2, lng) {
		t.Fatalf("box must not contain a point ~22km away")
	}
}

func TestValidCoordinates(t *testing.T) {
	if !ValidCoordinates(0, 0) || ValidCoordinates(91, 0) || ValidCoordinates(0, -181) {
		t.Fatalf("coordinate range check is wrong")
	}
}

func TestBoundingBoxKm_AntimeridianAndPoles(t *testing.T) {
	// Suva sits next to the antimeridian; a courier just across it is ~2 km away.
	lat, east, west := -18.1, 179.99, -179.99
	if d := HaversineKm(lat, east, lat, west); d > 3 {
		t.Fatalf("points across the antimeridian = %v km, want ~2", d)
	}
	for _, lng := range []float64{east, west} {
		box := BoundingBoxKm(lat, lng, 5)
		if !box.Contains(lat, east) || !box.Contains(lat, west) {
			t.Fatalf("box around %v must reach across the antimeridian: %+v", lng, box)
		}
		if box.MinLng > box.MaxLng {
			t.Fatalf("box longitudes inverted: %+v", box)
		}
	}

	polar := BoundingBoxKm(89.99, 10, 5)
	if polar.MinLng != -180 || polar.MaxLng != 180 || polar.MaxLat != 90 {
		t.Fatalf("box reaching the pole must span every longitude: %+v", polar)
	}

	inland := BoundingBoxKm(12.97, 77.59, 5)
	if inland.MinLng == -180 || inland.MaxLng == 180 {
		t.Fatalf("an ordinary box must stay narrow: %+v", inland)
	}
}
