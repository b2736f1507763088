package coords

import (
	"errors"
	"math"
	"testing"
)

func TestRotateZ(t *testing.T) {
	got := RotateZ(XYZ{X: 1}, math.Pi/2)
	if math.Abs(got.X) > 1e-12 || math.Abs(got.Y-1) > 1e-12 || got.Z != 0 {
		t.Fatalf("got %+v", got)
	}

	// Rotation about z leaves z alone and preserves length.
	p := XYZ{X: 3, Y: -4, Z: 5}
	r := RotateZ(p, 1.23)
	if r.Z != 5 {
		t.Errorf("z changed: %v", r.Z)
	}
	before := math.Hypot(p.X, p.Y)
	after := math.Hypot(r.X, r.Y)
	if math.Abs(before-after) > 1e-9 {
		t.Errorf("length changed: %v -> %v", before, after)
	}

	// Rotating back is the identity.
	back := RotateZ(r, -1.23)
	if math.Abs(back.X-p.X) > 1e-9 || math.Abs(back.Y-p.Y) > 1e-9 {
		t.Errorf("round trip drifted: %+v", back)
	}
}

func TestToStationFrame(t *testing.T) {
	centre := XYZ{X: 100, Y: 200, Z: 300}
	site := Site{LongitudeRad: math.Pi / 2}

	// A point one meter east of the centre in y lands on the x axis after the
	// meridian rotation.
	got := ToStationFrame(XYZ{X: 100, Y: 201, Z: 300}, centre, site)
	if math.Abs(got.X-1) > 1e-12 || math.Abs(got.Y) > 1e-12 || got.Z != 0 {
		t.Fatalf("got %+v", got)
	}
}

func TestGeodeticToGeocentric(t *testing.T) {
	p, err := GeodeticToGeocentric(MWASite())
	if err != nil {
		t.Fatal(err)
	}

	// Southern hemisphere, longitude in (90, 180): x negative, y positive,
	// z negative, with a geocentric distance near the WGS84 ellipsoid.
	if p.X >= 0 || p.Y <= 0 || p.Z >= 0 {
		t.Errorf("unexpected octant: %+v", p)
	}
	r := math.Sqrt(p.X*p.X + p.Y*p.Y + p.Z*p.Z)
	if r < 6.35e6 || r > 6.40e6 {
		t.Errorf("geocentric distance %v m", r)
	}
}

func TestGeodeticToGeocentricErrors(t *testing.T) {
	if _, err := GeodeticToGeocentric(Site{LatitudeRad: 2}); !errors.Is(err, ErrGeodetic) {
		t.Errorf("latitude out of range: err = %v", err)
	}
	if _, err := GeodeticToGeocentric(Site{AltitudeM: math.NaN()}); !errors.Is(err, ErrGeodetic) {
		t.Errorf("NaN altitude: err = %v", err)
	}
}

func TestGMST(t *testing.T) {
	// GMST at the J2000 epoch is a textbook value.
	got := GMST(J2000) * 180 / math.Pi
	if math.Abs(got-280.46062) > 1e-3 {
		t.Fatalf("GMST(J2000) = %v degrees", got)
	}

	// Always normalized to [0, Tau).
	for _, jd := range []float64{2456580.5, 2456581.5, 2400000.5} {
		g := GMST(jd)
		if g < 0 || g >= Tau {
			t.Errorf("GMST(%v) = %v out of range", jd, g)
		}
	}

	// One sidereal day later the angle comes back around, about 0.9856
	// degrees further per solar day.
	g0 := GMST(2456580.5)
	g1 := GMST(2456581.5)
	delta := math.Mod(g1-g0+Tau, Tau) * 180 / math.Pi
	if math.Abs(delta-0.9856) > 1e-3 {
		t.Errorf("daily advance = %v degrees", delta)
	}
}
