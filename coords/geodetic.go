package coords

import (
	"errors"
	"fmt"
	"math"
)

// ErrGeodetic is returned when a geodetic conversion is handed coordinates it
// cannot represent.
var ErrGeodetic = errors.New("coords: geodetic conversion failed")

// GeodeticToGeocentric converts a site's geodetic coordinates (WGS84) to a
// geocentric cartesian position.
func GeodeticToGeocentric(site Site) (XYZ, error) {
	if math.Abs(site.LatitudeRad) > math.Pi/2 {
		return XYZ{}, fmt.Errorf("%w: latitude %f rad out of range", ErrGeodetic, site.LatitudeRad)
	}
	if math.IsNaN(site.AltitudeM) || math.IsInf(site.AltitudeM, 0) {
		return XYZ{}, fmt.Errorf("%w: non-finite altitude", ErrGeodetic)
	}

	sinLat, cosLat := math.Sincos(site.LatitudeRad)
	sinLon, cosLon := math.Sincos(site.LongitudeRad)

	f := WGS84Flattening
	e2 := 2*f - f*f
	n := WGS84SemiMajorAxis / math.Sqrt(1-e2*sinLat*sinLat)

	return XYZ{
		X: (n + site.AltitudeM) * cosLat * cosLon,
		Y: (n + site.AltitudeM) * cosLat * sinLon,
		Z: (n*(1-e2) + site.AltitudeM) * sinLat,
	}, nil
}

// GMST returns the Greenwich mean sidereal time in radians for the given
// UT1 Julian date, using the IAU 2006 expression. The caller passes the same
// date for terrestrial time, which is accurate enough here.
func GMST(jdUT1 float64) float64 {
	du := jdUT1 - J2000
	// Earth rotation angle.
	frac := math.Mod(du, 1.0)
	era := Tau * math.Mod(0.7790572732640+0.00273781191135448*du+frac, 1.0)

	// GMST = ERA + precession polynomial (arcseconds -> radians).
	t := du / JulianCentury
	poly := 0.014506 +
		t*(4612.156534+
			t*(1.3915817+
				t*(-0.00000044+
					t*(-0.000029956+
						t*(-0.0000000368)))))
	const arcsecToRad = math.Pi / (180.0 * 3600.0)

	gmst := math.Mod(era+poly*arcsecToRad, Tau)
	if gmst < 0 {
		gmst += Tau
	}
	return gmst
}
