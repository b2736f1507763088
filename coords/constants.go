package coords

import "math"

// Physical and site constants shared by the coordinate and visibility code.
const (
	// SpeedOfLight is the speed of light in a vacuum [m/s].
	SpeedOfLight = 299792458.0

	// Tau is one full turn in radians.
	Tau = 2 * math.Pi

	// WGS84 reference ellipsoid.
	WGS84SemiMajorAxis = 6378137.0
	WGS84Flattening    = 1.0 / 298.257223563

	// J2000 as a Julian date, and days per Julian century.
	J2000        = 2451545.0
	JulianCentury = 36525.0

	// MJDToJD converts a modified Julian date to a Julian date.
	MJDToJD = 2400000.5
)

// MWA site coordinates, matching the values the calibration software bakes in.
const (
	MWALatitudeDeg  = -26.70331940
	MWALongitudeDeg = 116.67081524
	MWAAltitudeM    = 377.827
)

// MWASite returns the MWA array reference position.
func MWASite() Site {
	return Site{
		LatitudeRad:  MWALatitudeDeg * math.Pi / 180,
		LongitudeRad: MWALongitudeDeg * math.Pi / 180,
		AltitudeM:    MWAAltitudeM,
	}
}
