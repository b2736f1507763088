package coords

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// XYZ is a geocentric cartesian position in meters.
type XYZ struct {
	X, Y, Z float64
}

// Sub returns p - q.
func (p XYZ) Sub(q XYZ) XYZ {
	return XYZ{X: p.X - q.X, Y: p.Y - q.Y, Z: p.Z - q.Z}
}

// Site is an array reference position on the ellipsoid.
type Site struct {
	LatitudeRad  float64
	LongitudeRad float64
	AltitudeM    float64
}

// RotateZ rotates p about the z axis by the given angle.
//
// All antenna positions destined for a container file go through this one
// function so the antenna table and per-row UVW coordinates stay in the same
// frame.
func RotateZ(p XYZ, angleRad float64) XYZ {
	s, c := math.Sincos(angleRad)
	r := mat.NewDense(3, 3, []float64{
		c, -s, 0,
		s, c, 0,
		0, 0, 1,
	})
	v := mat.NewVecDense(3, []float64{p.X, p.Y, p.Z})
	var out mat.VecDense
	out.MulVec(r, v)
	return XYZ{X: out.AtVec(0), Y: out.AtVec(1), Z: out.AtVec(2)}
}

// ToStationFrame expresses an absolute geocentric antenna position relative to
// the array reference, rotated about the z axis so the x axis passes through
// the array's meridian.
func ToStationFrame(p, arrayCentre XYZ, site Site) XYZ {
	return RotateZ(p.Sub(arrayCentre), -site.LongitudeRad)
}
