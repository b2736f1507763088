// Package uvfits writes random-group visibility containers in the layout the
// downstream calibration program reads.
package uvfits

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/cwsl/uvconvert/fitsbin"
	"github.com/cwsl/uvconvert/vis"
)

// Container Body Layout
// =====================
//
// The primary HDU is a random-group unit (GROUPS=T, BITPIX=-32). One group is
// written per visibility row:
//
// Offset (floats) | Count        | Description
// ----------------|--------------|------------------------------------------
// 0               | 1            | UU: u in light-travel-time seconds
// 1               | 1            | VV: v in light-travel-time seconds
// 2               | 1            | WW: w in light-travel-time seconds
// 3               | 1            | BASELINE: packed antenna pair
// 4               | 1            | DATE: fractional-day offset from PZERO5
// 5               | chans*4*3    | (real, imag, weight) per pol per channel,
//                 |              | pol order XX, YY, XY, YX
//
// All values are big-endian IEEE float32. Only the DATE parameter carries a
// non-zero zero offset (PZERO5 = floor(reference JD) + 0.5).

const (
	numGroupParams = 5

	telescopeName  = "MWA"
	instrumentName = "MWA"
)

// Container is an open random-group container. The file handle is exclusively
// owned by the Container until Close.
type Container struct {
	w        *fitsbin.Writer
	path     string
	numRows  int
	numChans int
	rowBytes int64
}

// EncodeBaseline packs a pair of 1-based antenna indices into the legacy
// baseline convention: a1*256 + a2, extended to a1*2048 + a2 + 65536 when a2
// exceeds 255 (supports up to 2048 antennas, backwards compatible below 256).
func EncodeBaseline(a1, a2 uint32) uint32 {
	if a2 > 255 {
		return a1*2048 + a2 + 65536
	}
	return a1*256 + a2
}

// Create writes a new container at path, replacing any existing file, and
// lays down the full primary header. Rows are then written with WriteRow.
func Create(path string, numRows, numChans int, refEpoch time.Time, chanWidthHz uint32, centreFreqHz float64, centreChan uint32, raRad, decRad float64, objectName string) (*Container, error) {
	w, err := fitsbin.Create(path)
	if err != nil {
		return nil, fmt.Errorf("uvfits: creating %s: %w", path, err)
	}

	h := fitsbin.NewHeader()
	h.Append("SIMPLE", true, "conforms to FITS standard")
	h.Append("BITPIX", -32, "IEEE single precision floating point")
	h.Append("NAXIS", 6, "")
	h.Append("NAXIS1", 0, "no standard image, random groups")
	h.Append("NAXIS2", 3, "real, imaginary, weight")
	h.Append("NAXIS3", 4, "polarizations")
	h.Append("NAXIS4", numChans, "fine channels")
	h.Append("NAXIS5", 1, "")
	h.Append("NAXIS6", 1, "")
	h.Append("EXTEND", true, "")
	h.Append("GROUPS", true, "random group records follow")
	h.Append("PCOUNT", numGroupParams, "parameters per group")
	h.Append("GCOUNT", numRows, "number of groups (rows)")
	h.Append("BSCALE", 1.0, "")

	// Group parameter names and scaling. Only DATE gets a zero offset: the
	// truncated reference Julian date.
	truncJD := vis.TruncatedJulianDate(refEpoch)
	for i, param := range []string{"UU", "VV", "WW", "BASELINE", "DATE"} {
		n := i + 1
		h.Append(fmt.Sprintf("PTYPE%d", n), param, "")
		h.Append(fmt.Sprintf("PSCAL%d", n), 1.0, "")
		if param == "DATE" {
			h.Append(fmt.Sprintf("PZERO%d", n), truncJD, "truncated reference JD")
		} else {
			h.Append(fmt.Sprintf("PZERO%d", n), 0.0, "")
		}
	}
	h.Append("DATE-OBS", vis.TruncatedDate(refEpoch), "")

	h.Append("CTYPE2", "COMPLEX", "")
	h.Append("CRVAL2", 1.0, "")
	h.Append("CRPIX2", 1.0, "")
	h.Append("CDELT2", 1.0, "")

	// Linearly polarised.
	h.Append("CTYPE3", "STOKES", "")
	h.Append("CRVAL3", -5, "")
	h.Append("CDELT3", -1, "")
	h.Append("CRPIX3", 1.0, "")

	h.Append("CTYPE4", "FREQ", "")
	h.Append("CRVAL4", centreFreqHz, "")
	h.Append("CDELT4", chanWidthHz, "")
	h.Append("CRPIX4", centreChan+1, "")

	h.Append("CTYPE5", "RA", "")
	h.Append("CRVAL5", raRad*180/math.Pi, "")
	h.Append("CDELT5", 1, "")
	h.Append("CRPIX5", 1, "")

	h.Append("CTYPE6", "DEC", "")
	h.Append("CRVAL6", decRad*180/math.Pi, "")
	h.Append("CDELT6", 1, "")
	h.Append("CRPIX6", 1, "")

	h.Append("OBSRA", raRad*180/math.Pi, "")
	h.Append("OBSDEC", decRad*180/math.Pi, "")
	h.Append("EPOCH", 2000.0, "")

	if objectName == "" {
		objectName = "Undefined"
	}
	h.Append("OBJECT", objectName, "")
	h.Append("TELESCOP", telescopeName, "")
	h.Append("INSTRUME", instrumentName, "")

	// The calibration program insists on this history card.
	h.Append("HISTORY", "AIPS WTSCAL =  1.0", "")

	if err := w.AppendHDU(h); err != nil {
		w.Close()
		return nil, fmt.Errorf("uvfits: writing %s header: %w", path, err)
	}

	return &Container{
		w:        w,
		path:     path,
		numRows:  numRows,
		numChans: numChans,
		rowBytes: int64(numGroupParams+numChans*vis.NumPols*vis.FloatsPerPol) * 4,
	}, nil
}

// RowParams are the five scalar group parameters of one row.
type RowParams struct {
	U, V, W    float32 // light-travel-time seconds
	Baseline   uint32  // from EncodeBaseline
	DateOffset float32 // fractional days past the truncated reference JD
}

// WriteRow writes one group record at the given row index. samples must hold
// exactly chans * 4 pols * 3 floats, already in container polarization order.
func (c *Container) WriteRow(rowIndex int, params RowParams, samples []float32) error {
	want := c.numChans * vis.NumPols * vis.FloatsPerPol
	if len(samples) != want {
		return fmt.Errorf("uvfits: row %d has %d samples, want %d", rowIndex, len(samples), want)
	}
	if rowIndex < 0 || rowIndex >= c.numRows {
		return fmt.Errorf("uvfits: row index %d outside [0,%d)", rowIndex, c.numRows)
	}

	buf := make([]byte, c.rowBytes)
	binary.BigEndian.PutUint32(buf[0:], math.Float32bits(params.U))
	binary.BigEndian.PutUint32(buf[4:], math.Float32bits(params.V))
	binary.BigEndian.PutUint32(buf[8:], math.Float32bits(params.W))
	binary.BigEndian.PutUint32(buf[12:], math.Float32bits(float32(params.Baseline)))
	binary.BigEndian.PutUint32(buf[16:], math.Float32bits(params.DateOffset))
	for i, s := range samples {
		binary.BigEndian.PutUint32(buf[(numGroupParams+i)*4:], math.Float32bits(s))
	}
	return c.w.WriteDataAt(int64(rowIndex)*c.rowBytes, buf)
}

// Close flushes and closes the container file.
func (c *Container) Close() error {
	return c.w.Close()
}
