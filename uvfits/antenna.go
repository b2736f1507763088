package uvfits

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/cwsl/uvconvert/coords"
	"github.com/cwsl/uvconvert/fitsbin"
	"github.com/cwsl/uvconvert/vis"
)

// The antenna table is an "AIPS AN" binary table with one row per antenna.
var antennaColumns = []fitsbin.TableColumn{
	{Name: "ANNAME", Form: "8A"},
	{Name: "STABXYZ", Form: "3D", Unit: "METERS"},
	{Name: "NOSTA", Form: "1J"},
	{Name: "MNTSTA", Form: "1J"},
	{Name: "STAXOF", Form: "1E", Unit: "METERS"},
	{Name: "POLTYA", Form: "1A"},
	{Name: "POLAA", Form: "1E", Unit: "DEGREES"},
	{Name: "POLCALA", Form: "3E"},
	{Name: "POLTYB", Form: "1A"},
	{Name: "POLAB", Form: "1E", Unit: "DEGREES"},
	{Name: "POLCALB", Form: "3E"},
}

// AppendAntennaTable writes the antenna table extension. positions are
// absolute geocentric antenna coordinates; each is written relative to the
// array reference and rotated into the station frame. Station numbers are
// 1-based and match row order.
func (c *Container) AppendAntennaTable(refEpoch time.Time, centreFreqHz float64, names []string, positions []coords.XYZ, site coords.Site) error {
	if len(names) != len(positions) {
		return fmt.Errorf("uvfits: %d antenna names for %d positions", len(names), len(positions))
	}

	arrayCentre, err := coords.GeodeticToGeocentric(site)
	if err != nil {
		return fmt.Errorf("uvfits: array position: %w", err)
	}

	h, err := fitsbin.BinaryTableHeader(antennaColumns, len(names), "AIPS AN")
	if err != nil {
		return err
	}

	h.Append("ARRAYX", arrayCentre.X, "")
	h.Append("ARRAYY", arrayCentre.Y, "")
	h.Append("ARRAYZ", arrayCentre.Z, "")
	h.Append("FREQ", centreFreqHz, "")

	// Greenwich mean sidereal time at the start of the reference day.
	mjd := math.Floor(vis.ModifiedJulianDate(refEpoch))
	gmst := coords.GMST(coords.MJDToJD+mjd) * 180 / math.Pi
	h.Append("GSTIA0", gmst, "")
	h.Append("DEGPDY", 3.60985e2, "Earth rotation rate")
	h.Append("RDATE", vis.TruncatedDate(refEpoch), "")

	h.Append("POLARX", 0.0, "")
	h.Append("POLARY", 0.0, "")
	h.Append("UT1UTC", 0.0, "")
	h.Append("DATUTC", 0.0, "")
	h.Append("TIMSYS", "UTC", "")
	h.Append("ARRNAM", telescopeName, "")
	h.Append("NUMORB", 0, "orbital parameters in table")
	h.Append("NOPCAL", 3, "pol calibration values per IF")
	h.Append("FREQID", -1, "frequency setup number")
	h.Append("IATUTC", 33.0, "")
	h.Append("XYZHAND", "RIGHT", "")

	if err := c.w.AppendHDU(h); err != nil {
		return fmt.Errorf("uvfits: writing antenna table header: %w", err)
	}

	rowWidth, err := fitsbin.RowWidth(antennaColumns)
	if err != nil {
		return err
	}
	for i := range names {
		stationPos := coords.ToStationFrame(positions[i], arrayCentre, site)
		row := encodeAntennaRow(names[i], stationPos, int32(i+1), rowWidth)
		if err := c.w.WriteDataAt(int64(i)*int64(rowWidth), row); err != nil {
			return fmt.Errorf("uvfits: writing antenna row %d: %w", i+1, err)
		}
	}
	return nil
}

func encodeAntennaRow(name string, pos coords.XYZ, station int32, rowWidth int) []byte {
	row := make([]byte, 0, rowWidth)

	row = append(row, fitsbin.PadString(name, 8)...) // ANNAME
	for _, v := range []float64{pos.X, pos.Y, pos.Z} { // STABXYZ
		row = binary.BigEndian.AppendUint64(row, math.Float64bits(v))
	}
	row = binary.BigEndian.AppendUint32(row, uint32(station)) // NOSTA
	row = binary.BigEndian.AppendUint32(row, 0)               // MNTSTA: alt-az
	row = binary.BigEndian.AppendUint32(row, 0)               // STAXOF

	row = append(row, 'X')                                        // POLTYA
	row = binary.BigEndian.AppendUint32(row, math.Float32bits(0)) // POLAA
	for i := 0; i < 3; i++ {                                      // POLCALA
		row = binary.BigEndian.AppendUint32(row, 0)
	}
	row = append(row, 'Y')                                         // POLTYB
	row = binary.BigEndian.AppendUint32(row, math.Float32bits(90)) // POLAB
	for i := 0; i < 3; i++ {                                       // POLCALB
		row = binary.BigEndian.AppendUint32(row, 0)
	}
	return row
}
