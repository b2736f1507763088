// Package ms is the boundary to the relational visibility table. The
// conversion pipeline only ever sees the Dataset interface; anything that can
// produce rows, channel metadata and an antenna layout can feed it.
package ms

import (
	"fmt"

	"github.com/cwsl/uvconvert/coords"
)

// FallbackAntennaName is substituted when the table hands back an empty
// antenna name. Some table readers always return the first string of a column
// as null; the fallback keeps that quirk out of the container codec.
const FallbackAntennaName = "Tile011"

// ChannelInfo describes the dataset's fine-channel layout across all coarse
// bands.
type ChannelInfo struct {
	// FreqsHz is the sky frequency of every fine channel, ascending.
	FreqsHz []float64
	// WidthHz is the (uniform) fine channel width.
	WidthHz float64
	// TotalBandwidthHz covers the whole dataset.
	TotalBandwidthHz float64
}

// Row is one visibility row: one baseline at one time step, all channels.
// Vis and Weights are channel-major with four instrumental polarization
// products (XX, XY, YX, YY) per channel.
type Row struct {
	Time     float64 // seconds since the MJD epoch
	Antenna1 int     // 0-based
	Antenna2 int     // 0-based
	UVW      [3]float64
	Vis      []complex64
	Weights  []float32
}

// Dataset is a read-only visibility table.
type Dataset interface {
	NumRows() int
	Row(i int) (*Row, error)
	// Times returns the timestamp of every row, in row order.
	Times() []float64
	Channels() ChannelInfo
	// PhaseCentre returns the pointing right ascension and declination in
	// radians.
	PhaseCentre() (raRad, decRad float64)
	AntennaNames() []string
	AntennaPositions() []coords.XYZ
	// Subbands returns the 1-based coarse band numbers present.
	Subbands() []int
}

// MemDataset is an in-memory Dataset.
type MemDataset struct {
	Rows     []Row
	Chans    ChannelInfo
	RARad    float64
	DecRad   float64
	Names    []string
	Position []coords.XYZ
	Bands    []int
}

var _ Dataset = (*MemDataset)(nil)

func (d *MemDataset) NumRows() int { return len(d.Rows) }

func (d *MemDataset) Row(i int) (*Row, error) {
	if i < 0 || i >= len(d.Rows) {
		return nil, fmt.Errorf("ms: row %d outside [0,%d)", i, len(d.Rows))
	}
	return &d.Rows[i], nil
}

func (d *MemDataset) Times() []float64 {
	times := make([]float64, len(d.Rows))
	for i := range d.Rows {
		times[i] = d.Rows[i].Time
	}
	return times
}

func (d *MemDataset) Channels() ChannelInfo { return d.Chans }

func (d *MemDataset) PhaseCentre() (float64, float64) { return d.RARad, d.DecRad }

// AntennaNames returns the antenna names with the null-first-name quirk
// resolved: an empty name becomes FallbackAntennaName.
func (d *MemDataset) AntennaNames() []string {
	names := make([]string, len(d.Names))
	for i, n := range d.Names {
		if n == "" {
			n = FallbackAntennaName
		}
		names[i] = n
	}
	return names
}

func (d *MemDataset) AntennaPositions() []coords.XYZ { return d.Position }

func (d *MemDataset) Subbands() []int {
	if len(d.Bands) == 0 {
		return []int{1}
	}
	return d.Bands
}
