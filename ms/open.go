package ms

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/cwsl/uvconvert/coords"
)

// Visibility Dump Layout
// ======================
//
// A dump is a directory holding the exported slice of a measurement set:
//
//   meta.yaml - channel layout, antennas, subbands, phase centre, row count
//   rows.bin  - fixed-size binary row records, big-endian
//
// ROW RECORD FORMAT:
// ------------------
// Offset | Size      | Type      | Description
// -------|-----------|-----------|------------------------------------------
// 0      | 8         | float64   | Row time, seconds since the MJD epoch
// 8      | 4         | int32     | Antenna 1 (0-based)
// 12     | 4         | int32     | Antenna 2 (0-based)
// 16     | 24        | 3 float64 | u, v, w in meters
// 40     | nchan*4*8 | complex64 | Visibilities, channel-major, pols
//        |           |           | XX, XY, YX, YY (real then imag float32)
// ...    | nchan*4*4 | float32   | Weights, same ordering
//
// nchan counts every fine channel across all coarse bands.

type metaFile struct {
	NumRows     int       `yaml:"num_rows"`
	BaseFreqHz  float64   `yaml:"base_freq_hz"`
	ChanWidthHz float64   `yaml:"chan_width_hz"`
	NumChans    int       `yaml:"num_chans"`
	RARad       float64   `yaml:"ra_rad"`
	DecRad      float64   `yaml:"dec_rad"`
	Subbands    []int     `yaml:"subbands"`
	Antennas    []antenna `yaml:"antennas"`
}

type antenna struct {
	Name string  `yaml:"name"`
	X    float64 `yaml:"x"`
	Y    float64 `yaml:"y"`
	Z    float64 `yaml:"z"`
}

// Open loads a visibility dump directory into memory.
func Open(dir string) (*MemDataset, error) {
	rawMeta, err := os.ReadFile(filepath.Join(dir, "meta.yaml"))
	if err != nil {
		return nil, fmt.Errorf("ms: reading dump metadata: %w", err)
	}
	var meta metaFile
	if err := yaml.Unmarshal(rawMeta, &meta); err != nil {
		return nil, fmt.Errorf("ms: parsing dump metadata: %w", err)
	}
	if meta.NumChans <= 1 {
		return nil, fmt.Errorf("ms: found %d fine channels; not continuing", meta.NumChans)
	}
	if meta.ChanWidthHz <= 0 {
		return nil, fmt.Errorf("ms: non-positive channel width %v", meta.ChanWidthHz)
	}

	freqs := make([]float64, meta.NumChans)
	for i := range freqs {
		freqs[i] = meta.BaseFreqHz + float64(i)*meta.ChanWidthHz
	}

	d := &MemDataset{
		Chans: ChannelInfo{
			FreqsHz:          freqs,
			WidthHz:          meta.ChanWidthHz,
			TotalBandwidthHz: meta.ChanWidthHz * float64(meta.NumChans),
		},
		RARad:  meta.RARad,
		DecRad: meta.DecRad,
		Bands:  meta.Subbands,
	}
	for _, a := range meta.Antennas {
		d.Names = append(d.Names, a.Name)
		d.Position = append(d.Position, coords.XYZ{X: a.X, Y: a.Y, Z: a.Z})
	}

	raw, err := os.ReadFile(filepath.Join(dir, "rows.bin"))
	if err != nil {
		return nil, fmt.Errorf("ms: reading dump rows: %w", err)
	}
	recSize := 40 + meta.NumChans*4*8 + meta.NumChans*4*4
	if len(raw) != meta.NumRows*recSize {
		return nil, fmt.Errorf("ms: rows.bin is %d bytes, want %d rows x %d", len(raw), meta.NumRows, recSize)
	}

	d.Rows = make([]Row, meta.NumRows)
	for i := 0; i < meta.NumRows; i++ {
		rec := raw[i*recSize : (i+1)*recSize]
		row := &d.Rows[i]
		row.Time = math.Float64frombits(binary.BigEndian.Uint64(rec[0:]))
		row.Antenna1 = int(int32(binary.BigEndian.Uint32(rec[8:])))
		row.Antenna2 = int(int32(binary.BigEndian.Uint32(rec[12:])))
		for j := 0; j < 3; j++ {
			row.UVW[j] = math.Float64frombits(binary.BigEndian.Uint64(rec[16+j*8:]))
		}
		off := 40
		row.Vis = make([]complex64, meta.NumChans*4)
		for j := range row.Vis {
			re := math.Float32frombits(binary.BigEndian.Uint32(rec[off:]))
			im := math.Float32frombits(binary.BigEndian.Uint32(rec[off+4:]))
			row.Vis[j] = complex(re, im)
			off += 8
		}
		row.Weights = make([]float32, meta.NumChans*4)
		for j := range row.Weights {
			row.Weights[j] = math.Float32frombits(binary.BigEndian.Uint32(rec[off:]))
			off += 4
		}
	}
	return d, nil
}
