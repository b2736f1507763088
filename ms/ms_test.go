package ms

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestMemDatasetAntennaNameFallback(t *testing.T) {
	d := &MemDataset{Names: []string{"", "Tile012", "Tile013"}}
	names := d.AntennaNames()
	if names[0] != FallbackAntennaName {
		t.Errorf("names[0] = %q", names[0])
	}
	if names[1] != "Tile012" || names[2] != "Tile013" {
		t.Errorf("non-empty names changed: %v", names)
	}
}

func TestMemDatasetSubbandsDefault(t *testing.T) {
	d := &MemDataset{}
	if bands := d.Subbands(); len(bands) != 1 || bands[0] != 1 {
		t.Fatalf("bands = %v", bands)
	}
	d.Bands = []int{3, 4}
	if bands := d.Subbands(); len(bands) != 2 || bands[0] != 3 {
		t.Fatalf("bands = %v", bands)
	}
}

func TestMemDatasetRowBounds(t *testing.T) {
	d := &MemDataset{Rows: make([]Row, 2)}
	if _, err := d.Row(-1); err == nil {
		t.Error("row -1 accepted")
	}
	if _, err := d.Row(2); err == nil {
		t.Error("row 2 accepted")
	}
	if _, err := d.Row(1); err != nil {
		t.Errorf("row 1: %v", err)
	}
}

// writeDump lays out a two-channel, two-row dump directory.
func writeDump(t *testing.T, dir string) {
	t.Helper()

	meta := `num_rows: 2
base_freq_hz: 167035000.0
chan_width_hz: 40000.0
num_chans: 2
ra_rad: 0.1
dec_rad: -0.5
subbands: [1, 2]
antennas:
  - {name: "", x: 1.0, y: 2.0, z: 3.0}
  - {name: Tile012, x: 4.0, y: 5.0, z: 6.0}
`
	if err := os.WriteFile(filepath.Join(dir, "meta.yaml"), []byte(meta), 0644); err != nil {
		t.Fatal(err)
	}

	recSize := 40 + 2*4*8 + 2*4*4
	raw := make([]byte, 2*recSize)
	for r := 0; r < 2; r++ {
		rec := raw[r*recSize:]
		binary.BigEndian.PutUint64(rec[0:], math.Float64bits(4888561712.0+float64(r)*2))
		binary.BigEndian.PutUint32(rec[8:], uint32(0))
		binary.BigEndian.PutUint32(rec[12:], uint32(1))
		for j := 0; j < 3; j++ {
			binary.BigEndian.PutUint64(rec[16+j*8:], math.Float64bits(float64(10*(j+1)+r)))
		}
		off := 40
		for j := 0; j < 2*4; j++ {
			binary.BigEndian.PutUint32(rec[off:], math.Float32bits(float32(j)+0.5))
			binary.BigEndian.PutUint32(rec[off+4:], math.Float32bits(-float32(j)))
			off += 8
		}
		for j := 0; j < 2*4; j++ {
			binary.BigEndian.PutUint32(rec[off:], math.Float32bits(1.0))
			off += 4
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "rows.bin"), raw, 0644); err != nil {
		t.Fatal(err)
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	writeDump(t, dir)

	d, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	if d.NumRows() != 2 {
		t.Fatalf("NumRows = %d", d.NumRows())
	}

	chans := d.Channels()
	if len(chans.FreqsHz) != 2 || chans.FreqsHz[0] != 167035000.0 || chans.FreqsHz[1] != 167075000.0 {
		t.Errorf("freqs = %v", chans.FreqsHz)
	}
	if chans.TotalBandwidthHz != 80000.0 {
		t.Errorf("total bandwidth = %v", chans.TotalBandwidthHz)
	}

	ra, dec := d.PhaseCentre()
	if ra != 0.1 || dec != -0.5 {
		t.Errorf("phase centre = %v, %v", ra, dec)
	}
	if bands := d.Subbands(); len(bands) != 2 || bands[1] != 2 {
		t.Errorf("bands = %v", bands)
	}
	if names := d.AntennaNames(); names[0] != FallbackAntennaName || names[1] != "Tile012" {
		t.Errorf("names = %v", names)
	}
	if pos := d.AntennaPositions(); pos[1].X != 4.0 {
		t.Errorf("positions = %v", pos)
	}

	row, err := d.Row(1)
	if err != nil {
		t.Fatal(err)
	}
	if row.Time != 4888561714.0 {
		t.Errorf("time = %v", row.Time)
	}
	if row.Antenna1 != 0 || row.Antenna2 != 1 {
		t.Errorf("antennas = %d, %d", row.Antenna1, row.Antenna2)
	}
	if row.UVW != [3]float64{11, 21, 31} {
		t.Errorf("uvw = %v", row.UVW)
	}
	if len(row.Vis) != 8 || row.Vis[3] != complex(3.5, -3) {
		t.Errorf("vis = %v", row.Vis)
	}
	if len(row.Weights) != 8 || row.Weights[0] != 1.0 {
		t.Errorf("weights = %v", row.Weights)
	}
}

func TestOpenValidation(t *testing.T) {
	dir := t.TempDir()
	if _, err := Open(dir); err == nil {
		t.Error("empty directory accepted")
	}

	// A single fine channel is a broken export.
	meta := "num_rows: 0\nbase_freq_hz: 1.0\nchan_width_hz: 1.0\nnum_chans: 1\n"
	if err := os.WriteFile(filepath.Join(dir, "meta.yaml"), []byte(meta), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(dir); err == nil {
		t.Error("single-channel dump accepted")
	}

	// Row file shorter than num_rows claims.
	writeDump(t, dir)
	if err := os.Truncate(filepath.Join(dir, "rows.bin"), 10); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(dir); err == nil {
		t.Error("truncated rows.bin accepted")
	}
}
