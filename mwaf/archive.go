// Package mwaf reads packed-bit RFI flag archives and derives per-channel
// occupancy statistics from them.
package mwaf

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/cwsl/uvconvert/fitsbin"
)

// ErrFormat marks a flag archive whose headers or payload don't line up.
var ErrFormat = errors.New("mwaf: malformed flag archive")

// Flag Archive Layout
// ===================
//
// A flag archive is a two-HDU FITS file. The primary header carries the
// observation shape; the first extension is a binary table whose first column,
// read as raw bytes, is the packed flag buffer.
//
// Primary header keys:
//   NCHANS   - fine channels per row
//   NANTENNA - antennas (baselines = n*(n+1)/2, auto-correlations included)
//   NSCANS   - time steps
//
// The extension's NAXIS1 is the row width in bytes. The buffer holds one row
// per (baseline, scan), scan-major within baseline order as written by the
// flagger. Within a row, bit b (0 = LSB) of the byte at column s flags fine
// channel 7*(s+1)+s-b. That mapping is a fixed convention of the upstream
// flagger and is reproduced here verbatim rather than re-derived.

// Archive is an in-memory flag archive. It is immutable after Load;
// reflagging writes a new file rather than mutating the buffer.
type Archive struct {
	Path         string
	ChannelCount uint32
	AntennaCount uint32
	ScanCount    uint32
	RowWidth     uint32 // bytes per (baseline, scan) row

	fileBytes []byte // the archive exactly as stored (after decompression)
	raw       []byte // view into fileBytes: the packed flag buffer
}

// BaselineCount returns the number of baselines, auto-correlations included.
func (a *Archive) BaselineCount() uint32 {
	return a.AntennaCount * (a.AntennaCount + 1) / 2
}

// TotalSamples returns the number of (baseline, scan) rows.
func (a *Archive) TotalSamples() uint32 {
	return a.BaselineCount() * a.ScanCount
}

// ChannelForBit maps a byte column and bit position to the fine channel it
// flags.
func ChannelForBit(byteColumn, bit int) int {
	return 7*(byteColumn+1) + byteColumn - bit
}

// Load reads a flag archive from disk. Files ending in .zst are transparently
// decompressed first.
func Load(path string) (*Archive, error) {
	fileBytes, err := readMaybeCompressed(path)
	if err != nil {
		return nil, err
	}

	f, err := fitsbin.ParseBytes(fileBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if f.NumHDUs() < 2 {
		return nil, fmt.Errorf("%w: %s has no flag extension", ErrFormat, path)
	}
	primary, _ := f.HDU(0)
	ext, _ := f.HDU(1)

	a := &Archive{Path: path, fileBytes: fileBytes}
	for _, key := range []struct {
		name string
		dst  *uint32
	}{
		{"NCHANS", &a.ChannelCount},
		{"NANTENNA", &a.AntennaCount},
		{"NSCANS", &a.ScanCount},
	} {
		v, err := primary.Header.Int(key.name)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFormat, err)
		}
		if v <= 0 {
			return nil, fmt.Errorf("%w: %s = %d", ErrFormat, key.name, v)
		}
		*key.dst = uint32(v)
	}

	width, err := ext.Header.Int("NAXIS1")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if width <= 0 {
		return nil, fmt.Errorf("%w: NAXIS1 = %d", ErrFormat, width)
	}
	a.RowWidth = uint32(width)
	if a.ChannelCount > a.RowWidth*8 {
		return nil, fmt.Errorf("%w: %d channels cannot fit in %d-byte rows", ErrFormat, a.ChannelCount, a.RowWidth)
	}

	want := int64(a.TotalSamples()) * int64(a.RowWidth)
	if ext.DataLen != want {
		return nil, fmt.Errorf("%w: flag buffer has %d bytes, want %d", ErrFormat, ext.DataLen, want)
	}
	a.raw = fileBytes[ext.DataStart : ext.DataStart+want]
	return a, nil
}

func readMaybeCompressed(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if !strings.HasSuffix(path, ".zst") {
		return io.ReadAll(f)
	}
	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("mwaf: opening zstd archive %s: %w", path, err)
	}
	defer dec.Close()
	return io.ReadAll(dec)
}

// ChannelFlagCounts decodes the packed buffer into a per-channel count of set
// bits across all rows. Each byte column is collapsed into a 256-bucket
// histogram first, so the bit unpacking runs 256*8 times per column instead of
// once per row per bit.
func (a *Archive) ChannelFlagCounts() []uint32 {
	counts := make([]uint32, a.ChannelCount)
	width := int(a.RowWidth)
	var histogram [256]uint32

	for s := 0; s < width; s++ {
		for i := range histogram {
			histogram[i] = 0
		}
		for off := s; off < len(a.raw); off += width {
			histogram[a.raw[off]]++
		}
		for v, h := range histogram {
			if h == 0 {
				continue
			}
			for bit := 0; bit < 8; bit++ {
				if (v>>bit)&1 == 1 {
					if ch := ChannelForBit(s, bit); ch < len(counts) {
						counts[ch] += h
					}
				}
			}
		}
	}
	return counts
}

// ReflagEntry marks one channel for total flagging.
type ReflagEntry struct {
	Ordinal uint32
	Channel uint32
}

// WriteReflagged copies the archive's stored bytes to a new file, then appends
// one REFLG_nn key per directive entry to the flag extension's header. No
// other header values change.
func (a *Archive) WriteReflagged(dst string, directive []ReflagEntry) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(dst, a.fileBytes, 0644); err != nil {
		return fmt.Errorf("mwaf: copying archive to %s: %w", dst, err)
	}

	cards := make([]fitsbin.Card, 0, len(directive))
	for _, e := range directive {
		cards = append(cards, fitsbin.Card{
			Key:   fmt.Sprintf("REFLG_%02d", e.Ordinal),
			Value: int(e.Channel),
		})
	}
	return fitsbin.AppendHeaderKeys(dst, 1, cards)
}
