package fitsbin

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
)

// HDU describes one header-data unit of an open file.
type HDU struct {
	Header    *Header
	DataStart int64
	DataLen   int64
}

// File is a read-only FITS file with all HDU headers scanned up front.
type File struct {
	r      io.ReaderAt
	size   int64
	closer io.Closer
	hdus   []*HDU
}

// Open opens a FITS file and scans every HDU header. Data units are not read
// until requested.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	file := &File{r: f, size: info.Size(), closer: f}
	if err := file.scan(); err != nil {
		f.Close()
		return nil, err
	}
	return file, nil
}

// ParseBytes scans an in-memory FITS image, e.g. one recovered from a
// compressed archive.
func ParseBytes(data []byte) (*File, error) {
	file := &File{r: bytes.NewReader(data), size: int64(len(data))}
	if err := file.scan(); err != nil {
		return nil, err
	}
	return file, nil
}

func (f *File) scan() error {
	off := int64(0)
	for off < f.size {
		hdr, consumed, err := readHeaderAt(f.r, off)
		if err != nil {
			return fmt.Errorf("fitsbin: HDU %d at offset %d: %w", len(f.hdus), off, err)
		}
		dataLen, err := hdr.DataSize()
		if err != nil {
			return fmt.Errorf("fitsbin: HDU %d: %w", len(f.hdus), err)
		}
		padded, _ := hdr.PaddedDataSize()
		f.hdus = append(f.hdus, &HDU{
			Header:    hdr,
			DataStart: off + int64(consumed),
			DataLen:   dataLen,
		})
		off += int64(consumed) + padded
	}
	if len(f.hdus) == 0 {
		return fmt.Errorf("fitsbin: no HDUs found")
	}
	return nil
}

// readHeaderAt pulls in whole blocks until the END card shows up.
func readHeaderAt(r io.ReaderAt, off int64) (*Header, int, error) {
	var buf []byte
	for {
		block := make([]byte, BlockSize)
		if _, err := r.ReadAt(block, off+int64(len(buf))); err != nil {
			return nil, 0, err
		}
		buf = append(buf, block...)
		hdr, consumed, err := DecodeHeader(buf)
		if err == nil {
			return hdr, consumed, nil
		}
		if len(buf) > 64*BlockSize {
			return nil, 0, err
		}
	}
}

// NumHDUs returns the number of header-data units.
func (f *File) NumHDUs() int {
	return len(f.hdus)
}

// HDU returns the i'th header-data unit.
func (f *File) HDU(i int) (*HDU, error) {
	if i < 0 || i >= len(f.hdus) {
		return nil, fmt.Errorf("fitsbin: no HDU %d (file has %d)", i, len(f.hdus))
	}
	return f.hdus[i], nil
}

// ReadData returns the full (unpadded) data unit of the i'th HDU.
func (f *File) ReadData(i int) ([]byte, error) {
	hdu, err := f.HDU(i)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, hdu.DataLen)
	if _, err := f.r.ReadAt(buf, hdu.DataStart); err != nil {
		return nil, fmt.Errorf("fitsbin: reading HDU %d data: %w", i, err)
	}
	return buf, nil
}

// ReadDataAt reads n bytes from the i'th HDU's data unit starting at off.
func (f *File) ReadDataAt(i int, off int64, n int) ([]byte, error) {
	hdu, err := f.HDU(i)
	if err != nil {
		return nil, err
	}
	if off < 0 || off+int64(n) > hdu.DataLen {
		return nil, fmt.Errorf("fitsbin: read [%d,%d) outside HDU %d data of %d bytes", off, off+int64(n), i, hdu.DataLen)
	}
	buf := make([]byte, n)
	if _, err := f.r.ReadAt(buf, hdu.DataStart+off); err != nil {
		return nil, err
	}
	return buf, nil
}

// Close closes the underlying file, if there is one.
func (f *File) Close() error {
	if f.closer != nil {
		return f.closer.Close()
	}
	return nil
}

// ReplaceHeaderKey rewrites the card of an existing keyword in place. The new
// card occupies the same 80-byte slot, so nothing else in the file moves.
func ReplaceHeaderKey(path string, hduIndex int, card Card) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return err
	}

	card.Key = strings.ToUpper(card.Key)
	off := int64(0)
	for idx := 0; ; idx++ {
		if off >= info.Size() {
			return fmt.Errorf("fitsbin: file has no HDU %d", hduIndex)
		}
		hdr, consumed, err := readHeaderAt(f, off)
		if err != nil {
			return fmt.Errorf("fitsbin: HDU %d: %w", idx, err)
		}
		if idx == hduIndex {
			buf := make([]byte, consumed)
			if _, err := f.ReadAt(buf, off); err != nil {
				return err
			}
			for pos := 0; pos+CardSize <= len(buf); pos += CardSize {
				if strings.TrimRight(string(buf[pos:pos+8]), " ") != card.Key {
					continue
				}
				_, err := f.WriteAt(formatCard(card), off+int64(pos))
				return err
			}
			return fmt.Errorf("fitsbin: HDU %d has no key %q", hduIndex, card.Key)
		}
		padded, err := hdr.PaddedDataSize()
		if err != nil {
			return err
		}
		off += int64(consumed) + padded
	}
}

// AppendHeaderKeys inserts cards before the END card of the given HDU of an
// existing file, rewriting the file in place. If the new cards overflow the
// header's last block, everything after the header shifts by whole blocks.
func AppendHeaderKeys(path string, hduIndex int, cards []Card) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	off := 0
	idx := 0
	for {
		if off >= len(raw) {
			return fmt.Errorf("fitsbin: file has no HDU %d", hduIndex)
		}
		hdr, consumed, err := DecodeHeader(raw[off:])
		if err != nil {
			return fmt.Errorf("fitsbin: HDU %d: %w", idx, err)
		}
		if idx == hduIndex {
			for _, c := range cards {
				hdr.Append(c.Key, c.Value, c.Comment)
			}
			encoded := hdr.Encode()
			out := make([]byte, 0, len(raw)+len(encoded)-consumed)
			out = append(out, raw[:off]...)
			out = append(out, encoded...)
			out = append(out, raw[off+consumed:]...)
			return os.WriteFile(path, out, 0644)
		}
		padded, err := hdr.PaddedDataSize()
		if err != nil {
			return err
		}
		off += consumed + int(padded)
		idx++
	}
}
