package fitsbin

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Writer builds a FITS file HDU by HDU. Each AppendHDU writes the header and
// reserves the full (zero-filled) data unit, so data can then be written at
// arbitrary offsets within the current HDU.
type Writer struct {
	f         *os.File
	dataStart int64
	dataLen   int64
}

// Create creates (or replaces) a FITS file for writing.
func Create(path string) (*Writer, error) {
	// Remove first so a previous, possibly larger file never leaks trailing
	// blocks into the new one.
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &Writer{f: f}, nil
}

// AppendHDU writes a header at the end of the file and reserves its padded
// data unit. The header must fully describe the data dimensions.
func (w *Writer) AppendHDU(h *Header) error {
	end, err := w.f.Seek(0, 2)
	if err != nil {
		return err
	}
	encoded := h.Encode()
	if _, err := w.f.Write(encoded); err != nil {
		return err
	}
	w.dataStart = end + int64(len(encoded))
	w.dataLen, err = h.DataSize()
	if err != nil {
		return err
	}
	padded, _ := h.PaddedDataSize()
	return w.f.Truncate(w.dataStart + padded)
}

// WriteDataAt writes bytes into the current HDU's data unit at the given
// offset relative to the start of the data.
func (w *Writer) WriteDataAt(off int64, p []byte) error {
	if off < 0 || off+int64(len(p)) > w.dataLen {
		return fmt.Errorf("fitsbin: write [%d,%d) outside data unit of %d bytes", off, off+int64(len(p)), w.dataLen)
	}
	_, err := w.f.WriteAt(p, w.dataStart+off)
	return err
}

// Close flushes and closes the file.
func (w *Writer) Close() error {
	if err := w.f.Sync(); err != nil {
		w.f.Close()
		return err
	}
	return w.f.Close()
}

// TableColumn describes one binary-table column: a TTYPE name, a TFORM repeat
// and type code (e.g. "8A", "3D", "1J", "1E"), and an optional TUNIT.
type TableColumn struct {
	Name string
	Form string
	Unit string
}

// FormWidth returns the byte width of a TFORM code.
func FormWidth(form string) (int, error) {
	if form == "" {
		return 0, fmt.Errorf("fitsbin: empty TFORM")
	}
	i := 0
	for i < len(form) && form[i] >= '0' && form[i] <= '9' {
		i++
	}
	repeat := 1
	if i > 0 {
		repeat, _ = strconv.Atoi(form[:i])
	}
	if i >= len(form) {
		return 0, fmt.Errorf("fitsbin: TFORM %q has no type code", form)
	}
	var size int
	switch form[i] {
	case 'L', 'A', 'B', 'X':
		size = 1
	case 'I':
		size = 2
	case 'J', 'E':
		size = 4
	case 'K', 'D':
		size = 8
	default:
		return 0, fmt.Errorf("fitsbin: unsupported TFORM type %q", string(form[i]))
	}
	return repeat * size, nil
}

// RowWidth returns the total byte width of one table row.
func RowWidth(cols []TableColumn) (int, error) {
	total := 0
	for _, c := range cols {
		w, err := FormWidth(c.Form)
		if err != nil {
			return 0, fmt.Errorf("fitsbin: column %s: %w", c.Name, err)
		}
		total += w
	}
	return total, nil
}

// BinaryTableHeader builds an XTENSION=BINTABLE header for the given columns
// and row count.
func BinaryTableHeader(cols []TableColumn, numRows int, extName string) (*Header, error) {
	width, err := RowWidth(cols)
	if err != nil {
		return nil, err
	}
	h := NewHeader()
	h.Append("XTENSION", "BINTABLE", "binary table extension")
	h.Append("BITPIX", 8, "8-bit bytes")
	h.Append("NAXIS", 2, "2-dimensional table")
	h.Append("NAXIS1", width, "width of table in bytes")
	h.Append("NAXIS2", numRows, "number of rows in table")
	h.Append("PCOUNT", 0, "size of special data area")
	h.Append("GCOUNT", 1, "one data group")
	h.Append("TFIELDS", len(cols), "number of fields in each row")
	for i, c := range cols {
		n := i + 1
		h.Append(fmt.Sprintf("TTYPE%d", n), c.Name, "")
		h.Append(fmt.Sprintf("TFORM%d", n), c.Form, "")
		if c.Unit != "" {
			h.Append(fmt.Sprintf("TUNIT%d", n), c.Unit, "")
		}
	}
	if extName != "" {
		h.Append("EXTNAME", extName, "")
	}
	return h, nil
}

// PadString space-pads or truncates s to exactly n bytes, as FITS "A" column
// cells require.
func PadString(s string, n int) []byte {
	if len(s) > n {
		s = s[:n]
	}
	return []byte(s + strings.Repeat(" ", n-len(s)))
}
