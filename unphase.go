package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"os"

	"github.com/cwsl/uvconvert/fitsbin"
	"github.com/cwsl/uvconvert/vis"
)

// unphaseCommand converts the phase-tracked visibilities of an existing
// container to non-phase-tracked, either in place or into a copy.
func unphaseCommand(args []string) error {
	fs := flag.NewFlagSet("unphase", flag.ExitOnError)
	overwrite := fs.Bool("overwrite", false, "Alter the input container in place")
	output := fs.String("output", "", "Output container path; preserves the input")
	fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("unphase needs exactly one container file")
	}
	input := fs.Arg(0)

	switch {
	case *output == "" && !*overwrite:
		return fmt.Errorf("no output given, nor told to overwrite; specify one or the other")
	case *output != "" && *overwrite:
		return fmt.Errorf("an output was given, but -overwrite was also set; specify one or the other")
	}

	target := input
	if *output != "" {
		if err := copyFile(input, *output); err != nil {
			return err
		}
		target = *output
	}
	return unphaseContainer(target)
}

func copyFile(src, dst string) error {
	r, err := os.Open(src)
	if err != nil {
		return err
	}
	defer r.Close()
	w, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// unphaseContainer rewrites every group record of a container with the phase
// tracking removed. The frequency of each fine channel is reconstructed from
// the header's frequency axis; CRVAL4 is then lowered by half a fine channel,
// which is where the calibration program expects the axis to sit.
func unphaseContainer(path string) error {
	f, err := fitsbin.Open(path)
	if err != nil {
		return err
	}
	hdu, err := f.HDU(0)
	if err != nil {
		f.Close()
		return err
	}
	h := hdu.Header
	dataStart := hdu.DataStart
	dataLen := hdu.DataLen
	f.Close()

	numRows, err := h.Int("GCOUNT")
	if err != nil {
		return err
	}
	pcount, err := h.Int("PCOUNT")
	if err != nil {
		return err
	}
	floatsPerPol, err := h.Int("NAXIS2")
	if err != nil {
		return err
	}
	numPols, err := h.Int("NAXIS3")
	if err != nil {
		return err
	}
	numChans, err := h.Int("NAXIS4")
	if err != nil {
		return err
	}
	if pcount < 3 {
		return fmt.Errorf("unphase: %d group parameters, need at least u, v, w", pcount)
	}
	if numPols != vis.NumPols || floatsPerPol != vis.FloatsPerPol {
		return fmt.Errorf("unphase: container has %dx%d pol floats, want %dx%d", numPols, floatsPerPol, vis.NumPols, vis.FloatsPerPol)
	}

	baseFreq, err := h.Float("CRVAL4")
	if err != nil {
		return err
	}
	chanWidth, err := h.Float("CDELT4")
	if err != nil {
		return err
	}
	// CRPIX might be stored as a float.
	basePix, err := h.Float("CRPIX4")
	if err != nil {
		return err
	}
	baseIndex := int(math.Round(basePix))

	freqs := make([]float64, numChans)
	for i := range freqs {
		freqs[i] = baseFreq + float64(i-baseIndex+1)*chanWidth
	}

	rowBytes := (pcount + numChans*numPols*floatsPerPol) * 4
	if dataLen != numRows*rowBytes {
		return fmt.Errorf("unphase: %d bytes of groups, want %d rows x %d", dataLen, numRows, rowBytes)
	}

	if err := fitsbin.ReplaceHeaderKey(path, 0, fitsbin.Card{Key: "CRVAL4", Value: baseFreq - chanWidth/2.0}); err != nil {
		return err
	}

	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return err
	}
	defer file.Close()

	buf := make([]byte, rowBytes)
	samples := make([]complex64, numChans*numPols)
	for r := int64(0); r < numRows; r++ {
		off := dataStart + r*rowBytes
		if _, err := file.ReadAt(buf, off); err != nil {
			return fmt.Errorf("unphase: reading row %d: %w", r, err)
		}

		// The third group parameter is w, already in light-travel-time seconds.
		w := math.Float32frombits(binary.BigEndian.Uint32(buf[8:]))

		for i := range samples {
			p := (pcount + int64(i)*floatsPerPol) * 4
			re := math.Float32frombits(binary.BigEndian.Uint32(buf[p:]))
			im := math.Float32frombits(binary.BigEndian.Uint32(buf[p+4:]))
			samples[i] = complex(re, im)
		}
		if err := vis.ApplyPhaseRotor(samples, float64(w), freqs, vis.RemoveTracking); err != nil {
			return err
		}
		for i, s := range samples {
			p := (pcount + int64(i)*floatsPerPol) * 4
			binary.BigEndian.PutUint32(buf[p:], math.Float32bits(real(s)))
			binary.BigEndian.PutUint32(buf[p+4:], math.Float32bits(imag(s)))
		}

		if _, err := file.WriteAt(buf, off); err != nil {
			return fmt.Errorf("unphase: writing row %d: %w", r, err)
		}
		if debugMode && (r+1)%10000 == 0 {
			log.Printf("  %d/%d rows rewritten", r+1, numRows)
		}
	}
	return nil
}
