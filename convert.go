package main

import (
	"fmt"
	"log"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cwsl/uvconvert/ms"
	"github.com/cwsl/uvconvert/uvfits"
	"github.com/cwsl/uvconvert/vis"
)

// runConvert converts a visibility dump to one container per coarse band (or
// a single container with one_to_one), undoing phase tracking on the way if
// asked.
func runConvert(dataset ms.Dataset, cfg *Config) error {
	opts := cfg.Convert
	if opts.Output == "" {
		return fmt.Errorf("no output stem given")
	}

	numRows := dataset.NumRows()
	if numRows == 0 {
		return fmt.Errorf("dataset has no rows")
	}
	times := dataset.Times()
	startEpoch := vis.EpochFromTableSeconds(times[0])

	bands := dataset.Subbands()
	if opts.OneToOne {
		bands = []int{1}
	}

	chans := dataset.Channels()
	if len(chans.FreqsHz)%len(bands) != 0 {
		return fmt.Errorf("%d fine channels do not divide into %d coarse bands", len(chans.FreqsHz), len(bands))
	}
	coarseWidthHz := chans.TotalBandwidthHz / float64(len(bands))
	fineWidthHz := chans.WidthHz
	chansPerBand := len(chans.FreqsHz) / len(bands)
	centreChan := uint32(math.Round(coarseWidthHz / fineWidthHz / 2.0))

	raRad, decRad := dataset.PhaseCentre()

	// Each band's container targets a distinct file with no shared state, so
	// header setup runs in parallel. Each container's handle then belongs to
	// the single-threaded row loop alone.
	filenames := make([]string, len(bands))
	containers := make([]*uvfits.Container, len(bands))
	defer func() {
		for _, c := range containers {
			if c != nil {
				c.Close()
			}
		}
	}()

	var g errgroup.Group
	for i, band := range bands {
		i, band := i, band
		g.Go(func() error {
			filename := opts.Output
			if !opts.OneToOne {
				filename = fmt.Sprintf("%s_band%02d.uvfits", opts.Output, band)
			}
			c, err := uvfits.Create(
				filename,
				numRows,
				chansPerBand,
				startEpoch,
				uint32(math.Round(fineWidthHz)),
				bandCentreFreq(chans.FreqsHz[0], band, coarseWidthHz, fineWidthHz),
				centreChan,
				raRad, decRad,
				opts.ObjectName,
			)
			if err != nil {
				return err
			}
			filenames[i] = filename
			containers[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	timeSteps := vis.CountTimeSteps(times)
	numBaselines, err := vis.NumBaselines(uint32(numRows), timeSteps)
	if err != nil {
		return err
	}
	log.Printf("Converting %d rows (%d time steps, %d baselines) into %d container(s)", numRows, timeSteps, numBaselines, len(bands))

	truncJD := vis.TruncatedJulianDate(startEpoch)
	blankWeights := make([]float32, len(chans.FreqsHz)*vis.NumPols)
	for i := range blankWeights {
		blankWeights[i] = 1
	}

	// The row loop is single-threaded and strictly row-ordered; each row fans
	// out to every band's writer.
	start := time.Now()
	rowVis := make([]complex64, len(chans.FreqsHz)*vis.NumPols)
	for r := 0; r < numRows; r++ {
		row, err := dataset.Row(r)
		if err != nil {
			return err
		}

		wSeconds := vis.WSeconds(row.UVW[2])
		params := uvfits.RowParams{
			U:          float32(vis.WSeconds(row.UVW[0])),
			V:          float32(vis.WSeconds(row.UVW[1])),
			W:          float32(wSeconds),
			Baseline:   uvfits.EncodeBaseline(uint32(row.Antenna1+1), uint32(row.Antenna2+1)),
			DateOffset: vis.DateOffset(vis.EpochFromTableSeconds(row.Time), truncJD),
		}

		copy(rowVis, row.Vis)
		if opts.UndoPhaseTracking {
			if err := vis.ApplyPhaseRotor(rowVis, float64(params.W), chans.FreqsHz, vis.RemoveTracking); err != nil {
				return err
			}
		}

		weights := row.Weights
		if opts.ResetWeights {
			weights = blankWeights
		}
		samples, err := reorderRow(rowVis, weights)
		if err != nil {
			return err
		}

		step := chansPerBand * vis.NumPols * vis.FloatsPerPol
		for b := range containers {
			if err := containers[b].WriteRow(r, params, samples[b*step:(b+1)*step]); err != nil {
				return fmt.Errorf("writing row %d to %s: %w", r, filenames[b], err)
			}
		}

		if debugMode && (r+1)%10000 == 0 {
			log.Printf("  %d/%d rows written", r+1, numRows)
		}
	}

	// Append an antenna table to every container.
	names := dataset.AntennaNames()
	positions := dataset.AntennaPositions()
	site := cfg.ArraySite()
	for b, c := range containers {
		centreFreq := bandCentreFreq(chans.FreqsHz[0], bands[b], coarseWidthHz, fineWidthHz)
		if err := c.AppendAntennaTable(startEpoch, centreFreq, names, positions, site); err != nil {
			return fmt.Errorf("antenna table for %s: %w", filenames[b], err)
		}
		if err := c.Close(); err != nil {
			return err
		}
		containers[b] = nil
	}

	log.Printf("Finished writing %d container(s) in %s", len(bands), time.Since(start).Round(time.Millisecond))
	return nil
}

// bandCentreFreq is the frequency the calibration program expects in the
// header of a coarse band's container: half a coarse band above the first
// fine channel, less half a fine channel.
func bandCentreFreq(firstFreqHz float64, band int, coarseWidthHz, fineWidthHz float64) float64 {
	return firstFreqHz + float64(band-1)*coarseWidthHz + coarseWidthHz/2.0 - fineWidthHz/2.0
}

// reorderRow splits a row's channel-major polarization products and
// interleaves them with their weights in container order.
func reorderRow(rowVis []complex64, weights []float32) ([]float32, error) {
	n := len(rowVis) / vis.NumPols
	xx := make([]complex64, n)
	xy := make([]complex64, n)
	yx := make([]complex64, n)
	yy := make([]complex64, n)
	for c := 0; c < n; c++ {
		xx[c] = rowVis[c*vis.NumPols+0]
		xy[c] = rowVis[c*vis.NumPols+1]
		yx[c] = rowVis[c*vis.NumPols+2]
		yy[c] = rowVis[c*vis.NumPols+3]
	}
	return vis.ReorderPolarizations(xx, xy, yx, yy, weights)
}
