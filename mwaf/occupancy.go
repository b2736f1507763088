package mwaf

import (
	"fmt"
	"path/filepath"
)

// Occupancy is the per-channel flag statistics of one archive. Derived once,
// read-only afterwards.
type Occupancy struct {
	// FlagCountsPerChannel[i] is the number of rows in which fine channel i
	// was flagged.
	FlagCountsPerChannel []uint32
	// FlagFractionPerChannel[i] is FlagCountsPerChannel[i] / TotalSamples.
	FlagFractionPerChannel []float64
	// TotalSamples is baselines * scans.
	TotalSamples uint32

	archive *Archive
}

// NewOccupancy decodes an archive into occupancy statistics.
func NewOccupancy(a *Archive) *Occupancy {
	counts := a.ChannelFlagCounts()
	total := a.TotalSamples()
	fractions := make([]float64, len(counts))
	for i, c := range counts {
		fractions[i] = float64(c) / float64(total)
	}
	return &Occupancy{
		FlagCountsPerChannel:   counts,
		FlagFractionPerChannel: fractions,
		TotalSamples:           total,
		archive:                a,
	}
}

// Reflag writes a copy of the archive to dst with one REFLG_nn header key per
// channel whose flag fraction strictly exceeds the threshold, ordinals
// assigned in ascending channel order. The threshold must be in (0, 1].
func (o *Occupancy) Reflag(dst string, threshold float64) ([]ReflagEntry, error) {
	if threshold <= 0 {
		return nil, fmt.Errorf("mwaf: threshold %v must be greater than 0", threshold)
	}
	if threshold > 1 {
		return nil, fmt.Errorf("mwaf: threshold %v cannot be greater than 1", threshold)
	}

	var directive []ReflagEntry
	for i, frac := range o.FlagFractionPerChannel {
		if frac > threshold {
			directive = append(directive, ReflagEntry{
				Ordinal: uint32(len(directive)),
				Channel: uint32(i),
			})
		}
	}
	if err := o.archive.WriteReflagged(dst, directive); err != nil {
		return nil, err
	}
	return directive, nil
}

// ReflaggedName returns the conventional output name for a reflagged archive:
// RTS_<original basename>, in the same directory as the original.
func ReflaggedName(path string) string {
	return filepath.Join(filepath.Dir(path), "RTS_"+filepath.Base(path))
}
