package vis

import (
	"fmt"
	"math"

	"github.com/cwsl/uvconvert/coords"
)

// Direction selects whether the phase rotor adds or removes phase tracking.
type Direction int

const (
	// AddTracking rotates visibilities towards the phase centre.
	AddTracking Direction = iota
	// RemoveTracking undoes phase tracking, as the downstream calibration
	// program expects un-tracked visibilities.
	RemoveTracking
)

// NumPols is the number of instrumental polarization products per channel.
const NumPols = 4

// FloatsPerPol is real, imaginary and weight.
const FloatsPerPol = 3

// WSeconds converts a w coordinate from meters to light-travel-time seconds.
func WSeconds(wMeters float64) float64 {
	return wMeters / coords.SpeedOfLight
}

// ApplyPhaseRotor multiplies every complex sample of each channel by
// cos(2*pi*w*f) +/- i*sin(2*pi*w*f), where w is in light-travel-time seconds
// and f is that channel's sky frequency. The rotor is evaluated once per
// channel with a direct sine/cosine rather than a complex exponential.
//
// samples is channel-major with NumPols products per channel; its length must
// be len(channelFreqsHz) * NumPols.
func ApplyPhaseRotor(samples []complex64, wSeconds float64, channelFreqsHz []float64, dir Direction) error {
	if len(samples) != len(channelFreqsHz)*NumPols {
		return fmt.Errorf("vis: have %d samples for %d channels x %d pols", len(samples), len(channelFreqsHz), NumPols)
	}
	sign := 1.0
	if dir == AddTracking {
		sign = -1.0
	}
	for i, freq := range channelFreqsHz {
		s, c := math.Sincos(coords.Tau * wSeconds * freq)
		rotor := complex(float32(c), float32(sign*s))
		base := i * NumPols
		for p := 0; p < NumPols; p++ {
			samples[base+p] *= rotor
		}
	}
	return nil
}

// ReorderPolarizations interleaves real, imaginary and weight per channel in
// the fixed container order XX, YY, XY, YX. The inputs are per-channel slices
// of equal length; weights is channel-major with NumPols entries per channel
// in instrumental order XX, XY, YX, YY.
func ReorderPolarizations(xx, xy, yx, yy []complex64, weights []float32) ([]float32, error) {
	n := len(xx)
	if len(xy) != n || len(yx) != n || len(yy) != n {
		return nil, fmt.Errorf("vis: polarization slices differ in length: %d/%d/%d/%d", len(xx), len(xy), len(yx), len(yy))
	}
	if len(weights) != n*NumPols {
		return nil, fmt.Errorf("vis: have %d weights for %d channels x %d pols", len(weights), n, NumPols)
	}

	out := make([]float32, 0, n*NumPols*FloatsPerPol)
	for c := 0; c < n; c++ {
		wXX := weights[c*NumPols+0]
		wXY := weights[c*NumPols+1]
		wYX := weights[c*NumPols+2]
		wYY := weights[c*NumPols+3]

		out = append(out, real(xx[c]), imag(xx[c]), wXX)
		out = append(out, real(yy[c]), imag(yy[c]), wYY)
		out = append(out, real(xy[c]), imag(xy[c]), wXY)
		out = append(out, real(yx[c]), imag(yx[c]), wYX)
	}
	return out, nil
}

// NumBaselines returns the number of baselines per time step. The caller must
// already have counted the distinct (quantized) timestamps.
func NumBaselines(totalRows, timeStepCount uint32) (uint32, error) {
	if timeStepCount == 0 {
		return 0, fmt.Errorf("vis: zero time steps")
	}
	if totalRows%timeStepCount != 0 {
		return 0, fmt.Errorf("vis: %d rows do not divide into %d time steps", totalRows, timeStepCount)
	}
	return totalRows / timeStepCount, nil
}

// CountTimeSteps counts distinct row timestamps after quantizing to
// milliseconds, which absorbs float jitter between rows of the same dump.
func CountTimeSteps(times []float64) uint32 {
	seen := make(map[int64]struct{}, 64)
	for _, t := range times {
		seen[int64(math.Round(t*1e3))] = struct{}{}
	}
	return uint32(len(seen))
}
