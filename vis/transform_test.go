package vis

import (
	"math"
	"math/cmplx"
	"testing"
)

func TestWSeconds(t *testing.T) {
	if w := WSeconds(299792458.0); w != 1.0 {
		t.Fatalf("one light-second = %v seconds", w)
	}
}

func TestApplyPhaseRotorRoundTrip(t *testing.T) {
	freqs := []float64{167.055e6, 167.095e6, 167.135e6}
	w := 1.234e-6

	samples := make([]complex64, len(freqs)*NumPols)
	for i := range samples {
		samples[i] = complex(float32(i+1), float32(-i))
	}
	orig := append([]complex64(nil), samples...)

	if err := ApplyPhaseRotor(samples, w, freqs, RemoveTracking); err != nil {
		t.Fatal(err)
	}
	// The rotor must actually move the phases.
	moved := false
	for i := range samples {
		if samples[i] != orig[i] {
			moved = true
		}
	}
	if !moved {
		t.Fatal("rotor left all samples untouched")
	}

	if err := ApplyPhaseRotor(samples, w, freqs, AddTracking); err != nil {
		t.Fatal(err)
	}
	for i := range samples {
		if d := cmplx.Abs(complex128(samples[i] - orig[i])); d > 1e-3 {
			t.Errorf("sample %d: drifted %v after add+remove", i, d)
		}
	}
}

func TestApplyPhaseRotorUnitMagnitude(t *testing.T) {
	freqs := []float64{184.975e6}
	samples := []complex64{1, 1, 1, 1}
	if err := ApplyPhaseRotor(samples, 3.3356e-7, freqs, RemoveTracking); err != nil {
		t.Fatal(err)
	}
	for i, s := range samples {
		if d := math.Abs(cmplx.Abs(complex128(s)) - 1.0); d > 1e-6 {
			t.Errorf("sample %d: magnitude off by %v", i, d)
		}
	}
}

func TestApplyPhaseRotorLengthCheck(t *testing.T) {
	if err := ApplyPhaseRotor(make([]complex64, 7), 0, []float64{1e8, 2e8}, RemoveTracking); err == nil {
		t.Fatal("mismatched sample count accepted")
	}
}

func TestReorderPolarizations(t *testing.T) {
	xx := []complex64{complex(1, 2), complex(9, 10)}
	xy := []complex64{complex(3, 4), complex(11, 12)}
	yx := []complex64{complex(5, 6), complex(13, 14)}
	yy := []complex64{complex(7, 8), complex(15, 16)}
	weights := []float32{
		0.1, 0.2, 0.3, 0.4,
		0.5, 0.6, 0.7, 0.8,
	}

	out, err := ReorderPolarizations(xx, xy, yx, yy, weights)
	if err != nil {
		t.Fatal(err)
	}
	want := []float32{
		// Channel 0: XX, YY, XY, YX with their own weights.
		1, 2, 0.1,
		7, 8, 0.4,
		3, 4, 0.2,
		5, 6, 0.3,
		// Channel 1.
		9, 10, 0.5,
		15, 16, 0.8,
		11, 12, 0.6,
		13, 14, 0.7,
	}
	if len(out) != len(want) {
		t.Fatalf("len = %d, want %d", len(out), len(want))
	}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("out[%d] = %v, want %v", i, out[i], want[i])
		}
	}
}

func TestReorderPolarizationsLengthChecks(t *testing.T) {
	two := make([]complex64, 2)
	three := make([]complex64, 3)
	if _, err := ReorderPolarizations(two, three, two, two, make([]float32, 8)); err == nil {
		t.Error("uneven polarization slices accepted")
	}
	if _, err := ReorderPolarizations(two, two, two, two, make([]float32, 7)); err == nil {
		t.Error("short weight slice accepted")
	}
}

func TestNumBaselines(t *testing.T) {
	n, err := NumBaselines(8256*56, 56)
	if err != nil {
		t.Fatal(err)
	}
	if n != 8256 {
		t.Fatalf("n = %d", n)
	}

	if _, err := NumBaselines(100, 0); err == nil {
		t.Error("zero time steps accepted")
	}
	if _, err := NumBaselines(101, 56); err == nil {
		t.Error("indivisible row count accepted")
	}
}

func TestCountTimeSteps(t *testing.T) {
	times := []float64{
		4888561712.0,
		4888561712.0000001, // float jitter within the same dump
		4888561714.0,
		4888561714.0,
		4888561716.0,
	}
	if n := CountTimeSteps(times); n != 3 {
		t.Fatalf("n = %d", n)
	}
	if n := CountTimeSteps(nil); n != 0 {
		t.Fatalf("n = %d for no rows", n)
	}
}
