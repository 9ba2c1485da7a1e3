package telemetry

import (
	"math"
	"testing"
)

func TestPowerSpectrumFindsSineFrequency(t *testing.T) {
	const (
		stepDT  = 0.005 // 200 Hz sampling
		segment = 64
		n       = 256
	)

	// 25 Hz sine lands exactly on bin 8 (200/64 * 8 = 25)
	series := make([]float64, n)
	for i := range series {
		series[i] = math.Sin(2 * math.Pi * 25 * float64(i) * stepDT)
	}

	points := PowerSpectrum(series, stepDT, segment)
	if len(points) != segment/2+1 {
		t.Fatalf("got %d bins, want %d", len(points), segment/2+1)
	}

	if points[0].FreqHz != 0 {
		t.Errorf("first bin freq = %v, want 0", points[0].FreqHz)
	}
	nyquist := points[len(points)-1].FreqHz
	if math.Abs(nyquist-100) > 0.001 {
		t.Errorf("last bin freq = %v, want 100 (Nyquist)", nyquist)
	}

	peak := 0
	for k, p := range points {
		if p.Power > points[peak].Power {
			peak = k
		}
	}
	if peak != 8 {
		t.Errorf("peak at bin %d (%.2f Hz), want bin 8 (25 Hz)", peak, points[peak].FreqHz)
	}
}

func TestPowerSpectrumConstantSeriesIsFlat(t *testing.T) {
	series := make([]float64, 128)
	for i := range series {
		series[i] = 0.7
	}

	points := PowerSpectrum(series, 0.005, 64)
	if points == nil {
		t.Fatal("expected spectrum for constant series")
	}

	// Mean removal leaves nothing behind
	for _, p := range points {
		if p.Power > 1e-12 {
			t.Errorf("bin %.2f Hz has power %v, want ~0", p.FreqHz, p.Power)
		}
	}
}

func TestPowerSpectrumRejectsShortInput(t *testing.T) {
	series := make([]float64, 32)

	if got := PowerSpectrum(series, 0.005, 64); got != nil {
		t.Error("expected nil for series shorter than one segment")
	}
	if got := PowerSpectrum(series, 0.005, 4); got != nil {
		t.Error("expected nil for tiny segment size")
	}
	if got := PowerSpectrum(series, 0, 16); got != nil {
		t.Error("expected nil for zero timestep")
	}
}
