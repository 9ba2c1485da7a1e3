package telemetry

import (
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

// SpectrumPoint is one frequency bin of a power spectrum estimate.
type SpectrumPoint struct {
	FreqHz float64 `csv:"freq_hz"`
	Power  float64 `csv:"power"`
}

// PowerSpectrum estimates the power spectrum of a measurement series
// sampled once per step, using Welch's method: the series is split
// into Hann-windowed segments with 50% overlap, each segment's mean is
// removed, and the periodograms are averaged. Returns nil when the
// series is shorter than one segment.
//
// stepDT is the simulation timestep in seconds; segment is the segment
// length in steps.
func PowerSpectrum(series []float64, stepDT float64, segment int) []SpectrumPoint {
	if segment < 8 || len(series) < segment || stepDT <= 0 {
		return nil
	}

	fft := fourier.NewFFT(segment)
	bins := segment/2 + 1
	power := make([]float64, bins)
	coeffs := make([]complex128, bins)
	seg := make([]float64, segment)

	// Hann window normalization: sum of squared window values.
	winNorm := 0.0
	for i := range seg {
		seg[i] = 1
	}
	for _, w := range window.Hann(seg) {
		winNorm += w * w
	}

	hop := segment / 2
	count := 0
	for start := 0; start+segment <= len(series); start += hop {
		copy(seg, series[start:start+segment])

		var mean float64
		for _, v := range seg {
			mean += v
		}
		mean /= float64(segment)
		for i := range seg {
			seg[i] -= mean
		}

		window.Hann(seg)
		coeffs = fft.Coefficients(coeffs, seg)
		for k, c := range coeffs {
			m := cmplx.Abs(c)
			power[k] += m * m
		}
		count++
	}

	fs := 1 / stepDT
	scale := 1 / (float64(count) * winNorm * fs)
	points := make([]SpectrumPoint, bins)
	for k := range points {
		points[k] = SpectrumPoint{
			FreqHz: float64(k) * fs / float64(segment),
			Power:  power[k] * scale,
		}
	}
	return points
}
