// SPDX-License-Identifier: MIT
package fft

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/dsp/window"
)

// WindowFunc selects the window applied before the transform.
type WindowFunc int

const (
	Blackman WindowFunc = iota
	BlackmanNuttall
	Hann
	Hamming
	Nuttall
)

func (w WindowFunc) String() string {
	switch w {
	case Blackman:
		return "blackman"
	case BlackmanNuttall:
		return "blackmannuttall"
	case Hann:
		return "hann"
	case Hamming:
		return "hamming"
	case Nuttall:
		return "nuttall"
	default:
		return fmt.Sprintf("window(%d)", int(w))
	}
}

// ParseWindow converts a window name to a WindowFunc. An empty name selects
// Blackman, the analyser default.
func ParseWindow(name string) (WindowFunc, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "blackman":
		return Blackman, nil
	case "blackmannuttall":
		return BlackmanNuttall, nil
	case "hann", "hanning":
		return Hann, nil
	case "hamming":
		return Hamming, nil
	case "nuttall":
		return Nuttall, nil
	default:
		return Blackman, fmt.Errorf("unknown window function %q", name)
	}
}

// coefficients returns n window coefficients for w.
func coefficients(w WindowFunc, n int) []float64 {
	coeffs := make([]float64, n)
	for i := range coeffs {
		coeffs[i] = 1
	}
	switch w {
	case BlackmanNuttall:
		window.BlackmanNuttall(coeffs)
	case Hann:
		window.Hann(coeffs)
	case Hamming:
		window.Hamming(coeffs)
	case Nuttall:
		window.Nuttall(coeffs)
	default:
		window.Blackman(coeffs)
	}
	return coeffs
}
