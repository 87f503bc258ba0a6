// Package dsp holds the Vorbis synthesis math factored out of the
// per-packet decode orchestrator: the inverse MDCT, window shaping and
// overlap-add, and the channel-order permutation tables (spec.md §4.6,
// §4.7, §4.9). Kept as its own package the way the teacher's
// DspState/Block were their own libvorbis objects, distinct from the
// packet-level Decoder.
package dsp

import "math"

// IMDCT computes the inverse Modified Discrete Cosine Transform for a
// fixed block size. n is the spectrum length (number of frequency
// coefficients); the time-domain output has length 2n (spec.md §4.6).
//
// Vorbis's reference decoder evaluates this via a pre/post-twiddled
// half-size complex FFT; that is a fast implementation of the exact
// same transform evaluated directly below. The direct O(n^2) form is
// used here because it is derived straight from the transform's
// defining summation and its correctness does not depend on getting a
// twiddle/bit-reversal indexing scheme right without a way to run and
// check it.
type IMDCT struct {
	n     int
	theta float64 // pi / (2n), the common angular step
}

// New builds an IMDCT for spectrum length n, which must be a power of
// two >= 4 (spec.md §4.6).
func New(n int) *IMDCT {
	if n < 4 || n&(n-1) != 0 {
		panic("dsp: IMDCT: n must be a power of two >= 4")
	}
	return &IMDCT{n: n, theta: math.Pi / float64(2*n)}
}

// N returns the spectrum length this IMDCT was built for.
func (t *IMDCT) N() int { return t.n }

// Transform evaluates the IMDCT of spec (length n) into out (length
// 2n): out[i] = sum_j spec[j] * cos(theta * (i+0.5+n/2) * (2j+1))
// (spec.md §4.6). Panics if either length mismatches the constructed
// size (spec.md §4.6 "violations are programmer errors").
func (t *IMDCT) Transform(spec []float32, out []float32) {
	n := t.n
	if len(spec) != n {
		panic("dsp: IMDCT.Transform: spectrum length mismatch")
	}
	if len(out) != 2*n {
		panic("dsp: IMDCT.Transform: output length mismatch")
	}
	half := float64(n) / 2
	for i := 0; i < 2*n; i++ {
		base := t.theta * (float64(i) + 0.5 + half)
		var sum float64
		for j, x := range spec {
			if x == 0 {
				continue
			}
			sum += float64(x) * math.Cos(base*float64(2*j+1))
		}
		out[i] = float32(sum)
	}
}
