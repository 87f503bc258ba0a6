package vorbis

import "github.com/christosk92/WaveeVorbis/mediaerr"

// Coupling is one channel-coupling pair from a mapping (spec.md §3
// Mappings "list of channel couplings").
type Coupling struct {
	Magnitude int
	Angle     int
}

// propagateNonzero implements spec.md §4.8 step 5: for each coupling,
// if exactly one side is do_not_decode, clear both (the coupled
// channel must be decoded in full to reconstruct either side of the
// pair). Runs before residue decode.
func propagateNonzero(couplings []Coupling, doNotDecode []bool) error {
	for _, c := range couplings {
		if c.Magnitude == c.Angle {
			return mediaerr.New(mediaerr.Decode, "vorbis: coupling: magnitude and angle channel are the same (%d)", c.Magnitude)
		}
		if doNotDecode[c.Magnitude] != doNotDecode[c.Angle] {
			doNotDecode[c.Magnitude] = false
			doNotDecode[c.Angle] = false
		}
	}
	return nil
}

// applyCoupling performs the Vorbis inverse-coupling square rule
// elementwise over residue[m] and residue[a] (spec.md §4.5 "after
// residue but before floor multiplication").
func applyCoupling(couplings []Coupling, residue [][]float32, n2 int) error {
	for _, c := range couplings {
		if c.Magnitude == c.Angle {
			return mediaerr.New(mediaerr.Decode, "vorbis: coupling: magnitude and angle channel are the same (%d)", c.Magnitude)
		}
		m, a := residue[c.Magnitude], residue[c.Angle]
		for i := 0; i < n2; i++ {
			M, A := m[i], a[i]
			var newM, newA float32
			if M > 0 {
				if A > 0 {
					newM, newA = M, M-A
				} else {
					newM, newA = M+A, M
				}
			} else {
				if A > 0 {
					newM, newA = M, M+A
				} else {
					newM, newA = M-A, M
				}
			}
			m[i], a[i] = newM, newA
		}
	}
	return nil
}

// dotProduct multiplies each decoded channel's floor curve by its
// residue in place: floor[i] *= residue[i] for i in [0, n2) (spec.md
// §4.5). Channels with doNotDecode are left at zero.
func dotProduct(floor, residue [][]float32, doNotDecode []bool, n2 int) {
	for ch := range floor {
		if doNotDecode[ch] {
			continue
		}
		f, r := floor[ch], residue[ch]
		for i := 0; i < n2; i++ {
			f[i] *= r[i]
		}
	}
}
