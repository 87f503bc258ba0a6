package dsp

import "math"

// Window holds a precomputed Vorbis sine half-window (spec.md §4.7):
// w[i] = sin((pi/2) * sin^2((pi/2) * (i+0.5)/len)), for i in [0, len).
type Window struct {
	Half []float32
}

// NewWindow builds the half-window for a block of the given size
// (half = blockSize/2 long).
func NewWindow(blockSize int) Window {
	half := blockSize / 2
	w := make([]float32, half)
	for i := 0; i < half; i++ {
		s := math.Sin((math.Pi / 2) * (float64(i) + 0.5) / float64(half))
		w[i] = float32(math.Sin((math.Pi / 2) * s * s))
	}
	return Window{Half: w}
}

// Lapper holds the two precomputed half-windows (short and long) and
// applies overlap-add lapping between consecutive IMDCT blocks
// (spec.md §4.7).
type Lapper struct {
	Short, Long Window
	bs0, bs1    int
}

// NewLapper builds the short/long half-windows for the given block
// sizes (2^bs0Exp and 2^bs1Exp).
func NewLapper(bs0, bs1 int) *Lapper {
	return &Lapper{Short: NewWindow(bs0), Long: NewWindow(bs1), bs0: bs0, bs1: bs1}
}

// windowFor returns the half-window for a block of the given size.
func (l *Lapper) windowFor(blockSize int) Window {
	if blockSize == l.bs0 {
		return l.Short
	}
	return l.Long
}

// Overlap performs the overlap-add between the previous packet's
// saved right-half overlap buffer and the current packet's IMDCT
// output, writing the reconstructed samples to out and leaving a new
// right-half overlap buffer in newOverlap (sized curBlockSize/2).
//
// imdctOut is the curBlockSize-length IMDCT output (time-domain; the
// IMDCT of curHalf spectral lines yields curBlockSize time samples),
// organized so that the left half is imdctOut[:curHalf] and the right
// half is imdctOut[curHalf:]; prevOverlap is nil on the very first
// packet. The four cases of (prevBlockSize, curBlockSize) from
// spec.md §4.7 are handled explicitly; in every case but the first
// packet, len(out) equals (prevBlockSize+curBlockSize)/4 (spec.md §8).
func (l *Lapper) Overlap(prevBlockSize, curBlockSize int, prevOverlap []float32, imdctOut []float32) (out []float32, newOverlap []float32) {
	curHalf := curBlockSize / 2
	newOverlap = make([]float32, curHalf)
	copy(newOverlap, imdctOut[curHalf:])

	if prevOverlap == nil {
		return nil, newOverlap
	}

	curWin := l.windowFor(curBlockSize)

	switch {
	case prevBlockSize == curBlockSize:
		out = make([]float32, curHalf)
		overlapAdd(out, prevOverlap, imdctOut[:curHalf], curWin.Half)
	case prevBlockSize > curBlockSize:
		// Previous long, current short: lead-in pass-through samples
		// from the center of the previous overlap, then a short overlap
		// region. Total length (prevBlockSize-curBlockSize)/4 + curHalf
		// == (prevBlockSize+curBlockSize)/4.
		lead := (prevBlockSize - curBlockSize) / 4
		out = make([]float32, lead+curHalf)
		copy(out[:lead], prevOverlap[:lead])
		overlapAdd(out[lead:], prevOverlap[lead:lead+curHalf], imdctOut[:curHalf], curWin.Half)
	default:
		// Previous short, current long: symmetric with the case above.
		// An bs0/2 overlap region, then (bs1-bs0)/4 pass-through samples
		// taken straight from the IMDCT tail, so the total again matches
		// (prevBlockSize+curBlockSize)/4.
		prevHalf := prevBlockSize / 2
		tail := (curBlockSize - prevBlockSize) / 4
		out = make([]float32, prevHalf+tail)
		overlapAdd(out[:prevHalf], prevOverlap, imdctOut[:prevHalf], l.windowFor(prevBlockSize).Half)
		copy(out[prevHalf:], imdctOut[prevHalf:prevHalf+tail])
	}
	return out, newOverlap
}

// overlapAdd computes out[i] = left[i]*w[len-1-i] + right[i]*w[i],
// clamped to [-1, 1] (spec.md §4.7).
func overlapAdd(out, left, right, w []float32) {
	n := len(out)
	for i := 0; i < n; i++ {
		v := left[i]*w[n-1-i] + right[i]*w[i]
		out[i] = clamp(v)
	}
}

func clamp(v float32) float32 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
