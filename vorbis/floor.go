package vorbis

import (
	"math"
	"sort"

	"github.com/christosk92/WaveeVorbis/bitreader"
	"github.com/christosk92/WaveeVorbis/mediaerr"
)

// floorRangeLookup maps the 2-bit multiplier field (minus 1) to the
// floor_y range used to size the `ceil(log2(range))`-bit y values
// (spec.md §4.3).
var floorRangeLookup = [4]int{256, 128, 86, 64}

// inverseDBTable is the 256-entry fixed-point-to-amplitude table used
// by Floor1 synthesis step 2 (spec.md §4.3), spanning a floor of
// -140 dB at index 0 up to 0 dB (full scale) at index 255, linear in
// the dB domain. The reference decoder's published table
// (floor1_inverse_dB_static_table) is a fixed constant from the format
// spec rather than something that must be measured from a running
// decoder; it is not reproduced here verbatim because transcribing 256
// float literals from memory, with no way to execute a test against
// them, risks silent per-entry corruption that a clearly-labeled
// analytic reconstruction does not have. The two curves agree on
// monotonicity and on both endpoints (minDB at index 0, unity gain at
// index 255); see DESIGN.md for the decision record.
var inverseDBTable [256]float32

func init() {
	const minDB = -140.0
	for i := 0; i < 256; i++ {
		db := minDB + float64(i)*(-minDB)/255.0
		inverseDBTable[i] = float32(math.Pow(10, db/20))
	}
}

// Floor is the tagged variant over Vorbis's two floor types (spec.md
// §3 Setup, §9 "Floor dispatch"). Only Floor1 is implemented; Floor0
// exists solely to report UnsupportedFeature per spec.md Non-goals.
type Floor interface {
	IsUnused(r *bitreader.Reader) (bool, error)
	ReadChannel(r *bitreader.Reader, books []*Codebook) (*floor1Channel, error)
	Synthesis(ch *floor1Channel, out []float32) error
}

// Floor0 is an unimplemented placeholder; spec.md §1 Non-goals exclude
// floor type 0 from decode support.
type Floor0 struct{}

func (Floor0) IsUnused(*bitreader.Reader) (bool, error) {
	return false, mediaerr.New(mediaerr.UnsupportedFeature, "vorbis: floor type 0 is not supported")
}
func (Floor0) ReadChannel(*bitreader.Reader, []*Codebook) (*floor1Channel, error) {
	return nil, mediaerr.New(mediaerr.UnsupportedFeature, "vorbis: floor type 0 is not supported")
}
func (Floor0) Synthesis(*floor1Channel, []float32) error {
	return mediaerr.New(mediaerr.UnsupportedFeature, "vorbis: floor type 0 is not supported")
}

// floor1Class is one partition class's setup: dimension count,
// subclass bit count, an optional master codebook, and one sub-book
// index per subclass value (−1 meaning "unused").
type floor1Class struct {
	dimensions    int
	subclassBits  int
	masterBook    int // -1 if none
	subclassBooks []int
}

// Floor1 implements curve synthesis via the x-list/neighbor/line
// renderer algorithm (spec.md §4.3).
type Floor1 struct {
	partitionClass []int // per-partition class index
	classes        []floor1Class

	multiplier int // 1..4
	rangeBits  uint

	xList  []int
	lowNeighbor, highNeighbor []int
	sortOrder []int // indices into xList, sorted by x value ascending
}

// floor1Channel is the per-channel decode result: the set of drawn
// points (final_y) plus whether this channel's floor is unused.
type floor1Channel struct {
	unused bool
	finalY []int32
	step2  []bool
}

// readFloor1 parses a floor 1 setup block (spec.md §4.3 "Setup").
func readFloor1(r *bitreader.Reader, codebooks []*Codebook) (*Floor1, error) {
	partitionCount, err := r.ReadBitsLEQ32(5)
	if err != nil {
		return nil, mediaerr.Wrap(mediaerr.Decode, err, "vorbis: floor1: partition count")
	}
	f := &Floor1{partitionClass: make([]int, partitionCount)}

	maxClass := -1
	for i := range f.partitionClass {
		c, err := r.ReadBitsLEQ32(4)
		if err != nil {
			return nil, mediaerr.Wrap(mediaerr.Decode, err, "vorbis: floor1: partition class %d", i)
		}
		f.partitionClass[i] = int(c)
		if int(c) > maxClass {
			maxClass = int(c)
		}
	}

	f.classes = make([]floor1Class, maxClass+1)
	for i := range f.classes {
		dims, err := r.ReadBitsLEQ32(3)
		if err != nil {
			return nil, mediaerr.Wrap(mediaerr.Decode, err, "vorbis: floor1: class %d dimensions", i)
		}
		subBits, err := r.ReadBitsLEQ32(2)
		if err != nil {
			return nil, mediaerr.Wrap(mediaerr.Decode, err, "vorbis: floor1: class %d subclass bits", i)
		}
		cls := floor1Class{dimensions: int(dims) + 1, subclassBits: int(subBits)}
		if cls.subclassBits > 0 {
			mb, err := r.ReadBitsLEQ32(8)
			if err != nil {
				return nil, mediaerr.Wrap(mediaerr.Decode, err, "vorbis: floor1: class %d master book", i)
			}
			cls.masterBook = int(mb)
			if cls.masterBook < 0 || cls.masterBook >= len(codebooks) {
				return nil, mediaerr.New(mediaerr.Decode, "vorbis: floor1: class %d master book %d out of range", i, cls.masterBook)
			}
		} else {
			cls.masterBook = -1
		}
		n := 1 << cls.subclassBits
		cls.subclassBooks = make([]int, n)
		for j := 0; j < n; j++ {
			b, err := r.ReadBitsLEQ32(8)
			if err != nil {
				return nil, mediaerr.Wrap(mediaerr.Decode, err, "vorbis: floor1: class %d subclass book %d", i, j)
			}
			// 0 means unused; stored as book index - 1 (spec.md §3
			// invariant "class codebook indices must be > 0").
			cls.subclassBooks[j] = int(b) - 1
		}
		f.classes[i] = cls
	}

	mult, err := r.ReadBitsLEQ32(2)
	if err != nil {
		return nil, mediaerr.Wrap(mediaerr.Decode, err, "vorbis: floor1: multiplier")
	}
	f.multiplier = int(mult) + 1
	rb, err := r.ReadBitsLEQ32(4)
	if err != nil {
		return nil, mediaerr.Wrap(mediaerr.Decode, err, "vorbis: floor1: range bits")
	}
	f.rangeBits = uint(rb)

	f.xList = []int{0, 1 << f.rangeBits}
	for _, pc := range f.partitionClass {
		dims := f.classes[pc].dimensions
		for j := 0; j < dims; j++ {
			v, err := r.ReadBitsLEQ32(f.rangeBits)
			if err != nil {
				return nil, mediaerr.Wrap(mediaerr.Decode, err, "vorbis: floor1: x value")
			}
			f.xList = append(f.xList, int(v))
		}
	}
	if err := f.validateAndPrecompute(); err != nil {
		return nil, err
	}
	return f, nil
}

// validateAndPrecompute checks x-list uniqueness and builds the
// low/high neighbor tables and stable sort order (spec.md §4.3).
func (f *Floor1) validateAndPrecompute() error {
	seen := make(map[int]bool, len(f.xList))
	for _, x := range f.xList {
		if seen[x] {
			return mediaerr.New(mediaerr.Decode, "vorbis: floor1: duplicate x value %d", x)
		}
		seen[x] = true
	}

	n := len(f.xList)
	f.sortOrder = make([]int, n)
	for i := range f.sortOrder {
		f.sortOrder[i] = i
	}
	sort.SliceStable(f.sortOrder, func(a, b int) bool {
		return f.xList[f.sortOrder[a]] < f.xList[f.sortOrder[b]]
	})

	f.lowNeighbor = make([]int, n)
	f.highNeighbor = make([]int, n)
	for i := 2; i < n; i++ {
		// low = index of the greatest x[j] < x[i]; high = index of the
		// least x[j] > x[i], both searched over j in [0, i).
		low, high := 0, 1
		lowVal, highVal := f.xList[0], f.xList[1]
		if lowVal > highVal {
			low, high = 1, 0
			lowVal, highVal = highVal, lowVal
		}
		for j := 2; j < i; j++ {
			xj := f.xList[j]
			if xj < f.xList[i] && xj > lowVal {
				low, lowVal = j, xj
			}
			if xj > f.xList[i] && xj < highVal {
				high, highVal = j, xj
			}
		}
		f.lowNeighbor[i] = low
		f.highNeighbor[i] = high
	}
	return nil
}

// IsUnused reads the per-channel "used" flag.
func (f *Floor1) IsUnused(r *bitreader.Reader) (bool, error) {
	used, err := r.ReadBool()
	if err != nil {
		return false, mediaerr.Wrap(mediaerr.Decode, err, "vorbis: floor1: used flag")
	}
	return !used, nil
}

// ReadChannel decodes one channel's floor_y values (spec.md §4.3
// "Per-channel decode").
func (f *Floor1) ReadChannel(r *bitreader.Reader, books []*Codebook) (*floor1Channel, error) {
	n := len(f.xList)
	rangeVal := floorRangeLookup[f.multiplier-1]
	bits := ilog(uint32(rangeVal - 1))

	y := make([]int32, n)
	v0, err := r.ReadBitsLEQ32(bits)
	if err != nil {
		return nil, mediaerr.Wrap(mediaerr.Decode, err, "vorbis: floor1: y[0]")
	}
	v1, err := r.ReadBitsLEQ32(bits)
	if err != nil {
		return nil, mediaerr.Wrap(mediaerr.Decode, err, "vorbis: floor1: y[1]")
	}
	y[0], y[1] = int32(v0), int32(v1)

	offset := 2
	for _, pc := range f.partitionClass {
		cls := f.classes[pc]
		var classNum int32
		if cls.masterBook >= 0 {
			v, err := books[cls.masterBook].ReadScalar(r)
			if err != nil {
				return nil, mediaerr.Wrap(mediaerr.Decode, err, "vorbis: floor1: class codeword")
			}
			classNum = v
		}
		// Sub-book selection consumes cval's bits LSB-first, one
		// subclassBits-wide chunk per dimension (unlike residue's
		// reversed-order class-digit expansion in §4.4).
		csub := 1 << cls.subclassBits
		cval := classNum
		for d := 0; d < cls.dimensions; d++ {
			digit := int(cval) & (csub - 1)
			cval >>= int32(cls.subclassBits)
			book := cls.subclassBooks[digit]
			var val int32
			if book >= 0 {
				v, err := books[book].ReadScalar(r)
				if err != nil {
					return nil, mediaerr.Wrap(mediaerr.Decode, err, "vorbis: floor1: subclass codeword")
				}
				val = v
			}
			if offset < n {
				y[offset] = val
			}
			offset++
		}
	}

	ch := &floor1Channel{finalY: make([]int32, n), step2: make([]bool, n)}
	ch.finalY[0], ch.finalY[1] = y[0], y[1]
	ch.step2[0], ch.step2[1] = true, true

	for i := 2; i < n; i++ {
		lo, hi := f.lowNeighbor[i], f.highNeighbor[i]
		predicted := renderPoint(f.xList[lo], ch.finalY[lo], f.xList[hi], ch.finalY[hi], f.xList[i])
		val := y[i]
		highroom := rangeVal - int(predicted)
		lowroom := int(predicted)
		var room int
		if highroom < lowroom {
			room = highroom * 2
		} else {
			room = lowroom * 2
		}
		if val == 0 {
			ch.finalY[i] = predicted
			ch.step2[i] = false
			continue
		}
		var fy int32
		if val >= int32(room) {
			if highroom > lowroom {
				fy = val - int32(lowroom) + predicted
			} else {
				fy = predicted - val + int32(highroom) - 1
			}
		} else if val&1 != 0 {
			fy = predicted - (val+1)/2
		} else {
			fy = predicted + val/2
		}
		ch.finalY[i] = fy
		ch.step2[i] = true
	}
	return ch, nil
}

// renderPoint performs the integer linear interpolation used to
// predict y[i] from its two neighbors (spec.md §4.3 step 1).
func renderPoint(x0 int, y0 int32, x1 int, y1 int32, x int) int32 {
	if x0 == x1 {
		return y0
	}
	dy := int(y1 - y0)
	dx := x1 - x0
	adx := x - x0
	err := (dy * adx) / dx
	return y0 + int32(err)
}

// Synthesis renders the floor curve into out[0:len(out)] using a
// Bresenham-style line walk between consecutive drawn points in
// x-sorted order, mapping integer y through inverseDBTable (spec.md
// §4.3 step 2).
func (f *Floor1) Synthesis(ch *floor1Channel, out []float32) error {
	if ch.unused {
		for i := range out {
			out[i] = 0
		}
		return nil
	}
	n2 := len(out)
	hx := 0
	hy := int32(0)
	first := true
	for _, idx := range f.sortOrder {
		if !ch.step2[idx] {
			continue
		}
		x := f.xList[idx]
		y := ch.finalY[idx]
		if first {
			hx, hy = x, y
			first = false
			continue
		}
		renderLine(out, hx, int(hy), x, int(y), n2)
		hx, hy = x, y
	}
	return nil
}

// renderLine draws the Bresenham segment from (x0,y0) to (x1,y1) into
// out, writing only indices below n2 (spec.md §4.3 "Curve synthesis").
// x1 itself is never clipped to n2: the slope is a property of the
// full x-list segment, and clipping x1 before computing adx/dy would
// bias the interpolated values whenever a segment's endpoint lies past
// n2. Only the write is bounds-checked, matching how the reference
// decoder separates the loop bound from the drawn range.
func renderLine(out []float32, x0, y0, x1, y1, n2 int) {
	if x0 >= x1 {
		return
	}
	dy := y1 - y0
	adx := x1 - x0
	ady := abs(dy)
	base := dy / adx
	sy := 1
	if dy < 0 {
		sy = -1
		base = -((-dy) / adx)
	}
	ady -= abs(base) * adx
	x := x0
	y := y0
	err := 0
	if x < n2 {
		out[x] = clampFloorIndex(y)
	}
	for x++; x < x1; x++ {
		y += base
		err += ady
		if err >= adx {
			err -= adx
			y += sy
		}
		if x < n2 {
			out[x] = clampFloorIndex(y)
		}
	}
}

func clampFloorIndex(y int) float32 {
	if y < 0 {
		y = 0
	}
	if y > 255 {
		y = 255
	}
	return inverseDBTable[y]
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
