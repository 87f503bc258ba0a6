package vorbis

import (
	"testing"

	"github.com/christosk92/WaveeVorbis/bitreader"
	"github.com/stretchr/testify/require"
)

// dim2Book is the 4-entry, 2-dimension VQ codebook shared by the
// residue tests below: canonical codes 00,01,10,11 (as in
// bitreader_test.go's TestCodebookDecode_EqualLengths) mapped to
// vectors {1,2},{3,4},{5,6},{7,8}.
func dim2Book(t *testing.T) *Codebook {
	tree, err := bitreader.BuildCodebook([]uint{2, 2, 2, 2}, []int32{0, 1, 2, 3}, bitreader.Reverse, bitreader.MaxBitsPerBlock, false)
	require.NoError(t, err)
	return &Codebook{
		Dimensions: 2,
		Entries:    4,
		lookupType: 2,
		tree:       tree,
		vqTable:    [][]float32{{1, 2}, {3, 4}, {5, 6}, {7, 8}},
	}
}

// twoClassBook is a 2-entry, 1-dimension classbook: codeword "0"->0,
// "1"->1, used to select which residue class a partition belongs to.
func twoClassBook(t *testing.T) *Codebook {
	tree, err := bitreader.BuildCodebook([]uint{1, 1}, []int32{0, 1}, bitreader.Reverse, bitreader.MaxBitsPerBlock, false)
	require.NoError(t, err)
	return &Codebook{Dimensions: 1, Entries: 2, tree: tree}
}

// singleClassBook is a 1-entry, 1-dimension classbook used when a
// residue only declares one classification.
func singleClassBook(t *testing.T) *Codebook {
	tree, err := bitreader.BuildCodebook([]uint{1}, []int32{0}, bitreader.Reverse, bitreader.MaxBitsPerBlock, false)
	require.NoError(t, err)
	return &Codebook{Dimensions: 1, Entries: 1, tree: tree}
}

func TestResidueDecode_Type0InterleavesByStep(t *testing.T) {
	res := &Residue{
		Type:            0,
		begin:           0,
		end:             4,
		partitionSize:   4,
		classifications: 1,
		classbook:       0,
		classCascade:    []uint8{1},
		classBooks:      [][residueMaxPasses]int{{1, -1, -1, -1, -1, -1, -1, -1}},
	}
	books := []*Codebook{singleClassBook(t), dim2Book(t)}
	out := [][]float32{make([]float32, 4)}

	// class selector bit "0", then VQ values 0 (entry {1,2}) and 3
	// (entry {7,8}), packed LSb-first.
	r := bitreader.NewReader([]byte{0x18})
	require.NoError(t, res.Decode(r, books, out, []bool{true}, 4))
	require.Equal(t, []float32{1, 7, 2, 8}, out[0])
}

func TestResidueDecode_Type1DensePartitions(t *testing.T) {
	res := &Residue{
		Type:            1,
		begin:           0,
		end:             4,
		partitionSize:   2,
		classifications: 2,
		classbook:       0,
		classCascade:    []uint8{1, 1},
		classBooks: [][residueMaxPasses]int{
			{1, -1, -1, -1, -1, -1, -1, -1},
			{1, -1, -1, -1, -1, -1, -1, -1},
		},
	}
	books := []*Codebook{twoClassBook(t), dim2Book(t)}
	out := [][]float32{make([]float32, 4)}

	r := bitreader.NewReader([]byte{0x38})
	require.NoError(t, res.Decode(r, books, out, []bool{true}, 4))
	require.Equal(t, []float32{1, 2, 7, 8}, out[0])
}

func TestResidueDecode_Type2DecodesAsInterleavedType1(t *testing.T) {
	// Same wire layout as TestResidueDecode_Type1DensePartitions, but
	// spread across two coupled channels the way decodeType2
	// interleaves them (spec.md §4.4: type 2 decodes "as if using type
	// 1" over the concatenated channel vector). This is the path the
	// maintainer flagged as silently returning all-zero residue.
	res := &Residue{
		Type:            2,
		begin:           0,
		end:             2,
		partitionSize:   2,
		classifications: 2,
		classbook:       0,
		classCascade:    []uint8{1, 1},
		classBooks: [][residueMaxPasses]int{
			{1, -1, -1, -1, -1, -1, -1, -1},
			{1, -1, -1, -1, -1, -1, -1, -1},
		},
	}
	books := []*Codebook{twoClassBook(t), dim2Book(t)}
	out := [][]float32{make([]float32, 2), make([]float32, 2)}

	r := bitreader.NewReader([]byte{0x38})
	require.NoError(t, res.Decode(r, books, out, []bool{true, true}, 2))
	require.Equal(t, []float32{1, 7}, out[0])
	require.Equal(t, []float32{2, 8}, out[1])
}

func TestResidueDecode_DoNotDecodeChannelsAreSkipped(t *testing.T) {
	res := &Residue{
		Type:            0,
		begin:           0,
		end:             4,
		partitionSize:   4,
		classifications: 1,
		classbook:       0,
		classCascade:    []uint8{1},
		classBooks:      [][residueMaxPasses]int{{1, -1, -1, -1, -1, -1, -1, -1}},
	}
	books := []*Codebook{singleClassBook(t), dim2Book(t)}
	out := [][]float32{make([]float32, 4), {9, 9, 9, 9}}

	r := bitreader.NewReader([]byte{0x18})
	require.NoError(t, res.Decode(r, books, out, []bool{true, false}, 4))
	require.Equal(t, []float32{1, 7, 2, 8}, out[0])
	require.Equal(t, []float32{9, 9, 9, 9}, out[1])
}

func TestResidueDecode_BeginEqualsEndIsNoop(t *testing.T) {
	res := &Residue{Type: 1, begin: 4, end: 4, partitionSize: 2, classifications: 2, classbook: 0}
	books := []*Codebook{twoClassBook(t), dim2Book(t)}
	out := [][]float32{make([]float32, 4)}

	r := bitreader.NewReader(nil)
	require.NoError(t, res.Decode(r, books, out, []bool{true}, 4))
	require.Equal(t, []float32{0, 0, 0, 0}, out[0])
}
