package vorbis

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestMapper() *mapper {
	return &mapper{
		ident:         &IdentHeader{Bs0Exp: 8, Bs1Exp: 11},
		modeBits:      1,
		modeBlockFlag: []bool{false, true},
	}
}

func TestMapper_PacketBlockSizeExp_ShortMode(t *testing.T) {
	m := newTestMapper()
	// bit0=0 (audio flag), bit1=0 (mode index 0, short).
	exp, err := m.packetBlockSizeExp([]byte{0b00000000})
	require.NoError(t, err)
	require.Equal(t, uint(8), exp)
}

func TestMapper_PacketBlockSizeExp_LongMode(t *testing.T) {
	m := newTestMapper()
	// bit0=0 (audio flag), bit1=1 (mode index 1, long).
	exp, err := m.packetBlockSizeExp([]byte{0b00000010})
	require.NoError(t, err)
	require.Equal(t, uint(11), exp)
}

func TestMapper_PacketBlockSizeExp_RejectsHeaderPacket(t *testing.T) {
	m := newTestMapper()
	_, err := m.packetBlockSizeExp([]byte{0b00000001})
	require.Error(t, err)
}

func TestMapper_MapPacket_FirstAudioPacketHasZeroDuration(t *testing.T) {
	m := newTestMapper()
	m.setup = &Setup{modeBits: 1, Modes: []*Mode{{BlockFlag: false}, {BlockFlag: true}}}

	mapped, err := m.MapPacket([]byte{0b00000000})
	require.NoError(t, err)
	require.Equal(t, int64(0), mapped.Dur)
	require.True(t, m.havePrev)
}

func TestMapper_MapPacket_SubsequentDurationUsesBothBlockSizes(t *testing.T) {
	m := newTestMapper()
	m.setup = &Setup{modeBits: 1, Modes: []*Mode{{BlockFlag: false}, {BlockFlag: true}}}

	_, err := m.MapPacket([]byte{0b00000000}) // short
	require.NoError(t, err)
	mapped, err := m.MapPacket([]byte{0b00000010}) // long
	require.NoError(t, err)
	require.Equal(t, int64(256/4+2048/4), mapped.Dur)
}

func TestMapper_Reset_ClearsDurationState(t *testing.T) {
	m := newTestMapper()
	m.havePrev = true
	m.prevBsExp = 11
	m.Reset()
	require.False(t, m.havePrev)
	require.Equal(t, uint(0), m.prevBsExp)
}
