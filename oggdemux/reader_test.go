package oggdemux

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestApplyEndTrim_ClampsLastPacketToTotal(t *testing.T) {
	packets := []Packet{
		{Ts: 0, Dur: 1024},
		{Ts: 1024, Dur: 1024},
	}
	applyEndTrim(packets, 1800)
	require.Equal(t, int64(0), packets[0].TrimEnd)
	require.Equal(t, int64(248), packets[1].TrimEnd) // 2048 - 1800
}

func TestApplyEndTrim_NoTrimWhenExact(t *testing.T) {
	packets := []Packet{
		{Ts: 0, Dur: 1024},
		{Ts: 1024, Dur: 1024},
	}
	applyEndTrim(packets, 2048)
	require.Equal(t, int64(0), packets[1].TrimEnd)
}

func TestApplyEndTrim_SkipsLeadingZeroDurationPackets(t *testing.T) {
	// The very first packet of a stream always has Ts=0, Dur=0 (spec.md
	// §4.12): applyEndTrim must walk past it to the real last packet.
	packets := []Packet{
		{Ts: 0, Dur: 0},
		{Ts: 0, Dur: 1024},
	}
	applyEndTrim(packets, 1000)
	require.Equal(t, int64(0), packets[0].TrimEnd)
	require.Equal(t, int64(24), packets[1].TrimEnd)
}

func TestApplyEndTrim_EmptyPacketsIsNoop(t *testing.T) {
	require.NotPanics(t, func() {
		applyEndTrim(nil, 100)
	})
}
