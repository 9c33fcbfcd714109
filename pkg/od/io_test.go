package od_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linux-automation/lxa-iobus/pkg/od"
)

func TestScanOutputsAndSetMasked(t *testing.T) {
	tr := newFakeTransport()
	tr.set(0x2100, 0, u32b(4)) // 2 channels
	tr.set(0x2100, 1, u32b(4)) // channel 0 pin count
	tr.set(0x2100, 3, u32b(3)) // channel 1 pin count

	out, err := od.ScanOutputs(tr)
	require.NoError(t, err)
	require.Len(t, out.Channels, 2)
	assert.Equal(t, uint32(4), out.Channels[0].PinCount)
	assert.Equal(t, uint32(3), out.Channels[1].PinCount)

	require.NoError(t, out.SetMasked(tr, 0, 0x0003, 0x0002))
	word, err := out.State(tr, 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x00030002), word)
}

func TestOutputsSetHighSetLowToggle(t *testing.T) {
	tr := newFakeTransport()
	tr.set(0x2100, 0, u32b(2))
	tr.set(0x2100, 1, u32b(4))

	out, err := od.ScanOutputs(tr)
	require.NoError(t, err)

	require.NoError(t, out.SetHigh(tr, 0, 1))
	word, err := out.State(tr, 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x00020002), word) // mask=bit1, data=bit1

	require.NoError(t, out.Toggle(tr, 0, 1))
	word, err = out.State(tr, 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x00020000), word) // now low

	require.NoError(t, out.Toggle(tr, 0, 1))
	word, err = out.State(tr, 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x00020002), word) // back high

	require.NoError(t, out.SetLow(tr, 0, 1))
	word, err = out.State(tr, 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x00020000), word)
}

func TestOutputsRestoreStateReplaysLocalCopy(t *testing.T) {
	tr := newFakeTransport()
	tr.set(0x2100, 0, u32b(1))
	tr.set(0x2100, 1, u32b(4))

	out, err := od.ScanOutputs(tr)
	require.NoError(t, err)

	require.NoError(t, out.SetMasked(tr, 0, 0x0005, 0x0005)) // set bits 0 and 2

	// Something else clobbers the node's state directly, bypassing out's
	// local copy (e.g. a reboot reset it to all-zero).
	tr.set(0x2100, 2, u32b(0))

	require.NoError(t, out.RestoreState(tr, 0))
	word, err := out.State(tr, 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xFFFF0005), word) // full mask, replayed data
}

func TestScanInputsState(t *testing.T) {
	tr := newFakeTransport()
	tr.set(0x2101, 0, u32b(2)) // 1 channel
	tr.set(0x2101, 1, u32b(3))
	tr.set(0x2101, 2, u16b(0b101)) // 16-bit state

	in, err := od.ScanInputs(tr)
	require.NoError(t, err)
	require.Len(t, in.Channels, 1)

	state, err := in.State(tr, 0)
	require.NoError(t, err)
	assert.Equal(t, uint16(0b101), state)
}

func TestScanSupportedProtocols(t *testing.T) {
	tr := newFakeTransport()
	tr.set(0x2000, 0, u32b(2))
	tr.set(0x2000, 1, u32b(od.ProtocolOutputs))
	tr.set(0x2000, 2, u32b(od.ProtocolLocator))

	protocols, err := od.ScanSupportedProtocols(tr)
	require.NoError(t, err)
	assert.Equal(t, []uint32{od.ProtocolOutputs, od.ProtocolLocator}, protocols)
}
