package od_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linux-automation/lxa-iobus/pkg/od"
)

func seedIdentity(tr *fakeTransport) {
	tr.set(0x1008, 0, []byte("lxatac"))
	tr.set(0x1009, 0, []byte("rev-c"))
	tr.set(0x100A, 0, []byte("1.2.3"))
}

func TestScanFallsBackToIdentityOnlyWhenProtocolListAborts(t *testing.T) {
	tr := newFakeTransport()
	seedIdentity(tr)
	tr.abortOn(0x2000, 0, 0x06020000) // object does not exist

	dir, err := od.Scan(tr, nil)
	require.NoError(t, err)
	assert.Equal(t, "lxatac", dir.Identity.DeviceName)
	assert.Nil(t, dir.Outputs)
	assert.Nil(t, dir.Locator)
}

func TestScanHardFailsOnMissingIdentity(t *testing.T) {
	tr := newFakeTransport()
	tr.abortOn(0x1008, 0, 0x06020000)

	_, err := od.Scan(tr, nil)
	require.Error(t, err)
}

func TestScanWiresUpRecognizedProtocols(t *testing.T) {
	tr := newFakeTransport()
	seedIdentity(tr)
	tr.set(0x2000, 0, u32b(2))
	tr.set(0x2000, 1, u32b(od.ProtocolLocator))
	tr.set(0x2000, 2, u32b(od.ProtocolServerTimeout))

	dir, err := od.Scan(tr, nil)
	require.NoError(t, err)
	require.NotNil(t, dir.Locator)
	require.NotNil(t, dir.ServerTimeout)
	assert.Nil(t, dir.Outputs)
}

func TestScanContinuesPastOneWrapperFailure(t *testing.T) {
	tr := newFakeTransport()
	seedIdentity(tr)
	tr.set(0x2000, 0, u32b(2))
	tr.set(0x2000, 1, u32b(od.ProtocolOutputs)) // will fail: no channel count seeded
	tr.set(0x2000, 2, u32b(od.ProtocolLocator))

	dir, err := od.Scan(tr, nil)
	require.NoError(t, err)
	assert.Nil(t, dir.Outputs)
	require.NotNil(t, dir.Locator)
}
