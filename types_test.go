package iobus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFactoryAddressFieldsRoundTrip(t *testing.T) {
	addr := FactoryAddress{Vendor: 0x507, Product: 2, Revision: 3, Serial: 12345}
	got := FactoryAddressFromFields(addr.Fields())
	assert.Equal(t, addr, got)
}

func TestFactoryAddressString(t *testing.T) {
	addr := FactoryAddress{Vendor: 0x507, Product: 2, Revision: 3, Serial: 12345}
	assert.Equal(t, "00000507.00000002.00000003.00003039", addr.String())
}

func TestValidNodeID(t *testing.T) {
	assert.False(t, ValidNodeID(0))
	assert.True(t, ValidNodeID(1))
	assert.True(t, ValidNodeID(127))
	assert.False(t, ValidNodeID(128))
	assert.False(t, ValidNodeID(ISPNodeID))
}
