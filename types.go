package iobus

import "fmt"

// FactoryAddress is the 128-bit identity (vendor, product, revision, serial)
// burned into every node, reported during LSS fast-scan.
type FactoryAddress struct {
	Vendor   uint32
	Product  uint32
	Revision uint32
	Serial   uint32
}

// Fields returns the address as the 4-word array fast-scan and the cache
// file operate on.
func (a FactoryAddress) Fields() [4]uint32 {
	return [4]uint32{a.Vendor, a.Product, a.Revision, a.Serial}
}

// FactoryAddressFromFields builds an address from the 4-word fast-scan form.
func FactoryAddressFromFields(f [4]uint32) FactoryAddress {
	return FactoryAddress{Vendor: f[0], Product: f[1], Revision: f[2], Serial: f[3]}
}

// String renders the canonical four-8-hex-digit-groups dotted form.
func (a FactoryAddress) String() string {
	return fmt.Sprintf("%08X.%08X.%08X.%08X", a.Vendor, a.Product, a.Revision, a.Serial)
}

// Node id space: [1,127], with 125 reserved for nodes in bootloader mode.
const (
	MinNodeID  uint8 = 1
	MaxNodeID  uint8 = 127
	ISPNodeID  uint8 = 125
)

// ValidNodeID reports whether id is assignable to a configured node.
func ValidNodeID(id uint8) bool {
	return id >= MinNodeID && id <= MaxNodeID && id != ISPNodeID
}
