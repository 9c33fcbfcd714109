// Package product maps a node's factory (vendor, product, revision) address
// to a static descriptor: its human-readable name prefix, default pin
// names, and the bundled firmware version/filename it should be running.
// Grounded on products.py's Node/find_product.
package product

import (
	"fmt"

	iobus "github.com/linux-automation/lxa-iobus"
)

// FirmwareVersion is a 3-tuple (major, minor, patch).
type FirmwareVersion [3]int

// ParseFirmwareVersion parses a dotted "major.minor.patch" string, the form
// a node reports in its 0x100A software-version object.
func ParseFirmwareVersion(s string) (FirmwareVersion, error) {
	var v FirmwareVersion
	n, err := fmt.Sscanf(s, "%d.%d.%d", &v[0], &v[1], &v[2])
	if err != nil || n != 3 {
		return FirmwareVersion{}, fmt.Errorf("product: %q is not a major.minor.patch version: %w", s, err)
	}
	return v, nil
}

// Descriptor describes one known hardware product.
type Descriptor struct {
	Vendor, Product, Revision *uint32 // nil matches any value (used only by Unknown)
	NamePrefix                string
	FirmwareFile              string
	FirmwareVersion           FirmwareVersion
	ADCNames                  []string
	InputNames                [][]string
	OutputNames               [][]string
}

func u32(v uint32) *uint32 { return &v }

// Known descriptors, grounded on products.py's four concrete Node subclasses.
var Known = []Descriptor{
	{
		Vendor: u32(0x507), Product: u32(2), Revision: u32(3),
		NamePrefix:      "4DO-3DI-3AI-00005.",
		FirmwareFile:    "lxatac_can_io-t01.bin",
		FirmwareVersion: FirmwareVersion{0, 6, 0},
		ADCNames:        []string{"VIN", "AIN0", "AIN1", "AIN2"},
		InputNames:      [][]string{{"IN0", "IN1", "IN2"}},
		OutputNames:     [][]string{{"OUT0", "OUT1", "OUT2", "OUT3"}},
	},
	{
		Vendor: u32(0), Product: u32(4), Revision: u32(1),
		NamePrefix:      "PTXIOMux-00004.",
		FirmwareFile:    "ptxtac-S03_CAN_GPIO.bin",
		FirmwareVersion: FirmwareVersion{0, 3, 0},
		ADCNames:        []string{"AIN0", "AIN1", "AIN2", "VIN"},
		InputNames:      [][]string{{"IN4", "IN5", "IN6"}},
		OutputNames:     [][]string{{"OUT0", "OUT1", "OUT2", "OUT3"}},
	},
	{
		Vendor: u32(0x507), Product: u32(1), Revision: u32(4),
		NamePrefix:      "Ethernet-Mux-00012.",
		FirmwareFile:    "ethmux-S01.bin",
		FirmwareVersion: FirmwareVersion{0, 6, 0},
		ADCNames:        []string{"AIN0", "VIN"},
		InputNames:      [][]string{{"SW_IN", "SW_EXT"}},
		OutputNames:     [][]string{{"SW"}},
	},
	{
		Vendor: u32(0x507), Product: u32(3), Revision: u32(1),
		NamePrefix:      "Optick-00043.",
		FirmwareFile:    "optick-t01.bin",
		FirmwareVersion: FirmwareVersion{0, 6, 0},
		ADCNames:        []string{"IN0_RAW", "IN1_RAW", "VIN"},
		InputNames:      [][]string{{"IN0", "IN1"}},
		OutputNames:     [][]string{{"OUT0", "OUT1"}},
	},
}

// matches reports whether address's (vendor, product, revision) triple
// matches d. The serial component never participates in matching — it
// distinguishes individual units of the same product, not the product line.
func (d Descriptor) matches(addr iobus.FactoryAddress) bool {
	if d.Vendor != nil && *d.Vendor != addr.Vendor {
		return false
	}
	if d.Product != nil && *d.Product != addr.Product {
		return false
	}
	if d.Revision != nil && *d.Revision != addr.Revision {
		return false
	}
	return true
}

// Name returns the descriptor's human-readable name for this unit:
// "<prefix><serial, 8 digits zero-padded>".
func (d Descriptor) Name(addr iobus.FactoryAddress) string {
	return fmt.Sprintf("%s%08d", d.NamePrefix, addr.Serial)
}

// Find returns the descriptor matching addr's (vendor, product, revision),
// trying Known in order, falling back to an Unknown descriptor with no
// bundled firmware — an unrecognized product is not an error.
func Find(addr iobus.FactoryAddress) Descriptor {
	for _, d := range Known {
		if d.matches(addr) {
			return d
		}
	}
	return Descriptor{NamePrefix: "Unknown-"}
}

// NeedsFirmwareUpdate reports whether the node's reported software version
// differs from the descriptor's bundled firmware version. An Unknown
// descriptor (FirmwareVersion all zero and no FirmwareFile) never reports a
// needed update: there is nothing to flash it with.
func (d Descriptor) NeedsFirmwareUpdate(installed FirmwareVersion) bool {
	if d.FirmwareFile == "" {
		return false
	}
	return d.FirmwareVersion != installed
}
