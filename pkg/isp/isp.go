// Package isp implements the LPC11xx ISP bootloader protocol exposed over
// SDO on the reserved node id 125: unlock, sector prepare/erase, RAM-staged
// flash writes, and flash-to-RAM compares. Grounded on can_isp.py, the
// consolidated/authoritative ISP client named in the source's own
// design notes over its older, duplicated variants.
package isp

import (
	"encoding/binary"
	"fmt"

	iobus "github.com/linux-automation/lxa-iobus"
)

// Object directory indices used by the bootloader. Grounded on can_isp.py's
// object_directory table.
const (
	idxDeviceType    = 0x1000
	idxVendorID      = 0x1018
	idxProgramArea   = 0x1F50 // segmented download target for RAM staging
	idxProgramCtrl   = 0x1F51
	idxUnlockCode    = 0x5000
	idxReadAddr      = 0x5010
	idxReadLength    = 0x5011
	idxRAMWriteAddr  = 0x5015
	idxPrepareSector = 0x5020
	idxEraseSector   = 0x5030
	idxExecAddr      = 0x5070
	idxSerialNumber  = 0x5100
)

const (
	unlockCode = 23130

	// RAMStageAddr is the fixed RAM address the bootloader reserves for
	// staging a block before it is copied to flash.
	RAMStageAddr uint32 = 0x10000500

	// BlockSize is the unit the flasher writes and erases in.
	BlockSize = 4096

	// FlashRegionSize and ConfigRegionSize partition the 32KiB device: the
	// first 28KiB hold the application image, the last 4KiB hold
	// configuration, erased/written independently.
	FlashRegionSize  = 28 * 1024
	ConfigRegionSize = 4 * 1024
)

// Transport is the subset of pkg/sdo.Client's surface the flasher needs.
type Transport interface {
	Read(index uint16, subIndex uint8) ([]byte, error)
	Write(index uint16, subIndex uint8, data []byte) error
}

// CompareMismatchError reports a RAM/flash compare failure, a two-phase
// error: the bootloader first aborts with a generic compare-error code, and
// a second read of the mismatch-offset object supplies the detail.
type CompareMismatchError struct {
	Offset uint32
}

func (e *CompareMismatchError) Error() string {
	return fmt.Sprintf("isp: compare mismatch at offset %d", e.Offset)
}

// Flasher drives the ISP protocol against one bootloader-mode node.
type Flasher struct {
	t Transport
}

// NewFlasher wraps an SDO transport already bound to node id 125.
func NewFlasher(t Transport) *Flasher {
	return &Flasher{t: t}
}

func u16le(v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return b
}

func u32le(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

// Unlock issues the bootloader's unlock code, required before any
// destructive command.
func (f *Flasher) Unlock() error {
	return f.t.Write(idxUnlockCode, 0, u16le(unlockCode))
}

// sectorRange packs start and end sector numbers into the 16-bit encoding
// the prepare/erase commands expect: low byte start, high byte end.
func sectorRange(start, end int) []byte {
	return []byte{byte(start), byte(end)}
}

// PrepareSectors arms sectors [start, end] (inclusive) for write/erase.
func (f *Flasher) PrepareSectors(start, end int) error {
	return f.t.Write(idxPrepareSector, 0, sectorRange(start, end))
}

// EraseSectors erases sectors [start, end] (inclusive). Sectors must first
// be prepared.
func (f *Flasher) EraseSectors(start, end int) error {
	return f.t.Write(idxEraseSector, 0, sectorRange(start, end))
}

// writeToRAM stages data at the RAM staging address via a segmented SDO
// download to the "program area" object.
func (f *Flasher) writeToRAM(addr uint32, data []byte) error {
	if err := f.t.Write(idxRAMWriteAddr, 0, u32le(addr)); err != nil {
		return err
	}
	return f.t.Write(idxProgramArea, 1, data)
}

const idxCopy = 0x5050

// CopyRAMToFlash copies length bytes from ramAddr to flashAddr.
func (f *Flasher) CopyRAMToFlash(flashAddr, ramAddr uint32, length uint16) error {
	if err := f.t.Write(idxCopy, 1, u32le(flashAddr)); err != nil {
		return err
	}
	if err := f.t.Write(idxCopy, 2, u32le(ramAddr)); err != nil {
		return err
	}
	return f.t.Write(idxCopy, 3, u16le(length))
}

// Go jumps into the freshly flashed image at addr.
func (f *Flasher) Go(addr uint32) error {
	if err := f.t.Write(idxExecAddr, 1, u32le(addr)); err != nil {
		return err
	}
	return f.t.Write(idxProgramCtrl, 1, []byte{1})
}

// ReadMemory uploads length bytes starting at addr via the program area
// object, after staging the read address and length.
func (f *Flasher) ReadMemory(addr uint32, length uint32) ([]byte, error) {
	if err := f.t.Write(idxReadAddr, 0, u32le(addr)); err != nil {
		return nil, err
	}
	if err := f.t.Write(idxReadLength, 0, u32le(length)); err != nil {
		return nil, err
	}
	return f.t.Read(idxProgramArea, 1)
}

// ReadPartID, ReadBootloaderVersion, ReadDeviceType, ReadSerialNumber are
// plain standard-index reads.
func (f *Flasher) ReadPartID() (uint32, error) {
	b, err := f.t.Read(idxVendorID, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (f *Flasher) ReadBootloaderVersion() (uint32, error) {
	b, err := f.t.Read(idxVendorID, 3)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (f *Flasher) ReadDeviceType() (uint32, error) {
	b, err := f.t.Read(idxDeviceType, 0)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (f *Flasher) ReadSerialNumber() ([4]uint32, error) {
	var serial [4]uint32
	for i := 0; i < 4; i++ {
		b, err := f.t.Read(idxSerialNumber, uint8(i+1))
		if err != nil {
			return serial, err
		}
		serial[i] = binary.LittleEndian.Uint32(b)
	}
	return serial, nil
}

// Compare compares length bytes between two addresses. On a compare-error
// abort, reads the mismatch offset and returns it as a CompareMismatchError.
func (f *Flasher) Compare(addr1, addr2 uint32, length uint16) error {
	if err := f.t.Write(idxCompareAddrBase, 1, u32le(addr1)); err != nil {
		return err
	}
	if err := f.t.Write(idxCompareAddrBase, 2, u32le(addr2)); err != nil {
		return err
	}
	err := f.t.Write(idxCompareAddrBase, 3, u16le(length))
	if err == nil {
		return nil
	}

	abortErr, ok := err.(*iobus.AbortError)
	if !ok || abortErr.Code != codeCompareError {
		return err
	}

	b, readErr := f.t.Read(idxCompareAddrBase, 4)
	if readErr != nil {
		return err
	}
	return &CompareMismatchError{Offset: binary.LittleEndian.Uint32(b)}
}

const idxCompareAddrBase = 0x5060
