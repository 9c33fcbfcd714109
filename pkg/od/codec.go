// Package od provides typed wrappers over the object directory: the set of
// indexed, sub-indexed fields a node exposes over SDO (device identity,
// inputs/outputs, ADC channels, timers, the bootloader trigger, and so on).
//
// Grounded on object_directory.py's SubIndex/BitFieldSubIndex/StringSubIndex
// and the per-feature PDO classes, but deliberately not on its mechanism:
// that source dynamically attaches getter/setter methods to an object based
// on a sub-index descriptor. Here every field is a typed Go value produced
// by an explicit read, and every PDO group is a plain struct with named
// methods — no reflection, no generated accessors.
package od

import (
	"encoding/binary"
	"math"
)

// Transport is the subset of pkg/sdo.Client's surface the object directory
// needs. Kept as an interface so tests can substitute a fake node.
type Transport interface {
	Read(index uint16, subIndex uint8) ([]byte, error)
	Write(index uint16, subIndex uint8, data []byte) error
}

func decodeU8(b []byte) uint8   { return b[0] }
func decodeU16(b []byte) uint16 { return binary.LittleEndian.Uint16(b) }
func decodeU32(b []byte) uint32 { return binary.LittleEndian.Uint32(b) }
func decodeU64(b []byte) uint64 { return binary.LittleEndian.Uint64(b) }
func decodeI32(b []byte) int32  { return int32(binary.LittleEndian.Uint32(b)) }
func decodeF32(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

func encodeU8(v uint8) []byte  { return []byte{v} }
func encodeU16(v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return b
}
func encodeU32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}
func encodeI32(v int32) []byte { return encodeU32(uint32(v)) }
func encodeF32(v float32) []byte {
	return encodeU32(math.Float32bits(v))
}

func readU8(t Transport, index uint16, sub uint8) (uint8, error) {
	b, err := t.Read(index, sub)
	if err != nil {
		return 0, err
	}
	return decodeU8(b), nil
}

func readU16(t Transport, index uint16, sub uint8) (uint16, error) {
	b, err := t.Read(index, sub)
	if err != nil {
		return 0, err
	}
	return decodeU16(b), nil
}

func readU32(t Transport, index uint16, sub uint8) (uint32, error) {
	b, err := t.Read(index, sub)
	if err != nil {
		return 0, err
	}
	return decodeU32(b), nil
}

func readString(t Transport, index uint16, sub uint8) (string, error) {
	b, err := t.Read(index, sub)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
