package od_test

import (
	"fmt"

	iobus "github.com/linux-automation/lxa-iobus"
)

type key struct {
	index uint16
	sub   uint8
}

// fakeTransport is a map-backed od.Transport for tests: entries are seeded
// directly, and Write overwrites them so round-trip behavior can be checked.
type fakeTransport struct {
	entries map[key][]byte
	aborts  map[key]uint32
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{entries: make(map[key][]byte), aborts: make(map[key]uint32)}
}

func (f *fakeTransport) set(index uint16, sub uint8, data []byte) {
	f.entries[key{index, sub}] = data
}

func (f *fakeTransport) abortOn(index uint16, sub uint8, code uint32) {
	f.aborts[key{index, sub}] = code
}

func (f *fakeTransport) Read(index uint16, sub uint8) ([]byte, error) {
	k := key{index, sub}
	if code, ok := f.aborts[k]; ok {
		return nil, &iobus.AbortError{Index: index, SubIndex: sub, Code: code}
	}
	data, ok := f.entries[k]
	if !ok {
		return nil, fmt.Errorf("fake transport: no entry for %04X:%d", index, sub)
	}
	return data, nil
}

func (f *fakeTransport) Write(index uint16, sub uint8, data []byte) error {
	if code, ok := f.aborts[key{index, sub}]; ok {
		return &iobus.AbortError{Index: index, SubIndex: sub, Code: code}
	}
	f.set(index, sub, data)
	return nil
}

func u32b(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

func u16b(v uint16) []byte {
	return []byte{byte(v), byte(v >> 8)}
}

func u64b(v uint64) []byte {
	b := make([]byte, 8)
	for i := range b {
		b[i] = byte(v >> (8 * i))
	}
	return b
}
