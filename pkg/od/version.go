package od

import "encoding/json"

// VersionInfo wraps 0x2001: vendor-reported protocol/board revision, serial,
// vendor name, and a free-form notes string that is sometimes JSON-encoded.
type VersionInfo struct {
	Protocol   uint32
	Board      uint32
	Serial     string
	VendorName string
	Notes      string
	// ParsedNotes holds the result of a best-effort JSON decode of Notes.
	// Nil if Notes was not valid JSON — this is not an error.
	ParsedNotes map[string]any
}

// ScanVersionInfo reads 0x2001's five sub-indices.
func ScanVersionInfo(t Transport) (*VersionInfo, error) {
	protocol, err := readU32(t, 0x2001, 0)
	if err != nil {
		return nil, err
	}
	board, err := readU32(t, 0x2001, 1)
	if err != nil {
		return nil, err
	}
	serial, err := readString(t, 0x2001, 2)
	if err != nil {
		return nil, err
	}
	vendorName, err := readString(t, 0x2001, 3)
	if err != nil {
		return nil, err
	}
	notes, err := readString(t, 0x2001, 5)
	if err != nil {
		return nil, err
	}

	v := &VersionInfo{
		Protocol:   protocol,
		Board:      board,
		Serial:     serial,
		VendorName: vendorName,
		Notes:      notes,
	}

	var parsed map[string]any
	if json.Unmarshal([]byte(notes), &parsed) == nil {
		v.ParsedNotes = parsed
	}
	return v, nil
}
