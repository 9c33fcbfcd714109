package isp

// partNames maps the LPC111x part identifiers ReadPartID returns to their
// marketing names. Grounded on can_isp.py's part_ids table; only the part
// numbers actually shipped on lxa-iobus hardware are carried over.
var partNames = map[uint32]string{
	0x041E502B: "LPC1114/102J",
	0x2516D02B: "LPC1114/202J",
	0x0416502B: "LPC1114/302J",
	0x2516902B: "LPC1114/303J",
	0x00010013: "LPC1111/001",
	0x00010012: "LPC1112/001",
}

// PartName looks up the marketing name for a part id, as reported by
// ReadPartID. Returns false if the id is not one of the known variants.
func PartName(id uint32) (string, bool) {
	name, ok := partNames[id]
	return name, ok
}
