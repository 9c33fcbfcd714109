package iobus

import (
	"encoding/binary"
	"fmt"
)

// SDO arbitration id bases. Master->slave = 0x600|nodeID, slave->master = 0x580|nodeID.
const (
	SDOMasterToSlaveBase uint32 = 0x600
	SDOSlaveToMasterBase uint32 = 0x580
)

// SDOTxCobID returns the arbitration id the master transmits requests on for nodeID.
func SDOTxCobID(nodeID uint8) uint32 { return SDOMasterToSlaveBase | uint32(nodeID) }

// SDORxCobID returns the arbitration id a node's SDO responses arrive on.
func SDORxCobID(nodeID uint8) uint32 { return SDOSlaveToMasterBase | uint32(nodeID) }

// SDONodeIDFromCobID extracts the node id from an SDO response arbitration id.
func SDONodeIDFromCobID(cobID uint32) uint8 { return uint8(cobID & 0x7F) }

// Client command specifiers (ccs): the three high bits of byte 0 on a
// request sent by this master.
const (
	sdoCCSDownloadSegment = 0
	sdoCCSInitiateDownload = 1
	sdoCCSInitiateUpload   = 2
	sdoCCSUploadSegment    = 3
	sdoCCSAbort            = 4
)

// Server command specifiers (scs): the three high bits of byte 0 on a
// response from a node. Note scs and ccs share numeric space but not
// meaning: scs=0 is an upload-segment response, while ccs=0 is a
// download-segment request.
const (
	sdoSCSUploadSegment    = 0
	sdoSCSDownloadSegment  = 1
	sdoSCSInitiateUpload   = 2
	sdoSCSInitiateDownload = 3
	sdoSCSAbort            = 4
)

// Transfer-type bits (e,s) packed into byte 0 bits 1..0 of an initiate-download request.
const (
	sdoTransferSize         = 0b01 // s=1, e=0: data field is a u32 total size
	sdoTransferDataWithSize = 0b11 // s=1, e=1: data field holds <=4 expedited bytes, n unused
)

// EncodeSDOInitiateDownload builds an "initiate download" request (ccs=1).
// data must be <=4 bytes; for an expedited write pass the payload directly,
// for a segmented write pass the little-endian u32 total size with
// expedited=false.
func EncodeSDOInitiateDownload(nodeID uint8, index uint16, subIndex uint8, data []byte, expedited bool) Frame {
	var f Frame
	f.ID = SDOTxCobID(nodeID)
	f.DLC = 8
	n := 4 - len(data)
	transferType := uint8(sdoTransferSize)
	if expedited {
		transferType = sdoTransferDataWithSize
	}
	f.Data[0] = (sdoCCSInitiateDownload << 5) | uint8(n<<2) | transferType
	binary.LittleEndian.PutUint16(f.Data[1:3], index)
	f.Data[3] = subIndex
	copy(f.Data[4:8], data)
	return f
}

// EncodeSDOSegmentDownload builds a "download segment" request (ccs=0).
// seg must be <=7 bytes.
func EncodeSDOSegmentDownload(nodeID uint8, toggle bool, complete bool, seg []byte) Frame {
	var f Frame
	f.ID = SDOTxCobID(nodeID)
	f.DLC = 8
	n := 7 - len(seg)
	var toggleBit, completeBit uint8
	if toggle {
		toggleBit = 1
	}
	if complete {
		completeBit = 1
	}
	f.Data[0] = (sdoCCSDownloadSegment << 5) | (toggleBit << 4) | uint8(n<<1) | completeBit
	copy(f.Data[1:8], seg)
	return f
}

// EncodeSDOInitiateUpload builds an "initiate upload" request (ccs=2).
func EncodeSDOInitiateUpload(nodeID uint8, index uint16, subIndex uint8) Frame {
	var f Frame
	f.ID = SDOTxCobID(nodeID)
	f.DLC = 8
	f.Data[0] = sdoCCSInitiateUpload << 5
	binary.LittleEndian.PutUint16(f.Data[1:3], index)
	f.Data[3] = subIndex
	return f
}

// EncodeSDOSegmentUpload builds an "upload segment" request (ccs=3).
func EncodeSDOSegmentUpload(nodeID uint8, toggle bool) Frame {
	var f Frame
	f.ID = SDOTxCobID(nodeID)
	f.DLC = 8
	var toggleBit uint8
	if toggle {
		toggleBit = 1
	}
	f.Data[0] = (sdoCCSUploadSegment << 5) | (toggleBit << 4)
	return f
}

// SDOUploadTransferType describes how a node's initiate-upload response
// indicates the shape of the data that follows.
type SDOUploadTransferType int

const (
	SDOTransferReserved SDOUploadTransferType = iota
	SDOTransferSizeOnly                       // payload is a u32 announcing total segmented size
	SDOTransferDataWithSize                    // payload is up to 4 bytes, length = 4-n
	SDOTransferDataNoSize                      // payload is exactly 4 bytes
)

// SDOResponse is a decoded slave->master SDO frame. Only the fields relevant
// to the decoded Command are populated.
type SDOResponse struct {
	Command      uint8
	NodeID       uint8
	Index        uint16
	SubIndex     uint8
	Data         []byte // initiate-upload payload (<=4 bytes)
	SegData      []byte // upload-segment payload (<=7 bytes)
	Toggle       bool
	Complete     bool
	TransferType SDOUploadTransferType
	AbortCode    uint32
}

// DecodeSDOResponse decodes a response frame from a node. cobID is the
// frame's arbitration id, used to recover the node id.
func DecodeSDOResponse(cobID uint32, f Frame) (SDOResponse, error) {
	r := SDOResponse{NodeID: SDONodeIDFromCobID(cobID)}
	r.Command = (f.Data[0] >> 5) & 0b111

	switch r.Command {
	case sdoSCSUploadSegment:
		r.Toggle = (f.Data[0]>>4)&1 == 1
		unused := int((f.Data[0] >> 1) & 0b111)
		r.Complete = f.Data[0]&1 == 1
		end := 7 - unused
		if end < 0 || end > 7 {
			return r, &ProtocolError{NodeID: r.NodeID, Context: "upload segment: invalid byte count"}
		}
		r.SegData = append([]byte(nil), f.Data[1:1+end]...)

	case sdoSCSDownloadSegment:
		r.Toggle = (f.Data[0]>>4)&1 == 1

	case sdoSCSInitiateUpload:
		unused := (f.Data[0] >> 2) & 0b11
		e := (f.Data[0] >> 1) & 1
		s := f.Data[0] & 1
		r.Index = binary.LittleEndian.Uint16(f.Data[1:3])
		r.SubIndex = f.Data[3]
		switch {
		case e == 1 && s == 1:
			r.TransferType = SDOTransferDataWithSize
			n := int(unused)
			r.Data = append([]byte(nil), f.Data[4:4+4-n]...)
		case e == 1 && s == 0:
			r.TransferType = SDOTransferDataNoSize
			r.Data = append([]byte(nil), f.Data[4:8]...)
		case e == 0 && s == 1:
			r.TransferType = SDOTransferSizeOnly
			r.Data = append([]byte(nil), f.Data[4:8]...)
		default:
			r.TransferType = SDOTransferReserved
			return r, &ProtocolError{NodeID: r.NodeID, Context: "initiate upload: reserved transfer type"}
		}

	case sdoSCSInitiateDownload:
		r.Index = binary.LittleEndian.Uint16(f.Data[1:3])
		r.SubIndex = f.Data[3]

	case sdoSCSAbort:
		r.Index = binary.LittleEndian.Uint16(f.Data[1:3])
		r.SubIndex = f.Data[3]
		r.AbortCode = binary.LittleEndian.Uint32(f.Data[4:8])

	default:
		return r, &ProtocolError{NodeID: r.NodeID, Context: fmt.Sprintf("unknown command specifier %d", r.Command)}
	}

	return r, nil
}

// EncodeSDOAbort builds an abort-transfer frame (used in either direction).
func EncodeSDOAbort(index uint16, subIndex uint8, code uint32) Frame {
	var f Frame
	f.DLC = 8
	f.Data[0] = sdoCCSAbort << 5
	binary.LittleEndian.PutUint16(f.Data[1:3], index)
	f.Data[3] = subIndex
	binary.LittleEndian.PutUint32(f.Data[4:8], code)
	return f
}
