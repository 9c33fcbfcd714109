package iobus

import "encoding/binary"

// LSS (Layer Setting Services) arbitration ids. All LSS frames carry 8 bytes.
const (
	LSSMasterToSlaveID uint32 = 0x7E5
	LSSSlaveToMasterID uint32 = 0x7E4
)

// LSS command specifiers, byte 0 of the payload.
const (
	LSSCmdSwitchGlobal    = 0x04
	LSSCmdConfigureNodeID = 0x11
	LSSCmdFastScan        = 0x51
	LSSCmdIdentifySlave   = 0x4F
)

// LSS switch-global modes.
const (
	LSSModeOperation     = 0
	LSSModeConfiguration = 1
)

// NodeIDInvalidate resets a node's configured id (configure node id, value 255).
const NodeIDInvalidate = 0xFF

// EncodeLSSSwitchGlobal builds the "switch global" frame.
func EncodeLSSSwitchGlobal(mode uint8) Frame {
	var f Frame
	f.ID = LSSMasterToSlaveID
	f.DLC = 8
	f.Data[0] = LSSCmdSwitchGlobal
	f.Data[1] = mode
	return f
}

// EncodeLSSConfigureNodeID builds the "configure node id" frame. nodeID must
// be in [1,127] or NodeIDInvalidate.
func EncodeLSSConfigureNodeID(nodeID uint8) Frame {
	var f Frame
	f.ID = LSSMasterToSlaveID
	f.DLC = 8
	f.Data[0] = LSSCmdConfigureNodeID
	f.Data[1] = nodeID
	return f
}

// EncodeLSSFastScan builds a fast-scan probe frame:
// {u32 idNumber, u8 bitChecked, u8 lssSub, u8 lssNext}, little-endian.
func EncodeLSSFastScan(idNumber uint32, bitChecked, lssSub, lssNext uint8) Frame {
	var f Frame
	f.ID = LSSMasterToSlaveID
	f.DLC = 8
	f.Data[0] = LSSCmdFastScan
	binary.LittleEndian.PutUint32(f.Data[1:5], idNumber)
	f.Data[5] = bitChecked
	f.Data[6] = lssSub
	f.Data[7] = lssNext
	return f
}

// LSSResponse is a decoded slave->master LSS frame.
type LSSResponse struct {
	Command uint8
}

// DecodeLSSResponse reads the command specifier out of an LSS response frame.
// Fast-scan and configure-node-id confirmations from this bootloader family
// echo the identify-slave command (0x4F) regardless of which request
// triggered them; callers distinguish by context (which request is pending),
// matching original_source/lxa_iobus/network.py's single-slot rendezvous.
func DecodeLSSResponse(f Frame) LSSResponse {
	return LSSResponse{Command: f.Data[0]}
}
