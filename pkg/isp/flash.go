package isp

import "encoding/binary"

// FixChecksum patches the Cortex-M0 vector-table checksum the bootloader
// requires to accept an image as valid user code: the first seven 32-bit
// words (interrupt vectors) are reinterpreted as signed integers, summed,
// and the two's-complement negation is written as the eighth word (byte
// offset 28..32). Grounded on can_isp.py's fix_checksum; the signed
// arithmetic is preserved exactly per the source's own caution that unsigned
// math here, though it "looks cleaner", is not equivalent.
func FixChecksum(data []byte) {
	var sum int32
	for i := 0; i < 7; i++ {
		word := int32(binary.LittleEndian.Uint32(data[i*4 : i*4+4]))
		sum += word
	}
	checksum := -sum
	binary.LittleEndian.PutUint32(data[28:32], uint32(checksum))
}

// padToBlock pads data with 0xFF to the next BlockSize boundary.
func padToBlock(data []byte) []byte {
	remainder := len(data) % BlockSize
	if remainder == 0 {
		return data
	}
	padded := make([]byte, len(data)+(BlockSize-remainder))
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = 0xFF
	}
	return padded
}

// FlashImage writes data starting at byte offset start (a multiple of
// BlockSize) into the flash region: fixes the vector-table checksum when
// writing to the start of the flash region (not the config region), unlocks,
// prepares and erases the whole covered sector range, then for each block
// stages it via RAM and copies RAM to flash. Grounded on can_isp.py's
// CanIsp.write/flash_image.
func (f *Flasher) FlashImage(start uint32, data []byte, fixChecksum bool) error {
	if start%BlockSize != 0 {
		return errInvalidStart
	}

	padded := padToBlock(data)
	if fixChecksum && len(padded) > 0 {
		FixChecksum(padded)
	}

	startSector := int(start / BlockSize)
	blockCount := len(padded) / BlockSize
	endSector := startSector + blockCount - 1

	if err := f.Unlock(); err != nil {
		return err
	}
	if err := f.PrepareSectors(startSector, endSector); err != nil {
		return err
	}
	if err := f.EraseSectors(startSector, endSector); err != nil {
		return err
	}

	for i := 0; i < blockCount; i++ {
		block := padded[i*BlockSize : (i+1)*BlockSize]
		sector := startSector + i
		flashAddr := start + uint32(i*BlockSize)

		if err := f.writeToRAM(RAMStageAddr, block); err != nil {
			return err
		}
		if err := f.PrepareSectors(sector, sector); err != nil {
			return err
		}
		if err := f.CopyRAMToFlash(flashAddr, RAMStageAddr, BlockSize); err != nil {
			return err
		}
	}

	return nil
}

var errInvalidStart = &invalidStartError{}

type invalidStartError struct{}

func (*invalidStartError) Error() string { return "isp: start offset must be a multiple of the block size" }
