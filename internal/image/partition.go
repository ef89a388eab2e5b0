package image

import (
	"fmt"
	"io"

	"github.com/rekby/mbr"
)

// sectorSize is the standard MBR sector size; spec.md's partition-offset
// contract lets callers express offsets in sectors or bytes, defaulting the
// sector size to 512 (§6).
const sectorSize = 512

// partitionTypeLinuxNative mirrors fs/partitions.go's PartitionTypeLinuxNativePartition.
const partitionTypeLinuxNative = 0x83

// AutoPartitionOffset inspects the MBR at the start of the image and returns
// the byte offset of the first Linux-native (0x83) partition. It is used
// when the caller supplies no explicit partition offset, generalizing
// fs/partitions.go's CheckPiPartitionTable (which expected an exact 4-entry
// Raspberry Pi layout) to "find a plausible Linux partition".
func AutoPartitionOffset(r *Reader) (int64, error) {
	tab, err := mbr.Read(io.NewSectionReader(r, 0, sectorSize))
	if err != nil {
		return 0, fmt.Errorf("reading MBR: %w", err)
	}
	if err := tab.Check(); err != nil {
		return 0, fmt.Errorf("invalid MBR: %w", err)
	}

	for _, part := range tab.GetAllPartitions() {
		if part.GetType() == mbr.PartitionType(partitionTypeLinuxNative) {
			return int64(part.GetLBAStart()) * sectorSize, nil
		}
	}

	return 0, fmt.Errorf("no Linux-native (0x83) partition found in MBR")
}
