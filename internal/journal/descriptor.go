package journal

import "encoding/binary"

const (
	tagSize = 8

	// tagFlagLast marks the final tag of a descriptor block, mirroring
	// jbd2's own last-tag bit.
	tagFlagLast uint32 = 0x08
)

// DescriptorTag names one filesystem block the transaction restores and the
// flags that came with it. This is the simplified 8-byte shape this
// analyzer targets (fs block number + a byte of flags), not JBD2's full v1/
// v2/v3 tag with inline checksum and UUID.
type DescriptorTag struct {
	FSBlockNum uint32
	Flags      uint32
	Last       bool
}

// ParseDescriptorTags reads tags from a descriptor block's payload (the
// bytes following the 12-byte Header). Parsing stops at an all-zero tag
// pair, a tag with the last-tag flag set, or the end of the payload,
// whichever comes first.
func ParseDescriptorTags(payload []byte) []DescriptorTag {
	var tags []DescriptorTag
	for off := 0; off+tagSize <= len(payload); off += tagSize {
		blockNum := binary.BigEndian.Uint32(payload[off : off+4])
		flags := binary.BigEndian.Uint32(payload[off+4 : off+8])

		if blockNum == 0 && flags == 0 {
			break
		}
		if blockNum > 0 && blockNum < 1<<31 && flags <= 0xFF {
			tags = append(tags, DescriptorTag{
				FSBlockNum: blockNum,
				Flags:      flags,
				Last:       flags&tagFlagLast != 0,
			})
		}
		if flags&tagFlagLast != 0 {
			break
		}
	}
	return tags
}
