package classify

import "encoding/binary"

// EXT4 mode high-nibble file type bits (i_mode & 0xF000).
const (
	modeFIFO     = 0x1000
	modeCharDev  = 0x2000
	modeDir      = 0x4000
	modeBlockDev = 0x6000
	modeRegular  = 0x8000
	modeSymlink  = 0xA000
	modeSocket   = 0xC000
)

const (
	inodeOffMode       = 0
	inodeOffSizeLo     = 4
	inodeOffLinksCount = 26
	inodeOffSizeHi     = 108
)

// InodeSlot is one plausible inode found while scanning a candidate
// inode-table block.
type InodeSlot struct {
	SlotIndex            int
	Mode                 uint16
	LinksCount           uint16
	FileSize             uint64
	FileTypeString       string
	SyntheticInodeNumber uint32
}

// isPlausibleInode applies the §3 plausibility test: mode != 0 and
// 0 < links_count < 65536.
func isPlausibleInode(mode, linksCount uint16) bool {
	return mode != 0 && linksCount > 0 && int(linksCount) < 65536
}

// ParseInodeSlots walks data as a packed array of inodeSize-byte records and
// returns every slot that passes the plausibility test, in slot order. The
// synthetic inode number (slot+1) is only correct for the first inode-table
// block of block group 0 — see classify.ResolveInodeNumber.
func ParseInodeSlots(data []byte, inodeSize uint16) []InodeSlot {
	if inodeSize == 0 || len(data) < int(inodeSize) {
		return nil
	}
	count := len(data) / int(inodeSize)
	slots := make([]InodeSlot, 0, count)
	for i := 0; i < count; i++ {
		rec := data[i*int(inodeSize) : (i+1)*int(inodeSize)]
		if len(rec) < inodeOffLinksCount+2 {
			continue
		}
		mode := binary.LittleEndian.Uint16(rec[inodeOffMode : inodeOffMode+2])
		links := binary.LittleEndian.Uint16(rec[inodeOffLinksCount : inodeOffLinksCount+2])
		if !isPlausibleInode(mode, links) {
			continue
		}

		sizeLo := binary.LittleEndian.Uint32(rec[inodeOffSizeLo : inodeOffSizeLo+4])
		var sizeHi uint32
		if len(rec) >= inodeOffSizeHi+4 {
			sizeHi = binary.LittleEndian.Uint32(rec[inodeOffSizeHi : inodeOffSizeHi+4])
		}

		slots = append(slots, InodeSlot{
			SlotIndex:            i,
			Mode:                 mode,
			LinksCount:           links,
			FileSize:             uint64(sizeLo) | uint64(sizeHi)<<32,
			FileTypeString:       fileTypeString(mode),
			SyntheticInodeNumber: uint32(i + 1),
		})
	}
	return slots
}

func fileTypeString(mode uint16) string {
	switch mode & 0xF000 {
	case modeRegular:
		return "regular_file"
	case modeDir:
		return "directory"
	case modeSymlink:
		return "symlink"
	case modeCharDev:
		return "char_device"
	case modeBlockDev:
		return "block_device"
	case modeFIFO:
		return "fifo"
	case modeSocket:
		return "socket"
	default:
		return "unknown"
	}
}

// ResolveInodeNumber turns a synthetic slot-based inode number into a true
// one, given the zero-based block group index and the filesystem's
// inodes-per-group, per spec §9's open question. Callers without block
// group context should keep using SyntheticInodeNumber directly.
func ResolveInodeNumber(groupIndex, slotIndex, inodesPerGroup uint32) uint32 {
	return groupIndex*inodesPerGroup + slotIndex + 1
}
