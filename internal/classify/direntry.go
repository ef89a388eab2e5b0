package classify

import (
	"encoding/binary"
	"strings"
)

// DirEntry is one parsed EXT4DirectoryEntry record.
type DirEntry struct {
	Inode    uint32
	RecLen   uint16
	NameLen  uint8
	FileType uint8
	Name     string
}

// IsDirectory reports whether the entry's file_type field (2) marks it as a
// subdirectory rather than a regular file, symlink, or other node.
func (e DirEntry) IsDirectory() bool {
	return e.FileType == 2
}

// ParseDirEntries walks data as a sequence of variable-length directory
// records, stopping at the first structurally invalid record or the end of
// the block, per §4.4.2.
func ParseDirEntries(data []byte) []DirEntry {
	var entries []DirEntry
	p := 0
	for p+8 <= len(data) {
		remaining := len(data) - p
		recLen := binary.LittleEndian.Uint16(data[p+4 : p+6])
		nameLen := data[p+6]

		if recLen == 0 || int(recLen) > remaining || int(nameLen) > int(recLen)-8 {
			break
		}

		inode := binary.LittleEndian.Uint32(data[p : p+4])
		fileType := data[p+7]
		name := decodeDirName(data[p+8 : p+8+int(nameLen)])

		if inode > 0 && inode < 1<<32-1 && int(nameLen) < 256 && recLen >= 8 {
			entries = append(entries, DirEntry{
				Inode:    inode,
				RecLen:   recLen,
				NameLen:  nameLen,
				FileType: fileType,
				Name:     name,
			})
		}

		p += int(recLen)
	}
	return entries
}

// decodeDirName copies a directory entry's name, substituting the literal
// <binary_name> if any byte falls outside printable ASCII (trailing NULs
// are tolerated, as ext4 pads names to a 4-byte boundary).
func decodeDirName(b []byte) string {
	trimmed := strings.TrimRight(string(b), "\x00")
	for i := 0; i < len(trimmed); i++ {
		c := trimmed[i]
		if c < 0x20 || c > 0x7E {
			return "<binary_name>"
		}
	}
	return trimmed
}

// looksLikeFirstDirEntry is the DIRECTORY classification test: the block's
// first record parses and has a name and a sane rec_len.
func looksLikeFirstDirEntry(data []byte, blockSize int) bool {
	if len(data) < 8 {
		return false
	}
	recLen := binary.LittleEndian.Uint16(data[4:6])
	nameLen := data[6]
	inode := binary.LittleEndian.Uint32(data[0:4])
	return inode > 0 && inode < 0xFFFFFF &&
		nameLen > 0 && int(nameLen) < 256 &&
		recLen >= 8 && int(recLen) <= blockSize
}
