// Package journal decodes the JBD/JBD2 journal carried inside an ext3/ext4
// filesystem: block headers, descriptor tags, and the transaction state
// machine that pairs descriptors with their commits. The block layouts here
// are grounded on diskfs/go-diskfs's ext4 journal codec (journalHeader,
// journalBlockType, the big-endian field layout), trimmed to the simpler
// descriptor tag shape this analyzer actually needs.
package journal

import (
	"encoding/binary"
	"fmt"
)

// BlockType is the second field of every JournalHeader.
type BlockType uint32

const (
	BlockTypeDescriptor   BlockType = 1
	BlockTypeCommit       BlockType = 2
	BlockTypeSuperblockV1 BlockType = 3
	BlockTypeSuperblockV2 BlockType = 4
	BlockTypeRevocation   BlockType = 5
)

func (t BlockType) String() string {
	switch t {
	case BlockTypeDescriptor:
		return "descriptor"
	case BlockTypeCommit:
		return "commit"
	case BlockTypeSuperblockV1, BlockTypeSuperblockV2:
		return "superblock"
	case BlockTypeRevocation:
		return "revocation"
	default:
		return "unknown"
	}
}

// Magic is the on-disk JBD2 signature, always stored big-endian.
const Magic uint32 = 0xC03B3998

// altMagics are alternative magic values that some tooling has
// historically written or compared against (the JBD/JBD2 constants the
// original analyzer accepted alongside the canonical value): 0x98393BC0 is
// Magic with its bytes reversed, and 0x9839B3C0 is the byte-reversed form
// of 0xC0B33998. A header is
// valid if its first four bytes, read big-endian, equal Magic or either of
// these.
var altMagics = []uint32{0x9839B3C0, 0x98393BC0}

const headerSize = 12

// Header is the common 12-byte prefix of every journal block.
type Header struct {
	Magic     uint32
	BlockType BlockType
	Sequence  uint32
}

// ParseHeader reads a Header from the first 12 bytes of b. The on-disk
// representation is big-endian regardless of host byte order.
func ParseHeader(b []byte) (*Header, error) {
	if len(b) < headerSize {
		return nil, fmt.Errorf("journal header needs %d bytes, got %d", headerSize, len(b))
	}
	magic := binary.BigEndian.Uint32(b[0:4])
	if !isValidMagic(magic) {
		return nil, fmt.Errorf("bad journal magic: 0x%x (want 0x%x)", magic, Magic)
	}
	return &Header{
		Magic:     magic,
		BlockType: BlockType(binary.BigEndian.Uint32(b[4:8])),
		Sequence:  binary.BigEndian.Uint32(b[8:12]),
	}, nil
}

// Bytes re-serializes the header to its 12-byte on-disk form. Parsing
// followed by Bytes reproduces the original bytes exactly.
func (h *Header) Bytes() []byte {
	b := make([]byte, headerSize)
	binary.BigEndian.PutUint32(b[0:4], h.Magic)
	binary.BigEndian.PutUint32(b[4:8], uint32(h.BlockType))
	binary.BigEndian.PutUint32(b[8:12], h.Sequence)
	return b
}

// LooksLikeHeader reports whether b's first 4 bytes match the journal magic,
// without requiring the full 12 bytes a Header needs. Used by the
// superblock locator's fallback scan.
func LooksLikeHeader(b []byte) bool {
	if len(b) < 4 {
		return false
	}
	return isValidMagic(binary.BigEndian.Uint32(b[0:4]))
}

func isValidMagic(magic uint32) bool {
	if magic == Magic {
		return true
	}
	for _, alt := range altMagics {
		if magic == alt {
			return true
		}
	}
	return false
}
