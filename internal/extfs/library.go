package extfs

import (
	"fmt"
	"io"

	ext4lib "github.com/dsoprea/go-ext4"
)

// ValidateWithLibrary cross-checks the hand-rolled superblock parse against
// github.com/dsoprea/go-ext4, the same library twitchyliquid64/raspberry-box
// uses in fs/ext4.go to load an ext4 filesystem. It never gates the primary
// path — it exists so a caller running with -cross-check can confirm the
// library also parses the image, and so ResolveBlockGroup below has a
// BlockGroupDescriptorList to work with. It returns only the descriptor
// list; it does not compare any field with the hand-rolled Params.
func ValidateWithLibrary(rs io.ReadSeeker) (*ext4lib.BlockGroupDescriptorList, error) {
	if _, err := rs.Seek(ext4lib.Superblock0Offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seeking to superblock: %w", err)
	}

	sb, err := ext4lib.NewSuperblockWithReader(rs)
	if err != nil {
		return nil, fmt.Errorf("library superblock parse: %w", err)
	}

	bgdl, err := ext4lib.NewBlockGroupDescriptorListWithReadSeeker(rs, sb)
	if err != nil {
		return nil, fmt.Errorf("library block-group descriptor parse: %w", err)
	}

	return bgdl, nil
}

// ResolveBlockGroup answers spec.md §9's open question about computing a
// true (non-synthetic) inode number: given the block group an inode lives
// in, the synthetic per-block slot index emitted by BlockClassifier can be
// turned into a real inode number via
// (groupIndex * inodesPerGroup) + slotOffset + 1. This helper returns the
// descriptor for the group owning inode, resolved through the library
// rather than by re-deriving block-group arithmetic by hand.
func ResolveBlockGroup(bgdl *ext4lib.BlockGroupDescriptorList, inode int) (*ext4lib.BlockGroupDescriptor, error) {
	bgd, err := bgdl.GetWithAbsoluteInode(inode)
	if err != nil {
		return nil, fmt.Errorf("resolving block group for inode %d: %w", inode, err)
	}
	return bgd, nil
}
