package classify

import (
	"encoding/binary"
	"testing"
)

func makeInode(mode, links uint16, sizeLo uint32) []byte {
	b := make([]byte, 128)
	binary.LittleEndian.PutUint16(b[inodeOffMode:], mode)
	binary.LittleEndian.PutUint16(b[inodeOffLinksCount:], links)
	binary.LittleEndian.PutUint32(b[inodeOffSizeLo:], sizeLo)
	return b
}

func TestClassifyInodeTable(t *testing.T) {
	block := make([]byte, 512)
	copy(block[0:128], makeInode(0x8000, 1, 4096))
	copy(block[128:256], makeInode(0x4000, 2, 0))

	result := Classify(block, 128)
	if result.Kind != KindInodeTable {
		t.Fatalf("Kind = %v, want KindInodeTable", result.Kind)
	}
	if len(result.Inodes) != 2 {
		t.Fatalf("len(Inodes) = %d, want 2", len(result.Inodes))
	}
	if result.Inodes[0].FileTypeString != "regular_file" {
		t.Errorf("FileTypeString = %q, want regular_file", result.Inodes[0].FileTypeString)
	}
	if result.Inodes[0].SyntheticInodeNumber != 1 {
		t.Errorf("SyntheticInodeNumber = %d, want 1", result.Inodes[0].SyntheticInodeNumber)
	}
}

func TestClassifyDirectory(t *testing.T) {
	block := make([]byte, 64)
	binary.LittleEndian.PutUint32(block[0:4], 12345)
	binary.LittleEndian.PutUint16(block[4:6], 16)
	block[6] = 4
	block[7] = 2
	copy(block[8:12], []byte("home"))

	result := Classify(block, 128)
	if result.Kind != KindDirectory {
		t.Fatalf("Kind = %v, want KindDirectory", result.Kind)
	}
	if len(result.DirEntries) != 1 {
		t.Fatalf("len(DirEntries) = %d, want 1", len(result.DirEntries))
	}
	entry := result.DirEntries[0]
	if entry.Inode != 12345 || entry.Name != "home" || !entry.IsDirectory() {
		t.Errorf("entry = %+v, want inode=12345 name=home directory", entry)
	}
}

func TestParseDirEntriesBinaryName(t *testing.T) {
	block := make([]byte, 16)
	binary.LittleEndian.PutUint32(block[0:4], 99)
	binary.LittleEndian.PutUint16(block[4:6], 16)
	block[6] = 4
	block[7] = 1
	block[8] = 0x01 // non-printable
	block[9] = 'b'
	block[10] = 'c'
	block[11] = 'd'

	entries := ParseDirEntries(block)
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
	if entries[0].Name != "<binary_name>" {
		t.Errorf("Name = %q, want <binary_name>", entries[0].Name)
	}
}

func TestClassifyMetadata(t *testing.T) {
	block := make([]byte, 64)
	for i := 0; i+4 <= len(block); i += 4 {
		binary.LittleEndian.PutUint32(block[i:i+4], uint32(100+i))
	}

	result := Classify(block, 128)
	if result.Kind != KindMetadata {
		t.Fatalf("Kind = %v, want KindMetadata", result.Kind)
	}
}

func TestClassifyFileDataAndStrings(t *testing.T) {
	block := make([]byte, 64)
	copy(block, []byte("This is some readable text in a block, config=1\x00\x00\x00"))

	result := Classify(block, 128)
	if result.Kind != KindFileData {
		t.Fatalf("Kind = %v, want KindFileData", result.Kind)
	}
	if !result.Strings.IsText {
		t.Error("IsText = false, want true")
	}
	if !result.Strings.IsConfig {
		t.Error("IsConfig = false, want true")
	}
}
