package journal

import (
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/TazWake/journalViewer/internal/dirtree"
)

const testBlockSize = 4096

// memSource is a fixed-size in-memory ByteSource, the same fixture shape
// extfs_test.go uses, built directly out of raw journal block bytes.
type memSource struct {
	data []byte
}

func newMemSource(size int) *memSource {
	return &memSource{data: make([]byte, size)}
}

func (m *memSource) Read(offset int64, length int) ([]byte, error) {
	if offset < 0 || int(offset)+length > len(m.data) {
		return nil, fmt.Errorf("out of range: offset=%d length=%d size=%d", offset, length, len(m.data))
	}
	out := make([]byte, length)
	copy(out, m.data[offset:int(offset)+length])
	return out, nil
}

// putHeader writes a canonical big-endian JournalHeader at offset.
func (m *memSource) putHeader(offset int64, blockType BlockType, seq uint32) {
	binary.BigEndian.PutUint32(m.data[offset:offset+4], Magic)
	binary.BigEndian.PutUint32(m.data[offset+4:offset+8], uint32(blockType))
	binary.BigEndian.PutUint32(m.data[offset+8:offset+12], seq)
}

// putTag writes one 8-byte descriptor tag at offset.
func (m *memSource) putTag(offset int64, blockNum, flags uint32) {
	binary.BigEndian.PutUint32(m.data[offset:offset+4], blockNum)
	binary.BigEndian.PutUint32(m.data[offset+4:offset+8], flags)
}

// putDirEntry writes one EXT4DirectoryEntry (little-endian) at offset.
func (m *memSource) putDirEntry(offset int64, inode uint32, recLen uint16, fileType byte, name string) {
	binary.LittleEndian.PutUint32(m.data[offset:offset+4], inode)
	binary.LittleEndian.PutUint16(m.data[offset+4:offset+6], recLen)
	m.data[offset+6] = byte(len(name))
	m.data[offset+7] = fileType
	copy(m.data[offset+8:], name)
}

func TestWalkEmptyJournal(t *testing.T) {
	m := newMemSource(testBlockSize)
	w := New(m, Config{BlockSize: testBlockSize, JournalStart: 0, JournalSize: testBlockSize}, dirtree.New(), nil)

	records, err := w.Walk()
	if err != nil {
		t.Fatalf("Walk() failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("got %d records, want 0", len(records))
	}
	if w.Stats().BadMagicBlocks != 1 {
		t.Errorf("BadMagicBlocks = %d, want 1", w.Stats().BadMagicBlocks)
	}
}

func TestWalkSingleCommit(t *testing.T) {
	m := newMemSource(testBlockSize)
	m.putHeader(0, BlockTypeCommit, 5)
	w := New(m, Config{BlockSize: testBlockSize, JournalStart: 0, JournalSize: testBlockSize}, dirtree.New(), nil)

	records, err := w.Walk()
	if err != nil {
		t.Fatalf("Walk() failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	r := records[0]
	if r.BlockType != "commit" || r.TransactionSeq != 5 || r.OperationType != OpTransactionEnd {
		t.Errorf("record = %+v, want commit/5/%s", r, OpTransactionEnd)
	}
	if r.RelativeTime != "T+0" {
		t.Errorf("RelativeTime = %q, want T+0", r.RelativeTime)
	}
}

// TestWalkDescriptorDataCommit exercises spec scenario 3: a descriptor
// naming one directory data block, followed by that data block, followed
// by the matching commit, and checks the exact three-record sequence.
func TestWalkDescriptorDataCommit(t *testing.T) {
	m := newMemSource(3 * testBlockSize)

	// Block 0: descriptor, seq 42, one tag for fs_block 163, last-tag flag set.
	m.putHeader(0, BlockTypeDescriptor, 42)
	m.putTag(headerSize, 163, tagFlagLast)

	// Block 1: the data block the tag names — a directory entry.
	m.putDirEntry(testBlockSize, 12345, 16, 2, "home")

	// Block 2: commit, seq 42.
	m.putHeader(2*testBlockSize, BlockTypeCommit, 42)

	w := New(m, Config{BlockSize: testBlockSize, JournalStart: 0, JournalSize: 3 * testBlockSize}, dirtree.New(), nil)
	records, err := w.Walk()
	if err != nil {
		t.Fatalf("Walk() failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3: %+v", len(records), records)
	}

	desc, commit, data := records[0], records[1], records[2]

	if desc.BlockType != "descriptor" || desc.TransactionSeq != 42 || desc.OperationType != OpTransactionStart {
		t.Errorf("records[0] = %+v, want descriptor/42/%s", desc, OpTransactionStart)
	}
	if commit.BlockType != "commit" || commit.TransactionSeq != 42 || commit.OperationType != OpTransactionEnd {
		t.Errorf("records[1] = %+v, want commit/42/%s", commit, OpTransactionEnd)
	}
	if data.BlockType != "data" || data.FSBlockNum != 163 || data.OperationType != OpDirectoryUpdate {
		t.Errorf("records[2] = %+v, want data/163/%s", data, OpDirectoryUpdate)
	}
	if data.Filename != "home" {
		t.Errorf("data.Filename = %q, want home", data.Filename)
	}
	if data.FullPath != "/home" {
		t.Errorf("data.FullPath = %q, want /home", data.FullPath)
	}
}

func TestWalkSequenceFilterStart(t *testing.T) {
	m := newMemSource(2 * testBlockSize)
	m.putHeader(0, BlockTypeCommit, 10)
	m.putHeader(testBlockSize, BlockTypeCommit, 20)

	start := uint32(15)
	w := New(m, Config{BlockSize: testBlockSize, JournalStart: 0, JournalSize: 2 * testBlockSize, StartSeq: &start}, dirtree.New(), nil)

	records, err := w.Walk()
	if err != nil {
		t.Fatalf("Walk() failed: %v", err)
	}
	if len(records) != 1 || records[0].TransactionSeq != 20 {
		t.Fatalf("records = %+v, want one record with seq 20", records)
	}
}

func TestWalkSequenceFilterEnd(t *testing.T) {
	m := newMemSource(2 * testBlockSize)
	m.putHeader(0, BlockTypeCommit, 10)
	m.putHeader(testBlockSize, BlockTypeCommit, 20)

	end := uint32(15)
	w := New(m, Config{BlockSize: testBlockSize, JournalStart: 0, JournalSize: 2 * testBlockSize, EndSeq: &end}, dirtree.New(), nil)

	records, err := w.Walk()
	if err != nil {
		t.Fatalf("Walk() failed: %v", err)
	}
	if len(records) != 1 || records[0].TransactionSeq != 10 {
		t.Fatalf("records = %+v, want one record with seq 10 (seq 20 stops the walk)", records)
	}
}

