package forensic

import (
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/TazWake/journalViewer/internal/dirtree"
	"github.com/TazWake/journalViewer/internal/journal"
)

const testBlockSize = 4096

// memSource is a fixed-size in-memory journal.ByteSource, mirroring the
// fixture journal's own walker_test.go uses.
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
func (m *memSource) putHeader(offset int64, blockType journal.BlockType, seq uint32) {
	binary.BigEndian.PutUint32(m.data[offset:offset+4], journal.Magic)
	binary.BigEndian.PutUint32(m.data[offset+4:offset+8], uint32(blockType))
	binary.BigEndian.PutUint32(m.data[offset+8:offset+12], seq)
}

// TestWalkModeDetectionOrdered exercises spec scenario 6 through a live
// walk rather than hand-built Records: a run of descriptor-only blocks
// with no committed data should read as ORDERED mode.
func TestWalkModeDetectionOrdered(t *testing.T) {
	const n = 20
	m := newMemSource(n * testBlockSize)
	for i := 0; i < n; i++ {
		m.putHeader(int64(i)*testBlockSize, journal.BlockTypeDescriptor, uint32(i+1))
	}

	w := journal.New(m, journal.Config{BlockSize: testBlockSize, JournalStart: 0, JournalSize: int64(n) * testBlockSize}, dirtree.New(), nil)
	records, err := w.Walk()
	if err != nil {
		t.Fatalf("Walk() failed: %v", err)
	}

	agg := New()
	for _, r := range records {
		agg.Observe(r)
	}
	summary := agg.Summary()
	if summary.DetectedMode != ModeOrdered {
		t.Errorf("DetectedMode = %v, want ORDERED", summary.DetectedMode)
	}
	if summary.DescriptorBlocks != n {
		t.Errorf("DescriptorBlocks = %d, want %d", summary.DescriptorBlocks, n)
	}
}

func TestModeOrderedOnZeroDataBlocks(t *testing.T) {
	a := New()
	for seq := uint32(0); seq < 100; seq++ {
		a.Observe(&journal.Record{BlockType: "descriptor", TransactionSeq: seq, DataSize: 1})
	}

	s := a.Summary()
	if s.DetectedMode != ModeOrdered {
		t.Errorf("DetectedMode = %v, want ORDERED", s.DetectedMode)
	}
	if s.DescriptorBlocks != 100 {
		t.Errorf("DescriptorBlocks = %d, want 100", s.DescriptorBlocks)
	}
}

func TestModeJournalWhenDataHeavy(t *testing.T) {
	a := New()
	a.Observe(&journal.Record{BlockType: "descriptor", TransactionSeq: 1, DataSize: 10})
	for i := 0; i < 10; i++ {
		a.Observe(&journal.Record{BlockType: "data", TransactionSeq: 1, FSBlockNum: uint64(i + 1), OperationType: journal.OpFileDataUpdate})
	}

	s := a.Summary()
	if s.DetectedMode != ModeJournal {
		t.Errorf("DetectedMode = %v, want JOURNAL", s.DetectedMode)
	}
	if s.UniqueFSBlocks != 10 {
		t.Errorf("UniqueFSBlocks = %d, want 10", s.UniqueFSBlocks)
	}
}

func TestSequenceGapTracking(t *testing.T) {
	a := New()
	a.Observe(&journal.Record{BlockType: "commit", TransactionSeq: 1})
	a.Observe(&journal.Record{BlockType: "commit", TransactionSeq: 5})

	s := a.Summary()
	if s.SequenceGaps != 3 {
		t.Errorf("SequenceGaps = %d, want 3", s.SequenceGaps)
	}
	if s.MinSeq != 1 || s.MaxSeq != 5 {
		t.Errorf("MinSeq/MaxSeq = %d/%d, want 1/5", s.MinSeq, s.MaxSeq)
	}
}
