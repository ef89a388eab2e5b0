// Package forensic accumulates the per-block record stream a Walker
// produces into summary statistics: block-type counts, sequence-gap
// tracking, and a heuristic guess at the filesystem's journal mode.
package forensic

import (
	"github.com/google/uuid"

	"github.com/TazWake/journalViewer/internal/journal"
)

const maxSampleStrings = 5

// Mode is the analyzer's best guess at how the journal was configured.
type Mode string

const (
	ModeJournal   Mode = "JOURNAL"
	ModeOrdered   Mode = "ORDERED"
	ModeWriteback Mode = "WRITEBACK"
	ModeUnknown   Mode = "UNKNOWN"
)

// Summary is the read-only snapshot Aggregator.Summary returns.
type Summary struct {
	DescriptorBlocks int
	CommitBlocks     int
	RevocationBlocks int
	DataBlocks       int
	SuperblockBlocks int

	MinSeq       uint32
	MaxSeq       uint32
	SequenceGaps int

	UniqueFSBlocks int

	DataBlocksWithStrings int
	TextFileBlocks        int
	ConfigFileBlocks      int
	LogFileBlocks         int
	SampleStrings         []string

	AvgTagsPerTransaction float64
	MaxTagsPerTransaction int

	DetectedMode Mode
	JournalUUID  *uuid.UUID
}

// Aggregator is fed one Record at a time as a Walker produces them. It
// never rejects, reclassifies, or otherwise influences the record stream —
// every method here is purely observational.
type Aggregator struct {
	descriptorBlocks int
	commitBlocks     int
	revocationBlocks int
	dataBlocks       int
	superblockBlocks int

	seenSeq map[uint32]bool
	minSeq  uint32
	maxSeq  uint32
	haveSeq bool

	fsBlocks map[uint64]bool

	dataBlocksWithStrings int
	textFileBlocks        int
	configFileBlocks      int
	logFileBlocks         int
	metadataBlocks        int
	sampleStrings         []string

	tagCountBySeq map[uint32]int

	journalUUID *uuid.UUID
}

// New returns an empty Aggregator.
func New() *Aggregator {
	return &Aggregator{
		seenSeq:       make(map[uint32]bool),
		fsBlocks:      make(map[uint64]bool),
		tagCountBySeq: make(map[uint32]int),
	}
}

// SetJournalUUID records the journal superblock's UUID (JBD2 v2 only), for
// inclusion in the summary.
func (a *Aggregator) SetJournalUUID(id uuid.UUID) {
	a.journalUUID = &id
}

// Observe folds one emitted record into the running counters.
func (a *Aggregator) Observe(r *journal.Record) {
	switch r.BlockType {
	case "descriptor":
		a.descriptorBlocks++
		a.tagCountBySeq[r.TransactionSeq] = r.DataSize
	case "commit":
		a.commitBlocks++
	case "revocation":
		a.revocationBlocks++
	case "data":
		a.dataBlocks++
		if r.FSBlockNum != 0 {
			a.fsBlocks[r.FSBlockNum] = true
		}
		a.observeStrings(r)
	case "superblock":
		a.superblockBlocks++
	}

	a.observeSeq(r.TransactionSeq)
}

func (a *Aggregator) observeSeq(seq uint32) {
	if !a.haveSeq {
		a.minSeq, a.maxSeq = seq, seq
		a.haveSeq = true
	} else {
		if seq < a.minSeq {
			a.minSeq = seq
		}
		if seq > a.maxSeq {
			a.maxSeq = seq
		}
	}
	a.seenSeq[seq] = true
}

func (a *Aggregator) observeStrings(r *journal.Record) {
	if r.OperationType == journal.OpMetadataUpdate {
		a.metadataBlocks++
	}
	if r.OperationType != journal.OpFileDataUpdate {
		return
	}
	switch r.FileType {
	case "text":
		a.textFileBlocks++
		a.dataBlocksWithStrings++
	case "config":
		a.configFileBlocks++
		a.dataBlocksWithStrings++
	case "log":
		a.logFileBlocks++
		a.dataBlocksWithStrings++
	}
	if r.FilePath != "" && len(a.sampleStrings) < maxSampleStrings {
		a.sampleStrings = append(a.sampleStrings, r.FilePath)
	}
}

// Summary computes the final snapshot. Safe to call at any point, not just
// at the end of a walk.
func (a *Aggregator) Summary() Summary {
	gaps := 0
	if a.haveSeq && a.maxSeq > a.minSeq {
		for seq := a.minSeq + 1; seq < a.maxSeq; seq++ {
			if !a.seenSeq[seq] {
				gaps++
			}
		}
	}

	var totalTags, maxTags int
	for _, n := range a.tagCountBySeq {
		totalTags += n
		if n > maxTags {
			maxTags = n
		}
	}
	avgTags := 0.0
	if len(a.tagCountBySeq) > 0 {
		avgTags = float64(totalTags) / float64(len(a.tagCountBySeq))
	}

	return Summary{
		DescriptorBlocks:      a.descriptorBlocks,
		CommitBlocks:          a.commitBlocks,
		RevocationBlocks:      a.revocationBlocks,
		DataBlocks:            a.dataBlocks,
		SuperblockBlocks:      a.superblockBlocks,
		MinSeq:                a.minSeq,
		MaxSeq:                a.maxSeq,
		SequenceGaps:          gaps,
		UniqueFSBlocks:        len(a.fsBlocks),
		DataBlocksWithStrings: a.dataBlocksWithStrings,
		TextFileBlocks:        a.textFileBlocks,
		ConfigFileBlocks:      a.configFileBlocks,
		LogFileBlocks:         a.logFileBlocks,
		SampleStrings:         a.sampleStrings,
		AvgTagsPerTransaction: avgTags,
		MaxTagsPerTransaction: maxTags,
		DetectedMode:          a.detectMode(),
		JournalUUID:           a.journalUUID,
	}
}

// detectMode applies the analyzer's journal-mode heuristic: zero data
// blocks with at least one descriptor looks like ORDERED mode; data blocks
// outnumbering half the descriptors looks like full JOURNAL mode; metadata-
// heavy traffic also reads as ORDERED; anything else is UNKNOWN.
func (a *Aggregator) detectMode() Mode {
	switch {
	case a.dataBlocks == 0 && a.descriptorBlocks >= 1:
		return ModeOrdered
	case float64(a.dataBlocks) > 0.5*float64(a.descriptorBlocks):
		return ModeJournal
	case float64(a.metadataBlocks) > 0.8*float64(a.descriptorBlocks):
		return ModeOrdered
	default:
		return ModeUnknown
	}
}
