package journal

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/TazWake/journalViewer/internal/classify"
	"github.com/TazWake/journalViewer/internal/dirtree"
)

// ByteSource is the minimal read contract the walker needs; *image.Reader
// satisfies it without this package importing image.
type ByteSource interface {
	Read(offset int64, length int) ([]byte, error)
}

// Config is the fixed geometry and filter set a Walker runs with.
type Config struct {
	BlockSize    uint32
	InodeSize    uint16
	JournalStart int64
	JournalSize  int64
	StartSeq     *uint32
	EndSeq       *uint32
}

// Stats counts the non-fatal problems a walk encountered, per the error
// taxonomy's "structural skip" category.
type Stats struct {
	BlocksScanned        int
	ShortReads           int
	BadMagicBlocks       int
	UnreadableDataBlocks int
}

// pendingTxn is the walker's IN_TXN state: a descriptor whose commit hasn't
// arrived yet.
type pendingTxn struct {
	seq    uint32
	tags   []DescriptorTag
	offset int64
}

// Walker iterates a located journal's block range and turns it into a
// stream of Records, pairing each descriptor with its commit and feeding
// escaped data blocks through classify and dirtree.
type Walker struct {
	src  ByteSource
	cfg  Config
	tree *dirtree.Tree
	log  *logrus.Logger

	journalUUID *uuid.UUID
	stats       Stats
}

// New builds a Walker. tree receives every directory entry the walk
// discovers. A directory record's FullPath is resolved when that record is
// built, so it reflects only the entries discovered up to that point.
func New(src ByteSource, cfg Config, tree *dirtree.Tree, log *logrus.Logger) *Walker {
	if log == nil {
		log = logrus.New()
	}
	return &Walker{src: src, cfg: cfg, tree: tree, log: log}
}

// JournalUUID returns the journal superblock's UUID, if a v2 superblock
// block was observed during the walk.
func (w *Walker) JournalUUID() *uuid.UUID {
	return w.journalUUID
}

// Stats returns the skip/error counters accumulated so far.
func (w *Walker) Stats() Stats {
	return w.stats
}

// Walk scans the configured journal range end to end and returns every
// record it could produce, in on-disk block order. It never aborts
// partway through — unreadable or malformed blocks are counted and
// skipped, per the analyzer's "always finish the walk" contract. When the
// journal size is unknown (<= 0) the walk runs until the first read that
// fails, i.e. the end of the image.
func (w *Walker) Walk() ([]*Record, error) {
	if w.cfg.BlockSize == 0 {
		return nil, fmt.Errorf("walker: block size must be nonzero")
	}

	var records []*Record
	var pending *pendingTxn

	journalEnd := w.cfg.JournalStart + w.cfg.JournalSize
	unbounded := w.cfg.JournalSize <= 0

	for offset := w.cfg.JournalStart; unbounded || offset < journalEnd; offset += int64(w.cfg.BlockSize) {
		block, err := w.src.Read(offset, int(w.cfg.BlockSize))
		if err != nil {
			w.stats.ShortReads++
			if unbounded {
				break
			}
			continue
		}
		w.stats.BlocksScanned++

		hdr, err := ParseHeader(block)
		if err != nil {
			w.stats.BadMagicBlocks++
			continue
		}

		if w.cfg.StartSeq != nil && hdr.Sequence < *w.cfg.StartSeq {
			continue
		}
		if w.cfg.EndSeq != nil && hdr.Sequence > *w.cfg.EndSeq {
			break
		}

		switch hdr.BlockType {
		case BlockTypeDescriptor:
			tags := ParseDescriptorTags(block[headerSize:])
			pending = &pendingTxn{seq: hdr.Sequence, tags: tags, offset: offset}
			records = append(records, &Record{
				TransactionSeq: hdr.Sequence,
				BlockType:      hdr.BlockType.String(),
				OperationType:  OpTransactionStart,
				DataSize:       len(tags),
				Checksum:       BlockChecksum(block),
			})

		case BlockTypeCommit:
			records = append(records, &Record{
				TransactionSeq: hdr.Sequence,
				BlockType:      hdr.BlockType.String(),
				OperationType:  OpTransactionEnd,
				DataSize:       0,
				Checksum:       BlockChecksum(block),
			})
			if pending != nil {
				records = append(records, w.drainTransaction(pending, journalEnd)...)
				pending = nil
			}

		case BlockTypeRevocation:
			records = append(records, &Record{
				TransactionSeq: hdr.Sequence,
				BlockType:      hdr.BlockType.String(),
				OperationType:  OpBlockRevocation,
				DataSize:       int(w.cfg.BlockSize) - headerSize,
				Checksum:       BlockChecksum(block),
			})

		case BlockTypeSuperblockV1, BlockTypeSuperblockV2:
			if hdr.BlockType == BlockTypeSuperblockV2 && len(block) >= 0x40 {
				if id, err := uuid.FromBytes(block[0x30:0x40]); err == nil {
					w.journalUUID = &id
				}
			}
			records = append(records, &Record{
				TransactionSeq: hdr.Sequence,
				BlockType:      hdr.BlockType.String(),
				OperationType:  OpJournalSuperblock,
				DataSize:       int(w.cfg.BlockSize) - headerSize,
				Checksum:       BlockChecksum(block),
			})

		default:
			// Unknown block type: skip silently, per the spec'd state
			// machine ("unknown block_type is treated as skip").
		}
	}

	backfillRelativeTime(records)
	return records, nil
}

// defaultJournalSizeEstimate is used when the configured journal size is
// unknown, matching the original analyzer's 128 MiB fallback.
const defaultJournalSizeEstimate = 128 * 1024 * 1024

// averageTransactionBlocks is the rough per-transaction block count the
// original analyzer assumed for its estimate: one descriptor, one commit,
// and roughly 8 data blocks.
const averageTransactionBlocks = 10

// EstimateTransactionCount gives a rough, pre-walk sizing hint for -v
// diagnostics: journal_size / (block_size * 10), using a 128 MiB default
// when the journal size is unknown. It has no bearing on the record
// stream a Walk() actually produces.
func (w *Walker) EstimateTransactionCount() uint64 {
	size := w.cfg.JournalSize
	if size <= 0 {
		size = defaultJournalSizeEstimate
	}
	if w.cfg.BlockSize == 0 {
		return 0
	}
	return uint64(size) / (uint64(w.cfg.BlockSize) * averageTransactionBlocks)
}

// backfillRelativeTime fills in RelativeTime across a fully materialized
// walk, using the lowest transaction sequence observed as T+0. This can
// only happen after the walk completes since the baseline isn't known
// until every record has been seen.
func backfillRelativeTime(records []*Record) {
	if len(records) == 0 {
		return
	}
	minSeq := records[0].TransactionSeq
	for _, r := range records[1:] {
		if r.TransactionSeq < minSeq {
			minSeq = r.TransactionSeq
		}
	}
	for _, r := range records {
		r.RelativeTime = RelativeTime(r.TransactionSeq, minSeq)
	}
}

// drainTransaction reads and classifies every data block a committed
// descriptor named, in tag order.
func (w *Walker) drainTransaction(p *pendingTxn, journalEnd int64) []*Record {
	out := make([]*Record, 0, len(p.tags))
	for i, tag := range p.tags {
		dataOffset := p.offset + int64(w.cfg.BlockSize)*int64(1+i)

		if dataOffset+int64(w.cfg.BlockSize) > journalEnd && journalEnd > w.cfg.JournalStart {
			w.stats.UnreadableDataBlocks++
			out = append(out, &Record{
				TransactionSeq: p.seq,
				BlockType:      "data",
				FSBlockNum:     uint64(tag.FSBlockNum),
				OperationType:  OpFilesystemUpdate,
				DataSize:       int(w.cfg.BlockSize),
				Checksum:       "",
			})
			continue
		}

		data, err := w.src.Read(dataOffset, int(w.cfg.BlockSize))
		if err != nil {
			w.stats.UnreadableDataBlocks++
			out = append(out, &Record{
				TransactionSeq: p.seq,
				BlockType:      "data",
				FSBlockNum:     uint64(tag.FSBlockNum),
				OperationType:  OpFilesystemUpdate,
				DataSize:       int(w.cfg.BlockSize),
				Checksum:       "",
			})
			continue
		}

		out = append(out, w.classifyDataBlock(p.seq, tag, data))
	}
	return out
}

// classifyDataBlock runs BlockClassifier over one data block and builds the
// record it contributes, feeding directory entries into the shared tree as
// it goes.
func (w *Walker) classifyDataBlock(seq uint32, tag DescriptorTag, data []byte) *Record {
	rec := &Record{
		TransactionSeq: seq,
		BlockType:      "data",
		FSBlockNum:     uint64(tag.FSBlockNum),
		DataSize:       int(w.cfg.BlockSize),
		Checksum:       BlockChecksum(data),
	}

	result := classify.Classify(data, w.cfg.InodeSize)
	switch result.Kind {
	case classify.KindInodeTable:
		first := result.Inodes[0]
		rec.OperationType = OpInodeUpdate
		if len(result.Inodes) > 1 {
			rec.OperationType = OpInodeBatchUpdate
		}
		rec.FileType = first.FileTypeString
		rec.FileSize = first.FileSize
		rec.InodeNumber = first.SyntheticInodeNumber
		rec.LinkCount = first.LinksCount
		rec.AffectedInode = uint64(first.SyntheticInodeNumber)
		for _, slot := range result.Inodes {
			w.tree.AddInodeInfo(uint64(slot.SyntheticInodeNumber), slot.FileTypeString == "directory")
		}

	case classify.KindDirectory:
		// parent_dir_inode is filled from the descriptor tag's
		// fs_block_num, not a true inode number — a known mislabeling
		// preserved from the original analyzer (see design notes).
		parentDirInode := uint64(tag.FSBlockNum)
		for _, entry := range result.DirEntries {
			w.tree.AddEntry(parentDirInode, dirtree.Entry{
				Inode:    uint64(entry.Inode),
				Name:     entry.Name,
				FileType: entry.FileType,
			})
		}
		first := result.DirEntries[0]
		rec.OperationType = OpDirectoryUpdate
		rec.FileType = "directory"
		rec.Filename = first.Name
		rec.InodeNumber = first.Inode
		rec.ParentDirInode = parentDirInode
		rec.FullPath = w.tree.BuildFullPath(uint64(first.Inode))

	case classify.KindMetadata:
		rec.OperationType = OpMetadataUpdate
		rec.FileType = "metadata"

	default:
		rec.OperationType = OpFileDataUpdate
		rec.FileType = classifyStringFileType(result.Strings)
		if len(result.Strings.Samples) > 0 {
			rec.FilePath = result.Strings.Samples[0]
		}
	}

	return rec
}

func classifyStringFileType(s classify.StringAnalysis) string {
	switch {
	case s.IsText:
		return "text"
	case s.IsConfig:
		return "config"
	case s.IsLog:
		return "log"
	default:
		return "file_data"
	}
}
