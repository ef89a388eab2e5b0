// Package image provides uniform random-access byte reading over raw disk
// images and Expert Witness Format (EWF) containers, with a configurable
// partition base offset applied transparently to every read.
package image

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	ewfLib "github.com/aarsakian/EWF_Reader/ewf"
	ewfutils "github.com/aarsakian/EWF_Reader/ewf/utils"
	"github.com/sirupsen/logrus"
)

// Kind identifies the backing container format of an image.
type Kind int

const (
	// KindAuto inspects the path's extension to pick a backend.
	KindAuto Kind = iota
	KindRaw
	KindEWF
)

// maxReadLength bounds a single Read call, per spec.md §4.1 ("sanity").
const maxReadLength = 1 << 20 // 1 MiB

// ParseKind maps a CLI type-hint string ("auto", "raw", "ewf") onto a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return KindAuto, nil
	case "raw":
		return KindRaw, nil
	case "ewf":
		return KindEWF, nil
	default:
		return KindAuto, fmt.Errorf("unknown image type hint %q", s)
	}
}

// detectKind inspects the file extension the way the original tool's
// detectImageType did: {e01, ex01, l01} (case-insensitive) map to EWF,
// everything else is treated as raw.
func detectKind(path string) Kind {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	switch ext {
	case "e01", "ex01", "l01":
		return KindEWF
	default:
		return KindRaw
	}
}

// backend is the minimal surface a container format must provide.
type backend interface {
	readAt(offset int64, length int) ([]byte, error)
	close() error
}

// Reader is a uniform byte-addressable view over an image file, raw or EWF,
// with an optional partition offset baked into every subsequent read.
type Reader struct {
	kind            Kind
	backend         backend
	partitionOffset int64
	log             *logrus.Logger
}

// Open opens path under the given type hint (KindAuto inspects the
// extension). The returned Reader must be closed by the caller.
func Open(path string, hint Kind, log *logrus.Logger) (*Reader, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	kind := hint
	if kind == KindAuto {
		kind = detectKind(path)
	}

	var b backend
	var err error
	switch kind {
	case KindRaw:
		b, err = openRaw(path)
	case KindEWF:
		b, err = openEWF(path)
	default:
		return nil, fmt.Errorf("unsupported image kind %d", kind)
	}
	if err != nil {
		return nil, err
	}

	return &Reader{kind: kind, backend: b, log: log}, nil
}

// Kind reports the backend this reader settled on (useful after KindAuto).
func (r *Reader) Kind() Kind { return r.kind }

// SetPartitionOffset configures a byte offset that is added to every
// subsequent Read call, so callers may address a partition directly without
// tracking whole-disk geometry themselves.
func (r *Reader) SetPartitionOffset(n int64) error {
	if n < 0 {
		return fmt.Errorf("partition offset must be >= 0, got %d", n)
	}
	r.partitionOffset = n
	return nil
}

// PartitionOffset returns the currently configured partition offset.
func (r *Reader) PartitionOffset() int64 { return r.partitionOffset }

// Read returns length bytes starting at offset, relative to the configured
// partition offset. It rejects length == 0, length > 1 MiB, and offset < 0,
// and treats a short read as failure.
func (r *Reader) Read(offset int64, length int) ([]byte, error) {
	if offset < 0 {
		return nil, fmt.Errorf("read offset must be >= 0, got %d", offset)
	}
	if length == 0 {
		return nil, fmt.Errorf("read length must be > 0")
	}
	if length > maxReadLength {
		return nil, fmt.Errorf("read length %d exceeds sanity bound %d", length, maxReadLength)
	}

	adjusted := offset + r.partitionOffset
	data, err := r.backend.readAt(adjusted, length)
	if err != nil {
		r.log.WithFields(logrus.Fields{"offset": adjusted, "length": length}).Debugf("read failed: %v", err)
		return nil, err
	}
	if len(data) != length {
		return nil, fmt.Errorf("short read at offset %d: got %d of %d bytes", adjusted, len(data), length)
	}
	return data, nil
}

// ReadAt implements io.ReaderAt against the partition-relative address
// space, so stdlib and third-party code (e.g. MBR parsing) can consume a
// Reader directly.
func (r *Reader) ReadAt(p []byte, off int64) (int, error) {
	data, err := r.Read(off, len(p))
	if err != nil {
		return 0, err
	}
	copy(p, data)
	return len(data), nil
}

// Close releases the underlying backend.
func (r *Reader) Close() error {
	return r.backend.close()
}

// rawBackend reads directly from an *os.File.
type rawBackend struct {
	f *os.File
}

func openRaw(path string) (backend, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening raw image: %w", err)
	}
	return &rawBackend{f: f}, nil
}

func (b *rawBackend) readAt(offset int64, length int) ([]byte, error) {
	buf := make([]byte, length)
	n, err := b.f.ReadAt(buf, offset)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("raw read at %d: %w", offset, err)
	}
	return buf[:n], nil
}

func (b *rawBackend) close() error {
	return b.f.Close()
}

// ewfBackend reads through an Expert Witness Format container, the same way
// the wider forensics pack's EWFReader does: open every segment file
// belonging to the evidence set, then service reads via RetrieveData.
type ewfBackend struct {
	image *ewfLib.EWF_Image
}

func openEWF(path string) (backend, error) {
	filenames := ewfutils.FindEvidenceFiles(path)
	if len(filenames) == 0 {
		return nil, fmt.Errorf("no EWF segment files found for %q", path)
	}

	img := &ewfLib.EWF_Image{}
	img.ParseEvidence(filenames)

	if img.NofChunks == 0 || img.Chunksize == 0 {
		return nil, fmt.Errorf("failed to parse EWF evidence: %q", path)
	}

	return &ewfBackend{image: img}, nil
}

func (b *ewfBackend) readAt(offset int64, length int) ([]byte, error) {
	data := b.image.RetrieveData(offset, int64(length))
	if data == nil {
		return nil, fmt.Errorf("ewf read at %d failed", offset)
	}
	return data, nil
}

func (b *ewfBackend) close() error {
	return nil
}

// Size reports the decoded payload size of an EWF image (chunk size times
// chunk count), used for basic sanity checks before a full walk.
func (r *Reader) Size() (int64, bool) {
	eb, ok := r.backend.(*ewfBackend)
	if !ok {
		return 0, false
	}
	return int64(eb.image.Chunksize) * int64(eb.image.NofChunks), true
}
