package vectorindex

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	mmap "github.com/blevesearch/mmap-go"

	"github.com/codanna-go/codanna/internal/symbol"
)

// segment header layout:
//
//	bytes 0-3:   magic
//	bytes 4-7:   dimensions (uint32)
//	bytes 8-15:  committedLen (uint64) — bytes of the payload region
//	             that are published and safe to read
const (
	segmentMagic = 0x43444e56 // "CDNV"
	headerSize   = 16
)

func recordSize(dimensions int) int64 {
	return 4 + int64(dimensions)*4 // symbol_id uint32 + D float32s
}

// segment wraps one segment-{S}.vec file: fixed-size records appended
// under a write lock, read back through a read-only mmap that is
// remapped whenever Publish extends the committed region.
type segment struct {
	mu           sync.RWMutex
	ord          uint32
	path         string
	file         *os.File
	dimensions   int
	committedLen int64 // bytes, matches the on-disk header field
	mapped       mmap.MMap
}

// openSegment opens or creates the .vec file for segment ordinal ord
// under dir.
func openSegment(dir string, ord uint32, dimensions int) (*segment, error) {
	path := filepath.Join(dir, fmt.Sprintf("segment-%d.vec", ord))

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open segment %d: %w", ord, err)
	}

	s := &segment{ord: ord, path: path, file: f, dimensions: dimensions}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.Size() < headerSize {
		if err := s.writeHeader(0); err != nil {
			f.Close()
			return nil, err
		}
	} else if err := s.readHeader(); err != nil {
		f.Close()
		return nil, err
	}

	if err := s.remap(); err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

func (s *segment) readHeader() error {
	buf := make([]byte, headerSize)
	if _, err := s.file.ReadAt(buf, 0); err != nil {
		return fmt.Errorf("read segment header: %w", err)
	}
	magic := binary.LittleEndian.Uint32(buf[0:4])
	if magic != segmentMagic {
		return fmt.Errorf("segment %d: bad magic %x", s.ord, magic)
	}
	dims := binary.LittleEndian.Uint32(buf[4:8])
	s.dimensions = int(dims)
	s.committedLen = int64(binary.LittleEndian.Uint64(buf[8:16]))
	return nil
}

// writeHeader persists committedLen to disk. Called under s.mu.
func (s *segment) writeHeader(committedLen int64) error {
	buf := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(buf[0:4], segmentMagic)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(s.dimensions))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(committedLen))
	if _, err := s.file.WriteAt(buf, 0); err != nil {
		return fmt.Errorf("write segment header: %w", err)
	}
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("fsync segment header: %w", err)
	}
	s.committedLen = committedLen
	return nil
}

// remap refreshes the read-only mmap to cover the current file size.
// Called whenever the file grows or shrinks.
func (s *segment) remap() error {
	if s.mapped != nil {
		_ = s.mapped.Unmap()
		s.mapped = nil
	}
	info, err := s.file.Stat()
	if err != nil {
		return err
	}
	if info.Size() <= headerSize {
		return nil
	}
	m, err := mmap.Map(s.file, mmap.RDONLY, 0)
	if err != nil {
		return fmt.Errorf("mmap segment %d: %w", s.ord, err)
	}
	s.mapped = m
	return nil
}

// stagedLen is the current on-disk file size minus the header — this
// may exceed committedLen if a prior StageAppend has not yet been
// published.
func (s *segment) stagedLen() (int64, error) {
	info, err := s.file.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size() - headerSize, nil
}

// append writes recs to the end of the file's staging region and fsyncs
//.
// The new bytes are not visible to readers until publish().
func (s *segment) append(recs []record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := s.file.Stat()
	if err != nil {
		return err
	}
	offset := info.Size()
	if offset < headerSize {
		offset = headerSize
	}

	rsz := recordSize(s.dimensions)
	buf := make([]byte, 0, int64(len(recs))*rsz)
	for _, r := range recs {
		if len(r.Vector) != s.dimensions {
			return fmt.Errorf("segment %d: vector has %d dims, want %d", s.ord, len(r.Vector), s.dimensions)
		}
		entry := make([]byte, rsz)
		binary.LittleEndian.PutUint32(entry[0:4], uint32(r.SymbolID))
		for i, f32 := range r.Vector {
			binary.LittleEndian.PutUint32(entry[4+i*4:8+i*4], math.Float32bits(f32))
		}
		buf = append(buf, entry...)
	}

	if _, err := s.file.WriteAt(buf, offset); err != nil {
		return fmt.Errorf("append segment %d: %w", s.ord, err)
	}
	return s.file.Sync()
}

// publish CASes the committed length to the current file size, making
// all staged appends visible, then remaps the reader mmap.
func (s *segment) publish() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := s.file.Stat()
	if err != nil {
		return err
	}
	if err := s.writeHeader(info.Size() - headerSize); err != nil {
		return err
	}
	return s.remap()
}

// discard truncates the file back to the last committed length,
// reverting any staged-but-unpublished appends (used by Recover).
func (s *segment) discard() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.file.Truncate(headerSize + s.committedLen); err != nil {
		return fmt.Errorf("discard staged bytes in segment %d: %w", s.ord, err)
	}
	return s.remap()
}

// recordCount returns how many committed records the segment holds.
func (s *segment) recordCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int(s.committedLen / recordSize(s.dimensions))
}

// readRecord reads committed record i via the mmap.
func (s *segment) readRecord(i int) (record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rsz := recordSize(s.dimensions)
	offset := int64(i) * rsz
	if offset+rsz > s.committedLen || s.mapped == nil {
		return record{}, fmt.Errorf("segment %d: record %d out of committed range", s.ord, i)
	}
	buf := s.mapped[offset : offset+rsz]

	id := symbol.ID(binary.LittleEndian.Uint32(buf[0:4]))
	vec := make([]float32, s.dimensions)
	for j := range vec {
		vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4+j*4 : 8+j*4]))
	}
	return record{SymbolID: id, Vector: vec}, nil
}

// allCommitted returns every committed record, used by clustering.
func (s *segment) allCommitted() ([]record, error) {
	n := s.recordCount()
	out := make([]record, 0, n)
	for i := 0; i < n; i++ {
		r, err := s.readRecord(i)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *segment) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mapped != nil {
		_ = s.mapped.Unmap()
	}
	return s.file.Close()
}
