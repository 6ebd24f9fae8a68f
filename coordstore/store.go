// Package coordstore keeps projected node coordinates in a fixed-stride file
// indexed by node ID.
//
// Record i occupies bytes [8i, 8i+8) and holds x then y as big-endian float32.
// Records that were never set hold a sentinel pair no projection can produce,
// so the file can be extended over gaps in the ID space and still tell "unset"
// apart from a coordinate near zero.
package coordstore

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

const (
	// RecordSize is the number of bytes per node
	RecordSize = 8

	defaultBufferSize = 1 << 20
	maxID             = math.MaxInt64/RecordSize - 1
)

var (
	// ErrIDOutOfRange is returned for IDs whose record offset does not fit in a file
	ErrIDOutOfRange = errors.New("node ID out of range")
	// ErrReservedValue is returned when a caller tries to store the sentinel pair
	ErrReservedValue = errors.New("coordinate is the reserved unset value")

	sentinelBits = math.Float32bits(math.MaxFloat32)
	sentinel     = encode(math.MaxFloat32, math.MaxFloat32)
)

// Option includes options for the store
type Option struct {
	// BufferSize is the size in bytes of the in-memory tail buffer, 0 means 1MiB
	BufferSize int
}

// Store is a disk backed array of (x, y) pairs
type Store struct {
	file  *os.File
	count uint64

	// records [pendingStart, count) not written to file yet
	pending      []byte
	pendingStart uint64
	limit        int
}

// Create creates or truncates the file at path
func Create(path string, option Option) (*Store, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to create coordinate store [%s]: %w", path, err)
	}
	return newStore(file, 0, option), nil
}

// Open opens an existing store at path
func Open(path string, option Option) (*Store, error) {
	file, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open coordinate store [%s]: %w", path, err)
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to stat coordinate store [%s]: %w", path, err)
	}
	if info.Size()%RecordSize != 0 {
		_ = file.Close()
		return nil, fmt.Errorf("coordinate store [%s] size %d is not a multiple of %d", path, info.Size(), RecordSize)
	}
	return newStore(file, uint64(info.Size()/RecordSize), option), nil
}

func newStore(file *os.File, count uint64, option Option) *Store {
	limit := option.BufferSize
	if limit <= 0 {
		limit = defaultBufferSize
	}
	limit -= limit % RecordSize
	if limit < RecordSize {
		limit = RecordSize
	}
	return &Store{
		file:         file,
		count:        count,
		pending:      make([]byte, 0, limit),
		pendingStart: count,
		limit:        limit,
	}
}

// Len returns the number of records, which is the highest ID stored plus one
func (s *Store) Len() uint64 {
	return s.count
}

// Set stores the coordinate of node id
func (s *Store) Set(id uint64, x, y float32) error {
	if id > maxID {
		return fmt.Errorf("node %d: %w", id, ErrIDOutOfRange)
	}
	if math.Float32bits(x) == sentinelBits && math.Float32bits(y) == sentinelBits {
		return fmt.Errorf("node %d: %w", id, ErrReservedValue)
	}
	record := encode(x, y)

	if id >= s.count {
		if err := s.fill(id); err != nil {
			return err
		}
		s.pending = append(s.pending, record[:]...)
		s.count = id + 1
		if len(s.pending) >= s.limit {
			return s.Flush()
		}
		return nil
	}

	if id >= s.pendingStart {
		offset := (id - s.pendingStart) * RecordSize
		copy(s.pending[offset:], record[:])
		return nil
	}

	if _, err := s.file.WriteAt(record[:], int64(id*RecordSize)); err != nil {
		return fmt.Errorf("failed to write node %d: %w", id, err)
	}
	return nil
}

// fill appends sentinel records for [count, id)
func (s *Store) fill(id uint64) error {
	for s.count < id {
		if len(s.pending) >= s.limit {
			if err := s.Flush(); err != nil {
				return err
			}
		}
		room := uint64(s.limit-len(s.pending)) / RecordSize
		n := min(room, id-s.count)
		for range n {
			s.pending = append(s.pending, sentinel[:]...)
		}
		s.count += n
	}
	return nil
}

// Get returns the coordinate of node id, ok is false if it was never set
func (s *Store) Get(id uint64) (x, y float32, ok bool, err error) {
	if id >= s.count {
		return 0, 0, false, nil
	}

	var record [RecordSize]byte
	if id >= s.pendingStart {
		offset := (id - s.pendingStart) * RecordSize
		copy(record[:], s.pending[offset:offset+RecordSize])
	} else if _, err := s.file.ReadAt(record[:], int64(id*RecordSize)); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return 0, 0, false, fmt.Errorf("failed to read node %d: %w", id, err)
	}

	xBits := binary.BigEndian.Uint32(record[0:4])
	yBits := binary.BigEndian.Uint32(record[4:8])
	if xBits == sentinelBits && yBits == sentinelBits {
		return 0, 0, false, nil
	}
	return math.Float32frombits(xBits), math.Float32frombits(yBits), true, nil
}

// Flush writes the tail buffer to the file
func (s *Store) Flush() error {
	if len(s.pending) == 0 {
		s.pendingStart = s.count
		return nil
	}
	if _, err := s.file.WriteAt(s.pending, int64(s.pendingStart*RecordSize)); err != nil {
		return fmt.Errorf("failed to flush coordinate store [%s]: %w", s.file.Name(), err)
	}
	s.pending = s.pending[:0]
	s.pendingStart = s.count
	return nil
}

// Close flushes and closes the file
func (s *Store) Close() error {
	flushErr := s.Flush()
	if err := s.file.Close(); err != nil && flushErr == nil {
		return fmt.Errorf("failed to close coordinate store [%s]: %w", s.file.Name(), err)
	}
	return flushErr
}

func encode(x, y float32) [RecordSize]byte {
	var record [RecordSize]byte
	binary.BigEndian.PutUint32(record[0:4], math.Float32bits(x))
	binary.BigEndian.PutUint32(record[4:8], math.Float32bits(y))
	return record
}
