// Package corpus stores building rings as node ID sequences so they can be
// written in one streaming pass and read back in another.
package corpus

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
)

// MaxNodes is the largest ring accepted when reading, OSM caps ways at 2000 nodes
const MaxNodes = 1 << 16

// ErrCorrupt is returned when a record cannot be decoded
var ErrCorrupt = errors.New("corrupt building record")

// Building is one closed ring, the last node connects back to the first
type Building struct {
	ID    int64
	Nodes []uint64
}

// Writer appends buildings to a corpus file
type Writer struct {
	file    *os.File
	encoder *zstd.Encoder
	buf     *bufio.Writer
	scratch []byte
	count   uint64
}

// Create creates or truncates the corpus file at path
func Create(path string) (*Writer, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create building corpus [%s]: %w", path, err)
	}
	encoder, err := zstd.NewWriter(file, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to create zstd encoder for [%s]: %w", path, err)
	}
	return &Writer{
		file:    file,
		encoder: encoder,
		buf:     bufio.NewWriter(encoder),
	}, nil
}

// Append writes one building
func (w *Writer) Append(b Building) error {
	if len(b.Nodes) > MaxNodes {
		return fmt.Errorf("building %d has %d nodes, at most %d are supported", b.ID, len(b.Nodes), MaxNodes)
	}
	w.scratch = binary.AppendVarint(w.scratch[:0], b.ID)
	w.scratch = binary.AppendUvarint(w.scratch, uint64(len(b.Nodes)))
	var prev uint64
	for _, id := range b.Nodes {
		w.scratch = binary.AppendVarint(w.scratch, int64(id-prev))
		prev = id
	}
	if _, err := w.buf.Write(w.scratch); err != nil {
		return fmt.Errorf("failed to append building %d: %w", b.ID, err)
	}
	w.count++
	return nil
}

// Count returns the number of buildings appended so far
func (w *Writer) Count() uint64 {
	return w.count
}

// Close flushes all pending data and closes the file
func (w *Writer) Close() error {
	errs := []error{w.buf.Flush(), w.encoder.Close(), w.file.Close()}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("failed to close building corpus [%s]: %w", w.file.Name(), err)
	}
	return nil
}

// Reader reads buildings back in the order they were appended
type Reader struct {
	file    *os.File
	decoder *zstd.Decoder
	buf     *bufio.Reader
}

// Open opens the corpus file at path
func Open(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open building corpus [%s]: %w", path, err)
	}
	decoder, err := zstd.NewReader(file, zstd.WithDecoderConcurrency(1))
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to create zstd decoder for [%s]: %w", path, err)
	}
	return &Reader{
		file:    file,
		decoder: decoder,
		buf:     bufio.NewReader(decoder),
	}, nil
}

// Next returns the next building, or io.EOF after the last one
func (r *Reader) Next() (Building, error) {
	id, err := binary.ReadVarint(r.buf)
	if errors.Is(err, io.EOF) {
		return Building{}, io.EOF
	}
	if err != nil {
		return Building{}, r.readError(err)
	}

	n, err := binary.ReadUvarint(r.buf)
	if err != nil {
		return Building{}, r.readError(err)
	}
	if n > MaxNodes {
		return Building{}, fmt.Errorf("building %d claims %d nodes: %w", id, n, ErrCorrupt)
	}

	nodes := make([]uint64, n)
	var prev uint64
	for i := range nodes {
		delta, err := binary.ReadVarint(r.buf)
		if err != nil {
			return Building{}, r.readError(err)
		}
		prev += uint64(delta)
		nodes[i] = prev
	}
	return Building{ID: id, Nodes: nodes}, nil
}

func (r *Reader) readError(err error) error {
	if errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return fmt.Errorf("failed to read building corpus [%s]: %w", r.file.Name(), err)
}

// Close releases the decoder and the file
func (r *Reader) Close() error {
	r.decoder.Close()
	return r.file.Close()
}
