package core

// streaming.go provides reader wrappers applied to every text source before
// it reaches the CSV or JSON parser:
//
//   - BOMSkippingReader: drops a leading UTF-8 BOM written by Windows tools
//   - StreamingUTF8Sanitizer: replaces invalid UTF-8 bytes with '?'
//   - SizeLimitReader: fails once more than the configured byte count is read
//
// Use WrapSource to apply them in the correct order.

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// StreamingUTF8Sanitizer wraps an io.Reader and replaces invalid UTF-8 bytes
// with '?' on the fly, so legacy-encoded exports still parse.
type StreamingUTF8Sanitizer struct {
	reader io.Reader

	// Leftover bytes from previous read that may form a multi-byte sequence
	pending []byte
}

// NewStreamingUTF8Sanitizer creates a new streaming UTF-8 sanitizer.
func NewStreamingUTF8Sanitizer(r io.Reader) *StreamingUTF8Sanitizer {
	return &StreamingUTF8Sanitizer{
		reader:  r,
		pending: make([]byte, 0, utf8.UTFMax),
	}
}

// Read implements io.Reader.
func (s *StreamingUTF8Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	offset := 0
	if len(s.pending) > 0 {
		offset = copy(p, s.pending)
		s.pending = s.pending[:0]
	}

	n, err := s.reader.Read(p[offset:])
	n += offset
	if n == 0 {
		return 0, err
	}

	if isAllASCII(p[:n]) {
		return n, err
	}

	return s.sanitize(p[:n], err == io.EOF), err
}

// isAllASCII is the fast path: most tabular exports are plain ASCII.
func isAllASCII(data []byte) bool {
	for _, b := range data {
		if b >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// sanitize rewrites data in place and returns the number of bytes to emit.
// Unless atEOF, a trailing partial sequence is held back for the next call.
func (s *StreamingUTF8Sanitizer) sanitize(data []byte, atEOF bool) int {
	end := len(data)
	if !atEOF {
		end -= partialTail(data)
		s.pending = append(s.pending, data[end:]...)
	}

	write := 0
	for read := 0; read < end; {
		r, size := utf8.DecodeRune(data[read:end])
		if r == utf8.RuneError && size == 1 {
			data[write] = '?'
			write++
			read++
			continue
		}
		copy(data[write:], data[read:read+size])
		write += size
		read += size
	}
	return write
}

// partialTail returns how many trailing bytes start a multi-byte sequence
// that is not complete yet.
func partialTail(data []byte) int {
	for i := 1; i <= utf8.UTFMax-1 && i <= len(data); i++ {
		b := data[len(data)-i]
		if b&0xC0 == 0x80 {
			continue // continuation byte, keep looking for the lead byte
		}
		if b >= 0xC0 && sequenceLen(b) > i {
			return i
		}
		return 0
	}
	return 0
}

// sequenceLen returns the encoded length announced by a UTF-8 lead byte.
func sequenceLen(b byte) int {
	switch {
	case b < 0x80:
		return 1
	case b < 0xC0:
		return 0
	case b < 0xE0:
		return 2
	case b < 0xF0:
		return 3
	default:
		return 4
	}
}

// BOMSkippingReader wraps an io.Reader and skips the UTF-8 BOM if present.
type BOMSkippingReader struct {
	reader  *bufio.Reader
	checked bool
}

// NewBOMSkippingReader creates a new BOM-skipping reader.
func NewBOMSkippingReader(r io.Reader) *BOMSkippingReader {
	return &BOMSkippingReader{reader: bufio.NewReader(r)}
}

// Read implements io.Reader. The BOM check happens on the first call.
func (r *BOMSkippingReader) Read(p []byte) (int, error) {
	if !r.checked {
		r.checked = true
		head, err := r.reader.Peek(len(utf8BOM))
		if bytes.Equal(head, utf8BOM) {
			_, _ = r.reader.Discard(len(utf8BOM))
		} else if err != nil && err != io.EOF && len(head) == 0 {
			return 0, err
		}
	}
	return r.reader.Read(p)
}

// SizeLimitReader fails with a "file too large" error once more than Limit
// bytes have been read. A Limit of zero or less disables the check.
type SizeLimitReader struct {
	reader    io.Reader
	Limit     int64
	BytesRead int64
}

// NewSizeLimitReader wraps r with a byte limit.
func NewSizeLimitReader(r io.Reader, limit int64) *SizeLimitReader {
	return &SizeLimitReader{reader: r, Limit: limit}
}

// Read implements io.Reader.
func (r *SizeLimitReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.BytesRead += int64(n)
	if r.Limit > 0 && r.BytesRead > r.Limit {
		return n, fmt.Errorf("file too large: exceeds %s", humanize.IBytes(uint64(r.Limit)))
	}
	return n, err
}

// WrapSource applies size limiting, BOM skipping and UTF-8 sanitization.
// The limit counts raw bytes, so it wraps the source directly.
func WrapSource(r io.Reader, limit int64) io.Reader {
	limited := NewSizeLimitReader(r, limit)
	return NewStreamingUTF8Sanitizer(NewBOMSkippingReader(limited))
}
