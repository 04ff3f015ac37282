// Copyright (c) 2025 Lumen Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package completion

import (
	"context"
	"io"
	"unicode/utf8"
)

// =============================================================================
// STREAM READER
// =============================================================================

// StreamReader pulls raw chunks off a streaming response body and yields
// them as valid UTF-8 strings. HTTP chunk boundaries can fall inside a
// multi-byte rune; the incomplete trailing bytes are held back and
// prepended to the next chunk so every yielded fragment decodes cleanly
// and concatenation reproduces the byte stream exactly.
type StreamReader struct {
	r        io.Reader
	buf      []byte
	holdover []byte
}

// NewStreamReader creates a stream reader over a response body.
func NewStreamReader(r io.Reader) *StreamReader {
	return &StreamReader{
		r:   r,
		buf: make([]byte, 4096),
	}
}

// Next returns the next text fragment. Blocks until data arrives, the
// stream closes (io.EOF), or ctx is done. A fragment is never empty unless
// an error is returned alongside.
func (s *StreamReader) Next(ctx context.Context) (string, error) {
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		n, err := s.r.Read(s.buf)
		if n > 0 {
			data := append(s.holdover, s.buf[:n]...)
			cut := completeBoundary(data)
			s.holdover = append(s.holdover[:0], data[cut:]...)
			if cut > 0 {
				return string(data[:cut]), nil
			}
			// Only incomplete rune bytes so far; read more.
			continue
		}
		if err == io.EOF && len(s.holdover) > 0 {
			// Flush whatever trailing bytes remain verbatim; a truncated
			// stream must not silently lose bytes.
			chunk := string(s.holdover)
			s.holdover = s.holdover[:0]
			return chunk, nil
		}
		if err != nil {
			return "", err
		}
	}
}

// completeBoundary returns the length of the longest prefix of data that
// ends on a UTF-8 rune boundary. Bytes past the boundary belong to a rune
// whose remaining bytes have not arrived yet.
func completeBoundary(data []byte) int {
	// Only the last utf8.UTFMax-1 bytes can be an incomplete rune.
	for i := len(data) - 1; i >= 0 && len(data)-i < utf8.UTFMax; i-- {
		if !utf8.RuneStart(data[i]) {
			continue
		}
		if utf8.FullRune(data[i:]) {
			return len(data)
		}
		return i
	}
	return len(data)
}
