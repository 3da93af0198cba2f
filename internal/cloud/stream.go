// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/jeranaias/agentic-studio/internal/logging"
	"github.com/jeranaias/agentic-studio/internal/util"
)

// =============================================================================
// STREAMING CONSTANTS
// =============================================================================

const (
	// readChunkSize is the size of each read from the response body.
	readChunkSize = 4 * 1024

	// MaxLineSize bounds a single event-stream line held in the carry-over
	// buffer.
	MaxLineSize = 1024 * 1024

	// doneSentinel ends an event stream.
	doneSentinel = "[DONE]"
)

var dataPrefix = []byte("data:")

// =============================================================================
// STREAMING TYPES
// =============================================================================

// StreamChunk is one OpenAI-compatible streaming frame.
type StreamChunk struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
			Role    string `json:"role,omitempty"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// GetContent returns the content from the first choice's delta.
func (c *StreamChunk) GetContent() string {
	if len(c.Choices) > 0 {
		return c.Choices[0].Delta.Content
	}
	return ""
}

// =============================================================================
// DECODER
// =============================================================================

// Decoder turns a raw event-stream body into text deltas.
//
// Bytes are appended to a carry-over buffer and only complete lines are
// decoded, so the output does not depend on how the network split the body.
// A "data: [DONE]" line ends the stream; nothing after it is read. Lines that
// fail to parse are logged and skipped.
type Decoder struct {
	r      io.Reader
	logger *zap.Logger

	buf   []byte // carry-over: bytes not yet consumed
	start int    // offset of the first unconsumed byte in buf
	chunk []byte

	delta   string
	err     error
	eof     bool
	done    bool
	frames  int
	skipped int
}

// NewDecoder creates a decoder over r.
func NewDecoder(r io.Reader, logger *zap.Logger) *Decoder {
	return &Decoder{
		r:      r,
		logger: logging.OrNop(logger),
		chunk:  make([]byte, readChunkSize),
	}
}

// Next advances to the next non-empty delta. It returns false at the end of
// the stream or on a read error; Err distinguishes the two.
func (d *Decoder) Next() bool {
	d.delta = ""
	for !d.done {
		line, ok := d.nextLine()
		if !ok {
			if d.done || d.err != nil {
				break
			}
			d.fill()
			continue
		}
		if delta, ok := d.decodeLine(line); ok {
			d.delta = delta
			return true
		}
	}
	return false
}

// Delta returns the text produced by the last successful Next.
func (d *Decoder) Delta() string { return d.delta }

// Err returns the first read error. A clean end of stream, with or without
// the sentinel, is nil.
func (d *Decoder) Err() error { return d.err }

// Close closes the underlying reader if it is an io.Closer.
func (d *Decoder) Close() error {
	d.done = true
	if c, ok := d.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Frames returns how many data frames were decoded successfully.
func (d *Decoder) Frames() int { return d.frames }

// Skipped returns how many frames were dropped as malformed.
func (d *Decoder) Skipped() int { return d.skipped }

// nextLine returns the next complete line from the carry-over buffer. At EOF
// the trailing partial line is returned as if terminated.
func (d *Decoder) nextLine() ([]byte, bool) {
	pending := d.buf[d.start:]
	if i := bytes.IndexByte(pending, '\n'); i >= 0 {
		d.start += i + 1
		return pending[:i], true
	}
	if d.eof {
		if len(pending) == 0 {
			d.done = true
			return nil, false
		}
		d.start = len(d.buf)
		return pending, true
	}
	return nil, false
}

// fill reads one chunk into the carry-over buffer.
func (d *Decoder) fill() {
	// Compact so the buffer holds only the partial line.
	if d.start > 0 {
		n := copy(d.buf, d.buf[d.start:])
		d.buf = d.buf[:n]
		d.start = 0
	}
	if len(d.buf) > MaxLineSize {
		d.err = ErrLineTooLong
		d.done = true
		return
	}

	n, err := d.r.Read(d.chunk)
	if n > 0 {
		d.buf = append(d.buf, d.chunk[:n]...)
	}
	if err != nil {
		if errors.Is(err, io.EOF) {
			d.eof = true
			return
		}
		d.err = err
		d.done = true
	}
}

// decodeLine handles one line. It returns a delta and true when the line
// carried text.
func (d *Decoder) decodeLine(line []byte) (string, bool) {
	line = bytes.TrimRight(line, "\r")
	if !bytes.HasPrefix(line, dataPrefix) {
		// Blank separators, comments, event:, id: and retry: fields
		return "", false
	}
	payload := bytes.TrimSpace(line[len(dataPrefix):])
	if len(payload) == 0 {
		return "", false
	}
	if string(payload) == doneSentinel {
		d.done = true
		return "", false
	}

	var chunk StreamChunk
	if err := json.Unmarshal(payload, &chunk); err != nil {
		d.skipped++
		frameErr := &FrameDecodeError{Line: util.TruncateRunes(string(line), 120), Err: err}
		d.logger.Warn("skipping malformed stream frame", zap.Error(frameErr))
		return "", false
	}
	d.frames++

	if chunk.Error != nil && chunk.Error.Message != "" {
		d.err = fmt.Errorf("provider error in stream: %s", chunk.Error.Message)
		d.done = true
		return "", false
	}

	content := chunk.GetContent()
	if content == "" {
		return "", false
	}
	return content, true
}

// =============================================================================
// HELPERS
// =============================================================================

// Drain reads s to the end and returns the concatenated deltas. s is closed.
func Drain(s Stream) (string, error) {
	defer s.Close()
	var sb strings.Builder
	for s.Next() {
		sb.WriteString(s.Delta())
	}
	return sb.String(), s.Err()
}
