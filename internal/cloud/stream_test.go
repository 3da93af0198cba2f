// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"errors"
	"io"
	"math/rand"
	"strings"
	"testing"
	"testing/iotest"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// chunkedReader returns data split at the given chunk sizes, cycling through
// sizes until the data is exhausted.
type chunkedReader struct {
	data  []byte
	sizes []int
	i     int
}

func (r *chunkedReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, io.EOF
	}
	n := r.sizes[r.i%len(r.sizes)]
	r.i++
	if n > len(r.data) {
		n = len(r.data)
	}
	if n > len(p) {
		n = len(p)
	}
	copy(p, r.data[:n])
	r.data = r.data[n:]
	return n, nil
}

// failAfterReader returns data once, then fails every later read.
type failAfterReader struct {
	data []byte
	err  error
	read bool
}

func (r *failAfterReader) Read(p []byte) (int, error) {
	if r.read {
		return 0, r.err
	}
	r.read = true
	return copy(p, r.data), nil
}

func frame(content string) string {
	return `data: {"id":"c1","choices":[{"delta":{"content":` + quote(content) + `}}]}` + "\n\n"
}

func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)
	return `"` + r.Replace(s) + `"`
}

func decodeAll(t *testing.T, r io.Reader) []string {
	t.Helper()
	d := NewDecoder(r, zap.NewNop())
	var out []string
	for d.Next() {
		out = append(out, d.Delta())
	}
	if err := d.Err(); err != nil {
		t.Fatalf("decoder error: %v", err)
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// =============================================================================
// DECODER TESTS
// =============================================================================

var sampleBody = ": keep-alive comment\n" +
	`data: {"id":"c1","choices":[{"delta":{"role":"assistant"}}]}` + "\n\n" +
	frame("Sure.") +
	"event: message\r\n" +
	`data: {"id":"c1","choices":[{"delta":{"content":" [ACTION:OPEN_FILE:src/app.ts]"}}]}` + "\r\n\r\n" +
	frame(" Done.") +
	frame("日本語") +
	`data: {"id":"c1","choices":[{"delta":{},"finish_reason":"stop"}]}` + "\n\n" +
	"data: [DONE]\n\n"

var sampleDeltas = []string{"Sure.", " [ACTION:OPEN_FILE:src/app.ts]", " Done.", "日本語"}

func TestDecoder_SingleRead(t *testing.T) {
	got := decodeAll(t, strings.NewReader(sampleBody))
	if !equalStrings(got, sampleDeltas) {
		t.Errorf("deltas = %q, want %q", got, sampleDeltas)
	}
}

func TestDecoder_ChunkBoundaryIndependence(t *testing.T) {
	// Every two-way split of the body
	for split := 0; split <= len(sampleBody); split++ {
		r := &chunkedReader{data: []byte(sampleBody), sizes: []int{split, len(sampleBody)}}
		if split == 0 {
			r.sizes = []int{len(sampleBody)}
		}
		got := decodeAll(t, r)
		if !equalStrings(got, sampleDeltas) {
			t.Fatalf("split at %d: deltas = %q, want %q", split, got, sampleDeltas)
		}
	}

	// One byte at a time, including inside multi-byte runes
	if got := decodeAll(t, iotest.OneByteReader(strings.NewReader(sampleBody))); !equalStrings(got, sampleDeltas) {
		t.Errorf("one-byte reads: deltas = %q, want %q", got, sampleDeltas)
	}

	// Random chunk sizes
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		sizes := make([]int, 1+rng.Intn(8))
		for j := range sizes {
			sizes[j] = 1 + rng.Intn(40)
		}
		got := decodeAll(t, &chunkedReader{data: []byte(sampleBody), sizes: sizes})
		if !equalStrings(got, sampleDeltas) {
			t.Fatalf("sizes %v: deltas = %q, want %q", sizes, got, sampleDeltas)
		}
	}
}

func TestDecoder_DoneStopsStream(t *testing.T) {
	body := frame("one") + "data: [DONE]\n" + frame("after-done")
	got := decodeAll(t, strings.NewReader(body))
	if !equalStrings(got, []string{"one"}) {
		t.Errorf("deltas = %q, want only %q", got, "one")
	}
}

func TestDecoder_DoneNeverReadsAgain(t *testing.T) {
	r := &failAfterReader{
		data: []byte(frame("one") + "data: [DONE]\n"),
		err:  errors.New("read after sentinel"),
	}
	d := NewDecoder(r, nil)
	var got []string
	for d.Next() {
		got = append(got, d.Delta())
	}
	if d.Err() != nil {
		t.Errorf("Err() = %v, want nil", d.Err())
	}
	if !equalStrings(got, []string{"one"}) {
		t.Errorf("deltas = %q", got)
	}
	if d.Next() {
		t.Error("exhausted decoder returned another delta")
	}
}

func TestDecoder_MalformedFrameSkippedAndLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	body := frame("a") + "data: {not json}\n" + frame("b") + "data: [DONE]\n"

	d := NewDecoder(strings.NewReader(body), zap.New(core))
	var got []string
	for d.Next() {
		got = append(got, d.Delta())
	}
	if d.Err() != nil {
		t.Fatalf("Err() = %v, want nil", d.Err())
	}
	if !equalStrings(got, []string{"a", "b"}) {
		t.Errorf("deltas = %q, want [a b]", got)
	}
	if d.Skipped() != 1 {
		t.Errorf("Skipped() = %d, want 1", d.Skipped())
	}
	if n := logs.FilterMessage("skipping malformed stream frame").Len(); n != 1 {
		t.Errorf("logged %d malformed-frame warnings, want 1", n)
	}
}

func TestDecoder_EOFWithoutNewline(t *testing.T) {
	body := frame("a") + `data: {"choices":[{"delta":{"content":"tail"}}]}`
	got := decodeAll(t, strings.NewReader(body))
	if !equalStrings(got, []string{"a", "tail"}) {
		t.Errorf("deltas = %q, want [a tail]", got)
	}
}

func TestDecoder_EOFWithoutSentinelIsClean(t *testing.T) {
	got := decodeAll(t, strings.NewReader(frame("only")))
	if !equalStrings(got, []string{"only"}) {
		t.Errorf("deltas = %q", got)
	}
}

func TestDecoder_ReadErrorSurfaces(t *testing.T) {
	boom := errors.New("connection reset")
	d := NewDecoder(&failAfterReader{data: []byte(frame("partial")), err: boom}, nil)

	var got []string
	for d.Next() {
		got = append(got, d.Delta())
	}
	if !errors.Is(d.Err(), boom) {
		t.Errorf("Err() = %v, want %v", d.Err(), boom)
	}
	if !equalStrings(got, []string{"partial"}) {
		t.Errorf("deltas before error = %q", got)
	}
}

func TestDecoder_ErrorFrameEndsStream(t *testing.T) {
	body := frame("a") + `data: {"error":{"message":"model overloaded","type":"server_error"}}` + "\n" + frame("b")
	d := NewDecoder(strings.NewReader(body), nil)
	var got []string
	for d.Next() {
		got = append(got, d.Delta())
	}
	if d.Err() == nil || !strings.Contains(d.Err().Error(), "model overloaded") {
		t.Errorf("Err() = %v, want provider error", d.Err())
	}
	if !equalStrings(got, []string{"a"}) {
		t.Errorf("deltas = %q, want [a]", got)
	}
}

func TestDecoder_LineTooLong(t *testing.T) {
	body := "data: " + strings.Repeat("x", MaxLineSize+readChunkSize*2)
	d := NewDecoder(strings.NewReader(body), nil)
	for d.Next() {
	}
	if !errors.Is(d.Err(), ErrLineTooLong) {
		t.Errorf("Err() = %v, want ErrLineTooLong", d.Err())
	}
}

func TestDrain(t *testing.T) {
	text, err := Drain(NewDecoder(strings.NewReader(sampleBody), nil))
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	want := strings.Join(sampleDeltas, "")
	if text != want {
		t.Errorf("Drain = %q, want %q", text, want)
	}
}
