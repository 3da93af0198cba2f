// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// idleWatchdog cancels a stream's context when no data arrives for the
// configured duration. A nil watchdog is valid and does nothing.
type idleWatchdog struct {
	timeout time.Duration
	timer   *time.Timer
	fired   atomic.Bool
	once    sync.Once
}

func newIdleWatchdog(timeout time.Duration, cancel context.CancelFunc) *idleWatchdog {
	if timeout <= 0 {
		return nil
	}
	w := &idleWatchdog{timeout: timeout}
	w.timer = time.AfterFunc(timeout, func() {
		w.fired.Store(true)
		cancel()
	})
	return w
}

// Touch pushes the deadline out by the timeout.
func (w *idleWatchdog) Touch() {
	if w == nil || w.fired.Load() {
		return
	}
	w.timer.Reset(w.timeout)
}

// Stop disarms the watchdog.
func (w *idleWatchdog) Stop() {
	if w == nil {
		return
	}
	w.once.Do(func() { w.timer.Stop() })
}

// Fired reports whether the watchdog cancelled the stream.
func (w *idleWatchdog) Fired() bool {
	return w != nil && w.fired.Load()
}

// touchReader resets the watchdog whenever bytes arrive.
type touchReader struct {
	r io.ReadCloser
	w *idleWatchdog
}

func (t *touchReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if n > 0 {
		t.w.Touch()
	}
	return n, err
}

func (t *touchReader) Close() error {
	return t.r.Close()
}
