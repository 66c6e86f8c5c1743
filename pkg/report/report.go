// Package report provides the sinks compile diagnostics are written to.
package report

import (
	"io"
	"strings"
	"sync"
)

type Reporter interface {
	Hide()
	Show()
	Append(text string)
}

// Channel behaves like an editor output panel backed by a writer: text appended
// while hidden is held back and written when the channel is shown.
type Channel struct {
	mu      sync.Mutex
	w       io.Writer
	visible bool
	pending strings.Builder
	all     strings.Builder
}

var _ Reporter = (*Channel)(nil)

func NewChannel(w io.Writer) *Channel {
	return &Channel{
		w: w,
	}
}

// Hide starts a new report: Text forgets what was appended before.
func (c *Channel) Hide() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.visible = false
	c.all.Reset()
}

func (c *Channel) Show() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.visible = true
	c.flush()
}

func (c *Channel) Append(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pending.WriteString(text)
	c.all.WriteString(text)
	if c.visible {
		c.flush()
	}
}

// Text returns everything appended since the last Hide.
func (c *Channel) Text() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.all.String()
}

func (c *Channel) Visible() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.visible
}

func (c *Channel) flush() {
	if c.pending.Len() == 0 {
		return
	}
	_, _ = io.WriteString(c.w, c.pending.String())
	c.pending.Reset()
}

// Buffer collects the report of a single request.
type Buffer struct {
	mu      sync.Mutex
	buf     strings.Builder
	visible bool
}

var _ Reporter = (*Buffer)(nil)

func NewBuffer() *Buffer {
	return &Buffer{}
}

func (b *Buffer) Hide() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.visible = false
}

func (b *Buffer) Show() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.visible = true
}

func (b *Buffer) Append(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.WriteString(text)
}

func (b *Buffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *Buffer) Visible() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.visible
}

var Discard Reporter = discard{}

type discard struct{}

func (discard) Hide()         {}
func (discard) Show()         {}
func (discard) Append(string) {}
