// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package workflow

import (
	"fmt"
	"io"
	"sync"
)

// Notifier is the sink for user-facing progress messages. Info opens a
// sticky "in progress" message that Dismiss closes.
type Notifier interface {
	Info(msg string)
	Success(msg string)
	Error(msg string)
	Dismiss()
}

type nopNotifier struct{}

func (nopNotifier) Info(string)    {}
func (nopNotifier) Success(string) {}
func (nopNotifier) Error(string)   {}
func (nopNotifier) Dismiss()       {}

// WriterNotifier prints messages to a terminal-like writer.
type WriterNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterNotifier returns a Notifier writing one line per message to w.
func NewWriterNotifier(w io.Writer) *WriterNotifier {
	return &WriterNotifier{w: w}
}

func (n *WriterNotifier) Info(msg string)    { n.line("…", msg) }
func (n *WriterNotifier) Success(msg string) { n.line("✓", msg) }
func (n *WriterNotifier) Error(msg string)   { n.line("✗", msg) }
func (n *WriterNotifier) Dismiss()           {}

func (n *WriterNotifier) line(mark, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintf(n.w, "%s %s\n", mark, msg)
}
