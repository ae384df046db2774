package domain

import (
	"sync"
	"sync/atomic"
)

// Cancellation is a cooperative cancel signal shared between the caller
// and a running authorization or upload. It is separate from
// context.Context so that an in-flight request finishes while the next
// step is skipped.
type Cancellation struct {
	flag atomic.Bool
	once sync.Once
	done chan struct{}
}

// NewCancellation returns an untriggered cancellation.
func NewCancellation() *Cancellation {
	return &Cancellation{done: make(chan struct{})}
}

// Cancel triggers the signal. Safe to call more than once.
func (c *Cancellation) Cancel() {
	c.flag.Store(true)
	c.once.Do(func() { close(c.done) })
}

// Cancelled reports whether Cancel has been called. A nil receiver is
// never cancelled.
func (c *Cancellation) Cancelled() bool {
	return c != nil && c.flag.Load()
}

// Done returns a channel closed on Cancel. A nil receiver returns nil,
// which blocks forever in a select.
func (c *Cancellation) Done() <-chan struct{} {
	if c == nil {
		return nil
	}
	return c.done
}
