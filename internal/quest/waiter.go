package quest

import (
	"context"
	"sync"
	"time"
)

// Reply is a message that may answer a pending prompt.
type Reply struct {
	MessageID uint64
	ChannelID uint64
	AuthorID  uint64
	Content   string
}

type waitKey struct {
	channelID uint64
	authorID  uint64
}

// Waiter hands the next message of an author in a channel to whoever waits for it.
type Waiter struct {
	mu      sync.Mutex
	pending map[waitKey]chan Reply
}

// NewWaiter creates a waiter with no pending prompts.
func NewWaiter() *Waiter {
	return &Waiter{pending: make(map[waitKey]chan Reply)}
}

// Pending is a registered prompt waiting for its reply.
type Pending struct {
	waiter *Waiter
	key    waitKey
	ch     chan Reply
}

// Register starts listening for the next message of the author in the channel.
// Messages delivered after Register and before Await are kept for Await.
// A newer registration for the same author and channel replaces an older one.
func (w *Waiter) Register(channelID, authorID uint64) *Pending {
	p := &Pending{
		waiter: w,
		key:    waitKey{channelID: channelID, authorID: authorID},
		ch:     make(chan Reply, 1),
	}

	w.mu.Lock()
	w.pending[p.key] = p.ch
	w.mu.Unlock()

	return p
}

// Await blocks until the reply arrives, the timeout passes or ctx ends.
// The registration is removed when Await returns.
func (p *Pending) Await(ctx context.Context, timeout time.Duration) (Reply, error) {
	defer p.Cancel()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case reply := <-p.ch:
		return reply, nil
	case <-timer.C:
		return Reply{}, ErrTimeout
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	}
}

// Cancel stops listening. Safe to call more than once.
func (p *Pending) Cancel() {
	p.waiter.mu.Lock()
	if p.waiter.pending[p.key] == p.ch {
		delete(p.waiter.pending, p.key)
	}
	p.waiter.mu.Unlock()
}

// Wait registers and awaits in one step.
func (w *Waiter) Wait(ctx context.Context, channelID, authorID uint64, timeout time.Duration) (Reply, error) {
	return w.Register(channelID, authorID).Await(ctx, timeout)
}

// Deliver passes the message to a matching waiter.
// Returns true if the message was consumed as a reply.
func (w *Waiter) Deliver(reply Reply) bool {
	key := waitKey{channelID: reply.ChannelID, authorID: reply.AuthorID}

	w.mu.Lock()
	ch, ok := w.pending[key]
	if ok {
		delete(w.pending, key)
	}
	w.mu.Unlock()

	if !ok {
		return false
	}

	ch <- reply
	return true
}
