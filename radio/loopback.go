package radio

import (
	"context"
	"sync"
	"time"
)

// Loopback is an in-memory Radio backed by a channel to a paired
// Loopback, standing in for real hardware the way the teacher stack's
// internal test fakes stand in for a NIC. NewLoopbackPair wires two
// Loopbacks together; each one's Send delivers to the other's Recv.
//
// Loopback is meant for tests, not for production use; ScanChannel always reports Free unless Busy is
// set, and a Filter hook lets tests simulate loss and corruption.
type Loopback struct {
	inbox chan []byte
	peer  *Loopback

	mu    sync.Mutex
	busy  bool
	// Filter, if non-nil, is called on every frame handed to Send
	// before it reaches the peer's inbox. Returning a nil slice drops
	// the frame silently, modeling a lost or corrupted transmission.
	Filter func(frame []byte) []byte
}

// NewLoopbackPair returns two Loopback radios wired to each other.
func NewLoopbackPair() (a, b *Loopback) {
	a = &Loopback{inbox: make(chan []byte, 64)}
	b = &Loopback{inbox: make(chan []byte, 64)}
	a.peer = b
	b.peer = a
	return a, b
}

// SetBusy controls the value ScanChannel reports.
func (l *Loopback) SetBusy(busy bool) {
	l.mu.Lock()
	l.busy = busy
	l.mu.Unlock()
}

// Send copies frame and delivers it to the peer's inbox, after passing
// it through Filter if set.
func (l *Loopback) Send(ctx context.Context, frame []byte) error {
	out := append([]byte(nil), frame...)
	if l.Filter != nil {
		out = l.Filter(out)
	}
	if out == nil {
		return nil // dropped, as a lossy medium would.
	}
	select {
	case l.peer.inbox <- out:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Recv blocks until a frame arrives, ctx is cancelled, or timeout
// elapses, whichever comes first. A timeout returns (nil, nil).
func (l *Loopback) Recv(ctx context.Context, timeout time.Duration) ([]byte, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case frame := <-l.inbox:
		return frame, nil
	case <-timer.C:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ScanChannel reports Busy if SetBusy(true) was called and not yet
// undone, Free otherwise.
func (l *Loopback) ScanChannel(ctx context.Context) (Status, error) {
	l.mu.Lock()
	busy := l.busy
	l.mu.Unlock()
	if busy {
		return Busy, nil
	}
	return Free, nil
}
