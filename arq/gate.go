package arq

import (
	"context"
	"time"

	"github.com/Saikat-dot678/lorastack/internal"
	"github.com/Saikat-dot678/lorastack/radio"
)

// Gate decides when a frame may be handed to the TX radio, per spec
// §4.4. Send returns sent=true only if the frame was actually
// transmitted; a false result with a nil error means the gate gave up
// (channel stayed busy) and the caller's retransmission timer will
// re-enter this path on a future tick.
type Gate interface {
	Send(ctx context.Context, r radio.Radio, frame []byte) (sent bool, err error)
}

// LBTGate implements the full Listen-Before-Talk path spec §4.4
// describes for data packets: an initial randomized backoff, then up
// to MaxRetries channel scans with a randomized backoff between busy
// results.
type LBTGate struct {
	MaxRetries int
	jitter     internal.Jitter
}

// NewLBTGate returns an LBTGate that retries up to maxRetries times.
func NewLBTGate(maxRetries int) *LBTGate {
	return &LBTGate{MaxRetries: maxRetries, jitter: internal.NewJitter()}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Send implements Gate.
func (g *LBTGate) Send(ctx context.Context, r radio.Radio, frame []byte) (bool, error) {
	if err := sleep(ctx, g.jitter.Between(10*time.Millisecond, 40*time.Millisecond)); err != nil {
		return false, err
	}
	for attempt := 0; attempt < g.MaxRetries; attempt++ {
		status, err := r.ScanChannel(ctx)
		if err != nil {
			return false, err
		}
		if status == radio.Free {
			if err := r.Send(ctx, frame); err != nil {
				return false, err
			}
			return true, nil
		}
		if err := sleep(ctx, g.jitter.Between(20*time.Millisecond, 50*time.Millisecond)); err != nil {
			return false, err
		}
	}
	return false, nil // exhausted retries; abandon this tick.
}

// ShortAckGate implements the compressed, scan-free path spec §4.4
// reserves for ACK emission: a short randomized delay, then an
// unconditional transmit. ACKs are latency-sensitive enough to accept
// the collision risk of skipping channel scanning.
type ShortAckGate struct {
	jitter internal.Jitter
}

// NewShortAckGate returns a ready-to-use ShortAckGate.
func NewShortAckGate() *ShortAckGate {
	return &ShortAckGate{jitter: internal.NewJitter()}
}

// Send implements Gate.
func (g *ShortAckGate) Send(ctx context.Context, r radio.Radio, frame []byte) (bool, error) {
	if err := sleep(ctx, g.jitter.Between(5*time.Millisecond, 15*time.Millisecond)); err != nil {
		return false, err
	}
	if err := r.Send(ctx, frame); err != nil {
		return false, err
	}
	return true, nil
}
