// Package reorder implements the receiver-side reorder buffer of spec
// §4.5: an in-order delivery cursor plus a bounded holding area for
// packets that arrive ahead of it, grounded on the stateful, resettable
// Handler pattern the teacher stack uses for its ARP cache (arp.Handler
// in the teacher's arp package) — config struct, Reset, and plain
// methods mutated only under the caller's lock.
package reorder

import (
	"log/slog"

	"github.com/Saikat-dot678/lorastack"
	"github.com/Saikat-dot678/lorastack/internal"
)

// Buffer holds one direction's receive cursor and out-of-order holding
// area. Its methods take no lock of their own: the node controller owns
// the single mutex spec §5 assigns to rx_expected, rx_buffer and the
// rest of the shared ARQ state.
type Buffer struct {
	windowSize uint8
	expected   uint8
	held       map[uint8]lora.Packet
	log        *slog.Logger
}

// New returns a Buffer that accepts out-of-order packets up to
// windowSize slots ahead of its delivery cursor.
func New(windowSize uint8) *Buffer {
	return &Buffer{windowSize: windowSize, held: make(map[uint8]lora.Packet)}
}

// SetLogger attaches a structured logger; nil disables logging.
func (b *Buffer) SetLogger(log *slog.Logger) { b.log = log }

// Expected returns the next sequence number this buffer will deliver.
func (b *Buffer) Expected() uint8 { return b.expected }

// Held returns the number of packets currently buffered out of order.
func (b *Buffer) Held() int { return len(b.held) }

// Accept runs pkt through the reorder procedure of spec §4.5 and
// returns, in sequence order, every packet now ready for the
// reassembler — zero, one, or several if pkt filled a gap. The caller
// has already emitted pkt's ACK via the short-ACK gate before calling
// Accept; Accept itself never touches the radio.
func (b *Buffer) Accept(pkt lora.Packet) []lora.Packet {
	d := pkt.Seq - b.expected // mod-256 distance, wraps naturally in uint8
	switch {
	case d == 0:
		delivered := []lora.Packet{pkt}
		b.expected++
		for {
			held, ok := b.held[b.expected]
			if !ok {
				break
			}
			delete(b.held, b.expected)
			delivered = append(delivered, held)
			b.expected++
		}
		return delivered
	case d < b.windowSize:
		if _, dup := b.held[pkt.Seq]; dup {
			internal.LogAttrs(b.log, internal.LevelTrace, "reorder: dropped duplicate out-of-order packet",
				slog.Int("seq", int(pkt.Seq)))
			return nil
		}
		b.held[pkt.Seq] = pkt
		internal.LogAttrs(b.log, slog.LevelDebug, "reorder: buffered out-of-order packet",
			slog.Int("seq", int(pkt.Seq)), slog.Int("expected", int(b.expected)))
		return nil
	default:
		internal.LogAttrs(b.log, internal.LevelTrace, "reorder: dropped out-of-window packet",
			slog.Int("seq", int(pkt.Seq)), slog.Int("expected", int(b.expected)))
		return nil
	}
}
