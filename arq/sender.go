// Package arq implements the sliding-window ARQ sender (spec §4.3),
// its TX queue / ACK-tracking / timestamp bookkeeping (spec §3), and
// the Listen-Before-Talk channel-access gate (spec §4.4).
//
// Sender's state-mutating methods take no lock of their own: spec §5
// assigns ownership of all ARQ state to a single mutual-exclusion
// primitive held by the node controller (package node), so Tick,
// OnAck, MarkSent and AdvanceWindow are plain functions of state,
// callable under the caller's held lock and directly unit-testable
// without any radio or timer — the command-channel re-architecture
// Design Note §9 asks for, applied the way tcp.ControlBlock's methods
// in the teacher stack are callable without I/O.
package arq

import (
	"log/slog"
	"time"

	"github.com/Saikat-dot678/lorastack"
	"github.com/Saikat-dot678/lorastack/internal"
)

// entry is one packet in the TX queue, combining the spec's separate
// ACK-tracking and timestamp maps into a single slice slot addressed
// by position from windowBase, mirroring the teacher stack's sentlist
// (tcp/txqueue.go): since sequence numbers are allocated strictly
// monotonically and the queue is only ever trimmed from its front,
// queue[i] always holds sequence number windowBase+i mod 256.
type entry struct {
	pkt      lora.Packet
	acked    bool
	sent     bool // timestamp map membership: false means "never transmitted"
	lastSent time.Time
	retries  int
}

// Transmission is a packet the sender has deemed eligible this tick:
// never sent, or timed out waiting for its ACK. Callers run it through
// a Gate and, on success, call Sender.MarkSent.
type Transmission struct {
	Seq    uint8
	Packet lora.Packet
}

// DefaultStallThreshold is the retransmit count spec §7 names as an
// example threshold for an operator-visible "stalled" signal.
const DefaultStallThreshold = 20

// Sender holds the TX queue, sliding-window cursors, and ACK state for
// one direction of traffic. The zero value is not ready to use; build
// one with NewSender.
type Sender struct {
	cfg            lora.Config
	queue          []entry
	windowBase     uint8
	nextSeq        uint8
	stallThreshold int
	log            *slog.Logger
}

// NewSender returns a Sender configured per cfg. cfg is assumed valid
// (cfg.Validate() already called by the owner).
func NewSender(cfg lora.Config) *Sender {
	return &Sender{cfg: cfg, stallThreshold: DefaultStallThreshold}
}

// SetLogger attaches a structured logger; nil disables logging.
func (s *Sender) SetLogger(log *slog.Logger) { s.log = log }

// SetStallThreshold overrides DefaultStallThreshold.
func (s *Sender) SetStallThreshold(n int) { s.stallThreshold = n }

// WindowBase returns the lowest unacknowledged sequence number.
func (s *Sender) WindowBase() uint8 { return s.windowBase }

// NextSeq returns the next sequence number that will be allocated.
func (s *Sender) NextSeq() uint8 { return s.nextSeq }

// QueueLen returns the number of packets currently awaiting
// acknowledgement or transmission.
func (s *Sender) QueueLen() int { return len(s.queue) }

// Idle reports whether the TX queue is empty, i.e. windowBase has
// caught up with nextSeq and every enqueued packet has been delivered.
func (s *Sender) Idle() bool { return len(s.queue) == 0 }

// allocate appends a new, never-sent, un-acked entry and returns its
// sequence number, matching spec §4.2: "the controller assigns
// next_seq, advances next_seq modulo 256, and initializes the
// ACK-tracking entry to false. The timestamp map is NOT initialized
// here."
func (s *Sender) allocate(typ lora.Type, payload []byte) uint8 {
	seq := s.nextSeq
	s.queue = append(s.queue, entry{
		pkt: lora.Packet{
			Dest:    s.cfg.PeerAddr,
			Src:     s.cfg.MyAddr,
			Seq:     seq,
			Type:    typ,
			Payload: payload,
		},
	})
	s.nextSeq++
	return seq
}

// find returns the index of the queue entry with the given sequence
// number, or -1 if absent. Since the queue is seq-contiguous from
// windowBase, this is an O(1) offset check, not a search.
func (s *Sender) find(seq uint8) int {
	if len(s.queue) == 0 {
		return -1
	}
	offset := int(seq - s.windowBase)
	if offset < 0 || offset >= len(s.queue) {
		return -1
	}
	return offset
}

// OnAck marks seq acknowledged. Out-of-window ACKs (seq not currently
// tracked) are tolerated silently, per spec §4.5.
func (s *Sender) OnAck(seq uint8) {
	if i := s.find(seq); i >= 0 {
		s.queue[i].acked = true
	}
}

// Tick scans the current window for packets eligible to (re)transmit:
// never sent, or whose last attempt was more than timeout ago. It does
// not mutate sender state beyond what Tick itself owns; callers must
// invoke MarkSent after a transmission actually succeeds and
// AdvanceWindow once done processing eligible slots, per spec §4.3's
// three-step tick procedure.
func (s *Sender) Tick(now time.Time, timeout time.Duration) []Transmission {
	var eligible []Transmission
	windowSize := int(s.cfg.WindowSize)
	for i := 0; i < windowSize; i++ {
		seq := s.windowBase + uint8(i)
		idx := s.find(seq)
		if idx < 0 {
			continue // absent from queue: nothing allocated at this slot yet.
		}
		e := &s.queue[idx]
		if e.acked {
			continue
		}
		if !e.sent || now.Sub(e.lastSent) > timeout {
			eligible = append(eligible, Transmission{Seq: seq, Packet: e.pkt})
		}
	}
	return eligible
}

// MarkSent records that seq was just handed to the radio successfully,
// resetting its retransmission timer.
func (s *Sender) MarkSent(seq uint8, now time.Time) {
	if i := s.find(seq); i >= 0 {
		e := &s.queue[i]
		if e.sent {
			e.retries++
		}
		e.sent = true
		e.lastSent = now
	}
}

// AdvanceWindow removes packets from the front of the queue while they
// are acknowledged, sliding windowBase forward and deleting their
// ACK/timestamp bookkeeping, per spec §4.3 step 3. It stops at the
// first unacknowledged or absent slot — the window never skips its
// base.
func (s *Sender) AdvanceWindow() {
	n := 0
	for n < len(s.queue) && s.queue[n].acked {
		n++
	}
	if n == 0 {
		return
	}
	s.queue = s.queue[n:]
	s.windowBase += uint8(n)
	internal.LogAttrs(s.log, slog.LevelDebug, "arq: window advanced",
		slog.Int("n", n), slog.Int("window_base", int(s.windowBase)))
}

// StalledSeq reports the oldest unacknowledged packet if it has been
// retransmitted more than the stall threshold times without an ACK,
// per spec §7. It never alters ARQ state.
func (s *Sender) StalledSeq() (seq uint8, retries int, ok bool) {
	if len(s.queue) == 0 {
		return 0, 0, false
	}
	e := s.queue[0]
	if e.retries <= s.stallThreshold {
		return 0, 0, false
	}
	return e.pkt.Seq, e.retries, true
}
