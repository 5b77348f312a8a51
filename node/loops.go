package node

import (
	"context"
	"log/slog"
	"time"

	"github.com/Saikat-dot678/lorastack"
	"github.com/Saikat-dot678/lorastack/internal"
	"github.com/Saikat-dot678/lorastack/reassemble"
)

// senderLoop implements spec §4.3's per-tick procedure plus §4.4's LBT
// gate, releasing stateMu before any call that blocks on the medium
// and re-acquiring it to record the result, per spec §5.
func (n *Node) senderLoop(ctx context.Context) {
	ticker := time.NewTicker(TickPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		n.tick(ctx)
	}
}

func (n *Node) tick(ctx context.Context) {
	n.stateMu.Lock()
	eligible := n.sender.Tick(time.Now(), time.Duration(n.cfg.TimeoutMS)*time.Millisecond)
	n.stateMu.Unlock()

	for _, txm := range eligible {
		frame, err := lora.Encode(nil, txm.Packet, n.cfg.Profile)
		if err != nil {
			internal.LogAttrs(n.log, slog.LevelError, "node: encode failed, dropping transmission",
				slog.Int("seq", int(txm.Seq)), slog.String("err", err.Error()))
			continue
		}

		n.txMu.Lock()
		sent, err := n.dataGate.Send(ctx, n.txRadio, frame)
		n.txMu.Unlock()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			internal.LogAttrs(n.log, slog.LevelError, "node: send failed",
				slog.Int("seq", int(txm.Seq)), slog.String("err", err.Error()))
			continue
		}
		if !sent {
			continue // channel stayed busy; retry on a future tick.
		}

		n.stateMu.Lock()
		n.sender.MarkSent(txm.Seq, time.Now())
		n.checkStalled()
		n.stateMu.Unlock()
	}

	n.stateMu.Lock()
	n.sender.AdvanceWindow()
	n.stateMu.Unlock()
}

// checkStalled must be called with stateMu held.
func (n *Node) checkStalled() {
	seq, retries, ok := n.sender.StalledSeq()
	if !ok {
		return
	}
	n.recordEvent(Event{Stalled: true, StalledSeq: seq, Retries: retries})
}

// receiverLoop implements spec §4.5: a blocking receive with the
// profile's timeout, codec decode, address filter, and dispatch on
// type.
func (n *Node) receiverLoop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		frame, err := n.rxRadio.Recv(ctx, n.cfg.RecvTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			internal.LogAttrs(n.log, slog.LevelWarn, "node: recv error", slog.String("err", err.Error()))
			continue
		}
		if frame == nil {
			continue // timeout; loop again.
		}
		pkt, ok := lora.Decode(frame)
		if !ok {
			internal.LogAttrs(n.log, internal.LevelTrace, "node: dropped undecodable frame")
			continue
		}
		if pkt.Dest != n.cfg.MyAddr && pkt.Dest != lora.Broadcast {
			continue
		}
		n.handleIncoming(ctx, pkt)
	}
}

// handleIncoming dispatches one decoded packet addressed to this node.
// An ACK only updates the sender. A data packet is first acknowledged
// via the short-ACK gate, then run through the reorder buffer and the
// reassembler. Only the reorder buffer's pure cursor/map bookkeeping
// runs under stateMu; the reassembler's Dispatch — which performs the
// FileSink's Create/Write/Close calls — runs after stateMu is
// released, per spec §5 ("radio I/O and reassembly file I/O happen
// outside the lock"). This is safe without its own lock because
// receiverLoop is the only goroutine that ever touches n.reassem.
func (n *Node) handleIncoming(ctx context.Context, pkt lora.Packet) {
	if pkt.Type == lora.TypeACK {
		n.stateMu.Lock()
		n.sender.OnAck(pkt.Seq)
		n.stateMu.Unlock()
		return
	}

	n.sendAck(ctx, pkt.Seq)

	n.stateMu.Lock()
	deliverable := n.reorderer.Accept(pkt)
	n.stateMu.Unlock()

	var events []reassemble.Event
	for _, p := range deliverable {
		events = append(events, n.reassem.Dispatch(p)...)
	}

	for _, ev := range events {
		n.recordEvent(Event{Event: ev})
	}
}

func (n *Node) sendAck(ctx context.Context, seq uint8) {
	frame, err := lora.Encode(nil, lora.Packet{
		Dest: n.cfg.PeerAddr,
		Src:  n.cfg.MyAddr,
		Seq:  seq,
		Type: lora.TypeACK,
	}, n.cfg.Profile)
	if err != nil {
		internal.LogAttrs(n.log, slog.LevelError, "node: ack encode failed", slog.String("err", err.Error()))
		return
	}
	n.txMu.Lock()
	_, err = n.ackGate.Send(ctx, n.txRadio, frame)
	n.txMu.Unlock()
	if err != nil && ctx.Err() == nil {
		internal.LogAttrs(n.log, slog.LevelWarn, "node: ack send failed", slog.String("err", err.Error()))
	}
}
