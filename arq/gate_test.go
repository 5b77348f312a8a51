package arq

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Saikat-dot678/lorastack/radio"
)

func TestLBTGateSendsWhenFree(t *testing.T) {
	a, b := radio.NewLoopbackPair()
	g := NewLBTGate(3)
	ctx := context.Background()
	sent, err := g.Send(ctx, a, []byte("hello"))
	if err != nil || !sent {
		t.Fatalf("sent=%v err=%v, want true,nil", sent, err)
	}
	frame, err := b.Recv(ctx, time.Second)
	if err != nil || string(frame) != "hello" {
		t.Fatalf("Recv = %q, %v", frame, err)
	}
}

func TestLBTGateGivesUpWhenAlwaysBusy(t *testing.T) {
	a, _ := radio.NewLoopbackPair()
	a.SetBusy(true)
	g := NewLBTGate(2)
	ctx := context.Background()
	sent, err := g.Send(ctx, a, []byte("x"))
	if err != nil || sent {
		t.Fatalf("sent=%v err=%v, want false,nil", sent, err)
	}
}

func TestLBTGateRespectsCancellation(t *testing.T) {
	a, _ := radio.NewLoopbackPair()
	a.SetBusy(true)
	g := NewLBTGate(100)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sent, err := g.Send(ctx, a, []byte("x"))
	if sent || !errors.Is(err, context.Canceled) {
		t.Fatalf("sent=%v err=%v, want false,context.Canceled", sent, err)
	}
}

func TestShortAckGateSkipsChannelScan(t *testing.T) {
	a, b := radio.NewLoopbackPair()
	a.SetBusy(true) // an LBTGate would give up without sending; ShortAckGate must ignore it.
	g := NewShortAckGate()
	ctx := context.Background()
	sent, err := g.Send(ctx, a, []byte("ack"))
	if err != nil || !sent {
		t.Fatalf("sent=%v err=%v, want true,nil", sent, err)
	}
	frame, err := b.Recv(ctx, time.Second)
	if err != nil || string(frame) != "ack" {
		t.Fatalf("Recv = %q, %v", frame, err)
	}
}
