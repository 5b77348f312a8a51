package reorder

import (
	"testing"

	"github.com/Saikat-dot678/lorastack"
)

func pkt(seq uint8) lora.Packet {
	return lora.Packet{Seq: seq, Type: lora.TypeMsgChunk, Payload: []byte{seq}}
}

func TestInOrderDelivery(t *testing.T) {
	b := New(4)
	got := b.Accept(pkt(0))
	if len(got) != 1 || got[0].Seq != 0 {
		t.Fatalf("got %+v", got)
	}
	if b.Expected() != 1 {
		t.Fatalf("Expected = %d, want 1", b.Expected())
	}
}

func TestOutOfOrderThenFill(t *testing.T) {
	// S3: A sends 0,1,2,3; 0 is delayed.
	b := New(4)
	if got := b.Accept(pkt(1)); got != nil {
		t.Fatalf("expected no delivery yet, got %+v", got)
	}
	if got := b.Accept(pkt(2)); got != nil {
		t.Fatalf("expected no delivery yet, got %+v", got)
	}
	if got := b.Accept(pkt(3)); got != nil {
		t.Fatalf("expected no delivery yet, got %+v", got)
	}
	if b.Held() != 3 {
		t.Fatalf("Held() = %d, want 3", b.Held())
	}
	got := b.Accept(pkt(0))
	if len(got) != 4 {
		t.Fatalf("got %d packets, want 4", len(got))
	}
	for i, p := range got {
		if p.Seq != uint8(i) {
			t.Fatalf("got[%d].Seq = %d, want %d", i, p.Seq, i)
		}
	}
	if b.Expected() != 4 || b.Held() != 0 {
		t.Fatalf("Expected=%d Held=%d, want 4,0", b.Expected(), b.Held())
	}
}

func TestDuplicateInOrderDroppedAfterAdvance(t *testing.T) {
	// S2: seq 0's ACK is lost and it is retransmitted after rx_expected
	// has already advanced past it.
	b := New(4)
	b.Accept(pkt(0))
	b.Accept(pkt(1))
	if b.Expected() != 2 {
		t.Fatalf("Expected = %d, want 2", b.Expected())
	}
	got := b.Accept(pkt(0)) // behind the window now
	if got != nil {
		t.Fatalf("expected duplicate to be dropped, got %+v", got)
	}
	if b.Expected() != 2 {
		t.Fatalf("Expected moved on retransmit, got %d", b.Expected())
	}
}

func TestDuplicateOutOfOrderDropped(t *testing.T) {
	b := New(4)
	b.Accept(pkt(2))
	if b.Held() != 1 {
		t.Fatalf("Held() = %d, want 1", b.Held())
	}
	b.Accept(pkt(2)) // duplicate while still buffered
	if b.Held() != 1 {
		t.Fatalf("duplicate out-of-order packet was not deduplicated, Held()=%d", b.Held())
	}
}

func TestBehindWindowDropped(t *testing.T) {
	b := New(4)
	b.Accept(pkt(0))
	b.Accept(pkt(1))
	// expected is now 2; a packet with d >= windowSize (e.g. seq 250) must drop.
	got := b.Accept(pkt(250))
	if got != nil || b.Held() != 0 {
		t.Fatalf("expected drop, got %+v held=%d", got, b.Held())
	}
}

func TestSequenceWraparoundDelivery(t *testing.T) {
	b := New(4)
	b.expected = 254
	got := b.Accept(pkt(255))
	if got != nil {
		t.Fatalf("expected buffering, got %+v", got)
	}
	got = b.Accept(pkt(254))
	if len(got) != 2 || got[0].Seq != 254 || got[1].Seq != 255 {
		t.Fatalf("got %+v", got)
	}
	if b.Expected() != 0 {
		t.Fatalf("Expected = %d, want 0 after wraparound", b.Expected())
	}
}
