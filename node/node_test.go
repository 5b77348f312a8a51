package node

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/Saikat-dot678/lorastack"
	"github.com/Saikat-dot678/lorastack/radio"
	"github.com/Saikat-dot678/lorastack/reassemble"
)

type memFile struct{ data []byte }

func (f *memFile) Write(p []byte) (int, error) { f.data = append(f.data, p...); return len(p), nil }
func (f *memFile) Close() error                { return nil }

type memSink struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemSink() *memSink { return &memSink{files: make(map[string][]byte)} }

func (s *memSink) Create(name string) (io.WriteCloser, error) {
	f := &memFile{}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[name] = nil
	return &sinkFile{sink: s, name: name, memFile: f}, nil
}

type sinkFile struct {
	sink *memSink
	name string
	*memFile
}

func (f *sinkFile) Close() error {
	f.sink.mu.Lock()
	f.sink.files[f.name] = f.memFile.data
	f.sink.mu.Unlock()
	return nil
}

var _ reassemble.FileSink = (*memSink)(nil)

func testPairConfig() (lora.Config, lora.Config) {
	a := lora.DefaultShortRange(0x01, 0x02)
	a.RecvTimeout = 50 * time.Millisecond
	a.TimeoutMS = 100
	b := a
	b.MyAddr, b.PeerAddr = 0x02, 0x01
	return a, b
}

func newTestPair(t *testing.T) (*Node, *Node, *memSink, *memSink) {
	t.Helper()
	la, lb := radio.NewLoopbackPair()
	cfgA, cfgB := testPairConfig()
	sinkA, sinkB := newMemSink(), newMemSink()
	a, err := New(Config{Lora: cfgA, TXRadio: la, RXRadio: la, FileSink: sinkA})
	if err != nil {
		t.Fatalf("New(a): %v", err)
	}
	b, err := New(Config{Lora: cfgB, TXRadio: lb, RXRadio: lb, FileSink: sinkB})
	if err != nil {
		t.Fatalf("New(b): %v", err)
	}
	return a, b, sinkA, sinkB
}

func waitForEvent(t *testing.T, n *Node, timeout time.Duration) Event {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if evs := n.Events(); len(evs) > 0 {
			return evs[len(evs)-1]
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("timed out waiting for event")
	return Event{}
}

func TestS1LosslessSingleChunkMessage(t *testing.T) {
	a, b, _, _ := newTestPair(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go a.Run(ctx)
	go b.Run(ctx)

	a.EnqueueMessage("hi")
	ev := waitForEvent(t, b, time.Second)
	if ev.Kind != reassemble.EventMessage || ev.Text != "hi" {
		t.Fatalf("event = %+v, want message \"hi\"", ev)
	}
}

func TestS4CRCCorruptionTriggersRetransmit(t *testing.T) {
	la, lb := radio.NewLoopbackPair()
	cfgA, cfgB := testPairConfig()
	sinkA, sinkB := newMemSink(), newMemSink()

	corruptedOnce := false
	la.Filter = func(frame []byte) []byte {
		if !corruptedOnce && len(frame) > 0 {
			corruptedOnce = true
			out := append([]byte(nil), frame...)
			out[len(out)-1] ^= 0xFF // flip last payload/CRC byte once.
			return out
		}
		return frame
	}

	a, err := New(Config{Lora: cfgA, TXRadio: la, RXRadio: la, FileSink: sinkA})
	if err != nil {
		t.Fatalf("New(a): %v", err)
	}
	b, err := New(Config{Lora: cfgB, TXRadio: lb, RXRadio: lb, FileSink: sinkB})
	if err != nil {
		t.Fatalf("New(b): %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	go a.Run(ctx)
	go b.Run(ctx)

	a.EnqueueMessage("yo")
	ev := waitForEvent(t, b, 2*time.Second)
	if ev.Kind != reassemble.EventMessage || ev.Text != "yo" {
		t.Fatalf("event = %+v, want message \"yo\" delivered after retransmit", ev)
	}
}

func TestS5FileTransfer(t *testing.T) {
	a, b, _, sinkB := newTestPair(t)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	go a.Run(ctx)
	go b.Run(ctx)

	data := make([]byte, 500)
	for i := range data {
		data[i] = byte(i)
	}
	a.EnqueueFile("x.bin", data)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		sinkB.mu.Lock()
		got, ok := sinkB.files["x.bin"]
		sinkB.mu.Unlock()
		if ok && len(got) == len(data) {
			for i := range data {
				if got[i] != data[i] {
					t.Fatalf("byte %d mismatch: got %d want %d", i, got[i], data[i])
				}
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("file transfer did not complete in time")
}
