// Package reassemble implements the application-layer reassembler of
// spec §4.6: a text accumulator and an in-flight file handle fed by
// the in-order packet stream the reorder buffer releases. Dispatch by
// packet type follows the teacher stack's arp.Handler convention of a
// single Reset-style entry point per state transition (arp/handler.go:
// StartQuery/Demux reset query and pending-response slots the same way
// FILE_START here always clears the prior in-flight file first).
package reassemble

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Saikat-dot678/lorastack"
	"github.com/Saikat-dot678/lorastack/internal"
)

// FileSink abstracts the destination for reassembled files, per spec
// §7's "Resource" error row: Create failures (disk full, permission
// denied) must drop the transfer rather than panic or retry silently.
type FileSink interface {
	Create(name string) (io.WriteCloser, error)
}

// Event is something the reassembler surfaces to the operator-visible
// log, per spec §4.6 and §7.
type Event struct {
	Kind EventKind
	Text string // message text, for EventMessage and EventDecodeError
	Name string // file name, for file-related events
}

// EventKind enumerates the kinds of Event the reassembler emits.
type EventKind uint8

const (
	EventMessage EventKind = iota
	EventDecodeError
	EventFileSaved
	EventTransferFailed
)

func (k EventKind) String() string {
	switch k {
	case EventMessage:
		return "message"
	case EventDecodeError:
		return "decode_error"
	case EventFileSaved:
		return "file_saved"
	case EventTransferFailed:
		return "transfer_failed"
	default:
		return "unknown"
	}
}

// inFlightFile tracks the file currently being written.
type inFlightFile struct {
	name     string
	expected int
	written  int
	w        io.WriteCloser
	failed   bool // Create/Write already failed; consume remaining chunks silently.
}

// State holds the reassembler's in-flight text and file state. At most
// one of each is in flight at any moment, per spec §4.6's invariant.
// Its methods take no lock: the node controller calls Dispatch only
// from its receiver goroutine, outside the lock it holds for
// arq.Sender and reorder.Buffer.
type State struct {
	sink FileSink
	text bytes.Buffer
	file *inFlightFile
	log  *slog.Logger
}

// New returns a State that creates files via sink.
func New(sink FileSink) *State {
	return &State{sink: sink}
}

// SetLogger attaches a structured logger; nil disables logging.
func (s *State) SetLogger(log *slog.Logger) { s.log = log }

// Dispatch feeds one in-order packet through the reassembler and
// returns the Events it produced, at most one. MSG_CHUNK, ACK and
// unknown type tags never produce an event; FILE_CHUNK produces one
// only when the write fails.
func (s *State) Dispatch(pkt lora.Packet) []Event {
	switch pkt.Type {
	case lora.TypeMsgChunk:
		s.text.Write(pkt.Payload)
		return nil
	case lora.TypeMsgEnd:
		s.text.Write(pkt.Payload)
		raw := s.text.Bytes()
		var ev Event
		if utf8.Valid(raw) {
			ev = Event{Kind: EventMessage, Text: string(raw)}
		} else {
			ev = Event{Kind: EventDecodeError, Text: "binary or decode error"}
		}
		s.text.Reset()
		return []Event{ev}
	case lora.TypeFileStart:
		s.closeFileSilently()
		name, size, ok := parseFileStart(pkt.Payload)
		if !ok {
			internal.LogAttrs(s.log, slog.LevelWarn, "reassemble: malformed FILE_START dropped",
				slog.String("payload", string(pkt.Payload)))
			return nil
		}
		w, err := s.sink.Create(name)
		if err != nil {
			internal.LogAttrs(s.log, slog.LevelError, "reassemble: file create failed",
				slog.String("name", name), slog.String("err", err.Error()))
			s.file = &inFlightFile{name: name, expected: size, failed: true}
			return []Event{{Kind: EventTransferFailed, Name: name}}
		}
		s.file = &inFlightFile{name: name, expected: size, w: w}
		return nil
	case lora.TypeFileChunk:
		if s.file == nil || s.file.failed {
			return nil
		}
		if _, err := s.file.w.Write(pkt.Payload); err != nil {
			internal.LogAttrs(s.log, slog.LevelError, "reassemble: file write failed",
				slog.String("name", s.file.name), slog.String("err", err.Error()))
			name := s.file.name
			s.file.w.Close()
			s.file.failed = true
			return []Event{{Kind: EventTransferFailed, Name: name}}
		}
		s.file.written += len(pkt.Payload)
		return nil
	case lora.TypeFileEnd:
		if s.file == nil {
			return nil
		}
		f := s.file
		s.file = nil
		if f.failed {
			return nil // TransferFailed already emitted at the point of failure.
		}
		if err := f.w.Close(); err != nil {
			internal.LogAttrs(s.log, slog.LevelError, "reassemble: file close failed",
				slog.String("name", f.name), slog.String("err", err.Error()))
			return []Event{{Kind: EventTransferFailed, Name: f.name}}
		}
		return []Event{{Kind: EventFileSaved, Name: f.name}}
	default:
		internal.LogAttrs(s.log, internal.LevelTrace, "reassemble: unknown type tag dropped",
			slog.Int("type", int(pkt.Type)))
		return nil
	}
}

// closeFileSilently discards any partial in-flight file without
// emitting an event, per spec §4.6: "A FILE_START while a file is
// in-flight closes and discards the previous partial file before
// opening the new one."
func (s *State) closeFileSilently() {
	if s.file == nil {
		return
	}
	if s.file.w != nil {
		s.file.w.Close()
	}
	s.file = nil
}

// parseFileStart parses a "<name>|<size>" FILE_START payload.
func parseFileStart(payload []byte) (name string, size int, ok bool) {
	s := string(payload)
	i := strings.LastIndexByte(s, '|')
	if i < 0 {
		return "", 0, false
	}
	name, sizeStr := s[:i], s[i+1:]
	n, err := strconv.Atoi(sizeStr)
	if err != nil || n < 0 || name == "" {
		return "", 0, false
	}
	return name, n, true
}

// String returns a human-readable label for the event, for use by simple
// loggers or the example program.
func (e Event) String() string {
	switch e.Kind {
	case EventMessage:
		return fmt.Sprintf("message: %q", e.Text)
	case EventDecodeError:
		return "decode error: binary or decode error"
	case EventFileSaved:
		return fmt.Sprintf("file saved: %s", e.Name)
	case EventTransferFailed:
		return fmt.Sprintf("file transfer failed: %s", e.Name)
	default:
		return "unknown event"
	}
}
