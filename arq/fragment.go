package arq

import (
	"fmt"
	"log/slog"

	"github.com/Saikat-dot678/lorastack"
	"github.com/Saikat-dot678/lorastack/internal"
)

// EnqueueMessage fragments text into MSG_CHUNK packets terminated by a
// single MSG_END packet, per spec §4.2, and appends them to the TX
// queue with freshly allocated sequence numbers. A message shorter
// than one chunk produces exactly one MSG_END packet; an empty message
// produces one MSG_END packet with an empty payload.
func (s *Sender) EnqueueMessage(text string) {
	data := []byte(text)
	max := s.cfg.Profile.MsgChunkMax
	n := len(data)
	nChunks := (n + max - 1) / max
	if nChunks == 0 {
		nChunks = 1 // empty message still produces a lone MSG_END.
	}
	for i := 0; i < nChunks; i++ {
		start := i * max
		end := start + max
		if end > n {
			end = n
		}
		typ := lora.TypeMsgChunk
		if i == nChunks-1 {
			typ = lora.TypeMsgEnd
		}
		seq := s.allocate(typ, data[start:end])
		internal.LogAttrs(s.log, slog.LevelDebug, "arq: enqueued message chunk",
			slog.Int("seq", int(seq)), slog.String("type", typ.String()), slog.Int("len", end-start))
	}
}

// EnqueueFile queues a FILE_START packet carrying "<name>|<size>",
// followed by one FILE_CHUNK packet per file-chunk-limit slice, then a
// FILE_END packet with an empty payload, per spec §4.2.
func (s *Sender) EnqueueFile(name string, data []byte) {
	meta := fmt.Sprintf("%s|%d", name, len(data))
	startSeq := s.allocate(lora.TypeFileStart, []byte(meta))
	internal.LogAttrs(s.log, slog.LevelDebug, "arq: enqueued file start",
		slog.Int("seq", int(startSeq)), slog.String("name", name), slog.Int("size", len(data)))

	max := s.cfg.Profile.FileChunkMax
	for start := 0; start < len(data); start += max {
		end := start + max
		if end > len(data) {
			end = len(data)
		}
		seq := s.allocate(lora.TypeFileChunk, data[start:end])
		internal.LogAttrs(s.log, slog.LevelDebug, "arq: enqueued file chunk",
			slog.Int("seq", int(seq)), slog.Int("len", end-start))
	}

	endSeq := s.allocate(lora.TypeFileEnd, nil)
	internal.LogAttrs(s.log, slog.LevelDebug, "arq: enqueued file end", slog.Int("seq", int(endSeq)))
}
