package lora

import (
	"errors"
	"fmt"
)

var (
	errNonPositiveProfile     = errors.New("lora: profile sizes must be positive")
	errChunkExceedsPayloadMax = errors.New("lora: chunk size exceeds payload max")
)

// OversizedPayloadError is returned by Encode when a packet's payload
// exceeds the profile's PayloadMax. Callers must fragment instead of
// retrying Encode with the same packet.
type OversizedPayloadError struct {
	Len   int
	Limit int
}

func (e *OversizedPayloadError) Error() string {
	return fmt.Sprintf("lora: oversized payload: %d bytes exceeds limit %d", e.Len, e.Limit)
}
