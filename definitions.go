// Package lora implements the link-layer packet format, CRC, and
// per-profile size limits for a two-radio LoRa ARQ stack. Sub-packages
// arq, reorder, reassemble, radio and node build the sender, receiver,
// reassembly and wiring layers on top of the types defined here.
package lora

// Type is the packet type tag carried in the wire header. The set is
// closed: a decoded packet always holds one of the values below.
type Type uint8

const (
	_ Type = iota // zero value is not a valid on-air type
	// TypeACK acknowledges the sender sequence number carried in the
	// packet's Seq field. The payload is always empty.
	TypeACK
	// TypeMsgChunk carries an intermediate slice of a fragmented text
	// message.
	TypeMsgChunk
	// TypeFileStart carries "<filename>|<size-in-decimal>" in ASCII and
	// opens a new in-flight file transfer.
	TypeFileStart
	// TypeFileChunk carries a slice of file content.
	TypeFileChunk
	// TypeFileEnd has an empty payload and closes the in-flight file.
	TypeFileEnd
	// TypeMsgEnd carries the final slice of a fragmented text message.
	TypeMsgEnd
)

// String returns a short human-readable name for the type tag, used in
// log attributes.
func (t Type) String() string {
	switch t {
	case TypeACK:
		return "ACK"
	case TypeMsgChunk:
		return "MSG_CHUNK"
	case TypeFileStart:
		return "FILE_START"
	case TypeFileChunk:
		return "FILE_CHUNK"
	case TypeFileEnd:
		return "FILE_END"
	case TypeMsgEnd:
		return "MSG_END"
	default:
		return "INVALID"
	}
}

// IsData reports whether t is a data type tag requiring an ACK and
// reorder-buffer processing on receipt, as opposed to TypeACK itself.
func (t Type) IsData() bool {
	return t >= TypeMsgChunk && t <= TypeMsgEnd
}

// Broadcast is the reserved destination address accepted by every node
// in addition to its own configured address.
const Broadcast uint8 = 0xFF

// Wire layout constants, per spec §6.
const (
	HeaderSize = 4 // dest, src, seq, type
	CRCSize    = 2
	// MinFrameSize is the smallest legal on-air frame: header, no
	// payload, trailing CRC.
	MinFrameSize = HeaderSize + CRCSize
)

// Packet is a single unit of wire data. Seq wraps modulo 256 per spec
// §3; callers allocate it via a Sender, never by hand, except in
// tests.
type Packet struct {
	Dest    uint8
	Src     uint8
	Seq     uint8
	Type    Type
	Payload []byte
}

// Profile bounds the payload sizes this node's link will carry, per
// spec §6. The two named profiles ("short-range": 200/180, and
// "long-range": 50 for both) are constructed with ShortRangeProfile
// and LongRangeProfile; callers may build a custom Profile as long as
// PayloadMax is at least as large as both chunk maxima.
type Profile struct {
	MsgChunkMax  int
	FileChunkMax int
	PayloadMax   int
}

// ShortRangeProfile returns the spec's default high-SNR profile.
func ShortRangeProfile() Profile {
	return Profile{MsgChunkMax: 200, FileChunkMax: 180, PayloadMax: 200}
}

// LongRangeProfile returns the spec's alternative low-SNR profile for
// long-range / low-spreading-factor links.
func LongRangeProfile() Profile {
	return Profile{MsgChunkMax: 50, FileChunkMax: 50, PayloadMax: 50}
}

// Validate reports a configuration error if the profile's chunk sizes
// cannot fit inside its own PayloadMax.
func (p Profile) Validate() error {
	if p.MsgChunkMax <= 0 || p.FileChunkMax <= 0 || p.PayloadMax <= 0 {
		return errNonPositiveProfile
	}
	if p.MsgChunkMax > p.PayloadMax || p.FileChunkMax > p.PayloadMax {
		return errChunkExceedsPayloadMax
	}
	return nil
}
