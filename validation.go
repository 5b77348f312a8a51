package lora

import "encoding/binary"

// Encode writes packet p to dst in the on-air wire format described in
// spec §6 and returns the full frame. dst is reused if it has enough
// capacity, mirroring the append-style encoders in the teacher stack's
// frame types; pass nil to let Encode allocate.
//
// Encode returns an *OversizedPayloadError if p.Payload exceeds
// profile.PayloadMax; callers must fragment via a Sender instead of
// retrying.
func Encode(dst []byte, p Packet, profile Profile) ([]byte, error) {
	if len(p.Payload) > profile.PayloadMax {
		return dst, &OversizedPayloadError{Len: len(p.Payload), Limit: profile.PayloadMax}
	}
	total := HeaderSize + len(p.Payload) + CRCSize
	if cap(dst) < total {
		dst = make([]byte, total)
	} else {
		dst = dst[:total]
	}
	dst[0] = p.Dest
	dst[1] = p.Src
	dst[2] = p.Seq
	dst[3] = uint8(p.Type)
	copy(dst[HeaderSize:], p.Payload)

	crc := ChecksumCCITT(dst[:HeaderSize+len(p.Payload)])
	binary.BigEndian.PutUint16(dst[HeaderSize+len(p.Payload):], crc)
	return dst, nil
}

// Decode parses a wire frame into a Packet. It returns ok=false,
// silently, whenever the frame is too short, its trailing CRC does
// not match the computed CRC over the header and payload, or its type
// tag is not one of the defined Type values — corrupt, truncated or
// unknown input never surfaces as an error, per spec §4.1 and §7.
//
// The returned Packet's Payload aliases buf; callers that retain the
// packet past the lifetime of buf must copy it.
func Decode(buf []byte) (p Packet, ok bool) {
	if len(buf) < MinFrameSize {
		return Packet{}, false
	}
	bodyLen := len(buf) - CRCSize
	wantCRC := binary.BigEndian.Uint16(buf[bodyLen:])
	gotCRC := ChecksumCCITT(buf[:bodyLen])
	if gotCRC != wantCRC {
		return Packet{}, false
	}
	if t := Type(buf[3]); t != TypeACK && !t.IsData() {
		return Packet{}, false
	}
	p = Packet{
		Dest:    buf[0],
		Src:     buf[1],
		Seq:     buf[2],
		Type:    Type(buf[3]),
		Payload: buf[HeaderSize:bodyLen],
	}
	return p, true
}
