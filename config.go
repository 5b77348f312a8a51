package lora

import (
	"errors"
	"time"
)

// Config bundles the configuration surface named in spec §6. It is
// supplied once by the embedding program; lora itself never parses
// flags or environment variables (see SPEC_FULL.md's ambient-stack
// notes on configuration).
type Config struct {
	MyAddr   uint8
	PeerAddr uint8

	// FreqTX and FreqRX are carried only as metadata describing the two
	// radios' carrier frequencies; this module never drives real radio
	// hardware (spec §1 Non-goals), so these values are informational.
	FreqTX, FreqRX float64

	// WindowSize is the ARQ sliding window in packets. Both peers must
	// agree on it out of band; spec §9 puts mismatch detection out of
	// scope.
	WindowSize uint8

	// TimeoutMS is the retransmission timer.
	TimeoutMS int

	// MaxLBTRetries bounds Listen-Before-Talk attempts per eligible
	// packet before the sender defers to the next tick.
	MaxLBTRetries int

	// RecvTimeout bounds a single blocking radio receive call; spec §4.5
	// names 1s for short-range and 5s for long-range profiles.
	RecvTimeout time.Duration

	Profile Profile
}

// DefaultShortRange returns a Config using the short-range profile and
// the timing constants named in spec §4.5/§6.
func DefaultShortRange(myAddr, peerAddr uint8) Config {
	return Config{
		MyAddr:        myAddr,
		PeerAddr:      peerAddr,
		WindowSize:    8,
		TimeoutMS:     1500,
		MaxLBTRetries: 10,
		RecvTimeout:   1000 * time.Millisecond,
		Profile:       ShortRangeProfile(),
	}
}

// DefaultLongRange returns a Config using the long-range profile and
// the longer receive timeout spec §4.5 calls out for low-SNR links.
func DefaultLongRange(myAddr, peerAddr uint8) Config {
	c := DefaultShortRange(myAddr, peerAddr)
	c.RecvTimeout = 5000 * time.Millisecond
	c.Profile = LongRangeProfile()
	return c
}

var (
	errZeroWindow      = errors.New("lora: window size must be positive")
	errWindowTooLarge  = errors.New("lora: window size must satisfy 2*window <= 256")
	errZeroTimeout     = errors.New("lora: timeout must be positive")
	errZeroLBTRetries  = errors.New("lora: max LBT retries must be positive")
	errSameAddr        = errors.New("lora: my_addr and peer_addr must differ")
	errBroadcastAsAddr = errors.New("lora: address 0xFF is reserved for broadcast")
)

// Validate checks the local invariants spec §6/§9 place on Config. It
// does not and cannot check that the peer agrees on WindowSize — that
// is explicitly out of scope (spec §9, Open Question).
func (c Config) Validate() error {
	if c.WindowSize == 0 {
		return errZeroWindow
	}
	if 2*int(c.WindowSize) > 256 {
		return errWindowTooLarge
	}
	if c.TimeoutMS <= 0 {
		return errZeroTimeout
	}
	if c.MaxLBTRetries <= 0 {
		return errZeroLBTRetries
	}
	if c.MyAddr == c.PeerAddr {
		return errSameAddr
	}
	if c.MyAddr == Broadcast || c.PeerAddr == Broadcast {
		return errBroadcastAsAddr
	}
	return c.Profile.Validate()
}
