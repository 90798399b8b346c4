// Package min implements the MIN ("Microcontroller Interconnect
// Network") point-to-point, frame-oriented data-link protocol: a
// byte-stuffed, CRC-32-checked frame codec, a resynchronizing receive
// state machine, and an optional sliding-window ARQ transport layer.
//
// The core is single-threaded and cooperative (see Context); it never
// touches a real byte transport, a clock, or a log directly. Callers
// supply an Interface for byte I/O and, for the transport layer, a
// Clock for timing. Concrete adapters live in sibling packages
// (pkg/serialhw, pkg/minloop).
package min

const (
	// MaxPayload is the largest payload a single frame can carry.
	MaxPayload = 255
	// MaxMsgQueue bounds the number of delivered-but-unread messages
	// held by a Context.
	MaxMsgQueue = 128

	// TransportFifoMaxFrames bounds the number of frames a Context may
	// hold queued for transport delivery (in-flight plus waiting).
	TransportFifoMaxFrames = 31
	// TransportMaxWindowSize bounds the number of unacknowledged
	// in-flight frames.
	TransportMaxWindowSize = 16

	// TransportIdleTimeoutMS is how long without receiving anything
	// before the peer is considered disconnected.
	TransportIdleTimeoutMS = 500
	// TransportAckRetransmitTimeoutMS is how often an ACK is reissued
	// while the peer is active.
	TransportAckRetransmitTimeoutMS = 250
	// TransportFrameRetransmitTimeoutMS is how long an unacknowledged
	// frame waits before being retransmitted.
	TransportFrameRetransmitTimeoutMS = 1000
)

// Wire-format special bytes.
const (
	headerByte byte = 0xaa
	stuffByte  byte = 0x55
	eofByte    byte = 0x55
)

// Reserved id_control values, only meaningful with the transport bit set.
const (
	idACK   byte = 0xff
	idRESET byte = 0xfe
)

const transportBit byte = 0x80
const appIDMask byte = 0x3f
