package min

// rxState enumerates the receive state machine's states. Initial
// state is rxSearchingForSof.
type rxState int

const (
	rxSearchingForSof rxState = iota
	rxReceivingIDControl
	rxReceivingSeq
	rxReceivingLength
	rxReceivingPayload
	rxReceivingChecksum3
	rxReceivingChecksum2
	rxReceivingChecksum1
	rxReceivingChecksum0
	rxReceivingEOF
)

// message is a frame delivered to the application: either straight
// from the wire (transport disabled) or after transport-layer
// sequencing (transport enabled).
type message struct {
	id   byte
	len  byte
	buf  [MaxPayload]byte
	port uint8
}

// Context is a single MIN protocol endpoint. It is the facade that
// ties the CRC engine, frame codec, receive state machine and
// (optionally) the sliding-window transport together, and is the only
// type applications construct directly.
//
// A Context is not internally synchronized: it is a mutable state
// machine meant to be driven by a single goroutine calling SendFrame,
// QueueFrame, ResetTransport, Poll and GetMsg. Callers that need
// concurrent access must serialize it themselves (see pkg/bridge).
type Context struct {
	name string
	hw   Interface
	port uint8
	tMin bool
	clk  Clock

	// Receive state machine.
	rxHeaderBytesSeen byte
	rxState           rxState
	rxFrameIDControl  byte
	rxFramePayloadLen byte // bytes received so far into rxFramePayloadBuf
	rxChecksum        crc32Context
	rxFrameSeq        byte
	rxFrameLength     byte // countdown of payload bytes remaining
	rxControl         byte // length as received, kept for delivery
	rxFramePayloadBuf [MaxPayload]byte
	rxFrameChecksum   uint32

	// Delivery queue, drained LIFO (see SPEC_FULL.md §9).
	queue []message

	// Transport layer (zero value when tMin is false).
	transport transportState
}

// Option configures a Context at construction time.
type Option func(*Context)

// WithClock overrides the Clock used for transport timing. Defaults
// to NewSystemClock(). Only meaningful when transport is enabled.
func WithClock(c Clock) Option {
	return func(ctx *Context) { ctx.clk = c }
}

// New constructs a Context.
//
//   - name is a debug tag, not used for protocol purposes.
//   - hw is the hardware interface the context drives all byte I/O
//     through.
//   - port is an opaque tag forwarded to every TxByte call and
//     attached to every delivered message.
//   - transportEnabled selects whether the sliding-window ARQ layer
//     (QueueFrame, ResetTransport, ACK/RESET handling) is active.
func New(name string, hw Interface, port uint8, transportEnabled bool, opts ...Option) *Context {
	ctx := &Context{
		name: name,
		hw:   hw,
		port: port,
		tMin: transportEnabled,
		clk:  NewSystemClock(),

		rxState:    rxSearchingForSof,
		rxChecksum: newWireCRC32(),
	}
	for _, opt := range opts {
		opt(ctx)
	}
	if transportEnabled {
		ctx.transport = newTransportState(ctx.clk.NowMillis())
	}
	return ctx
}

// Name returns the context's debug tag.
func (c *Context) Name() string { return c.name }

// TransportEnabled reports whether this Context was constructed with
// the sliding-window transport layer active.
func (c *Context) TransportEnabled() bool { return c.tMin }

// SendFrame sends an application-level MIN frame immediately,
// unconditionally (i.e. not through the transport FIFO). id is
// masked to its low 6 bits and sent with no transport bit and seq 0.
// Returns the number of payload bytes sent, or a *NoEnoughTxSpaceError
// if the hardware interface doesn't currently have frameTxSpace(len)
// bytes of room.
func (c *Context) SendFrame(id byte, payload []byte, length byte) (byte, error) {
	available := c.hw.TxSpace()
	needed := frameTxSpace(length)
	if needed > available {
		return 0, &NoEnoughTxSpaceError{Deficit: needed - available}
	}
	onWireBytes(c.hw, c.port, id&appIDMask, 0, payload, length)
	return length, nil
}

// GetRxChecksum returns the checksum accumulated so far for the frame
// currently being received (before the final wire checksum compare).
func (c *Context) GetRxChecksum() uint32 { return c.rxChecksum.Finalize() }

// GetRxFrameChecksum returns the checksum as received on the wire for
// the most recently processed frame, whether or not it was valid.
func (c *Context) GetRxFrameChecksum() uint32 { return c.rxFrameChecksum }

// GetRxFrameLen returns the length field of the most recently
// processed frame, whether or not it was valid.
func (c *Context) GetRxFrameLen() byte { return c.rxControl }

// GetResetCnt returns the number of RESET frames received (transport only).
func (c *Context) GetResetCnt() uint32 { return c.transport.resetsReceived }

// GetSpuriousAckCnt returns the number of ACKs dropped as spurious (transport only).
func (c *Context) GetSpuriousAckCnt() uint32 { return c.transport.spuriousAcks }

// GetDropCnt returns the number of frames dropped for sequence mismatch (transport only).
func (c *Context) GetDropCnt() uint32 { return c.transport.sequenceMismatchDrop }

// GetMsg removes and returns the most recently delivered message
// (LIFO), or ErrNoMsg if the queue is empty. See SPEC_FULL.md §9 for
// why draining is LIFO rather than FIFO.
func (c *Context) GetMsg() (id byte, payload []byte, length byte, port uint8, err error) {
	if len(c.queue) == 0 {
		return 0, nil, 0, 0, ErrNoMsg
	}
	last := c.queue[len(c.queue)-1]
	c.queue = c.queue[:len(c.queue)-1]
	return last.id, last.buf[:last.len], last.len, last.port, nil
}

// enqueueMessage appends a delivered message to the queue, evicting
// the oldest parked message if the queue is already at MaxMsgQueue.
func (c *Context) enqueueMessage(id byte, payload []byte, length byte, port uint8) {
	if len(c.queue) >= MaxMsgQueue {
		c.queue = c.queue[1:]
	}
	var m message
	m.id = id
	m.len = length
	m.port = port
	copy(m.buf[:], payload[:length])
	c.queue = append(c.queue, m)
}
