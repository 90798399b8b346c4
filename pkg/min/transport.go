package min

// transportFrame is a frame held in the transport FIFO, from
// QueueFrame until an ACK covers its seq or a reset clears it. seq is
// meaningless (and unset) until the frame first moves into the send
// window; see transportState.frames ordering.
type transportFrame struct {
	minID          byte
	seq            byte
	payload        [MaxPayload]byte
	payloadLen     byte
	lastSentTimeMS uint32
}

// transportState is the sliding-window ARQ state for one Context.
// frames is ordered with the oldest unacknowledged frame at the
// front; indices [0, sn_max-sn_min) are in flight, the rest are
// waiting for a window slot.
type transportState struct {
	frames []transportFrame

	snMin byte
	snMax byte
	rn    byte

	spuriousAcks           uint32
	sequenceMismatchDrop   uint32
	resetsReceived         uint32
	lastSentAckTimeMS      uint32
	lastReceivedAnythingMS uint32
	lastReceivedFrameMS    uint32
}

func newTransportState(now uint32) transportState {
	return transportState{
		lastSentAckTimeMS:      now,
		lastReceivedAnythingMS: now,
		lastReceivedFrameMS:    0,
	}
}

// seqSub performs modular-256 wrapping subtraction of sequence numbers.
func seqSub(a, b byte) byte { return a - b }

// msSub performs wrapping subtraction of millisecond timestamps.
func msSub(a, b uint32) uint32 { return a - b }

// TransportFifoDepth returns the number of frames currently queued in
// the transport FIFO, including those already in flight.
func (c *Context) TransportFifoDepth() int { return len(c.transport.frames) }

// TransportWindowSize returns the number of frames currently in
// flight in the send window.
func (c *Context) TransportWindowSize() byte {
	return seqSub(c.transport.snMax, c.transport.snMin)
}

// QueueFrame appends a new frame to the transport FIFO for later
// delivery by Poll. The frame's sequence number is assigned only when
// it first moves into the send window, not here. Returns
// ErrNoTransport if the Context was built with transport disabled,
// or ErrFifoFull if TransportFifoMaxFrames are already queued.
func (c *Context) QueueFrame(id byte, payload []byte, length byte) error {
	if !c.tMin {
		return ErrNoTransport
	}
	if len(c.transport.frames) >= TransportFifoMaxFrames {
		return ErrFifoFull
	}
	var f transportFrame
	f.minID = id & appIDMask
	f.payloadLen = length
	copy(f.payload[:], payload[:length])
	c.transport.frames = append(c.transport.frames, f)
	return nil
}

// ResetTransport clears the transport FIFO and sequence state. If
// informPeer is true, a RESET control frame is sent on the wire
// first. Returns ErrNoTransport if transport is disabled.
func (c *Context) ResetTransport(informPeer bool) error {
	if !c.tMin {
		return ErrNoTransport
	}
	if informPeer {
		onWireBytes(c.hw, c.port, idRESET, 0, nil, 0)
	}
	c.localResetTransport(c.clk.NowMillis())
	return nil
}

// localResetTransport performs the local half of a reset: clearing
// the FIFO and sequence counters and re-arming the timers. Shared by
// ResetTransport and by handling a received RESET frame.
func (c *Context) localResetTransport(now uint32) {
	c.transport.frames = c.transport.frames[:0]
	c.transport.snMin = 0
	c.transport.snMax = 0
	c.transport.rn = 0
	c.transport.lastReceivedAnythingMS = now
	c.transport.lastSentAckTimeMS = now
	c.transport.lastReceivedFrameMS = 0
}

// handleReset processes a received RESET control frame.
func (c *Context) handleReset(now uint32) {
	c.transport.resetsReceived++
	c.localResetTransport(now)
}

// handleAck processes a received ACK control frame. If a payload is
// present, payload[0] minus the ACK's seq (mod 256) is the number of
// frames the peer asks to have retransmitted.
func (c *Context) handleAck(now uint32, payload []byte) {
	rxSeq := c.rxFrameSeq
	numAcked := seqSub(rxSeq, c.transport.snMin)
	numInWindow := seqSub(c.transport.snMax, c.transport.snMin)

	if numAcked <= numInWindow {
		c.transport.snMin = rxSeq
		for i := byte(0); i < numAcked; i++ {
			c.transport.frames = c.transport.frames[1:]
		}
	} else {
		c.transport.spuriousAcks++
	}

	if len(payload) == 0 {
		return
	}
	numNacked := seqSub(payload[0], rxSeq)
	inWindow := seqSub(c.transport.snMax, c.transport.snMin)
	if numNacked > inWindow {
		numNacked = inWindow
	}
	for i := byte(0); i < numNacked; i++ {
		c.retransmitFrameAt(now, i)
	}
}

// handleTransportFrame processes a received application frame that
// carries the transport bit (not ACK or RESET).
func (c *Context) handleTransportFrame(now uint32, payload []byte) {
	c.transport.lastReceivedFrameMS = now
	if c.rxFrameSeq == c.transport.rn {
		c.transport.rn++
		c.sendAck(now)
		c.enqueueMessage(c.rxFrameIDControl&appIDMask, payload, c.rxControl, c.port)
	} else {
		c.transport.sequenceMismatchDrop++
	}
}

// sendAck emits an ACK frame carrying the current rn both as the
// frame's seq and as its single payload byte; encoding the NACK count
// this way makes it always evaluate to zero in handleAck, matching
// the reference implementation's behavior (see SPEC_FULL.md §9).
func (c *Context) sendAck(now uint32) {
	payload := [1]byte{c.transport.rn}
	onWireBytes(c.hw, c.port, idACK, c.transport.rn, payload[:], 1)
	c.transport.lastSentAckTimeMS = now
}

// retransmitFrameAt resends the in-window frame at index idx with its
// already-assigned seq, updating its last-sent timestamp.
func (c *Context) retransmitFrameAt(now uint32, idx byte) {
	if int(idx) >= len(c.transport.frames) {
		return
	}
	f := &c.transport.frames[idx]
	f.lastSentTimeMS = now
	onWireBytes(c.hw, c.port, f.minID|transportBit, f.seq, f.payload[:f.payloadLen], f.payloadLen)
}

// pollTransport runs one tick of ARQ housekeeping: at most one new
// send or one retransmit, plus a periodic ACK if the peer is active.
func (c *Context) pollTransport(now uint32) {
	remoteConnected := msSub(now, c.transport.lastReceivedAnythingMS) < TransportIdleTimeoutMS
	remoteActive := msSub(now, c.transport.lastReceivedFrameMS) < TransportIdleTimeoutMS

	windowSize := seqSub(c.transport.snMax, c.transport.snMin)
	nFrames := byte(len(c.transport.frames))

	switch {
	case windowSize < TransportMaxWindowSize && nFrames > windowSize:
		f := &c.transport.frames[windowSize]
		f.seq = c.transport.snMax
		f.lastSentTimeMS = now
		onWireBytes(c.hw, c.port, f.minID|transportBit, f.seq, f.payload[:f.payloadLen], f.payloadLen)
		c.transport.snMax++

	case windowSize > 0 && remoteConnected:
		oldest := byte(0)
		oldestAge := msSub(now, c.transport.frames[0].lastSentTimeMS)
		for i := byte(1); i < windowSize; i++ {
			age := msSub(now, c.transport.frames[i].lastSentTimeMS)
			if age > oldestAge {
				oldest = i
				oldestAge = age
			}
		}
		if oldestAge >= TransportFrameRetransmitTimeoutMS {
			c.retransmitFrameAt(now, oldest)
		}
	}

	if msSub(now, c.transport.lastSentAckTimeMS) > TransportAckRetransmitTimeoutMS && remoteActive {
		c.sendAck(now)
	}
}
