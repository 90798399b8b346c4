package min

// rxByte feeds one byte from the wire into the receive state machine.
// Receipt of a triple-headerByte in any state unconditionally
// abandons whatever frame is in progress and starts a new one; this
// is the resync guarantee the byte-stuffing scheme provides.
func (c *Context) rxByte(b byte) {
	if c.rxHeaderBytesSeen == 2 {
		c.rxHeaderBytesSeen = 0
		switch b {
		case headerByte:
			c.rxState = rxReceivingIDControl
			return
		case stuffByte:
			// Stuff byte inserted by the sender; discard and keep going.
			return
		default:
			// Framing violation: give up on this frame and resync. The
			// byte that broke framing still falls through the switch
			// below, where rxSearchingForSof ignores it.
			c.rxState = rxSearchingForSof
		}
	}

	if b == headerByte {
		c.rxHeaderBytesSeen++
	} else {
		c.rxHeaderBytesSeen = 0
	}

	switch c.rxState {
	case rxSearchingForSof:
		// Nothing to do; waiting for the header-seen logic above to fire.

	case rxReceivingIDControl:
		c.rxFrameIDControl = b
		c.rxFrameSeq = 0
		c.rxFramePayloadLen = 0
		c.rxChecksum = newWireCRC32()
		c.rxChecksum.Step(b)
		if b&transportBit == transportBit {
			if c.tMin {
				c.rxState = rxReceivingSeq
			} else {
				c.rxState = rxSearchingForSof
			}
		} else {
			c.rxState = rxReceivingLength
		}

	case rxReceivingSeq:
		c.rxFrameSeq = b
		c.rxChecksum.Step(b)
		c.rxState = rxReceivingLength

	case rxReceivingLength:
		c.rxFrameLength = b
		c.rxControl = b
		c.rxChecksum.Step(b)
		switch {
		case b == 0:
			c.rxState = rxReceivingChecksum3
		case b > MaxPayload:
			c.rxState = rxSearchingForSof
		default:
			c.rxState = rxReceivingPayload
		}

	case rxReceivingPayload:
		c.rxFramePayloadBuf[c.rxFramePayloadLen] = b
		c.rxFramePayloadLen++
		c.rxChecksum.Step(b)
		c.rxFrameLength--
		if c.rxFrameLength == 0 {
			c.rxState = rxReceivingChecksum3
		}

	case rxReceivingChecksum3:
		c.rxFrameChecksum = uint32(b) << 24
		c.rxState = rxReceivingChecksum2

	case rxReceivingChecksum2:
		c.rxFrameChecksum |= uint32(b) << 16
		c.rxState = rxReceivingChecksum1

	case rxReceivingChecksum1:
		c.rxFrameChecksum |= uint32(b) << 8
		c.rxState = rxReceivingChecksum0

	case rxReceivingChecksum0:
		c.rxFrameChecksum |= uint32(b)
		if c.rxChecksum.Finalize() != c.rxFrameChecksum {
			c.rxState = rxSearchingForSof
		} else {
			c.rxState = rxReceivingEOF
		}

	case rxReceivingEOF:
		if b == eofByte {
			c.validFrameReceived()
		}
		c.rxState = rxSearchingForSof
	}
}

// validFrameReceived dispatches a frame that has passed CRC and EOF
// checks: straight to the delivery queue when transport is disabled,
// or through ACK/RESET/sequencing handling when it is enabled.
func (c *Context) validFrameReceived() {
	payload := c.rxFramePayloadBuf[:c.rxFramePayloadLen]

	if !c.tMin {
		c.enqueueMessage(c.rxFrameIDControl&appIDMask, payload, c.rxControl, c.port)
		return
	}

	now := c.clk.NowMillis()
	c.transport.lastReceivedAnythingMS = now

	switch c.rxFrameIDControl {
	case idACK:
		c.handleAck(now, payload)
	case idRESET:
		c.handleReset(now)
	default:
		if c.rxFrameIDControl&transportBit == transportBit {
			c.handleTransportFrame(now, payload)
		} else {
			c.enqueueMessage(c.rxFrameIDControl&appIDMask, payload, c.rxControl, c.port)
		}
	}
}

// Poll runs the receive state machine over buf, then (if transport is
// enabled) runs one tick of ARQ housekeeping.
func (c *Context) Poll(buf []byte) {
	for _, b := range buf {
		c.rxByte(b)
	}
	if c.tMin {
		c.pollTransport(c.clk.NowMillis())
	}
}
