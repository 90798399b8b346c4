package min

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestRoundTripArbitraryPayload checks that any payload of 0..255
// bytes sent with a non-transport id delivers unchanged to a fresh
// peer context.
func TestRoundTripArbitraryPayload(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		id := rapid.Byte().Filter(func(b byte) bool { return b&0x80 == 0 }).Draw(rt, "id")
		payload := rapid.SliceOfN(rapid.Byte(), 0, 255).Draw(rt, "payload")

		hw := newLoopbackHW(1024)
		tx := New("tx", hw, 0, false)
		_, err := tx.SendFrame(id, payload, byte(len(payload)))
		require.NoError(rt, err)

		rx := New("rx", newLoopbackHW(1024), 0, false)
		rx.Poll(hw.sent)

		gotID, gotPayload, gotLen, _, err := rx.GetMsg()
		require.NoError(rt, err)
		assert.Equal(rt, id&appIDMask, gotID)
		assert.Equal(rt, byte(len(payload)), gotLen)
		assert.Equal(rt, payload, gotPayload)

		_, _, _, _, err = rx.GetMsg()
		assert.ErrorIs(rt, err, ErrNoMsg)
	})
}

// TestNoTripleHeaderInsideFrame checks that the encoded byte stream of
// any valid frame contains no run of three consecutive header bytes
// except the leading start-of-frame.
func TestNoTripleHeaderInsideFrame(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		id := rapid.Byte().Filter(func(b byte) bool { return b&0x80 == 0 }).Draw(rt, "id")
		payload := rapid.SliceOfN(rapid.Byte(), 0, 255).Draw(rt, "payload")

		hw := newLoopbackHW(1024)
		tx := New("tx", hw, 0, false)
		_, err := tx.SendFrame(id, payload, byte(len(payload)))
		require.NoError(rt, err)

		body := hw.sent[3:] // past the leading SOF
		run := 0
		for _, b := range body {
			if b == headerByte {
				run++
				if run >= 3 {
					t.Fatalf("found triple header byte inside frame body: %x", body)
				}
			} else {
				run = 0
			}
		}
	})
}

// TestResyncAfterArbitraryNoise checks that framing noise preceding a
// valid frame never prevents delivery.
func TestResyncAfterArbitraryNoise(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		id := rapid.Byte().Filter(func(b byte) bool { return b&0x80 == 0 }).Draw(rt, "id")
		payload := rapid.SliceOfN(rapid.Byte(), 0, 255).Draw(rt, "payload")
		noise := rapid.SliceOfN(rapid.Byte(), 0, 64).Draw(rt, "noise")

		hw := newLoopbackHW(1024)
		tx := New("tx", hw, 0, false)
		_, err := tx.SendFrame(id, payload, byte(len(payload)))
		require.NoError(rt, err)

		stream := append(append([]byte{}, noise...), hw.sent...)

		rx := New("rx", newLoopbackHW(1024), 0, false)
		rx.Poll(stream)

		gotID, gotPayload, gotLen, _, err := rx.GetMsg()
		require.NoError(rt, err)
		assert.Equal(rt, id&appIDMask, gotID)
		assert.Equal(rt, byte(len(payload)), gotLen)
		assert.Equal(rt, payload, gotPayload)
	})
}

// TestSingleBitFlipDropsFrame checks that flipping any single bit
// anywhere in an otherwise valid frame's body causes it to be dropped
// rather than delivered.
func TestSingleBitFlipDropsFrame(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		id := rapid.Byte().Filter(func(b byte) bool { return b&0x80 == 0 }).Draw(rt, "id")
		payload := rapid.SliceOfN(rapid.Byte(), 1, 16).Draw(rt, "payload")

		hw := newLoopbackHW(1024)
		tx := New("tx", hw, 0, false)
		_, err := tx.SendFrame(id, payload, byte(len(payload)))
		require.NoError(rt, err)

		// The body spans from just after the three SOF bytes to just
		// before the single EOF byte; flip one bit somewhere in there.
		bodyStart, bodyEnd := 3, len(hw.sent)-1
		if bodyEnd <= bodyStart {
			rt.Skip("frame too short to flip a body bit")
		}
		pos := rapid.IntRange(bodyStart, bodyEnd-1).Draw(rt, "pos")
		bit := rapid.IntRange(0, 7).Draw(rt, "bit")

		corrupted := append([]byte{}, hw.sent...)
		corrupted[pos] ^= 1 << uint(bit)

		rx := New("rx", newLoopbackHW(1024), 0, false)
		rx.Poll(corrupted)

		_, _, _, _, err = rx.GetMsg()
		assert.ErrorIs(rt, err, ErrNoMsg)
	})
}

// pump transfers any bytes the source has transmitted into the
// destination's Poll, clearing the source's buffer.
func pump(src *loopbackHW, dst *Context) {
	if len(src.sent) == 0 {
		return
	}
	buf := src.sent
	src.sent = nil
	dst.Poll(buf)
}

// TestTransportDeliversQueuedFramesInOrder checks that frames queued
// on one transport-enabled context arrive at the peer in the order
// they were queued, each exactly once, over a lossless byte pipe.
func TestTransportDeliversQueuedFramesInOrder(t *testing.T) {
	clk := &fakeClock{}
	hwA, hwB := newLoopbackHW(1024), newLoopbackHW(1024)
	a := New("a", hwA, 0, true, WithClock(clk))
	b := New("b", hwB, 0, true, WithClock(clk))

	payloads := [][]byte{{1, 2, 3}, {4, 5}, {}, {6}}
	for i, p := range payloads {
		require.NoError(t, a.QueueFrame(byte(i), p, byte(len(p))))
	}

	// The first tick sends seq 0; after that, each ACK pumped back to a
	// lets a's Poll send the next frame, so exactly one frame is in
	// flight per round.
	a.Poll(nil)
	for _, want := range payloads {
		pump(hwA, b)

		id, got, gotLen, _, err := b.GetMsg()
		require.NoError(t, err)
		assert.Equal(t, byte(len(want)), gotLen)
		assert.Equal(t, want, got)
		_ = id

		pump(hwB, a)
	}

	_, _, _, _, err := b.GetMsg()
	assert.ErrorIs(t, err, ErrNoMsg)
}

// TestAckAdvancesWindow checks that once the peer ACKs seq k, every
// frame with seq < k leaves the sender's FIFO and sn_min becomes k.
func TestAckAdvancesWindow(t *testing.T) {
	clk := &fakeClock{}
	hwA, hwB := newLoopbackHW(1024), newLoopbackHW(1024)
	a := New("a", hwA, 0, true, WithClock(clk))
	b := New("b", hwB, 0, true, WithClock(clk))

	for i := 0; i < 3; i++ {
		require.NoError(t, a.QueueFrame(byte(i), []byte{byte(i)}, 1))
	}

	// Three poll ticks send all three frames into the window (below
	// the 16-frame cap); pump each to b and let b ack immediately.
	for i := 0; i < 3; i++ {
		a.Poll(nil)
		pump(hwA, b)
		pump(hwB, a)
	}

	assert.Equal(t, byte(3), a.transport.snMin)
	assert.Len(t, a.transport.frames, 0)
}

// TestRetransmitAfterTimeout checks that a frame whose last send time
// is older than the retransmit timeout goes out again on the next
// poll, provided the peer has been heard from recently.
func TestRetransmitAfterTimeout(t *testing.T) {
	clk := &fakeClock{}
	hwA := newLoopbackHW(1024)
	a := New("a", hwA, 0, true, WithClock(clk))

	require.NoError(t, a.QueueFrame(1, []byte{9, 9}, 2))

	a.Poll(nil) // sends seq 0
	require.NotEmpty(t, hwA.sent)
	hwA.sent = nil

	// Cross the retransmit threshold, then simulate the peer having
	// been heard from just now so remote_connected still holds.
	clk.Advance(TransportFrameRetransmitTimeoutMS)
	a.transport.lastReceivedAnythingMS = clk.ms

	a.Poll(nil)
	assert.NotEmpty(t, hwA.sent, "expected a retransmit after the timeout elapsed")
}
