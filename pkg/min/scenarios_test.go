package min

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBasicSendEightBytePayload checks that a non-transport send of an
// 8-byte payload round-trips through a loopback into a delivered
// message with the same bytes.
func TestBasicSendEightBytePayload(t *testing.T) {
	hw := newLoopbackHW(128)
	tx := New("tx", hw, 0, false)

	payload := []byte{0xaa, 0xaa, 0xaa, 0, 0, 0, 0, 1}
	n, err := tx.SendFrame(0, payload, byte(len(payload)))
	require.NoError(t, err)
	assert.Equal(t, byte(len(payload)), n)

	require.Equal(t, eofByte, hw.sent[len(hw.sent)-1])

	rx := New("rx", newLoopbackHW(128), 0, false)
	rx.Poll(hw.sent)

	id, buf, length, _, err := rx.GetMsg()
	require.NoError(t, err)
	assert.Equal(t, byte(0), id)
	assert.Equal(t, byte(8), length)
	assert.Equal(t, payload, buf)
}

// TestReceiveWellFormedFrame checks a single byte-exact well-formed
// frame delivers and reports the expected checksum/length accessors.
func TestReceiveWellFormedFrame(t *testing.T) {
	frame := []byte{
		0xaa, 0xaa, 0xaa, 0x00, 0x08,
		0xaa, 0xaa, 0x55, 0xaa, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x38, 0x83, 0x8f, 0x82, 0x55,
	}
	rx := New("rx", newLoopbackHW(128), 0, false)
	rx.Poll(frame)

	_, _, length, _, err := rx.GetMsg()
	require.NoError(t, err)
	assert.Equal(t, byte(8), length)
	assert.Equal(t, uint32(0x38838f82), rx.GetRxFrameChecksum())
	assert.Equal(t, byte(8), rx.GetRxFrameLen())
}

// TestResyncMidFrame checks that a second SOF arriving mid-frame
// abandons the frame in progress and the following frame still
// delivers cleanly.
func TestResyncMidFrame(t *testing.T) {
	stream := []byte{
		0xaa, 0xaa, 0xaa, 0x00, 0x08, // abandoned frame, only a header+id+len
		0xaa, 0xaa, 0xaa, 0x00, 0x08,
		0xaa, 0xaa, 0x55, 0xaa, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x38, 0x83, 0x8f, 0x82, 0x55,
	}
	rx := New("rx", newLoopbackHW(128), 0, false)
	rx.Poll(stream)

	_, _, _, _, err := rx.GetMsg()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x38838f82), rx.GetRxFrameChecksum())
}

// TestLengthFieldCorruption checks that with a truncated length field
// the stuff byte is still discarded and the bytes after it are read as
// the checksum, and that no message is delivered.
func TestLengthFieldCorruption(t *testing.T) {
	frame := []byte{
		0xaa, 0xaa, 0xaa, 0x00, 0x02,
		0xaa, 0xaa, 0x55, 0xaa, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x38, 0x83, 0x8f, 0x82, 0x55,
	}
	rx := New("rx", newLoopbackHW(128), 0, false)
	rx.Poll(frame)

	_, _, _, _, err := rx.GetMsg()
	assert.ErrorIs(t, err, ErrNoMsg)
	assert.Equal(t, uint32(0xaa000000), rx.GetRxFrameChecksum())
}

// TestCRCCorruption checks that a corrupted checksum byte drops the
// frame without delivery.
func TestCRCCorruption(t *testing.T) {
	frame := []byte{
		0xaa, 0xaa, 0xaa, 0x00, 0x08,
		0xaa, 0xaa, 0x55, 0xaa, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x83, 0x8f, 0x82, 0x55,
	}
	rx := New("rx", newLoopbackHW(128), 0, false)
	rx.Poll(frame)

	_, _, _, _, err := rx.GetMsg()
	assert.ErrorIs(t, err, ErrNoMsg)
	assert.Equal(t, uint32(0x00838f82), rx.GetRxFrameChecksum())
}

// TestSpuriousAck checks that an ACK referencing a seq outside the
// (empty) send window is counted as spurious rather than accepted.
func TestSpuriousAck(t *testing.T) {
	ack := []byte{0xaa, 0xaa, 0xaa, 0xff, 0x02, 0x01, 0x02, 0x0b, 0xd0, 0x5d, 0xee, 0x55}
	rx := New("rx", newLoopbackHW(128), 0, true)
	rx.Poll(ack)

	assert.Equal(t, uint32(1), rx.GetSpuriousAckCnt())
}

// TestSequenceMismatch checks that a transport frame with a seq ahead
// of the freshly-constructed context's rn is counted as a
// sequence-mismatch drop.
func TestSequenceMismatch(t *testing.T) {
	frame := []byte{
		0xaa, 0xaa, 0xaa,
		0x80,
		0x01, // seq
		0x08,
		0xbb, 0xbb, 0xbb, 0x00, 0x00, 0x00, 0x00, 0x01,
		0xe6, 0x98, 0x4f, 0xde,
		0x55,
	}
	rx := New("rx", newLoopbackHW(128), 0, true)
	rx.Poll(frame)

	assert.Equal(t, uint32(1), rx.GetDropCnt())
}

// TestLocalReset checks that ResetTransport(true) emits a RESET frame
// that, looped back, increments the peer's reset count.
func TestLocalReset(t *testing.T) {
	hw := newLoopbackHW(128)
	ctx := New("ctx", hw, 0, true)

	require.NoError(t, ctx.ResetTransport(true))

	rx := New("rx", newLoopbackHW(128), 0, true)
	rx.Poll(hw.sent)

	assert.Equal(t, uint32(1), rx.GetResetCnt())
}
