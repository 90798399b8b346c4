package minloop

import (
	"testing"

	"github.com/min-protocol/min-go/pkg/min"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoopbackDeliversSentFrame(t *testing.T) {
	hw := NewLoopback(128)
	tx := min.New("tx", hw, 0, false)

	payload := []byte{0xaa, 0xaa, 0xaa, 0, 0, 0, 0, 1}
	_, err := tx.SendFrame(0, payload, byte(len(payload)))
	require.NoError(t, err)

	rx := min.New("rx", NewLoopback(128), 0, false)
	rx.Poll(hw.Drain())

	_, buf, length, _, err := rx.GetMsg()
	require.NoError(t, err)
	assert.Equal(t, byte(8), length)
	assert.Equal(t, payload, buf)
}

func TestPipePairDeliversAcrossGoroutines(t *testing.T) {
	a, aOut, b, bOut := NewPipePair("a", "b", 128)
	_ = bOut

	tx := min.New("tx", a, 0, false)
	rx := min.New("rx", b, 0, false)

	payload := []byte{1, 2, 3, 4}
	done := make(chan error, 1)
	go func() {
		_, err := tx.SendFrame(5, payload, byte(len(payload)))
		close(aOut)
		done <- err
	}()
	require.NoError(t, <-done)

	var stream []byte
	for by := range aOut {
		stream = append(stream, by)
	}
	rx.Poll(stream)

	id, buf, length, _, err := rx.GetMsg()
	require.NoError(t, err)
	assert.Equal(t, byte(5), id)
	assert.Equal(t, byte(4), length)
	assert.Equal(t, payload, buf)
}
