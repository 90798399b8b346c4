// Command min-example-notransport sends one non-transport frame
// through an in-memory loopback and prints what comes out the other
// side, the Go shape of the reference implementation's
// examples/no_transport.rs.
package main

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/min-protocol/min-go/pkg/min"
	"github.com/min-protocol/min-go/pkg/minloop"
)

func main() {
	const id = 0
	txData := []byte{0xaa, 0xaa, 0xaa, 0, 0, 0, 0, 1}

	hw := minloop.NewLoopback(128)
	ctx := min.New("min", hw, 0, false)

	log.Info("sending frame", "data", fmt.Sprintf("% x", txData))
	sent, err := ctx.SendFrame(id, txData, byte(len(txData)))
	if err != nil {
		log.Fatal("send failed", "error", err)
	}
	if int(sent) != len(txData) {
		log.Fatal("short send", "want", len(txData), "got", sent)
	}

	ctx.Poll(hw.Drain())

	if ctx.GetRxFrameLen() != 0 {
		log.Info("checksum in frame", "checksum", fmt.Sprintf("0x%x", ctx.GetRxFrameChecksum()))
	}

	if _, payload, length, _, err := ctx.GetMsg(); err == nil {
		log.Info("received message", "data", fmt.Sprintf("% x", payload[:length]))
	} else {
		log.Warn("no message received", "error", err)
	}
}
