// Command min-example-multithread sends one non-transport frame from
// one goroutine to another over a channel-backed pipe, the Go shape of
// the reference implementation's examples/multithread.rs: a worked
// demonstration that a Context needs no internal locking when each
// goroutine owns a distinct peer.
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

	hw1, out1, hw2, _ := minloop.NewPipePair("uart1", "uart2", 128)

	done := make(chan struct{})

	go func() {
		defer close(out1)
		min1 := min.New("min1", hw1, 0, false)
		log.Info("sending frame", "peer", "min1", "data", fmt.Sprintf("% x", txData))
		sent, err := min1.SendFrame(id, txData, byte(len(txData)))
		if err != nil {
			log.Fatal("send failed", "peer", "min1", "error", err)
		}
		log.Info("sent", "peer", "min1", "bytes", sent)
	}()

	go func() {
		defer close(done)
		min2 := min.New("min2", hw2, 0, false)
		for b := range out1 {
			min2.Poll([]byte{b})
		}
		if _, payload, length, _, err := min2.GetMsg(); err == nil {
			log.Info("received", "peer", "min2", "data", fmt.Sprintf("% x", payload[:length]))
		} else {
			log.Warn("no message received", "peer", "min2", "error", err)
		}
	}()

	<-done
}
