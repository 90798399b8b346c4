// Command min-example-transport runs two transport-enabled peers over
// an in-memory pipe pair, each queuing two frames and polling in a
// loop, the Go shape of the reference implementation's
// examples/transport.rs.
package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/min-protocol/min-go/pkg/min"
	"github.com/min-protocol/min-go/pkg/minloop"
)

func runPeer(name string, tag byte, txData []byte, hw *minloop.Pipe, in <-chan byte, done <-chan struct{}) {
	ctx := min.New(name, hw, 0, true)

	if err := ctx.QueueFrame(tag, txData, byte(len(txData))); err != nil {
		log.Error("queue failed", "peer", name, "error", err)
	}
	if err := ctx.QueueFrame(tag, txData, byte(len(txData))); err != nil {
		log.Error("queue failed", "peer", name, "error", err)
	}

	for {
		select {
		case <-done:
			return
		case b := <-in:
			buf := []byte{b}
			drain := true
			for drain {
				select {
				case b2 := <-in:
					buf = append(buf, b2)
				default:
					drain = false
				}
			}
			ctx.Poll(buf)
		case <-time.After(100 * time.Millisecond):
			ctx.Poll(nil)
		}

		if _, payload, length, _, err := ctx.GetMsg(); err == nil {
			log.Info("received", "peer", name, "data", fmt.Sprintf("% x", payload[:length]))
		}
	}
}

func main() {
	hw1, in1, hw2, in2 := minloop.NewPipePair("uart1", "uart2", 128)

	done := make(chan struct{})
	go runPeer("min1", 0, []byte{0xaa, 0xaa, 0xaa, 0, 0, 0, 0, 1}, hw1, in2, done)
	go runPeer("min2", 0, []byte{0xbb, 0xbb, 0xbb, 0, 0, 0, 0, 1}, hw2, in1, done)

	time.Sleep(2 * time.Second)
	close(done)
}
