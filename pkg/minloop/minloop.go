// Package minloop provides in-memory min.Interface implementations for
// testing and for demo programs that want two peers talking without a
// real byte-stream transport underneath them.
package minloop

import "sync"

// Pipe is a byte channel min.Interface implementation that feeds every
// transmitted byte to whatever is reading the Out channel, the same
// shape as the channel-pair Uart used to wire two threads together in
// a producer/consumer demo.
type Pipe struct {
	name    string
	txSpace uint16
	out     chan byte

	mu        sync.Mutex
	startCnt  int
	finishCnt int
}

// NewPipe builds a Pipe advertising txSpace bytes of headroom and
// writing transmitted bytes to out.
func NewPipe(name string, txSpace uint16, out chan byte) *Pipe {
	return &Pipe{name: name, txSpace: txSpace, out: out}
}

func (p *Pipe) Name() string { return p.name }

func (p *Pipe) TxStart() {
	p.mu.Lock()
	p.startCnt++
	p.mu.Unlock()
}

func (p *Pipe) TxFinished() {
	p.mu.Lock()
	p.finishCnt++
	p.mu.Unlock()
}

func (p *Pipe) TxSpace() uint16 { return p.txSpace }

func (p *Pipe) TxByte(_ uint8, b byte) {
	p.out <- b
}

// NewPipePair returns two Pipes, each with its own outbound byte
// channel a caller can range over. The Pipes are not connected to each
// other; the caller feeds one Pipe's channel into the other peer's Poll.
func NewPipePair(nameA, nameB string, txSpace uint16) (a *Pipe, aOut chan byte, b *Pipe, bOut chan byte) {
	aOut = make(chan byte, 4096)
	bOut = make(chan byte, 4096)
	a = NewPipe(nameA, txSpace, aOut)
	b = NewPipe(nameB, txSpace, bOut)
	return a, aOut, b, bOut
}

// Loopback is a min.Interface that immediately appends every
// transmitted byte to its own Received buffer, for single-goroutine
// send-then-poll-self tests and demos. TxStart empties Received, so it
// only ever holds the bytes of the most recent frame.
type Loopback struct {
	txSpace uint16

	mu       sync.Mutex
	Received []byte
}

// NewLoopback builds a Loopback advertising txSpace bytes of headroom.
func NewLoopback(txSpace uint16) *Loopback {
	return &Loopback{txSpace: txSpace}
}

func (l *Loopback) TxStart() {
	l.mu.Lock()
	l.Received = l.Received[:0]
	l.mu.Unlock()
}

func (l *Loopback) TxFinished() {}

func (l *Loopback) TxSpace() uint16 { return l.txSpace }

func (l *Loopback) TxByte(_ uint8, b byte) {
	l.mu.Lock()
	l.Received = append(l.Received, b)
	l.mu.Unlock()
}

// Drain returns and clears the bytes transmitted since the most recent
// TxStart; bytes of earlier frames that were not drained are gone.
func (l *Loopback) Drain() []byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.Received
	l.Received = nil
	return out
}
