package min

// Interface is the hardware/transport contract a Context drives. It
// is the only way the core ever touches the outside world: the
// concrete byte transport (UART, pipe, TCP), any buffering or
// flushing strategy, and advisory space accounting are all on the
// other side of this boundary.
//
// Implementations must not block indefinitely inside TxByte: the core
// assumes, within the budget most recently reported by TxSpace, that
// bytes can be accepted without blocking.
type Interface interface {
	// TxStart is called immediately before a frame's bytes are emitted.
	TxStart()
	// TxFinished is called immediately after a frame's bytes are emitted.
	TxFinished()
	// TxSpace reports the number of bytes currently free in the tx
	// buffer. Called once at the start of every SendFrame; frames the
	// transport layer emits (queued frames, retransmits, ACKs, RESETs)
	// are sent without consulting it.
	TxSpace() uint16
	// TxByte emits one on-wire byte tagged with the given port.
	TxByte(port uint8, b byte)
}
