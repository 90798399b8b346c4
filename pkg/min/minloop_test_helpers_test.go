package min

// loopbackHW is a minimal in-process Interface used only by this
// package's own tests: it appends every transmitted byte to a buffer
// the test can feed straight into a peer Context's Poll. A fuller,
// exported loopback pair grounded on the same idea lives in
// pkg/minloop for use outside this package.
type loopbackHW struct {
	sent      []byte
	txSpace   uint16
	startCnt  int
	finishCnt int
}

func newLoopbackHW(txSpace uint16) *loopbackHW {
	return &loopbackHW{txSpace: txSpace}
}

func (l *loopbackHW) TxStart()         { l.startCnt++ }
func (l *loopbackHW) TxFinished()      { l.finishCnt++ }
func (l *loopbackHW) TxSpace() uint16  { return l.txSpace }
func (l *loopbackHW) TxByte(_ uint8, b byte) {
	l.sent = append(l.sent, b)
}

// fakeClock is a Clock a test can advance explicitly.
type fakeClock struct {
	ms uint32
}

func (f *fakeClock) NowMillis() uint32 { return f.ms }
func (f *fakeClock) Advance(d uint32)  { f.ms += d }
