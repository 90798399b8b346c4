package serialhw

import (
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/charmbracelet/log"
)

// TCP drives a net.Conn as a min.Interface, useful for exercising MIN
// over a reliable stream (tests, or a peer reachable over the network
// instead of a local UART) without changing any framing logic.
type TCP struct {
	conn net.Conn

	mu      sync.Mutex
	txSpace uint16

	sink   func(byte)
	stopCh chan struct{}
	wg     sync.WaitGroup
	logger *log.Logger
}

// DialTCP connects to addr and starts a background read loop
// delivering every received byte to sink.
func DialTCP(addr string, sink func(byte), logger *log.Logger) (*TCP, error) {
	if logger == nil {
		logger = log.Default()
	}
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("serialhw: dial %s: %w", addr, err)
	}
	t := NewTCP(conn, logger)
	t.Start(sink)
	return t, nil
}

// NewTCP wraps an already-connected net.Conn.
func NewTCP(conn net.Conn, logger *log.Logger) *TCP {
	if logger == nil {
		logger = log.Default()
	}
	t := &TCP{
		conn:    conn,
		txSpace: DefaultTxSpace,
		sink:    nil,
		stopCh:  make(chan struct{}),
		logger:  logger,
	}
	return t
}

// Start begins the background read loop delivering received bytes to
// sink. Separate from construction so tcpTxSpace (Linux) can probe the
// socket's fd before the first read.
func (t *TCP) Start(sink func(byte)) {
	t.sink = sink
	t.wg.Add(1)
	go t.readLoop()
}

func (t *TCP) readLoop() {
	defer t.wg.Done()

	buf := make([]byte, 256)
	for {
		select {
		case <-t.stopCh:
			return
		default:
		}

		n, err := t.conn.Read(buf)
		if err != nil {
			if err != io.EOF {
				t.logger.Error("tcp read failed", "remote", t.conn.RemoteAddr(), "error", err)
			}
			return
		}
		for i := 0; i < n; i++ {
			t.sink(buf[i])
		}
	}
}

func (t *TCP) TxStart()    {}
func (t *TCP) TxFinished() {}

// TxSpace reports a configured constant by default; on Linux, when
// built with access to the socket fd, tcpTxSpace refines this by
// querying the kernel send-buffer backlog (see tcphw_linux.go).
func (t *TCP) TxSpace() uint16 {
	if n, ok := tcpTxSpace(t.conn); ok {
		return n
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.txSpace
}

// SetTxSpace overrides the portable default used when the kernel probe
// is unavailable or unsupported on this platform.
func (t *TCP) SetTxSpace(n uint16) {
	t.mu.Lock()
	t.txSpace = n
	t.mu.Unlock()
}

func (t *TCP) TxByte(_ uint8, b byte) {
	if _, err := t.conn.Write([]byte{b}); err != nil {
		t.logger.Error("tcp write failed", "remote", t.conn.RemoteAddr(), "error", err)
	}
}

// Close stops the read loop and closes the connection.
func (t *TCP) Close() error {
	close(t.stopCh)
	err := t.conn.Close()
	t.wg.Wait()
	return err
}
