// Package serialhw provides min.Interface implementations backed by
// real byte-stream transports: a UART over go.bug.st/serial and a TCP
// connection for testing MIN over a reliable stream.
package serialhw

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"go.bug.st/serial"
)

// DefaultTxSpace is reported by TxSpace when the driver has no better
// estimate of free buffer space. MIN treats it as advisory headroom,
// not a hard limit enforced by the OS.
const DefaultTxSpace = 512

// Serial drives a real UART as a min.Interface. Reads run on their own
// goroutine and are delivered to a caller-supplied byte sink, mirroring
// the teacher's usock.readLoop except MIN owns framing, not this
// package: every received byte is handed straight to the sink
// unparsed.
type Serial struct {
	port serial.Port

	mu      sync.Mutex
	txSpace uint16

	sink    func(byte)
	stopCh  chan struct{}
	wg      sync.WaitGroup
	logger  *log.Logger
	devPath string
}

// Open opens devicePath at baud with 8N1 framing and no flow control,
// the configuration real_uart_on_linux.rs documents, and starts a
// background read loop delivering every received byte to sink.
func Open(devicePath string, baud int, sink func(byte), logger *log.Logger) (*Serial, error) {
	if logger == nil {
		logger = log.Default()
	}

	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(devicePath, mode)
	if err != nil {
		return nil, fmt.Errorf("serialhw: open %s: %w", devicePath, err)
	}

	s := &Serial{
		port:    port,
		txSpace: DefaultTxSpace,
		sink:    sink,
		stopCh:  make(chan struct{}),
		logger:  logger,
		devPath: devicePath,
	}

	s.wg.Add(1)
	go s.readLoop()

	return s, nil
}

func (s *Serial) readLoop() {
	defer s.wg.Done()

	buf := make([]byte, 256)
	for {
		select {
		case <-s.stopCh:
			return
		default:
		}

		n, err := s.port.Read(buf)
		if err != nil {
			if err == io.EOF {
				return
			}
			s.logger.Error("serial read failed", "device", s.devPath, "error", err)
			time.Sleep(10 * time.Millisecond)
			continue
		}
		for i := 0; i < n; i++ {
			s.sink(buf[i])
		}
	}
}

// SetTxSpace overrides the advisory free-buffer estimate TxSpace
// reports; useful when a caller tracks OS-reported backlog itself.
func (s *Serial) SetTxSpace(n uint16) {
	s.mu.Lock()
	s.txSpace = n
	s.mu.Unlock()
}

func (s *Serial) TxStart()    {}
func (s *Serial) TxFinished() {}

func (s *Serial) TxSpace() uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.txSpace
}

func (s *Serial) TxByte(_ uint8, b byte) {
	if _, err := s.port.Write([]byte{b}); err != nil {
		s.logger.Error("serial write failed", "device", s.devPath, "error", err)
	}
}

// Close stops the read loop and closes the underlying port.
func (s *Serial) Close() error {
	close(s.stopCh)
	err := s.port.Close()
	s.wg.Wait()
	return err
}
