//go:build linux

package serialhw

import (
	"net"

	"github.com/higebu/netfd"
	"golang.org/x/sys/unix"
)

// tcpTxSpace asks the kernel how much room is left in the socket's
// send buffer (SO_SNDBUF minus the queued-but-unsent backlog reported
// by TIOCOUTQ) and reports that as the advisory tx space, the same
// file-descriptor trick exporter.TCPInfoCollector uses to reach into
// an arbitrary net.Conn.
func tcpTxSpace(conn net.Conn) (uint16, bool) {
	if _, ok := conn.(*net.TCPConn); !ok {
		return 0, false
	}
	fd := netfd.GetFdFromConn(conn)
	if fd < 0 {
		return 0, false
	}

	sndbuf, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_SNDBUF)
	if err != nil {
		return 0, false
	}

	outq, err := unix.IoctlGetInt(fd, unix.TIOCOUTQ)
	if err != nil {
		return 0, false
	}

	free := sndbuf - outq
	if free < 0 {
		free = 0
	}
	if free > 0xffff {
		free = 0xffff
	}
	return uint16(free), true
}
