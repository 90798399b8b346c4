//go:build !linux

package serialhw

import "net"

// tcpTxSpace has no kernel-backlog probe outside Linux; TxSpace falls
// back to the configured constant.
func tcpTxSpace(conn net.Conn) (uint16, bool) {
	return 0, false
}
