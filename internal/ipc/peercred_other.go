//go:build !linux && !windows

package ipc

import "net"

// authorizePeer relies on the 0600 socket mode on platforms without
// SO_PEERCRED.
func authorizePeer(net.Conn) (int, error) {
	return -1, nil
}
