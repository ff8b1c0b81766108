//go:build linux

package ipc

import (
	"fmt"
	"net"
	"os"

	"golang.org/x/sys/unix"
)

// authorizePeer reads SO_PEERCRED from the socket and rejects callers that
// run as a different user than the daemon. It returns the caller's PID.
func authorizePeer(conn net.Conn) (int, error) {
	uc, ok := conn.(*net.UnixConn)
	if !ok {
		return -1, nil
	}

	raw, err := uc.SyscallConn()
	if err != nil {
		return -1, fmt.Errorf("failed to access socket: %w", err)
	}

	var cred *unix.Ucred
	var credErr error
	if err := raw.Control(func(fd uintptr) {
		cred, credErr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	}); err != nil {
		return -1, fmt.Errorf("failed to read peer credentials: %w", err)
	}
	if credErr != nil {
		return -1, fmt.Errorf("failed to read peer credentials: %w", credErr)
	}

	if int(cred.Uid) != os.Getuid() {
		return int(cred.Pid), fmt.Errorf("%w (uid %d)", ErrUnauthorized, cred.Uid)
	}
	return int(cred.Pid), nil
}
