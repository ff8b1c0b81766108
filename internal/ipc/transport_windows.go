//go:build windows

package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"

	"github.com/Microsoft/go-winio"
	"golang.org/x/sys/windows"
)

// PipeName is the Windows named pipe path for IPC.
const PipeName = `\\.\pipe\goobox-installer`

// Windows error codes for named pipes
const (
	ERROR_FILE_NOT_FOUND = syscall.Errno(2)
	ERROR_PIPE_BUSY      = syscall.Errno(231)
	ERROR_ACCESS_DENIED  = syscall.Errno(5)
)

// DefaultAddress returns the named pipe path.
func DefaultAddress() string {
	return PipeName
}

func dial(ctx context.Context, address string) (net.Conn, error) {
	return winio.DialPipeContext(ctx, address)
}

// listen creates the named pipe. The DACL grants access to the daemon owner
// and SYSTEM only, which replaces the peer uid check done on Linux.
func listen(address string) (net.Listener, error) {
	sid, err := currentUserSID()
	if err != nil {
		return nil, err
	}

	cfg := &winio.PipeConfig{
		SecurityDescriptor: fmt.Sprintf("D:P(A;;GA;;;SY)(A;;GA;;;%s)", sid),
		MessageMode:        true,
		InputBufferSize:    4096,
		OutputBufferSize:   4096,
	}

	listener, err := winio.ListenPipe(address, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create named pipe: %w", err)
	}
	return listener, nil
}

func cleanup(string) {}

// currentUserSID returns the SID of the current process owner.
func currentUserSID() (string, error) {
	token, err := windows.OpenCurrentProcessToken()
	if err != nil {
		return "", fmt.Errorf("failed to open process token: %w", err)
	}
	defer token.Close()

	user, err := token.GetTokenUser()
	if err != nil {
		return "", fmt.Errorf("failed to get token user: %w", err)
	}

	return user.User.Sid.String(), nil
}

// IsEndpointInUse checks if the named pipe exists.
// Returns false only if the pipe does not exist (ERROR_FILE_NOT_FOUND);
// busy or access-denied pipes are owned by someone.
func IsEndpointInUse(address string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	conn, err := winio.DialPipeContext(ctx, address)
	if conn != nil {
		conn.Close()
		return true
	}
	if err == nil {
		return false
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno != ERROR_FILE_NOT_FOUND
	}
	return true
}

// authorizePeer is enforced by the pipe DACL on Windows.
func authorizePeer(net.Conn) (int, error) {
	return -1, nil
}
