//go:build !windows

package ipc

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"
)

// DefaultAddress returns the path to the Unix domain socket.
// On Mac/Linux: ~/.config/goobox/installer.sock
func DefaultAddress() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "goobox-installer.sock")
	}
	return filepath.Join(home, ".config", "goobox", "installer.sock")
}

func dial(ctx context.Context, address string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "unix", address)
}

// listen binds the socket, replacing a stale socket file left by a daemon
// that did not shut down cleanly.
func listen(address string) (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(address), 0700); err != nil {
		return nil, fmt.Errorf("failed to create socket directory: %w", err)
	}

	if _, err := os.Stat(address); err == nil {
		if IsEndpointInUse(address) {
			return nil, fmt.Errorf("another daemon is already listening on %s", address)
		}
		if err := os.Remove(address); err != nil {
			return nil, fmt.Errorf("failed to remove stale socket: %w", err)
		}
	}

	listener, err := net.Listen("unix", address)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", address, err)
	}

	if err := os.Chmod(address, 0600); err != nil {
		listener.Close()
		return nil, fmt.Errorf("failed to set socket permissions: %w", err)
	}

	return listener, nil
}

// cleanup removes the socket file after the listener is closed.
func cleanup(address string) {
	os.Remove(address)
}

// IsEndpointInUse reports whether something accepts connections on address.
func IsEndpointInUse(address string) bool {
	conn, err := net.DialTimeout("unix", address, 100*time.Millisecond)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
