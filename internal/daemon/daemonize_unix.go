//go:build !windows

package daemon

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// childEnv marks a process started by Spawn.
const childEnv = "GOOBOX_INSTALLER_DAEMON_CHILD"

// PIDFilePath returns the path to the daemon PID file.
func PIDFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "goobox-installer.pid")
	}
	return filepath.Join(home, ".config", "goobox", "installer.pid")
}

// WritePIDFile writes the current process's PID to the PID file.
func WritePIDFile() error {
	pidPath := PIDFilePath()

	if err := os.MkdirAll(filepath.Dir(pidPath), 0700); err != nil {
		return fmt.Errorf("failed to create PID file directory: %w", err)
	}

	pid := os.Getpid()
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(pid)), 0600); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}

	return nil
}

// RemovePIDFile removes the PID file if it belongs to this process.
func RemovePIDFile() {
	if ReadPIDFile() == os.Getpid() {
		os.Remove(PIDFilePath())
	}
}

// ReadPIDFile reads the PID from the PID file.
// Returns 0 if the file doesn't exist or is invalid.
func ReadPIDFile() int {
	data, err := os.ReadFile(PIDFilePath())
	if err != nil {
		return 0
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}

	return pid
}

// IsDaemonRunning checks if a daemon process is already running.
// Returns the PID if running, 0 if not.
func IsDaemonRunning() int {
	pid := ReadPIDFile()
	if pid == 0 {
		return 0
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return 0
	}

	// On Unix, FindProcess always succeeds. Use kill(0) to check if it exists.
	if err := process.Signal(syscall.Signal(0)); err != nil {
		os.Remove(PIDFilePath())
		return 0
	}

	return pid
}

// Spawn starts the current executable with args as a detached background
// process in its own session and returns its PID. Unlike a classic
// daemonize, the caller keeps running.
func Spawn(args []string) (int, error) {
	executable, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("failed to get executable path: %w", err)
	}

	cmd := exec.Command(executable, args...)
	cmd.Env = append(os.Environ(), childEnv+"=1")
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true,
	}

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start daemon: %w", err)
	}

	pid := cmd.Process.Pid
	// The child outlives us; don't keep a handle to it.
	cmd.Process.Release()
	return pid, nil
}

// IsDaemonChild returns true if we're running as a process started by Spawn.
func IsDaemonChild() bool {
	return os.Getenv(childEnv) == "1"
}
