//go:build windows

package daemon

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/sys/windows"
)

// childEnv marks a process started by Spawn.
const childEnv = "GOOBOX_INSTALLER_DAEMON_CHILD"

// PIDFilePath returns the path to the daemon PID file under
// %LOCALAPPDATA%\Goobox.
func PIDFilePath() string {
	localAppData := os.Getenv("LOCALAPPDATA")
	if localAppData == "" {
		return filepath.Join(os.TempDir(), "goobox-installer.pid")
	}
	return filepath.Join(localAppData, "Goobox", "installer.pid")
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

	// os.FindProcess always succeeds on Windows, so ask the kernel directly.
	handle, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid))
	if err != nil {
		os.Remove(PIDFilePath())
		return 0
	}
	windows.CloseHandle(handle)

	return pid
}

// Spawn starts the current executable with args as a detached background
// process without a console and returns its PID.
func Spawn(args []string) (int, error) {
	executable, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("failed to get executable path: %w", err)
	}

	cmd := exec.Command(executable, args...)
	cmd.Env = append(os.Environ(), childEnv+"=1")
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: windows.CREATE_NEW_PROCESS_GROUP | windows.DETACHED_PROCESS,
		HideWindow:    true,
	}

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start daemon: %w", err)
	}

	pid := cmd.Process.Pid
	cmd.Process.Release()
	return pid, nil
}

// IsDaemonChild returns true if we're running as a process started by Spawn.
func IsDaemonChild() bool {
	return os.Getenv(childEnv) == "1"
}
