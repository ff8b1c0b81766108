package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/goobox/sync-installer/internal/logging"
)

// helperRunner runs helper programs and keeps track of the ones still
// running so stop-sync-apps can terminate them. Request helpers are tracked
// while they run; sync apps are tracked until they exit.
//
// Helper protocol: the request payload is written to stdin as JSON; the last
// non-empty line of stdout is the JSON result. A helper that exits 0 without
// output succeeded. A helper that exits non-zero without a parseable result
// failed, and its stderr becomes the error message.
type helperRunner struct {
	mu      sync.Mutex
	running map[*exec.Cmd]string
	logger  *logging.Logger
}

func newHelperRunner(logger *logging.Logger) *helperRunner {
	return &helperRunner{
		running: make(map[*exec.Cmd]string),
		logger:  logger,
	}
}

func (r *helperRunner) run(ctx context.Context, name string, argv []string, payload, result interface{}) error {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)

	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode %s payload: %w", name, err)
		}
		cmd.Stdin = bytes.NewReader(append(data, '\n'))
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s helper: %w", name, err)
	}

	r.track(cmd, name)
	waitErr := cmd.Wait()
	r.untrack(cmd)

	r.logger.Debug().
		Str("helper", name).
		Int("exit_code", cmd.ProcessState.ExitCode()).
		Int("stdout_bytes", stdout.Len()).
		Msg("Helper finished")

	out := lastLine(stdout.Bytes())
	if len(out) == 0 {
		if waitErr != nil {
			return helperFailure(name, waitErr, stderr.String())
		}
		out = []byte(`{"ok":true}`)
	}

	if err := json.Unmarshal(out, result); err != nil {
		if waitErr != nil {
			return helperFailure(name, waitErr, stderr.String())
		}
		return fmt.Errorf("invalid %s helper output: %w", name, err)
	}

	if waitErr != nil {
		r.logger.Warn().Err(waitErr).Str("helper", name).Msg("Helper exited with error but returned a result")
	}
	return nil
}

func helperFailure(name string, waitErr error, stderr string) error {
	msg := strings.TrimSpace(stderr)
	if msg == "" {
		return fmt.Errorf("%s helper failed: %w", name, waitErr)
	}
	if i := strings.LastIndexByte(msg, '\n'); i >= 0 {
		msg = msg[i+1:]
	}
	return fmt.Errorf("%s helper failed: %s", name, msg)
}

// lastLine returns the last non-empty line of out.
func lastLine(out []byte) []byte {
	lines := bytes.Split(bytes.TrimSpace(out), []byte("\n"))
	for i := len(lines) - 1; i >= 0; i-- {
		if line := bytes.TrimSpace(lines[i]); len(line) > 0 {
			return line
		}
	}
	return nil
}

// start launches a long-running program and tracks it until it exits. It
// does nothing when a program with the same name is already tracked.
func (r *helperRunner) start(name string, argv []string) (int, error) {
	if r.tracking(name) {
		r.logger.Debug().Str("app", name).Msg("Already running")
		return 0, nil
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start %s: %w", name, err)
	}
	r.track(cmd, name)

	go func() {
		err := cmd.Wait()
		r.untrack(cmd)
		r.logger.Info().Err(err).Str("app", name).Int("pid", cmd.Process.Pid).Msg("Sync app exited")
	}()

	return cmd.Process.Pid, nil
}

func (r *helperRunner) tracking(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.running {
		if n == name {
			return true
		}
	}
	return false
}

func (r *helperRunner) track(cmd *exec.Cmd, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running[cmd] = name
}

func (r *helperRunner) untrack(cmd *exec.Cmd) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.running, cmd)
}

func (r *helperRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.running)
}

// stopAll kills every running helper and returns how many were signalled.
func (r *helperRunner) stopAll() int {
	r.mu.Lock()
	cmds := make(map[*exec.Cmd]string, len(r.running))
	for cmd, name := range r.running {
		cmds[cmd] = name
	}
	r.mu.Unlock()

	stopped := 0
	for cmd, name := range cmds {
		if cmd.Process == nil {
			continue
		}
		if err := cmd.Process.Kill(); err != nil {
			r.logger.Debug().Err(err).Str("helper", name).Msg("Failed to kill helper")
			continue
		}
		r.logger.Info().Str("helper", name).Int("pid", cmd.Process.Pid).Msg("Killed helper")
		stopped++
	}
	return stopped
}
