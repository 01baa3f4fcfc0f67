// Package runner spawns the external scanning tools (subfinder, amass,
// dnsx, alterx, httpx, nmap), parses their output, and moves large results
// through the blob store so workflow steps exchange references.
package runner

import (
	"bytes"
	"context"
	"os/exec"
	"syscall"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
)

// killGrace is how long a cancelled child process gets between SIGTERM and
// SIGKILL.
const killGrace = 10 * time.Second

// ExecResult carries the decoded output of one child process.
type ExecResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Exec runs one child process to completion. Cancellation sends SIGTERM and
// escalates to SIGKILL after a grace period. Stdout and stderr are captured
// concurrently and decoded byte-safely: some tools emit latin-1.
func Exec(ctx context.Context, argv []string, stdin string) (ExecResult, error) {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = killGrace

	if stdin != "" {
		cmd.Stdin = bytes.NewBufferString(stdin)
	}

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return ExecResult{}, err
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return ExecResult{}, err
	}

	if err := cmd.Start(); err != nil {
		return ExecResult{}, err
	}

	var stdout, stderr []byte
	group := new(errgroup.Group)
	group.Go(func() error {
		var buf bytes.Buffer
		_, err := buf.ReadFrom(stdoutPipe)
		stdout = buf.Bytes()
		return err
	})
	group.Go(func() error {
		var buf bytes.Buffer
		_, err := buf.ReadFrom(stderrPipe)
		stderr = buf.Bytes()
		return err
	})

	readErr := group.Wait()
	waitErr := cmd.Wait()

	result := ExecResult{
		Stdout:   decodeOutput(stdout),
		Stderr:   decodeOutput(stderr),
		ExitCode: cmd.ProcessState.ExitCode(),
	}

	if readErr != nil {
		return result, readErr
	}
	if _, isExit := waitErr.(*exec.ExitError); waitErr != nil && !isExit {
		return result, waitErr
	}
	return result, nil
}

// decodeOutput returns valid UTF-8: already-valid bytes pass through,
// anything else is treated as latin-1.
func decodeOutput(raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}
	runes := make([]rune, 0, len(raw))
	for _, b := range raw {
		runes = append(runes, rune(b))
	}
	return string(runes)
}
