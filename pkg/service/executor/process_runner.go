package executor

import (
	"context"
	"os/exec"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// Upper bound for Wait once the process is gone but descendants still hold
// the output pipes.
const waitDelay = 500 * time.Millisecond

// ProcessRunner spawns the command as a direct child process.
type ProcessRunner struct {
	logger *zap.Logger
}

var _ Runner = (*ProcessRunner)(nil)

func NewProcessRunner(logger *zap.Logger) *ProcessRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProcessRunner{
		logger: logger,
	}
}

func (e *ProcessRunner) Run(ctx context.Context, task *RunTask) (*Handle, error) {
	if len(task.Cmd) == 0 {
		return nil, errors.New("empty command")
	}

	cmd := exec.CommandContext(ctx, task.Cmd[0], task.Cmd[1:]...)
	cmd.Dir = task.Dir
	// Compiler drivers fork cc1plus/as/ld; cancellation kills the whole group.
	setProcessGroup(cmd)
	cmd.WaitDelay = waitDelay
	// Wait returns once these writers have received all output or waitDelay expires.
	if task.Stdout != nil {
		cmd.Stdout = task.Stdout
	}
	if task.Stderr != nil {
		cmd.Stderr = task.Stderr
	}

	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "failed to start '%s'", task.Cmd[0])
	}
	e.logger.Debug("started", zap.Strings("cmd", task.Cmd), zap.Int("pid", cmd.Process.Pid))

	handle := newHandle()
	go func() {
		defer close(handle.DoneCh)

		err := cmd.Wait()

		closeWriter(task.Stdout)
		closeWriter(task.Stderr)

		status := ExitStatus{Code: -1}
		if cmd.ProcessState != nil {
			status.Code = cmd.ProcessState.ExitCode()
		}
		var exitErr *exec.ExitError
		if err != nil && !errors.As(err, &exitErr) {
			status.Err = err
		}
		e.logger.Debug("exited", zap.Int("code", status.Code), zap.Error(status.Err))

		handle.DoneCh <- status
	}()

	return handle, nil
}
