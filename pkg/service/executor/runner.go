package executor

import (
	"context"
	"io"
)

type Runner interface {
	Run(ctx context.Context, task *RunTask) (*Handle, error)
}

type RunTask struct {
	// Used by SandboxRunner only.
	Image  string
	Mounts []string

	// Cmd[0] is the executable. Tokens are passed as is, never through a shell.
	Cmd []string
	Dir string

	// Closed by the runner once the process has exited and output is drained.
	Stdout io.WriteCloser
	Stderr io.WriteCloser

	Limits ResourceLimits
}

type ResourceLimits struct {
	Core    int64
	Nofile  int64
	NProc   int64
	MemLock int64
	CPUTime int64 // sec
	Memory  int64 // bytes
	FSize   int64
}

type ExitStatus struct {
	Code int
	Err  error
}

type Handle struct {
	// Receives exactly one ExitStatus, then closed.
	DoneCh chan ExitStatus
}

func newHandle() *Handle {
	return &Handle{
		DoneCh: make(chan ExitStatus, 1),
	}
}

func closeWriter(w io.WriteCloser) {
	if w != nil {
		_ = w.Close()
	}
}
