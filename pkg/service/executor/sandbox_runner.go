package executor

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-units"
	"go.uber.org/zap"
)

// SandboxRunner runs the command inside a throwaway docker container.
type SandboxRunner struct {
	logger *zap.Logger
}

var _ Runner = (*SandboxRunner)(nil)

func NewSandboxRunner(logger *zap.Logger) *SandboxRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SandboxRunner{
		logger: logger,
	}
}

func makeULimit(name string, lim int64) *units.Ulimit {
	return &units.Ulimit{
		Name: name,
		Soft: lim,
		Hard: lim,
	}
}

// gcc writes its intermediate objects to TMPDIR, which defaults to /tmp.
const scratchTmpfs = "rw,exec,nosuid,size=256m"

func makeHostConfig(task *RunTask) *container.HostConfig {
	binds := make([]string, 0, len(task.Mounts))
	for _, m := range task.Mounts {
		binds = append(binds, m+":"+m)
	}

	return &container.HostConfig{
		AutoRemove:     true,
		ReadonlyRootfs: true,
		Privileged:     false,
		NetworkMode:    "none",
		Binds:          binds,
		Tmpfs:          map[string]string{"/tmp": scratchTmpfs},
		Resources: container.Resources{
			Memory: task.Limits.Memory, // bytes
			Ulimits: []*units.Ulimit{
				makeULimit("core", task.Limits.Core),
				makeULimit("nofile", task.Limits.Nofile),
				makeULimit("nproc", task.Limits.NProc),
				makeULimit("memlock", task.Limits.MemLock),
				makeULimit("cpu", task.Limits.CPUTime),
				// makeULimit("as", task.Limits.Memory), disabled by docker
				makeULimit("fsize", task.Limits.FSize),
			},
		},
	}
}

func (e *SandboxRunner) Run(ctx context.Context, task *RunTask) (*Handle, error) {
	if len(task.Cmd) == 0 {
		return nil, errors.New("empty command")
	}
	if task.Image == "" {
		return nil, errors.Errorf("no image for '%s'", task.Cmd[0])
	}

	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, errors.Wrap(err, "failed to create docker client")
	}

	stopTimeout := 3 // sec
	resp, err := cli.ContainerCreate(ctx, &container.Config{
		Image:       task.Image,
		Cmd:         task.Cmd,
		WorkingDir:  task.Dir,
		StopSignal:  "SIGKILL",
		StopTimeout: &stopTimeout,
	}, makeHostConfig(task), nil, nil, "")
	if err != nil {
		_ = cli.Close()
		return nil, errors.Wrap(err, "failed to create container")
	}

	containerID := resp.ID
	logger := e.logger.With(zap.String("container", containerID))
	logger.Debug("created",
		zap.String("image", task.Image),
		zap.String("memory", units.BytesSize(float64(task.Limits.Memory))),
	)

	hijack, err := cli.ContainerAttach(ctx, containerID, types.ContainerAttachOptions{
		Stream: true,
		Stdout: true,
		Stderr: true,
	})
	if err != nil {
		discardContainer(ctx, cli, containerID, logger)
		_ = cli.Close()
		return nil, errors.Wrap(err, "failed to attach container")
	}

	copied := make(chan struct{})
	go func() {
		defer close(copied)
		defer hijack.Close()

		stdout := task.Stdout
		if stdout == nil {
			stdout = nopWriteCloser{}
		}
		stderr := task.Stderr
		if stderr == nil {
			stderr = nopWriteCloser{}
		}
		if _, err := stdcopy.StdCopy(stdout, stderr, hijack.Reader); err != nil {
			logger.Warn("failed to copy output", zap.Error(err))
		}
	}()

	// Wait must be registered before start: AutoRemove deletes the container on exit.
	respCh, errCh := cli.ContainerWait(ctx, containerID, container.WaitConditionNextExit)

	if err := cli.ContainerStart(ctx, containerID, types.ContainerStartOptions{}); err != nil {
		hijack.Close()
		<-copied
		discardContainer(ctx, cli, containerID, logger)
		_ = cli.Close()
		return nil, errors.Wrap(err, "failed to start container")
	}
	logger.Debug("started", zap.Strings("cmd", task.Cmd))

	handle := newHandle()
	exited := make(chan struct{})
	go func() {
		defer close(handle.DoneCh)
		defer close(exited)

		var status ExitStatus
		select {
		case <-ctx.Done():
			status = ExitStatus{Code: -1, Err: ctx.Err()}

		case resp := <-respCh:
			status = ExitStatus{Code: int(resp.StatusCode)}
			if resp.Error != nil {
				status.Err = errors.Newf("wait: %s", resp.Error.Message)
			}

		case err := <-errCh:
			status = ExitStatus{Code: -1, Err: err}
		}

		<-copied
		closeWriter(task.Stdout)
		closeWriter(task.Stderr)

		logger.Debug("exited", zap.Int("code", status.Code), zap.Error(status.Err))
		handle.DoneCh <- status
	}()

	// Realtime checking apart from cgroup limits to prevent sleep() function running infinite.
	stopCtx := context.WithoutCancel(ctx)
	go func() {
		defer cli.Close()

		const extensionSec = 3
		t := time.NewTimer(time.Duration(task.Limits.CPUTime+extensionSec) * time.Second)
		defer t.Stop()

		select {
		case <-exited:
		case <-t.C:
			immediate := 0
			err := cli.ContainerStop(stopCtx, containerID, container.StopOptions{
				Timeout: &immediate,
				Signal:  "SIGKILL",
			})
			if err != nil {
				logger.Warn("failed to stop container", zap.Error(err))
			}
			logger.Info("timeout")
			<-exited
		}
	}()

	return handle, nil
}

type containerRemover interface {
	ContainerRemove(ctx context.Context, containerID string, options types.ContainerRemoveOptions) error
}

// discardContainer removes a container that was created but never started.
// AutoRemove only applies once the container has run.
func discardContainer(ctx context.Context, remover containerRemover, containerID string, logger *zap.Logger) {
	err := remover.ContainerRemove(context.WithoutCancel(ctx), containerID, types.ContainerRemoveOptions{
		Force: true,
	})
	if err != nil {
		logger.Warn("failed to remove container", zap.Error(err))
	}
}

type nopWriteCloser struct{}

func (nopWriteCloser) Write(p []byte) (int, error) { return len(p), nil }
func (nopWriteCloser) Close() error                { return nil }
