package compiler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yutopp/compilet/pkg/domain"
	"github.com/yutopp/compilet/pkg/report"
	"github.com/yutopp/compilet/pkg/service/executor"
)

// fakeRunner writes the configured stderr chunks, closes the stream and then
// reports the exit code, the same order the real runners guarantee.
type fakeRunner struct {
	mu    sync.Mutex
	tasks []*executor.RunTask

	stderrChunks []string
	exitCode     int
	startErr     error

	// Called after stderr is closed and before the exit status is sent.
	beforeExit func()
}

func (r *fakeRunner) Run(ctx context.Context, task *executor.RunTask) (*executor.Handle, error) {
	r.mu.Lock()
	r.tasks = append(r.tasks, task)
	r.mu.Unlock()

	if r.startErr != nil {
		return nil, r.startErr
	}

	handle := &executor.Handle{DoneCh: make(chan executor.ExitStatus, 1)}
	go func() {
		defer close(handle.DoneCh)
		for _, chunk := range r.stderrChunks {
			_, _ = task.Stderr.Write([]byte(chunk))
		}
		_ = task.Stderr.Close()
		if r.beforeExit != nil {
			r.beforeExit()
		}
		handle.DoneCh <- executor.ExitStatus{Code: r.exitCode}
	}()

	return handle, nil
}

func (r *fakeRunner) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}

func newTestCompiler(runner executor.Runner, reporter report.Reporter, prefs *domain.Preferences) *Compiler {
	if prefs == nil {
		prefs = &domain.Preferences{}
	}
	return New(&Config{
		Preferences: (*StaticPreferences)(prefs),
		Runner:      runner,
		Reporter:    reporter,
	})
}

func TestCompile_ScenarioA_Success(t *testing.T) {
	runner := &fakeRunner{}
	reporter := report.NewBuffer()

	outcome, err := newTestCompiler(runner, reporter, nil).Compile(context.Background(), "main.cpp")
	require.NoError(t, err)

	assert.True(t, outcome.Success)
	assert.False(t, outcome.Skipped)
	assert.Empty(t, outcome.Diagnostics)
	assert.Equal(t, "main.cpp.bin", outcome.OutputPath)

	require.Equal(t, 1, runner.calls())
	assert.Equal(t, []string{"g++", "main.cpp", "-o", "main.cpp.bin"}, runner.tasks[0].Cmd)

	assert.Empty(t, reporter.String())
	assert.False(t, reporter.Visible())
}

func TestCompile_ScenarioB_SkipCompile(t *testing.T) {
	runner := &fakeRunner{exitCode: 1, stderrChunks: []string{"never"}}
	reporter := report.NewBuffer()
	reporter.Show()

	outcome, err := newTestCompiler(runner, reporter, &domain.Preferences{SaveLocation: "/bins"}).
		Compile(context.Background(), "sol.py")
	require.NoError(t, err)

	assert.True(t, outcome.Success)
	assert.True(t, outcome.Skipped)
	assert.Equal(t, "sol.py", outcome.OutputPath)
	assert.Equal(t, 0, runner.calls())

	assert.False(t, reporter.Visible(), "the report surface is hidden before every compile")
}

func TestCompile_ScenarioC_Failure(t *testing.T) {
	runner := &fakeRunner{exitCode: 1, stderrChunks: []string{"error: ", "expected ;"}}
	reporter := report.NewBuffer()

	outcome, err := newTestCompiler(runner, reporter, nil).Compile(context.Background(), "a.rs")
	require.NoError(t, err)

	assert.False(t, outcome.Success)
	assert.Equal(t, 1, outcome.ExitCode)
	assert.Equal(t, "error: expected ;", outcome.Diagnostics)
	assert.Equal(t, "Errors while compiling:\nerror: expected ;", reporter.String())
	assert.True(t, reporter.Visible())
	assert.Equal(t, "rustc", runner.tasks[0].Cmd[0])
}

func TestCompile_ScenarioD_UnrecognizedExtension(t *testing.T) {
	runner := &fakeRunner{}

	_, err := newTestCompiler(runner, nil, nil).Compile(context.Background(), "b.xyz")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnrecognizedExtension))
	assert.Equal(t, 0, runner.calls())
}

func TestCompile_FailureDetection(t *testing.T) {
	tests := []struct {
		name     string
		exitCode int
		stderr   []string
		success  bool
	}{
		{name: "clean exit", exitCode: 0, success: true},
		{name: "exit 1 without stderr", exitCode: 1, success: false},
		{name: "warning with exit 0", exitCode: 0, stderr: []string{"warning: unused variable"}, success: false},
		{name: "exit 2 without stderr", exitCode: 2, success: true},
		{name: "exit 2 with stderr", exitCode: 2, stderr: []string{"ld: error"}, success: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{exitCode: tt.exitCode, stderrChunks: tt.stderr}
			reporter := report.NewBuffer()

			outcome, err := newTestCompiler(runner, reporter, nil).Compile(context.Background(), "main.c")
			require.NoError(t, err)

			assert.Equal(t, tt.success, outcome.Success)
			assert.Equal(t, tt.success, !Failed(tt.exitCode, strings.Join(tt.stderr, "")))
			if tt.success {
				assert.Empty(t, reporter.String())
			} else {
				assert.Equal(t, ReportHeader+strings.Join(tt.stderr, ""), reporter.String())
			}
		})
	}
}

func TestCompile_LargeStderrIsFullyCollected(t *testing.T) {
	chunk := strings.Repeat("x", 700)
	chunks := make([]string, 20)
	for i := range chunks {
		chunks[i] = fmt.Sprintf("%02d%s\n", i, chunk)
	}
	runner := &fakeRunner{exitCode: 0, stderrChunks: chunks}

	outcome, err := newTestCompiler(runner, nil, nil).Compile(context.Background(), "main.cpp")
	require.NoError(t, err)

	assert.False(t, outcome.Success)
	assert.Equal(t, strings.Join(chunks, ""), outcome.Diagnostics)
}

func TestCompile_StartFailureIsReportedAsFailure(t *testing.T) {
	runner := &fakeRunner{startErr: errors.New(`exec: "g++": executable file not found in $PATH`)}
	reporter := report.NewBuffer()

	outcome, err := newTestCompiler(runner, reporter, nil).Compile(context.Background(), "main.cpp")
	require.NoError(t, err)

	assert.False(t, outcome.Success)
	assert.Equal(t, -1, outcome.ExitCode)
	assert.Contains(t, outcome.Diagnostics, "executable file not found")
	assert.True(t, strings.HasPrefix(reporter.String(), ReportHeader))
	assert.True(t, reporter.Visible())
}

func TestCompile_CancelAfterExitKeepsOutcome(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := &fakeRunner{exitCode: 0, beforeExit: cancel}

	outcome, err := newTestCompiler(runner, nil, nil).Compile(ctx, "main.cpp")
	require.NoError(t, err)
	assert.True(t, outcome.Success)
	assert.Equal(t, "main.cpp.bin", outcome.OutputPath)
}

func TestCompile_CancelledRunReturnsContextError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := &fakeRunner{exitCode: -1, beforeExit: cancel}

	_, err := newTestCompiler(runner, nil, nil).Compile(ctx, "main.cpp")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestCompile_Idempotent(t *testing.T) {
	for _, runner := range []*fakeRunner{
		{exitCode: 0},
		{exitCode: 1, stderrChunks: []string{"boom"}},
	} {
		c := newTestCompiler(runner, nil, nil)

		first, err := c.Compile(context.Background(), "main.cpp")
		require.NoError(t, err)
		second, err := c.Compile(context.Background(), "main.cpp")
		require.NoError(t, err)

		assert.Equal(t, first.Success, second.Success)
		assert.Equal(t, first.Diagnostics, second.Diagnostics)
		assert.Equal(t, 2, runner.calls())
	}
}

func TestCompile_PreferencesApplied(t *testing.T) {
	runner := &fakeRunner{}
	prefs := &domain.Preferences{
		SaveLocation: "/tmp/bins",
		Args: map[domain.LanguageName][]string{
			domain.LanguageCpp: {"-O2", "-Wall"},
		},
	}

	outcome, err := newTestCompiler(runner, nil, prefs).Compile(context.Background(), "/work/main.cpp")
	require.NoError(t, err)

	assert.Equal(t, "/tmp/bins/main.cpp.bin", outcome.OutputPath)
	assert.Equal(t,
		[]string{"g++", "/work/main.cpp", "-o", "/tmp/bins/main.cpp.bin", "-O2", "-Wall"},
		runner.tasks[0].Cmd,
	)
	assert.Contains(t, runner.tasks[0].Mounts, "/work")
	assert.Contains(t, runner.tasks[0].Mounts, "/tmp/bins")
}

func TestCompile_SandboxSettingsReachTask(t *testing.T) {
	runner := &fakeRunner{}
	c := New(&Config{
		Runner: runner,
		Sandbox: domain.SandboxSettings{
			Images:  map[domain.LanguageName]string{domain.LanguageRust: "rust:1.75"},
			CPUTime: 7,
			Memory:  256,
		},
	})

	_, err := c.Compile(context.Background(), "a.rs")
	require.NoError(t, err)

	task := runner.tasks[0]
	assert.Equal(t, "rust:1.75", task.Image)
	assert.Equal(t, int64(7), task.Limits.CPUTime)
	assert.Equal(t, int64(256), task.Limits.Memory)
}

type failingPreferences struct{}

func (failingPreferences) Preferences() (*domain.Preferences, error) {
	return nil, errors.New("settings file is broken")
}

func TestCompile_PreferenceErrorPropagates(t *testing.T) {
	runner := &fakeRunner{}
	c := New(&Config{Runner: runner, Preferences: failingPreferences{}})

	_, err := c.Compile(context.Background(), "main.cpp")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load preferences")
	assert.Equal(t, 0, runner.calls())
}

func TestBinSaveLocation(t *testing.T) {
	compiled := &domain.LanguageProfile{Name: domain.LanguageCpp}
	interpreted := &domain.LanguageProfile{Name: domain.LanguagePython, SkipCompile: true}

	assert.Equal(t, "/d/main.cpp.bin", BinSaveLocation(compiled, "/src/main.cpp", "/d"))
	assert.Equal(t, "/src/main.cpp.bin", BinSaveLocation(compiled, "/src/main.cpp", ""))
	assert.Equal(t, "rel/x.c.bin", BinSaveLocation(compiled, "rel/x.c", ""))
	assert.Equal(t, "/src/sol.py", BinSaveLocation(interpreted, "/src/sol.py", "/d"))
}

func TestFlags_OutputFollowsDashO(t *testing.T) {
	for _, name := range []domain.LanguageName{domain.LanguageCpp, domain.LanguageC, domain.LanguageRust} {
		profile := &domain.LanguageProfile{Name: name, Args: []string{"-x", "y"}}
		flags := Flags(profile, "/src/a", "/out")

		require.GreaterOrEqual(t, len(flags), 3)
		assert.Equal(t, "/src/a", flags[0])
		assert.Equal(t, "-o", flags[1])
		assert.Equal(t, BinSaveLocation(profile, "/src/a", "/out"), flags[2])
		assert.Equal(t, []string{"-x", "y"}, flags[3:])
	}
}

func TestFlags_EmptySentinelDropsAllExtraArgs(t *testing.T) {
	profile := &domain.LanguageProfile{Name: domain.LanguageCpp, Args: []string{"", "-O2", "-Wall"}}

	assert.Equal(t, []string{"main.cpp", "-o", "main.cpp.bin"}, Flags(profile, "main.cpp", ""))
}

func TestFlags_SkipCompile(t *testing.T) {
	profile := &domain.LanguageProfile{Name: domain.LanguagePython, SkipCompile: true, Args: []string{"-O"}}

	assert.Nil(t, Flags(profile, "sol.py", ""))
}

func TestFlags_Golden(t *testing.T) {
	cases := []struct {
		profile      *domain.LanguageProfile
		srcPath      string
		saveLocation string
	}{
		{&domain.LanguageProfile{Name: domain.LanguageCpp}, "main.cpp", ""},
		{&domain.LanguageProfile{Name: domain.LanguageCpp, Args: []string{"-O2", "-std=c++17"}}, "/src/main.cpp", "/bins"},
		{&domain.LanguageProfile{Name: domain.LanguageC, Args: []string{""}}, "b.c", "out/"},
		{&domain.LanguageProfile{Name: domain.LanguageRust, Args: []string{"-C", "opt-level=2"}}, "a.rs", ""},
		{&domain.LanguageProfile{Name: domain.LanguageRust, Args: []string{"", "ignored"}}, "dir/a b.rs", "/o"},
	}

	var sb strings.Builder
	for _, c := range cases {
		fmt.Fprintf(&sb, "%s %q\n", c.profile.Name, Flags(c.profile, c.srcPath, c.saveLocation))
	}

	g := goldie.New(t, goldie.WithNameSuffix(".gold.txt"))
	g.Assert(t, t.Name(), []byte(sb.String()))
}
