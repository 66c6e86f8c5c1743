package compiler

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/docker/go-units"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yutopp/compilet/pkg/domain"
	"github.com/yutopp/compilet/pkg/language"
	"github.com/yutopp/compilet/pkg/report"
	"github.com/yutopp/compilet/pkg/service/executor"
)

const ReportHeader = "Errors while compiling:\n"

type PreferenceSource interface {
	Preferences() (*domain.Preferences, error)
}

type StaticPreferences domain.Preferences

func (p *StaticPreferences) Preferences() (*domain.Preferences, error) {
	prefs := domain.Preferences(*p)
	return &prefs, nil
}

type Config struct {
	Table       *language.Table
	Preferences PreferenceSource
	Runner      executor.Runner
	Reporter    report.Reporter

	// Images and limits for executor.SandboxRunner.
	Sandbox domain.SandboxSettings

	Logger *zap.Logger
}

type Compiler struct {
	config *Config
}

func New(c *Config) *Compiler {
	cfg := *c
	if cfg.Table == nil {
		cfg.Table = language.DefaultTable()
	}
	if cfg.Preferences == nil {
		cfg.Preferences = &StaticPreferences{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Runner == nil {
		cfg.Runner = executor.NewProcessRunner(cfg.Logger)
	}
	if cfg.Reporter == nil {
		cfg.Reporter = report.Discard
	}

	return &Compiler{
		config: &cfg,
	}
}

// BinSaveLocation returns where the compiled binary of srcPath is written.
// Interpreted languages have no binary, so the source itself is returned.
func BinSaveLocation(profile *domain.LanguageProfile, srcPath, saveLocation string) string {
	if profile.SkipCompile {
		return srcPath
	}

	binFileName := filepath.Base(srcPath) + ".bin"
	if saveLocation != "" {
		return filepath.Join(saveLocation, binFileName)
	}
	return srcPath + ".bin"
}

// Flags returns the compiler arguments: source, output and the extra arguments.
// An empty first extra argument means no extra arguments were set.
func Flags(profile *domain.LanguageProfile, srcPath, saveLocation string) []string {
	if profile.SkipCompile {
		return nil
	}

	args := profile.Args
	if len(args) > 0 && args[0] == "" {
		args = nil
	}

	flags := make([]string, 0, 3+len(args))
	flags = append(flags, srcPath, "-o", BinSaveLocation(profile, srcPath, saveLocation))
	flags = append(flags, args...)

	return flags
}

// Failed reports whether a finished compiler run is a failure.
// Anything written to stderr counts, warnings included.
func Failed(exitCode int, stderr string) bool {
	return exitCode == 1 || stderr != ""
}

// Compile builds srcPath. Compiler failures are reported in the outcome, not as
// errors; errors are returned for unresolvable input and cancellation only.
func (c *Compiler) Compile(ctx context.Context, srcPath string) (*domain.CompileOutcome, error) {
	logger := c.config.Logger.With(
		zap.String("request_id", uuid.NewString()),
		zap.String("source", srcPath),
	)
	logger.Info("compilation started")
	c.config.Reporter.Hide()

	prefs, err := c.config.Preferences.Preferences()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load preferences")
	}

	profile, err := c.config.Table.Resolve(srcPath, prefs)
	if err != nil {
		return nil, err
	}

	if profile.SkipCompile {
		logger.Info("compilation skipped", zap.String("language", string(profile.Name)))
		return &domain.CompileOutcome{
			Success:    true,
			Skipped:    true,
			OutputPath: srcPath,
		}, nil
	}

	outputPath := BinSaveLocation(profile, srcPath, prefs.SaveLocation)
	flags := Flags(profile, srcPath, prefs.SaveLocation)
	logger.Info("compiling with flags",
		zap.String("compiler", profile.Compiler),
		zap.Strings("flags", flags),
	)

	task := c.newTask(profile, flags, srcPath, outputPath)
	diag, status, err := c.execute(ctx, task)
	if ctxErr := ctx.Err(); ctxErr != nil && (err != nil || status.Err != nil || status.Code == -1) {
		// Interrupted. A run that finished before cancellation keeps its outcome.
		return nil, ctxErr
	}

	outcome := &domain.CompileOutcome{
		ExitCode:   status.Code,
		OutputPath: outputPath,
	}
	if err == nil {
		err = status.Err
	}
	if err != nil {
		// The compiler never ran to completion, e.g. it is missing from PATH.
		logger.Error("compiler could not be run", zap.Error(err))
		diag += err.Error()
		outcome.ExitCode = -1
	}

	if err != nil || Failed(status.Code, diag) {
		c.config.Reporter.Append(ReportHeader + diag)
		c.config.Reporter.Show()

		logger.Error("compilation failed",
			zap.Int("exit_code", outcome.ExitCode),
			zap.String("stderr_size", units.HumanSize(float64(len(diag)))),
		)
		outcome.Success = false
		outcome.Diagnostics = diag
		return outcome, nil
	}

	logger.Info("compilation passed", zap.String("output", outputPath))
	outcome.Success = true
	return outcome, nil
}

func (c *Compiler) newTask(profile *domain.LanguageProfile, flags []string, srcPath, outputPath string) *executor.RunTask {
	limits := executor.ResourceLimits{
		Core:    0,                        // Process can NOT create CORE file
		Nofile:  512,                      // Process can open 512 files
		NProc:   64,                       // gcc forks cc1/as/ld
		MemLock: 1024,                     // Process can lock 1024 Bytes by mlock(2)
		CPUTime: c.config.Sandbox.CPUTime, // sec
		Memory:  c.config.Sandbox.Memory,  // bytes
		FSize:   64 * 1024 * 1024,         // binaries may be large
	}

	task := &executor.RunTask{
		Image: c.config.Sandbox.Images[profile.Name],
		Cmd:   append([]string{profile.Compiler}, flags...),

		Limits: limits,
	}

	var mounts []string
	addMount := func(dir string) {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return
		}
		for _, m := range mounts {
			if m == abs {
				return
			}
		}
		mounts = append(mounts, abs)
	}
	if wd, err := os.Getwd(); err == nil {
		task.Dir = wd
		addMount(wd)
	}
	addMount(filepath.Dir(srcPath))
	addMount(filepath.Dir(outputPath))
	task.Mounts = mounts

	return task
}

// execute runs the task and returns its stderr. The stderr stream is fully
// drained before the exit status is read.
func (c *Compiler) execute(ctx context.Context, task *executor.RunTask) (string, executor.ExitStatus, error) {
	stderrR, stderrW := io.Pipe()
	task.Stderr = stderrW

	handle, err := c.config.Runner.Run(ctx, task)
	if err != nil {
		_ = stderrW.Close()
		return "", executor.ExitStatus{Code: -1}, err
	}

	var diag strings.Builder
	var ioWg sync.WaitGroup
	ioWg.Add(1) // stderr
	go redirect(c.config.Logger, &ioWg, stderrR, func(buf []byte) {
		diag.Write(buf)
	})
	ioWg.Wait()

	status, ok := <-handle.DoneCh
	if !ok {
		return diag.String(), executor.ExitStatus{Code: -1}, errors.New("runner finished without exit status")
	}

	return diag.String(), status, nil
}

func redirect(logger *zap.Logger, wg *sync.WaitGroup, pipe *io.PipeReader, callback func([]byte)) {
	defer wg.Done()

	buf := make([]byte, 1024)
	for {
		n, err := pipe.Read(buf)
		if n > 0 {
			callback(buf[:n])
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				logger.Warn("pipe read err", zap.Error(err))
			}
			return
		}
	}
}
