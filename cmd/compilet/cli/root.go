package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/yutopp/compilet/pkg/config"
	"github.com/yutopp/compilet/pkg/service/executor"
)

var settingsPath string
var verbose bool

var rootCmd = &cobra.Command{
	Use:   "compilet",
	Short: "Compile single source files with the compiler of their language",
	Long: `compilet picks a compiler from the file extension (g++, gcc, rustc),
builds the file next to the source or into the configured save location, and
reports compiler errors. Python files are not compiled.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&settingsPath, "settings", config.DefaultPath(), "settings file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := executeContext(ctx)
	stop()
	os.Exit(code)
}

// executeContext runs the root command and returns the process exit code.
func executeContext(ctx context.Context) int {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), err)
		return 1
	}
	return 0
}

func newLogger() *zap.Logger {
	var cfg zap.Config
	if verbose {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	}

	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func newRunner(sandbox bool, logger *zap.Logger) executor.Runner {
	if sandbox {
		return executor.NewSandboxRunner(logger)
	}
	return executor.NewProcessRunner(logger)
}
