package cli

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yutopp/compilet/pkg/config"
	"github.com/yutopp/compilet/pkg/report"
	"github.com/yutopp/compilet/pkg/service/compiler"
)

var errCompileFailed = errors.New("compilation failed")

var sandbox bool

var compileCmd = &cobra.Command{
	Use:   "compile <file>",
	Short: "Compile a source file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		defer func() { _ = logger.Sync() }()

		c, err := newCompiler(cmd, logger)
		if err != nil {
			return err
		}
		return compileOnce(cmd.Context(), cmd, c, args[0])
	},
}

func init() {
	compileCmd.Flags().BoolVar(&sandbox, "sandbox", false, "compile inside a docker container")
	rootCmd.AddCommand(compileCmd)
}

func newCompiler(cmd *cobra.Command, logger *zap.Logger) (*compiler.Compiler, error) {
	repo := config.NewSettingsFromFile(settingsPath)

	settings, err := repo.Load()
	if err != nil {
		return nil, err
	}
	table, err := repo.LoadTable()
	if err != nil {
		return nil, err
	}

	return compiler.New(&compiler.Config{
		Table:       table,
		Preferences: repo,
		Runner:      newRunner(sandbox, logger),
		Reporter:    report.NewChannel(cmd.ErrOrStderr()),
		Sandbox:     settings.Sandbox,
		Logger:      logger,
	}), nil
}

func compileOnce(ctx context.Context, cmd *cobra.Command, c *compiler.Compiler, srcPath string) error {
	if err := checkSupported(srcPath); err != nil {
		return err
	}

	outcome, err := c.Compile(ctx, srcPath)
	if err != nil {
		return err
	}
	if !outcome.Success {
		fmt.Fprintln(cmd.ErrOrStderr())
		return errCompileFailed
	}

	if outcome.Skipped {
		fmt.Fprintf(cmd.OutOrStdout(), "Compilation skipped: %s\n", srcPath)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Compilation passed: %s\n", outcome.OutputPath)
	return nil
}

func checkSupported(srcPath string) error {
	table, err := config.NewSettingsFromFile(settingsPath).LoadTable()
	if err != nil {
		return err
	}
	return table.CheckSupported(srcPath)
}
