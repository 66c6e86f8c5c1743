package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yutopp/compilet/pkg/service/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch <file>",
	Short: "Compile a source file every time it is saved",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		srcPath := args[0]
		if err := checkSupported(srcPath); err != nil {
			return err
		}

		logger := newLogger()
		defer func() { _ = logger.Sync() }()

		c, err := newCompiler(cmd, logger)
		if err != nil {
			return err
		}

		build := func(ctx context.Context) {
			if err := compileOnce(ctx, cmd, c, srcPath); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
			}
		}

		build(cmd.Context())
		return watcher.Watch(cmd.Context(), logger, srcPath, build)
	},
}

func init() {
	watchCmd.Flags().BoolVar(&sandbox, "sandbox", false, "compile inside a docker container")
	rootCmd.AddCommand(watchCmd)
}
