package cli

import (
	"fmt"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/yutopp/compilet/pkg/server"
)

var serverAddr string

var clientCmd = &cobra.Command{
	Use:   "client <file>",
	Short: "Compile a source file on a running compilet server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		srcPath, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}

		conn, err := grpc.Dial(serverAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return errors.Wrap(err, "failed to connect")
		}
		defer conn.Close()

		res, err := server.NewClient(conn).Compile(cmd.Context(), srcPath)
		if err != nil {
			return errors.Wrap(err, "failed to compile")
		}

		if !res.Success {
			fmt.Fprintln(cmd.ErrOrStderr(), res.Report)
			return errCompileFailed
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Compilation passed: %s\n", res.OutputPath)
		return nil
	},
}

func init() {
	clientCmd.Flags().StringVar(&serverAddr, "addr", "localhost:50051", "server address")
	rootCmd.AddCommand(clientCmd)
}
