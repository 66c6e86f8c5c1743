package cli

import (
	"fmt"
	"net"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yutopp/compilet/pkg/config"
	"github.com/yutopp/compilet/pkg/server"
)

var grpcPort int
var httpPort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve compile requests over gRPC and HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := zap.NewProduction()
		if err != nil {
			return errors.Wrap(err, "failed to initialize logger")
		}
		if verbose {
			logger = newLogger()
		}
		defer func() { _ = logger.Sync() }()

		logger.Info("start server", zap.Int("grpc_port", grpcPort), zap.Int("http_port", httpPort))
		return run(logger)
	},
}

func init() {
	serveCmd.Flags().IntVar(&grpcPort, "grpc-port", 50051, "gRPC port")
	serveCmd.Flags().IntVar(&httpPort, "http-port", 8080, "HTTP port (0 disables)")
	serveCmd.Flags().BoolVar(&sandbox, "sandbox", false, "compile inside docker containers")

	rootCmd.AddCommand(serveCmd)
}

func run(logger *zap.Logger) error {
	repo := config.NewSettingsFromFile(settingsPath)
	settings, err := repo.Load()
	if err != nil {
		return err
	}
	table, err := repo.LoadTable()
	if err != nil {
		return err
	}

	srv := server.NewServer(&server.Config{
		Table:       table,
		Preferences: repo,
		Runner:      newRunner(sandbox, logger),
		Sandbox:     settings.Sandbox,
		Logger:      logger,
	})

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", grpcPort))
	if err != nil {
		return errors.Wrap(err, "failed to listen on gRPC port")
	}
	grpcServer := server.NewGRPCServer(srv)

	errCh := make(chan error, 2)
	if httpPort != 0 {
		gin.SetMode(gin.ReleaseMode)
		httpServer := &http.Server{
			Addr:    fmt.Sprintf(":%d", httpPort),
			Handler: server.NewHTTPHandler(srv),
		}
		go func() {
			errCh <- errors.Wrap(httpServer.ListenAndServe(), "failed to serve HTTP")
		}()
	}
	go func() {
		errCh <- errors.Wrap(grpcServer.Serve(lis), "failed to serve gRPC")
	}()

	return <-errCh
}
