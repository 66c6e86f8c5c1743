package server

import (
	"context"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/yutopp/compilet/pkg/domain"
	"github.com/yutopp/compilet/pkg/language"
	"github.com/yutopp/compilet/pkg/report"
	"github.com/yutopp/compilet/pkg/service/compiler"
	"github.com/yutopp/compilet/pkg/service/executor"
)

type Config struct {
	Table       *language.Table
	Preferences compiler.PreferenceSource
	Runner      executor.Runner
	Sandbox     domain.SandboxSettings

	Logger *zap.Logger
}

// Server serves compile requests over gRPC and HTTP.
type Server struct {
	config *Config
}

func NewServer(c *Config) *Server {
	cfg := *c
	if cfg.Table == nil {
		cfg.Table = language.DefaultTable()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Server{
		config: &cfg,
	}
}

type compileResult struct {
	domain.CompileOutcome

	// Text written to the diagnostics channel.
	Report string `json:"report"`
}

func (s *Server) compile(ctx context.Context, srcPath string) (*compileResult, error) {
	if err := s.config.Table.CheckSupported(srcPath); err != nil {
		return nil, err
	}

	buf := report.NewBuffer()
	c := compiler.New(&compiler.Config{
		Table:       s.config.Table,
		Preferences: s.config.Preferences,
		Runner:      s.config.Runner,
		Reporter:    buf,
		Sandbox:     s.config.Sandbox,
		Logger:      s.config.Logger,
	})

	outcome, err := c.Compile(ctx, srcPath)
	if err != nil {
		return nil, err
	}

	return &compileResult{
		CompileOutcome: *outcome,
		Report:         buf.String(),
	}, nil
}

func isUserError(err error) bool {
	return errors.Is(err, domain.ErrUnrecognizedExtension)
}
