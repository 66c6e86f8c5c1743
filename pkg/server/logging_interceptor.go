package server

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

func NewLoggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		addr := ""
		if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
			addr = p.Addr.String()
		}
		logger.Info(
			"Request",
			zap.String("Procedure", info.FullMethod),
			zap.String("Protocol", "grpc"),
			zap.String("Addr", addr),
		)

		res, err := handler(ctx, req)
		if err != nil {
			logger.Info("Error", zap.String("Code", status.Code(err).String()), zap.Error(err))
		}
		return res, err
	}
}

func newGinLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info(
			"Request",
			zap.String("Procedure", c.FullPath()),
			zap.String("Protocol", c.Request.Proto),
			zap.String("Addr", c.ClientIP()),
			zap.Int("Status", c.Writer.Status()),
			zap.Duration("Elapsed", time.Since(start)),
		)
	}
}
