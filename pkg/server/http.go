package server

import (
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type compileRequest struct {
	Path string `json:"path" binding:"required"`
}

type languageEntry struct {
	Language  string `json:"language"`
	Extension string `json:"extension"`
}

func NewHTTPHandler(s *Server) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), newGinLogger(s.config.Logger))

	v1 := r.Group("/v1")
	v1.POST("/compile", s.handleCompile)
	v1.GET("/languages", s.handleLanguages)

	return r
}

func (s *Server) handleCompile(c *gin.Context) {
	var req compileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := s.compile(c.Request.Context(), req.Path)
	if err != nil {
		code := http.StatusInternalServerError
		if isUserError(err) {
			code = http.StatusBadRequest
		} else if errors.HasAssertionFailure(err) {
			s.config.Logger.Error("assertion failure", zap.Error(err))
		}
		c.JSON(code, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, res)
}

func (s *Server) handleLanguages(c *gin.Context) {
	entries := s.config.Table.Entries()
	res := make([]languageEntry, 0, len(entries))
	for _, e := range entries {
		res = append(res, languageEntry{
			Language:  string(e.Language),
			Extension: e.Extension,
		})
	}

	c.JSON(http.StatusOK, gin.H{"languages": res})
}
