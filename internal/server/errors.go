package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/moogar0880/problems"
	"go.uber.org/zap"

	"photocurate/internal/workflow"
)

func (s *Server) problem(c *gin.Context, status int, kind, detail string) {
	p := problems.NewStatusProblem(status).
		WithInstance(c.Request.URL.Path).
		WithType(kind).
		WithDetail(detail)

	c.AbortWithStatusJSON(status, p)
}

func (s *Server) badRequest(c *gin.Context, detail string) {
	s.problem(c, http.StatusBadRequest, "invalid_request", detail)
}

// fail maps workflow errors onto problem documents.
func (s *Server) fail(c *gin.Context, err error) {
	switch {
	case workflow.IsInvalidImage(err):
		s.problem(c, http.StatusBadRequest, "invalid_image_format", err.Error())
	case workflow.IsInvalidRequest(err):
		s.problem(c, http.StatusBadRequest, "invalid_request", err.Error())
	case workflow.IsNotFound(err):
		s.problem(c, http.StatusNotFound, "not_found", err.Error())
	case workflow.IsNotApproved(err):
		s.problem(c, http.StatusConflict, "not_approved", err.Error())
	case workflow.IsGenerationFailed(err):
		s.logger.Error("generation failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
		s.problem(c, http.StatusInternalServerError, "generation_failed", "variation generation failed, retry with regenerate")
	default:
		s.logger.Error("internal error", zap.String("path", c.Request.URL.Path), zap.Error(err))
		s.problem(c, http.StatusInternalServerError, "internal_error", "internal error")
	}
}
