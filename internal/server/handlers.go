package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"photocurate/internal/blob"
	"photocurate/internal/workflow"
)

func (s *Server) handleUpload(c *gin.Context) {
	const op = "server.handleUpload"

	limit := s.cfg.MaxUploadBytes
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+multipartOverhead)

	file, err := c.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.tooLarge(c, limit)
			return
		}
		s.badRequest(c, "multipart field \"image\" is required")
		return
	}
	if file.Size > limit {
		s.tooLarge(c, limit)
		return
	}

	src, err := file.Open()
	if err != nil {
		s.fail(c, fmt.Errorf("%s: %w", op, err))
		return
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, limit+1))
	if err != nil {
		s.fail(c, fmt.Errorf("%s: %w", op, err))
		return
	}
	if int64(len(data)) > limit {
		s.tooLarge(c, limit)
		return
	}

	photo, err := s.ctrl.Upload(c.Request.Context(), data)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, photo)
}

func (s *Server) tooLarge(c *gin.Context, limit int64) {
	s.problem(c, http.StatusRequestEntityTooLarge, "upload_too_large",
		fmt.Sprintf("upload exceeds %d bytes", limit))
}

func (s *Server) handleGetPhoto(c *gin.Context) {
	detail, err := s.ctrl.Photo(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (s *Server) handleRegenerate(c *gin.Context) {
	vars, err := s.ctrl.Regenerate(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, vars)
}

func (s *Server) handlePreview(c *gin.Context) {
	res, err := s.ctrl.Preview(c.Request.Context(), c.Param("id"), c.Query("variation_id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handlePreviewCard(c *gin.Context) {
	img, err := s.ctrl.PreviewCard(c.Request.Context(), c.Param("id"), c.Query("variation_id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "image/jpeg", img)
}

func (s *Server) handlePendingApprovals(c *gin.Context) {
	pending, err := s.ctrl.PendingApprovals(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, pending)
}

func (s *Server) handleApprove(c *gin.Context) {
	var in workflow.ApproveInput
	if err := c.ShouldBindJSON(&in); err != nil && !errors.Is(err, io.EOF) {
		s.badRequest(c, err.Error())
		return
	}

	approval, photo, err := s.ctrl.Approve(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"approval": approval, "photo": photo})
}

func (s *Server) handlePublish(c *gin.Context) {
	var in workflow.PublishInput
	if err := c.ShouldBindJSON(&in); err != nil && !errors.Is(err, io.EOF) {
		s.badRequest(c, err.Error())
		return
	}

	pub, err := s.ctrl.Publish(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, pub)
}

func (s *Server) handleGetFile(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	data, err := s.blobs.Get(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) || key == "" {
			s.problem(c, http.StatusNotFound, "not_found", "file not found")
			return
		}
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "image/jpeg", data)
}

func (s *Server) handleHeadFile(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	if key == "" {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}
	ok, err := s.blobs.Exists(c.Request.Context(), key)
	if err != nil {
		s.logger.Error("stat file", zap.String("key", key), zap.Error(err))
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	if !ok {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}
	c.Header("Content-Type", "image/jpeg")
	c.Status(http.StatusOK)
}
