package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/zenith-cms/internal/service"
	"github.com/d60-Lab/zenith-cms/pkg/logger"
	"github.com/d60-Lab/zenith-cms/pkg/response"
)

// Handler 聚合 REST 接口依赖
type Handler struct {
	postService        service.PostService
	exposeErrorDetails bool
}

type Option func(*Handler)

// WithErrorDetails 在 500 响应中附带存储错误文本，仅用于排障
func WithErrorDetails(enabled bool) Option {
	return func(h *Handler) { h.exposeErrorDetails = enabled }
}

func NewHandler(postService service.PostService, opts ...Option) *Handler {
	h := &Handler{postService: postService}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// fail 把服务层错误映射为 HTTP 响应；message 是 500 时的对外文案
func (h *Handler) fail(c *gin.Context, err error, message string) {
	var valErr *service.ValidationError
	switch {
	case errors.As(err, &valErr):
		response.BadRequest(c, valErr.Message)
	case service.IsNotFound(err):
		response.NotFound(c, msgPostNotFound)
	default:
		logger.Error(message,
			zap.Error(err),
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.String("id", c.Param("id")),
		)
		details := ""
		if h.exposeErrorDetails {
			details = err.Error()
		}
		response.InternalError(c, message, err, details)
	}
}
