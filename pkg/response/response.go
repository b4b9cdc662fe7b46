package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorBody 错误响应体；Details 仅用于诊断，客户端不得据此做流程判断
type ErrorBody struct {
	Error   string `json:"error" example:"Post not found"`
	Details string `json:"details,omitempty"`
}

// MessageBody 写操作成功响应
type MessageBody struct {
	Message string `json:"message" example:"Post updated!"`
}

// CreatedBody 创建成功响应
type CreatedBody struct {
	Message string `json:"message" example:"Post created!"`
	ID      string `json:"id"`
}

func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

func Created(c *gin.Context, message, id string) {
	c.JSON(http.StatusCreated, CreatedBody{Message: message, ID: id})
}

func Message(c *gin.Context, message string) {
	c.JSON(http.StatusOK, MessageBody{Message: message})
}

func Error(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, ErrorBody{Error: message})
}

func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, message)
}

func TooManyRequests(c *gin.Context, message string) {
	Error(c, http.StatusTooManyRequests, message)
}

// InternalError 写 500；details 为空时不输出该字段。err 挂到 gin 上下文供日志与 Sentry 中间件使用
func InternalError(c *gin.Context, message string, err error, details string) {
	if err != nil {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorBody{Error: message, Details: details})
}
