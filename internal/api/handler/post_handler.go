package handler

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/zenith-cms/internal/service"
	"github.com/d60-Lab/zenith-cms/pkg/response"
)

const (
	msgPostNotFound    = "Post not found"
	msgInvalidBody     = "Invalid request body"
	msgPostCreated     = "Post created!"
	msgPostUpdated     = "Post updated!"
	msgPostDeleted     = "Post deleted!"
	msgFetchPostsError = service.MsgFetchPostsFailed
	msgFetchPostError  = "Failed to fetch post"
	msgCreateError     = "Failed to create post"
	msgUpdateError     = "Failed to update post"
	msgDeleteError     = "Failed to delete post"
)

// ListPosts 查询全部文章（按创建时间倒序）
// @Summary 文章列表
// @Tags 文章
// @Produce json
// @Success 200 {array} model.Post
// @Failure 500 {object} response.ErrorBody
// @Router /api/posts [get]
func (h *Handler) ListPosts(c *gin.Context) {
	posts, err := h.postService.List(c.Request.Context())
	if err != nil {
		h.fail(c, err, msgFetchPostsError)
		return
	}
	response.Success(c, posts)
}

// GetPost 查询单篇文章
// @Summary 文章详情
// @Tags 文章
// @Produce json
// @Param id path string true "文章ID"
// @Success 200 {object} model.Post
// @Failure 404 {object} response.ErrorBody
// @Failure 500 {object} response.ErrorBody
// @Router /api/posts/{id} [get]
func (h *Handler) GetPost(c *gin.Context) {
	post, err := h.postService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, msgFetchPostError)
		return
	}
	response.Success(c, post)
}

// CreatePost 发布文章
// @Summary 发布文章
// @Tags 文章
// @Accept json
// @Produce json
// @Param request body service.CreatePostInput true "文章内容"
// @Success 201 {object} response.CreatedBody
// @Failure 400 {object} response.ErrorBody
// @Failure 500 {object} response.ErrorBody
// @Router /api/posts [post]
func (h *Handler) CreatePost(c *gin.Context) {
	var req service.CreatePostInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, msgInvalidBody)
		return
	}
	id, err := h.postService.Create(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err, msgCreateError)
		return
	}
	response.Created(c, msgPostCreated, id)
}

// UpdatePost 部分更新文章；省略或空白的字段保持不变，请求体可以为空
// @Summary 编辑文章
// @Tags 文章
// @Accept json
// @Produce json
// @Param id path string true "文章ID"
// @Param request body service.UpdatePostInput true "要修改的字段"
// @Success 200 {object} response.MessageBody
// @Failure 400 {object} response.ErrorBody
// @Failure 404 {object} response.ErrorBody
// @Failure 500 {object} response.ErrorBody
// @Router /api/posts/{id} [patch]
func (h *Handler) UpdatePost(c *gin.Context) {
	var req service.UpdatePostInput
	// 空请求体等同于空字段集，只刷新 updatedAt
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, msgInvalidBody)
		return
	}
	if err := h.postService.Update(c.Request.Context(), c.Param("id"), req); err != nil {
		h.fail(c, err, msgUpdateError)
		return
	}
	response.Message(c, msgPostUpdated)
}

// DeletePost 永久删除文章
// @Summary 删除文章
// @Tags 文章
// @Produce json
// @Param id path string true "文章ID"
// @Success 200 {object} response.MessageBody
// @Failure 404 {object} response.ErrorBody
// @Failure 500 {object} response.ErrorBody
// @Router /api/posts/{id} [delete]
func (h *Handler) DeletePost(c *gin.Context) {
	if err := h.postService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err, msgDeleteError)
		return
	}
	response.Message(c, msgPostDeleted)
}

// Health 存活检查
// @Summary 健康检查
// @Tags 系统
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *Handler) Health(c *gin.Context) {
	response.Success(c, gin.H{"status": "ok"})
}
