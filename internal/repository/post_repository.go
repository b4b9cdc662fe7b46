package repository

import (
	"context"
	"errors"

	"github.com/d60-Lab/zenith-cms/internal/model"
)

// ErrNotFound 记录不存在，或 id 格式不符合当前存储引擎
var ErrNotFound = errors.New("post not found")

// PostRepository 文章仓储接口
type PostRepository interface {
	// Insert 写入新文章并返回存储生成的 id
	Insert(ctx context.Context, post *model.Post) (string, error)

	// FindAll 按 CreatedAt 倒序返回全部文章，相同时间按插入顺序
	FindAll(ctx context.Context) ([]*model.Post, error)

	// FindByID 不存在时返回 ErrNotFound
	FindByID(ctx context.Context, id string) (*model.Post, error)

	// UpdateFields 只更新非 nil 字段，返回是否匹配到记录
	UpdateFields(ctx context.Context, id string, fields model.PostFields) (bool, error)

	// Delete 返回是否删除了记录
	Delete(ctx context.Context, id string) (bool, error)

	// Close 关闭底层连接
	Close() error
}
