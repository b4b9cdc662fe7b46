package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/d60-Lab/zenith-cms/internal/model"
	"github.com/d60-Lab/zenith-cms/internal/repository"
)

// CreatePostInput 创建文章的请求体；category / author 可省略
type CreatePostInput struct {
	Title    string `json:"title" validate:"required"`
	Category string `json:"category"`
	Author   string `json:"author"`
	Content  string `json:"content" validate:"required"`
}

// normalize 去除首尾空白并补默认值
func (in CreatePostInput) normalize() CreatePostInput {
	out := CreatePostInput{
		Title:    strings.TrimSpace(in.Title),
		Category: strings.TrimSpace(in.Category),
		Author:   strings.TrimSpace(in.Author),
		Content:  strings.TrimSpace(in.Content),
	}
	if out.Category == "" {
		out.Category = model.DefaultCategory
	}
	if out.Author == "" {
		out.Author = model.DefaultAuthor
	}
	return out
}

// UpdatePostInput 部分更新；nil 或空白字段保持原值（不支持清空字段）
type UpdatePostInput struct {
	Title    *string `json:"title,omitempty"`
	Category *string `json:"category,omitempty"`
	Author   *string `json:"author,omitempty"`
	Content  *string `json:"content,omitempty"`
}

// PostService 文章服务
type PostService interface {
	Create(ctx context.Context, in CreatePostInput) (string, error)
	Update(ctx context.Context, id string, in UpdatePostInput) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*model.Post, error)
	Get(ctx context.Context, id string) (*model.Post, error)
}

// Clock returns the current time.
type Clock func() time.Time

type Option func(*postService)

// WithClock 注入时钟，测试用
func WithClock(c Clock) Option {
	return func(s *postService) { s.now = c }
}

type postService struct {
	repo     repository.PostRepository
	validate *validator.Validate
	now      Clock
}

func NewPostService(repo repository.PostRepository, opts ...Option) PostService {
	s := &postService{
		repo:     repo,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// timestamp 统一为 UTC 毫秒精度，保证各存储引擎往返一致
func (s *postService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

func (s *postService) Create(ctx context.Context, in CreatePostInput) (string, error) {
	in = in.normalize()
	if err := s.validate.Struct(in); err != nil {
		field := "title"
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			field = strings.ToLower(verrs[0].Field())
		}
		return "", NewValidationError(field, MsgRequiredFields)
	}

	post := &model.Post{
		Title:     in.Title,
		Category:  in.Category,
		Author:    in.Author,
		Content:   in.Content,
		CreatedAt: s.timestamp(),
	}
	id, err := s.repo.Insert(ctx, post)
	if err != nil {
		return "", &StorageError{Op: "create", Err: err}
	}
	return id, nil
}

func (s *postService) Update(ctx context.Context, id string, in UpdatePostInput) error {
	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	now := s.timestamp()
	if now.Before(current.CreatedAt) {
		// 多实例时钟漂移时保持 updatedAt >= createdAt
		now = current.CreatedAt
	}
	fields := model.PostFields{
		Title:     nonBlank(in.Title),
		Category:  nonBlank(in.Category),
		Author:    nonBlank(in.Author),
		Content:   nonBlank(in.Content),
		UpdatedAt: now,
	}
	matched, err := s.repo.UpdateFields(ctx, id, fields)
	if err != nil {
		return &StorageError{Op: "update", Err: err}
	}
	if !matched {
		return ErrPostNotFound
	}
	return nil
}

func (s *postService) Delete(ctx context.Context, id string) error {
	removed, err := s.repo.Delete(ctx, id)
	if err != nil {
		return &StorageError{Op: "delete", Err: err}
	}
	if !removed {
		return ErrPostNotFound
	}
	return nil
}

func (s *postService) List(ctx context.Context) ([]*model.Post, error) {
	posts, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, &StorageError{Op: "list", Err: err}
	}
	return posts, nil
}

func (s *postService) Get(ctx context.Context, id string) (*model.Post, error) {
	post, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, &StorageError{Op: "get", Err: err}
	}
	return post, nil
}

// nonBlank 返回去空白后的值；nil 或空白返回 nil
func nonBlank(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}
