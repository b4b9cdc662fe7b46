package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/d60-Lab/zenith-cms/internal/model"
)

type gormPostRepository struct {
	db *gorm.DB
}

// NewGormPostRepository 基于 gorm（sqlite / postgres）的文章仓储
func NewGormPostRepository(db *gorm.DB) PostRepository {
	return &gormPostRepository{db: db}
}

func (r *gormPostRepository) Insert(ctx context.Context, post *model.Post) (string, error) {
	post.ID = uuid.New().String()
	post.Seq = 0
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return "", err
	}
	return post.ID, nil
}

func (r *gormPostRepository) FindAll(ctx context.Context) ([]*model.Post, error) {
	res := make([]*model.Post, 0)
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("seq ASC").
		Find(&res).Error
	return res, err
}

func (r *gormPostRepository) FindByID(ctx context.Context, id string) (*model.Post, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	var post model.Post
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *gormPostRepository) UpdateFields(ctx context.Context, id string, fields model.PostFields) (bool, error) {
	if !validID(id) {
		return false, nil
	}
	res := r.db.WithContext(ctx).
		Model(&model.Post{}).
		Where("id = ?", id).
		Updates(fields.Columns())
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *gormPostRepository) Delete(ctx context.Context, id string) (bool, error) {
	if !validID(id) {
		return false, nil
	}
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Post{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *gormPostRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// validID 只接受规范的 36 位 UUID 字符串
func validID(id string) bool {
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}
