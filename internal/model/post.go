package model

import "time"

const (
	DefaultCategory = "General"
	DefaultAuthor   = "Anonymous"
)

// Post 博客文章；UpdatedAt 在首次编辑前为 nil
type Post struct {
	// Seq 是插入序号，仅用于同一 CreatedAt 下的稳定排序，不对外暴露
	Seq       int64      `json:"-" gorm:"primaryKey;autoIncrement"`
	ID        string     `json:"id" gorm:"type:varchar(36);uniqueIndex;not null"`
	Title     string     `json:"title" gorm:"type:text;not null"`
	Category  string     `json:"category" gorm:"type:text;index:idx_post_category;not null"`
	Author    string     `json:"author" gorm:"type:text;not null"`
	Content   string     `json:"content" gorm:"type:text;not null"`
	CreatedAt time.Time  `json:"createdAt" gorm:"index:idx_post_created;not null;autoCreateTime:false"`
	UpdatedAt *time.Time `json:"updatedAt" gorm:"autoUpdateTime:false"`
}

func (Post) TableName() string { return "posts" }

// Edited reports whether the post has been updated since creation.
func (p *Post) Edited() bool { return p.UpdatedAt != nil }

// PostFields 部分更新字段；nil 表示不修改
type PostFields struct {
	Title     *string
	Category  *string
	Author    *string
	Content   *string
	UpdatedAt time.Time
}

// Columns returns the column/value map for a partial update. UpdatedAt is
// always included.
func (f PostFields) Columns() map[string]any {
	cols := map[string]any{"updated_at": f.UpdatedAt}
	if f.Title != nil {
		cols["title"] = *f.Title
	}
	if f.Category != nil {
		cols["category"] = *f.Category
	}
	if f.Author != nil {
		cols["author"] = *f.Author
	}
	if f.Content != nil {
		cols["content"] = *f.Content
	}
	return cols
}
