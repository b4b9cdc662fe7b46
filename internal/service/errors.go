package service

import (
	"errors"
	"fmt"
)

var (
	// ErrPostNotFound id 不对应任何文章（包括格式不合法的 id）
	ErrPostNotFound = errors.New("post not found")

	// ErrStaleSnapshot 客户端操作的文章已不在本地快照中；只在客户端使用
	ErrStaleSnapshot = errors.New("post is no longer in the snapshot")
)

// MsgRequiredFields is the message returned when title or content is blank.
const MsgRequiredFields = "Title and content are required"

// MsgFetchPostsFailed 列表读取失败时展示给用户的固定文案；存储层细节只写日志
const MsgFetchPostsFailed = "Failed to fetch posts"

// ValidationError 客户端提交的数据未通过校验
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error (%s): %s", e.Field, e.Message)
}

func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func IsValidationError(err error) bool {
	var valErr *ValidationError
	return errors.As(err, &valErr)
}

// StorageError 底层存储失败
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func IsStorageError(err error) bool {
	var stErr *StorageError
	return errors.As(err, &stErr)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrPostNotFound)
}
