package search

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest 请求参数不合法，ValidationError 可通过 errors.Is 匹配
	ErrInvalidRequest = errors.New("invalid search request")
	// ErrTenantRequired 缺少租户上下文
	ErrTenantRequired = errors.New("tenant is required")

	// ErrInvalidFaceImage 人脸图片无法解码或不是图片
	ErrInvalidFaceImage = errors.New("invalid face image")
	// ErrFaceEmbedding 人脸向量提取失败
	ErrFaceEmbedding = errors.New("face embedding failed")
	// ErrNoFaceDetected 图片中未检测到人脸
	ErrNoFaceDetected = errors.New("no face detected in image")
)

// ValidationError 字段级校验错误
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidRequest
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
