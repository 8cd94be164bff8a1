package errorutil

import (
	"errors"
	"fmt"
)

// Kind 错误分类（用于 errors.Is 匹配和回调中的错误标记）
type Kind string

const (
	KindTemplateUnavailable    Kind = "TEMPLATE_UNAVAILABLE"
	KindMalformedTable         Kind = "MALFORMED_TABLE"
	KindClassifierUnavailable  Kind = "CLASSIFIER_UNAVAILABLE"
	KindAttributionUnavailable Kind = "ATTRIBUTION_UNAVAILABLE"
	KindCancelled              Kind = "CANCELLED"
)

// 哨兵错误：只比较 Kind
var (
	ErrTemplateUnavailable    = &Error{Kind: KindTemplateUnavailable}
	ErrMalformedTable         = &Error{Kind: KindMalformedTable}
	ErrClassifierUnavailable  = &Error{Kind: KindClassifierUnavailable}
	ErrAttributionUnavailable = &Error{Kind: KindAttributionUnavailable}
	ErrCancelled              = &Error{Kind: KindCancelled}
)

// Error 错误结构（包含可重试标记）
type Error struct {
	Code       int    `json:"code"`
	Kind       Kind   `json:"kind,omitempty"`
	Message    string `json:"message"`
	Retryable  bool   `json:"retryable"`
	DevDetails string `json:"dev_details,omitempty"`

	cause error
}

// Error 实现 error 接口
func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	if e.Kind == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap 返回原始错误
func (e *Error) Unwrap() error {
	return e.cause
}

// Is 按 Kind 匹配哨兵错误
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Kind == "" {
		return false
	}
	return t.Kind == e.Kind
}

// Retriable 创建可重试错误（网络错误、临时故障等）
func Retriable(message string) *Error {
	return &Error{
		Code:      500,
		Message:   message,
		Retryable: true,
	}
}

// RetriableWithDetails 创建可重试错误（带详细信息）
func RetriableWithDetails(message string, details string) *Error {
	return &Error{
		Code:       500,
		Message:    message,
		Retryable:  true,
		DevDetails: details,
	}
}

// NonRetriable 创建不可重试错误（参数错误、业务规则错误等）
func NonRetriable(message string) *Error {
	return &Error{
		Code:      400,
		Message:   message,
		Retryable: false,
	}
}

// NonRetriableWithDetails 创建不可重试错误（带详细信息）
func NonRetriableWithDetails(message string, details string) *Error {
	return &Error{
		Code:       400,
		Message:    message,
		Retryable:  false,
		DevDetails: details,
	}
}

// TemplateUnavailable 特征模板无法加载（配置期致命错误）
func TemplateUnavailable(cause error, format string, args ...interface{}) *Error {
	return newKind(KindTemplateUnavailable, 500, cause, format, args...)
}

// MalformedTable 特征表结构非法（请求级致命错误）
func MalformedTable(format string, args ...interface{}) *Error {
	return newKind(KindMalformedTable, 400, nil, format, args...)
}

// ClassifierUnavailable 分类器无法调用（仅影响单个抗生素）
func ClassifierUnavailable(cause error, format string, args ...interface{}) *Error {
	return newKind(KindClassifierUnavailable, 500, cause, format, args...)
}

// AttributionUnavailable 特征归因无法计算
func AttributionUnavailable(cause error, format string, args ...interface{}) *Error {
	return newKind(KindAttributionUnavailable, 500, cause, format, args...)
}

// Cancelled 请求被取消或超时
func Cancelled(cause error, format string, args ...interface{}) *Error {
	return newKind(KindCancelled, 499, cause, format, args...)
}

func newKind(kind Kind, code int, cause error, format string, args ...interface{}) *Error {
	e := &Error{
		Code:    code,
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		cause:   cause,
	}
	if cause != nil {
		e.DevDetails = cause.Error()
	}
	return e
}

// KindOf 返回错误链上第一个带 Kind 的错误分类
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Wrap 包装错误（自动判断是否可重试）
func Wrap(err error) *Error {
	if err == nil {
		return nil
	}

	// 如果已经是 Error 类型，直接返回
	var e *Error
	if errors.As(err, &e) {
		return e
	}

	// 默认为不可重试错误
	return &Error{
		Code:       500,
		Message:    err.Error(),
		Retryable:  false,
		DevDetails: fmt.Sprintf("%+v", err),
		cause:      err,
	}
}

// UnWrapResponse 解包错误（用于 Response）
func UnWrapResponse(err error) *Error {
	if err == nil {
		return nil
	}
	return Wrap(err)
}
