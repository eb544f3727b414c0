package response

import (
	"time"
)

// Response 是一个通用的 API 响应结构
type Response[T any] struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Code      string `json:"code,omitempty"`
	Data      T      `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// PageResponse 分页响应结构体
type PageResponse[T any] struct {
	Page      int   `json:"page"`
	Size      int   `json:"size"`
	TotalPage int   `json:"totalPage"`
	Total     int64 `json:"total"`
	List      []T   `json:"list"`
}

// NewPage 根据总数计算总页数；size <= 0 表示不分页
func NewPage[T any](list []T, page, size int, total int64) *PageResponse[T] {
	if list == nil {
		list = []T{}
	}
	totalPage := 1
	if size > 0 {
		totalPage = int((total + int64(size) - 1) / int64(size))
	}
	return &PageResponse[T]{
		Page:      page,
		Size:      size,
		TotalPage: totalPage,
		Total:     total,
		List:      list,
	}
}

// OK 构造一个成功的响应
func OK[T any](data T, message string) *Response[T] {
	return &Response[T]{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	}
}

// Error 构造一个失败的响应
func Error(code, message string) *Response[any] {
	return &Response[any]{
		Success:   false,
		Message:   message,
		Code:      code,
		Data:      nil,
		Timestamp: time.Now().UnixMilli(),
	}
}
