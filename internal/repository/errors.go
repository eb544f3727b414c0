package repository

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

var (
	ErrNotFound      = errors.New("short link not found")
	ErrCodeCollision = errors.New("short code already taken")
	ErrInactive      = errors.New("short link inactive")
	ErrForbidden     = errors.New("requester is not the owner")
	ErrUnavailable   = errors.New("store unavailable")
)

// IsCodeCollision 供短码生成器判断是否需要换码重试
func IsCodeCollision(err error) bool {
	return errors.Is(err, ErrCodeCollision)
}

// translateError 将 gorm/驱动错误归一为仓储层错误
func translateError(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey), isDuplicateMessage(err):
		return ErrCodeCollision
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return errors.Wrap(err, op)
	default:
		return errors.WithMessagef(ErrUnavailable, "%s: %v", op, err)
	}
}

func isDuplicateMessage(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique constraint")
}
