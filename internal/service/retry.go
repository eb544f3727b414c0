package service

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"shortlink-go/internal/repository"
)

// withRetry 存储暂不可用时退避后重试一次，其余错误直接返回
func withRetry[T any](ctx context.Context, backoff time.Duration, op func() (T, error)) (T, error) {
	v, err := op()
	if err == nil || !errors.Is(err, repository.ErrUnavailable) {
		return v, err
	}

	zap.L().Warn("Store unavailable, retrying once", zap.Duration("backoff", backoff), zap.Error(err))
	timer := time.NewTimer(backoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return v, err
	case <-timer.C:
	}
	return op()
}
