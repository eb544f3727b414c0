package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"shortlink-go/internal/config"
	"shortlink-go/internal/repository"
)

// NewSQLiteDB 每次调用返回独立的内存库（单连接），测试结束自动关闭
func NewSQLiteDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := repository.OpenDB(config.DBConfig{Driver: "sqlite", DSN: ":memory:"},
		zap.NewNop(), zap.NewAtomicLevelAt(zap.ErrorLevel))
	require.NoError(t, err)
	t.Cleanup(func() { repository.CloseDB(db) })
	return db
}
