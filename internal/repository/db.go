package repository

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"shortlink-go/internal/config"
	"shortlink-go/internal/model"
	"shortlink-go/pkg/logging"
)

var DB *gorm.DB

// InitDB 初始化全局数据库连接，失败直接退出
func InitDB(cfg config.DBConfig, logger *zap.Logger, atomicLogLevel zap.AtomicLevel) {
	db, err := OpenDB(cfg, logger, atomicLogLevel)
	if err != nil {
		logging.Logger.Fatal("Failed to connect database", zap.String("driver", cfg.Driver), zap.Error(err))
	}
	DB = db
}

// OpenDB 按驱动打开数据库并自动迁移
func OpenDB(cfg config.DBConfig, logger *zap.Logger, atomicLogLevel zap.AtomicLevel) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported db driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logging.NewGormLogger(logger, logging.ToGormLogLevel(atomicLogLevel.Level()), cfg.SlowThreshold),
		TranslateError: true, // 唯一键冲突 -> gorm.ErrDuplicatedKey
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	if cfg.Driver == "sqlite" {
		// sqlite 单写者；内存库依赖同一连接常驻
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	} else {
		if cfg.MaxOpenConns > 0 {
			sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		}
		if cfg.ConnMaxLifetime > 0 {
			sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		}
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.ShortLink{}, &model.DailyStat{}, &model.BlockedDomain{}); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	return nil
}

// CloseDB 关闭底层连接池
func CloseDB(db *gorm.DB) {
	if db == nil {
		return
	}
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		logging.Logger.Warn("Database close failed", zap.Error(err))
	}
}
