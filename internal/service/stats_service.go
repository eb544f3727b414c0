package service

import (
	"context"
	"time"

	"github.com/gomodule/redigo/redis"
	"go.uber.org/zap"

	"shortlink-go/constant"
	"shortlink-go/internal/model"
	"shortlink-go/internal/repository"
	"shortlink-go/pkg/logging"
)

const dailyKeyTTLSeconds = int64(constant.DailyKeyTTL / time.Second)

// VisitRecorder 成功跳转后记录 PV/UV，失败只记日志
type VisitRecorder interface {
	RecordVisit(ctx context.Context, shortCode, ip string, at time.Time)
}

type nopVisitRecorder struct{}

func (nopVisitRecorder) RecordVisit(context.Context, string, string, time.Time) {}

type connFunc func(ctx context.Context) (redis.Conn, error)

// RedisVisitRecorder 基于 Redis 计数：每日 PV 用 Hash，UV 用 HyperLogLog
type RedisVisitRecorder struct {
	getConn connFunc
}

func NewRedisVisitRecorder(pool *redis.Pool) *RedisVisitRecorder {
	return &RedisVisitRecorder{getConn: pool.GetContext}
}

func (r *RedisVisitRecorder) RecordVisit(ctx context.Context, shortCode, ip string, at time.Time) {
	conn, err := r.getConn(ctx)
	if err != nil {
		logging.Logger.Warn("Redis get connection failed", zap.Error(err))
		return
	}
	defer closeRedisConn(conn)

	date := constant.GetDateKey(at)
	RecordDailyPV(conn, shortCode, date)
	RecordDailyUV(conn, shortCode, ip, date)
	RecordTotalPV(conn, shortCode)
	RecordTotalUV(conn, shortCode, ip)
}

// RecordDailyPV 记录每日 PV
func RecordDailyPV(conn redis.Conn, shortCode string, date string) {
	dailyPvKey := constant.GetDailyPVKey(date)

	_, err := conn.Do("HINCRBY", dailyPvKey, shortCode, 1)
	if err != nil {
		logging.Logger.Error("Failed to record daily PV",
			zap.String("key", dailyPvKey),
			zap.String("short_code", shortCode),
			zap.Error(err))
	}

	_, err = conn.Do("EXPIRE", dailyPvKey, dailyKeyTTLSeconds)
	if err != nil {
		logging.Logger.Error("Failed to record daily PV Expire",
			zap.String("key", dailyPvKey),
			zap.String("short_code", shortCode),
			zap.Error(err))
	}
}

// RecordDailyUV 记录每日 UV
func RecordDailyUV(conn redis.Conn, shortCode string, ip string, date string) {
	dailyUvKey := constant.GetDailyUVKey(shortCode, date)

	_, err := conn.Do("PFADD", dailyUvKey, ip)
	if err != nil {
		logging.Logger.Error("Failed to record daily UV",
			zap.String("key", dailyUvKey),
			zap.String("ip", ip),
			zap.Error(err))
	}

	_, err = conn.Do("EXPIRE", dailyUvKey, dailyKeyTTLSeconds)
	if err != nil {
		logging.Logger.Error("Failed to record daily UV Expire",
			zap.String("key", dailyUvKey),
			zap.String("short_code", shortCode),
			zap.Error(err))
	}
}

// RecordTotalPV 记录总 PV
func RecordTotalPV(conn redis.Conn, shortCode string) {
	totalPvKey := constant.GetTotalPVKey(shortCode)
	_, err := conn.Do("INCR", totalPvKey)
	if err != nil {
		logging.Logger.Error("Failed to record total PV",
			zap.String("key", totalPvKey),
			zap.String("short_code", shortCode),
			zap.Error(err))
	}
}

// RecordTotalUV 记录总UV
func RecordTotalUV(conn redis.Conn, shortCode string, ip string) {
	totalUvKey := constant.GetTotalUVKey(shortCode)
	_, err := conn.Do("PFADD", totalUvKey, ip)
	if err != nil {
		logging.Logger.Error("Failed to record total UV",
			zap.String("key", totalUvKey),
			zap.String("ip", ip),
			zap.Error(err))
	}
}

// GetDailyPv 获取某日期的短链接访问量（PV），无记录时为 0
func GetDailyPv(conn redis.Conn, shortCode string, date string) (int64, error) {
	key := constant.GetDailyPVKey(date)
	return readCounter(conn, "daily PV", key, shortCode, "HGET", key, shortCode)
}

// GetDailyUv 获取某日期的短链接独立访客数（UV）
func GetDailyUv(conn redis.Conn, shortCode string, date string) (int64, error) {
	key := constant.GetDailyUVKey(shortCode, date)
	return readCounter(conn, "daily UV", key, shortCode, "PFCOUNT", key)
}

// GetTotalPv 获取短链接的总访问量（PV）
func GetTotalPv(conn redis.Conn, shortCode string) (int64, error) {
	key := constant.GetTotalPVKey(shortCode)
	return readCounter(conn, "total PV", key, shortCode, "GET", key)
}

// GetTotalUv 获取短链接的总独立访客数（UV）
func GetTotalUv(conn redis.Conn, shortCode string) (int64, error) {
	key := constant.GetTotalUVKey(shortCode)
	return readCounter(conn, "total UV", key, shortCode, "PFCOUNT", key)
}

func readCounter(conn redis.Conn, name, key, shortCode, cmd string, args ...interface{}) (int64, error) {
	result, err := redis.Int64(conn.Do(cmd, args...))
	if err == redis.ErrNil {
		return 0, nil
	}
	if err != nil {
		logging.Logger.Error("Failed to get "+name,
			zap.String("key", key),
			zap.String("short_code", shortCode),
			zap.Error(err))
		return 0, err
	}
	return result, nil
}

// StatsWriter 统计落库
type StatsWriter interface {
	UpsertDailyStat(ctx context.Context, stat *model.DailyStat) error
	UpdateTotals(ctx context.Context, shortLinkID uint, totalPV, totalUV int64) error
}

// StatsSyncer 定时把 Redis 计数同步到 daily_stats 与 short_links
type StatsSyncer struct {
	links   repository.MappingStore
	stats   StatsWriter
	getConn connFunc
	nowFunc func() time.Time
}

func NewStatsSyncer(links repository.MappingStore, stats StatsWriter, pool *redis.Pool) *StatsSyncer {
	return &StatsSyncer{
		links:   links,
		stats:   stats,
		getConn: pool.GetContext,
		nowFunc: func() time.Time { return time.Now().UTC() },
	}
}

// SyncStatistics 同步当日统计；失效超过一天的短链跳过
func (s *StatsSyncer) SyncStatistics(ctx context.Context) error {
	logging.Logger.Info("StatisticalData start")
	now := s.nowFunc()
	links, err := s.links.ListForStats(ctx, now.Add(-24*time.Hour))
	if err != nil {
		logging.Logger.Error("获取短链列表失败", zap.Error(err))
		return err
	}

	conn, err := s.getConn(ctx)
	if err != nil {
		logging.Logger.Error("Redis get connection failed", zap.Error(err))
		return err
	}
	defer closeRedisConn(conn)

	synced := 0
	for i := range links {
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.syncOne(ctx, conn, &links[i], now) {
			synced++
		}
	}

	logging.Logger.Info("StatisticalData end", zap.Int("links", len(links)), zap.Int("synced", synced))
	return nil
}

func (s *StatsSyncer) syncOne(ctx context.Context, conn redis.Conn, link *model.ShortLink, now time.Time) bool {
	redisDate := constant.GetDateKey(now)
	dailyPv, err1 := GetDailyPv(conn, link.ShortCode, redisDate)
	dailyUv, err2 := GetDailyUv(conn, link.ShortCode, redisDate)
	totalPv, err3 := GetTotalPv(conn, link.ShortCode)
	totalUv, err4 := GetTotalUv(conn, link.ShortCode)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return false
	}

	// 更新数据库中的每日统计（DailyStat）
	dailyStat := &model.DailyStat{
		ShortLinkID: link.ID,
		Date:        now.Format("2006-01-02"),
		PV:          dailyPv,
		UV:          dailyUv,
	}
	if err := s.stats.UpsertDailyStat(ctx, dailyStat); err != nil {
		logging.Logger.Error("Failed to insert or update daily stat",
			zap.Uint("short_link_id", link.ID),
			zap.String("date", dailyStat.Date),
			zap.Int64("pv", dailyPv),
			zap.Int64("uv", dailyUv),
			zap.Error(err),
		)
		return false
	}

	// 更新数据库中的短链接总 PV/UV
	if err := s.stats.UpdateTotals(ctx, link.ID, totalPv, totalUv); err != nil {
		logging.Logger.Error("Failed to update total PV/UV",
			zap.Uint("id", link.ID),
			zap.Int64("total_pv", totalPv),
			zap.Int64("total_uv", totalUv),
			zap.Error(err))
		return false
	}
	return true
}

func closeRedisConn(conn redis.Conn) {
	if err := conn.Close(); err != nil {
		logging.Logger.Error("Failed to close Redis connection",
			zap.Error(err),
			zap.String("operation", "close"),
			zap.String("connection_type", "redis"),
		)
	}
}
