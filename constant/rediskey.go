package constant

import (
	"fmt"
	"time"
)

// 常量定义
const (
	BasePrefix = "shortlink:"
	Separator  = ":"
)

// Redis 键模板
const (
	ShortCode = BasePrefix + "code" + Separator + "%s"                       // shortlink:code:<shortcode>
	DailyPV   = BasePrefix + "pv" + Separator + "%s"                         // shortlink:pv:yyyyMMdd
	DailyUV   = BasePrefix + "uv" + Separator + "%s" + Separator + "%s"      // shortlink:uv:yyyyMMdd:shortcode
	TotalPV   = BasePrefix + "total_pv" + Separator + "%s"                   // shortlink:total_pv:shortcode
	TotalUV   = BasePrefix + "total_uv" + Separator + "%s"                   // shortlink:total_uv:shortcode
	RateLimit = BasePrefix + "ratelimit" + Separator + "%s" + Separator + "%d" // shortlink:ratelimit:ip:window
)

// DailyKeyTTL 每日 PV/UV 键保留 3 天
const DailyKeyTTL = 3 * 24 * time.Hour

// GetShortCodeKey 生成 shortCode 缓存 key
func GetShortCodeKey(shortcode string) string {
	return fmt.Sprintf(ShortCode, shortcode)
}

// GetDateKey 生成指定时间的日期键（格式：yyyyMMdd）
func GetDateKey(t time.Time) string {
	return t.Format("20060102")
}

// GetDailyPVKey 生成每日 PV 键
func GetDailyPVKey(date string) string {
	return fmt.Sprintf(DailyPV, date)
}

// GetDailyUVKey 生成每日 UV 键
func GetDailyUVKey(shortcode, date string) string {
	return fmt.Sprintf(DailyUV, date, shortcode)
}

// GetTotalUVKey 生成总 UV 键
func GetTotalUVKey(shortcode string) string {
	return fmt.Sprintf(TotalUV, shortcode)
}

// GetTotalPVKey 生成总 PV 键
func GetTotalPVKey(shortcode string) string {
	return fmt.Sprintf(TotalPV, shortcode)
}

// GetRateLimitKey 生成限流窗口键，window 为窗口序号
func GetRateLimitKey(client string, window int64) string {
	return fmt.Sprintf(RateLimit, client, window)
}
