package utils

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"unicode"
)

const MaxTargetURLLength = 2048

// ValidateTargetURL 校验目标 URL：必须是带主机名的 http/https 绝对地址
func ValidateTargetURL(targetURL string) error {
	// 1. 检查目标 URL 是否为空
	if targetURL == "" {
		return fmt.Errorf("error.target_url_required")
	}

	// 2. URL 长度限制
	if len(targetURL) > MaxTargetURLLength {
		return fmt.Errorf("error.target_url_max_length")
	}

	if ContainsWhitespace(targetURL) {
		return fmt.Errorf("error.target_url_invalid")
	}

	// 3. URL 格式校验
	u, err := url.ParseRequestURI(targetURL)
	if err != nil || u.Host == "" || u.Hostname() == "" {
		return fmt.Errorf("error.target_url_invalid")
	}
	if scheme := strings.ToLower(u.Scheme); scheme != "http" && scheme != "https" {
		return fmt.Errorf("error.target_url_scheme")
	}
	return nil
}

// HostOf 返回 URL 的小写主机名（不含端口）
func HostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSuffix(u.Hostname(), "."))
}

// MatchesDomain host 等于 domain 或是其子域名
func MatchesDomain(host, domain string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	domain = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(domain), "."))
	if host == "" || domain == "" {
		return false
	}
	if net.ParseIP(domain) != nil {
		return host == domain
	}
	return host == domain || strings.HasSuffix(host, "."+domain)
}

func ContainsWhitespace(s string) bool {
	for _, r := range s {
		if unicode.IsSpace(r) {
			return true
		}
	}
	return false
}
