package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"shortlink-go/pkg/utils"
)

// DomainSource 禁用域名的持久化来源
type DomainSource interface {
	SeedBlockedDomains(ctx context.Context, domains []string) error
	ListBlockedDomains(ctx context.Context) ([]string, error)
}

// DomainPolicy 禁止为指定域名（含子域名）创建短链，服务自身域名默认禁用以防跳转循环
type DomainPolicy struct {
	source  DomainSource
	mu      sync.RWMutex
	domains []string
}

// NewDomainPolicy 写入配置中的禁用域名并加载全量列表
func NewDomainPolicy(ctx context.Context, source DomainSource, seeds []string) (*DomainPolicy, error) {
	p := &DomainPolicy{source: source}
	if err := source.SeedBlockedDomains(ctx, seeds); err != nil {
		return nil, err
	}
	if err := p.Reload(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

// Reload 从存储重新加载禁用域名
func (p *DomainPolicy) Reload(ctx context.Context) error {
	domains, err := p.source.ListBlockedDomains(ctx)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.domains = domains
	p.mu.Unlock()
	zap.L().Info("Blocked domains loaded", zap.Int("count", len(domains)))
	return nil
}

func (p *DomainPolicy) IsBlocked(host string) bool {
	if p == nil || host == "" {
		return false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, d := range p.domains {
		if utils.MatchesDomain(host, d) {
			return true
		}
	}
	return false
}
