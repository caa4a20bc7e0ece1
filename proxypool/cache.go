package manager

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"registry_nexus/internal/shared/logger"
	"registry_nexus/internal/shared/metrics"
	"registry_nexus/internal/shared/settings"
	"registry_nexus/proxypool/model"
	"registry_nexus/proxypool/scraper"
	"registry_nexus/proxypool/storage"
)

const (
	DefaultTTL           = time.Hour
	DefaultSourceTimeout = 5 * time.Second
)

// Options 控制缓存的有效期和每个源的抓取超时。
type Options struct {
	TTL           time.Duration
	SourceTimeout time.Duration
	UserAgent     string // used when scrapers are rebuilt from settings
}

// Cache 是公共代理列表的内存缓存。
// 列表非空且未过期时直接返回；否则并发抓取所有源，合并去重后打乱顺序。
type Cache struct {
	opts     Options
	storage  storage.Storage // 可为 nil
	metrics  *metrics.Metrics
	scrapers []scraper.Scraper

	mu          sync.RWMutex
	candidates  []*model.Candidate
	refreshedAt time.Time

	group   singleflight.Group
	now     func() time.Time
	shuffle func([]*model.Candidate)
}

// NewCache 创建缓存。storage 和 m 都可以为 nil。
func NewCache(opts Options, scrapers []scraper.Scraper, st storage.Storage, m *metrics.Metrics) *Cache {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.SourceTimeout <= 0 {
		opts.SourceTimeout = DefaultSourceTimeout
	}
	return &Cache{
		opts:     opts,
		storage:  st,
		metrics:  m,
		scrapers: scrapers,
		now:      time.Now,
		shuffle: func(list []*model.Candidate) {
			rand.Shuffle(len(list), func(i, j int) { list[i], list[j] = list[j], list[i] })
		},
	}
}

// Load 从存储恢复上一次的快照，使重启后在有效期内无需重新抓取。
func (c *Cache) Load() error {
	if c.storage == nil {
		return nil
	}
	snapshot, err := c.storage.Load()
	if err != nil {
		return fmt.Errorf("failed to load proxy cache snapshot: %w", err)
	}

	c.mu.Lock()
	c.candidates = snapshot.Candidates
	c.refreshedAt = snapshot.RefreshedAt
	c.mu.Unlock()
	c.setGauge(len(snapshot.Candidates))
	return nil
}

// GetProxies 返回候选代理 URL 列表，从不返回错误。
func (c *Cache) GetProxies(ctx context.Context) []string {
	if urls, ok := c.fresh(); ok {
		return urls
	}
	return c.Refresh(ctx)
}

// Refresh 无视有效期重新抓取。并发调用共享同一次抓取。
func (c *Cache) Refresh(ctx context.Context) []string {
	// 抓取结果会被所有等待者共享，不能因第一个调用者断开而中止。
	base := context.WithoutCancel(ctx)
	v, _, _ := c.group.Do("refresh", func() (interface{}, error) {
		return c.refresh(base), nil
	})
	return v.([]string)
}

// Invalidate 使下一次 GetProxies 重新抓取。
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.refreshedAt = time.Time{}
	c.mu.Unlock()
}

// Snapshot 返回当前缓存内容的副本。
func (c *Cache) Snapshot() *model.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	candidates := make([]*model.Candidate, 0, len(c.candidates))
	for _, cand := range c.candidates {
		cp := *cand
		candidates = append(candidates, &cp)
	}
	return &model.Snapshot{Candidates: candidates, RefreshedAt: c.refreshedAt}
}

// SetScrapers 替换抓取源，下一次刷新生效。
func (c *Cache) SetScrapers(scrapers []scraper.Scraper) {
	c.mu.Lock()
	c.scrapers = scrapers
	c.mu.Unlock()
}

// OnSettingsUpdate 实现 settings.ConfigurableModule 接口。
func (c *Cache) OnSettingsUpdate(moduleKey string, newSettings interface{}) error {
	if moduleKey != "sources" {
		return nil
	}
	s, ok := newSettings.(*settings.SourcesSettings)
	if !ok {
		return fmt.Errorf("invalid settings type for sources: %T", newSettings)
	}
	scrapers := scraper.FromSpecs(s.Lists, c.opts.UserAgent)
	c.SetScrapers(scrapers)
	c.Invalidate()
	l := logger.WithComponent("ProxyPool/Cache")
	l.Info().Int("sources", len(scrapers)).Msg("Proxy list sources updated.")
	return nil
}

func (c *Cache) fresh() ([]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.candidates) == 0 || c.now().Sub(c.refreshedAt) >= c.opts.TTL {
		return nil, false
	}
	return urlsOf(c.candidates), true
}

func (c *Cache) refresh(ctx context.Context) []string {
	l := logger.WithComponent("ProxyPool/Cache")

	c.mu.RLock()
	scrapers := c.scrapers
	c.mu.RUnlock()

	l.Info().Int("sources", len(scrapers)).Msg("Refreshing proxy list...")

	var wg sync.WaitGroup
	scrapedChan := make(chan []*model.Candidate, len(scrapers))

	for _, s := range scrapers {
		wg.Add(1)
		go func(sc scraper.Scraper) {
			defer wg.Done()
			sctx, cancel := context.WithTimeout(ctx, c.opts.SourceTimeout)
			defer cancel()

			proxies, err := sc.Scrape(sctx)
			if err != nil {
				l.Warn().Err(err).Str("source", sc.Name()).Msg("Proxy list source failed.")
				if c.metrics != nil {
					c.metrics.SourceFailures.WithLabelValues(sc.Name()).Inc()
				}
			}
			// 部分读取的结果依然可用。
			if len(proxies) > 0 {
				scrapedChan <- proxies
			}
		}(s)
	}

	wg.Wait()
	close(scrapedChan)

	seen := make(map[string]struct{})
	merged := make([]*model.Candidate, 0)
	for proxies := range scrapedChan {
		for _, p := range proxies {
			if _, exists := seen[p.URL]; exists {
				continue
			}
			seen[p.URL] = struct{}{}
			merged = append(merged, p)
		}
	}
	c.shuffle(merged)

	refreshedAt := c.now()
	c.mu.Lock()
	c.candidates = merged
	c.refreshedAt = refreshedAt
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.ProxyRefreshes.Inc()
	}
	c.setGauge(len(merged))
	l.Info().Int("count", len(merged)).Msg("Proxy list refreshed.")

	if c.storage != nil {
		snapshot := &model.Snapshot{Candidates: merged, RefreshedAt: refreshedAt}
		if err := c.storage.Save(snapshot); err != nil {
			l.Error().Err(err).Msg("Failed to save proxy cache snapshot.")
		}
	}

	return urlsOf(merged)
}

func (c *Cache) setGauge(n int) {
	if c.metrics != nil {
		c.metrics.ProxyCandidates.Set(float64(n))
	}
}

func urlsOf(candidates []*model.Candidate) []string {
	urls := make([]string, 0, len(candidates))
	for _, cand := range candidates {
		urls = append(urls, cand.URL)
	}
	return urls
}
