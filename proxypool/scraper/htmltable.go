package scraper

import (
	"context"
	"fmt"
	"strings"

	"github.com/gocolly/colly/v2"

	"registry_nexus/internal/shared/logger"
	"registry_nexus/proxypool/model"
)

const defaultRowSelector = "table tbody tr"

// HTMLTableScraper 抓取以 HTML 表格发布的代理列表（第一列 IP，第二列端口）。
type HTMLTableScraper struct {
	name      string
	url       string
	selector  string
	scheme    string
	userAgent string
}

func NewHTMLTableScraper(name, url, selector, scheme, userAgent string) Scraper {
	if selector == "" {
		selector = defaultRowSelector
	}
	return &HTMLTableScraper{
		name:      name,
		url:       url,
		selector:  selector,
		scheme:    scheme,
		userAgent: userAgent,
	}
}

func (s *HTMLTableScraper) Name() string {
	return s.name
}

func (s *HTMLTableScraper) Scrape(ctx context.Context) ([]*model.Candidate, error) {
	l := logger.WithComponent("ProxyPool/Scraper")
	l.Debug().Str("source", s.Name()).Msg("Starting scrape...")

	// 每次抓取使用新的 collector，避免回调累积。
	options := []colly.CollectorOption{colly.StdlibContext(ctx)}
	if s.userAgent != "" {
		options = append(options, colly.UserAgent(s.userAgent))
	}
	c := colly.NewCollector(options...)

	var proxies []*model.Candidate
	c.OnHTML(s.selector, func(e *colly.HTMLElement) {
		cells := e.DOM.Find("td")
		ip := strings.TrimSpace(cells.Eq(0).Text())
		port := strings.TrimSpace(cells.Eq(1).Text())
		addr := ip + ":" + port
		if !ipPortPattern.MatchString(addr) {
			return
		}
		proxies = append(proxies, &model.Candidate{URL: candidateURL(s.scheme, addr), Source: s.Name()})
	})

	var scrapeErr error
	c.OnError(func(r *colly.Response, err error) {
		scrapeErr = fmt.Errorf("failed to fetch page for %s (status %d): %w", s.Name(), r.StatusCode, err)
	})

	if err := c.Visit(s.url); err != nil {
		if scrapeErr != nil {
			return nil, scrapeErr
		}
		return nil, fmt.Errorf("failed to visit %s: %w", s.Name(), err)
	}
	if scrapeErr != nil {
		return nil, scrapeErr
	}

	l.Debug().Int("count", len(proxies)).Str("source", s.Name()).Msg("Scrape finished.")
	return proxies, nil
}
