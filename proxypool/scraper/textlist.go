package scraper

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"strings"

	"registry_nexus/internal/shared/logger"
	"registry_nexus/proxypool/model"
)

// TextListScraper 抓取每行一个 "ip:port" 的纯文本代理列表。
type TextListScraper struct {
	name      string
	url       string
	scheme    string
	userAgent string
	client    *http.Client
}

func NewTextListScraper(name, url, scheme, userAgent string) Scraper {
	return &TextListScraper{
		name:      name,
		url:       url,
		scheme:    scheme,
		userAgent: userAgent,
		client:    &http.Client{},
	}
}

func (s *TextListScraper) Name() string {
	return s.name
}

func (s *TextListScraper) Scrape(ctx context.Context) ([]*model.Candidate, error) {
	l := logger.WithComponent("ProxyPool/Scraper")
	l.Debug().Str("source", s.Name()).Msg("Starting scrape...")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", s.Name(), err)
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch list for %s: %w", s.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("received non-2xx status code (%d) from %s", resp.StatusCode, s.Name())
	}

	var proxies []*model.Candidate
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !ipPortPattern.MatchString(line) {
			continue
		}
		proxies = append(proxies, &model.Candidate{URL: candidateURL(s.scheme, line), Source: s.Name()})
	}
	if err := scanner.Err(); err != nil {
		return proxies, fmt.Errorf("failed to read list from %s: %w", s.Name(), err)
	}

	l.Debug().Int("count", len(proxies)).Str("source", s.Name()).Msg("Scrape finished.")
	return proxies, nil
}
