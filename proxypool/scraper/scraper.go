package scraper

import (
	"context"
	"regexp"
	"strings"

	"registry_nexus/internal/shared/settings"
	"registry_nexus/proxypool/model"
)

// Scraper 接口定义了从公共代理列表抓取候选代理的行为。
type Scraper interface {
	// Scrape 执行抓取操作。超时由调用方通过 ctx 控制。
	Scrape(ctx context.Context) ([]*model.Candidate, error)

	// Name 返回抓取器的名称，用于日志记录。
	Name() string
}

// ipPortPattern matches "a.b.c.d:port" with 1-3 digit octets.
var ipPortPattern = regexp.MustCompile(`^\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}:\d+$`)

func candidateURL(scheme, addr string) string {
	if scheme == "" {
		scheme = "http"
	}
	return scheme + "://" + addr
}

// FromSpecs builds a scraper for every enabled source.
func FromSpecs(specs []*settings.SourceSpec, userAgent string) []Scraper {
	scrapers := make([]Scraper, 0, len(specs))
	for _, spec := range specs {
		if spec == nil || !spec.Enabled || strings.TrimSpace(spec.URL) == "" {
			continue
		}
		switch spec.Kind {
		case settings.SourceKindHTML:
			scrapers = append(scrapers, NewHTMLTableScraper(spec.Name, spec.URL, spec.Selector, spec.Scheme, userAgent))
		default:
			scrapers = append(scrapers, NewTextListScraper(spec.Name, spec.URL, spec.Scheme, userAgent))
		}
	}
	return scrapers
}
