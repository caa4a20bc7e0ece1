package registry

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/net/html/charset"
	"golang.org/x/net/proxy"

	"registry_nexus/internal/shared/logger"
	"registry_nexus/internal/shared/settings"
)

const (
	DefaultURLTemplate = "https://sbu2.saglik.gov.tr/QR/QR.aspx?kno=%s"
	maxPageBytes       = 2 << 20
)

// Markers that a genuine registry page always carries. Checked on the decoded body.
var pageMarkers = []string{"KİMLİK NO", "TÜR"}

var (
	ErrBadStatus   = errors.New("registry returned non-2xx status")
	ErrNoMarker    = errors.New("response is not a registry page")
	ErrNoIdentity  = errors.New("registry page has no serial number, brand or model")
	ErrProxyScheme = errors.New("unsupported proxy scheme")
)

// PageFetcher performs a single attempt to fetch and parse the registry page for kno.
// An empty proxyURL means a direct connection.
type PageFetcher interface {
	FetchPage(ctx context.Context, kno, proxyURL string, timeout time.Duration) (DeviceRecord, error)
}

type requestHeaders struct {
	userAgent      string
	acceptLanguage string
}

// HTTPPageFetcher fetches the page over net/http with a fresh transport per attempt.
type HTTPPageFetcher struct {
	urlTemplate        string
	parser             Parser
	insecureSkipVerify bool
	headers            atomic.Pointer[requestHeaders]
}

// NewHTTPPageFetcher creates a fetcher. urlTemplate must contain a single %s for the kno.
func NewHTTPPageFetcher(urlTemplate string, parser Parser, insecureSkipVerify bool) *HTTPPageFetcher {
	if urlTemplate == "" {
		urlTemplate = DefaultURLTemplate
	}
	if parser == nil {
		parser = RegexParser{}
	}
	f := &HTTPPageFetcher{
		urlTemplate:        urlTemplate,
		parser:             parser,
		insecureSkipVerify: insecureSkipVerify,
	}
	f.SetHeaders(settings.DefaultUserAgent, settings.DefaultAcceptLanguage)
	return f
}

// SetHeaders replaces the browser-like headers sent with every attempt.
func (f *HTTPPageFetcher) SetHeaders(userAgent, acceptLanguage string) {
	f.headers.Store(&requestHeaders{userAgent: userAgent, acceptLanguage: acceptLanguage})
}

func (f *HTTPPageFetcher) pageURL(kno string) string {
	return fmt.Sprintf(f.urlTemplate, url.QueryEscape(kno))
}

func (f *HTTPPageFetcher) FetchPage(ctx context.Context, kno, proxyURL string, timeout time.Duration) (DeviceRecord, error) {
	l := logger.WithComponent("Registry/Fetcher")

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	transport, err := newAttemptTransport(proxyURL, f.insecureSkipVerify)
	if err != nil {
		return DeviceRecord{}, err
	}
	defer transport.CloseIdleConnections()
	client := &http.Client{Transport: transport}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.pageURL(kno), nil)
	if err != nil {
		return DeviceRecord{}, fmt.Errorf("failed to create request: %w", err)
	}
	h := f.headers.Load()
	req.Header.Set("User-Agent", h.userAgent)
	req.Header.Set("Accept-Language", h.acceptLanguage)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := client.Do(req)
	if err != nil {
		return DeviceRecord{}, fmt.Errorf("failed to fetch registry page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return DeviceRecord{}, fmt.Errorf("%w: %d", ErrBadStatus, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return DeviceRecord{}, fmt.Errorf("failed to read registry page: %w", err)
	}
	page, err := decodePage(raw, resp.Header.Get("Content-Type"))
	if err != nil {
		return DeviceRecord{}, err
	}

	if !hasPageMarker(page) {
		return DeviceRecord{}, ErrNoMarker
	}

	rec := f.parser.Parse(page)
	if !rec.HasIdentity() {
		if rec.CountPopulated() == 0 {
			l.Warn().Str("kno", kno).Str("proxy", proxyURL).Msg("Registry page matched but no field was parsed; the page layout may have changed.")
		}
		return DeviceRecord{}, ErrNoIdentity
	}
	return rec, nil
}

// metaCharsetPattern detects a <meta> charset declaration in the sniffed prefix.
var metaCharsetPattern = regexp.MustCompile(`(?i)<meta[^>]+charset`)

// decodePage converts the body to UTF-8. A charset declared by BOM, Content-Type
// or <meta> wins; without a declaration the body is taken as UTF-8.
func decodePage(raw []byte, contentType string) (string, error) {
	enc, name, certain := charset.DetermineEncoding(raw, contentType)
	if !certain {
		prefix := raw
		if len(prefix) > 1024 {
			prefix = prefix[:1024]
		}
		if !metaCharsetPattern.Match(prefix) {
			return string(raw), nil
		}
	}
	if name == "utf-8" {
		return string(bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))), nil
	}
	decoded, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("failed to decode %s page: %w", name, err)
	}
	return string(decoded), nil
}

func hasPageMarker(page string) bool {
	for _, marker := range pageMarkers {
		if strings.Contains(page, marker) {
			return true
		}
	}
	return false
}

// newAttemptTransport builds a transport that is used for exactly one request.
func newAttemptTransport(proxyURL string, insecureSkipVerify bool) (*http.Transport, error) {
	dialer := &net.Dialer{KeepAlive: -1}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		DisableKeepAlives:     true,
		MaxIdleConns:          0,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		TLSClientConfig:       &tls.Config{InsecureSkipVerify: insecureSkipVerify},
	}
	if proxyURL == "" {
		return transport, nil
	}

	u, err := url.Parse(proxyURL)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy URL %q: %w", proxyURL, err)
	}

	switch u.Scheme {
	case "http", "https":
		transport.Proxy = http.ProxyURL(u)
	case "socks5", "socks5h":
		socksDialer, err := proxy.FromURL(u, dialer)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		contextDialer, ok := socksDialer.(proxy.ContextDialer)
		if !ok {
			return nil, fmt.Errorf("SOCKS5 dialer for %s does not support contexts", u.Host)
		}
		transport.DialContext = contextDialer.DialContext
	default:
		return nil, fmt.Errorf("%w: %q", ErrProxyScheme, u.Scheme)
	}
	return transport, nil
}
