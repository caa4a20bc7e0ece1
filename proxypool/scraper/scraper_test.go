package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"registry_nexus/internal/shared/settings"
)

func TestTextListScraper_FiltersLines(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != "test-agent" {
			t.Errorf("Expected User-Agent test-agent, got %q", ua)
		}
		fmt.Fprint(w, "1.2.3.4:8080\n  5.6.7.8:3128  \r\n# comment\n\nfoo:bar\n1.2.3:80\n1.2.3.4:\n10.0.0.1:1\n")
	}))
	defer ts.Close()

	s := NewTextListScraper("list", ts.URL, "", "test-agent")
	got, err := s.Scrape(context.Background())
	if err != nil {
		t.Fatalf("Scrape failed: %v", err)
	}

	want := []string{"http://1.2.3.4:8080", "http://5.6.7.8:3128", "http://10.0.0.1:1"}
	if len(got) != len(want) {
		t.Fatalf("Expected %d candidates, got %d: %+v", len(want), len(got), got)
	}
	for i, c := range got {
		if c.URL != want[i] {
			t.Errorf("candidate %d: expected %s, got %s", i, want[i], c.URL)
		}
		if c.Source != "list" {
			t.Errorf("candidate %d: expected source list, got %s", i, c.Source)
		}
	}
}

func TestTextListScraper_SchemePrefix(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "1.2.3.4:1080\n")
	}))
	defer ts.Close()

	got, err := NewTextListScraper("socks", ts.URL, "socks5", "").Scrape(context.Background())
	if err != nil {
		t.Fatalf("Scrape failed: %v", err)
	}
	if len(got) != 1 || got[0].URL != "socks5://1.2.3.4:1080" {
		t.Errorf("Expected socks5 candidate, got %+v", got)
	}
}

func TestTextListScraper_Non2xx(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer ts.Close()

	if _, err := NewTextListScraper("list", ts.URL, "", "").Scrape(context.Background()); err == nil {
		t.Error("Expected error for 429 response")
	}
}

func TestTextListScraper_RespectsContextTimeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	if _, err := NewTextListScraper("slow", ts.URL, "", "").Scrape(ctx); err == nil {
		t.Error("Expected timeout error")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Expected scrape to abort quickly, took %v", elapsed)
	}
}

const proxyTablePage = `<html><body>
<table class="table">
  <thead><tr><th>IP Address</th><th>Port</th><th>Code</th></tr></thead>
  <tbody>
    <tr><td>1.2.3.4</td><td>8080</td><td>TR</td></tr>
    <tr><td> 5.6.7.8 </td><td> 3128 </td><td>DE</td></tr>
    <tr><td>not-an-ip</td><td>80</td><td>US</td></tr>
    <tr><td>9.9.9.9</td></tr>
  </tbody>
</table>
</body></html>`

func TestHTMLTableScraper_ParsesRows(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, proxyTablePage)
	}))
	defer ts.Close()

	s := NewHTMLTableScraper("html", ts.URL, "table.table tbody tr", "", "test-agent")
	got, err := s.Scrape(context.Background())
	if err != nil {
		t.Fatalf("Scrape failed: %v", err)
	}
	want := []string{"http://1.2.3.4:8080", "http://5.6.7.8:3128"}
	if len(got) != len(want) {
		t.Fatalf("Expected %d candidates, got %+v", len(want), got)
	}
	for i, c := range got {
		if c.URL != want[i] {
			t.Errorf("candidate %d: expected %s, got %s", i, want[i], c.URL)
		}
	}
}

func TestHTMLTableScraper_ErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer ts.Close()

	if _, err := NewHTMLTableScraper("html", ts.URL, "", "", "").Scrape(context.Background()); err == nil {
		t.Error("Expected error for 404 page")
	}
}

func TestFromSpecs(t *testing.T) {
	specs := []*settings.SourceSpec{
		{Name: "a", URL: "http://example.com/a.txt", Kind: settings.SourceKindText, Enabled: true},
		{Name: "b", URL: "http://example.com/b", Kind: settings.SourceKindHTML, Enabled: true},
		{Name: "c", URL: "http://example.com/c.txt", Kind: settings.SourceKindText, Enabled: false},
		{Name: "d", URL: " ", Kind: settings.SourceKindText, Enabled: true},
		nil,
	}
	got := FromSpecs(specs, "ua")
	if len(got) != 2 {
		t.Fatalf("Expected 2 scrapers, got %d", len(got))
	}
	if _, ok := got[0].(*TextListScraper); !ok || got[0].Name() != "a" {
		t.Errorf("Expected text scraper a, got %T %s", got[0], got[0].Name())
	}
	if _, ok := got[1].(*HTMLTableScraper); !ok || got[1].Name() != "b" {
		t.Errorf("Expected html scraper b, got %T %s", got[1], got[1].Name())
	}

	if n := len(FromSpecs(settings.DefaultSourceSpecs(), "")); n != 4 {
		t.Errorf("Expected 4 enabled default sources, got %d", n)
	}
}
