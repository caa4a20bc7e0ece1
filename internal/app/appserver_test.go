package app

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"registry_nexus/internal/registry"
	"registry_nexus/internal/shared/types"
)

const registryPage = `<table>
<tr><td>KİMLİK NO</td><td>77</td></tr>
<tr><td>MARKA</td><td>Dräger</td></tr>
<tr><td>MODEL</td><td>Savina 300</td></tr>
<tr><td>S/N</td><td>ASCD-0042</td></tr>
</table>`

func TestRegistryOptions(t *testing.T) {
	opts := registryOptions(types.RegistryConf{})
	if opts != registry.DefaultOptions() {
		t.Errorf("Expected defaults for zero config, got %+v", opts)
	}

	opts = registryOptions(types.RegistryConf{DirectTimeoutMs: 1500, ProxyTimeoutMs: 700, MaxProxyAttempts: 3})
	if opts.DirectTimeout != 1500*time.Millisecond || opts.ProxyTimeout != 700*time.Millisecond || opts.MaxProxyAttempts != 3 {
		t.Errorf("Unexpected options: %+v", opts)
	}
}

func TestCacheOptions(t *testing.T) {
	opts := cacheOptions(types.ProxyPoolConf{}, "ua")
	if opts.TTL != time.Hour || opts.SourceTimeout != 5*time.Second || opts.UserAgent != "ua" {
		t.Errorf("Unexpected default cache options: %+v", opts)
	}
	opts = cacheOptions(types.ProxyPoolConf{RefreshIntervalMinutes: 5, SourceTimeoutMs: 250}, "")
	if opts.TTL != 5*time.Minute || opts.SourceTimeout != 250*time.Millisecond {
		t.Errorf("Unexpected cache options: %+v", opts)
	}
}

func TestCacheFilePath(t *testing.T) {
	dir := t.TempDir()
	cfg := types.DefaultConfig()
	cfg.ProxyPoolConf.CacheFile = "proxies.txt"

	s, err := NewForPC(cfg, dir)
	if err != nil {
		t.Fatalf("NewForPC failed: %v", err)
	}
	if got := s.cacheFilePath(); got != filepath.Join(dir, "proxies.txt") {
		t.Errorf("Expected path relative to config dir, got %q", got)
	}

	m, err := NewForMobile(cfg)
	if err != nil {
		t.Fatalf("NewForMobile failed: %v", err)
	}
	if got := m.cacheFilePath(); got != "" {
		t.Errorf("Expected no cache file in mobile mode, got %q", got)
	}
}

func TestMobileLookupEndToEnd(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("kno") != "77" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, registryPage)
	}))
	defer ts.Close()

	cfg := types.DefaultConfig()
	cfg.WebConf.Port = 0
	cfg.RegistryConf.URLTemplate = ts.URL + "/QR/QR.aspx?kno=%s"

	s, err := NewForMobile(cfg)
	if err != nil {
		t.Fatalf("NewForMobile failed: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer func() {
		s.Stop()
		s.Wait()
	}()

	resp := s.LookupDevice(context.Background(), "77")
	if !resp.Success {
		t.Fatalf("Expected success, got %+v", resp)
	}
	if resp.UsedProxy != "" {
		t.Errorf("Expected direct success without proxy, got %q", resp.UsedProxy)
	}
	if resp.Data.Brand != "Dräger" || resp.Data.SerialNumber != "ASCD-0042" {
		t.Errorf("Unexpected record: %+v", resp.Data)
	}
}
