package app

import (
	"path/filepath"
	"time"

	"registry_nexus/internal/registry"
	"registry_nexus/internal/shared/types"
	manager "registry_nexus/proxypool"
)

// registryOptions converts the [registry] section into lookup options.
// Non-positive values keep the defaults.
func registryOptions(c types.RegistryConf) registry.Options {
	opts := registry.DefaultOptions()
	if c.DirectTimeoutMs > 0 {
		opts.DirectTimeout = time.Duration(c.DirectTimeoutMs) * time.Millisecond
	}
	if c.ProxyTimeoutMs > 0 {
		opts.ProxyTimeout = time.Duration(c.ProxyTimeoutMs) * time.Millisecond
	}
	if c.MaxProxyAttempts > 0 {
		opts.MaxProxyAttempts = c.MaxProxyAttempts
	}
	return opts
}

// cacheOptions converts the [proxypool] section into cache options.
func cacheOptions(c types.ProxyPoolConf, userAgent string) manager.Options {
	opts := manager.Options{
		TTL:           manager.DefaultTTL,
		SourceTimeout: manager.DefaultSourceTimeout,
		UserAgent:     userAgent,
	}
	if c.RefreshIntervalMinutes > 0 {
		opts.TTL = time.Duration(c.RefreshIntervalMinutes) * time.Minute
	}
	if c.SourceTimeoutMs > 0 {
		opts.SourceTimeout = time.Duration(c.SourceTimeoutMs) * time.Millisecond
	}
	return opts
}

// cacheFilePath 返回代理列表快照文件路径。移动端或未配置时为空。
// 相对路径以配置目录为基准。
func (s *AppServer) cacheFilePath() string {
	path := s.cfg.ProxyPoolConf.CacheFile
	if path == "" || s.isMobileMode {
		return ""
	}
	if filepath.IsAbs(path) || s.configDir == "" {
		return path
	}
	return filepath.Join(s.configDir, path)
}
