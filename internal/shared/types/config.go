package types

// CommonConf 包含共有的配置
type CommonConf struct {
	Mode string `ini:"mode"` // "server" or "mobile"
}

// WebConf 包含 HTTP 服务相关的配置
type WebConf struct {
	Port     int    `ini:"port"`
	User     string `ini:"user"`
	Password string `ini:"password"`
}

// LogConf contains logging specific configuration
type LogConf struct {
	Level string `ini:"level"`
}

// RegistryConf 描述了卫生部设备登记页面的抓取参数。
type RegistryConf struct {
	URLTemplate        string `ini:"url_template"` // must contain one %s for the kno
	Parser             string `ini:"parser"`       // "regex" (default) or "dom"
	DirectTimeoutMs    int    `ini:"direct_timeout_ms"`
	ProxyTimeoutMs     int    `ini:"proxy_timeout_ms"`
	MaxProxyAttempts   int    `ini:"max_proxy_attempts"`
	InsecureSkipVerify bool   `ini:"insecure_skip_verify"`
}

// ProxyPoolConf 包含代理列表缓存的配置
type ProxyPoolConf struct {
	RefreshIntervalMinutes int    `ini:"refresh_interval_minutes"`
	SourceTimeoutMs        int    `ini:"source_timeout_ms"`
	CacheFile              string `ini:"cache_file"` // empty disables snapshot persistence
}

// Config 是项目的统一静态配置结构体
type Config struct {
	CommonConf    `ini:"common"`
	WebConf       `ini:"web"`
	LogConf       `ini:"log"`
	RegistryConf  `ini:"registry"`
	ProxyPoolConf `ini:"proxypool"`
}

// DefaultConfig returns the values used when a key is missing from the ini file.
func DefaultConfig() *Config {
	return &Config{
		CommonConf: CommonConf{Mode: "server"},
		WebConf:    WebConf{Port: 3001},
		LogConf:    LogConf{Level: "info"},
		RegistryConf: RegistryConf{
			URLTemplate:      "https://sbu2.saglik.gov.tr/QR/QR.aspx?kno=%s",
			Parser:           "regex",
			DirectTimeoutMs:  8000,
			ProxyTimeoutMs:   5000,
			MaxProxyAttempts: 10,
		},
		ProxyPoolConf: ProxyPoolConf{
			RefreshIntervalMinutes: 60,
			SourceTimeoutMs:        5000,
		},
	}
}
