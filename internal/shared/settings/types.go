package settings

// SourceKind 定义了代理列表源的格式
type SourceKind string

const (
	SourceKindText SourceKind = "text" // one ip:port per line
	SourceKindHTML SourceKind = "html" // HTML table, ip and port in the first two cells
)

// SourceSpec 描述一个公共代理列表源。
type SourceSpec struct {
	Name     string     `json:"name"`
	URL      string     `json:"url"`
	Kind     SourceKind `json:"kind"`
	Scheme   string     `json:"scheme,omitempty"`   // candidate scheme, "http" when empty
	Selector string     `json:"selector,omitempty"` // row selector for html sources
	Enabled  bool       `json:"enabled"`
}

// ConfigurableModule 是所有希望其配置能被在线管理的模块必须实现的接口。
type ConfigurableModule interface {
	// OnSettingsUpdate 在配置变更时被 SettingsManager 调用。
	// newSettings 是对应模块已解析好的结构体指针 (e.g., *RegistrySettings)。
	OnSettingsUpdate(moduleKey string, newSettings interface{}) error
}

// RuntimeSettings 是 settings.json 文件的顶层结构。
// 使用指针类型确保了当JSON文件中缺少某个模块时，对应的字段为nil。
type RuntimeSettings struct {
	Registry *RegistrySettings `json:"registry"`
	Sources  *SourcesSettings  `json:"sources"`
}

// RegistrySettings 对应 settings.json 中的 "registry" 模块。
type RegistrySettings struct {
	UserAgent      string `json:"user_agent"`
	AcceptLanguage string `json:"accept_language"`
}

// SourcesSettings 对应 settings.json 中的 "sources" 模块。
type SourcesSettings struct {
	Lists []*SourceSpec `json:"lists"`
}

const (
	DefaultUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	DefaultAcceptLanguage = "tr-TR,tr;q=0.9,en-US;q=0.8,en;q=0.7"
)

// DefaultSourceSpecs returns the four public plain-text proxy lists queried out of the box,
// plus one HTML list that is shipped disabled.
func DefaultSourceSpecs() []*SourceSpec {
	return []*SourceSpec{
		{Name: "proxyscrape", URL: "https://api.proxyscrape.com/v2/?request=displayproxies&protocol=http&timeout=5000&country=all", Kind: SourceKindText, Enabled: true},
		{Name: "thespeedx", URL: "https://raw.githubusercontent.com/TheSpeedX/PROXY-List/master/http.txt", Kind: SourceKindText, Enabled: true},
		{Name: "clarketm", URL: "https://raw.githubusercontent.com/clarketm/proxy-list/master/proxy-list-raw.txt", Kind: SourceKindText, Enabled: true},
		{Name: "monosans", URL: "https://raw.githubusercontent.com/monosans/proxy-list/main/proxies/http.txt", Kind: SourceKindText, Enabled: true},
		{Name: "free-proxy-list", URL: "https://free-proxy-list.net/", Kind: SourceKindHTML, Selector: "table.table tbody tr", Enabled: false},
	}
}

func createDefaultSettings() *RuntimeSettings {
	return &RuntimeSettings{
		Registry: &RegistrySettings{UserAgent: DefaultUserAgent, AcceptLanguage: DefaultAcceptLanguage},
		Sources:  &SourcesSettings{Lists: DefaultSourceSpecs()},
	}
}

func ensureDefaultModules(s *RuntimeSettings) {
	if s.Registry == nil {
		s.Registry = &RegistrySettings{}
	}
	if s.Registry.UserAgent == "" {
		s.Registry.UserAgent = DefaultUserAgent
	}
	if s.Registry.AcceptLanguage == "" {
		s.Registry.AcceptLanguage = DefaultAcceptLanguage
	}
	if s.Sources == nil {
		s.Sources = &SourcesSettings{Lists: DefaultSourceSpecs()}
	}
}
