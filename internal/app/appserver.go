package app

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"registry_nexus/internal/registry"
	"registry_nexus/internal/service/web"
	"registry_nexus/internal/shared/globalstate"
	"registry_nexus/internal/shared/logger"
	"registry_nexus/internal/shared/metrics"
	"registry_nexus/internal/shared/settings"
	"registry_nexus/internal/shared/types"
	manager "registry_nexus/proxypool"
	"registry_nexus/proxypool/scraper"
	"registry_nexus/proxypool/storage"
)

const shutdownTimeout = 10 * time.Second

// AppServer is the application's main struct.
type AppServer struct {
	cfg       *types.Config
	configDir string

	settingsManager *settings.SettingsManager
	status          *globalstate.StatusManager
	metrics         *metrics.Metrics

	hub        *web.Hub
	proxyCache *manager.Cache
	fetcher    *registry.HTTPPageFetcher
	service    *registry.Service
	webServer  *web.Server

	isMobileMode bool

	hubCancel context.CancelFunc
	waitGroup sync.WaitGroup
	stopOnce  sync.Once
}

// NewForPC creates a new AppServer instance for PC/file-based mode.
// settings.json and the proxy cache file live next to the ini file.
func NewForPC(cfg *types.Config, configDir string) (*AppServer, error) {
	sm, err := settings.NewSettingsManager(filepath.Join(configDir, "settings.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize settings manager: %w", err)
	}
	return newAppServer(cfg, configDir, sm, false), nil
}

// NewForMobile creates a new AppServer instance for mobile/in-memory mode.
func NewForMobile(cfg *types.Config) (*AppServer, error) {
	// For mobile, settings manager runs in-memory without a file path.
	sm, err := settings.NewSettingsManager("")
	if err != nil {
		return nil, fmt.Errorf("failed to initialize in-memory settings manager: %w", err)
	}
	return newAppServer(cfg, "", sm, true), nil
}

func newAppServer(cfg *types.Config, configDir string, sm *settings.SettingsManager, mobile bool) *AppServer {
	s := &AppServer{
		cfg:             cfg,
		configDir:       configDir,
		settingsManager: sm,
		status:          globalstate.NewStatusManager(),
		metrics:         metrics.New(),
		hub:             web.NewHub(),
		isMobileMode:    mobile,
	}

	initialSettings := sm.Get()

	var cacheStorage storage.Storage
	if path := s.cacheFilePath(); path != "" {
		cacheStorage = storage.NewFileStorage(path)
	}
	s.proxyCache = manager.NewCache(
		cacheOptions(cfg.ProxyPoolConf, initialSettings.Registry.UserAgent),
		scraper.FromSpecs(initialSettings.Sources.Lists, initialSettings.Registry.UserAgent),
		cacheStorage,
		s.metrics,
	)

	s.fetcher = registry.NewHTTPPageFetcher(
		cfg.RegistryConf.URLTemplate,
		registry.NewParser(cfg.RegistryConf.Parser),
		cfg.RegistryConf.InsecureSkipVerify,
	)
	s.fetcher.SetHeaders(initialSettings.Registry.UserAgent, initialSettings.Registry.AcceptLanguage)

	s.service = registry.NewService(s.fetcher, s.proxyCache, registryOptions(cfg.RegistryConf), s.hub, s.metrics)

	// Register subscribers for runtime settings
	sm.Register("registry", s.service)
	sm.Register("sources", s.proxyCache)

	return s
}

// Start 启动后台组件和 HTTP 服务，不阻塞。
func (s *AppServer) Start() error {
	mode := "local"
	if s.isMobileMode {
		mode = "mobile"
	}
	logger.Info().Msgf("Starting server in '%s' mode...", mode)

	if err := s.proxyCache.Load(); err != nil {
		logger.Warn().Err(err).Msg("Failed to restore proxy list snapshot. Starting with an empty list.")
	}

	hubCtx, cancel := context.WithCancel(context.Background())
	s.hubCancel = cancel
	s.waitGroup.Add(1)
	go func() {
		defer s.waitGroup.Done()
		s.hub.Run(hubCtx) // 启动 Hub
	}()

	handler := web.NewHandler(s.service, s.proxyCache, s.settingsManager, s.status, s.hub)
	router := web.NewRouter(s.cfg.WebConf, handler, s.hub, s.metrics.Handler())
	server, err := web.StartServer(&s.waitGroup, s.cfg.WebConf, router)
	if err != nil {
		cancel()
		return err
	}
	s.webServer = server

	s.status.Set(globalstate.StatusRunning)
	return nil
}

// Run is the blocking entry point for PC mode. It returns once Stop has been called.
func (s *AppServer) Run() error {
	if err := s.Start(); err != nil {
		return err
	}
	s.Wait()
	return nil
}

// Stop gracefully shuts down the server.
func (s *AppServer) Stop() {
	s.stopOnce.Do(func() {
		s.status.Set(globalstate.StatusStopping)
		logger.Info().Msg("Stopping server...")

		if s.webServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := s.webServer.Shutdown(ctx); err != nil {
				logger.Warn().Err(err).Msg("Web server did not shut down cleanly.")
			}
		}
		if s.hubCancel != nil {
			s.hubCancel()
		}
	})
}

func (s *AppServer) Wait() {
	s.waitGroup.Wait()
}

// LookupDevice runs a lookup outside of HTTP, for the mobile bindings.
func (s *AppServer) LookupDevice(ctx context.Context, kno string) registry.Response {
	res, err := s.service.Lookup(ctx, kno)
	return registry.NewResponse(res, err)
}

// Addr returns the HTTP listen address, or "" when the API is disabled.
func (s *AppServer) Addr() string {
	if s.webServer == nil {
		return ""
	}
	return s.webServer.Addr()
}
