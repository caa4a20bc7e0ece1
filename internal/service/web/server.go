package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"registry_nexus/internal/shared/logger"
	"registry_nexus/internal/shared/types"
)

// basicAuthMiddleware 检查 user 和 pass 是否已配置。
// 如果配置了，它将强制执行 HTTP Basic Authentication。
func basicAuthMiddleware(next http.Handler, user, pass string) http.Handler {
	// 如果用户名或密码未设置，则不启用认证，直接返回原始处理器
	if user == "" || pass == "" {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || u != user || p != pass {
			w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte("Unauthorized.\n"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware 允许任意来源访问，预检请求直接返回 204。
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// NewRouter 注册所有路由。metricsHandler 可以为 nil。
func NewRouter(cfg types.WebConf, handler *Handler, hub *Hub, metricsHandler http.Handler) http.Handler {
	mux := http.NewServeMux()
	user, pass := cfg.User, cfg.Password

	// --- 公开 API ---
	mux.HandleFunc("GET /api/device/{kno}", handler.HandleDevice)
	mux.HandleFunc("POST /api/device/scan", handler.HandleScan)
	mux.HandleFunc("GET /api/status", handler.HandleStatus)

	// --- 认证保护的 API ---
	mux.Handle("GET /api/proxies", basicAuthMiddleware(http.HandlerFunc(handler.HandleGetProxies), user, pass))
	mux.Handle("POST /api/proxies/refresh", basicAuthMiddleware(http.HandlerFunc(handler.HandleRefreshProxies), user, pass))
	mux.Handle("GET /api/settings", basicAuthMiddleware(http.HandlerFunc(handler.HandleGetSettings), user, pass))
	mux.Handle("POST /api/settings/{module}", basicAuthMiddleware(http.HandlerFunc(handler.HandleUpdateSettings), user, pass))

	// --- WebSocket Endpoint (公开，无需认证) ---
	if hub != nil {
		mux.HandleFunc("GET /ws", func(w http.ResponseWriter, r *http.Request) {
			ServeWs(hub, w, r)
		})
	}

	if metricsHandler != nil {
		mux.Handle("GET /metrics", metricsHandler)
	}

	return corsMiddleware(mux)
}

// Server wraps the HTTP listener so the app can shut it down.
type Server struct {
	httpServer *http.Server
	listener   net.Listener
}

// StartServer 监听 cfg.Port 并在后台提供服务。Port <= 0 时不启动。
func StartServer(wg *sync.WaitGroup, cfg types.WebConf, router http.Handler) (*Server, error) {
	if cfg.Port <= 0 {
		logger.Info().Msg("[WebServer] HTTP API is disabled (port is 0 or not set).")
		return nil, nil
	}

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s := &Server{
		httpServer: &http.Server{
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		listener: listener,
	}

	logger.Info().Msgf("SUCCESS: HTTP API is listening on http://%s", listener.Addr())

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("Web server error")
		}
		logger.Info().Msg("Web server stopped.")
	}()

	return s, nil
}

// Addr returns the bound address.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Shutdown 优雅关闭，等待进行中的请求完成。
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
