package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"registry_nexus/internal/registry"
	"registry_nexus/internal/shared/globalstate"
	"registry_nexus/internal/shared/logger"
	"registry_nexus/internal/shared/settings"
	"registry_nexus/proxypool/model"
)

// DeviceLookup is the part of registry.Service the handlers need.
type DeviceLookup interface {
	Lookup(ctx context.Context, kno string) (*registry.Result, error)
	WorkingProxy() string
}

// ProxyCache is the part of the proxy list cache the handlers need.
type ProxyCache interface {
	Snapshot() *model.Snapshot
	Refresh(ctx context.Context) []string
}

type Handler struct {
	lookup          DeviceLookup
	cache           ProxyCache
	settingsManager *settings.SettingsManager
	status          *globalstate.StatusManager
	hub             *Hub
}

func NewHandler(
	lookup DeviceLookup,
	cache ProxyCache,
	settingsManager *settings.SettingsManager,
	status *globalstate.StatusManager,
	hub *Hub,
) *Handler {
	return &Handler{
		lookup:          lookup,
		cache:           cache,
		settingsManager: settingsManager,
		status:          status,
		hub:             hub,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn().Err(err).Msg("[Handler] Failed to write JSON response")
	}
}

// --- 设备查询 API ---

// HandleDevice 处理 GET /api/device/{kno} 请求
func (h *Handler) HandleDevice(w http.ResponseWriter, r *http.Request) {
	h.respondLookup(w, r, r.PathValue("kno"))
}

type scanRequest struct {
	QR string `json:"qr"`
}

// HandleScan 处理 POST /api/device/scan 请求，从二维码内容中提取 kno 后查询。
func (h *Handler) HandleScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 64*1024)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, registry.Response{Success: false, Error: "Invalid JSON format"})
		return
	}
	kno, ok := registry.ExtractKno(req.QR)
	if !ok {
		writeJSON(w, http.StatusBadRequest, registry.Response{Success: false, Error: "No kno found in QR payload"})
		return
	}
	h.respondLookup(w, r, kno)
}

func (h *Handler) respondLookup(w http.ResponseWriter, r *http.Request, kno string) {
	res, err := h.lookup.Lookup(r.Context(), kno)
	if err != nil {
		logger.Warn().Err(err).Str("kno", kno).Msg("[Handler] Device lookup failed")
		writeJSON(w, http.StatusInternalServerError, registry.NewResponse(nil, err))
		return
	}
	writeJSON(w, http.StatusOK, registry.NewResponse(res, nil))
}

// --- 状态与代理列表 API ---

type statusResponse struct {
	GlobalStatus       string    `json:"globalStatus"`
	UptimeSeconds      int64     `json:"uptimeSeconds"`
	WorkingProxy       string    `json:"workingProxy,omitempty"`
	ProxyCount         int       `json:"proxyCount"`
	ProxiesRefreshedAt time.Time `json:"proxiesRefreshedAt"`
	WebSocketClients   int       `json:"webSocketClients"`
}

// HandleStatus 处理 GET /api/status 请求（公开）
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	snapshot := h.cache.Snapshot()
	resp := statusResponse{
		GlobalStatus:       h.status.Get(),
		UptimeSeconds:      int64(h.status.Uptime().Seconds()),
		WorkingProxy:       h.lookup.WorkingProxy(),
		ProxyCount:         len(snapshot.Candidates),
		ProxiesRefreshedAt: snapshot.RefreshedAt,
	}
	if h.hub != nil {
		resp.WebSocketClients = h.hub.ClientCount()
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleGetProxies 处理 GET /api/proxies 请求
func (h *Handler) HandleGetProxies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.cache.Snapshot())
}

// HandleRefreshProxies 处理 POST /api/proxies/refresh 请求
func (h *Handler) HandleRefreshProxies(w http.ResponseWriter, r *http.Request) {
	logger.Info().Msg("[Handler] Received request to refresh the proxy list.")
	h.cache.Refresh(r.Context())
	writeJSON(w, http.StatusOK, h.cache.Snapshot())
}

// --- 运行时配置 API ---

// HandleGetSettings 处理 GET /api/settings 请求
func (h *Handler) HandleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.settingsManager.Get())
}

// HandleUpdateSettings 处理 POST /api/settings/{module} 请求
func (h *Handler) HandleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	moduleKey := r.PathValue("module")

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusInternalServerError)
		return
	}

	if err := h.settingsManager.Update(moduleKey, body); err != nil {
		switch {
		case errors.Is(err, settings.ErrUnknownModule):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, settings.ErrInvalidJSON):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Settings updated successfully"})
}
