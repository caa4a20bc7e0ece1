package globalstate

import (
	"sync"
	"time"
)

const (
	StatusInitializing = "Initializing..."
	StatusRunning      = "Running"
	StatusStopping     = "Stopping"
)

// StatusManager 记录服务的生命周期状态，供 /api/status 读取。
type StatusManager struct {
	mu        sync.RWMutex
	status    string
	startedAt time.Time
}

func NewStatusManager() *StatusManager {
	return &StatusManager{status: StatusInitializing, startedAt: time.Now()}
}

// Set 方法用于安全地更新状态。
func (sm *StatusManager) Set(newStatus string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.status = newStatus
}

// Get 方法用于安全地读取状态。
func (sm *StatusManager) Get() string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.status
}

// Uptime returns the time elapsed since the manager was created.
func (sm *StatusManager) Uptime() time.Duration {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return time.Since(sm.startedAt)
}
