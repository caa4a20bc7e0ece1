package mobile

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"sync"

	"registry_nexus/internal/app"
	"registry_nexus/internal/shared/config"
	"registry_nexus/internal/shared/logger"
	"registry_nexus/internal/shared/types"
)

var (
	// 全局变量，用于持有当前为移动端运行的唯一 AppServer 实例
	activeAppServer *app.AppServer
	instanceMutex   sync.Mutex
)

// Start is the main entry point for mobile clients.
// It starts the Go core in-memory, without any file I/O for configuration.
// iniContent: A string containing the content of a registry.ini file.
// Set [web] port = 0 to skip the local HTTP API and use LookupDevice only.
func Start(iniContent string) (err error) {
	// Defer a panic handler to convert panics into errors, which is safer for CGo boundaries.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("go core panic: %v\n\n%s", r, debug.Stack())
		}
	}()

	instanceMutex.Lock()
	defer instanceMutex.Unlock()

	if activeAppServer != nil {
		return fmt.Errorf("service is already running")
	}

	// 1. Parse iniContent string to get the configuration struct.
	cfg := types.DefaultConfig()
	if err := config.LoadIniContent(cfg, iniContent); err != nil {
		return fmt.Errorf("failed to parse ini content: %w", err)
	}

	// 2. 初始化日志系统
	if err := logger.Init(cfg.LogConf); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Debug().Msg("Configuring and starting Go core for mobile (in-memory)...")

	appServer, err := app.NewForMobile(cfg)
	if err != nil {
		return err
	}
	if err := appServer.Start(); err != nil {
		logger.Error().Err(err).Msg("Failed to start app server in mobile mode")
		return err
	}

	activeAppServer = appServer
	logger.Debug().Str("addr", appServer.Addr()).Msg("Go core started successfully.")
	return nil
}

// Stop stops the Go core.
func Stop() {
	instanceMutex.Lock()
	server := activeAppServer
	activeAppServer = nil
	instanceMutex.Unlock()

	if server != nil {
		logger.Debug().Msg("Stopping Go core for mobile...")
		server.Stop()
		server.Wait()
	}
}

// LookupDevice 查询一个 kno，返回与 GET /api/device/{kno} 相同的 JSON。
// 查询失败时 JSON 中 success 为 false，err 为 nil；只有服务未启动或内部错误才返回 err。
func LookupDevice(kno string) (responseJson string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("go core panic in LookupDevice: %v\n\n%s", r, debug.Stack())
			responseJson = ""
		}
	}()

	instanceMutex.Lock()
	server := activeAppServer
	instanceMutex.Unlock()

	if server == nil {
		return "", fmt.Errorf("service is not running")
	}

	// 查询可能持续数十秒，不持有锁。
	resp := server.LookupDevice(context.Background(), kno)
	data, err := json.Marshal(resp)
	if err != nil {
		return "", fmt.Errorf("failed to marshal lookup response: %w", err)
	}
	return string(data), nil
}
