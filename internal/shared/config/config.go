package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/ini.v1"

	"registry_nexus/internal/shared/types"
)

// LoadIni 加载 registry.ini 静态配置文件。
// 缺失的键保留 types.DefaultConfig 中的默认值。
func LoadIni(cfg *types.Config, fileName string) error {
	iniFile, err := ini.Load(fileName)
	if err != nil {
		return err
	}
	return mapAndOverride(cfg, iniFile)
}

// LoadIniContent 从内存中的 ini 文本加载配置（移动端没有文件）。
func LoadIniContent(cfg *types.Config, content string) error {
	iniFile, err := ini.Load([]byte(content))
	if err != nil {
		return err
	}
	return mapAndOverride(cfg, iniFile)
}

// LoadDotEnv 读取工作目录下的 .env（若存在），不会覆盖已存在的环境变量。
func LoadDotEnv(paths ...string) {
	_ = godotenv.Load(paths...)
}

func mapAndOverride(cfg *types.Config, iniFile *ini.File) error {
	if err := iniFile.MapTo(cfg); err != nil {
		return err
	}
	overrideFromEnvInt(&cfg.WebConf.Port, "WEB_PORT")
	overrideFromEnvString(&cfg.WebConf.User, "WEB_USER")
	overrideFromEnvString(&cfg.WebConf.Password, "WEB_PASSWORD")
	overrideFromEnvString(&cfg.LogConf.Level, "LOG_LEVEL")
	overrideFromEnvString(&cfg.ProxyPoolConf.CacheFile, "REGISTRY_PROXY_CACHE_FILE")
	return nil
}

func overrideFromEnvInt(target *int, envName string) {
	envValue := os.Getenv(envName)
	if envValue != "" {
		if intValue, err := strconv.Atoi(envValue); err == nil {
			*target = intValue
		}
	}
}

func overrideFromEnvString(target *string, envName string) {
	if envValue := os.Getenv(envName); envValue != "" {
		*target = envValue
	}
}
