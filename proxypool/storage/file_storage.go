package storage

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"registry_nexus/internal/shared/logger"
	"registry_nexus/proxypool/model"
)

const (
	delimiter = "|"
	numFields = 3 // URL|Source|RefreshedAt
)

// Storage 接口定义了代理列表快照持久化的行为。
type Storage interface {
	Load() (*model.Snapshot, error)
	Save(snapshot *model.Snapshot) error
}

// FileStorage 实现了 Storage 接口，使用纯文本文件进行持久化。
type FileStorage struct {
	filePath string
	mu       sync.RWMutex
}

// NewFileStorage 创建一个新的 FileStorage 实例。
func NewFileStorage(filePath string) *FileStorage {
	return &FileStorage{
		filePath: filePath,
	}
}

// Load 从纯文本文件加载快照。文件不存在时返回空快照。
func (fs *FileStorage) Load() (*model.Snapshot, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	l := logger.WithComponent("ProxyPool/Storage")

	file, err := os.Open(fs.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			l.Info().Str("path", fs.filePath).Msg("Proxy cache file not found, starting with an empty list.")
			return &model.Snapshot{}, nil
		}
		return nil, err
	}
	defer file.Close()

	snapshot := &model.Snapshot{}
	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if line == "" {
			continue
		}

		fields := strings.Split(line, delimiter)
		if len(fields) != numFields {
			l.Warn().Int("line", lineNum).Int("expected", numFields).Int("got", len(fields)).Msg("Skipping malformed line in proxy cache file.")
			continue
		}

		c, refreshedAt, err := parseCandidate(fields)
		if err != nil {
			l.Warn().Int("line", lineNum).Err(err).Msg("Failed to parse candidate from line, skipping.")
			continue
		}
		// 所有行共享同一个刷新时间，取最旧的一个。
		if snapshot.RefreshedAt.IsZero() || refreshedAt.Before(snapshot.RefreshedAt) {
			snapshot.RefreshedAt = refreshedAt
		}
		snapshot.Candidates = append(snapshot.Candidates, c)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	l.Info().Int("count", len(snapshot.Candidates)).Msg("Successfully loaded proxy candidates from file.")
	return snapshot, nil
}

// Save 将快照按原有顺序写入纯文本文件。
func (fs *FileStorage) Save(snapshot *model.Snapshot) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	l := logger.WithComponent("ProxyPool/Storage")

	var sb strings.Builder
	for _, c := range snapshot.Candidates {
		sb.WriteString(formatCandidate(c, snapshot.RefreshedAt))
		sb.WriteString("\n")
	}

	// 先写临时文件再重命名，避免进程中断留下半个文件。
	tmp := fs.filePath + ".tmp"
	if err := os.WriteFile(tmp, []byte(sb.String()), 0644); err != nil {
		return err
	}
	if err := os.Rename(tmp, fs.filePath); err != nil {
		return err
	}

	l.Info().Int("count", len(snapshot.Candidates)).Msg("Successfully saved proxy candidates to file.")
	return nil
}

// formatCandidate 将候选代理格式化为一行文本。
func formatCandidate(c *model.Candidate, refreshedAt time.Time) string {
	return strings.Join([]string{
		c.URL,
		c.Source,
		strconv.FormatInt(refreshedAt.Unix(), 10),
	}, delimiter)
}

// parseCandidate 从字符串切片解析出一个候选代理及其刷新时间。
func parseCandidate(fields []string) (*model.Candidate, time.Time, error) {
	if fields[0] == "" {
		return nil, time.Time{}, fmt.Errorf("empty url")
	}

	refreshedUnix, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("invalid refreshed_at: %w", err)
	}

	var refreshedAt time.Time
	if refreshedUnix > 0 {
		refreshedAt = time.Unix(refreshedUnix, 0)
	}

	return &model.Candidate{URL: fields[0], Source: fields[1]}, refreshedAt, nil
}
