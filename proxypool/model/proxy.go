package model

import "time"

// Candidate 是一个代理候选项，URL 形如 "http://1.2.3.4:8080"。
type Candidate struct {
	URL    string `json:"url"`
	Source string `json:"source"` // 来源列表名称, e.g., "thespeedx"
}

// Snapshot is the full cache content at one point in time.
// It is what /api/proxies returns and what FileStorage persists.
type Snapshot struct {
	Candidates  []*Candidate `json:"candidates"`
	RefreshedAt time.Time    `json:"refreshed_at"`
}

