package registry

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"
	"time"

	"github.com/google/uuid"

	"registry_nexus/internal/shared/logger"
	"registry_nexus/internal/shared/metrics"
	"registry_nexus/internal/shared/settings"
)

// FailureMessage is the message returned to clients when every strategy failed.
const FailureMessage = "All methods failed."

var ErrLookupFailed = errors.New("all lookup methods failed")

// Stage is one tier of the fallback chain: memoized proxy, direct, then the proxy list.
type Stage string

const (
	StageMemoized  Stage = "memoized"
	StageDirect    Stage = "direct"
	StageProxyList Stage = "proxy_list"
)

// ProxyProvider supplies proxy candidates in the order they should be tried.
type ProxyProvider interface {
	GetProxies(ctx context.Context) []string
}

// Options bounds every lookup.
type Options struct {
	DirectTimeout    time.Duration
	ProxyTimeout     time.Duration
	MaxProxyAttempts int
}

func DefaultOptions() Options {
	return Options{
		DirectTimeout:    8 * time.Second,
		ProxyTimeout:     5 * time.Second,
		MaxProxyAttempts: 10,
	}
}

// Result is a successful lookup. UsedProxy is empty when the direct connection won.
type Result struct {
	Kno       string
	Record    DeviceRecord
	UsedProxy string
	Stage     Stage
}

// step is a single planned attempt.
type step struct {
	stage   Stage
	index   int
	proxy   string
	timeout time.Duration
}

// workingProxy remembers the last proxy that produced a registry page.
type workingProxy struct {
	mu  sync.Mutex
	url string
}

func (w *workingProxy) get() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.url
}

func (w *workingProxy) set(url string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.url = url
}

// clearIf empties the slot only if it still holds url, so a concurrent
// success recorded meanwhile is not thrown away.
func (w *workingProxy) clearIf(url string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.url == url {
		w.url = ""
	}
}

// Service resolves registry identifiers through the fallback chain.
// One instance per process; the proxy memo lives on it.
type Service struct {
	fetcher PageFetcher
	proxies ProxyProvider
	opts    Options
	memo    workingProxy
	sink    EventSink
	metrics *metrics.Metrics
}

// NewService wires a lookup service. sink and m may be nil.
func NewService(fetcher PageFetcher, proxies ProxyProvider, opts Options, sink EventSink, m *metrics.Metrics) *Service {
	defaults := DefaultOptions()
	if opts.DirectTimeout <= 0 {
		opts.DirectTimeout = defaults.DirectTimeout
	}
	if opts.ProxyTimeout <= 0 {
		opts.ProxyTimeout = defaults.ProxyTimeout
	}
	if opts.MaxProxyAttempts <= 0 {
		opts.MaxProxyAttempts = defaults.MaxProxyAttempts
	}
	if sink == nil {
		sink = discardSink{}
	}
	return &Service{
		fetcher: fetcher,
		proxies: proxies,
		opts:    opts,
		sink:    sink,
		metrics: m,
	}
}

// WorkingProxy returns the memoized proxy, or "" when none is remembered.
func (s *Service) WorkingProxy() string {
	return s.memo.get()
}

// SetWorkingProxy seeds the memo, e.g. from a previous run.
func (s *Service) SetWorkingProxy(proxyURL string) {
	s.memo.set(proxyURL)
}

// steps yields the attempt plan. The proxy list is only consulted once the
// memoized and direct stages have been consumed.
func (s *Service) steps(ctx context.Context) iter.Seq[step] {
	return func(yield func(step) bool) {
		memo := s.memo.get()
		if memo != "" {
			if !yield(step{stage: StageMemoized, proxy: memo, timeout: s.opts.ProxyTimeout}) {
				return
			}
		}
		if !yield(step{stage: StageDirect, timeout: s.opts.DirectTimeout}) {
			return
		}
		// The memo already failed in this lookup; it is not tried again from the list.
		candidates := make([]string, 0, s.opts.MaxProxyAttempts)
		for _, candidate := range s.proxies.GetProxies(ctx) {
			if len(candidates) == s.opts.MaxProxyAttempts {
				break
			}
			if memo != "" && candidate == memo {
				continue
			}
			candidates = append(candidates, candidate)
		}
		for i, candidate := range candidates {
			if !yield(step{stage: StageProxyList, index: i, proxy: candidate, timeout: s.opts.ProxyTimeout}) {
				return
			}
		}
	}
}

// Lookup runs the fallback chain for kno and returns on the first success.
func (s *Service) Lookup(ctx context.Context, kno string) (*Result, error) {
	requestID := uuid.NewString()
	l := logger.WithComponent("Registry/Service")
	l.Info().Str("kno", kno).Str("request_id", requestID).Msg("Starting registry lookup.")

	attempts := 0
	for st := range s.steps(ctx) {
		if err := ctx.Err(); err != nil {
			s.countLookup("failed")
			return nil, fmt.Errorf("%w: %v", ErrLookupFailed, err)
		}

		attempts++
		rec, err := s.attempt(ctx, requestID, kno, st)
		if err == nil {
			if st.stage == StageProxyList {
				s.memo.set(st.proxy)
			}
			l.Info().
				Str("kno", kno).
				Str("request_id", requestID).
				Str("stage", string(st.stage)).
				Str("proxy", st.proxy).
				Int("attempts", attempts).
				Msg("Registry lookup succeeded.")
			s.countLookup("success")
			return &Result{Kno: kno, Record: rec, UsedProxy: st.proxy, Stage: st.stage}, nil
		}

		if st.stage == StageMemoized && ctx.Err() == nil {
			s.memo.clearIf(st.proxy)
		}
	}

	l.Warn().Str("kno", kno).Str("request_id", requestID).Int("attempts", attempts).Msg("Registry lookup failed, all methods exhausted.")
	s.countLookup("failed")
	return nil, ErrLookupFailed
}

func (s *Service) attempt(ctx context.Context, requestID, kno string, st step) (DeviceRecord, error) {
	l := logger.WithComponent("Registry/Service")
	start := time.Now()
	rec, err := s.fetcher.FetchPage(ctx, kno, st.proxy, st.timeout)
	elapsed := time.Since(start)

	event := &AttemptEvent{
		Timestamp: start,
		RequestID: requestID,
		Kno:       kno,
		Stage:     st.stage,
		Index:     st.index,
		Proxy:     st.proxy,
		Success:   err == nil,
		Duration:  elapsed,
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
		event.Error = err.Error()
		l.Debug().
			Err(err).
			Str("request_id", requestID).
			Str("stage", string(st.stage)).
			Int("index", st.index).
			Str("proxy", st.proxy).
			Dur("elapsed", elapsed).
			Msg("Fetch attempt failed.")
	}
	if s.metrics != nil {
		s.metrics.Attempts.WithLabelValues(string(st.stage), outcome).Inc()
	}
	s.sink.PublishAttempt(event)
	return rec, err
}

func (s *Service) countLookup(result string) {
	if s.metrics != nil {
		s.metrics.Lookups.WithLabelValues(result).Inc()
	}
}

// OnSettingsUpdate applies the "registry" runtime settings to the fetcher.
func (s *Service) OnSettingsUpdate(moduleKey string, newSettings interface{}) error {
	if moduleKey != "registry" {
		return nil
	}
	rs, ok := newSettings.(*settings.RegistrySettings)
	if !ok {
		return fmt.Errorf("unexpected settings type %T for module %s", newSettings, moduleKey)
	}
	if hs, ok := s.fetcher.(interface{ SetHeaders(userAgent, acceptLanguage string) }); ok {
		hs.SetHeaders(rs.UserAgent, rs.AcceptLanguage)
	}
	return nil
}
