package metrics

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// p99 のサンプル保持上限。超えた分は集計値のみに反映される
const sampleCap = 1000

// Metrics はリクエスト結果を集計する
type Metrics struct {
	total     atomic.Uint64
	succeeded atomic.Uint64
	failed    atomic.Uint64
	latencyNs atomic.Uint64
	maxNs     atomic.Int64

	mu          sync.RWMutex
	startedAt   time.Time
	windowStart time.Time
	windowCount uint64
	samples     []time.Duration
}

// New は新しいメトリクスを作成する
func New() *Metrics {
	now := time.Now()
	return &Metrics{
		startedAt:   now,
		windowStart: now,
		samples:     make([]time.Duration, 0, sampleCap),
	}
}

// RecordSuccess は成功したリクエストを記録する
func (m *Metrics) RecordSuccess(latency time.Duration) {
	m.succeeded.Add(1)
	m.record(latency, true)
}

// RecordFailure は失敗したリクエストを記録する
func (m *Metrics) RecordFailure(latency time.Duration) {
	m.failed.Add(1)
	m.record(latency, false)
}

func (m *Metrics) record(latency time.Duration, sample bool) {
	m.total.Add(1)
	m.latencyNs.Add(uint64(latency.Nanoseconds()))

	ns := latency.Nanoseconds()
	for {
		cur := m.maxNs.Load()
		if ns <= cur || m.maxNs.CompareAndSwap(cur, ns) {
			break
		}
	}

	m.mu.Lock()
	m.windowCount++
	if sample && len(m.samples) < sampleCap {
		m.samples = append(m.samples, latency)
	}
	m.mu.Unlock()
}

// TotalRequests は総リクエスト数を返す
func (m *Metrics) TotalRequests() uint64 { return m.total.Load() }

// SuccessRequests は成功リクエスト数を返す
func (m *Metrics) SuccessRequests() uint64 { return m.succeeded.Load() }

// FailedRequests は失敗リクエスト数を返す
func (m *Metrics) FailedRequests() uint64 { return m.failed.Load() }

// RPS は直近ウィンドウの Requests Per Second を返す
func (m *Metrics) RPS() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	elapsed := time.Since(m.windowStart).Seconds()
	if elapsed == 0 {
		return 0
	}
	return float64(m.windowCount) / elapsed
}

// OverallRPS は開始からの平均 RPS を返す
func (m *Metrics) OverallRPS() float64 {
	elapsed := time.Since(m.startedAt).Seconds()
	if elapsed == 0 {
		return 0
	}
	return float64(m.total.Load()) / elapsed
}

// AverageLatency は平均レイテンシを返す
func (m *Metrics) AverageLatency() time.Duration {
	total := m.total.Load()
	if total == 0 {
		return 0
	}
	return time.Duration(m.latencyNs.Load() / total)
}

// MaxLatency は観測した最大レイテンシを返す
func (m *Metrics) MaxLatency() time.Duration {
	return time.Duration(m.maxNs.Load())
}

// P99Latency はサンプルベースの P99 レイテンシを返す
func (m *Metrics) P99Latency() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.samples) == 0 {
		return 0
	}

	sorted := slices.Clone(m.samples)
	slices.Sort(sorted)

	idx := min(int(float64(len(sorted))*0.99), len(sorted)-1)
	return sorted[idx]
}

// ErrorRate はエラー率を返す（0.0〜1.0）
func (m *Metrics) ErrorRate() float64 {
	total := m.total.Load()
	if total == 0 {
		return 0
	}
	return float64(m.failed.Load()) / float64(total)
}

// Reset はウィンドウメトリクスをリセットする
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.windowCount = 0
	m.windowStart = time.Now()
	m.samples = m.samples[:0]
}

// Snapshot はメトリクスのスナップショット
type Snapshot struct {
	TotalRequests   uint64
	SuccessRequests uint64
	FailedRequests  uint64
	RPS             float64
	OverallRPS      float64
	AverageLatency  time.Duration
	MaxLatency      time.Duration
	P99Latency      time.Duration
	ErrorRate       float64
	Elapsed         time.Duration
}

// Snapshot は現在のメトリクスのスナップショットを返す
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		TotalRequests:   m.TotalRequests(),
		SuccessRequests: m.SuccessRequests(),
		FailedRequests:  m.FailedRequests(),
		RPS:             m.RPS(),
		OverallRPS:      m.OverallRPS(),
		AverageLatency:  m.AverageLatency(),
		MaxLatency:      m.MaxLatency(),
		P99Latency:      m.P99Latency(),
		ErrorRate:       m.ErrorRate(),
		Elapsed:         time.Since(m.startedAt),
	}
}

// Report はスナップショットを人が読める形式に整形する
func (s Snapshot) Report() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Requests:    %d (success: %d, failed: %d)\n",
		s.TotalRequests, s.SuccessRequests, s.FailedRequests)
	fmt.Fprintf(&b, "Throughput:  %.1f req/s\n", s.OverallRPS)
	fmt.Fprintf(&b, "Latency:     avg %v, max %v, p99 %v\n",
		s.AverageLatency, s.MaxLatency, s.P99Latency)
	fmt.Fprintf(&b, "Error rate:  %.2f%%\n", s.ErrorRate*100)
	fmt.Fprintf(&b, "Elapsed:     %v", s.Elapsed.Round(time.Millisecond))

	return b.String()
}
