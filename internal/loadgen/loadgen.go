package loadgen

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"poolserv/internal/logger"
	"poolserv/internal/metrics"
	"poolserv/internal/pool"
)

// Config は負荷生成の設定
type Config struct {
	Workers  int           // 同時リクエスト数（プールのワーカー数）
	Requests uint64        // 発行するリクエスト総数
	Timeout  time.Duration // 1リクエストあたりのタイムアウト
}

// DefaultConfig はデフォルト設定を返す
func DefaultConfig() Config {
	return Config{
		Workers:  4,
		Requests: 100,
		Timeout:  5 * time.Second,
	}
}

// Client は負荷生成器
type Client struct {
	config  Config
	target  string
	pool    *pool.ThreadPool
	metrics *metrics.Metrics
}

// New は target に対する新しい負荷生成器を作成する
func New(target string, config Config) (*Client, error) {
	p, err := pool.New(config.Workers)
	if err != nil {
		return nil, fmt.Errorf("failed to create thread pool: %w", err)
	}

	return &Client{
		config:  config,
		target:  target,
		pool:    p,
		metrics: metrics.New(),
	}, nil
}

// Run は設定された数のリクエストを発行し、全件の完了を待って結果を返す
// ctx のキャンセルで投入を打ち切る（実行中のリクエストは完了を待つ）
func (c *Client) Run(ctx context.Context) (*metrics.Snapshot, error) {
	logger.Info("loadgen", "issuing %d requests against %s (workers: %d)",
		c.config.Requests, c.target, c.config.Workers)

	var wg sync.WaitGroup
	for i := uint64(0); i < c.config.Requests; i++ {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		ok := c.pool.Execute(func() {
			defer wg.Done()
			c.request()
		})
		if !ok {
			wg.Done()
			break
		}
	}

	wg.Wait()
	c.pool.Shutdown()

	snapshot := c.metrics.Snapshot()
	logger.Info("loadgen", "done: %d requests, %.2f%% errors",
		snapshot.TotalRequests, snapshot.ErrorRate*100)
	return &snapshot, ctx.Err()
}

// request は1件のGETを発行して結果を記録する
func (c *Client) request() {
	start := time.Now()

	conn, err := net.DialTimeout("tcp", c.target, c.config.Timeout)
	if err != nil {
		c.metrics.RecordFailure(time.Since(start))
		return
	}
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(c.config.Timeout))

	if _, err := fmt.Fprintf(conn, "GET / HTTP/1.1\r\nHost: %s\r\n\r\n", c.target); err != nil {
		c.metrics.RecordFailure(time.Since(start))
		return
	}

	resp, err := io.ReadAll(conn)
	latency := time.Since(start)

	if err != nil || !bytes.HasPrefix(resp, []byte("HTTP/1.1 200")) {
		c.metrics.RecordFailure(latency)
		return
	}
	c.metrics.RecordSuccess(latency)
}

// Metrics はメトリクスを返す
func (c *Client) Metrics() *metrics.Metrics {
	return c.metrics
}
