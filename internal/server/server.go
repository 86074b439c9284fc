package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"poolserv/internal/events"
	"poolserv/internal/logger"
	"poolserv/internal/metrics"
	"poolserv/internal/pool"

	"golang.org/x/net/netutil"
)

const readBufferSize = 1024

// Config はサーバーの実行時設定
type Config struct {
	Addr        string        // リッスンアドレス
	Workers     int           // プールのワーカー数
	DocRoot     string        // hello.html / 404.html を置くディレクトリ
	MaxConns    int           // 同時に受け付ける接続数の上限（0で無制限）
	ReadTimeout time.Duration // リクエスト読み取りのタイムアウト
}

// DefaultConfig はデフォルト設定を返す
func DefaultConfig() Config {
	return Config{
		Addr:        "127.0.0.1:7878",
		Workers:     4,
		DocRoot:     "static",
		MaxConns:    256,
		ReadTimeout: 10 * time.Second,
	}
}

// Server は接続をワーカープールへ引き渡すTCPサーバー
type Server struct {
	config  Config
	pool    *pool.ThreadPool
	metrics *metrics.Metrics
	bus     *events.Bus

	mu      sync.RWMutex
	ln      net.Listener
	running bool
}

// New は新しいサーバーを作成する
// ワーカー数が不正な場合はプール作成時のエラーをそのまま返す
func New(config Config, bus *events.Bus) (*Server, error) {
	p, err := pool.NewWithBus(config.Workers, bus)
	if err != nil {
		return nil, fmt.Errorf("failed to create thread pool: %w", err)
	}

	return &Server{
		config:  config,
		pool:    p,
		metrics: metrics.New(),
		bus:     bus,
	}, nil
}

// Start はリッスンを開始し、ctx がキャンセルされるまでブロックする
// 返る前にプールを停止し、全ワーカーをjoinする
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", s.config.Addr, err)
	}
	if s.config.MaxConns > 0 {
		ln = netutil.LimitListener(ln, s.config.MaxConns)
	}

	s.mu.Lock()
	s.ln = ln
	s.running = true
	s.mu.Unlock()

	logger.Info("server", "listening on %s (workers: %d, docroot: %s)",
		ln.Addr(), s.config.Workers, s.config.DocRoot)

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	s.acceptLoop(ctx, ln)

	s.pool.Shutdown()

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	logger.Info("server", "stopped")
	return nil
}

// acceptLoop は接続を受け付けてプールへ投入する
func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			// 一時的なエラーではループを継続する
			logger.Warn("server", "accept failed: %v", err)
			if s.bus != nil {
				s.bus.Publish(events.NewAcceptErrorEvent(err))
			}
			continue
		}

		if s.bus != nil {
			s.bus.Publish(events.NewConnAcceptedEvent(conn.RemoteAddr().String()))
		}

		if !s.pool.Execute(func() {
			s.handleConn(conn)
		}) {
			// シャットダウン開始後に受理した接続はそのまま閉じる
			_ = conn.Close()
		}
	}
}

// handleConn は1つの接続を処理する
// リクエスト行の先頭だけを見て応答を決める。完全なHTTPパーサーではない
func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	start := time.Now()

	if s.config.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
	}

	buf := make([]byte, readBufferSize)
	n, err := conn.Read(buf)
	if n == 0 {
		logger.Debug("server", "read failed from %s: %v", conn.RemoteAddr(), err)
		s.metrics.RecordFailure(time.Since(start))
		return
	}
	statusLine, filename := routeRequest(buf[:n])

	body, err := os.ReadFile(filepath.Join(s.config.DocRoot, filename))
	if err != nil {
		logger.Error("server", "failed to read %s: %v", filename, err)
		body = nil
	}

	if werr := writeResponse(conn, statusLine, body); werr != nil {
		logger.Debug("server", "write failed to %s: %v", conn.RemoteAddr(), werr)
		err = werr
	}

	latency := time.Since(start)
	if err == nil && filename == helloPage {
		s.metrics.RecordSuccess(latency)
	} else {
		s.metrics.RecordFailure(latency)
	}
}

const (
	helloPage    = "hello.html"
	notFoundPage = "404.html"
)

// routeRequest はリクエスト先頭バイト列からステータス行とファイル名を決める
func routeRequest(request []byte) (statusLine, filename string) {
	if bytes.HasPrefix(request, []byte("GET / HTTP/1.1\r\n")) {
		return "HTTP/1.1 200 OK", helloPage
	}
	return "HTTP/1.1 404 NOT FOUND", notFoundPage
}

// writeResponse はステータス行とContent-Length、本文を書き込む
func writeResponse(conn net.Conn, statusLine string, body []byte) error {
	if _, err := fmt.Fprintf(conn, "%s\r\nContent-Length: %d\r\n\r\n", statusLine, len(body)); err != nil {
		return err
	}
	_, err := conn.Write(body)
	return err
}

// Addr は実際のリッスンアドレスを返す。未起動の場合は空文字列
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Running は受け付け中かどうかを返す
func (s *Server) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Workers はプールのワーカー数を返す
func (s *Server) Workers() int {
	return s.pool.Size()
}

// QueueLen はプールの未配送メッセージ数を返す
func (s *Server) QueueLen() int {
	return s.pool.QueueLen()
}

// Metrics はリクエストメトリクスを返す
func (s *Server) Metrics() *metrics.Metrics {
	return s.metrics
}
