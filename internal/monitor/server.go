// Package monitor exposes server status and metrics over HTTP and websocket.
package monitor

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"poolserv/internal/events"
	"poolserv/internal/logger"
	"poolserv/internal/server"

	"golang.org/x/net/websocket"
)

// Server はモニタリングAPIサーバー
type Server struct {
	addr string
	web  *server.Server
	bus  *events.Bus

	mu         sync.RWMutex
	listenAddr string
	wsClients  map[*websocket.Conn]bool

	httpServer *http.Server
}

// NewServer は新しいモニタリングサーバーを作成する
// web は状態とメトリクスの参照元、bus はnilでなければイベントも配信する
func NewServer(addr string, web *server.Server, bus *events.Bus) *Server {
	return &Server{
		addr:      addr,
		web:       web,
		bus:       bus,
		wsClients: make(map[*websocket.Conn]bool),
	}
}

// Start はサーバーを開始し、ctx がキャンセルされるまでブロックする
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()

	// API routes
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/metrics", s.handleMetrics)

	// WebSocket
	mux.Handle("/ws", websocket.Handler(s.handleWebSocket))

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	s.httpServer = &http.Server{Handler: mux}

	s.mu.Lock()
	s.listenAddr = ln.Addr().String()
	s.mu.Unlock()

	// バックグラウンドでメトリクス配信
	go s.broadcastLoop(ctx)
	if s.bus != nil {
		go s.forwardEvents(ctx)
	}

	logger.Info("monitor", "listening on http://%s", ln.Addr())

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.Serve(ln); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Addr は実際のリッスンアドレスを返す（開始前は空文字列）
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listenAddr
}

// StatusResponse はステータスレスポンス
type StatusResponse struct {
	Running  bool   `json:"running"`
	Addr     string `json:"addr,omitempty"`
	Workers  int    `json:"workers"`
	QueueLen int    `json:"queue_len"`
}

func (s *Server) status() StatusResponse {
	return StatusResponse{
		Running:  s.web.Running(),
		Addr:     s.web.Addr(),
		Workers:  s.web.Workers(),
		QueueLen: s.web.QueueLen(),
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeJSON(w, s.status())
}

// MetricsResponse はメトリクスレスポンス
type MetricsResponse struct {
	TotalRequests   uint64  `json:"total_requests"`
	SuccessRequests uint64  `json:"success_requests"`
	FailedRequests  uint64  `json:"failed_requests"`
	RPS             float64 `json:"rps"`
	AvgLatencyMs    float64 `json:"avg_latency_ms"`
	P99LatencyMs    float64 `json:"p99_latency_ms"`
	ErrorRate       float64 `json:"error_rate"`
}

func (s *Server) metricsResponse() MetricsResponse {
	snap := s.web.Metrics().Snapshot()
	return MetricsResponse{
		TotalRequests:   snap.TotalRequests,
		SuccessRequests: snap.SuccessRequests,
		FailedRequests:  snap.FailedRequests,
		RPS:             snap.RPS,
		AvgLatencyMs:    float64(snap.AverageLatency.Microseconds()) / 1000,
		P99LatencyMs:    float64(snap.P99Latency.Microseconds()) / 1000,
		ErrorRate:       snap.ErrorRate,
	}
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeJSON(w, s.metricsResponse())
}

// WebSocket handling
func (s *Server) handleWebSocket(ws *websocket.Conn) {
	s.mu.Lock()
	s.wsClients[ws] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.wsClients, ws)
		s.mu.Unlock()
		_ = ws.Close()
	}()

	// Keep connection alive
	for {
		var msg string
		if err := websocket.Message.Receive(ws, &msg); err != nil {
			break
		}
	}
}

func (s *Server) broadcast(data interface{}) {
	s.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(s.wsClients))
	for ws := range s.wsClients {
		clients = append(clients, ws)
	}
	s.mu.RUnlock()

	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}

	for _, ws := range clients {
		_ = websocket.Message.Send(ws, string(jsonData))
	}
}

// broadcastLoop は1秒ごとにメトリクスを全クライアントへ配信する
func (s *Server) broadcastLoop(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.broadcast(map[string]interface{}{
				"type":    "metrics",
				"status":  s.status(),
				"metrics": s.metricsResponse(),
			})
		}
	}
}

// forwardEvents はバスのイベントをwebsocketクライアントへ転送する
func (s *Server) forwardEvents(ctx context.Context) {
	ch := s.bus.Subscribe()
	defer s.bus.Unsubscribe(ch)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			s.broadcast(map[string]interface{}{
				"type":  "event",
				"event": ev,
			})
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("monitor", "failed to encode JSON: %v", err)
	}
}
