// Package main is the entry point for poolserv.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"poolserv/internal/config"
	"poolserv/internal/events"
	"poolserv/internal/loadgen"
	"poolserv/internal/logger"
	"poolserv/internal/monitor"
	"poolserv/internal/server"
)

var (
	version = "dev"
)

func main() {
	// フラグ定義
	var (
		configFile  = flag.String("config", "", "設定ファイルパス (YAML/JSON)")
		addr        = flag.String("addr", "", "リッスンアドレス (例: 127.0.0.1:7878)")
		workers     = flag.Int("workers", 0, "ワーカープールのサイズ")
		docRoot     = flag.String("docroot", "", "hello.html / 404.html を置くディレクトリ")
		maxConns    = flag.Int("max-conns", 0, "同時接続数の上限")
		readTimeout = flag.Duration("read-timeout", 0, "リクエスト読み取りタイムアウト (例: 5s)")
		monitorAddr = flag.String("monitor-addr", "", "モニタリングサーバーのアドレス (例: :8080)")
		probeTarget = flag.String("probe", "", "負荷プローブモード: 対象アドレスへリクエストを発行")
		requests    = flag.Uint64("requests", 100, "プローブモードで発行するリクエスト数")
		debug       = flag.Bool("debug", false, "デバッグログを有効化")
		showVersion = flag.Bool("version", false, "バージョンを表示")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `poolserv - Pool-Backed Static Web Server

Usage:
  poolserv [options]

Options:
`)
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # デフォルト設定でサーバーを起動
  poolserv

  # 設定ファイルから起動
  poolserv --config server.yaml

  # フラグでカスタマイズ
  poolserv --addr :7878 --workers 8 --docroot /srv/www

  # モニタリングサーバー付きで起動
  poolserv --monitor-addr :8080

  # 稼働中のサーバーへ負荷プローブ
  poolserv --probe 127.0.0.1:7878 --requests 1000
`)
	}

	flag.Parse()

	// バージョン表示
	if *showVersion {
		fmt.Printf("poolserv version %s\n", version)
		return
	}

	if *debug {
		logger.Default.SetLevel(logger.LevelDebug)
	}

	// プローブモード
	if *probeTarget != "" {
		if err := runProbe(*probeTarget, *workers, *requests); err != nil {
			logger.Error("", "プローブエラー: %v", err)
			os.Exit(1)
		}
		return
	}

	// サーバー設定の決定
	serverConfig, monitorConfig, err := buildConfig(
		*configFile, *addr, *docRoot, *workers, *maxConns, *readTimeout, *monitorAddr,
	)
	if err != nil {
		logger.Error("", "設定エラー: %v", err)
		os.Exit(1)
	}

	// サーバー実行
	if err := runServer(serverConfig, monitorConfig); err != nil {
		logger.Error("", "サーバーエラー: %v", err)
		os.Exit(1)
	}
}

// buildConfig は設定ファイルとフラグからサーバー設定を構築する
// フラグは設定ファイルの値を上書きする
func buildConfig(
	configFile, addr, docRoot string,
	workers, maxConns int,
	readTimeout time.Duration,
	monitorAddr string,
) (server.Config, config.MonitorConfig, error) {
	cfg := server.DefaultConfig()
	mon := config.MonitorConfig{}

	// 1. 設定ファイルから読み込み
	if configFile != "" {
		fileConfig, err := config.LoadFile(configFile)
		if err != nil {
			return cfg, mon, fmt.Errorf("設定ファイル読み込みエラー: %w", err)
		}
		if err := fileConfig.Validate(); err != nil {
			return cfg, mon, fmt.Errorf("設定検証エラー: %w", err)
		}
		cfg, err = fileConfig.ToServerConfig()
		if err != nil {
			return cfg, mon, fmt.Errorf("設定変換エラー: %w", err)
		}
		mon = fileConfig.Monitor
	}

	// 2. フラグでオーバーライド
	if addr != "" {
		cfg.Addr = addr
	}
	if workers != 0 {
		cfg.Workers = workers
	}
	if docRoot != "" {
		cfg.DocRoot = docRoot
	}
	if maxConns != 0 {
		cfg.MaxConns = maxConns
	}
	if readTimeout != 0 {
		cfg.ReadTimeout = readTimeout
	}
	if monitorAddr != "" {
		mon.Enabled = true
		mon.Addr = monitorAddr
	}

	return cfg, mon, nil
}

// runServer はサーバーを起動し、シグナルで停止するまでブロックする
func runServer(cfg server.Config, mon config.MonitorConfig) error {
	fmt.Println("poolserv - Pool-Backed Static Web Server")
	fmt.Println("========================================")
	fmt.Printf("Address:  %s\n", cfg.Addr)
	fmt.Printf("Workers:  %d\n", cfg.Workers)
	fmt.Printf("Doc root: %s\n", cfg.DocRoot)
	if mon.Enabled {
		fmt.Printf("Monitor:  http://%s\n", mon.Addr)
	}
	fmt.Println("========================================")
	fmt.Println()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// シグナルハンドリング
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\n中断シグナルを受信、サーバーを終了中...")
		cancel()
	}()

	bus := events.NewBus()
	defer bus.Close()

	srv, err := server.New(cfg, bus)
	if err != nil {
		return err
	}

	if mon.Enabled {
		go func() {
			if err := monitor.NewServer(mon.Addr, srv, bus).Start(ctx); err != nil {
				logger.Error("monitor", "モニタリングサーバーエラー: %v", err)
			}
		}()
	}

	if err := srv.Start(ctx); err != nil {
		return err
	}

	// 終了時のメトリクスレポート
	fmt.Println()
	fmt.Println(srv.Metrics().Snapshot().Report())

	return nil
}

// runProbe は対象サーバーへ負荷プローブを実行する
func runProbe(target string, workers int, requests uint64) error {
	probeConfig := loadgen.DefaultConfig()
	if workers != 0 {
		probeConfig.Workers = workers
	}
	probeConfig.Requests = requests

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\n中断シグナルを受信、プローブを終了中...")
		cancel()
	}()

	client, err := loadgen.New(target, probeConfig)
	if err != nil {
		return err
	}

	snapshot, err := client.Run(ctx)
	if snapshot != nil {
		fmt.Println(snapshot.Report())
	}
	if err != nil && err != context.Canceled {
		return err
	}
	return nil
}
