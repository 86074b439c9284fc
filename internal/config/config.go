package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"poolserv/internal/server"

	"gopkg.in/yaml.v3"
)

// FileConfig は設定ファイルの構造
type FileConfig struct {
	Server  ServerConfig  `yaml:"server" json:"server"`
	Monitor MonitorConfig `yaml:"monitor" json:"monitor"`
}

// ServerConfig はサーバー設定
type ServerConfig struct {
	Addr        string `yaml:"addr" json:"addr"`
	Workers     int    `yaml:"workers" json:"workers"`
	DocRoot     string `yaml:"doc_root" json:"doc_root"`
	MaxConns    int    `yaml:"max_conns" json:"max_conns"`
	ReadTimeout string `yaml:"read_timeout" json:"read_timeout"`
}

// MonitorConfig はモニタリングサーバー設定
type MonitorConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Addr    string `yaml:"addr" json:"addr"`
}

// LoadFile は設定ファイルを読み込む
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config FileConfig
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}

	return &config, nil
}

// ToServerConfig はFileConfigをserver.Configに変換する
// 未指定の項目はデフォルト値のまま残す
func (f *FileConfig) ToServerConfig() (server.Config, error) {
	sc := f.Server

	config := server.DefaultConfig()

	if sc.Addr != "" {
		config.Addr = sc.Addr
	}
	if sc.Workers != 0 {
		config.Workers = sc.Workers
	}
	if sc.DocRoot != "" {
		config.DocRoot = sc.DocRoot
	}
	if sc.MaxConns != 0 {
		config.MaxConns = sc.MaxConns
	}
	if sc.ReadTimeout != "" {
		d, err := time.ParseDuration(sc.ReadTimeout)
		if err != nil {
			return config, fmt.Errorf("invalid read_timeout: %w", err)
		}
		config.ReadTimeout = d
	}

	return config, nil
}

// Validate は設定を検証する
func (f *FileConfig) Validate() error {
	sc := f.Server

	if sc.Workers < 0 {
		return fmt.Errorf("server.workers must be non-negative")
	}

	if sc.MaxConns < 0 {
		return fmt.Errorf("server.max_conns must be non-negative")
	}

	if sc.ReadTimeout != "" {
		if _, err := time.ParseDuration(sc.ReadTimeout); err != nil {
			return fmt.Errorf("invalid server.read_timeout: %w", err)
		}
	}

	if f.Monitor.Enabled && f.Monitor.Addr == "" {
		return fmt.Errorf("monitor.addr is required when monitor is enabled")
	}

	return nil
}
