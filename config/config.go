package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"
	"unicode"

	"github.com/spf13/viper"
)

const (
	BackendHTTP    = "http"
	BackendCommand = "command"
)

type Config struct {
	Server ServerConfig
	Model  ModelConfig
	Log    LogConfig
}

type ServerConfig struct {
	Host             string
	Port             string
	WorkerPoolSize   int
	CORSAllowOrigins []string
}

type ModelConfig struct {
	Backend string
	Name    string
	URL     string
	Command string
	Timeout time.Duration
	// HeartbeatSchedule 为空时不启动定期探测
	HeartbeatSchedule string
}

type LogConfig struct {
	Level string
}

func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// Load 从环境变量读取配置
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", "8000")
	v.SetDefault("WORKER_POOL_SIZE", runtime.NumCPU())
	v.SetDefault("CORS_ALLOW_ORIGINS", "*")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("MODEL_BACKEND", BackendHTTP)
	v.SetDefault("MODEL_NAME", "u2net")
	v.SetDefault("MODEL_URL", "http://localhost:7000/api/remove")
	v.SetDefault("MODEL_COMMAND", "rembg")
	v.SetDefault("MODEL_TIMEOUT", 5*time.Minute)
	v.SetDefault("MODEL_HEARTBEAT_SCHEDULE", "")

	v.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Host:             v.GetString("SERVER_HOST"),
			Port:             v.GetString("SERVER_PORT"),
			WorkerPoolSize:   v.GetInt("WORKER_POOL_SIZE"),
			CORSAllowOrigins: splitList(v.GetString("CORS_ALLOW_ORIGINS")),
		},
		Model: ModelConfig{
			Backend:           v.GetString("MODEL_BACKEND"),
			Name:              v.GetString("MODEL_NAME"),
			URL:               v.GetString("MODEL_URL"),
			Command:           v.GetString("MODEL_COMMAND"),
			Timeout:           v.GetDuration("MODEL_TIMEOUT"),
			HeartbeatSchedule: v.GetString("MODEL_HEARTBEAT_SCHEDULE"),
		},
		Log: LogConfig{
			Level: v.GetString("LOG_LEVEL"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// splitList 按逗号或空白切分环境变量里的列表，忽略空项
func splitList(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
}

func (c *Config) Validate() error {
	switch c.Model.Backend {
	case BackendHTTP:
		if c.Model.URL == "" {
			return fmt.Errorf("MODEL_URL is required for backend %q", BackendHTTP)
		}
	case BackendCommand:
		if c.Model.Command == "" {
			return fmt.Errorf("MODEL_COMMAND is required for backend %q", BackendCommand)
		}
	default:
		return fmt.Errorf("unknown MODEL_BACKEND %q (want %q or %q)", c.Model.Backend, BackendHTTP, BackendCommand)
	}

	if c.Model.Timeout <= 0 {
		return fmt.Errorf("MODEL_TIMEOUT must be positive, got %s", c.Model.Timeout)
	}
	if c.Server.WorkerPoolSize <= 0 {
		return fmt.Errorf("WORKER_POOL_SIZE must be positive, got %d", c.Server.WorkerPoolSize)
	}
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}
	return nil
}
