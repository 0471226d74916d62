package config

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// t.Setenv 不能和 t.Parallel 一起用，这里的用例串行执行

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8000", cfg.Server.Addr())
	assert.Equal(t, runtime.NumCPU(), cfg.Server.WorkerPoolSize)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSAllowOrigins)
	assert.Equal(t, BackendHTTP, cfg.Model.Backend)
	assert.Equal(t, "u2net", cfg.Model.Name)
	assert.Equal(t, "http://localhost:7000/api/remove", cfg.Model.URL)
	assert.Equal(t, "rembg", cfg.Model.Command)
	assert.Equal(t, 5*time.Minute, cfg.Model.Timeout)
	assert.Empty(t, cfg.Model.HeartbeatSchedule)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("WORKER_POOL_SIZE", "2")
	t.Setenv("CORS_ALLOW_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("MODEL_BACKEND", "command")
	t.Setenv("MODEL_NAME", "isnet-general-use")
	t.Setenv("MODEL_TIMEOUT", "90s")
	t.Setenv("MODEL_HEARTBEAT_SCHEDULE", "@every 10m")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9090", cfg.Server.Addr())
	assert.Equal(t, 2, cfg.Server.WorkerPoolSize)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSAllowOrigins)
	assert.Equal(t, BackendCommand, cfg.Model.Backend)
	assert.Equal(t, "isnet-general-use", cfg.Model.Name)
	assert.Equal(t, 90*time.Second, cfg.Model.Timeout)
	assert.Equal(t, "@every 10m", cfg.Model.HeartbeatSchedule)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_CORSOriginList(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  []string
	}{
		{name: "comma separated", value: "https://a.example,https://b.example", want: []string{"https://a.example", "https://b.example"}},
		{name: "comma and spaces", value: " https://a.example , https://b.example ,", want: []string{"https://a.example", "https://b.example"}},
		{name: "wildcard", value: "*", want: []string{"*"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("CORS_ALLOW_ORIGINS", tt.value)

			cfg, err := Load()
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Server.CORSAllowOrigins)
		})
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{name: "unknown backend", env: map[string]string{"MODEL_BACKEND": "grpc"}, wantErr: "unknown MODEL_BACKEND"},
		{name: "zero pool", env: map[string]string{"WORKER_POOL_SIZE": "0"}, wantErr: "WORKER_POOL_SIZE"},
		{name: "negative timeout", env: map[string]string{"MODEL_TIMEOUT": "-1s"}, wantErr: "MODEL_TIMEOUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	valid := Config{
		Server: ServerConfig{Port: "8000", WorkerPoolSize: 1},
		Model:  ModelConfig{Backend: BackendHTTP, URL: "http://m/api/remove", Timeout: time.Second},
	}
	assert.NoError(t, valid.Validate())

	noURL := valid
	noURL.Model.URL = ""
	assert.ErrorContains(t, noURL.Validate(), "MODEL_URL")

	noCommand := valid
	noCommand.Model.Backend = BackendCommand
	noCommand.Model.Command = ""
	assert.ErrorContains(t, noCommand.Validate(), "MODEL_COMMAND")
}
