package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/chaos-io/bgremove/config"
	"github.com/chaos-io/bgremove/model"
	"github.com/chaos-io/bgremove/rembg"
	"github.com/chaos-io/bgremove/server"
)

func TestNewRemover(t *testing.T) {
	t.Parallel()

	r := newRemover(config.ModelConfig{Backend: config.BackendHTTP, URL: "http://m/api/remove", Name: "u2net", Timeout: time.Minute})
	assert.IsType(t, &rembg.HTTPRemover{}, r)

	r = newRemover(config.ModelConfig{Backend: config.BackendCommand, Command: "rembg", Name: "u2net"})
	assert.IsType(t, &rembg.CommandRemover{}, r)
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1", Port: "0", WorkerPoolSize: 1, CORSAllowOrigins: []string{"*"}},
		Model:  config.ModelConfig{Backend: config.BackendHTTP, Name: "u2net", Timeout: time.Minute},
	}
}

func TestServe(t *testing.T) {
	t.Parallel()

	echo := rembg.RemoverFunc(func(_ context.Context, in []byte) ([]byte, error) {
		return in, nil
	})
	broken := rembg.RemoverFunc(func(context.Context, []byte) ([]byte, error) {
		return nil, errors.New("connection refused")
	})
	listenErr := errors.New("address already in use")

	tests := []struct {
		name       string
		remover    rembg.Remover
		listen     error
		wantErr    error
		wantListen bool
	}{
		{name: "model unavailable aborts before listening", remover: broken, wantErr: model.ErrModelUnavailable},
		{name: "ready model starts listening", remover: echo, wantListen: true},
		{name: "listen failure is returned", remover: echo, listen: listenErr, wantErr: listenErr, wantListen: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			listened := false
			listen := func(srv *server.Server) error {
				assert.NotNil(t, srv)
				listened = true
				return tt.listen
			}

			err := serve(context.Background(), testConfig(), zaptest.NewLogger(t), tt.remover, listen)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantListen, listened)
		})
	}
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	t.Parallel()

	echo := rembg.RemoverFunc(func(_ context.Context, in []byte) ([]byte, error) {
		return in, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	release := make(chan struct{})
	listen := func(*server.Server) error {
		close(started)
		<-release
		return nil
	}
	defer close(release)

	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, testConfig(), zaptest.NewLogger(t), echo, listen)
	}()

	<-started
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}
