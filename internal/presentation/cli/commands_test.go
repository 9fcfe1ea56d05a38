package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webcam-filters/internal/application"
	"webcam-filters/internal/config"
	"webcam-filters/internal/domain"
)

// isolate убирает влияние пользовательских файлов конфигурации и окружения
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	chdir(t, t.TempDir())
}

func execute(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	c := NewCLI("1.2.3")
	c.SetArgs(args)
	c.SetOutput(&out)
	err := c.Execute(ctx)
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, context.Background(), "version")
	require.NoError(t, err)
	assert.Equal(t, "webcam-filters v1.2.3\n", out)
}

func TestDevices(t *testing.T) {
	out, err := execute(t, context.Background(), "devices")
	require.NoError(t, err)
	assert.Contains(t, out, "Доступные устройства:")
}

func TestRun_SyntheticUntilCancel(t *testing.T) {
	isolate(t)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	out, err := execute(t, ctx, "run",
		"--source", "synthetic",
		"--display", "websocket",
		"--listen", "127.0.0.1:0",
		"--width", "64", "--height", "48",
		"--filters", "gr",
		"--tui=false",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "Итог сессии")
}

func TestRun_InvalidFlags(t *testing.T) {
	isolate(t)

	_, err := execute(t, context.Background(), "run",
		"--source", "synthetic", "--display", "websocket", "--width", "641", "--tui=false")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "641x360")

	_, err = execute(t, context.Background(), "run",
		"--source", "synthetic", "--display", "websocket", "--filters", "bx", "--tui=false")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrContractViolation)
}

func TestRun_ConfigFile(t *testing.T) {
	isolate(t)

	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("source: synthetic\ndisplays: [push]\ntui: false\n"), 0o600))

	_, err := execute(t, context.Background(), "run", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "push_url")
}

func TestBuildSinks(t *testing.T) {
	cfg := config.Default()
	cfg.Displays = []string{config.DisplayWebSocket, config.DisplayPush}
	cfg.PushURL = "ws://127.0.0.1:1/ws"

	sink, hub, err := buildSinks(cfg, nil, nil, nil, nopLogger{})
	require.NoError(t, err)
	require.NotNil(t, hub)
	assert.Equal(t, 2, sink.Len())
	assert.NoError(t, sink.Close())

	cfg.Displays = []string{"vga"}
	_, _, err = buildSinks(cfg, nil, nil, nil, nopLogger{})
	assert.Error(t, err)
}

func TestOpenDriver_Synthetic(t *testing.T) {
	open := openDriver(nopLogger{})
	d, err := open(domain.VideoConfig{Source: config.SourceSynthetic, Width: 16, Height: 8, BufferCount: 3, FrameRate: 30})
	require.NoError(t, err)
	assert.Equal(t, 3, d.BufferCount())
	assert.NoError(t, d.Close())
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})                        {}
func (nopLogger) Warn(string, ...interface{})                        {}
func (nopLogger) Error(string, ...interface{})                       {}
func (nopLogger) Debug(string, ...interface{})                       {}
func (l nopLogger) WithField(string, interface{}) application.Logger { return l }

// chdir меняет рабочий каталог на время теста (аналог t.Chdir из Go 1.24)
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
