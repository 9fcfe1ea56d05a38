package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"webcam-filters/internal/domain"
)

// Источники кадров
const (
	SourceV4L2      = "v4l2"
	SourceSynthetic = "synthetic"
)

// Виды отображения
const (
	DisplayFFplay    = "ffplay"
	DisplayWebSocket = "websocket"
	DisplayPush      = "push"
)

// EnvPrefix - префикс переменных окружения
const EnvPrefix = "WEBCAM_FILTERS"

// RestartConfig - перезапуск потока после ошибки драйвера
type RestartConfig struct {
	MaxRetries    int           `mapstructure:"max_retries"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"`
	MaxRetryDelay time.Duration `mapstructure:"max_retry_delay"`
}

// Config - конфигурация приложения
type Config struct {
	Device        string        `mapstructure:"device"`
	Source        string        `mapstructure:"source"`
	Width         int           `mapstructure:"width"`
	Height        int           `mapstructure:"height"`
	Buffers       int           `mapstructure:"buffers"`
	FPS           int           `mapstructure:"fps"`
	Displays      []string      `mapstructure:"displays"`
	Listen        string        `mapstructure:"listen"`
	PushURL       string        `mapstructure:"push_url"`
	Scale         int           `mapstructure:"scale"`
	JPEGQuality   int           `mapstructure:"jpeg_quality"`
	Filters       string        `mapstructure:"filters"`
	StrictAlloc   bool          `mapstructure:"strict_alloc"`
	MaxFrameBytes int           `mapstructure:"max_frame_bytes"`
	Restart       RestartConfig `mapstructure:"restart"`
	TUI           bool          `mapstructure:"tui"`
	Debug         bool          `mapstructure:"debug"`
	LogLevel      string        `mapstructure:"log_level"`
	LogFile       string        `mapstructure:"log_file"`
}

// Default возвращает конфигурацию по умолчанию: 640x360 YUYV, 4 буфера, окно ffplay в 2 раза больше
func Default() *Config {
	return &Config{
		Device:        "/dev/video0",
		Source:        SourceV4L2,
		Width:         640,
		Height:        360,
		Buffers:       4,
		FPS:           30,
		Displays:      []string{DisplayFFplay},
		Listen:        ":8080",
		Scale:         2,
		JPEGQuality:   80,
		MaxFrameBytes: 256 << 20,
		Restart: RestartConfig{
			MaxRetries:    3,
			RetryDelay:    1 * time.Second,
			MaxRetryDelay: 30 * time.Second,
		},
		TUI:      true,
		LogLevel: "info",
		LogFile:  "webcam-filters.log",
	}
}

// Load читает конфигурацию: значения по умолчанию, затем файл, переменные окружения
// WEBCAM_FILTERS_* и флаги, привязанные к v
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	setDefaults(v, Default())

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("webcam-filters")
		v.SetConfigType("yaml")
		v.AddConfigPath(configDir())
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("чтение конфигурации: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("разбор конфигурации: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет конфигурацию до открытия устройства
func (c *Config) Validate() error {
	var errs []error

	if c.Width <= 0 || c.Height <= 0 || c.Width%2 != 0 || c.Height%2 != 0 {
		errs = append(errs, fmt.Errorf("размер кадра %dx%d: ширина и высота должны быть положительными и четными", c.Width, c.Height))
	}
	if c.Buffers < 2 || c.Buffers > 32 {
		errs = append(errs, fmt.Errorf("buffers = %d: допустимо 2..32", c.Buffers))
	}
	if c.Scale < 1 || c.Scale > 4 {
		errs = append(errs, fmt.Errorf("scale = %d: допустимо 1..4", c.Scale))
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		errs = append(errs, fmt.Errorf("jpeg_quality = %d: допустимо 1..100", c.JPEGQuality))
	}
	if c.FPS <= 0 {
		errs = append(errs, fmt.Errorf("fps = %d: должно быть > 0", c.FPS))
	}

	switch c.Source {
	case SourceV4L2:
		if c.Device == "" {
			errs = append(errs, errors.New("device: не указано устройство V4L2"))
		}
	case SourceSynthetic:
	default:
		errs = append(errs, fmt.Errorf("source = %q: ожидается %s или %s", c.Source, SourceV4L2, SourceSynthetic))
	}

	if len(c.Displays) == 0 {
		errs = append(errs, errors.New("displays: нужно хотя бы одно отображение"))
	}
	for _, d := range c.Displays {
		switch d {
		case DisplayFFplay, DisplayWebSocket:
		case DisplayPush:
			if c.PushURL == "" {
				errs = append(errs, errors.New("push_url: обязателен для отображения push"))
			}
		default:
			errs = append(errs, fmt.Errorf("displays: неизвестное отображение %q", d))
		}
	}

	if _, err := domain.ParseFilterMask(c.Filters); err != nil {
		errs = append(errs, fmt.Errorf("filters: %w", err))
	}

	if c.Restart.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("restart.max_retries = %d: должно быть >= 0", c.Restart.MaxRetries))
	}
	if c.Restart.MaxRetries > 0 && (c.Restart.RetryDelay <= 0 || c.Restart.MaxRetryDelay < c.Restart.RetryDelay) {
		errs = append(errs, fmt.Errorf("restart: задержки %v..%v некорректны", c.Restart.RetryDelay, c.Restart.MaxRetryDelay))
	}

	if c.MaxFrameBytes < 0 {
		errs = append(errs, fmt.Errorf("max_frame_bytes = %d: должно быть >= 0", c.MaxFrameBytes))
	}

	return errors.Join(errs...)
}

// HasDisplay сообщает, включено ли отображение
func (c *Config) HasDisplay(name string) bool {
	for _, d := range c.Displays {
		if d == name {
			return true
		}
	}
	return false
}

// VideoConfig переводит конфигурацию в параметры захвата
func (c *Config) VideoConfig() (domain.VideoConfig, error) {
	mask, err := domain.ParseFilterMask(c.Filters)
	if err != nil {
		return domain.VideoConfig{}, err
	}
	return domain.VideoConfig{
		Width:         c.Width,
		Height:        c.Height,
		FrameRate:     c.FPS,
		BufferCount:   c.Buffers,
		DeviceID:      c.Device,
		Source:        c.Source,
		StrictAlloc:   c.StrictAlloc,
		MaxFrameBytes: c.MaxFrameBytes,
		MaxRestarts:   c.Restart.MaxRetries,
		RetryDelay:    c.Restart.RetryDelay,
		MaxDelay:      c.Restart.MaxRetryDelay,
		InitialMask:   mask,
	}, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("device", d.Device)
	v.SetDefault("source", d.Source)
	v.SetDefault("width", d.Width)
	v.SetDefault("height", d.Height)
	v.SetDefault("buffers", d.Buffers)
	v.SetDefault("fps", d.FPS)
	v.SetDefault("displays", d.Displays)
	v.SetDefault("listen", d.Listen)
	v.SetDefault("push_url", d.PushURL)
	v.SetDefault("scale", d.Scale)
	v.SetDefault("jpeg_quality", d.JPEGQuality)
	v.SetDefault("filters", d.Filters)
	v.SetDefault("strict_alloc", d.StrictAlloc)
	v.SetDefault("max_frame_bytes", d.MaxFrameBytes)
	v.SetDefault("restart.max_retries", d.Restart.MaxRetries)
	v.SetDefault("restart.retry_delay", d.Restart.RetryDelay)
	v.SetDefault("restart.max_retry_delay", d.Restart.MaxRetryDelay)
	v.SetDefault("tui", d.TUI)
	v.SetDefault("debug", d.Debug)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_file", d.LogFile)
}

func configDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "webcam-filters")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "webcam-filters")
	}
	return "."
}
