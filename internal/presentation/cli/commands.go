package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"webcam-filters/internal/application"
	"webcam-filters/internal/config"
	"webcam-filters/internal/domain"
	"webcam-filters/internal/infrastructure/camera"
	"webcam-filters/internal/infrastructure/display"
	"webcam-filters/internal/infrastructure/logger"
	"webcam-filters/internal/infrastructure/metrics"
	"webcam-filters/internal/presentation/tui"
)

// CLI представляет CLI интерфейс приложения
type CLI struct {
	root    *cobra.Command
	viper   *viper.Viper
	cfgFile string
	version string
}

// NewCLI создает CLI с командами run, devices и version
func NewCLI(version string) *CLI {
	c := &CLI{viper: viper.New(), version: version}

	c.root = &cobra.Command{
		Use:           "webcam-filters",
		Short:         "Захват видео с веб-камеры и фильтры в реальном времени",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	c.root.PersistentFlags().StringVar(&c.cfgFile, "config", "", "файл конфигурации (по умолчанию ~/.config/webcam-filters/webcam-filters.yaml)")

	c.root.AddCommand(c.runCommand(), c.devicesCommand(), c.versionCommand())
	return c
}

// Execute разбирает аргументы и выполняет команду
func (c *CLI) Execute(ctx context.Context) error {
	return c.root.ExecuteContext(ctx)
}

// SetArgs задает аргументы вместо os.Args
func (c *CLI) SetArgs(args []string) {
	c.root.SetArgs(args)
}

// SetOutput перенаправляет вывод команд
func (c *CLI) SetOutput(w io.Writer) {
	c.root.SetOut(w)
	c.root.SetErr(w)
}

func (c *CLI) runCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Запустить захват и отображение",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd.Context(), cmd.ErrOrStderr())
		},
	}

	d := config.Default()
	flags := cmd.Flags()
	flags.String("device", d.Device, "устройство V4L2")
	flags.String("source", d.Source, "источник кадров: v4l2 или synthetic")
	flags.Int("width", d.Width, "ширина кадра (четная)")
	flags.Int("height", d.Height, "высота кадра (четная)")
	flags.Int("buffers", d.Buffers, "число буферов захвата")
	flags.Int("fps", d.FPS, "частота кадров")
	flags.StringSlice("display", d.Displays, "отображение: ffplay, websocket, push")
	flags.String("listen", d.Listen, "адрес WebSocket хаба")
	flags.String("push-url", d.PushURL, "адрес приемника для push (ws://host/ws)")
	flags.Int("scale", d.Scale, "масштаб отображения")
	flags.String("filters", d.Filters, "фильтры при старте, клавишами: b s e g r d")
	flags.Bool("strict-alloc", d.StrictAlloc, "завершать работу при ошибке выделения памяти")
	flags.Int("max-restarts", d.Restart.MaxRetries, "попыток перезапуска потока после ошибки драйвера")
	flags.Bool("tui", d.TUI, "терминальный интерфейс")
	flags.Bool("debug", d.Debug, "включить отладочные сообщения")
	flags.String("log-level", d.LogLevel, "уровень логирования")
	flags.String("log-file", d.LogFile, "файл журнала при включенном терминальном интерфейсе")

	bindings := map[string]string{
		"device":              "device",
		"source":              "source",
		"width":               "width",
		"height":              "height",
		"buffers":             "buffers",
		"fps":                 "fps",
		"displays":            "display",
		"listen":              "listen",
		"push_url":            "push-url",
		"scale":               "scale",
		"filters":             "filters",
		"strict_alloc":        "strict-alloc",
		"restart.max_retries": "max-restarts",
		"tui":                 "tui",
		"debug":               "debug",
		"log_level":           "log-level",
		"log_file":            "log-file",
	}
	for key, name := range bindings {
		_ = c.viper.BindPFlag(key, flags.Lookup(name))
	}

	return cmd
}

func (c *CLI) devicesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "Показать список доступных камер",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := logger.NewLogrusLogger("warn", false, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			svc := application.NewWebcamService(camera.NewMediaDevicesCatalog(log), nil, nil, nil, log)
			return listDevices(cmd.OutOrStdout(), svc)
		},
	}
}

func (c *CLI) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Показать версию",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "webcam-filters v%s\n", c.version)
		},
	}
}

// run собирает компоненты по конфигурации и работает до выхода пользователя
func (c *CLI) run(ctx context.Context, stderr io.Writer) error {
	cfg, err := config.Load(c.viper, c.cfgFile)
	if err != nil {
		return err
	}
	videoConfig, err := cfg.VideoConfig()
	if err != nil {
		return err
	}

	// С терминальным интерфейсом журнал пишется в файл, чтобы не портить экран
	logOut := stderr
	if cfg.TUI {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("открытие журнала %s: %w", cfg.LogFile, err)
		}
		defer f.Close()
		logOut = f
	}
	log, err := logger.NewLogrusLogger(cfg.LogLevel, cfg.Debug, logOut)
	if err != nil {
		return err
	}

	sampler, err := metrics.NewProcessSampler()
	if err != nil {
		log.Warn("Метрики процесса недоступны: %v", err)
	}

	controls := application.NewControls(videoConfig.InitialMask, log)
	var svc *application.WebcamService
	statsFn := func() (domain.SessionStats, bool) { return svc.Stats() }

	sink, hub, err := buildSinks(cfg, controls, statsFn, sampler, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := sink.Close(); err != nil {
			log.Warn("Ошибка закрытия отображения: %v", err)
		}
	}()

	svc = application.NewWebcamService(camera.NewMediaDevicesCatalog(log), openDriver(log), sink, controls, log)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)
	if err := svc.StartCapture(gctx, videoConfig); err != nil {
		return err
	}

	g.Go(func() error {
		// Конец захвата завершает хаб и интерфейс
		defer cancel()
		err := svc.Wait()
		if errors.Is(err, display.ErrDisplayClosed) {
			log.Info("Окно отображения закрыто")
			return nil
		}
		return err
	})
	if hub != nil {
		g.Go(func() error {
			return hub.Serve(gctx, cfg.Listen)
		})
	}
	if cfg.TUI {
		g.Go(func() error {
			keys := svc.Controls()
			defer keys.RequestStop()
			return tui.Run(gctx, tui.New(keys, statsFn, samplerOrNil(sampler)))
		})
	}

	err = g.Wait()
	if stats, ok := svc.Stats(); ok {
		log.Info("Итог сессии %s: кадров %d, пропущено %d, перезапусков %d, %.1f fps",
			stats.SessionID, stats.FramesCaptured, stats.FramesSkipped, stats.Restarts, stats.FPS)
	}
	return err
}

// buildSinks создает включенные отображения. hub равен nil без websocket
func buildSinks(cfg *config.Config, controls *application.Controls, stats display.StatsFunc,
	sampler *metrics.ProcessSampler, log application.Logger) (*display.MultiSink, *display.Hub, error) {
	var (
		sinks []application.FrameSink
		hub   *display.Hub
	)
	closeAll := func() {
		for _, s := range sinks {
			s.Close()
		}
	}

	for _, name := range cfg.Displays {
		switch name {
		case config.DisplayFFplay:
			p, err := display.StartFFplay(cfg.Width, cfg.Height, cfg.Scale, cfg.FPS, log)
			if err != nil {
				closeAll()
				return nil, nil, err
			}
			sinks = append(sinks, p)
		case config.DisplayWebSocket:
			hub = display.NewHub(display.HubOptions{
				Scale:       cfg.Scale,
				JPEGQuality: cfg.JPEGQuality,
				Keys:        controls,
				Stats:       stats,
				Sampler:     samplerOrNil(sampler),
				Logger:      log,
			})
			sinks = append(sinks, hub)
		case config.DisplayPush:
			p, err := display.NewPushSink(cfg.PushURL, cfg.Scale, cfg.JPEGQuality, log, cfg.Debug)
			if err != nil {
				closeAll()
				return nil, nil, err
			}
			sinks = append(sinks, p)
		default:
			closeAll()
			return nil, nil, fmt.Errorf("неизвестное отображение %q", name)
		}
	}
	return display.NewMultiSink(sinks...), hub, nil
}

// openDriver выбирает драйвер по источнику кадров
func openDriver(log application.Logger) application.DriverFactory {
	return func(vc domain.VideoConfig) (application.CaptureDriver, error) {
		if vc.Source == config.SourceSynthetic {
			d, err := camera.NewSyntheticDriver(vc)
			if err != nil {
				return nil, err
			}
			return d, nil
		}
		d, err := camera.OpenV4L2(vc, log)
		if err != nil {
			return nil, err
		}
		return d, nil
	}
}

// samplerOrNil не дает типизированному nil попасть в интерфейс
func samplerOrNil(s *metrics.ProcessSampler) application.ProcessSampler {
	if s == nil {
		return nil
	}
	return s
}

// listDevices выводит список доступных устройств
func listDevices(out io.Writer, svc *application.WebcamService) error {
	devices, err := svc.ListDevices()
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "Доступные устройства:")
	if len(devices) == 0 {
		fmt.Fprintln(out, "  (нет)")
	}
	for i, device := range devices {
		fmt.Fprintf(out, "[%d] %s (%s) %s\n", i, device.Label, device.Kind, device.ID)
	}

	return nil
}
