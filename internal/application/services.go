package application

import (
	"context"
	"errors"
	"sync"

	"webcam-filters/internal/domain"
)

// DriverFactory открывает и настраивает драйвер захвата по конфигурации
type DriverFactory func(config domain.VideoConfig) (CaptureDriver, error)

// WebcamService сервис для работы с веб-камерой: перечисление устройств и сессии захвата
type WebcamService struct {
	catalog    DeviceCatalog
	openDriver DriverFactory
	sink       FrameSink
	controls   *Controls
	logger     Logger

	active *captureRun
	mutex  sync.Mutex
}

// captureRun - запущенный цикл захвата
type captureRun struct {
	session *Session
	cancel  context.CancelFunc
	done    chan struct{}
	err     error
}

// NewWebcamService создает новый сервис для работы с веб-камерой
func NewWebcamService(catalog DeviceCatalog, openDriver DriverFactory, sink FrameSink, controls *Controls, logger Logger) *WebcamService {
	return &WebcamService{
		catalog:    catalog,
		openDriver: openDriver,
		sink:       sink,
		controls:   controls,
		logger:     logger,
	}
}

// ListDevices возвращает список доступных устройств захвата
func (s *WebcamService) ListDevices() ([]domain.VideoDevice, error) {
	if s.catalog == nil {
		return nil, errors.New("каталог устройств не настроен")
	}
	devices, err := s.catalog.ListDevices()
	if err != nil {
		s.logger.Error("Ошибка получения списка устройств: %v", err)
		return nil, err
	}
	return devices, nil
}

// StartCapture открывает устройство и запускает цикл захвата в отдельной горутине.
// Ошибки настройки и включения потока возвращаются синхронно.
func (s *WebcamService) StartCapture(ctx context.Context, config domain.VideoConfig) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	// Если есть активный захват, останавливаем его
	if s.active != nil {
		s.stopLocked()
	}

	s.logger.Info("Открытие камеры %q (%s) с параметрами: %dx%d, буферов: %d",
		config.DeviceID, config.Source, config.Width, config.Height, config.BufferCount)

	driver, err := s.openDriver(config)
	if err != nil {
		s.logger.Error("Ошибка открытия камеры: %v", err)
		return err
	}

	session, err := NewSession(driver, s.sink, s.controls, SessionOptions{
		Width:         config.Width,
		Height:        config.Height,
		StrictAlloc:   config.StrictAlloc,
		MaxFrameBytes: config.MaxFrameBytes,
		Restart: RestartPolicy{
			MaxRetries:    config.MaxRestarts,
			RetryDelay:    config.RetryDelay,
			MaxRetryDelay: config.MaxDelay,
		},
		Logger: s.logger,
	})
	if err != nil {
		driver.Close()
		return err
	}

	s.controls.SetMask(config.InitialMask)
	if err := session.Start(); err != nil {
		s.logger.Error("Ошибка запуска потока: %v", err)
		return err
	}
	s.logger.Info("Сессия захвата: %s", session.ID())

	runCtx, cancel := context.WithCancel(ctx)
	run := &captureRun{session: session, cancel: cancel, done: make(chan struct{})}
	s.active = run

	go func() {
		defer close(run.done)
		run.err = session.Run(runCtx)
		if run.err != nil {
			s.logger.Error("Ошибка захвата: %v", run.err)
		}
	}()

	return nil
}

// Wait ждет завершения текущего цикла захвата и возвращает его ошибку
func (s *WebcamService) Wait() error {
	s.mutex.Lock()
	run := s.active
	s.mutex.Unlock()

	if run == nil {
		return errors.New("нет активного захвата")
	}
	<-run.done
	return run.err
}

// StopCapture останавливает захват и ждет завершения цикла
func (s *WebcamService) StopCapture() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.active == nil {
		return errors.New("нет активного захвата")
	}
	s.stopLocked()
	return nil
}

// Stats возвращает статистику текущей или последней сессии
func (s *WebcamService) Stats() (domain.SessionStats, bool) {
	s.mutex.Lock()
	run := s.active
	s.mutex.Unlock()

	if run == nil {
		return domain.SessionStats{}, false
	}
	return run.session.Stats(), true
}

// Controls возвращает общее состояние управления
func (s *WebcamService) Controls() *Controls {
	return s.controls
}

// stopLocked отменяет цикл и ждет его завершения. Вызывается под s.mutex.
// Сессия остается в active, чтобы Stats и Wait видели итог.
func (s *WebcamService) stopLocked() {
	run := s.active
	run.cancel()
	<-run.done
	if err := run.session.Stop(); err != nil {
		s.logger.Error("Ошибка остановки захвата: %v", err)
	}
}
