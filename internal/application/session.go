package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"webcam-filters/internal/domain"
	"webcam-filters/internal/processing"
)

// SessionOptions - параметры сессии захвата
type SessionOptions struct {
	Width         int
	Height        int
	StrictAlloc   bool // Ошибка выделения кадра завершает цикл
	MaxFrameBytes int  // Предел размера RGB кадра, 0 - по умолчанию
	Restart       RestartPolicy
	Logger        Logger
}

// Session - цикл захвата: получить сегмент -> преобразовать -> отфильтровать ->
// вернуть сегмент -> передать кадр на отображение.
// Состояния: Idle -> Streaming -> Stopped, из Stopped выхода нет.
// Step, Run и Stop вызываются из одной горутины; с другими горутинами сессия
// общается через Controls.
type Session struct {
	id       string
	driver   CaptureDriver
	pool     *BufferPool
	sink     FrameSink
	controls *Controls
	opts     SessionOptions
	logger   Logger
	frames   *processing.FramePool
	pipeline *processing.Pipeline

	mu        sync.Mutex
	state     domain.SessionState
	startedAt time.Time

	seq            uint64
	framesCaptured atomic.Uint64
	framesSkipped  atomic.Uint64
	restarts       atomic.Uint32
	lastFrameAt    atomic.Int64
	processTime    atomic.Int64
	lastMask       atomic.Uint32
	lastErr        atomic.Value
}

// NewSession создает сессию в состоянии Idle
func NewSession(driver CaptureDriver, sink FrameSink, controls *Controls, opts SessionOptions) (*Session, error) {
	if opts.Width <= 0 || opts.Height <= 0 || opts.Width%2 != 0 {
		return nil, &domain.ContractViolation{
			What: "размеры кадра",
			Want: "ширина четная и > 0, высота > 0",
			Got:  fmt.Sprintf("%dx%d", opts.Width, opts.Height),
		}
	}
	if driver == nil || sink == nil || controls == nil {
		return nil, errors.New("сессии нужны драйвер, отображение и управление")
	}

	pool, err := NewBufferPool(driver)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	logger := opts.Logger
	if logger == nil {
		logger = nopLogger{}
	}

	return &Session{
		id:       id,
		driver:   driver,
		pool:     pool,
		sink:     sink,
		controls: controls,
		opts:     opts,
		logger:   logger.WithField("session", id[:8]),
		frames:   processing.NewFramePool(opts.Width, opts.Height, 1, opts.MaxFrameBytes),
		pipeline: processing.NewPipeline(),
		state:    domain.StateIdle,
	}, nil
}

// ID возвращает идентификатор сессии
func (s *Session) ID() string {
	return s.id
}

// State возвращает текущее состояние
func (s *Session) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Pool возвращает пул сегментов сессии
func (s *Session) Pool() *BufferPool {
	return s.pool
}

// Start включает поток драйвера: Idle -> Streaming
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case domain.StateStreaming:
		return fmt.Errorf("start: %w: сессия уже в потоке", domain.ErrInvalidTransition)
	case domain.StateStopped:
		return fmt.Errorf("start: %w", domain.ErrSessionStopped)
	}

	if !s.pool.FullyQueued() {
		return &domain.ContractViolation{
			What: "кольцо буферов перед стартом",
			Want: fmt.Sprintf("%d сегментов у драйвера", s.pool.Size()),
			Got:  fmt.Sprint(s.pool.DriverOwned()),
		}
	}

	if err := s.driver.StartStream(); err != nil {
		err = driverError("stream-on", err)
		s.recordError(err)
		s.shutdownLocked()
		return err
	}

	s.state = domain.StateStreaming
	s.startedAt = time.Now()
	s.logger.Info("Захват запущен: %dx%d, %d буферов", s.opts.Width, s.opts.Height, s.pool.Size())
	return nil
}

// Step выполняет одну итерацию цикла.
// Ошибка выделения кадра в мягком режиме пропускает кадр и возвращает nil.
func (s *Session) Step(ctx context.Context) error {
	if st := s.State(); st != domain.StateStreaming {
		if st == domain.StateStopped {
			return domain.ErrSessionStopped
		}
		return fmt.Errorf("step в состоянии %s: %w", st, domain.ErrInvalidTransition)
	}

	mask := s.controls.Mask()

	lease, err := s.pool.Acquire(ctx)
	if err != nil {
		return err
	}

	raw, err := lease.Frame(s.opts.Width, s.opts.Height)
	if err != nil {
		return s.abandon(lease, err)
	}

	frame, err := s.frames.Get()
	if err != nil {
		if rerr := s.pool.Release(lease); rerr != nil {
			return rerr
		}
		s.framesSkipped.Add(1)
		if s.opts.StrictAlloc {
			return fmt.Errorf("кадр %d: %w", s.seq+1, err)
		}
		s.recordError(err)
		s.logger.Warn("Кадр пропущен: %v", err)
		return nil
	}
	defer s.frames.Put(frame)

	began := time.Now()
	if err := processing.ConvertInto(frame, raw); err != nil {
		return s.abandon(lease, err)
	}
	s.pipeline.Apply(mask, frame)
	s.processTime.Store(int64(time.Since(began)))

	if err := s.pool.Release(lease); err != nil {
		return err
	}

	s.seq++
	frame.Seq = s.seq
	frame.Timestamp = began

	if err := s.sink.Present(ctx, frame); err != nil {
		return fmt.Errorf("отображение кадра %d: %w", frame.Seq, err)
	}

	s.framesCaptured.Add(1)
	s.lastFrameAt.Store(began.UnixNano())
	s.lastMask.Store(uint32(mask))
	s.logger.Debug("Кадр %d: сегмент %d, фильтры %q, %v", frame.Seq, lease.Index(), mask.String(), time.Since(began))
	return nil
}

// Run запускает сессию (если она в Idle) и крутит цикл до запроса остановки,
// отмены контекста или фатальной ошибки. Перед возвратом сессия переходит в Stopped.
func (s *Session) Run(ctx context.Context) error {
	if s.State() == domain.StateIdle {
		if err := s.Start(); err != nil {
			return err
		}
	}
	defer s.Stop()

	failures := 0
	for {
		if s.controls.StopRequested() || ctx.Err() != nil {
			s.logger.Info("Остановка захвата по запросу")
			return nil
		}

		err := s.Step(ctx)
		if err == nil {
			failures = 0
			continue
		}
		if ctx.Err() != nil {
			return nil
		}
		if !restartable(err) {
			return s.fail(err)
		}

		for {
			failures++
			if failures > s.opts.Restart.MaxRetries {
				return s.fail(fmt.Errorf("перезапуски исчерпаны (%d): %w", s.opts.Restart.MaxRetries, err))
			}
			err = s.restart(ctx, failures, err)
			if err == nil {
				break
			}
			if ctx.Err() != nil {
				return nil
			}
		}
	}
}

// Stop выключает поток и освобождает устройство: Streaming -> Stopped, Idle -> Stopped.
// Повторный вызов ничего не делает.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == domain.StateStopped {
		return nil
	}
	return s.shutdownLocked()
}

// Stats возвращает снимок статистики
func (s *Session) Stats() domain.SessionStats {
	s.mu.Lock()
	state, startedAt := s.state, s.startedAt
	s.mu.Unlock()

	stats := domain.SessionStats{
		SessionID:      s.id,
		State:          state,
		FramesCaptured: s.framesCaptured.Load(),
		FramesSkipped:  s.framesSkipped.Load(),
		Restarts:       s.restarts.Load(),
		ProcessTime:    time.Duration(s.processTime.Load()),
		Mask:           domain.FilterMask(s.lastMask.Load()),
	}
	if ns := s.lastFrameAt.Load(); ns != 0 {
		stats.LastFrameAt = time.Unix(0, ns)
	}
	if !startedAt.IsZero() {
		if elapsed := time.Since(startedAt).Seconds(); elapsed > 0 {
			stats.FPS = float64(stats.FramesCaptured) / elapsed
		}
	}
	if msg, ok := s.lastErr.Load().(string); ok {
		stats.LastError = msg
	}
	return stats
}

// restart перезапускает поток драйвера после ошибки получения сегмента
func (s *Session) restart(ctx context.Context, attempt int, cause error) error {
	s.restarts.Add(1)
	delay := s.opts.Restart.Backoff(attempt)
	s.recordError(cause)
	s.logger.Warn("Перезапуск потока через %v (попытка %d из %d): %v",
		delay, attempt, s.opts.Restart.MaxRetries, cause)

	if err := s.pool.ReleaseAll(); err != nil {
		s.logger.Debug("Возврат сегментов перед перезапуском: %v", err)
	}
	if err := s.driver.StopStream(); err != nil {
		s.logger.Debug("Остановка потока перед перезапуском: %v", err)
	}

	if err := wait(ctx, delay); err != nil {
		return err
	}

	if err := s.driver.StartStream(); err != nil {
		err = driverError("stream-on", err)
		s.logger.Error("Перезапуск потока не удался: %v", err)
		return err
	}
	s.pool.Reset()
	s.logger.Info("Поток перезапущен")
	return nil
}

// abandon возвращает сегмент после неустранимой ошибки итерации
func (s *Session) abandon(lease *Lease, cause error) error {
	if err := s.pool.Release(lease); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

// fail фиксирует фатальную ошибку и переводит сессию в Stopped
func (s *Session) fail(err error) error {
	s.recordError(err)
	s.logger.Error("Цикл захвата остановлен: %v", err)
	if cerr := s.Stop(); cerr != nil {
		s.logger.Warn("Ошибки при очистке: %v", cerr)
	}
	return err
}

// shutdownLocked - очистка по возможности: вернуть сегменты, выключить поток, закрыть устройство.
// Вызывается под s.mu.
func (s *Session) shutdownLocked() error {
	var errs []error
	if s.state == domain.StateStreaming {
		if err := s.pool.ReleaseAll(); err != nil {
			errs = append(errs, err)
		}
		if err := s.driver.StopStream(); err != nil {
			errs = append(errs, driverError("stream-off", err))
		}
	}
	if err := s.driver.Close(); err != nil {
		errs = append(errs, driverError("close", err))
	}
	s.pool.Reset()
	s.state = domain.StateStopped
	s.logger.Info("Захват остановлен, кадров: %d, пропущено: %d",
		s.framesCaptured.Load(), s.framesSkipped.Load())
	return errors.Join(errs...)
}

func (s *Session) recordError(err error) {
	if err != nil {
		s.lastErr.Store(err.Error())
	}
}

// restartable сообщает, что ошибка - сбой получения сегмента от драйвера
func restartable(err error) bool {
	var de *domain.DriverIOError
	return errors.As(err, &de) && de.Op == "dequeue"
}

func driverError(op string, err error) error {
	if errors.Is(err, domain.ErrDriverIO) {
		return err
	}
	return domain.NewDriverIOError(op, -1, err)
}

// nopLogger отбрасывает сообщения
type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})            {}
func (nopLogger) Warn(string, ...interface{})            {}
func (nopLogger) Error(string, ...interface{})           {}
func (nopLogger) Debug(string, ...interface{})           {}
func (n nopLogger) WithField(string, interface{}) Logger { return n }
