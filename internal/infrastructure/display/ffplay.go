package display

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"webcam-filters/internal/application"
	"webcam-filters/internal/domain"
)

// ErrDisplayClosed - процесс отображения завершился (окно закрыто пользователем)
var ErrDisplayClosed = errors.New("окно отображения закрыто")

// PipeSink пишет сырые RGB24 кадры в stdin внешнего процесса
type PipeSink struct {
	cmd       *exec.Cmd
	pipe      io.WriteCloser
	frameSize int
	logger    application.Logger

	mutex  sync.Mutex
	closed bool
}

// FFplayArgs возвращает аргументы ffplay для потока rgb24 заданного размера
func FFplayArgs(width, height, scale, fps int) []string {
	if scale < 1 {
		scale = DefaultScale
	}
	if fps <= 0 {
		fps = 30
	}
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-f", "rawvideo",
		"-pixel_format", "rgb24",
		"-video_size", fmt.Sprintf("%dx%d", width, height),
		"-framerate", fmt.Sprint(fps),
		"-i", "-", // Читаем из stdin
		"-window_title", "webcam-filters",
		"-x", fmt.Sprint(width * scale), "-y", fmt.Sprint(height * scale),
		"-fflags", "nobuffer",
		"-flags", "low_delay",
	}
}

// StartFFplay запускает ffplay, окно в scale раз больше кадра
func StartFFplay(width, height, scale, fps int, logger application.Logger) (*PipeSink, error) {
	ffplayPath, err := exec.LookPath("ffplay")
	if err != nil {
		return nil, fmt.Errorf("ffplay не найден в PATH: %w", err)
	}

	cmd := exec.Command(ffplayPath, FFplayArgs(width, height, scale, fps)...)
	cmd.Stderr = os.Stderr // Показываем ошибки ffplay в консоли

	sink, err := StartPipe(cmd, width, height, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("Процесс ffplay запущен, видео откроется в отдельном окне")
	return sink, nil
}

// StartPipe запускает команду и пишет кадры ей в stdin
func StartPipe(cmd *exec.Cmd, width, height int, logger application.Logger) (*PipeSink, error) {
	stdinPipe, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("запуск %s: %w", cmd.Path, err)
	}
	return &PipeSink{
		cmd:       cmd,
		pipe:      stdinPipe,
		frameSize: domain.RgbFrameSize(width, height),
		logger:    logger,
	}, nil
}

// Present пишет кадр целиком. Ошибка записи означает, что окно закрыто
func (p *PipeSink) Present(_ context.Context, frame *domain.RgbFrame) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.closed {
		return ErrDisplayClosed
	}
	if len(frame.Pix) != p.frameSize {
		return &domain.ContractViolation{What: "кадр для ffplay", Want: fmt.Sprint(p.frameSize), Got: fmt.Sprint(len(frame.Pix))}
	}
	if _, err := p.pipe.Write(frame.Pix); err != nil {
		return fmt.Errorf("%w: %v", ErrDisplayClosed, err)
	}
	return nil
}

// Close закрывает stdin и ждет завершения процесса, при необходимости убивает его
func (p *PipeSink) Close() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	p.pipe.Close()

	done := make(chan error, 1)
	go func() { done <- p.cmd.Wait() }()

	select {
	case <-done:
		return nil
	case <-time.After(2 * time.Second):
		p.logger.Warn("Процесс %s не завершился, останавливаем", p.cmd.Path)
		p.cmd.Process.Kill()
		<-done
		return nil
	}
}
