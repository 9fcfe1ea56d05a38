package display

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"webcam-filters/internal/application"
	"webcam-filters/internal/domain"
)

// redialInterval - не чаще одной попытки переподключения за интервал
const redialInterval = time.Second

// PushSink отправляет обработанные кадры (JPEG) на удаленный WebSocket сервер.
// Потеря соединения не останавливает захват: кадры пропускаются, пока
// подключение идет в фоне.
type PushSink struct {
	url       string
	dialer    *websocket.Dialer
	logger    application.Logger
	encoder   *frameEncoder
	debugMode bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mutex        sync.Mutex
	conn         *websocket.Conn
	dialing      bool
	closed       bool
	lastDial     time.Time
	frameCounter int
	startTime    time.Time
}

// NewPushSink создает WebSocket отправитель кадров
func NewPushSink(rawURL string, scale, quality int, logger application.Logger, debugMode bool) (*PushSink, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, &domain.ContractViolation{What: "URL отправки", Want: "ws:// или wss://", Got: rawURL}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &PushSink{
		url:       u.String(),
		dialer:    &websocket.Dialer{HandshakeTimeout: 3 * time.Second},
		logger:    logger,
		encoder:   newFrameEncoder(scale, quality),
		debugMode: debugMode,
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// Present кодирует и отправляет кадр. Без соединения кадр пропускается,
// а подключение запускается в фоне.
func (s *PushSink) Present(_ context.Context, frame *domain.RgbFrame) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.closed {
		return nil
	}
	if s.conn == nil {
		s.redialLocked()
		return nil
	}

	data, err := s.encoder.encode(frame)
	if err != nil {
		return err
	}

	s.conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	if err := s.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		s.logger.Error("Ошибка отправки кадра: %v", err)
		s.conn.Close()
		s.conn = nil
		return nil
	}

	s.frameCounter++

	// Отладочная информация
	if s.debugMode && s.frameCounter%30 == 0 {
		elapsed := time.Since(s.startTime).Seconds()
		fps := float64(s.frameCounter) / elapsed
		s.logger.Debug("Отправлено фреймов: %d, FPS: %.2f, Размер последнего фрейма: %d байт",
			s.frameCounter, fps, len(data))
	}
	return nil
}

// Connected возвращает статус подключения
func (s *PushSink) Connected() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.conn != nil
}

// Close прерывает подключение, отправляет сообщение о закрытии и закрывает соединение
func (s *PushSink) Close() error {
	s.mutex.Lock()
	if s.closed {
		s.mutex.Unlock()
		return nil
	}
	s.closed = true
	s.cancel()
	conn := s.conn
	s.conn = nil
	s.mutex.Unlock()

	s.wg.Wait()

	if conn == nil {
		return nil
	}
	err := conn.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
	)
	if err != nil {
		s.logger.Error("Ошибка закрытия WebSocket: %v", err)
	}
	conn.Close()
	return nil
}

// redialLocked запускает фоновое подключение не чаще redialInterval
func (s *PushSink) redialLocked() {
	if s.dialing || (!s.lastDial.IsZero() && time.Since(s.lastDial) < redialInterval) {
		return
	}
	s.dialing = true
	s.lastDial = time.Now()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.dial()
	}()
}

func (s *PushSink) dial() {
	s.logger.Info("Подключение к %s", s.url)
	conn, _, err := s.dialer.DialContext(s.ctx, s.url, nil)

	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.dialing = false

	if err != nil {
		if !s.closed {
			s.logger.Error("Ошибка подключения к серверу: %v", err)
		}
		return
	}
	if s.closed {
		conn.Close()
		return
	}

	s.conn = conn
	s.frameCounter = 0
	s.startTime = time.Now()
	s.logger.Info("Подключено к серверу")
}
