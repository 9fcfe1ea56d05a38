package display

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gorilla/websocket"

	"webcam-filters/internal/application"
	"webcam-filters/internal/domain"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Разрешаем все подключения
	},
}

// clientBuffer - сколько кадров может ждать отправки одному клиенту
const clientBuffer = 2

// KeyHandler принимает клавиши от зрителей
type KeyHandler interface {
	HandleKey(key rune) bool
}

// StatsFunc возвращает статистику текущей сессии
type StatsFunc func() (domain.SessionStats, bool)

// HubOptions - параметры WebSocket хаба
type HubOptions struct {
	Scale       int
	JPEGQuality int
	Keys        KeyHandler
	Stats       StatsFunc
	Sampler     application.ProcessSampler
	Logger      application.Logger
}

// Hub раздает обработанные кадры браузерам по WebSocket (JPEG) и принимает
// от них клавиши переключения фильтров
type Hub struct {
	opts    HubOptions
	logger  application.Logger
	encoder *frameEncoder

	mutex   sync.Mutex
	clients map[*hubClient]struct{}
	sent    uint64
	dropped uint64
}

type hubClient struct {
	conn   *websocket.Conn
	frames chan []byte
}

// NewHub создает хаб
func NewHub(opts HubOptions) *Hub {
	return &Hub{
		opts:    opts,
		logger:  opts.Logger,
		encoder: newFrameEncoder(opts.Scale, opts.JPEGQuality),
		clients: make(map[*hubClient]struct{}),
	}
}

// Present кодирует кадр и ставит его в очередь каждому клиенту.
// Медленные клиенты теряют кадры, цикл захвата не ждет сеть.
func (h *Hub) Present(_ context.Context, frame *domain.RgbFrame) error {
	if h.Clients() == 0 {
		return nil
	}

	data, err := h.encoder.encode(frame)
	if err != nil {
		return err
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()
	for c := range h.clients {
		select {
		case c.frames <- data:
			h.sent++
		default:
			h.dropped++
		}
	}
	return nil
}

// Close отключает всех клиентов
func (h *Hub) Close() error {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for c := range h.clients {
		h.removeLocked(c)
	}
	return nil
}

// Clients возвращает число подключенных зрителей
func (h *Hub) Clients() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients)
}

// Handler возвращает HTTP обработчик: / - страница просмотра, /ws - поток кадров, /stats - статистика
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", h.handleIndex)
	mux.HandleFunc("/ws", h.handleWS)
	mux.HandleFunc("/stats", h.handleStats)
	return mux
}

// Serve запускает HTTP сервер и останавливает его при отмене контекста
func (h *Hub) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		h.logger.Info("Просмотр доступен на %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		h.Close()
		err := srv.Shutdown(shutdownCtx)
		if serveErr := <-errCh; !errors.Is(serveErr, http.ErrServerClosed) && err == nil {
			err = serveErr
		}
		return err
	}
}

func (h *Hub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("Ошибка при апгрейде до WebSocket: %v", err)
		return
	}

	c := &hubClient{conn: conn, frames: make(chan []byte, clientBuffer)}
	h.mutex.Lock()
	h.clients[c] = struct{}{}
	h.mutex.Unlock()

	clientAddr := conn.RemoteAddr().String()
	h.logger.Info("Зритель подключен: %s", clientAddr)

	go h.writeLoop(c)

	// Входящие текстовые сообщения - клавиши
	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if messageType != websocket.TextMessage || h.opts.Keys == nil {
			continue
		}
		if key, size := utf8.DecodeRune(message); size == len(message) && key != utf8.RuneError {
			if !h.opts.Keys.HandleKey(key) {
				h.logger.Debug("Неизвестная клавиша от %s: %q", clientAddr, key)
			}
		}
	}

	h.mutex.Lock()
	h.removeLocked(c)
	h.mutex.Unlock()
	h.logger.Info("Зритель отключен: %s", clientAddr)
}

func (h *Hub) writeLoop(c *hubClient) {
	for data := range c.frames {
		c.conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
		if err := c.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
			h.logger.Debug("Ошибка отправки кадра: %v", err)
			c.conn.Close()
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.conn.Close()
}

// removeLocked удаляет клиента; writeLoop закроет соединение
func (h *Hub) removeLocked(c *hubClient) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.frames)
}

// statsResponse - ответ /stats
type statsResponse struct {
	Session        string  `json:"session,omitempty"`
	State          string  `json:"state"`
	FramesCaptured uint64  `json:"framesCaptured"`
	FramesSkipped  uint64  `json:"framesSkipped"`
	Restarts       uint32  `json:"restarts"`
	FPS            float64 `json:"fps"`
	ProcessMillis  float64 `json:"processMillis"`
	Filters        string  `json:"filters"`
	LastError      string  `json:"lastError,omitempty"`
	Viewers        int     `json:"viewers"`
	FramesSent     uint64  `json:"framesSent"`
	FramesDropped  uint64  `json:"framesDropped"`
	CPUPercent     float64 `json:"cpuPercent,omitempty"`
	RSSBytes       uint64  `json:"rssBytes,omitempty"`
}

func (h *Hub) handleStats(w http.ResponseWriter, r *http.Request) {
	resp := statsResponse{State: domain.StateIdle.String()}

	if h.opts.Stats != nil {
		if st, ok := h.opts.Stats(); ok {
			resp.Session = st.SessionID
			resp.State = st.State.String()
			resp.FramesCaptured = st.FramesCaptured
			resp.FramesSkipped = st.FramesSkipped
			resp.Restarts = st.Restarts
			resp.FPS = st.FPS
			resp.ProcessMillis = float64(st.ProcessTime) / float64(time.Millisecond)
			resp.Filters = st.Mask.String()
			resp.LastError = st.LastError
		}
	}
	if h.opts.Sampler != nil {
		if usage, err := h.opts.Sampler.Sample(); err == nil {
			resp.CPUPercent = usage.CPUPercent
			resp.RSSBytes = usage.RSSBytes
		}
	}

	h.mutex.Lock()
	resp.Viewers = len(h.clients)
	resp.FramesSent = h.sent
	resp.FramesDropped = h.dropped
	h.mutex.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("Ошибка записи статистики: %v", err)
	}
}

func (h *Hub) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(indexPage))
}

const indexPage = `<!DOCTYPE html>
<html>
<head>
	<meta charset="utf-8">
	<title>Фильтры веб-камеры</title>
	<style>
		body { font-family: Arial, sans-serif; margin: 20px; background: #111; color: #eee; }
		.status { padding: 10px; background-color: #263238; border-radius: 5px; margin-top: 10px; }
		code { color: #80deea; }
	</style>
</head>
<body>
	<img id="frame" alt="кадр">
	<div class="status">
		<p>Клавиши: <code>b</code> blur, <code>s</code> sepia, <code>e</code> edges,
		<code>g</code> grayscale, <code>r</code> reflect, <code>d</code> dot matrix, <code>q</code> стоп</p>
		<p id="stats"></p>
	</div>
	<script>
		const img = document.getElementById("frame");
		const ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/ws");
		ws.binaryType = "blob";
		ws.onmessage = (e) => {
			const old = img.src;
			img.src = URL.createObjectURL(e.data);
			if (old) URL.revokeObjectURL(old);
		};
		document.addEventListener("keydown", (e) => {
			if (e.key.length === 1 && ws.readyState === WebSocket.OPEN) ws.send(e.key);
		});
		setInterval(async () => {
			const s = await (await fetch("/stats")).json();
			document.getElementById("stats").textContent =
				s.state + " | " + s.fps.toFixed(1) + " fps | фильтры: " + (s.filters || "нет") + " | зрителей: " + s.viewers;
		}, 1000);
	</script>
</body>
</html>
`
