package domain

import "time"

// SessionState - состояние сессии захвата
type SessionState int

const (
	StateIdle SessionState = iota
	StateStreaming
	StateStopped
)

// String возвращает имя состояния
func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// SessionStats - снимок статистики сессии захвата
type SessionStats struct {
	SessionID      string
	State          SessionState
	FramesCaptured uint64        // Кадров, прошедших полный цикл
	FramesSkipped  uint64        // Кадров, пропущенных из-за ошибки выделения памяти
	Restarts       uint32        // Перезапусков потока драйвера
	FPS            float64       // Средняя частота кадров с момента старта
	LastFrameAt    time.Time     // Время последнего кадра
	ProcessTime    time.Duration // Длительность последней итерации преобразования и фильтрации
	Mask           FilterMask    // Маска, примененная к последнему кадру
	LastError      string        // Последняя ошибка, если была
}
