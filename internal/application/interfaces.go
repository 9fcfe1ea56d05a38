package application

import (
	"context"

	"webcam-filters/internal/domain"
)

// CaptureDriver интерфейс драйвера захвата с кольцом буферов.
// Формат и разрешение согласованы до создания пула буферов.
type CaptureDriver interface {
	// BufferCount возвращает размер кольца, фиксированный после настройки
	BufferCount() int

	// StartStream ставит все сегменты в очередь и включает поток
	StartStream() error

	// StopStream выключает поток, все сегменты возвращаются драйверу
	StopStream() error

	// Dequeue блокируется до заполнения следующего сегмента и возвращает его индекс и байты.
	// Байты действительны только до Queue с тем же индексом.
	Dequeue(ctx context.Context) (index int, data []byte, err error)

	// Queue возвращает сегмент драйверу
	Queue(index int) error

	// Close освобождает отображенную память и закрывает устройство
	Close() error
}

// DeviceCatalog интерфейс для перечисления устройств захвата
type DeviceCatalog interface {
	// ListDevices возвращает список доступных устройств захвата
	ListDevices() ([]domain.VideoDevice, error)
}

// FrameSink интерфейс внешнего слоя отображения.
// Present должен закончить чтение кадра до возврата: кадр переиспользуется.
type FrameSink interface {
	Present(ctx context.Context, frame *domain.RgbFrame) error
	Close() error
}

// ProcessSampler снимает метрики процесса
type ProcessSampler interface {
	Sample() (ProcessUsage, error)
}

// ProcessUsage - загрузка CPU и память процесса
type ProcessUsage struct {
	CPUPercent float64
	RSSBytes   uint64
}

// Logger интерфейс для логирования
type Logger interface {
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
	WithField(key string, value interface{}) Logger
}
