package camera

import (
	"github.com/pion/mediadevices"
	_ "github.com/pion/mediadevices/pkg/driver/camera" // Регистрируем драйвер камеры

	"webcam-filters/internal/application"
	"webcam-filters/internal/domain"
)

// MediaDevicesCatalog реализация DeviceCatalog с использованием библиотеки mediadevices
type MediaDevicesCatalog struct {
	logger application.Logger
}

// NewMediaDevicesCatalog создает каталог медиаустройств
func NewMediaDevicesCatalog(logger application.Logger) *MediaDevicesCatalog {
	return &MediaDevicesCatalog{
		logger: logger,
	}
}

// ListDevices возвращает список доступных устройств захвата видео
func (m *MediaDevicesCatalog) ListDevices() ([]domain.VideoDevice, error) {
	devices := mediadevices.EnumerateDevices()
	m.logger.Debug("Найдено медиаустройств: %d", len(devices))
	return videoInputs(devices), nil
}

// videoInputs оставляет только устройства захвата видео
func videoInputs(devices []mediadevices.MediaDeviceInfo) []domain.VideoDevice {
	result := make([]domain.VideoDevice, 0, len(devices))
	for _, device := range devices {
		if device.Kind != mediadevices.VideoInput {
			continue
		}
		result = append(result, domain.VideoDevice{
			ID:    device.DeviceID,
			Label: device.Label,
			Kind:  "videoinput",
		})
	}
	return result
}
