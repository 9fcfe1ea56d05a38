package camera

import (
	"context"
	"fmt"

	"github.com/blackjack/webcam"

	"webcam-filters/internal/application"
	"webcam-filters/internal/domain"
)

// pixelFormatYUYV - fourcc 'YUYV', упакованный 4:2:2
const pixelFormatYUYV = webcam.PixelFormat(0x56595559)

// waitTimeoutSec - сколько секунд ждать кадр до проверки контекста
const waitTimeoutSec = 1

// v4l2Device - методы *webcam.Webcam, которыми пользуется драйвер
type v4l2Device interface {
	GetName() (string, error)
	GetBusInfo() (string, error)
	GetSupportedFormats() map[webcam.PixelFormat]string
	SetImageFormat(f webcam.PixelFormat, width, height uint32) (webcam.PixelFormat, uint32, uint32, error)
	SetBufferCount(count uint32) error
	StartStreaming() error
	StopStreaming() error
	WaitForFrame(timeout uint32) error
	GetFrame() ([]byte, uint32, error)
	ReleaseFrame(index uint32) error
	Close() error
}

// V4L2Driver реализация CaptureDriver поверх кольца MMAP буферов V4L2
type V4L2Driver struct {
	cam    v4l2Device
	path   string
	count  int
	logger application.Logger
}

// OpenV4L2 открывает устройство, согласует YUYV с заданным разрешением
// и запрашивает кольцо из config.BufferCount буферов
func OpenV4L2(config domain.VideoConfig, logger application.Logger) (*V4L2Driver, error) {
	path := config.DeviceID
	if path == "" {
		path = "/dev/video0"
	}

	cam, err := webcam.Open(path)
	if err != nil {
		return nil, domain.NewDriverIOError("open "+path, -1, err)
	}

	d := &V4L2Driver{cam: cam, path: path, count: config.BufferCount, logger: logger}
	if err := d.setup(config); err != nil {
		cam.Close()
		return nil, err
	}
	return d, nil
}

func (d *V4L2Driver) setup(config domain.VideoConfig) error {
	if name, err := d.cam.GetName(); err == nil {
		d.logger.Info("Устройство %s: %s", d.path, name)
	}
	if bus, err := d.cam.GetBusInfo(); err == nil {
		d.logger.Debug("Шина: %s", bus)
	}

	if _, ok := d.cam.GetSupportedFormats()[pixelFormatYUYV]; !ok {
		return &domain.ContractViolation{What: "формат " + d.path, Want: "YUYV", Got: "не поддерживается"}
	}

	f, w, h, err := d.cam.SetImageFormat(pixelFormatYUYV, uint32(config.Width), uint32(config.Height))
	if err != nil {
		return domain.NewDriverIOError("set-format", -1, err)
	}
	if f != pixelFormatYUYV || int(w) != config.Width || int(h) != config.Height {
		return &domain.ContractViolation{
			What: "согласованный формат",
			Want: fmt.Sprintf("YUYV %dx%d", config.Width, config.Height),
			Got:  fmt.Sprintf("%#x %dx%d", uint32(f), w, h),
		}
	}

	if d.count <= 0 {
		d.count = 4
	}
	if err := d.cam.SetBufferCount(uint32(d.count)); err != nil {
		return domain.NewDriverIOError("request-buffers", -1, err)
	}

	d.logger.Info("Формат YUYV %dx%d, буферов: %d", w, h, d.count)
	return nil
}

// BufferCount возвращает размер кольца
func (d *V4L2Driver) BufferCount() int {
	return d.count
}

// StartStream отображает буферы, ставит их в очередь и включает поток
func (d *V4L2Driver) StartStream() error {
	return domain.NewDriverIOError("stream-on", -1, d.cam.StartStreaming())
}

// StopStream выключает поток и снимает отображение буферов
func (d *V4L2Driver) StopStream() error {
	return domain.NewDriverIOError("stream-off", -1, d.cam.StopStreaming())
}

// Dequeue ждет заполненный буфер. Пустые кадры сразу возвращаются драйверу.
// Драйвер может выделить больше буферов, чем запрошено: лишние тоже
// возвращаются в очередь, кольцо приложения видит только первые count.
func (d *V4L2Driver) Dequeue(ctx context.Context) (int, []byte, error) {
	for {
		if err := ctx.Err(); err != nil {
			return -1, nil, err
		}

		err := d.cam.WaitForFrame(waitTimeoutSec)
		switch err.(type) {
		case nil:
		case *webcam.Timeout:
			d.logger.Debug("Нет кадра за %d с", waitTimeoutSec)
			continue
		default:
			return -1, nil, domain.NewDriverIOError("dequeue", -1, err)
		}

		frame, index, err := d.cam.GetFrame()
		if err != nil {
			return -1, nil, domain.NewDriverIOError("dequeue", -1, err)
		}
		if int(index) >= d.count {
			d.logger.Debug("Буфер %d вне кольца из %d, возвращаем драйверу", index, d.count)
		}
		if len(frame) == 0 || int(index) >= d.count {
			if err := d.cam.ReleaseFrame(index); err != nil {
				return -1, nil, domain.NewDriverIOError("queue", int(index), err)
			}
			continue
		}
		return int(index), frame, nil
	}
}

// Queue возвращает буфер драйверу
func (d *V4L2Driver) Queue(index int) error {
	return domain.NewDriverIOError("queue", index, d.cam.ReleaseFrame(uint32(index)))
}

// Close закрывает устройство
func (d *V4L2Driver) Close() error {
	return domain.NewDriverIOError("close", -1, d.cam.Close())
}
