package domain

import "time"

// Параметры кодировки кадров
const (
	// RawBytesPerPixel - байт на пиксель в упакованном YUYV (4:2:2)
	RawBytesPerPixel = 2
	// RgbBytesPerPixel - байт на пиксель в плотном RGB24
	RgbBytesPerPixel = 3
)

// SegmentOwner определяет, кому в данный момент принадлежит сегмент захвата
type SegmentOwner int

const (
	// OwnerDriver - сегмент поставлен в очередь драйвера и может перезаписываться железом
	OwnerDriver SegmentOwner = iota
	// OwnerApplication - сегмент извлечен из очереди и доступен приложению только для чтения
	OwnerApplication
)

// String возвращает имя владельца
func (o SegmentOwner) String() string {
	switch o {
	case OwnerDriver:
		return "driver"
	case OwnerApplication:
		return "application"
	default:
		return "unknown"
	}
}

// CaptureSegment описывает один отображенный в память буфер кольца захвата
type CaptureSegment struct {
	Index  int          // Индекс в кольце 0..N-1
	Length int          // Длина в байтах, задается один раз при согласовании формата
	Owner  SegmentOwner // Текущий владелец
}

// RawFrame - представление байтов сегмента как кадра YUYV только для чтения
type RawFrame struct {
	Width  int
	Height int
	Data   []byte // Y0 U Y1 V ..., ровно Width*Height*2 байт
}

// RawFrameSize возвращает ожидаемый размер YUYV кадра в байтах
func RawFrameSize(width, height int) int {
	return width * height * RawBytesPerPixel
}

// NewRawFrame создает представление кадра поверх данных сегмента.
// Данные длиннее ожидаемого обрезаются (драйвер может отдавать буфер с запасом),
// короче - нарушение контракта.
func NewRawFrame(data []byte, width, height int) (RawFrame, error) {
	if width <= 0 || height <= 0 || width%2 != 0 {
		return RawFrame{}, &ContractViolation{What: "размеры кадра", Want: "ширина четная и > 0, высота > 0", Got: sizeString(width, height)}
	}
	want := RawFrameSize(width, height)
	if len(data) < want {
		return RawFrame{}, &ContractViolation{What: "длина YUYV буфера", Want: itoa(want), Got: itoa(len(data))}
	}
	return RawFrame{Width: width, Height: height, Data: data[:want:want]}, nil
}

// RgbFrame - принадлежащий приложению изменяемый кадр RGB24 без выравнивания строк
type RgbFrame struct {
	Width     int
	Height    int
	Pix       []byte    // R G B ..., построчно, Width*Height*3 байт
	Seq       uint64    // Порядковый номер кадра в сессии
	Timestamp time.Time // Время захвата
}

// RgbFrameSize возвращает размер RGB24 кадра в байтах
func RgbFrameSize(width, height int) int {
	return width * height * RgbBytesPerPixel
}

// Stride возвращает длину строки в байтах
func (f *RgbFrame) Stride() int {
	return f.Width * RgbBytesPerPixel
}

// Offset возвращает смещение пикселя (x, y) в Pix
func (f *RgbFrame) Offset(x, y int) int {
	return (y*f.Width + x) * RgbBytesPerPixel
}

// Clone делает глубокую копию кадра
func (f *RgbFrame) Clone() *RgbFrame {
	c := *f
	c.Pix = append([]byte(nil), f.Pix...)
	return &c
}

// VideoDevice представляет устройство захвата видео
type VideoDevice struct {
	ID    string // Уникальный идентификатор устройства
	Label string // Человекочитаемое имя устройства
	Kind  string // Тип устройства
}

// VideoConfig содержит конфигурацию захвата
type VideoConfig struct {
	Width         int           // Ширина видео в пикселях
	Height        int           // Высота видео в пикселях
	FrameRate     int           // Частота кадров (для синтетического источника)
	BufferCount   int           // Размер кольца буферов драйвера
	DeviceID      string        // Путь к устройству захвата
	Source        string        // Тип источника: v4l2 или synthetic
	StrictAlloc   bool          // Ошибка выделения памяти завершает цикл
	MaxFrameBytes int           // Предел размера RGB кадра
	MaxRestarts   int           // Сколько раз перезапускать поток после ошибки драйвера
	RetryDelay    time.Duration // Начальная задержка перезапуска
	MaxDelay      time.Duration // Максимальная задержка перезапуска
	InitialMask   FilterMask    // Фильтры, включенные при старте
}
