package camera

import (
	"context"
	"errors"
	"sync"
	"time"

	"webcam-filters/internal/domain"
)

// barColors - цветные полосы SMPTE (RGB)
var barColors = [7][3]int{
	{192, 192, 192}, // Gray
	{192, 192, 0},   // Yellow
	{0, 192, 192},   // Cyan
	{0, 192, 0},     // Green
	{192, 0, 192},   // Magenta
	{192, 0, 0},     // Red
	{0, 0, 192},     // Blue
}

// SyntheticDriver - кольцо буферов без устройства: цветные полосы, сдвигающиеся
// на каждом кадре, в формате YUYV с заданной частотой
type SyntheticDriver struct {
	width    int
	height   int
	interval time.Duration
	segments [][]byte

	mu        sync.Mutex
	queued    []int
	streaming bool
	closed    bool
	frame     int
	next      time.Time
}

// NewSyntheticDriver создает синтетический источник
func NewSyntheticDriver(config domain.VideoConfig) (*SyntheticDriver, error) {
	if config.Width <= 0 || config.Height <= 0 || config.Width%2 != 0 {
		return nil, &domain.ContractViolation{What: "размеры кадра", Want: "ширина четная и > 0, высота > 0", Got: "некорректные"}
	}
	n := config.BufferCount
	if n <= 0 {
		n = 4
	}
	fps := config.FrameRate
	if fps <= 0 {
		fps = 30
	}

	d := &SyntheticDriver{
		width:    config.Width,
		height:   config.Height,
		interval: time.Second / time.Duration(fps),
		segments: make([][]byte, n),
	}
	for i := range d.segments {
		d.segments[i] = make([]byte, domain.RawFrameSize(config.Width, config.Height))
	}
	return d, nil
}

// BufferCount возвращает размер кольца
func (d *SyntheticDriver) BufferCount() int {
	return len(d.segments)
}

// StartStream ставит все сегменты в очередь
func (d *SyntheticDriver) StartStream() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return errors.New("устройство закрыто")
	}
	if d.streaming {
		return errors.New("поток уже включен")
	}
	d.queued = d.queued[:0]
	for i := range d.segments {
		d.queued = append(d.queued, i)
	}
	d.streaming = true
	d.next = time.Now()
	return nil
}

// StopStream выключает поток
func (d *SyntheticDriver) StopStream() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.streaming {
		return errors.New("поток не включен")
	}
	d.streaming = false
	d.queued = nil
	return nil
}

// Dequeue ждет следующий кадр по расписанию и заполняет первый сегмент из очереди
func (d *SyntheticDriver) Dequeue(ctx context.Context) (int, []byte, error) {
	d.mu.Lock()
	if !d.streaming {
		d.mu.Unlock()
		return -1, nil, errors.New("поток не включен")
	}
	if len(d.queued) == 0 {
		d.mu.Unlock()
		return -1, nil, errors.New("нет буферов в очереди")
	}
	due := d.next
	d.next = due.Add(d.interval)
	if now := time.Now(); d.next.Before(now) {
		d.next = now
	}
	d.mu.Unlock()

	if wait := time.Until(due); wait > 0 {
		t := time.NewTimer(wait)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return -1, nil, ctx.Err()
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.streaming || len(d.queued) == 0 {
		return -1, nil, errors.New("поток выключен во время ожидания")
	}
	idx := d.queued[0]
	d.queued = d.queued[1:]
	d.frame++
	fillColorBars(d.segments[idx], d.width, d.height, d.frame)
	return idx, d.segments[idx], nil
}

// Queue возвращает сегмент в очередь
func (d *SyntheticDriver) Queue(index int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if index < 0 || index >= len(d.segments) {
		return errors.New("индекс вне кольца")
	}
	if d.streaming {
		d.queued = append(d.queued, index)
	}
	return nil
}

// Close освобождает сегменты
func (d *SyntheticDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.streaming = false
	d.closed = true
	d.queued = nil
	return nil
}

// fillColorBars заполняет YUYV буфер полосами, сдвинутыми на shift пикселей
func fillColorBars(buf []byte, width, height, shift int) {
	var yuv [7][3]byte
	for i, c := range barColors {
		yuv[i] = rgbToYUV(c[0], c[1], c[2])
	}

	barWidth := width / 7
	if barWidth == 0 {
		barWidth = 1
	}
	for y := 0; y < height; y++ {
		row := buf[y*width*2 : (y+1)*width*2]
		for x := 0; x < width; x += 2 {
			bar := ((x + shift) % width) / barWidth
			if bar >= 7 {
				bar = 6
			}
			c := yuv[bar]
			i := x * 2
			row[i], row[i+1], row[i+2], row[i+3] = c[0], c[1], c[0], c[2]
		}
	}
}

// rgbToYUV - прямое преобразование BT.601 в целых числах
func rgbToYUV(r, g, b int) [3]byte {
	y := ((66*r+129*g+25*b+128)>>8 + 16)
	u := ((-38*r-74*g+112*b+128)>>8 + 128)
	v := ((112*r-94*g-18*b+128)>>8 + 128)
	return [3]byte{byte(y), byte(u), byte(v)}
}
