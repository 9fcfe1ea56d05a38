package processing

import (
	"fmt"
	"sync"

	"webcam-filters/internal/domain"
)

// FramePool выдает RGB кадры фиксированного размера и ограничивает число
// одновременно выданных кадров. Исчерпание лимита - ошибка выделения памяти.
type FramePool struct {
	mu          sync.Mutex
	width       int
	height      int
	limit       int
	maxBytes    int
	free        []*domain.RgbFrame
	outstanding int
}

// NewFramePool создает пул кадров. limit <= 0 означает один кадр,
// maxBytes <= 0 - DefaultMaxFrameBytes.
func NewFramePool(width, height, limit, maxBytes int) *FramePool {
	if limit <= 0 {
		limit = 1
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFrameBytes
	}
	return &FramePool{
		width:    width,
		height:   height,
		limit:    limit,
		maxBytes: maxBytes,
	}
}

// Get возвращает свободный кадр или выделяет новый
func (p *FramePool) Get() (*domain.RgbFrame, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.outstanding >= p.limit {
		return nil, &domain.AllocationError{
			Bytes:  domain.RgbFrameSize(p.width, p.height),
			Reason: fmt.Sprintf("выдано %d кадров из %d", p.outstanding, p.limit),
		}
	}

	if n := len(p.free); n > 0 {
		f := p.free[n-1]
		p.free = p.free[:n-1]
		p.outstanding++
		return f, nil
	}

	f, err := newRgbFrameLimit(p.width, p.height, p.maxBytes)
	if err != nil {
		return nil, err
	}
	p.outstanding++
	return f, nil
}

// Put возвращает кадр в пул. Кадры чужого размера отбрасываются
func (p *FramePool) Put(f *domain.RgbFrame) {
	if f == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.outstanding > 0 {
		p.outstanding--
	}
	if f.Width != p.width || f.Height != p.height || len(f.Pix) != domain.RgbFrameSize(p.width, p.height) {
		return
	}
	f.Seq = 0
	p.free = append(p.free, f)
}

// Outstanding возвращает число выданных и не возвращенных кадров
func (p *FramePool) Outstanding() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.outstanding
}
