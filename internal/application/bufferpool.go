package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"webcam-filters/internal/domain"
)

// BufferPool отслеживает владение сегментами кольца захвата.
// Каждый сегмент в любой момент принадлежит либо драйверу, либо приложению.
// Приложение может удерживать не больше Size() сегментов: следующий Acquire
// блокируется до Release.
type BufferPool struct {
	driver CaptureDriver
	size   int

	// tokens - по одному на сегмент, удерживаемый приложением
	tokens chan struct{}

	mu      sync.Mutex
	held    map[int]*Lease
	lengths []int
}

// Lease - сегмент, извлеченный из очереди драйвера.
// После Release байты сегмента недоступны.
type Lease struct {
	pool     *BufferPool
	index    int
	data     []byte
	released atomic.Bool
}

// NewBufferPool создает пул поверх уже настроенного драйвера
func NewBufferPool(driver CaptureDriver) (*BufferPool, error) {
	n := driver.BufferCount()
	if n <= 0 {
		return nil, &domain.ContractViolation{What: "размер кольца буферов", Want: "> 0", Got: fmt.Sprint(n)}
	}
	return &BufferPool{
		driver:  driver,
		size:    n,
		tokens:  make(chan struct{}, n),
		held:    make(map[int]*Lease, n),
		lengths: make([]int, n),
	}, nil
}

// Size возвращает размер кольца
func (p *BufferPool) Size() int {
	return p.size
}

// Acquire ждет заполнения следующего сегмента и передает его приложению.
// Если все сегменты уже удерживаются, ждет Release или отмены контекста.
func (p *BufferPool) Acquire(ctx context.Context) (*Lease, error) {
	select {
	case p.tokens <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return p.dequeue(ctx)
}

// TryAcquire как Acquire, но без ожидания свободного места:
// если все сегменты удерживаются, возвращает ErrPoolExhausted.
func (p *BufferPool) TryAcquire(ctx context.Context) (*Lease, error) {
	select {
	case p.tokens <- struct{}{}:
	default:
		return nil, fmt.Errorf("%w: %d из %d", domain.ErrPoolExhausted, p.size, p.size)
	}
	return p.dequeue(ctx)
}

// dequeue забирает сегмент у драйвера. Токен уже занят вызывающим.
func (p *BufferPool) dequeue(ctx context.Context) (*Lease, error) {
	index, data, err := p.driver.Dequeue(ctx)
	if err != nil {
		<-p.tokens
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		if errors.Is(err, domain.ErrDriverIO) {
			return nil, err
		}
		return nil, domain.NewDriverIOError("dequeue", -1, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if index < 0 || index >= p.size {
		<-p.tokens
		return nil, &domain.ContractViolation{What: "индекс сегмента", Want: fmt.Sprintf("0..%d", p.size-1), Got: fmt.Sprint(index)}
	}
	if _, busy := p.held[index]; busy {
		<-p.tokens
		return nil, &domain.ContractViolation{What: "сегмент " + fmt.Sprint(index), Want: "во владении драйвера", Got: "уже у приложения"}
	}

	l := &Lease{pool: p, index: index, data: data}
	p.held[index] = l
	p.lengths[index] = len(data)
	return l, nil
}

// Release возвращает сегмент драйверу. Вызывается ровно один раз на Acquire,
// после того как приложение закончило читать байты сегмента.
func (p *BufferPool) Release(l *Lease) error {
	if l == nil || l.pool != p {
		return &domain.ContractViolation{What: "возврат сегмента", Want: "сегмент этого пула", Got: "чужой сегмент"}
	}
	if l.released.Swap(true) {
		return &domain.ContractViolation{What: "возврат сегмента " + fmt.Sprint(l.index), Want: "один возврат", Got: "повторный возврат"}
	}

	p.mu.Lock()
	delete(p.held, l.index)
	p.mu.Unlock()
	l.data = nil

	err := p.driver.Queue(l.index)
	<-p.tokens
	if err != nil {
		if errors.Is(err, domain.ErrDriverIO) {
			return err
		}
		return domain.NewDriverIOError("queue", l.index, err)
	}
	return nil
}

// ReleaseAll возвращает драйверу все удерживаемые сегменты.
// Возвращает первую ошибку, но пытается вернуть все.
func (p *BufferPool) ReleaseAll() error {
	p.mu.Lock()
	leases := make([]*Lease, 0, len(p.held))
	for _, l := range p.held {
		leases = append(leases, l)
	}
	p.mu.Unlock()

	var first error
	for _, l := range leases {
		if err := p.Release(l); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Reset считает все сегменты принадлежащими драйверу.
// Вызывается после перезапуска потока, когда драйвер заново поставил все сегменты в очередь.
func (p *BufferPool) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for idx, l := range p.held {
		l.released.Store(true)
		l.data = nil
		delete(p.held, idx)
	}
	for len(p.tokens) > 0 {
		<-p.tokens
	}
}

// FullyQueued сообщает, что все сегменты принадлежат драйверу
func (p *BufferPool) FullyQueued() bool {
	return p.DriverOwned() == p.size
}

// DriverOwned возвращает число сегментов во владении драйвера
func (p *BufferPool) DriverOwned() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.size - len(p.held)
}

// Segments возвращает снимок состояния кольца
func (p *BufferPool) Segments() []domain.CaptureSegment {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]domain.CaptureSegment, p.size)
	for i := range out {
		out[i] = domain.CaptureSegment{Index: i, Length: p.lengths[i], Owner: domain.OwnerDriver}
		if _, ok := p.held[i]; ok {
			out[i].Owner = domain.OwnerApplication
		}
	}
	return out
}

// Index возвращает индекс сегмента в кольце
func (l *Lease) Index() int {
	return l.index
}

// Released сообщает, что сегмент уже возвращен драйверу
func (l *Lease) Released() bool {
	return l.released.Load()
}

// Frame возвращает представление сегмента как YUYV кадра
func (l *Lease) Frame(width, height int) (domain.RawFrame, error) {
	if l.released.Load() {
		return domain.RawFrame{}, fmt.Errorf("сегмент %d: %w", l.index, domain.ErrSegmentReleased)
	}
	return domain.NewRawFrame(l.data, width, height)
}
