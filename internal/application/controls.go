package application

import (
	"sync"
	"sync/atomic"
	"unicode"

	"webcam-filters/internal/domain"
)

// Controls - общее состояние между вводом и циклом захвата:
// маска фильтров и флаг остановки. Безопасно для нескольких горутин.
type Controls struct {
	mask   atomic.Uint32
	stop   atomic.Bool
	done   chan struct{}
	once   sync.Once
	logger Logger
}

// NewControls создает состояние управления с начальной маской
func NewControls(initial domain.FilterMask, logger Logger) *Controls {
	c := &Controls{
		done:   make(chan struct{}),
		logger: logger,
	}
	c.mask.Store(uint32(initial))
	return c
}

// Mask возвращает снимок текущей маски
func (c *Controls) Mask() domain.FilterMask {
	return domain.FilterMask(c.mask.Load())
}

// SetMask заменяет маску целиком
func (c *Controls) SetMask(m domain.FilterMask) {
	c.mask.Store(uint32(m))
}

// Toggle переключает фильтр и возвращает его новое состояние
func (c *Controls) Toggle(k domain.FilterKind) bool {
	for {
		old := c.mask.Load()
		next := domain.FilterMask(old).Toggle(k)
		if c.mask.CompareAndSwap(old, uint32(next)) {
			on := next.Enabled(k)
			if c.logger != nil {
				c.logger.Info("%s toggled: %d", k, boolToInt(on))
			}
			return on
		}
	}
}

// HandleKey обрабатывает клавишу: b/s/e/g/r/d переключают фильтры, q и Esc останавливают захват.
// Регистр не важен. Возвращает false для неизвестных клавиш.
func (c *Controls) HandleKey(key rune) bool {
	switch key {
	case 'q', 'Q', 0x1b:
		c.RequestStop()
		return true
	}
	k, ok := domain.FilterKindForKey(unicode.ToLower(key))
	if !ok {
		return false
	}
	c.Toggle(k)
	return true
}

// RequestStop просит цикл захвата остановиться после текущей итерации
func (c *Controls) RequestStop() {
	c.stop.Store(true)
	c.once.Do(func() { close(c.done) })
}

// StopRequested сообщает, была ли запрошена остановка
func (c *Controls) StopRequested() bool {
	return c.stop.Load()
}

// Done закрывается при запросе остановки
func (c *Controls) Done() <-chan struct{} {
	return c.done
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
