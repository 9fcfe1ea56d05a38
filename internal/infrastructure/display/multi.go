package display

import (
	"context"
	"errors"

	"webcam-filters/internal/application"
	"webcam-filters/internal/domain"
)

// MultiSink передает кадр нескольким отображениям по очереди
type MultiSink struct {
	sinks []application.FrameSink
}

// NewMultiSink объединяет отображения
func NewMultiSink(sinks ...application.FrameSink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

// Present вызывает все отображения; ошибки объединяются
func (m *MultiSink) Present(ctx context.Context, frame *domain.RgbFrame) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Present(ctx, frame); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close закрывает все отображения
func (m *MultiSink) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Len возвращает число отображений
func (m *MultiSink) Len() int {
	return len(m.sinks)
}
