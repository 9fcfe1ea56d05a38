package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"webcam-filters/internal/domain"
)

var errEIO = errors.New("input/output error")

// fakeDriver имитирует кольцо буферов драйвера
type fakeDriver struct {
	mu        sync.Mutex
	segments  [][]byte
	queued    []int
	streaming bool
	ready     chan struct{}

	dequeueErrs []error // ошибки, возвращаемые Dequeue по очереди
	alwaysFail  error   // Dequeue всегда возвращает эту ошибку
	queueErr    error
	startErrs   []error

	starts, stops, closes int
}

func newFakeDriver(n, width, height int, fill []byte) *fakeDriver {
	d := &fakeDriver{ready: make(chan struct{}, 1)}
	for i := 0; i < n; i++ {
		seg := make([]byte, width*height*2)
		for j := range seg {
			seg[j] = fill[j%len(fill)]
		}
		d.segments = append(d.segments, seg)
	}
	return d
}

func (d *fakeDriver) BufferCount() int { return len(d.segments) }

func (d *fakeDriver) StartStream() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.starts++
	if len(d.startErrs) > 0 {
		err := d.startErrs[0]
		d.startErrs = d.startErrs[1:]
		if err != nil {
			return err
		}
	}
	d.streaming = true
	d.queued = d.queued[:0]
	for i := range d.segments {
		d.queued = append(d.queued, i)
	}
	return nil
}

func (d *fakeDriver) StopStream() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stops++
	d.streaming = false
	d.queued = nil
	return nil
}

func (d *fakeDriver) Dequeue(ctx context.Context) (int, []byte, error) {
	for {
		d.mu.Lock()
		if d.alwaysFail != nil {
			d.mu.Unlock()
			return -1, nil, d.alwaysFail
		}
		if len(d.dequeueErrs) > 0 {
			err := d.dequeueErrs[0]
			d.dequeueErrs = d.dequeueErrs[1:]
			d.mu.Unlock()
			return -1, nil, err
		}
		if !d.streaming {
			d.mu.Unlock()
			return -1, nil, errors.New("stream is off")
		}
		if len(d.queued) > 0 {
			idx := d.queued[0]
			d.queued = d.queued[1:]
			d.mu.Unlock()
			return idx, d.segments[idx], nil
		}
		d.mu.Unlock()

		select {
		case <-ctx.Done():
			return -1, nil, ctx.Err()
		case <-d.ready:
		}
	}
}

func (d *fakeDriver) Queue(index int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.queueErr != nil {
		return d.queueErr
	}
	d.queued = append(d.queued, index)
	select {
	case d.ready <- struct{}{}:
	default:
	}
	return nil
}

func (d *fakeDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closes++
	return nil
}

func (d *fakeDriver) counts() (starts, stops, closes int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.starts, d.stops, d.closes
}

// fakeSink копирует кадры и вызывает onFrame
type fakeSink struct {
	mu      sync.Mutex
	frames  []*domain.RgbFrame
	err     error
	onFrame func(n int)
	closed  bool
}

func (s *fakeSink) Present(_ context.Context, frame *domain.RgbFrame) error {
	s.mu.Lock()
	if s.err != nil {
		s.mu.Unlock()
		return s.err
	}
	s.frames = append(s.frames, frame.Clone())
	n := len(s.frames)
	cb := s.onFrame
	s.mu.Unlock()

	if cb != nil {
		cb(n)
	}
	return nil
}

func (s *fakeSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

// recordLogger запоминает сообщения
type recordLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordLogger) add(level, msg string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, level+" "+fmt.Sprintf(msg, args...))
}

func (l *recordLogger) Info(msg string, args ...interface{})  { l.add("INFO", msg, args...) }
func (l *recordLogger) Warn(msg string, args ...interface{})  { l.add("WARN", msg, args...) }
func (l *recordLogger) Error(msg string, args ...interface{}) { l.add("ERROR", msg, args...) }
func (l *recordLogger) Debug(msg string, args ...interface{}) { l.add("DEBUG", msg, args...) }

func (l *recordLogger) WithField(string, interface{}) Logger { return l }

func (l *recordLogger) contains(sub string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, line := range l.lines {
		if strings.Contains(line, sub) {
			return true
		}
	}
	return false
}

// Черный YUYV без цветности и насыщенный красный
var (
	yuyvBlack = []byte{16, 128, 16, 128}
	yuyvRed   = []byte{81, 90, 81, 240}
)
