package application

import (
	"context"
	"time"
)

// RestartPolicy задает перезапуск потока драйвера после ошибки ввода-вывода
type RestartPolicy struct {
	MaxRetries    int           // 0 - без перезапуска
	RetryDelay    time.Duration // Начальная задержка
	MaxRetryDelay time.Duration // Предел задержки
}

// DefaultRestartPolicy возвращает политику по умолчанию: 3 попытки, 1s, 2s, 4s
func DefaultRestartPolicy() RestartPolicy {
	return RestartPolicy{
		MaxRetries:    3,
		RetryDelay:    1 * time.Second,
		MaxRetryDelay: 30 * time.Second,
	}
}

// Backoff возвращает задержку перед попыткой attempt (с 1): RetryDelay * 2^(attempt-1), не больше MaxRetryDelay
func (p RestartPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 32 {
		attempt = 32
	}
	delay := p.RetryDelay * time.Duration(1<<uint(attempt-1))
	if p.MaxRetryDelay > 0 && (delay > p.MaxRetryDelay || delay < 0) {
		delay = p.MaxRetryDelay
	}
	return delay
}

// wait ждет задержку или отмену контекста
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
