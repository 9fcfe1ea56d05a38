package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"webcam-filters/internal/application"
)

// LogrusLogger логгер на основе logrus
type LogrusLogger struct {
	entry *logrus.Entry
}

// NewLogrusLogger создает логгер. debugEnabled перекрывает level.
// out == nil означает stderr.
func NewLogrusLogger(level string, debugEnabled bool, out io.Writer) (*LogrusLogger, error) {
	lvl := logrus.InfoLevel
	if level != "" {
		parsed, err := logrus.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("уровень логирования %q: %w", level, err)
		}
		lvl = parsed
	}
	if debugEnabled {
		lvl = logrus.DebugLevel
	}
	if out == nil {
		out = os.Stderr
	}

	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(lvl)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	return &LogrusLogger{entry: logrus.NewEntry(l)}, nil
}

// Info логирует информационное сообщение
func (l *LogrusLogger) Info(msg string, args ...interface{}) {
	l.entry.Infof(msg, args...)
}

// Warn логирует предупреждение
func (l *LogrusLogger) Warn(msg string, args ...interface{}) {
	l.entry.Warnf(msg, args...)
}

// Error логирует сообщение об ошибке
func (l *LogrusLogger) Error(msg string, args ...interface{}) {
	l.entry.Errorf(msg, args...)
}

// Debug логирует отладочное сообщение
func (l *LogrusLogger) Debug(msg string, args ...interface{}) {
	l.entry.Debugf(msg, args...)
}

// WithField возвращает логгер с дополнительным полем
func (l *LogrusLogger) WithField(key string, value interface{}) application.Logger {
	return &LogrusLogger{entry: l.entry.WithField(key, value)}
}
