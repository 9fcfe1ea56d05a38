package metrics

import (
	"fmt"
	"os"
	"sync"

	"github.com/shirou/gopsutil/v3/process"

	"webcam-filters/internal/application"
)

// ProcessSampler снимает загрузку CPU и RSS текущего процесса.
// Безопасен для нескольких горутин.
type ProcessSampler struct {
	mu   sync.Mutex
	proc *process.Process
}

// NewProcessSampler создает сэмплер для текущего процесса
func NewProcessSampler() (*ProcessSampler, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("процесс %d: %w", os.Getpid(), err)
	}
	return &ProcessSampler{proc: p}, nil
}

// Sample возвращает загрузку CPU с предыдущего вызова и текущий RSS
func (s *ProcessSampler) Sample() (application.ProcessUsage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var usage application.ProcessUsage

	cpu, err := s.proc.Percent(0)
	if err != nil {
		return usage, fmt.Errorf("загрузка CPU: %w", err)
	}
	usage.CPUPercent = cpu

	mem, err := s.proc.MemoryInfo()
	if err != nil {
		return usage, fmt.Errorf("память процесса: %w", err)
	}
	if mem != nil {
		usage.RSSBytes = mem.RSS
	}
	return usage, nil
}
