package metrics

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webcam-filters/internal/application"
)

var _ application.ProcessSampler = (*ProcessSampler)(nil)

func TestProcessSampler(t *testing.T) {
	s, err := NewProcessSampler()
	require.NoError(t, err)

	usage, err := s.Sample()
	require.NoError(t, err)
	assert.NotZero(t, usage.RSSBytes)
	assert.GreaterOrEqual(t, usage.CPUPercent, 0.0)
}

func TestProcessSampler_Concurrent(t *testing.T) {
	s, err := NewProcessSampler()
	require.NoError(t, err)

	var wg sync.WaitGroup
	for g := 0; g < 2; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				if _, err := s.Sample(); err != nil {
					t.Errorf("sample: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()
}
