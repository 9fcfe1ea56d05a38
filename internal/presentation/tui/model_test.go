package tui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webcam-filters/internal/application"
	"webcam-filters/internal/domain"
)

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestModel_TogglesFilters(t *testing.T) {
	controls := application.NewControls(0, nil)
	m := New(controls, nil, nil)

	next, cmd := m.Update(runeKey('e'))
	assert.Nil(t, cmd)
	assert.True(t, controls.Mask().Enabled(domain.FilterEdges))

	next, _ = next.Update(runeKey('e'))
	assert.False(t, controls.Mask().Enabled(domain.FilterEdges))

	next, _ = next.Update(runeKey('z'))
	assert.Equal(t, domain.FilterMask(0), controls.Mask())
	assert.Contains(t, next.View(), "[e] edges")
}

func TestModel_QuitKeys(t *testing.T) {
	for _, msg := range []tea.KeyMsg{runeKey('q'), {Type: tea.KeyEsc}, {Type: tea.KeyCtrlC}} {
		controls := application.NewControls(0, nil)
		m := New(controls, nil, nil)

		next, cmd := m.Update(msg)
		require.NotNil(t, cmd)
		assert.IsType(t, tea.QuitMsg{}, cmd())
		assert.True(t, controls.StopRequested())
		assert.Contains(t, next.View(), "Остановка")
	}
}

func TestModel_TickRefreshesStats(t *testing.T) {
	controls := application.NewControls(domain.FilterMask(0).Set(domain.FilterSepia, true), nil)
	stats := func() (domain.SessionStats, bool) {
		return domain.SessionStats{State: domain.StateStreaming, FPS: 29.9, FramesCaptured: 120}, true
	}
	m := New(controls, stats, nil)

	next, cmd := m.Update(tickMsg(time.Now()))
	require.NotNil(t, cmd, "tick keeps refreshing")

	view := next.View()
	assert.Contains(t, view, "streaming")
	assert.Contains(t, view, "29.9")
	assert.Contains(t, view, "120")
	assert.Contains(t, view, "[s] sepia")
}

func TestModel_TickQuitsAfterExternalStop(t *testing.T) {
	controls := application.NewControls(0, nil)
	m := New(controls, nil, nil)

	controls.RequestStop()
	_, cmd := m.Update(tickMsg(time.Now()))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
