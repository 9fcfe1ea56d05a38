package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"webcam-filters/internal/application"
	"webcam-filters/internal/domain"
)

// refreshInterval - период обновления статистики
const refreshInterval = 500 * time.Millisecond

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	onStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	offStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// StatsFunc возвращает статистику текущей сессии
type StatsFunc func() (domain.SessionStats, bool)

type tickMsg time.Time

// Model - терминальный ввод: клавиши фильтров и остановки, строка состояния
type Model struct {
	controls *application.Controls
	stats    StatsFunc
	sampler  application.ProcessSampler

	last     domain.SessionStats
	hasStats bool
	usage    application.ProcessUsage
	quitting bool
}

// New создает модель. stats и sampler могут быть nil
func New(controls *application.Controls, stats StatsFunc, sampler application.ProcessSampler) Model {
	return Model{controls: controls, stats: stats, sampler: sampler}
}

// Init запускает периодическое обновление
func (m Model) Init() tea.Cmd {
	return tick()
}

// Update обрабатывает клавиши и таймер
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.controls.RequestStop()
		case tea.KeyRunes:
			if len(msg.Runes) == 1 {
				m.controls.HandleKey(msg.Runes[0])
			}
		}
		if m.controls.StopRequested() {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil

	case tickMsg:
		m.refresh()
		if m.controls.StopRequested() {
			m.quitting = true
			return m, tea.Quit
		}
		return m, tick()
	}
	return m, nil
}

// View рисует состояние сессии и фильтров
func (m Model) View() string {
	if m.quitting {
		return "Остановка захвата...\n"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("webcam-filters"))
	b.WriteString("\n\n")

	if m.hasStats {
		st := m.last
		fmt.Fprintf(&b, "%s %s  %s %.1f  %s %d  %s %d  %s %d\n",
			labelStyle.Render("состояние:"), st.State,
			labelStyle.Render("fps:"), st.FPS,
			labelStyle.Render("кадров:"), st.FramesCaptured,
			labelStyle.Render("пропущено:"), st.FramesSkipped,
			labelStyle.Render("перезапусков:"), st.Restarts)
		fmt.Fprintf(&b, "%s %v", labelStyle.Render("обработка:"), st.ProcessTime.Round(time.Microsecond))
		if m.usage.RSSBytes > 0 {
			fmt.Fprintf(&b, "  %s %.1f%%  %s %.1f MiB",
				labelStyle.Render("cpu:"), m.usage.CPUPercent,
				labelStyle.Render("rss:"), float64(m.usage.RSSBytes)/(1<<20))
		}
		b.WriteString("\n")
		if st.LastError != "" {
			b.WriteString(errStyle.Render("ошибка: "+st.LastError) + "\n")
		}
	} else {
		b.WriteString(labelStyle.Render("ожидание сессии...") + "\n")
	}

	mask := m.controls.Mask()
	var filters []string
	for _, k := range domain.FilterKinds() {
		label := fmt.Sprintf("[%c] %s", k.Key(), k)
		if mask.Enabled(k) {
			filters = append(filters, onStyle.Render(label))
		} else {
			filters = append(filters, offStyle.Render(label))
		}
	}
	b.WriteString("\n" + boxStyle.Render(strings.Join(filters, "  ")) + "\n")
	b.WriteString(labelStyle.Render("q / esc - выход") + "\n")
	return b.String()
}

func (m *Model) refresh() {
	if m.stats != nil {
		m.last, m.hasStats = m.stats()
	}
	if m.sampler != nil {
		if usage, err := m.sampler.Sample(); err == nil {
			m.usage = usage
		}
	}
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Run показывает интерфейс до выхода пользователя или отмены контекста
func Run(ctx context.Context, m Model, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithContext(ctx)}, opts...)
	_, err := tea.NewProgram(m, opts...).Run()
	if err != nil && (errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, context.Canceled)) {
		return nil
	}
	return err
}
