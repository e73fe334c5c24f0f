package review

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/jobscout/internal/model"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

var errCancelled = errors.New("cancelled")

type cycleDoneMsg struct {
	result model.CycleResult
}

type spinnerTickMsg struct{}

type loaderModel struct {
	label   string
	cycleFn func(ctx context.Context) model.CycleResult
	timeout time.Duration
	frame   int
	result  model.CycleResult
	err     error
	done    bool
}

func (m loaderModel) Init() tea.Cmd {
	return tea.Batch(m.runCycle(), m.tick())
}

func (m loaderModel) runCycle() tea.Cmd {
	cycleFn, timeout := m.cycleFn, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return cycleDoneMsg{result: cycleFn(ctx)}
	}
}

func (m loaderModel) tick() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(time.Time) tea.Msg {
		return spinnerTickMsg{}
	})
}

func (m loaderModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case cycleDoneMsg:
		m.result = msg.result
		m.err = msg.result.Err
		m.done = true
		return m, tea.Quit
	case spinnerTickMsg:
		m.frame = (m.frame + 1) % len(spinnerFrames)
		return m, m.tick()
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.done = true
			m.err = errCancelled
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m loaderModel) View() string {
	if m.done {
		return ""
	}
	spinner := lipgloss.NewStyle().Foreground(lipgloss.Color("33")).Render(spinnerFrames[m.frame])
	return fmt.Sprintf("%s Discovering postings for %s...\n", spinner, m.label)
}

// RunLoader shows a spinner while a dry-run cycle runs. It renders inline (no alt screen).
func RunLoader(label string, timeout time.Duration, cycleFn func(ctx context.Context) model.CycleResult) (model.CycleResult, error) {
	m := loaderModel{
		label:   label,
		cycleFn: cycleFn,
		timeout: timeout,
	}
	p := tea.NewProgram(m)
	result, err := p.Run()
	if err != nil {
		return model.CycleResult{}, err
	}
	final := result.(loaderModel)
	return final.result, final.err
}
