package review

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/jobscout/internal/model"
)

// AllProfiles is returned by RunProfilePicker when the user picks every profile.
const AllProfiles = -1

// pickerQuit is returned by RunProfilePicker when the user quits.
const pickerQuit = -2

var (
	pickerTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				Padding(1, 0, 1, 2)

	pickerItemStyle = lipgloss.NewStyle().
			Padding(0, 0, 0, 4)

	pickerSelectedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39")).
				Bold(true).
				Padding(0, 0, 0, 2)

	pickerHintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Padding(1, 0, 0, 2)
)

// pickerModel lists "all profiles" at row 0 followed by each profile.
type pickerModel struct {
	profiles []model.SearchProfile
	cursor   int
	chosen   int
	picked   bool
}

func (m pickerModel) Init() tea.Cmd {
	return nil
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.chosen = pickerQuit
			m.picked = true
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.profiles) {
				m.cursor++
			}
		case "enter":
			m.chosen = m.cursor - 1 // row 0 maps to AllProfiles
			m.picked = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m pickerModel) View() string {
	var b strings.Builder
	b.WriteString(pickerTitleStyle.Render("Review: select a search profile"))
	b.WriteByte('\n')

	labels := []string{fmt.Sprintf("All profiles (%d)", len(m.profiles))}
	for _, p := range m.profiles {
		labels = append(labels, fmt.Sprintf("%s (%s)", p.Name, strings.Join(p.Keywords, ", ")))
	}

	for i, label := range labels {
		if i == m.cursor {
			b.WriteString(pickerSelectedStyle.Render("> "+label) + "\n")
		} else {
			b.WriteString(pickerItemStyle.Render(label) + "\n")
		}
	}

	b.WriteString(pickerHintStyle.Render("↑/↓/j/k navigate  enter select  q quit"))
	return b.String()
}

// RunProfilePicker shows an interactive profile selector. It returns the
// index of the chosen profile, AllProfiles, or ok=false if the user quit.
func RunProfilePicker(profiles []model.SearchProfile) (idx int, ok bool, err error) {
	m := pickerModel{profiles: profiles}

	p := tea.NewProgram(m)
	result, err := p.Run()
	if err != nil {
		return 0, false, err
	}

	final := result.(pickerModel)
	if !final.picked || final.chosen == pickerQuit {
		return 0, false, nil
	}
	return final.chosen, true, nil
}
