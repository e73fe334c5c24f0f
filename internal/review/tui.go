// Package review renders a dry-run cycle in an interactive terminal UI so
// profiles and selectors can be checked before anything is delivered.
package review

import (
	"fmt"
	"os/exec"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/jobscout/internal/model"
)

// Lines per posting in the list view (title + subtitle + blank separator).
const postingItemHeight = 3

type viewState int

const (
	viewList viewState = iota
	viewDetail
)

const (
	paneBatch = iota
	paneCycle
)

var (
	activeBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("39")) // bright blue

	inactiveBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("240")) // dim gray

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	activeHeaderStyle = headerStyle.
				Foreground(lipgloss.Color("39"))

	inactiveHeaderStyle = headerStyle.
				Foreground(lipgloss.Color("240"))

	statusBarStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236"))

	titleStyle = lipgloss.NewStyle().
			Bold(true)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	selectedTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")). // bright white
				Background(lipgloss.Color("24"))  // dark blue bg

	selectedSubtitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252")).
				Background(lipgloss.Color("24"))

	labelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			Width(16)

	valueStyle = lipgloss.NewStyle()

	detailTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				MarginBottom(1)

	dividerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true)

	bodyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))
)

type reviewModel struct {
	result        model.CycleResult
	batchViewport viewport.Model
	cycleViewport viewport.Model
	activePane    int
	cursor        int
	width         int
	height        int
	ready         bool

	// Detail view state
	view            viewState
	detail          model.Posting
	detailViewport  viewport.Model
	showDescription bool

	openURL func(string)
}

func newReviewModel(result model.CycleResult) reviewModel {
	return reviewModel{result: result, openURL: openURL}
}

func (m reviewModel) Init() tea.Cmd {
	return nil
}

func (m reviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recalcLayout()
		if m.view == viewDetail {
			m.detailViewport.Width = m.width - 4
			m.detailViewport.Height = m.height - 4
			m.detailViewport.SetContent(m.renderDetail())
		}
		return m, nil

	case tea.KeyMsg:
		if m.view == viewDetail {
			return m.updateDetailView(msg)
		}
		return m.updateListView(msg)
	}

	return m, nil
}

func (m reviewModel) updateListView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "tab", "left", "right":
		m.activePane = 1 - m.activePane
		m.recalcContent()
		return m, nil
	case "up", "k":
		if m.activePane == paneBatch {
			m.moveCursor(-1)
			return m, nil
		}
	case "down", "j":
		if m.activePane == paneBatch {
			m.moveCursor(1)
			return m, nil
		}
	case "enter":
		return m.openDetailView()
	}

	// Forward other keys (pgup/pgdn/home/end, and arrows in the cycle pane).
	var cmd tea.Cmd
	if m.activePane == paneBatch {
		m.batchViewport, cmd = m.batchViewport.Update(msg)
	} else {
		m.cycleViewport, cmd = m.cycleViewport.Update(msg)
	}
	return m, cmd
}

func (m reviewModel) updateDetailView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc", "backspace":
		m.view = viewList
		return m, nil
	case "o":
		m.openURL(m.detail.Link)
		return m, nil
	case "r":
		if m.detail.Description != "" {
			m.showDescription = !m.showDescription
			m.detailViewport.SetContent(m.renderDetail())
			m.detailViewport.SetYOffset(0)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.detailViewport, cmd = m.detailViewport.Update(msg)
	return m, cmd
}

func (m *reviewModel) moveCursor(delta int) {
	m.cursor = clamp(m.cursor+delta, 0, max(len(m.result.Batch)-1, 0))
	m.recalcContent()

	vp := &m.batchViewport
	top := m.cursor * postingItemHeight
	bottom := top + postingItemHeight - 1
	if top < vp.YOffset {
		vp.SetYOffset(top)
	} else if bottom >= vp.YOffset+vp.Height {
		vp.SetYOffset(bottom - vp.Height + 1)
	}
}

func (m reviewModel) openDetailView() (tea.Model, tea.Cmd) {
	if m.activePane != paneBatch || len(m.result.Batch) == 0 {
		return m, nil
	}

	m.view = viewDetail
	m.detail = m.result.Batch[m.cursor]
	m.showDescription = false
	m.detailViewport = viewport.New(m.width-4, m.height-4)
	m.detailViewport.SetContent(m.renderDetail())
	return m, nil
}

func (m *reviewModel) recalcLayout() {
	// 2 border chars per pane + 1 gap between panes.
	paneWidth := max((m.width-5)/2, 20)

	// Header (1 line) + border top/bottom (2) + status bar (1) = 4 lines overhead.
	paneHeight := max(m.height-4, 5)

	if !m.ready {
		m.batchViewport = viewport.New(paneWidth, paneHeight)
		m.cycleViewport = viewport.New(paneWidth, paneHeight)
		m.ready = true
	} else {
		m.batchViewport.Width = paneWidth
		m.batchViewport.Height = paneHeight
		m.cycleViewport.Width = paneWidth
		m.cycleViewport.Height = paneHeight
	}

	m.recalcContent()
}

func (m *reviewModel) recalcContent() {
	m.batchViewport.SetContent(renderPostings(m.result.Batch, m.cursor, m.activePane == paneBatch))
	m.cycleViewport.SetContent(renderCycle(m.result, m.cycleViewport.Width))
}

func (m reviewModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	if m.view == viewDetail {
		return m.viewDetail()
	}

	return m.viewList()
}

func (m reviewModel) viewList() string {
	paneWidth := m.batchViewport.Width

	batchHeader := fmt.Sprintf(" Would deliver (%d)", len(m.result.Batch))
	cycleHeader := fmt.Sprintf(" Cycle (%d source errors)", len(m.result.SourceErrors))

	batchHeaderSt, cycleHeaderSt := activeHeaderStyle, inactiveHeaderStyle
	batchBorder, cycleBorder := activeBorderStyle, inactiveBorderStyle
	if m.activePane == paneCycle {
		batchHeaderSt, cycleHeaderSt = inactiveHeaderStyle, activeHeaderStyle
		batchBorder, cycleBorder = inactiveBorderStyle, activeBorderStyle
	}

	headerRow := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(paneWidth+2).Render(batchHeaderSt.Render(batchHeader)),
		" ",
		lipgloss.NewStyle().Width(paneWidth+2).Render(cycleHeaderSt.Render(cycleHeader)),
	)

	panes := lipgloss.JoinHorizontal(lipgloss.Top,
		batchBorder.Width(paneWidth).Render(m.batchViewport.View()),
		" ",
		cycleBorder.Width(paneWidth).Render(m.cycleViewport.View()),
	)

	statusText := fmt.Sprintf(" %d fetched | %d irrelevant | %d duplicates | %d malformed    ←/→/Tab switch  ↑/↓ cursor  Enter detail  q quit",
		m.result.Fetched, m.result.Irrelevant, m.result.Duplicates, m.result.Malformed)
	statusBar := statusBarStyle.Width(m.width).Render(statusText)

	return headerRow + "\n" + panes + "\n" + statusBar
}

func (m reviewModel) viewDetail() string {
	title := detailTitleStyle.Render("Posting Details")

	content := activeBorderStyle.Width(m.width - 2).Render(m.detailViewport.View())

	statusText := " o open link  esc/backspace back  ↑/↓ scroll  q quit"
	if m.detail.Description != "" {
		statusText = " o open link  r desc  esc/backspace back  ↑/↓ scroll  q quit"
	}
	statusBar := statusBarStyle.Width(m.width).Render(statusText)

	return title + "\n" + content + "\n" + statusBar
}

func (m reviewModel) renderDetail() string {
	p := m.detail
	var b strings.Builder

	addField := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(labelStyle.Render(label))
		b.WriteString(valueStyle.Render(value))
		b.WriteByte('\n')
	}

	addField("Title", p.Title)
	addField("Location", p.Location)
	addField("Type", p.EmploymentType)
	addField("Source", p.Source)
	addField("Profile", p.Profile)
	if !p.DiscoveredAt.IsZero() {
		addField("Discovered", p.DiscoveredAt.Format("2006-01-02 15:04 MST"))
	}

	b.WriteByte('\n')
	addField("Link", p.Link)

	if p.Description != "" {
		wrapWidth := max(m.width-8, 20)
		b.WriteByte('\n')
		if m.showDescription {
			label := "── Description "
			b.WriteString(dividerStyle.Render(label+strings.Repeat("─", max(wrapWidth-len(label), 3))) + "\n\n")
			b.WriteString(bodyStyle.Render(wordWrap(p.Description, wrapWidth)) + "\n")
		} else {
			b.WriteString(hintStyle.Render("  press r to read the description") + "\n")
		}
	}

	return b.String()
}

func renderPostings(postings []model.Posting, cursor int, isActive bool) string {
	if len(postings) == 0 {
		return "  (nothing new)"
	}

	var b strings.Builder
	for i, p := range postings {
		titleSt, subtitleSt, prefix := titleStyle, subtitleStyle, "  "
		if isActive && i == cursor {
			titleSt, subtitleSt, prefix = selectedTitleStyle, selectedSubtitleStyle, "> "
		}

		b.WriteString(prefix)
		b.WriteString(titleSt.Render(p.Title))
		b.WriteByte('\n')

		location := p.Location
		if location == "" {
			location = "n/a"
		}
		b.WriteString(prefix)
		b.WriteString(subtitleSt.Render(fmt.Sprintf("%s · %s · %s", location, p.Source, p.Profile)))
		b.WriteByte('\n')

		if i < len(postings)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// renderCycle lists counters and per-source errors, sorted by key.
func renderCycle(res model.CycleResult, width int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "  cycle     %s\n", res.ID)
	fmt.Fprintf(&b, "  duration  %s\n", res.Duration().Round(time.Millisecond))
	if res.Err != nil {
		b.WriteString(errorStyle.Render("  ⚠ "+res.Err.Error()) + "\n")
	}

	if len(res.SourceErrors) == 0 {
		b.WriteString("\n  all sources responded\n")
		return b.String()
	}

	keys := make([]model.SourceKey, 0, len(res.SourceErrors))
	for k := range res.SourceErrors {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(x, y model.SourceKey) int {
		return strings.Compare(x.String(), y.String())
	})

	for _, k := range keys {
		b.WriteByte('\n')
		b.WriteString(titleStyle.Render("  "+k.String()) + "\n")
		b.WriteString(errorStyle.Render(wordWrap(res.SourceErrors[k].Error(), max(width-4, 20))) + "\n")
	}
	return b.String()
}

func wordWrap(text string, width int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if len(line)+1+len(w) <= width {
			line += " " + w
		} else {
			lines = append(lines, line)
			line = w
		}
	}
	lines = append(lines, line)
	return strings.Join(lines, "\n")
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// openURL opens url in the default system browser, fire-and-forget.
func openURL(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return
	}
	_ = cmd.Start()
}

// Run launches the split-pane review TUI over a dry-run cycle result.
func Run(result model.CycleResult) error {
	p := tea.NewProgram(newReviewModel(result), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
