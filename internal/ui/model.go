package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fiddlekit/fiddletune/internal/tuner"
	"github.com/fiddlekit/fiddletune/internal/tuning"
)

// meterHalfWidth is the number of meter cells on each side of center;
// meterRangeCents is the deviation that pegs the needle.
const (
	meterHalfWidth  = 20
	meterRangeCents = 50.0
)

var (
	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			PaddingLeft(2).
			PaddingRight(2).
			MarginBottom(1)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#CCCCCC"))

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	unselectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Padding(0, 1)

	statusStyles = map[tuning.Status]lipgloss.Style{
		tuning.StatusFlat:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5FAFFF")),
		tuning.StatusInTune: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5FFF87")),
		tuning.StatusSharp:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF5F5F")),
	}
)

// ResultMsg carries one tuning reading into the model.
type ResultMsg tuning.Result

// ListeningStoppedMsg signals that the engine stopped (manually or by
// its auto-stop timer) and no more results will arrive.
type ListeningStoppedMsg struct{}

type toneDoneMsg struct{ err error }

// Model is the terminal front end. It displays the engine's latest
// reading and owns the listening toggle and string selection keys.
type Model struct {
	engine   *tuner.Engine
	playTone func(tuning.String) error

	results   <-chan tuning.Result
	current   tuning.String
	latest    *tuning.Result
	listening bool
	status    string
	width     int
	height    int
}

// NewModel wraps a started engine. playTone plays the reference tone
// for a string; it may block and runs on its own goroutine.
func NewModel(engine *tuner.Engine, playTone func(tuning.String) error) Model {
	return Model{
		engine:    engine,
		playTone:  playTone,
		results:   engine.Results(),
		current:   engine.CurrentString(),
		listening: engine.IsListening(),
		status:    "listening...",
	}
}

// waitForResult blocks on the results channel and converts what
// arrives into a message.
func waitForResult(results <-chan tuning.Result) tea.Cmd {
	return func() tea.Msg {
		res, ok := <-results
		if !ok {
			return ListeningStoppedMsg{}
		}
		return ResultMsg(res)
	}
}

// Init starts draining results if the engine is already listening.
func (m Model) Init() tea.Cmd {
	if m.listening && m.results != nil {
		return waitForResult(m.results)
	}
	return nil
}

// Update handles key presses and engine messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit

		case "g", "d", "a", "e":
			if s, ok := tuning.StringByName(strings.ToUpper(msg.String())); ok {
				m.current = s
				m.engine.SetString(s)
			}

		case " ":
			if m.listening {
				m.engine.Stop()
				m.listening = false
				m.status = "stopped"
				return m, nil
			}
			if err := m.engine.Start(); err != nil {
				m.status = fmt.Sprintf("error: %v", err)
				return m, nil
			}
			m.listening = true
			m.status = "listening..."
			m.results = m.engine.Results()
			return m, waitForResult(m.results)

		case "p":
			if m.playTone == nil {
				return m, nil
			}
			str := m.current
			play := m.playTone
			m.status = fmt.Sprintf("playing %s (%.2f Hz)", str.Name, str.Frequency)
			return m, func() tea.Msg {
				return toneDoneMsg{err: play(str)}
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case ResultMsg:
		res := tuning.Result(msg)
		m.latest = &res
		return m, waitForResult(m.results)

	case ListeningStoppedMsg:
		m.listening = false
		m.status = "stopped"

	case toneDoneMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("tone error: %v", msg.err)
		} else if m.listening {
			m.status = "listening..."
		} else {
			m.status = "stopped"
		}
	}

	return m, nil
}

// View renders the tuner screen.
func (m Model) View() string {
	s := titleStyle.Render("FiddleTune")
	s += "\n"

	var row []string
	for _, str := range tuning.Strings {
		style := unselectedStyle
		if str.Name == m.current.Name {
			style = selectedStyle
		}
		row = append(row, style.Render(str.Name))
	}
	s += lipgloss.JoinHorizontal(lipgloss.Top, row...)
	s += "\n\n"

	if m.latest != nil {
		s += fmt.Sprintf("  %.2f Hz  (target %.2f Hz)\n\n", m.latest.Frequency, m.current.Frequency)
		s += "  " + renderMeter(m.latest.Cents) + "\n\n"
		verdict := statusStyles[m.latest.Status].Render(strings.ToUpper(m.latest.Status.String()))
		s += fmt.Sprintf("  %s  %+.1f cents\n", verdict, m.latest.Cents)
	} else {
		s += infoStyle.Render("  Bow a string...") + "\n"
	}

	s += "\n"
	s += infoStyle.Render("  " + m.status)
	s += "\n\n"
	s += infoStyle.Render("  g/d/a/e select string · space start/stop · p play tone · q quit")
	return s
}

func renderMeter(cents float64) string {
	pos := int(cents / meterRangeCents * meterHalfWidth)
	if pos > meterHalfWidth {
		pos = meterHalfWidth
	}
	if pos < -meterHalfWidth {
		pos = -meterHalfWidth
	}

	cells := make([]rune, 2*meterHalfWidth+1)
	for i := range cells {
		cells[i] = '─'
	}
	cells[meterHalfWidth] = '┼'
	cells[meterHalfWidth+pos] = '●'
	return "♭ " + string(cells) + " ♯"
}
