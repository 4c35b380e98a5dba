package viz

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/voltlab/voltsim/internal/solver"
)

type TickMsg time.Time

// Playback replays a solved trajectory frame by frame.
type Playback struct {
	model    string
	states   []string
	sol      *solver.Solution
	frame    int
	selected int
	running  bool
	fps      int
}

func NewPlayback(model string, states []string, sol *solver.Solution, fps int) Playback {
	if fps <= 0 {
		fps = 30
	}
	return Playback{
		model:   model,
		states:  states,
		sol:     sol,
		frame:   1,
		running: true,
		fps:     fps,
	}
}

func (p Playback) tick() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(p.fps), func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (p Playback) Init() tea.Cmd {
	return p.tick()
}

func (p Playback) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return p, tea.Quit
		case " ":
			p.running = !p.running
		case "r":
			p.frame = 1
		case "tab":
			p.selected = (p.selected + 1) % len(p.sol.Y)
		case "[":
			if p.frame > 1 {
				p.frame--
			}
		case "]":
			if p.frame < len(p.sol.T) {
				p.frame++
			}
		}
	case TickMsg:
		if p.running && p.frame < len(p.sol.T) {
			p.frame++
		}
		return p, p.tick()
	}
	return p, nil
}

func (p Playback) View() string {
	series := p.sol.Y[p.selected][:p.frame]
	name := fmt.Sprintf("y%d", p.selected)
	if p.selected < len(p.states) {
		name = p.states[p.selected]
	}

	t := p.sol.T[p.frame-1]
	graph := graphStyle.Render(Plot(series, fmt.Sprintf("%s vs time", name)))

	stats := statsStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		Row("model", p.model),
		Row("t", fmt.Sprintf("%.4f", t)),
		Row(name, fmt.Sprintf("%.6f", series[len(series)-1])),
		Row("frame", fmt.Sprintf("%d/%d", p.frame, len(p.sol.T))),
	))

	help := helpStyle.Render("space pause | [ ] scrub | tab state | r restart | q quit")

	return lipgloss.JoinVertical(lipgloss.Left, Header("voltsim "+p.model), graph, stats, help)
}
