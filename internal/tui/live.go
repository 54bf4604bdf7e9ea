// Package tui renders a closed-loop tracking run in the terminal: a
// bird's-eye view of the path and vehicle, the predicted trajectory, and
// scrolling error graphs.
package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/open-adkit/latctl/internal/sim"
	"github.com/open-adkit/latctl/internal/traj"
)

const (
	canvasWidth  = 72
	canvasHeight = 18
	// viewAhead/viewBehind bound the world window around the vehicle, in
	// meters.
	viewAhead   = 45.0
	viewBehind  = 15.0
	historySize = 240
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	canvasStyle = lipgloss.NewStyle().Padding(0, 2)
	statsStyle  = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("240")).Padding(0, 2).Width(38)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(14)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

type TickMsg time.Time

// Model replays a completed run at control-period speed.
type Model struct {
	title   string
	records []sim.Record
	path    []traj.Point
	metrics map[string]float64

	playHead int
	running  bool
	showHelp bool
	speedup  int
}

func NewModel(title string, records []sim.Record, path []traj.Point, metrics map[string]float64) Model {
	return Model{
		title:   title,
		records: records,
		path:    path,
		metrics: metrics,
		running: true,
		speedup: 1,
	}
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/30, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.playHead = 0
			m.running = true
		case "[":
			m.playHead = max(0, m.playHead-30)
		case "]":
			m.playHead = min(len(m.records)-1, m.playHead+30)
		case "+", "=":
			m.speedup = min(8, m.speedup*2)
		case "-", "_":
			m.speedup = max(1, m.speedup/2)
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if m.running {
			m.playHead += m.speedup
			if m.playHead >= len(m.records) {
				m.playHead = len(m.records) - 1
				m.running = false
			}
		}
		return m, tick()
	}
	return m, nil
}

func (m Model) View() string {
	if len(m.records) == 0 {
		return "no records\n"
	}
	rec := m.records[m.playHead]

	header := headerStyle.Render(fmt.Sprintf("latctl  %s  t=%.2fs", m.title, rec.Time))
	body := lipgloss.JoinHorizontal(lipgloss.Top,
		canvasStyle.Render(m.renderCanvas(rec)),
		statsStyle.Render(m.renderStats(rec)),
	)
	graph := graphStyle.Render(m.renderGraph())

	out := lipgloss.JoinVertical(lipgloss.Left, header, body, graph)
	if m.showHelp {
		out += "\n" + helpStyle.Render("space pause  r restart  [ ] scrub  +/- speed  ? help  q quit")
	}
	return out + "\n"
}

// renderCanvas draws the world window around the vehicle: the reference
// path, the driven trail, the predicted trajectory and the vehicle
// itself.
func (m Model) renderCanvas(rec sim.Record) string {
	canvas := make([][]rune, canvasHeight)
	for i := range canvas {
		canvas[i] = make([]rune, canvasWidth)
		for j := range canvas[i] {
			canvas[i][j] = ' '
		}
	}

	// Window axes follow the vehicle heading so the view drives forward.
	cosY := math.Cos(rec.Pose.Yaw)
	sinY := math.Sin(rec.Pose.Yaw)
	project := func(x, y float64) (int, int, bool) {
		dx := x - rec.Pose.X
		dy := y - rec.Pose.Y
		fwd := dx*cosY + dy*sinY
		lat := -dx*sinY + dy*cosY
		if fwd < -viewBehind || fwd > viewAhead || math.Abs(lat) > 12 {
			return 0, 0, false
		}
		cx := int((fwd + viewBehind) / (viewAhead + viewBehind) * float64(canvasWidth-1))
		cy := canvasHeight/2 - int(lat/12*float64(canvasHeight/2-1))
		if cx < 0 || cx >= canvasWidth || cy < 0 || cy >= canvasHeight {
			return 0, 0, false
		}
		return cx, cy, true
	}

	for _, p := range m.path {
		if cx, cy, ok := project(p.X, p.Y); ok {
			canvas[cy][cx] = '·'
		}
	}
	for i := max(0, m.playHead-200); i < m.playHead; i++ {
		p := m.records[i].Pose
		if cx, cy, ok := project(p.X, p.Y); ok {
			canvas[cy][cx] = 'o'
		}
	}
	for _, p := range rec.Predicted {
		if cx, cy, ok := project(p.X, p.Y); ok {
			canvas[cy][cx] = '*'
		}
	}
	if cx, cy, ok := project(rec.Pose.X, rec.Pose.Y); ok {
		canvas[cy][cx] = '>'
	}

	rows := make([]string, canvasHeight)
	for i, row := range canvas {
		rows[i] = string(row)
	}
	return strings.Join(rows, "\n")
}

func (m Model) renderStats(rec sim.Record) string {
	var b strings.Builder
	line := func(label string, format string, args ...any) {
		b.WriteString(labelStyle.Render(label))
		b.WriteString(valueStyle.Render(fmt.Sprintf(format, args...)))
		b.WriteString("\n")
	}
	line("lateral err", "%+.3f m", rec.LatErr)
	line("heading err", "%+.3f rad", rec.YawErr)
	line("steer", "%+.3f rad", rec.Steer)
	line("steer cmd", "%+.3f rad", rec.SteerCmd)
	line("steer rate", "%+.3f rad/s", rec.SteerRate)
	if rec.Failed {
		b.WriteString(failStyle.Render("cycle failed, holding command"))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	for name, val := range m.metrics {
		line(name, "%.4f", val)
	}
	return b.String()
}

func (m Model) renderGraph() string {
	start := max(0, m.playHead-historySize)
	if m.playHead-start < 2 {
		return ""
	}
	data := make([]float64, 0, m.playHead-start)
	for i := start; i <= m.playHead; i++ {
		data = append(data, m.records[i].LatErr)
	}
	return asciigraph.Plot(data,
		asciigraph.Height(7),
		asciigraph.Width(100),
		asciigraph.Caption("lateral error (m)"),
	)
}
