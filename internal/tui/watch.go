package tui

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/flightline/aerogym/internal/env"
	"github.com/flightline/aerogym/internal/eval"
	"github.com/flightline/aerogym/internal/experiment"
	"github.com/flightline/aerogym/internal/geom"
	"github.com/flightline/aerogym/internal/sim"
)

var (
	cyan    = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white   = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim     = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	dimmer  = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	green   = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	yellow  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	magenta = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
	red     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// Options wires a watch session: the controller to drive, the policy that
// picks actions, and the scene geometry for the top-down canvas.
type Options struct {
	Ctrl      *env.Controller
	Policy    experiment.Policy
	Episodes  int
	MaxSteps  int
	Workspace eval.Workspace
	Goal      eval.Goal
	Ground    eval.GroundLimit
	Obstacles []sim.Box
}

type trailPoint struct {
	x, y  float64
	speed float64
}

type watchModel struct {
	opts Options

	episode int
	steps   int
	reward  float64
	obs     env.Observation
	reason  string
	returns []float64
	reasons []string
	trail   []trailPoint

	pendingReset bool
	paused       bool
	finished     bool
	err          error

	speed     float64
	fps       float64
	lastFrame time.Time

	width  int
	height int
}

func newWatch(opts Options) watchModel {
	if opts.MaxSteps < 1 {
		opts.MaxSteps = 500
	}
	return watchModel{
		opts:         opts,
		pendingReset: true,
		speed:        1.0,
		trail:        make([]trailPoint, 0, 100),
		width:        80,
		height:       24,
	}
}

func (m watchModel) Init() tea.Cmd { return tick() }

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(16*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tickMsg:
		if m.finished || m.err != nil {
			return m, nil
		}
		if !m.paused {
			now := time.Now()
			if !m.lastFrame.IsZero() {
				if dt := now.Sub(m.lastFrame).Seconds(); dt > 0 {
					m.fps = 1.0 / dt
				}
			}
			m.lastFrame = now
			steps := int(m.speed)
			if steps < 1 {
				steps = 1
			}
			for i := 0; i < steps; i++ {
				m.advance()
				if m.finished || m.err != nil {
					break
				}
			}
		}
		return m, tick()
	}
	return m, nil
}

func (m watchModel) handleKey(msg tea.KeyMsg) (watchModel, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case " ", "p":
		m.paused = !m.paused
	case "+", "=":
		m.speed = math.Min(m.speed*2, 16)
	case "-", "_":
		m.speed = math.Max(m.speed/2, 0.25)
	case "0":
		m.speed = 1.0
	case "r":
		if m.err != nil {
			return m, nil
		}
		wasFinished := m.finished
		m.restart()
		if wasFinished {
			return m, tea.Batch(tea.ClearScreen, tick())
		}
		return m, tea.ClearScreen
	}
	return m, nil
}

func (m *watchModel) restart() {
	m.episode = 0
	m.steps = 0
	m.reward = 0
	m.reason = ""
	m.returns = nil
	m.reasons = nil
	m.trail = m.trail[:0]
	m.pendingReset = true
	m.paused = false
	m.finished = false
	m.lastFrame = time.Time{}
}

// advance moves the session forward by one controller call: a reset when an
// episode boundary is pending, otherwise a single policy step.
func (m *watchModel) advance() {
	ctx := context.Background()
	if m.pendingReset {
		obs, err := m.opts.Ctrl.Reset(ctx)
		if err != nil {
			m.err = err
			return
		}
		if m.opts.Ctrl.Phase().Terminal() {
			// Initialisation failed; record the dead episode and move on.
			m.closeEpisode(m.opts.Ctrl.State().Reason)
			return
		}
		m.obs = obs
		m.trail = m.trail[:0]
		m.pendingReset = false
		return
	}

	res, err := m.opts.Ctrl.Step(ctx, m.opts.Policy.Action(m.obs))
	if err != nil {
		m.err = err
		return
	}
	m.reward += res.Reward
	m.steps++
	m.obs = res.Observation
	m.pushTrail()

	if res.Done {
		reason, _ := res.Info["reason"].(string)
		m.closeEpisode(reason)
		return
	}
	if m.steps >= m.opts.MaxSteps {
		m.closeEpisode("max_steps")
	}
}

func (m *watchModel) closeEpisode(reason string) {
	m.reason = reason
	m.returns = append(m.returns, m.reward)
	m.reasons = append(m.reasons, reason)
	m.reward = 0
	m.steps = 0
	m.episode++
	if m.episode >= m.opts.Episodes {
		m.finished = true
		return
	}
	m.pendingReset = true
}

func (m *watchModel) pushTrail() {
	p := m.obs.Pose.Position
	m.trail = append(m.trail, trailPoint{
		x:     p.X,
		y:     p.Y,
		speed: r3.Norm(m.obs.Velocity.Linear),
	})
	if len(m.trail) > 100 {
		m.trail = m.trail[1:]
	}
}

func (m watchModel) View() string {
	if m.err != nil {
		return fmt.Sprintf("\n   %s %v\n\n   %s\n",
			red.Render("error"), m.err, dim.Render("q quit"))
	}
	if m.finished {
		return m.viewFinished()
	}
	return m.viewLive()
}

func (m watchModel) viewLive() string {
	cw := m.width - 6
	ch := m.height - 12
	if cw < 50 {
		cw = 50
	}
	if ch < 10 {
		ch = 10
	}

	canvas := newCanvas(cw, ch)
	m.drawScene(canvas, cw, ch)

	var b strings.Builder

	statusIcon := green.Render("●")
	statusText := green.Render("running")
	if m.paused {
		statusIcon = yellow.Render("○")
		statusText = yellow.Render("paused")
	}
	speedTag := ""
	if m.speed != 1 {
		speedTag = "  " + magenta.Render(fmt.Sprintf("%gx", m.speed))
	}
	b.WriteString(fmt.Sprintf("\n   %s %s %s  %s%s  %s\n",
		statusIcon,
		cyan.Render(m.opts.Ctrl.Task().Name()),
		dim.Render(m.opts.Policy.Name()),
		statusText,
		speedTag,
		dim.Render(fmt.Sprintf("%.0ffps", m.fps))))

	barWidth := 36
	filled := int(float64(m.episode) / float64(m.opts.Episodes) * float64(barWidth))
	if filled > barWidth {
		filled = barWidth
	}
	bar := cyan.Render(strings.Repeat("━", filled)) + dimmer.Render(strings.Repeat("─", barWidth-filled))
	b.WriteString(fmt.Sprintf("   %s %s\n\n", bar,
		dim.Render(fmt.Sprintf("episode %d/%d", m.episode+1, m.opts.Episodes))))

	for _, row := range canvas {
		b.WriteString("   " + string(row) + "\n")
	}

	b.WriteString("\n" + m.altitudeLine())
	b.WriteString(m.stateLine())
	b.WriteString(fmt.Sprintf("   %s%s   %s%s",
		dim.Render("step "), white.Render(fmt.Sprintf("%d", m.steps)),
		dim.Render("reward "), white.Render(fmt.Sprintf("%.1f", m.reward))))
	if m.reason != "" {
		b.WriteString("   " + dim.Render("last ") + reasonTag(m.reason))
	}
	b.WriteString("\n")

	if len(m.returns) > 1 {
		b.WriteString(fmt.Sprintf("   %s %s  %s\n",
			dim.Render("returns"),
			cyan.Render(sparkline(m.returns, 24)),
			dim.Render(fmt.Sprintf("mean %.1f", mean(m.returns)))))
	}

	b.WriteString("\n" + dim.Render("   space pause  ± speed  r restart  q quit") + "\n")
	return b.String()
}

func (m watchModel) viewFinished() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("\n   %s %s  %s\n\n",
		green.Render("●"),
		cyan.Render(m.opts.Ctrl.Task().Name()),
		white.Render("run complete")))

	best := 0.0
	if len(m.returns) > 0 {
		best = m.returns[0]
		for _, v := range m.returns {
			if v > best {
				best = v
			}
		}
	}
	b.WriteString(fmt.Sprintf("   %s%s   %s%s   %s%s\n",
		dim.Render("episodes "), white.Render(fmt.Sprintf("%d", len(m.returns))),
		dim.Render("mean return "), white.Render(fmt.Sprintf("%.1f", mean(m.returns))),
		dim.Render("best "), white.Render(fmt.Sprintf("%.1f", best))))

	reached, collided, other := 0, 0, 0
	for _, r := range m.reasons {
		switch r {
		case "reached_goal":
			reached++
		case "collided":
			collided++
		default:
			other++
		}
	}
	b.WriteString(fmt.Sprintf("   %s %d reached   %s %d collided   %s %d other\n",
		green.Render("✓"), reached, red.Render("✗"), collided, yellow.Render("▪"), other))

	if len(m.returns) > 1 {
		b.WriteString(fmt.Sprintf("\n   %s %s\n",
			dim.Render("returns"), cyan.Render(sparkline(m.returns, 48))))
	}

	b.WriteString("\n" + dim.Render("   r restart  q quit") + "\n")
	return b.String()
}

func (m watchModel) altitudeLine() string {
	z := m.obs.Pose.Position.Z
	zr := m.opts.Workspace.Z
	span := zr.Max - zr.Min
	if span <= 0 {
		span = 1
	}
	filled, empty := gauge((z-zr.Min)/span, 20)
	fill := green
	if m.opts.Ground.TooClose(z) {
		fill = red
	}
	return fmt.Sprintf("   %s %s%s %s\n",
		dim.Render("alt"),
		fill.Render(strings.Repeat("█", filled)),
		dimmer.Render(strings.Repeat("░", empty)),
		white.Render(fmt.Sprintf("%.2fm", z)))
}

func (m watchModel) stateLine() string {
	p := m.obs.Pose.Position
	yaw := geom.Euler(m.obs.Pose.Orientation).Yaw
	v := r3.Norm(m.obs.Velocity.Linear)
	var sb strings.Builder
	sb.WriteString("   ")
	for _, pair := range [][2]string{
		{"x", fmt.Sprintf("%.2f", p.X)},
		{"y", fmt.Sprintf("%.2f", p.Y)},
		{"z", fmt.Sprintf("%.2f", p.Z)},
		{"yaw", fmt.Sprintf("%.2f", yaw)},
		{"|v|", fmt.Sprintf("%.2f", v)},
	} {
		sb.WriteString(dim.Render(pair[0] + "="))
		sb.WriteString(white.Render(pair[1]))
		sb.WriteString("  ")
	}
	return sb.String() + "\n"
}

func reasonTag(reason string) string {
	switch reason {
	case "reached_goal":
		return green.Render(reason)
	case "collided":
		return red.Render(reason)
	default:
		return yellow.Render(reason)
	}
}

// drawScene renders the workspace from above: obstacles, the goal with its
// epsilon ring, the velocity-graded trail and the vehicle with a heading
// tick.
func (m watchModel) drawScene(canvas [][]rune, w, h int) {
	toCol := func(x float64) int {
		span := m.opts.Workspace.X.Max - m.opts.Workspace.X.Min
		if span <= 0 {
			return 0
		}
		return int((x - m.opts.Workspace.X.Min) / span * float64(w-1))
	}
	toRow := func(y float64) int {
		span := m.opts.Workspace.Y.Max - m.opts.Workspace.Y.Min
		if span <= 0 {
			return 0
		}
		return (h - 1) - int((y-m.opts.Workspace.Y.Min)/span*float64(h-1))
	}

	for _, box := range m.opts.Obstacles {
		c1, c2 := toCol(box.Min.X), toCol(box.Max.X)
		r1, r2 := toRow(box.Max.Y), toRow(box.Min.Y)
		for r := r1; r <= r2; r++ {
			for c := c1; c <= c2; c++ {
				set(canvas, c, r, '░', w, h)
			}
		}
	}

	goal := m.opts.Goal.Pose.Position
	if eps := m.opts.Goal.Epsilon; eps > 0 {
		for i := 0; i < 24; i++ {
			a := float64(i) / 24 * 2 * math.Pi
			set(canvas, toCol(goal.X+eps*math.Cos(a)), toRow(goal.Y+eps*math.Sin(a)), '·', w, h)
		}
	}
	set(canvas, toCol(goal.X), toRow(goal.Y), '◎', w, h)

	maxV := 0.0
	for _, pt := range m.trail {
		if pt.speed > maxV {
			maxV = pt.speed
		}
	}
	for _, pt := range m.trail {
		set(canvas, toCol(pt.x), toRow(pt.y), trailChar(pt.speed, maxV), w, h)
	}

	p := m.obs.Pose.Position
	dx, dy := toCol(p.X), toRow(p.Y)
	yaw := geom.Euler(m.obs.Pose.Orientation).Yaw
	nx := dx + int(math.Round(3 * math.Cos(yaw)))
	ny := dy - int(math.Round(3 * math.Sin(yaw)))
	drawLine(canvas, w, h, dx, dy, nx, ny, '·')
	set(canvas, nx, ny, '▸', w, h)
	set(canvas, dx, dy, '╋', w, h)
}

func mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range data {
		sum += v
	}
	return sum / float64(len(data))
}

// Watch runs the live view until the user quits. It drives the controller
// itself, one reset or step per frame tick scaled by the speed setting.
func Watch(opts Options) error {
	if opts.Ctrl == nil {
		return fmt.Errorf("tui: nil controller")
	}
	if opts.Policy == nil {
		return fmt.Errorf("tui: nil policy")
	}
	if opts.Episodes < 1 {
		return fmt.Errorf("tui: episodes must be positive, got %d", opts.Episodes)
	}
	p := tea.NewProgram(newWatch(opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
