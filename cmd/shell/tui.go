package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-bridge/bridge"
	"github.com/wippyai/wasm-bridge/config"
	"github.com/wippyai/wasm-bridge/event"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	outStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	inStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#98FB98"))

	readyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// sampleScene is sent by the scene key.
var sampleScene = map[string]any{
	"palette": map[string]any{"sky": "#1d2b53", "ground": "#7e2553", "accent": "#ff004d"},
	"camera":  map[string]any{"fov": 60, "distance": 4.5},
}

const inboundBuffer = 256

func newTUICmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive shell window",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), *cfg)
		},
	}
}

type shellState int

const (
	stateInitializing shellState = iota
	stateReady
	stateFailed
)

type shellModel struct {
	ctx      context.Context
	err      error
	session  *session
	bridge   bridge.Bridge
	inbound  chan event.Event
	cfg      config.Config
	lines    []string
	viewport viewport.Model
	spinner  spinner.Model
	debugIdx int
	state    shellState
	sized    bool
}

type readyMsg struct {
	err     error
	session *session
	bridge  bridge.Bridge
}

type inboundMsg event.Event

func newShellModel(ctx context.Context, cfg config.Config) *shellModel {
	idx := 0
	if mode, err := cfg.DebugMode(); err == nil {
		for i, d := range event.DebugModes {
			if d == mode {
				idx = i
			}
		}
	}
	return &shellModel{
		debugIdx: idx,
		ctx:      ctx,
		cfg:      cfg,
		inbound:  make(chan event.Event, inboundBuffer),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		viewport: viewport.New(80, 20),
	}
}

func (m *shellModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.open)
}

func (m *shellModel) open() tea.Msg {
	s, err := openSession(m.ctx, m.cfg)
	if err != nil {
		return readyMsg{err: err}
	}
	b, err := s.frame.Ready(m.ctx)
	return readyMsg{session: s, bridge: b, err: err}
}

func (m *shellModel) waitInbound() tea.Msg {
	return inboundMsg(<-m.inbound)
}

func (m *shellModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.session != nil {
				m.session.Close(context.Background())
			}
			return m, tea.Quit

		case "d":
			if m.state == stateReady {
				m.debugIdx = (m.debugIdx + 1) % len(event.DebugModes)
				ev, err := event.NewDebugRayMarch(event.DebugModes[m.debugIdx])
				m.send(ev, err)
			}

		case "t":
			if m.state == stateReady {
				m.send(event.NewTrigger(), nil)
			}

		case "s":
			if m.state == stateReady {
				m.send(event.NewViewModel(sampleScene), nil)
			}
		}

	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-6, 3)
		m.sized = true

	case readyMsg:
		m.session = msg.session
		if msg.err != nil {
			log.Error("bridge failed to initialize", zap.Error(msg.err))
			m.err = msg.err
			m.state = stateFailed
			return m, nil
		}
		m.bridge = msg.bridge
		m.state = stateReady
		m.bridge.SubscribeInbound(func(ev event.Event) {
			select {
			case m.inbound <- ev:
			default:
			}
		})
		m.log(readyStyle.Render("ready ") + m.session.frame.ID())
		return m, m.waitInbound

	case inboundMsg:
		m.log(inStyle.Render("← ") + event.Event(msg).String())
		return m, m.waitInbound

	case spinner.TickMsg:
		if m.state != stateInitializing {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *shellModel) send(ev event.Event, err error) {
	if err == nil {
		err = m.bridge.EnqueueOutbound(ev)
	}
	if err != nil {
		m.log(errorStyle.Render("✗ ") + err.Error())
		return
	}
	m.log(outStyle.Render("→ ") + ev.String())
}

func (m *shellModel) log(line string) {
	m.lines = append(m.lines, time.Now().Format("15:04:05.000")+" "+line)
	m.viewport.SetContent(strings.Join(m.lines, "\n"))
	m.viewport.GotoBottom()
}

func (m *shellModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Bridge Shell"))
	b.WriteString(" ")
	b.WriteString(m.cfg.ModulePath)
	b.WriteString("\n\n")

	switch m.state {
	case stateInitializing:
		b.WriteString(m.spinner.View())
		b.WriteString(" initializing foreign module...\n\n")
		b.WriteString(helpStyle.Render("q quit"))
		return b.String()

	case stateFailed:
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n\nThe shell keeps running without rendering. Press q to quit.")
		return b.String()
	}

	b.WriteString(fmt.Sprintf("debug: %s\n", event.DebugModes[m.debugIdx]))
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("d debug mode • t trigger • s scene • ↑/↓ scroll • q quit"))
	return b.String()
}

func runTUI(ctx context.Context, cfg config.Config) error {
	p := tea.NewProgram(newShellModel(ctx, cfg), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
