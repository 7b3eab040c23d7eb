package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/gwillem/leapservo/pkg/leap"
	"github.com/gwillem/leapservo/pkg/relay"
	"github.com/gwillem/leapservo/pkg/servo"
	"github.com/gwillem/leapservo/pkg/teleop"
)

type TrackCommand struct {
	Hz       int    `long:"hz" description:"Tracking frequency (overrides --interval)"`
	Interval int    `long:"interval" description:"Tracking period in milliseconds (overrides config)"`
	Channel  string `long:"channel" description:"Channel name (overrides config)"`
	Sensor   string `long:"sensor" description:"Leap Motion service URL (overrides config)"`
	Listen   string `long:"listen" description:"Relay listen address (overrides config)"`
	Headless bool   `long:"headless" description:"Run without the terminal UI"`
	LogFile  string `long:"log-file" default:"leapservo.log" description:"Log destination while the UI is shown"`
}

const (
	headerHeight = 2 // title + blank line
	legendHeight = 2 // legend row + blank
	fingerHeight = 2 // finger row + blank
	footerHeight = 7 // log box height
	maxLogs      = 5 // number of log messages to show
	borderSize   = 2 // chart border
)

// Channel colors - distinct colors for each servo output
var channelColors = map[servo.Channel]string{
	servo.LeftYaw:    "196", // red
	servo.LeftPitch:  "208", // orange
	servo.RightYaw:   "46",  // green
	servo.RightPitch: "51",  // cyan
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	bitOnStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	bitOffStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
)

type trackModel struct {
	ctrl       *teleop.Controller
	sensor     *leap.Client
	chart      *streamlinechart.Model
	width      int      // terminal width
	height     int      // terminal height
	logs       []string // last N log messages
	quitting   bool
	lastPulses map[servo.Channel]int // freeze the chart while nothing moves
	fingers    uint8
	lastErr    error
}

func (m *trackModel) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

// hasMovement checks if any pulse changed since the last state
func (m *trackModel) hasMovement(pulses map[servo.Channel]int) bool {
	if m.lastPulses == nil {
		return true
	}
	for ch, p := range pulses {
		if last, ok := m.lastPulses[ch]; !ok || p != last {
			return true
		}
	}
	return false
}

// Messages from the controller
type stateMsg teleop.State
type logMsg string

func waitForState(ctrl *teleop.Controller) tea.Cmd {
	return func() tea.Msg {
		return stateMsg(<-ctrl.States())
	}
}

func waitForLog(ctrl *teleop.Controller) tea.Cmd {
	return func() tea.Msg {
		return logMsg(<-ctrl.Logs())
	}
}

// chartSize calculates the size of the chart based on terminal dimensions
func (m *trackModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 20
	}
	width = m.width - borderSize - 2
	if width < 40 {
		width = 40
	}
	height = m.height - headerHeight - legendHeight - fingerHeight - footerHeight - borderSize
	if height < 10 {
		height = 10
	}
	return width, height
}

func (m *trackModel) resizeChart() {
	w, h := m.chartSize()
	m.chart.Resize(w, h)
}

func initialTrackModel(ctrl *teleop.Controller, sensor *leap.Client, cal servo.Calibration) trackModel {
	lo := float64(cal.YawPWM(0))
	if p := float64(cal.PitchPWM(0)); p < lo {
		lo = p
	}
	hi := float64(cal.YawPWM(cal.Range.Span()))
	if p := float64(cal.PitchPWM(cal.Range.Span())); p > hi {
		hi = p
	}
	chart := streamlinechart.New(80, 20,
		streamlinechart.WithYRange(lo, hi),
	)

	for _, ch := range servo.AllChannels() {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(channelColors[ch]))
		chart.SetDataSetStyles(string(ch), runes.ThinLineStyle, style)
	}

	return trackModel{
		ctrl:   ctrl,
		sensor: sensor,
		chart:  &chart,
	}
}

func (m trackModel) Init() tea.Cmd {
	return tea.Batch(
		waitForState(m.ctrl),
		waitForLog(m.ctrl),
	)
}

func (m trackModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeChart()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case stateMsg:
		state := teleop.State(msg)
		m.lastErr = state.Error
		if len(state.Commands) > 0 {
			pulses := servo.Pulses(state.Commands)
			if m.hasMovement(pulses) {
				for ch, p := range pulses {
					m.chart.PushDataSet(string(ch), float64(p))
				}
				m.chart.DrawAll()
				m.lastPulses = pulses
			}
			m.fingers = servo.CombineFingers(state.Commands)
		}
		return m, waitForState(m.ctrl)

	case logMsg:
		m.addLog(string(msg))
		return m, waitForLog(m.ctrl)
	}

	return m, nil
}

func (m trackModel) View() string {
	if m.quitting {
		return "Tracking stopped.\n"
	}

	var sb strings.Builder

	// Header
	published, failures := m.ctrl.Stats()
	sb.WriteString(titleStyle.Render("leapservo track"))
	sb.WriteString(fmt.Sprintf(" - %s every %s", m.ctrl.Channel(), m.ctrl.Interval()))
	sb.WriteString(statusStyle.Render(fmt.Sprintf("  frames %d  sent %d  failed %d",
		m.sensor.Frames(), published, failures)))
	if errors.Is(m.lastErr, servo.ErrSensorUnavailable) {
		sb.WriteString(statusStyle.Render("  [no sensor]"))
	}
	sb.WriteString("\n\n")

	// Chart
	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")

	sb.WriteString(renderLegend())
	sb.WriteString("\n")
	sb.WriteString(renderFingers(m.fingers))
	sb.WriteString("\n\n")

	// Log box
	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(m.width - 4).
		Foreground(lipgloss.Color("9"))

	var logLines string
	if len(m.logs) == 0 {
		logLines = statusStyle.Render("Press 'q' to quit")
	} else {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")

	return sb.String()
}

func renderLegend() string {
	var items []string
	for _, ch := range servo.AllChannels() {
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(channelColors[ch])).Bold(true)
		items = append(items, colorStyle.Render("━━")+" "+string(ch))
	}
	return strings.Join(items, "  ")
}

// renderFingers draws the combined finger byte, right nibble first.
func renderFingers(b uint8) string {
	var sb strings.Builder
	sb.WriteString(statusStyle.Render("fingers "))
	for bit := 7; bit >= 0; bit-- {
		if bit == 3 {
			sb.WriteString(" ")
		}
		if b&(1<<bit) != 0 {
			sb.WriteString(bitOnStyle.Render("●"))
		} else {
			sb.WriteString(bitOffStyle.Render("○"))
		}
	}
	sb.WriteString(statusStyle.Render(fmt.Sprintf("  0x%02X", b)))
	return sb.String()
}

func (c *TrackCommand) apply(cfg *servo.Config) {
	if c.Interval > 0 {
		cfg.PollIntervalMS = c.Interval
	}
	if c.Hz > 0 {
		cfg.PollIntervalMS = 1000 / c.Hz
	}
	if c.Channel != "" {
		cfg.Channel = c.Channel
	}
	if c.Sensor != "" {
		cfg.Sensor.URL = c.Sensor
	}
	if c.Listen != "" {
		cfg.Relay.Listen = c.Listen
	}
}

func (c *TrackCommand) Execute(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	c.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := newLogger(os.Stderr)
	if !c.Headless {
		f, err := os.OpenFile(c.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		logger.SetOutput(f)
	}

	sensor := leap.NewClient(cfg.Sensor.URL, logger)
	hub := relay.NewHub(logger)

	ctrl, err := teleop.NewController(teleop.Config{
		Sensor:      sensor,
		Publisher:   hub,
		Channel:     cfg.Channel,
		Interval:    cfg.PollInterval(),
		Calibration: cfg.Calibration,
		Park:        cfg.Park,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("create controller: %w", err)
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The hub outlives the controller so the park message still reaches
	// subscribers.
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	ctrlCtx, stopCtrl := context.WithCancel(sigCtx)
	defer stopCtrl()

	// hubDone stays nil when the relay is not served
	var hubDone chan error
	if cfg.Relay.Listen != "" {
		hubDone = make(chan error, 1)
		go func() { hubDone <- hub.ListenAndServe(hubCtx, cfg.Relay.Listen) }()
	}
	go func() {
		if err := sensor.Run(ctrlCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.WithError(err).Error("sensor client")
		}
	}()

	ctrlDone := make(chan error, 1)
	go func() { ctrlDone <- ctrl.Start(ctrlCtx) }()

	if c.Headless {
		logger.WithFields(logrus.Fields{
			"channel":  cfg.Channel,
			"interval": cfg.PollInterval(),
			"sensor":   cfg.Sensor.URL,
		}).Info("tracking, press Ctrl-C to stop")
		select {
		case <-sigCtx.Done():
		case err := <-hubDone:
			stopCtrl()
			<-ctrlDone
			return err
		}
	} else {
		p := tea.NewProgram(initialTrackModel(ctrl, sensor, cfg.Calibration), tea.WithAltScreen(), tea.WithContext(sigCtx))
		if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			logger.WithError(err).Error("terminal ui")
		}
	}

	stopCtrl()
	if err := <-ctrlDone; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	published, failures := ctrl.Stats()
	logger.WithFields(logrus.Fields{
		"published": published,
		"failures":  failures,
		"frames":    sensor.Frames(),
	}).Info("tracking stopped")

	stopHub()
	if hubDone == nil {
		return nil
	}
	if err := <-hubDone; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
