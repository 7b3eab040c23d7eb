package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"go.bug.st/serial"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	subHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type SetupCommand struct{}

func (c *SetupCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("leapservo setup"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━"))
	fmt.Println()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ports := listPorts()
	if len(ports) == 0 {
		fmt.Println(dimStyle.Render("No serial ports found, receiver outputs stay disabled."))
	}

	interval := strconv.Itoa(cfg.PollIntervalMS)
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Channel").
				Description("Name shared by tracker and receivers").
				Value(&cfg.Channel).
				Validate(notEmpty),
			huh.NewInput().
				Title("Poll interval (ms)").
				Value(&interval).
				Validate(positiveInt),
			huh.NewInput().
				Title("Leap Motion service").
				Value(&cfg.Sensor.URL).
				Validate(notEmpty),
			huh.NewConfirm().
				Title("Park servos when tracking stops?").
				Value(&cfg.Park),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Relay listen address").
				Description("Where track serves subscribers").
				Value(&cfg.Relay.Listen),
			huh.NewInput().
				Title("Relay URL").
				Description("Where receive connects").
				Value(&cfg.Relay.URL).
				Validate(notEmpty),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Finger matrix port").
				Options(portOptions(ports)...).
				Value(&cfg.Receiver.MatrixPort),
			huh.NewSelect[string]().
				Title("Servo bus port").
				Options(portOptions(ports)...).
				Value(&cfg.Receiver.ServoPort),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Println()
		return nil
	}
	cfg.PollIntervalMS, _ = strconv.Atoi(interval)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := cfg.SaveTo(opts.Config); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Println(successStyle.Render("Setup complete!"))
	fmt.Printf("Configuration saved to %s\n", opts.Config)
	fmt.Println()
	fmt.Println("Start tracking with:  " + headerStyle.Render("leapservo track"))
	if cfg.HasReceiverHardware() {
		fmt.Println("On the servo side run: " + headerStyle.Render("leapservo receive"))
	}
	return nil
}

func listPorts() []string {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil
	}
	var out []string
	for _, p := range ports {
		// Skip Bluetooth ports on macOS
		if strings.Contains(p, "Bluetooth") {
			continue
		}
		out = append(out, p)
	}
	return out
}

func portOptions(ports []string) []huh.Option[string] {
	options := []huh.Option[string]{huh.NewOption("None", "")}
	for _, p := range ports {
		options = append(options, huh.NewOption(p, p))
	}
	return options
}

func notEmpty(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("required")
	}
	return nil
}

func positiveInt(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return fmt.Errorf("must be a positive number")
	}
	return nil
}
