package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"go.bug.st/serial/enumerator"
)

type PortsCommand struct{}

func (c *PortsCommand) Execute(args []string) error {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return fmt.Errorf("list ports: %w", err)
	}
	if len(ports) == 0 {
		fmt.Println(dimStyle.Render("No serial ports found."))
		return nil
	}

	rows := make([][]string, 0, len(ports))
	for _, p := range ports {
		usb := ""
		if p.IsUSB {
			usb = p.VID + ":" + p.PID
		}
		rows = append(rows, []string{p.Name, usb, p.SerialNumber, p.Product})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Port", "USB", "Serial", "Product").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			if col == 0 {
				return subHeaderStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	fmt.Println(t.Render())
	return nil
}
