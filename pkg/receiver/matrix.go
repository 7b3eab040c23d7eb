package receiver

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

const resetPulse = 250 * time.Millisecond

// Matrix is a finger display driven by a microcontroller on a serial
// port. Each byte written is latched onto the LED matrix; toggling DTR
// resets the controller.
type Matrix struct {
	port serial.Port
	name string
}

// OpenMatrix opens the display on port at baud.
func OpenMatrix(port string, baud int) (*Matrix, error) {
	if baud <= 0 {
		baud = 9600
	}
	p, err := serial.Open(port, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("open matrix port %s: %w", port, err)
	}
	return &Matrix{port: p, name: port}, nil
}

// WriteByte latches b onto the display.
func (m *Matrix) WriteByte(b byte) error {
	n, err := m.port.Write([]byte{b})
	if err != nil {
		return fmt.Errorf("write %s: %w", m.name, err)
	}
	if n != 1 {
		return fmt.Errorf("write %s: short write", m.name)
	}
	return nil
}

// Reset holds the controller in reset briefly and waits for it to boot.
func (m *Matrix) Reset() error {
	if err := m.port.SetDTR(false); err != nil {
		return fmt.Errorf("reset %s: %w", m.name, err)
	}
	time.Sleep(resetPulse)
	if err := m.port.SetDTR(true); err != nil {
		return fmt.Errorf("reset %s: %w", m.name, err)
	}
	time.Sleep(resetPulse)
	return m.port.ResetInputBuffer()
}

// Close closes the serial port.
func (m *Matrix) Close() error {
	return m.port.Close()
}
