package servo

import (
	"context"
	"fmt"

	"github.com/hipsterbrown/feetech-servo/feetech"
)

// Rig drives the hand servos on a feetech serial bus.
type Rig struct {
	bus         *feetech.Bus
	group       *feetech.ServoGroup
	calibration RigCalibration
}

// NewRig opens the servo bus on port.
func NewRig(port string, cal RigCalibration) (*Rig, error) {
	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: 1_000_000,
		Protocol: feetech.ProtocolSTS,
	})
	if err != nil {
		return nil, fmt.Errorf("open bus: %w", err)
	}

	group := feetech.NewServoGroupByIDs(bus, cal.ServoIDs()...)

	return &Rig{
		bus:         bus,
		group:       group,
		calibration: cal,
	}, nil
}

// Close closes the rig's bus connection.
func (r *Rig) Close() error {
	return r.bus.Close()
}

// Enable enables torque on all servos.
func (r *Rig) Enable(ctx context.Context) error {
	return r.group.EnableAll(ctx)
}

// Disable disables torque on all servos.
func (r *Rig) Disable(ctx context.Context) error {
	return r.group.DisableAll(ctx)
}

// WritePulses moves each channel to the position matching its pulse width.
// Channels without calibration are ignored.
func (r *Rig) WritePulses(ctx context.Context, pulses map[Channel]int) error {
	rawPositions := make(feetech.PositionMap, len(pulses))
	for ch, pulse := range pulses {
		cc, ok := r.calibration[ch]
		if !ok {
			continue
		}
		rawPositions[cc.ID] = cc.Position(pulse)
	}
	if len(rawPositions) == 0 {
		return nil
	}

	if err := r.group.SetPositions(ctx, rawPositions); err != nil {
		return fmt.Errorf("write positions: %w", err)
	}
	return nil
}
