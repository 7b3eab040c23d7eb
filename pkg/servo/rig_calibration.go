package servo

import (
	"encoding/json"
	"fmt"
	"os"
)

// ChannelCalibration maps pulse widths of one channel onto a servo's raw
// position range.
type ChannelCalibration struct {
	ID        int `json:"id"`
	DriveMode int `json:"drive_mode"`
	PulseMin  int `json:"pulse_min"`
	PulseMax  int `json:"pulse_max"`
	RangeMin  int `json:"range_min"`
	RangeMax  int `json:"range_max"`
}

// RigCalibration holds calibration data for all channels, keyed by channel.
type RigCalibration map[Channel]ChannelCalibration

// DefaultRigCalibration returns a rig with feetech IDs 1-4 covering the
// full pulse span of the default curves.
func DefaultRigCalibration() RigCalibration {
	cal := make(RigCalibration, 4)
	for i, ch := range AllChannels() {
		cal[ch] = ChannelCalibration{
			ID:       i + 1,
			PulseMin: 150,
			PulseMax: 725,
			RangeMin: 1024,
			RangeMax: 3072,
		}
	}
	return cal
}

// LoadRigCalibration loads rig calibration data from a JSON file.
func LoadRigCalibration(path string) (RigCalibration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rig calibration file: %w", err)
	}

	// Parse into a map with string keys first
	var raw map[string]ChannelCalibration
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse rig calibration JSON: %w", err)
	}

	cal := make(RigCalibration, len(raw))
	for name, cc := range raw {
		cal[Channel(name)] = cc
	}

	return cal, nil
}

// Normalize converts a pulse width to a value in the range [-100, 100].
// Pulses outside the calibrated span are clamped.
func (c ChannelCalibration) Normalize(pulse int) float64 {
	span := float64(c.PulseMax - c.PulseMin)
	if span == 0 {
		return 0
	}
	norm := (float64(pulse-c.PulseMin)/span)*200 - 100
	if norm > 100 {
		norm = 100
	}
	if norm < -100 {
		norm = -100
	}
	if c.DriveMode == 1 {
		norm = -norm
	}
	return norm
}

// Denormalize converts a normalized value [-100, 100] to a raw servo position.
func (c ChannelCalibration) Denormalize(norm float64) int {
	rangeSize := float64(c.RangeMax - c.RangeMin)
	return int((norm+100)/200*rangeSize) + c.RangeMin
}

// Position converts a pulse width straight to a raw servo position.
func (c ChannelCalibration) Position(pulse int) int {
	return c.Denormalize(c.Normalize(pulse))
}

// ServoIDs returns the servo IDs for all channels in the calibration.
func (c RigCalibration) ServoIDs() []int {
	ids := make([]int, 0, len(c))
	// Use AllChannels() to ensure consistent ordering
	for _, ch := range AllChannels() {
		if cc, ok := c[ch]; ok {
			ids = append(ids, cc.ID)
		}
	}
	return ids
}

// ByID returns channel and calibration for a given servo ID.
func (c RigCalibration) ByID(id int) (Channel, ChannelCalibration, bool) {
	for ch, cc := range c {
		if cc.ID == id {
			return ch, cc, true
		}
	}
	return "", ChannelCalibration{}, false
}
