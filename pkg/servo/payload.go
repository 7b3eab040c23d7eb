package servo

import (
	"errors"
	"fmt"
)

// ErrMalformedPayload is returned when a received payload is missing fields.
var ErrMalformedPayload = errors.New("malformed payload")

// Payload is the message sent over the channel, keyed "left_hand" and
// "right_hand". Each hand maps "{side}_yaw", "{side}_pitch" and
// "{side}_byte" to integers. Only present hands appear.
type Payload map[string]map[string]int

func handKey(side Side) string  { return string(side) + "_hand" }
func yawKey(side Side) string   { return string(side) + "_yaw" }
func pitchKey(side Side) string { return string(side) + "_pitch" }
func byteKey(side Side) string  { return string(side) + "_byte" }

// NewPayload builds the channel message for a set of commands.
func NewPayload(cmds []ServoCommand) Payload {
	p := make(Payload, len(cmds))
	for _, c := range cmds {
		p[handKey(c.Side)] = map[string]int{
			yawKey(c.Side):   c.YawPWM,
			pitchKey(c.Side): c.PitchPWM,
			byteKey(c.Side):  int(c.FingerByte),
		}
	}
	return p
}

// Commands decodes the payload, left hand first.
func (p Payload) Commands() ([]ServoCommand, error) {
	var cmds []ServoCommand
	for _, side := range Sides() {
		hand, ok := p[handKey(side)]
		if !ok {
			continue
		}
		yaw, okYaw := hand[yawKey(side)]
		pitch, okPitch := hand[pitchKey(side)]
		b, okByte := hand[byteKey(side)]
		if !okYaw || !okPitch || !okByte {
			return nil, fmt.Errorf("%w: %s is missing fields", ErrMalformedPayload, handKey(side))
		}
		if b < 0 || b > 0xFF {
			return nil, fmt.Errorf("%w: %s=%d out of byte range", ErrMalformedPayload, byteKey(side), b)
		}
		cmds = append(cmds, ServoCommand{
			Side:       side,
			YawPWM:     yaw,
			PitchPWM:   pitch,
			FingerByte: uint8(b),
		})
	}
	return cmds, nil
}

// IsEmpty reports whether the payload carries no hands.
func (p Payload) IsEmpty() bool {
	return len(p) == 0
}

// ParkCommands returns the rest position sent when tracking stops: both
// hands centered at the park PWM with every finger bit set.
func ParkCommands(cal Calibration) []ServoCommand {
	cmds := make([]ServoCommand, 0, 2)
	for _, side := range Sides() {
		cmds = append(cmds, ServoCommand{
			Side:       side,
			YawPWM:     cal.ParkPWM,
			PitchPWM:   cal.ParkPWM,
			FingerByte: AllFingersByte(side),
			Changed:    true,
		})
	}
	return cmds
}
