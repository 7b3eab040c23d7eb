package teleop

import (
	"errors"
	"fmt"

	"github.com/gwillem/leapservo/pkg/servo"
)

// Processor turns sensor frames into servo commands. It owns the dead-band
// state of both hands and must only be used from one goroutine.
type Processor struct {
	cal    servo.Calibration
	filter servo.ChangeFilter
	states map[servo.Side]*servo.AxisState
}

// NewProcessor creates a processor with zeroed hand state.
func NewProcessor(cal servo.Calibration) *Processor {
	return &Processor{
		cal:    cal,
		filter: servo.ChangeFilter{Threshold: cal.DeadBand},
		states: map[servo.Side]*servo.AxisState{
			servo.Left:  {},
			servo.Right: {},
		},
	}
}

// State returns a copy of the last published set-point for side.
func (p *Processor) State(side servo.Side) servo.AxisState {
	if s, ok := p.states[side]; ok {
		return *s
	}
	return servo.AxisState{}
}

// Process converts every hand in frame, in frame order. Hands that cannot
// be encoded are skipped and reported through the returned error; the
// commands for the remaining hands are still returned.
func (p *Processor) Process(frame servo.Frame) ([]servo.ServoCommand, error) {
	var (
		cmds []servo.ServoCommand
		errs []error
		seen = make(map[servo.Side]bool, 2)
	)
	for _, hand := range frame.Hands {
		sample, err := hand.Sample()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if seen[sample.Side] {
			errs = append(errs, fmt.Errorf("%w: hand %d: second %s hand in frame", servo.ErrMalformedHand, hand.ID, sample.Side))
			continue
		}
		seen[sample.Side] = true
		cmds = append(cmds, p.ProcessSample(sample))
	}
	return cmds, errors.Join(errs...)
}

// ProcessSample runs one validated hand through the pipeline and the
// dead-band filter of its side.
func (p *Processor) ProcessSample(s servo.HandSample) servo.ServoCommand {
	yawDeg, pitchDeg := servo.ExtractAngles(s)
	yaw := p.cal.YawPWM(yawDeg)
	pitch := p.cal.PitchPWM(pitchDeg)

	pubYaw, pubPitch, changed := p.filter.ShouldUpdate(p.states[s.Side], yaw, pitch)

	return servo.ServoCommand{
		Side:       s.Side,
		YawPWM:     pubYaw,
		PitchPWM:   pubPitch,
		FingerByte: servo.FingerByte(s.Side, s.FingerExtended),
		Changed:    changed,
	}
}
