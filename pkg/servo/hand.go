// Package servo converts tracked hand poses into servo set-points.
//
// The pipeline for one hand is: angle extraction, range normalization,
// a per-axis PWM curve, finger-bit encoding and a dead-band filter that
// holds the previous set-point while the hand only jitters.
package servo

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrSensorUnavailable is returned when no frame can be read from the sensor.
	ErrSensorUnavailable = errors.New("sensor unavailable")
	// ErrMalformedHand marks a hand that cannot be encoded for this tick.
	ErrMalformedHand = errors.New("malformed hand")
	// ErrUnknownSide is returned when a hand is neither left nor right.
	ErrUnknownSide = errors.New("unknown hand side")
)

// Side identifies which hand a sample belongs to.
type Side string

const (
	Left  Side = "left"
	Right Side = "right"
)

// ParseSide accepts "left" or "right".
func ParseSide(s string) (Side, error) {
	switch Side(s) {
	case Left, Right:
		return Side(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSide, s)
}

// Sides returns both sides, left first.
func Sides() []Side {
	return []Side{Left, Right}
}

// FingerCount is the number of fingers reported per hand (thumb first).
const FingerCount = 5

// Finger is one digit as reported by the sensor. Index 0 is the thumb,
// 4 the pinky.
type Finger struct {
	Index    int
	Extended bool
}

// Hand is a single detected hand as delivered by a sensor.
type Hand struct {
	ID        int
	Side      Side
	Direction Vector
	Fingers   []Finger
}

// Frame is a snapshot of every hand visible to the sensor.
type Frame struct {
	ID    int64
	Hands []Hand
}

// HandSample is a validated hand ready for the conversion pipeline.
type HandSample struct {
	Side           Side
	YawRadians     float64
	PitchRadians   float64
	FingerExtended [FingerCount]bool
}

// Sample validates the hand and extracts its orientation.
func (h Hand) Sample() (HandSample, error) {
	if _, err := ParseSide(string(h.Side)); err != nil {
		return HandSample{}, fmt.Errorf("%w: hand %d: %w", ErrMalformedHand, h.ID, err)
	}
	if h.Direction.IsZero() || !h.Direction.IsFinite() {
		return HandSample{}, fmt.Errorf("%w: hand %d: bad direction %v", ErrMalformedHand, h.ID, h.Direction)
	}

	s := HandSample{
		Side:         h.Side,
		YawRadians:   h.Direction.Yaw(),
		PitchRadians: h.Direction.Pitch(),
	}

	var seen [FingerCount]bool
	for _, f := range h.Fingers {
		if f.Index < 0 || f.Index >= FingerCount {
			return HandSample{}, fmt.Errorf("%w: hand %d: finger index %d", ErrMalformedHand, h.ID, f.Index)
		}
		seen[f.Index] = true
		s.FingerExtended[f.Index] = f.Extended
	}
	for i, ok := range seen {
		if !ok {
			return HandSample{}, fmt.Errorf("%w: hand %d: missing finger %d", ErrMalformedHand, h.ID, i)
		}
	}
	return s, nil
}

// ServoCommand is the set-point for one hand at one tick.
type ServoCommand struct {
	Side       Side
	YawPWM     int
	PitchPWM   int
	FingerByte uint8

	// Changed reports whether the dead-band accepted fresh values.
	Changed bool
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
