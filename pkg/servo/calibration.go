package servo

import (
	"encoding/json"
	"fmt"
	"os"
)

// Range is the sensor angle window mapped onto the servo sweep.
type Range struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Normalize clamps degree into the range and rebases it to start at zero.
// With the default range [-90, 90] the result lies in [0, 180].
func (r Range) Normalize(degree int) int {
	if degree > r.Max {
		degree = r.Max
	}
	if degree < r.Min {
		degree = r.Min
	}
	return degree - r.Min
}

// Span returns the width of the normalized output.
func (r Range) Span() int {
	return r.Max - r.Min
}

// Curve is a quadratic fit pwm = A*d² + B*d + C over normalized degrees.
type Curve struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
	C float64 `json:"c"`
}

// Eval returns the exact curve value at degree.
func (c Curve) Eval(degree float64) float64 {
	return c.A*degree*degree + c.B*degree + c.C
}

// PWM returns the curve value truncated to whole PWM units.
func (c Curve) PWM(degree int) int {
	return int(c.Eval(float64(degree)))
}

func (c Curve) valid() bool {
	return isFinite(c.A) && isFinite(c.B) && isFinite(c.C)
}

// Calibration holds the rig-specific constants of the conversion pipeline.
type Calibration struct {
	Range    Range `json:"range"`
	DeadBand int   `json:"dead_band"`
	Yaw      Curve `json:"yaw"`
	Pitch    Curve `json:"pitch"`
	ParkPWM  int   `json:"park_pwm"`
}

// DefaultCalibration returns the constants fitted for the reference servo pair.
func DefaultCalibration() Calibration {
	return Calibration{
		Range:    Range{Min: -90, Max: 90},
		DeadBand: 5,
		Yaw:      Curve{A: 0, B: 3.19444444, C: 150},
		Pitch:    Curve{A: 0.00061728395, B: 2.38888888889, C: 150},
		ParkPWM:  400,
	}
}

// Validate checks the calibration for values that would break the pipeline.
func (c Calibration) Validate() error {
	if c.Range.Min >= c.Range.Max {
		return fmt.Errorf("range min %d must be below max %d", c.Range.Min, c.Range.Max)
	}
	if c.DeadBand < 0 {
		return fmt.Errorf("dead band %d must not be negative", c.DeadBand)
	}
	if !c.Yaw.valid() {
		return fmt.Errorf("yaw curve has non-finite coefficients: %+v", c.Yaw)
	}
	if !c.Pitch.valid() {
		return fmt.Errorf("pitch curve has non-finite coefficients: %+v", c.Pitch)
	}
	return nil
}

// YawPWM maps a raw yaw angle through normalization and the yaw curve.
func (c Calibration) YawPWM(degree int) int {
	return c.Yaw.PWM(c.Range.Normalize(degree))
}

// PitchPWM maps a raw pitch angle through normalization and the pitch curve.
func (c Calibration) PitchPWM(degree int) int {
	return c.Pitch.PWM(c.Range.Normalize(degree))
}

// LoadCalibration loads calibration data from a JSON file. Fields missing
// from the file keep their default values.
func LoadCalibration(path string) (Calibration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Calibration{}, fmt.Errorf("read calibration file: %w", err)
	}

	cal := DefaultCalibration()
	if err := json.Unmarshal(data, &cal); err != nil {
		return Calibration{}, fmt.Errorf("parse calibration JSON: %w", err)
	}
	if err := cal.Validate(); err != nil {
		return Calibration{}, fmt.Errorf("invalid calibration: %w", err)
	}
	return cal, nil
}
