package servo

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestRange_Normalize(t *testing.T) {
	r := DefaultCalibration().Range

	tests := []struct {
		degree   int
		expected int
	}{
		{-200, 0}, // clamps low
		{-90, 0},
		{-1, 89},
		{0, 90}, // neutral maps to servo rest
		{45, 135},
		{90, 180},
		{500, 180}, // clamps high
	}

	for _, tt := range tests {
		if got := r.Normalize(tt.degree); got != tt.expected {
			t.Errorf("Normalize(%d) = %d, want %d", tt.degree, got, tt.expected)
		}
	}
}

func TestRange_NormalizeStaysInSpan(t *testing.T) {
	r := Range{Min: -90, Max: 90}
	for d := -400; d <= 400; d++ {
		got := r.Normalize(d)
		if got < 0 || got > r.Span() {
			t.Fatalf("Normalize(%d) = %d, outside [0, %d]", d, got, r.Span())
		}
		if d >= -90 && d <= 90 && got != d+90 {
			t.Fatalf("Normalize(%d) = %d, want %d", d, got, d+90)
		}
	}
}

func TestRange_NormalizeCustomBounds(t *testing.T) {
	r := Range{Min: -45, Max: 45}
	if got := r.Normalize(0); got != 45 {
		t.Errorf("Normalize(0) = %d, want 45", got)
	}
	if got := r.Normalize(60); got != 90 {
		t.Errorf("Normalize(60) = %d, want 90", got)
	}
}

func TestCurve_Yaw(t *testing.T) {
	yaw := DefaultCalibration().Yaw

	if got := yaw.PWM(0); got != 150 {
		t.Errorf("yaw PWM(0) = %d, want 150", got)
	}
	if got := yaw.Eval(180); math.Abs(got-725.0) > 1e-5 {
		t.Errorf("yaw Eval(180) = %f, want ~725.0", got)
	}
	// 724.9999992 truncates
	if got := yaw.PWM(180); got != 724 {
		t.Errorf("yaw PWM(180) = %d, want 724", got)
	}
	if got := yaw.PWM(100); got != 469 {
		t.Errorf("yaw PWM(100) = %d, want 469", got)
	}
}

func TestCurve_Pitch(t *testing.T) {
	pitch := DefaultCalibration().Pitch

	if got := pitch.PWM(0); got != 150 {
		t.Errorf("pitch PWM(0) = %d, want 150", got)
	}
	if got := pitch.Eval(90); math.Abs(got-370.0) > 1e-6 {
		t.Errorf("pitch Eval(90) = %f, want ~370.0", got)
	}
	// The fitted coefficients land a hair under 370
	if got := pitch.PWM(90); got != 369 {
		t.Errorf("pitch PWM(90) = %d, want 369", got)
	}
}

func TestCalibration_PWMStaysInRange(t *testing.T) {
	cal := DefaultCalibration()
	lo, hi := cal.Yaw.PWM(0), cal.Yaw.PWM(180)
	for d := -300; d <= 300; d++ {
		got := cal.YawPWM(d)
		if got < lo || got > hi {
			t.Fatalf("YawPWM(%d) = %d, outside [%d, %d]", d, got, lo, hi)
		}
		if p := cal.PitchPWM(d); p < 150 {
			t.Fatalf("PitchPWM(%d) = %d, below 150", d, p)
		}
	}
}

func TestCalibration_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Calibration)
		wantErr bool
	}{
		{"default", func(*Calibration) {}, false},
		{"inverted range", func(c *Calibration) { c.Range = Range{Min: 10, Max: -10} }, true},
		{"empty range", func(c *Calibration) { c.Range = Range{Min: 5, Max: 5} }, true},
		{"negative dead band", func(c *Calibration) { c.DeadBand = -1 }, true},
		{"NaN yaw", func(c *Calibration) { c.Yaw.B = math.NaN() }, true},
		{"Inf pitch", func(c *Calibration) { c.Pitch.A = math.Inf(1) }, true},
		{"zero dead band", func(c *Calibration) { c.DeadBand = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cal := DefaultCalibration()
			tt.modify(&cal)
			err := cal.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadCalibration(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "cal.json")
	if err := os.WriteFile(path, []byte(`{"dead_band": 8, "yaw": {"b": 3.0, "c": 160}}`), 0644); err != nil {
		t.Fatal(err)
	}
	cal, err := LoadCalibration(path)
	if err != nil {
		t.Fatalf("LoadCalibration: %v", err)
	}
	if cal.DeadBand != 8 {
		t.Errorf("DeadBand = %d, want 8", cal.DeadBand)
	}
	if cal.Yaw.C != 160 || cal.Yaw.B != 3.0 {
		t.Errorf("Yaw = %+v", cal.Yaw)
	}
	// Untouched fields keep defaults
	if cal.Range != (Range{Min: -90, Max: 90}) {
		t.Errorf("Range = %+v, want default", cal.Range)
	}
	if cal.Pitch != DefaultCalibration().Pitch {
		t.Errorf("Pitch = %+v, want default", cal.Pitch)
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"range": {"min": 90, "max": -90}}`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadCalibration(bad); err == nil {
		t.Error("expected validation error for inverted range")
	}
}
