package servo

import "math"

// Vector is a direction in sensor space. The sensor looks up the +Y axis
// with -Z pointing away from the user.
type Vector struct {
	X, Y, Z float64
}

// Yaw returns the rotation about the vertical axis in radians.
func (v Vector) Yaw() float64 {
	return math.Atan2(v.X, -v.Z)
}

// Pitch returns the rotation about the lateral axis in radians.
func (v Vector) Pitch() float64 {
	return math.Atan2(v.Y, -v.Z)
}

// IsZero reports whether the vector has no direction.
func (v Vector) IsZero() bool {
	return v.X == 0 && v.Y == 0 && v.Z == 0
}

// IsFinite reports whether every component is a finite number.
func (v Vector) IsFinite() bool {
	return isFinite(v.X) && isFinite(v.Y) && isFinite(v.Z)
}

const degreesPerRadian = 180 / math.Pi

// ToDegrees converts radians to whole degrees, truncating toward zero.
func ToDegrees(radians float64) int {
	return int(radians * degreesPerRadian)
}

// ExtractAngles converts a sample's orientation to whole degrees. The left
// hand's pitch is negated because that sensor is mounted mirrored.
func ExtractAngles(s HandSample) (yaw, pitch int) {
	yaw = ToDegrees(s.YawRadians)
	pitch = ToDegrees(s.PitchRadians)
	if s.Side == Left {
		pitch = -pitch
	}
	return yaw, pitch
}
