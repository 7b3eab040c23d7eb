package servo

// Channel identifies one servo output on the receiving rig.
type Channel string

// Servo channels, in driver output order 0-3.
const (
	LeftYaw    Channel = "left_yaw"
	LeftPitch  Channel = "left_pitch"
	RightYaw   Channel = "right_yaw"
	RightPitch Channel = "right_pitch"
)

// AllChannels returns all channels in driver output order.
func AllChannels() []Channel {
	return []Channel{
		LeftYaw,
		LeftPitch,
		RightYaw,
		RightPitch,
	}
}

// YawChannel returns the yaw output for side.
func YawChannel(side Side) Channel {
	if side == Right {
		return RightYaw
	}
	return LeftYaw
}

// PitchChannel returns the pitch output for side.
func PitchChannel(side Side) Channel {
	if side == Right {
		return RightPitch
	}
	return LeftPitch
}

// Pulses returns the per-channel pulse widths carried by cmds.
func Pulses(cmds []ServoCommand) map[Channel]int {
	pulses := make(map[Channel]int, len(cmds)*2)
	for _, c := range cmds {
		pulses[YawChannel(c.Side)] = c.YawPWM
		pulses[PitchChannel(c.Side)] = c.PitchPWM
	}
	return pulses
}
