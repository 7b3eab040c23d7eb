package servo

// AxisState is the last set-point published for one hand.
type AxisState struct {
	LastYaw   int
	LastPitch int
}

// ChangeFilter is a dead-band gate evaluated jointly over yaw and pitch.
// It is not safe for concurrent use on the same AxisState.
type ChangeFilter struct {
	Threshold int
}

// ShouldUpdate compares new values against the last published ones. When
// either axis moves by more than the threshold both values are accepted
// and stored in state. Otherwise state is left alone and the previously
// published values are returned.
func (f ChangeFilter) ShouldUpdate(state *AxisState, yaw, pitch int) (pubYaw, pubPitch int, changed bool) {
	if abs(state.LastYaw-yaw) > f.Threshold || abs(state.LastPitch-pitch) > f.Threshold {
		state.LastYaw = yaw
		state.LastPitch = pitch
		return yaw, pitch, true
	}
	return state.LastYaw, state.LastPitch, false
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
