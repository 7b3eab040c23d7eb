package servo

import "testing"

func TestChangeFilter_ShouldUpdate(t *testing.T) {
	f := ChangeFilter{Threshold: 5}

	tests := []struct {
		name        string
		state       AxisState
		yaw, pitch  int
		wantYaw     int
		wantPitch   int
		wantChanged bool
	}{
		{"first reading from zero", AxisState{}, 469, 357, 469, 357, true},
		{"within band", AxisState{LastYaw: 469, LastPitch: 357}, 472, 353, 469, 357, false},
		{"exactly threshold holds", AxisState{LastYaw: 469, LastPitch: 357}, 474, 352, 469, 357, false},
		{"yaw crosses", AxisState{LastYaw: 469, LastPitch: 357}, 475, 357, 475, 357, true},
		{"pitch crosses drags yaw along", AxisState{LastYaw: 469, LastPitch: 357}, 470, 363, 470, 363, true},
		{"negative delta crosses", AxisState{LastYaw: 469, LastPitch: 357}, 460, 357, 460, 357, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := tt.state
			yaw, pitch, changed := f.ShouldUpdate(&state, tt.yaw, tt.pitch)
			if yaw != tt.wantYaw || pitch != tt.wantPitch || changed != tt.wantChanged {
				t.Errorf("ShouldUpdate = (%d, %d, %v), want (%d, %d, %v)",
					yaw, pitch, changed, tt.wantYaw, tt.wantPitch, tt.wantChanged)
			}
			if changed {
				if state != (AxisState{LastYaw: tt.yaw, LastPitch: tt.pitch}) {
					t.Errorf("state = %+v, want new values stored", state)
				}
			} else if state != tt.state {
				t.Errorf("state mutated to %+v while holding", state)
			}
		})
	}
}

func TestChangeFilter_HoldsAcrossJitter(t *testing.T) {
	f := ChangeFilter{Threshold: 5}
	var state AxisState

	jitter := []int{0, 2, -3, 4, -5, 1, 5, -2}
	mutations := 0
	var first [2]int
	for i, j := range jitter {
		before := state
		yaw, pitch, _ := f.ShouldUpdate(&state, 400+j, 300-j)
		if state != before {
			mutations++
		}
		if i == 0 {
			first = [2]int{yaw, pitch}
			continue
		}
		if yaw != first[0] || pitch != first[1] {
			t.Fatalf("tick %d published (%d, %d), want held (%d, %d)", i, yaw, pitch, first[0], first[1])
		}
	}
	if mutations != 1 {
		t.Errorf("state mutated %d times, want 1", mutations)
	}
}
