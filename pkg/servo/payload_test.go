package servo

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestNewPayload(t *testing.T) {
	p := NewPayload([]ServoCommand{
		{Side: Left, YawPWM: 469, PitchPWM: 357, FingerByte: 0x01},
		{Side: Right, YawPWM: 181, PitchPWM: 369, FingerByte: 0},
	})

	data, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"left_hand":{"left_byte":1,"left_pitch":357,"left_yaw":469},"right_hand":{"right_byte":0,"right_pitch":369,"right_yaw":181}}`
	if string(data) != want {
		t.Errorf("payload = %s\nwant      %s", data, want)
	}
}

func TestPayload_Commands(t *testing.T) {
	var p Payload
	if err := json.Unmarshal([]byte(`{"right_hand":{"right_yaw":400,"right_pitch":410,"right_byte":240}}`), &p); err != nil {
		t.Fatal(err)
	}
	cmds, err := p.Commands()
	if err != nil {
		t.Fatalf("Commands: %v", err)
	}
	if len(cmds) != 1 {
		t.Fatalf("got %d commands, want 1", len(cmds))
	}
	if cmds[0] != (ServoCommand{Side: Right, YawPWM: 400, PitchPWM: 410, FingerByte: 0xF0}) {
		t.Errorf("unexpected command: %+v", cmds[0])
	}
}

func TestPayload_CommandsMalformed(t *testing.T) {
	tests := []Payload{
		{"left_hand": {"left_yaw": 1, "left_pitch": 2}},
		{"left_hand": {"left_yaw": 1, "left_pitch": 2, "left_byte": 300}},
		{"right_hand": {"left_yaw": 1, "left_pitch": 2, "left_byte": 3}},
	}
	for _, p := range tests {
		if _, err := p.Commands(); !errors.Is(err, ErrMalformedPayload) {
			t.Errorf("Commands(%v) error = %v, want ErrMalformedPayload", p, err)
		}
	}
}

func TestParkCommands(t *testing.T) {
	cmds := ParkCommands(DefaultCalibration())
	if len(cmds) != 2 {
		t.Fatalf("got %d park commands, want 2", len(cmds))
	}
	for _, c := range cmds {
		if c.YawPWM != 400 || c.PitchPWM != 400 {
			t.Errorf("%s park = (%d, %d), want (400, 400)", c.Side, c.YawPWM, c.PitchPWM)
		}
	}
	if b := CombineFingers(cmds); b != 0xFF {
		t.Errorf("park finger byte = %08b, want 11111111", b)
	}
}

func TestPulses(t *testing.T) {
	pulses := Pulses([]ServoCommand{
		{Side: Left, YawPWM: 1, PitchPWM: 2},
		{Side: Right, YawPWM: 3, PitchPWM: 4},
	})
	want := map[Channel]int{LeftYaw: 1, LeftPitch: 2, RightYaw: 3, RightPitch: 4}
	for ch, v := range want {
		if pulses[ch] != v {
			t.Errorf("pulses[%s] = %d, want %d", ch, pulses[ch], v)
		}
	}
}
