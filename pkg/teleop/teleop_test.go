package teleop

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"

	"github.com/gwillem/leapservo/pkg/servo"
)

type fakeSensor struct {
	mu    sync.Mutex
	frame servo.Frame
	err   error
}

func (s *fakeSensor) set(frame servo.Frame, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frame, s.err = frame, err
}

func (s *fakeSensor) CurrentFrame() (servo.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame, s.err
}

type publishCall struct {
	channel string
	payload servo.Payload
}

type fakePublisher struct {
	mu    sync.Mutex
	calls []publishCall
	err   error
}

func (p *fakePublisher) Publish(_ context.Context, channel string, payload servo.Payload) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, publishCall{channel: channel, payload: payload})
	return p.err
}

func (p *fakePublisher) snapshot() []publishCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishCall(nil), p.calls...)
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestController(t *testing.T, sensor Sensor, pub Publisher, park bool) *Controller {
	t.Helper()
	c, err := NewController(Config{
		Sensor:      sensor,
		Publisher:   pub,
		Channel:     "leap2pi",
		Interval:    time.Millisecond,
		Calibration: servo.DefaultCalibration(),
		Park:        park,
		Logger:      quietLogger(),
	})
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	return c
}

func TestNewController_Validation(t *testing.T) {
	cal := servo.DefaultCalibration()
	tests := []struct {
		name string
		cfg  Config
	}{
		{"no sensor", Config{Publisher: &fakePublisher{}, Channel: "c", Calibration: cal}},
		{"no publisher", Config{Sensor: &fakeSensor{}, Channel: "c", Calibration: cal}},
		{"no channel", Config{Sensor: &fakeSensor{}, Publisher: &fakePublisher{}, Calibration: cal}},
		{"bad calibration", Config{Sensor: &fakeSensor{}, Publisher: &fakePublisher{}, Channel: "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewController(tt.cfg); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestController_StepPublishesCombinedPayload(t *testing.T) {
	sensor := &fakeSensor{frame: twoHandFrame()}
	pub := &fakePublisher{}
	c := newTestController(t, sensor, pub, false)

	c.step(context.Background())

	calls := pub.snapshot()
	if len(calls) != 1 {
		t.Fatalf("got %d publish calls, want 1", len(calls))
	}
	if calls[0].channel != "leap2pi" {
		t.Errorf("channel = %q", calls[0].channel)
	}
	want := servo.Payload{
		"left_hand":  {"left_yaw": 469, "left_pitch": 357, "left_byte": 1},
		"right_hand": {"right_yaw": 181, "right_pitch": 369, "right_byte": 0},
	}
	if diff := cmp.Diff(want, calls[0].payload); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}

	state := <-c.States()
	if !state.Published || len(state.Commands) != 2 || state.Error != nil {
		t.Errorf("unexpected state: %+v", state)
	}
}

func TestController_NoHandsNoPublish(t *testing.T) {
	sensor := &fakeSensor{}
	pub := &fakePublisher{}
	c := newTestController(t, sensor, pub, false)

	for i := 0; i < 3; i++ {
		c.step(context.Background())
	}
	sensor.set(servo.Frame{}, servo.ErrSensorUnavailable)
	c.step(context.Background())

	if calls := pub.snapshot(); len(calls) != 0 {
		t.Errorf("got %d publish calls for empty frames, want 0", len(calls))
	}
	state := <-c.States()
	if !errors.Is(state.Error, servo.ErrSensorUnavailable) {
		t.Errorf("state error = %v, want ErrSensorUnavailable", state.Error)
	}
}

func TestController_RepeatsHeldValues(t *testing.T) {
	sensor := &fakeSensor{frame: twoHandFrame()}
	pub := &fakePublisher{}
	c := newTestController(t, sensor, pub, false)

	for i := 0; i < 4; i++ {
		c.step(context.Background())
	}

	calls := pub.snapshot()
	if len(calls) != 4 {
		t.Fatalf("got %d publish calls, want one per tick", len(calls))
	}
	for i := 1; i < len(calls); i++ {
		if diff := cmp.Diff(calls[0].payload, calls[i].payload); diff != "" {
			t.Errorf("tick %d payload changed (-first +got):\n%s", i, diff)
		}
	}
}

func TestController_PublishFailureIsCounted(t *testing.T) {
	sensor := &fakeSensor{frame: twoHandFrame()}
	pub := &fakePublisher{err: errors.New("channel down")}
	c := newTestController(t, sensor, pub, false)

	c.step(context.Background())
	c.step(context.Background())

	published, failures := c.Stats()
	if published != 0 || failures != 2 {
		t.Errorf("Stats = (%d, %d), want (0, 2)", published, failures)
	}
	state := <-c.States()
	if state.Published || state.Error == nil {
		t.Errorf("unexpected state: %+v", state)
	}
}

func TestController_StartParksOnCancel(t *testing.T) {
	sensor := &fakeSensor{frame: twoHandFrame()}
	pub := &fakePublisher{}
	c := newTestController(t, sensor, pub, true)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	deadline := time.After(2 * time.Second)
	for len(pub.snapshot()) < 3 {
		select {
		case <-deadline:
			t.Fatal("controller did not publish")
		case <-time.After(time.Millisecond):
		}
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Start returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("controller did not stop")
	}

	calls := pub.snapshot()
	last := calls[len(calls)-1].payload
	want := servo.NewPayload(servo.ParkCommands(servo.DefaultCalibration()))
	if diff := cmp.Diff(want, last); diff != "" {
		t.Errorf("last payload is not the park position (-want +got):\n%s", diff)
	}
}

func TestController_StartTwice(t *testing.T) {
	c := newTestController(t, &fakeSensor{}, &fakePublisher{}, false)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	// The first log line is written once the loop owns the controller
	select {
	case <-c.Logs():
	case <-time.After(2 * time.Second):
		t.Fatal("controller did not start")
	}

	if err := c.Start(ctx); err == nil || err.Error() != "already running" {
		t.Errorf("second Start = %v, want already running", err)
	}
	cancel()
	<-done
}
