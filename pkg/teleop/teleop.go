// Package teleop runs the hand-to-servo tracking loop.
package teleop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gwillem/leapservo/pkg/servo"
)

// Sensor returns the most recent frame without blocking.
type Sensor interface {
	CurrentFrame() (servo.Frame, error)
}

// Publisher sends a payload on a named channel.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload servo.Payload) error
}

// State represents the outcome of one tracking tick.
type State struct {
	Commands  []servo.ServoCommand
	Published bool
	Timestamp time.Time
	Error     error
}

// Controller manages the tracking loop.
type Controller struct {
	sensor    Sensor
	publisher Publisher
	processor *Processor
	channel   string
	interval  time.Duration
	park      bool
	cal       servo.Calibration
	logger    logrus.FieldLogger

	mu        sync.RWMutex
	running   bool
	published uint64
	failures  uint64
	stateCh   chan State
	logCh     chan string
}

// Config holds configuration for the controller.
type Config struct {
	Sensor      Sensor
	Publisher   Publisher
	Channel     string
	Interval    time.Duration
	Calibration servo.Calibration
	Park        bool // Publish the rest position when the loop stops
	Logger      logrus.FieldLogger
}

// NewController creates a new tracking controller.
func NewController(cfg Config) (*Controller, error) {
	if cfg.Sensor == nil {
		return nil, fmt.Errorf("sensor is required")
	}
	if cfg.Publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	if cfg.Channel == "" {
		return nil, fmt.Errorf("channel is required")
	}
	if err := cfg.Calibration.Validate(); err != nil {
		return nil, fmt.Errorf("calibration: %w", err)
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 50 * time.Millisecond
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}

	return &Controller{
		sensor:    cfg.Sensor,
		publisher: cfg.Publisher,
		processor: NewProcessor(cfg.Calibration),
		channel:   cfg.Channel,
		interval:  cfg.Interval,
		park:      cfg.Park,
		cal:       cfg.Calibration,
		logger:    cfg.Logger.WithField("channel", cfg.Channel),
		stateCh:   make(chan State, 1),
		logCh:     make(chan string, 10),
	}, nil
}

// States returns a channel that receives state updates.
func (c *Controller) States() <-chan State {
	return c.stateCh
}

// Logs returns a channel that receives log messages.
func (c *Controller) Logs() <-chan string {
	return c.logCh
}

// Interval returns the tracking period.
func (c *Controller) Interval() time.Duration {
	return c.interval
}

// Channel returns the channel commands are published on.
func (c *Controller) Channel() string {
	return c.channel
}

// Stats returns the number of published messages and publish failures.
func (c *Controller) Stats() (published, failures uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.published, c.failures
}

func (c *Controller) log(format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	c.logger.Info(text)
	msg := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), text)
	select {
	case c.logCh <- msg:
	default:
		// Drop if channel full
	}
}

// Start runs the tracking loop until ctx is cancelled. Each tick reads the
// latest frame, so frames arriving faster than the interval are dropped.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("already running")
	}
	c.running = true
	c.mu.Unlock()

	c.log("Tracking started every %s", c.interval)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return ctx.Err()
		case <-ticker.C:
			c.step(ctx)
		}
	}
}

func (c *Controller) step(ctx context.Context) {
	frame, err := c.sensor.CurrentFrame()
	if err != nil {
		if !errors.Is(err, servo.ErrSensorUnavailable) {
			c.logger.WithError(err).Warn("read frame")
		}
		c.sendState(State{Error: err, Timestamp: time.Now()})
		return
	}

	cmds, err := c.processor.Process(frame)
	if err != nil {
		c.log("Skipped hand: %v", err)
	}
	if len(cmds) == 0 {
		c.sendState(State{Error: err, Timestamp: time.Now()})
		return
	}

	for _, cmd := range cmds {
		c.logger.WithFields(logrus.Fields{
			"side":    cmd.Side,
			"yaw":     cmd.YawPWM,
			"pitch":   cmd.PitchPWM,
			"fingers": fmt.Sprintf("%08b", cmd.FingerByte),
			"changed": cmd.Changed,
		}).Debug("command")
	}

	published := c.publish(ctx, cmds)
	if !published && err == nil {
		err = fmt.Errorf("publish failed")
	}
	c.sendState(State{
		Commands:  cmds,
		Published: published,
		Timestamp: time.Now(),
		Error:     err,
	})
}

func (c *Controller) publish(ctx context.Context, cmds []servo.ServoCommand) bool {
	err := c.publisher.Publish(ctx, c.channel, servo.NewPayload(cmds))

	c.mu.Lock()
	if err != nil {
		c.failures++
	} else {
		c.published++
	}
	c.mu.Unlock()

	if err != nil {
		c.log("Publish error: %v", err)
		return false
	}
	return true
}

func (c *Controller) sendState(s State) {
	select {
	case c.stateCh <- s:
	default:
		// Drop old state if channel full, replace with new
		select {
		case <-c.stateCh:
		default:
		}
		c.stateCh <- s
	}
}

func (c *Controller) shutdown() {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()

	if c.park {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if c.publish(ctx, servo.ParkCommands(c.cal)) {
			c.log("Servos parked")
		}
	}
	c.log("Tracking stopped")
}
