// Package receiver applies published hand payloads to a servo rig and a
// finger display.
package receiver

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gwillem/leapservo/pkg/relay"
	"github.com/gwillem/leapservo/pkg/servo"
)

const (
	minBackoff = 250 * time.Millisecond
	maxBackoff = 5 * time.Second
)

// ServoDriver moves servo channels to pulse widths.
type ServoDriver interface {
	WritePulses(ctx context.Context, pulses map[servo.Channel]int) error
}

// FingerDisplay shows the combined finger byte.
type FingerDisplay interface {
	WriteByte(b byte) error
	Reset() error
}

// Receiver drives outputs from payloads. Either output may be nil.
type Receiver struct {
	servos  ServoDriver
	display FingerDisplay
	logger  logrus.FieldLogger

	handled atomic.Uint64
}

// New creates a receiver. A nil logger uses the logrus standard logger.
func New(servos ServoDriver, display FingerDisplay, logger logrus.FieldLogger) *Receiver {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Receiver{
		servos:  servos,
		display: display,
		logger:  logger,
	}
}

// Handled returns the number of payloads applied.
func (r *Receiver) Handled() uint64 {
	return r.handled.Load()
}

// Handle applies one payload. Hands missing from the payload leave their
// servos where they are and contribute no finger bits.
func (r *Receiver) Handle(ctx context.Context, p servo.Payload) error {
	cmds, err := p.Commands()
	if err != nil {
		return err
	}
	if len(cmds) == 0 {
		return nil
	}

	if r.servos != nil {
		if err := r.servos.WritePulses(ctx, servo.Pulses(cmds)); err != nil {
			return fmt.Errorf("write servos: %w", err)
		}
	}

	if r.display != nil {
		if err := r.showFingers(servo.CombineFingers(cmds)); err != nil {
			return err
		}
	}

	r.handled.Add(1)
	return nil
}

func (r *Receiver) showFingers(b byte) error {
	err := r.display.WriteByte(b)
	if err == nil {
		return nil
	}
	r.logger.WithError(err).Warn("finger display write failed, resetting")
	if rerr := r.display.Reset(); rerr != nil {
		return fmt.Errorf("reset finger display: %w", rerr)
	}
	if err := r.display.WriteByte(b); err != nil {
		return fmt.Errorf("write finger display: %w", err)
	}
	return nil
}

// Run subscribes to channel on the relay at base and applies every payload
// until ctx is done, reconnecting when the connection drops.
func (r *Receiver) Run(ctx context.Context, base, channel string) error {
	log := r.logger.WithFields(logrus.Fields{"relay": base, "channel": channel})
	backoff := minBackoff
	connected := false

	for {
		sub, err := relay.Dial(ctx, base, channel)
		if err == nil {
			if connected {
				log.Info("reconnected to relay")
			} else {
				log.Info("connected to relay")
			}
			connected = true
			backoff = minBackoff
			err = r.consume(ctx, sub)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.WithError(err).Warnf("disconnected from relay, retrying in %s", backoff)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func (r *Receiver) consume(ctx context.Context, sub *relay.Subscriber) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-done:
			sub.Close()
		}
	}()

	for {
		p, err := sub.Next()
		if err != nil {
			return err
		}
		if err := r.Handle(ctx, p); err != nil {
			r.logger.WithError(err).Error("apply payload")
		}
	}
}
