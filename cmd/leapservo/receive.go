package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gwillem/leapservo/pkg/receiver"
	"github.com/gwillem/leapservo/pkg/servo"
)

type ReceiveCommand struct {
	Relay          string `long:"relay" description:"Relay URL (overrides config)"`
	Channel        string `long:"channel" description:"Channel name (overrides config)"`
	MatrixPort     string `long:"matrix-port" description:"Serial port of the finger matrix"`
	ServoPort      string `long:"servo-port" description:"Serial port of the servo bus"`
	RigCalibration string `long:"rig-calibration" description:"JSON file with per-channel servo calibration"`
}

func (c *ReceiveCommand) Execute(args []string) error {
	logger := newLogger(os.Stderr)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if c.Relay != "" {
		cfg.Relay.URL = c.Relay
	}
	if c.Channel != "" {
		cfg.Channel = c.Channel
	}
	if c.MatrixPort != "" {
		cfg.Receiver.MatrixPort = c.MatrixPort
	}
	if c.ServoPort != "" {
		cfg.Receiver.ServoPort = c.ServoPort
	}
	if c.RigCalibration != "" {
		rigCal, err := servo.LoadRigCalibration(c.RigCalibration)
		if err != nil {
			return err
		}
		cfg.Receiver.Servos = rigCal
	}
	if !cfg.HasReceiverHardware() {
		logger.Warn("no finger matrix or servo port configured, payloads are only counted")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var driver receiver.ServoDriver
	if cfg.Receiver.ServoPort != "" {
		rig, err := servo.NewRig(cfg.Receiver.ServoPort, cfg.Receiver.Servos)
		if err != nil {
			return fmt.Errorf("servo rig on %s: %w", cfg.Receiver.ServoPort, err)
		}
		defer rig.Close()
		if err := rig.Enable(ctx); err != nil {
			return fmt.Errorf("enable servos: %w", err)
		}
		defer func() {
			dctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := rig.Disable(dctx); err != nil {
				logger.WithError(err).Warn("disable servos")
			}
		}()
		driver = rig
		logger.WithField("port", cfg.Receiver.ServoPort).Info("servo rig ready")
	}

	var display receiver.FingerDisplay
	if cfg.Receiver.MatrixPort != "" {
		matrix, err := receiver.OpenMatrix(cfg.Receiver.MatrixPort, cfg.Receiver.MatrixBaud)
		if err != nil {
			return err
		}
		defer matrix.Close()
		display = matrix
		logger.WithField("port", cfg.Receiver.MatrixPort).Info("finger matrix ready")
	}

	r := receiver.New(driver, display, logger)
	err = r.Run(ctx, cfg.Relay.URL, cfg.Channel)
	logger.WithField("handled", r.Handled()).Info("receiver stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
