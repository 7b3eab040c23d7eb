package main

import (
	"fmt"
	"io"
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/sirupsen/logrus"

	"github.com/gwillem/leapservo/pkg/servo"
)

type Options struct {
	Config  string `short:"c" long:"config" default:"leapservo.json" description:"Configuration file"`
	Verbose bool   `short:"v" long:"verbose" description:"Log at debug level"`

	Setup   SetupCommand   `command:"setup" description:"Write a configuration file interactively"`
	Track   TrackCommand   `command:"track" description:"Track hands and publish servo commands"`
	Receive ReceiveCommand `command:"receive" description:"Drive servos and the finger matrix from a relay"`
	Ports   PortsCommand   `command:"ports" description:"List serial ports"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "leapservo - drive hand servos from a Leap Motion controller"

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}

// loadConfig reads the configured file, falling back to defaults when it
// does not exist yet.
func loadConfig() (*servo.Config, error) {
	if !servo.ConfigExists(opts.Config) {
		return servo.DefaultConfig(), nil
	}
	cfg, err := servo.LoadConfigFrom(opts.Config)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func newLogger(out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if opts.Verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger
}
