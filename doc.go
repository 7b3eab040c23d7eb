// Package leapservo drives hand servos from a Leap Motion controller.
//
// The tracker samples the latest hand frame every 50 ms, turns each hand's
// yaw and pitch into servo pulse widths and its extended fingers into a
// bit nibble, and publishes the result on a named channel. Receivers on the
// servo side subscribe to the channel and move the servos and the finger
// display.
//
// # Installation
//
//	go install github.com/gwillem/leapservo/cmd/leapservo@latest
//
// # Usage
//
// Write a configuration file:
//
//	leapservo setup
//
// Track hands and serve the channel:
//
//	leapservo track
//
// On the servo side:
//
//	leapservo receive --relay ws://tracker.local:8080
//
// # Packages
//
//   - cmd/leapservo: CLI with setup, track, receive and ports commands
//   - pkg/servo: Angles, calibration, finger encoding, dead-band filter, payloads and the servo rig
//   - pkg/teleop: Frame processor and tracking loop
//   - pkg/leap: Leap Motion websocket client
//   - pkg/relay: Channel hub and subscriber
//   - pkg/receiver: Servo-side payload consumer
package leapservo
