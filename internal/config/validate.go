package config

import (
	"errors"
	"fmt"
	"strings"
)

var validOutputFormats = map[string]struct{}{
	"png":  {},
	"jpeg": {},
	"bmp":  {},
}

var validPixelFormats = map[string]struct{}{
	"":      {},
	"auto":  {},
	"rgb8":  {},
	"bgr8":  {},
	"mono8": {},
	"yuyv":  {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateCamera(); err != nil {
		return err
	}
	if err := c.validateTriage(); err != nil {
		return err
	}
	if err := c.validateOutput(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return errors.New("paths.output_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateCamera() error {
	if strings.TrimSpace(c.Camera.Device) == "" {
		return errors.New("camera.device must be set (an index like \"0\" or a /dev/video path)")
	}
	if _, ok := validPixelFormats[c.Camera.PixelFormat]; !ok {
		return fmt.Errorf("camera.pixel_format: unsupported value %q (use rgb8, bgr8, mono8, or yuyv)", c.Camera.PixelFormat)
	}
	return nil
}

func (c *Config) validateTriage() error {
	for channel := 0; channel < 3; channel++ {
		if c.lowerBound[channel] > c.upperBound[channel] {
			return fmt.Errorf("triage.lower_bound channel %d (%d) exceeds triage.upper_bound (%d)",
				channel, c.lowerBound[channel], c.upperBound[channel])
		}
	}
	if c.Triage.RetryDelayMS < 0 {
		return errors.New("triage.retry_delay_ms must be >= 0")
	}
	if c.Triage.MaxFrames < 0 {
		return errors.New("triage.max_frames must be >= 0 (0 means unbounded)")
	}
	return nil
}

func (c *Config) validateOutput() error {
	if strings.TrimSpace(c.Output.Prefix) == "" {
		return errors.New("output.prefix must be set")
	}
	if _, ok := validOutputFormats[c.Output.Format]; !ok {
		return fmt.Errorf("output.format: unsupported value %q (use png, jpeg, or bmp)", c.Output.Format)
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive (seconds)")
	}
	return nil
}
