package config

const (
	defaultOutputDir          = "~/.local/share/colorrec/captures"
	defaultLogDir             = "~/.local/share/colorrec/logs"
	defaultStateDir           = "~/.local/share/colorrec"
	defaultCameraDevice       = "0"
	defaultWarmupFrames       = 3
	defaultLowerBound         = "#c80000"
	defaultUpperBound         = "#ff3c3c"
	defaultOutputPrefix       = "capture"
	defaultOutputFormat       = "png"
	defaultNotifyTimeout      = 10
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultLogRetentionDays   = 30
	defaultDetectionsEnabled  = true
	defaultSessionStartNotify = true
	defaultSessionEndNotify   = true
	defaultFirstDetectNotify  = true
	defaultErrorNotify        = true
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
			StateDir:  defaultStateDir,
		},
		Camera: Camera{
			Device:       defaultCameraDevice,
			WarmupFrames: defaultWarmupFrames,
		},
		Triage: Triage{
			LowerBound: defaultLowerBound,
			UpperBound: defaultUpperBound,
		},
		Output: Output{
			Prefix: defaultOutputPrefix,
			Format: defaultOutputFormat,
		},
		Detections: Detections{
			Enabled: defaultDetectionsEnabled,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			SessionStart:   defaultSessionStartNotify,
			SessionEnd:     defaultSessionEndNotify,
			FirstDetection: defaultFirstDetectNotify,
			Errors:         defaultErrorNotify,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
		// Parsed forms of the default bounds, so a Default() config is
		// usable without going through Load.
		lowerBound: [3]uint8{0xc8, 0x00, 0x00},
		upperBound: [3]uint8{0xff, 0x3c, 0x3c},
	}
}
