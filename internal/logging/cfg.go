package logging

import "go.uber.org/zap/zapcore"

// Config is the configuration for the logging subsystem.
type Config struct {
	// Level is the logging level.
	Level zapcore.Level `yaml:"level"`
	// LogFile is read from the config file but is not consulted by the
	// daemon; CAN trace capture is attached only by calling
	// fabric.OpenLog.
	LogFile string `yaml:"log_file"`
}

// DefaultConfig returns the logging defaults: info level, no capture
// file.
func DefaultConfig() Config {
	return Config{Level: zapcore.InfoLevel}
}
