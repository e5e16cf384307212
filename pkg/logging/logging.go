/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package logging

import (
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.SugaredLogger to provide structured logging
type Logger struct {
	*zap.SugaredLogger
	mu sync.Mutex
}

// Config represents the logging configuration
type Config struct {
	Enabled     bool   `yaml:"enabled"`
	Level       string `yaml:"level"`
	Caller      bool   `yaml:"caller"`
	Development bool   `yaml:"development"`
	Output      string `yaml:"output"`
	Name        string `yaml:"name"`
}

// Log levels
const (
	Debug   string = "DEBUG"
	Info    string = "INFO"
	Warning string = "WARNING"
	Error   string = "ERROR"
)

// DefaultConfig for logging
var DefaultConfig = Config{
	Enabled: true,
	Level:   Info,
	Caller:  true,
}

// New returns a logger instance with the specified name
func New(name string) *Logger {
	config := DefaultConfig
	config.Name = name
	logger := &Logger{}
	logger.updateConfig(&config)
	return logger
}

// SetupWithConfig rebuilds a logger with the given config, keeping its name.
func (l *Logger) SetupWithConfig(config *Config) {
	l.updateConfig(config)
}

// ErrorStackTrace prints the stack trace present in the error type
func (l *Logger) ErrorStackTrace(err error) {
	if err == nil {
		return
	}
	l.WithOptions(zap.AddCallerSkip(1)).Errorf("%+v", err)
}

// Level returns the current logging level
func (l *Logger) Level() zapcore.Level {
	return l.Desugar().Level()
}

func (l *Logger) updateConfig(config *Config) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.SugaredLogger = createLogger(config).Sugar()
}

func createLogger(config *Config) *zap.Logger {
	if config == nil || !config.Enabled {
		return zap.NewNop()
	}

	level := zap.NewAtomicLevel()
	switch strings.ToUpper(config.Level) {
	case Debug:
		level.SetLevel(zap.DebugLevel)
	case Info:
		level.SetLevel(zap.InfoLevel)
	case Warning:
		level.SetLevel(zap.WarnLevel)
	case Error:
		level.SetLevel(zap.ErrorLevel)
	default:
		level.SetLevel(zap.InfoLevel)
	}

	outputs := []string{"stderr"}
	if config.Output != "" {
		outputs = append(outputs, config.Output)
	}

	var encCfg zapcore.EncoderConfig
	if config.Development {
		encCfg = zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encCfg = zap.NewProductionEncoderConfig()
	}
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeName = zapcore.FullNameEncoder

	zapConfig := zap.Config{
		Level:       level,
		Development: config.Development,
		Sampling: &zap.SamplingConfig{
			Initial:    100,
			Thereafter: 100,
		},
		Encoding:          "console",
		EncoderConfig:     encCfg,
		DisableStacktrace: true,
		OutputPaths:       outputs,
		ErrorOutputPaths:  outputs,
	}

	logger := zap.Must(zapConfig.Build(zap.WithCaller(config.Caller)))
	if config.Name != "" {
		logger = logger.Named(config.Name)
	}
	return logger
}
