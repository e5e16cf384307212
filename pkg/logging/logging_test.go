/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

// TestNewLoggerDefaults verifies New yields an info-level logger.
func TestNewLoggerDefaults(t *testing.T) {
	logger := New("test")
	require.NotNil(t, logger.SugaredLogger)
	assert.Equal(t, zapcore.InfoLevel, logger.Level())
}

// TestSetupWithConfig verifies level reconfiguration, case-insensitively.
func TestSetupWithConfig(t *testing.T) {
	tests := []struct {
		level string
		want  zapcore.Level
	}{
		{Debug, zapcore.DebugLevel},
		{"debug", zapcore.DebugLevel},
		{Info, zapcore.InfoLevel},
		{Warning, zapcore.WarnLevel},
		{Error, zapcore.ErrorLevel},
		{"bogus", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger := New("test")
			logger.SetupWithConfig(&Config{Enabled: true, Level: tt.level})
			assert.Equal(t, tt.want, logger.Level())
		})
	}
}

// TestDisabledLogger verifies a disabled config produces a no-op logger that
// never panics.
func TestDisabledLogger(t *testing.T) {
	logger := New("test")
	logger.SetupWithConfig(&Config{Enabled: false})
	logger.Infof("dropped %d", 1)
	logger.ErrorStackTrace(nil)
}
