package logging

import (
	"strings"

	"go.uber.org/zap/zapcore"
)

// TraceLevel sits one step below Debug. The exporter logs each
// connection's accept and close at this level.
const TraceLevel = zapcore.DebugLevel - 1

// LevelFromString parses a level name, case-insensitively, including
// "trace". An empty name means info. Unknown names return InfoLevel and an
// error.
func LevelFromString(name string) (zapcore.Level, error) {
	if strings.EqualFold(name, "trace") {
		return TraceLevel, nil
	}
	level, err := zapcore.ParseLevel(name)
	if err != nil {
		return zapcore.InfoLevel, err
	}
	return level, nil
}

// encodeLevel is zapcore.LowercaseLevelEncoder with a name for TraceLevel.
func encodeLevel(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	if l == TraceLevel {
		enc.AppendString("trace")
		return
	}
	zapcore.LowercaseLevelEncoder(l, enc)
}
