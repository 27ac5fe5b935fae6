package server

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger builds a zap.Logger from the server's LogPath/LogLevel: a
// rotating file via lumberjack when LogPath is set, stderr otherwise.
func NewLogger(logPath, level string) *zap.Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encoderConfig)

	var w zapcore.WriteSyncer
	if logPath != "" {
		w = zapcore.AddSync(&lumberjack.Logger{
			Filename:  logPath,
			MaxSize:   100,
			MaxAge:    28,
			LocalTime: true,
		})
	} else {
		w = zapcore.AddSync(os.Stderr)
	}

	core := zapcore.NewCore(encoder, w, toZapLevel(level))
	return zap.New(core, zap.AddCaller())
}

func toZapLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
