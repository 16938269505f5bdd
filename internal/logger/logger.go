package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Conf selects the log level and an optional rotated log file.
type Conf struct {
	Level string
	File  string

	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// SetUp builds the process logger. With an empty File it logs JSON to stdout.
func SetUp(c Conf) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if c.Level != "" {
		if err := level.UnmarshalText([]byte(c.Level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", c.Level, err)
		}
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var sink zapcore.WriteSyncer
	if c.File == "" {
		sink = zapcore.Lock(os.Stdout)
	} else {
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename:   c.File,
			MaxSize:    orDefault(c.MaxSizeMB, 50),
			MaxBackups: orDefault(c.MaxBackups, 5),
			MaxAge:     orDefault(c.MaxAgeDays, 28),
			Compress:   true,
		})
	}

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), sink, level)
	return zap.New(core, zap.AddCaller()), nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
