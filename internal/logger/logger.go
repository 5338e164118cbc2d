package logger

import (
	"bot-arena-go/internal/models"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var base *zap.Logger

// InitLogger builds the process logger from cfg. It may be called more than
// once: main starts with a console default and re-initializes after the config
// file has been read.
func InitLogger(cfg models.LogConfig) {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level.SetLevel(zap.InfoLevel)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var cores []zapcore.Core
	output := strings.ToLower(cfg.Output)

	if (output == "file" || output == "both") && cfg.File != "" {
		rotating := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		// Files get JSON lines so they can be shipped as-is.
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(rotating), level))
	}

	if output == "console" || output == "both" || len(cores) == 0 {
		consoleConfig := encoderConfig
		consoleConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(consoleConfig), zapcore.AddSync(os.Stdout), level))
	}

	base = zap.New(zapcore.NewTee(cores...), zap.AddCaller())
}

// L returns the process logger, or a development logger when InitLogger has
// not run yet.
func L() *zap.Logger {
	if base == nil {
		l, _ := zap.NewDevelopment()
		return l
	}
	return base
}

// S returns the sugared form of L.
func S() *zap.SugaredLogger {
	return L().Sugar()
}

// Named returns a child of the process logger tagged with a component name.
func Named(component string) *zap.Logger {
	return L().Named(component)
}
