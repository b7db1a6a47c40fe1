package util

import (
	"fmt"
	"log"
	"os"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LoggerConfig struct {
	Level zapcore.Level `env:"LOG_LEVEL" envDefault:"info"`
}

func NewLoggerConfig() (*LoggerConfig, error) {
	var cfg LoggerConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse logger config: %w", err)
	}
	return &cfg, nil
}

// NewZapLogger falls back to info level when LOG_LEVEL cannot be parsed.
func NewZapLogger() *zap.SugaredLogger {
	cfg, err := NewLoggerConfig()
	if err != nil {
		log.Printf("Warning: %v, using info level", err)
		cfg = &LoggerConfig{Level: zapcore.InfoLevel}
	}
	return newZapLogger(cfg)
}

func newZapLogger(cfg *LoggerConfig) *zap.SugaredLogger {
	stdout := zapcore.AddSync(os.Stdout)
	level := zap.NewAtomicLevelAt(cfg.Level)

	developmentCfg := zap.NewDevelopmentEncoderConfig()
	developmentCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder

	consoleEncoder := zapcore.NewConsoleEncoder(developmentCfg)

	core := zapcore.NewTee(
		zapcore.NewCore(consoleEncoder, stdout, level),
	)

	return zap.New(core).Sugar()
}
