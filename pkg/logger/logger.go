package logger

import (
	"os"

	"speakopoly_backend/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log 全局日志，初始化前为空实现，便于测试直接调用
var Log = zap.NewNop()

func encoderConfig() zapcore.EncoderConfig {
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "time"
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	ec.EncodeDuration = zapcore.MillisDurationEncoder
	return ec
}

// InitLogger 文件输出 JSON，控制台输出可读格式，debug 模式下记录调试日志
func InitLogger(cfg *config.Config) {
	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	if cfg.Server.Mode == "debug" {
		level.SetLevel(zap.DebugLevel)
	}

	file := &lumberjack.Logger{
		Filename:   cfg.Log.File,
		MaxSize:    cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAgeDays,
		Compress:   true,
	}
	if file.Filename == "" {
		file.Filename = "logs/speakopoly.log"
	}

	console := encoderConfig()
	console.EncodeLevel = zapcore.CapitalColorLevelEncoder

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), zapcore.AddSync(file), level),
		zapcore.NewCore(zapcore.NewConsoleEncoder(console), zapcore.Lock(os.Stdout), level),
	)

	Log = zap.New(core, zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel)).
		With(zap.String("service", "speakopoly"), zap.String("mode", cfg.Server.Mode))
}
