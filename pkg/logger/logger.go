package logger

import (
	"log"
	"order_fulfillment/internal/pkg/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log 全局日志实例
var Log *zap.Logger

// InitLogger 初始化日志
func InitLogger() {
	var err error

	if config.GlobalConfig.App.Debug {
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		Log, err = cfg.Build()
	} else {
		cfg := zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		Log, err = cfg.Build()
	}

	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(Log)
}

// Sync 刷新日志缓冲区（进程退出前调用）
func Sync() {
	if Log != nil {
		_ = Log.Sync()
	}
}
