package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// prod は JSON、それ以外は色付きのコンソール出力
func New(goEnv string) (*zap.Logger, error) {
	if goEnv == "prod" {
		return zap.NewProduction()
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return cfg.Build()
}

// テストやCLIで出力を捨てたいとき
func Nop() *zap.Logger {
	return zap.NewNop()
}
