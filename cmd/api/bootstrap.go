package main

import (
	"context"
	"fmt"

	"digistore/internal/config"
	"digistore/internal/infra/db"
	"digistore/internal/infra/payment"
	"digistore/internal/infra/storage"
	"digistore/internal/logger"
	"digistore/internal/server"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 全コマンド共通：設定・ログ・DB
type app struct {
	cfg config.Config
	log *zap.Logger
	db  *gorm.DB
}

func bootstrap() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.GoEnv)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	gdb, err := db.Connect(cfg, log)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, log: log, db: gdb}, nil
}

func (a *app) close() {
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = a.log.Sync()
}

// serve と routes で使う外部依存
func (a *app) deps(ctx context.Context) (server.Deps, func(), error) {
	disk, err := storage.New(ctx, a.cfg)
	if err != nil {
		return server.Deps{}, nil, err
	}
	gateway, err := payment.New(a.cfg)
	if err != nil {
		return server.Deps{}, nil, err
	}

	d := server.Deps{
		DB:       a.db,
		Disk:     disk,
		Gateway:  gateway,
		Verifier: payment.NewHMACVerifier(a.cfg.PaymentWebhookSecret),
	}
	cleanup := func() {}

	if a.cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     a.cfg.RedisAddr,
			Password: a.cfg.RedisPassword,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return server.Deps{}, nil, fmt.Errorf("redis: ping: %w", err)
		}
		d.Redis = rdb
		cleanup = func() { _ = rdb.Close() }
	} else {
		a.log.Warn("REDIS_ADDR not set; catalog cache disabled, guest sessions are cookie only")
	}
	return d, cleanup, nil
}
