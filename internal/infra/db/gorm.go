package db

import (
	"fmt"
	"time"

	"digistore/internal/config"
	"digistore/internal/domain/model"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Connect はDBに接続して *gorm.DB を返す。
func Connect(cfg config.Config, log *zap.Logger) (*gorm.DB, error) {
	dialector, err := buildDialector(cfg.DBDriver, dsn(cfg))
	if err != nil {
		return nil, err
	}

	level := gormlogger.Warn
	if !cfg.IsProd() {
		level = gormlogger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		// unique違反を gorm.ErrDuplicatedKey に変換させる
		TranslateError: true,
		Logger: gormlogger.New(zap.NewStdLog(log.Named("gorm")), gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("db: open: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("db: get sql.DB: %w", err)
	}
	if cfg.DBDriver == "sqlite" {
		// sqlite は書き込みが1本
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("db: ping: %w", err)
	}

	return db, nil
}

// スキーマを最新にする
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(model.All()...)
}

func buildDialector(driver string, dsn string) (gorm.Dialector, error) {
	switch driver {
	case "postgres":
		return postgres.Open(dsn), nil
	case "sqlite":
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q (supported: postgres, sqlite)", driver)
	}
}

// DATABASE_URL があれば最優先で使う
func dsn(cfg config.Config) string {
	if cfg.DatabaseURL != "" {
		return cfg.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDB, cfg.PostgresSSLMode,
	)
}
