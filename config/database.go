package config

import (
	"context"
	"fmt"
	"time"

	"accounts/migrations"

	"github.com/pressly/goose/v3"
	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func ConnectionDb(cfg Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DatabaseURL,
		PreferSimpleProtocol: true, // Disable prepared statements completely
	}), &gorm.Config{
		PrepareStmt:    false,
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return db, nil
}

// ConnectWithRetry keeps dialing with exponential backoff until the store
// answers, ctx ends or attempts run out.
func ConnectWithRetry(ctx context.Context, cfg Config, attempts uint64, log logrus.FieldLogger) (*gorm.DB, error) {
	var db *gorm.DB
	backoff := retry.WithCappedDuration(10*time.Second, retry.NewExponential(500*time.Millisecond))
	backoff = retry.WithMaxRetries(attempts, backoff)

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		conn, err := ConnectionDb(cfg)
		if err != nil {
			log.WithError(err).Warn("database not reachable, retrying")
			return retry.RetryableError(err)
		}
		db = conn
		return nil
	})
	if err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate applies the embedded goose migrations on the connection gorm holds.
func Migrate(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, sqlDB, "."); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}
