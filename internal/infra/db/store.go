package db

import (
	"fmt"

	"ohmage/internal/config"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type Store struct {
	DB *gorm.DB
}

// NewStore opens the configured database. An empty DSN is not an
// error: the server then runs on in-memory stores, which is the
// development and test mode.
func NewStore(cfg config.Config) (*Store, error) {
	if cfg.PostgresDSN == "" {
		return &Store{DB: nil}, nil
	}

	gdb, err := gorm.Open(postgres.Open(cfg.PostgresDSN), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := Migrate(gdb); err != nil {
		return nil, err
	}

	return &Store{DB: gdb}, nil
}

func Migrate(gdb *gorm.DB) error {
	err := gdb.AutoMigrate(
		&UserModel{},
		&ClientModel{},
		&AuthenticationTokenModel{},
		&AuthorizationTokenModel{},
		&AuthorizationCodeModel{},
		&AuditEventModel{},
	)
	if err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}
