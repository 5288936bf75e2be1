package db

import (
	"fmt"

	"github.com/buddy-ya/chat-engine/config"
	"github.com/buddy-ya/chat-engine/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// InitDB opens the store connection and migrates the chat schema.
func InitDB(cfg config.Config) (*gorm.DB, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("db: DATABASE_URL is not set")
	}
	conn, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("db: connect: %w", err)
	}
	if err := Migrate(conn); err != nil {
		return nil, err
	}
	return conn, nil
}

// Migrate applies the schema. Split out so tests can run it against sqlite.
func Migrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(
		&models.Member{},
		&models.Room{},
		&models.Membership{},
		&models.Message{},
		&models.PushToken{},
	); err != nil {
		return fmt.Errorf("db: migrate: %w", err)
	}
	return nil
}
