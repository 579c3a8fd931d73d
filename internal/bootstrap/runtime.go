// Package bootstrap wires runtime dependencies for command entry points.
package bootstrap

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"chronicle/internal/cache"
	"chronicle/internal/config"
	"chronicle/internal/database"
	"chronicle/internal/models"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// InitRuntime connects to DB and Redis and ensures the development root
// account when enabled.
func InitRuntime(cfg *config.Config) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}
	if err := database.ConnectReadReplica(cfg); err != nil {
		log.Printf("read replica unavailable, falling back to primary: %v", err)
	}

	// Init Redis (may result in nil client if unreachable)
	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if err := ensureDevRootAdmin(cfg, db); err != nil {
		return nil, nil, fmt.Errorf("failed to bootstrap development root admin: %w", err)
	}

	return db, r, nil
}

func ensureDevRootAdmin(cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil {
		return nil
	}
	if !strings.EqualFold(cfg.Env, "development") || !cfg.DevBootstrapRoot {
		return nil
	}

	username := strings.TrimSpace(cfg.DevRootUsername)
	if username == "" {
		username = "chronicle_root"
	}
	email := strings.TrimSpace(strings.ToLower(cfg.DevRootEmail))
	if email == "" {
		email = "root@chronicle.local"
	}
	password := cfg.DevRootPassword
	if password == "" {
		return fmt.Errorf("DEV_ROOT_PASSWORD must be set when DEV_BOOTSTRAP_ROOT is enabled")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash root password: %w", err)
	}

	return db.Transaction(func(tx *gorm.DB) error {
		var root models.User
		findErr := tx.Where("username = ?", username).First(&root).Error
		switch {
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			root = models.User{
				Username:    username,
				Email:       email,
				Password:    string(hashedPassword),
				IsActive:    true,
				IsStaff:     true,
				IsSuperuser: true,
			}
			if err := tx.Create(&root).Error; err != nil {
				return err
			}
			log.Printf("Development root account %q created", username)
		case findErr != nil:
			return findErr
		default:
			updates := map[string]any{
				"is_active":    true,
				"is_staff":     true,
				"is_superuser": true,
			}
			if cfg.DevRootForceCredentials {
				updates["email"] = email
				updates["password"] = string(hashedPassword)
			}
			if err := tx.Model(&models.User{}).
				Where("id = ?", root.ID).Updates(updates).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
