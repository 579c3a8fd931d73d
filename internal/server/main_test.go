package server

import (
	"testing"

	"chronicle/internal/authz"
	"chronicle/internal/config"
	"chronicle/internal/models"
	"chronicle/internal/repository"
	"chronicle/internal/service"
	"chronicle/internal/storage"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// newTestServer builds a Server over an in-memory sqlite database with the
// full repository and service stack wired, but without the Prometheus
// middleware (its collectors register globally and cannot be re-registered
// across tests).
func newTestServer(t *testing.T) (*Server, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Group{},
		&models.Category{},
		&models.Post{},
		&models.Image{},
		&models.VisitLog{},
	); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}

	cfg := &config.Config{
		JWTSecret:       "test-secret-which-is-long-enough!!",
		Port:            "0",
		Env:             "test",
		MediaRoot:       t.TempDir(),
		MaxUploadSizeMB: 5,
	}

	userRepo := repository.NewUserRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	postRepo := repository.NewPostRepository(db)
	imageRepo := repository.NewImageRepository(db)
	visitRepo := repository.NewVisitLogRepository(db)
	store := storage.NewStore(cfg.MediaRoot, cfg.MaxUploadSizeMB)

	s := &Server{
		config:       cfg,
		db:           db,
		store:        store,
		userRepo:     userRepo,
		groupRepo:    groupRepo,
		categoryRepo: categoryRepo,
		postRepo:     postRepo,
		imageRepo:    imageRepo,
		visitRepo:    visitRepo,
	}
	s.userService = service.NewUserService(userRepo, groupRepo)
	s.groupService = service.NewGroupService(groupRepo)
	s.categoryService = service.NewCategoryService(categoryRepo)
	s.postService = service.NewPostService(postRepo, visitRepo, categoryRepo, store)
	s.imageService = service.NewImageService(imageRepo, store)
	s.visitService = service.NewVisitLogService(visitRepo)

	return s, db
}

// createTestUser persists a user with a known password ("Sup3rSecret!Pass").
func createTestUser(t *testing.T, db *gorm.DB, username string, staff bool) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("Sup3rSecret!Pass"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: string(hash),
		IsActive: true,
		IsStaff:  staff,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return user
}

// asUser returns middleware that injects the given user as the resolved
// caller, standing in for AuthRequired.
func asUser(user *models.User) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if user != nil {
			c.Locals("userID", user.ID.String())
			c.Locals("caller", authz.Caller{User: user})
		}
		return c.Next()
	}
}
