// Package seed provides helpers to create test and demo data for the
// application database. These helpers are intended for development and
// testing only.
package seed

import (
	"fmt"
	"math/rand"
	"time"

	"chronicle/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// seedPassword is the login password for every generated account.
const seedPassword = "ChroniclePass123!"

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db *gorm.DB
	// one bcrypt hash shared by all generated users; hashing per user
	// makes large seeds unbearably slow
	passwordHash string
	rng          *rand.Rand
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB) *Factory {
	gofakeit.Seed(time.Now().UnixNano())
	hash, _ := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.DefaultCost)
	return &Factory{
		db:           db,
		passwordHash: string(hash),
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// CreateUser constructs and persists a sample account. Optional override
// functions may modify the generated user before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	user := &models.User{
		Username:   gofakeit.Username() + fmt.Sprintf("%d", gofakeit.Number(100, 999)),
		Email:      gofakeit.Email(),
		FirstName:  gofakeit.FirstName(),
		LastName:   gofakeit.LastName(),
		ProfilePic: fmt.Sprintf("https://i.pravatar.cc/150?u=%s", gofakeit.UUID()),
		Password:   f.passwordHash,
		IsActive:   true,
	}

	for _, override := range overrides {
		override(user)
	}

	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// CreateGroup persists a group with the given name.
func (f *Factory) CreateGroup(name string) (*models.Group, error) {
	group := &models.Group{Name: name}
	if err := f.db.Create(group).Error; err != nil {
		return nil, err
	}
	return group, nil
}

// CreateCategory persists a category, optionally parented under another.
func (f *Factory) CreateCategory(name string, parent *models.Category, createdBy *models.User) (*models.Category, error) {
	category := &models.Category{Name: name}
	if parent != nil {
		category.ParentID = &parent.ID
	}
	if createdBy != nil {
		category.CreatedByID = &createdBy.ID
	}
	if err := f.db.Create(category).Error; err != nil {
		return nil, err
	}
	return category, nil
}

// CreatePost constructs and persists a post for the given owner with a
// realistic created_at spread over the last 90 days.
func (f *Factory) CreatePost(owner *models.User, category *models.Category, overrides ...func(*models.Post)) (*models.Post, error) {
	post := &models.Post{
		Title:       gofakeit.Sentence(4),
		Description: gofakeit.Sentence(8),
		Body:        gofakeit.Paragraph(2, 4, 8, "\n"),
		OwnerID:     owner.ID,
		IsPublic:    true,
		ViewCount:   int64(f.rng.Intn(500)),
	}
	if category != nil {
		post.CategoryID = &category.ID
	}

	daysBack := f.rng.Intn(90)
	hoursBack := f.rng.Intn(24)
	post.CreatedAt = time.Now().
		Add(-time.Duration(daysBack)*24*time.Hour - time.Duration(hoursBack)*time.Hour)

	for _, override := range overrides {
		override(post)
	}

	if err := f.db.Create(post).Error; err != nil {
		return nil, err
	}
	return post, nil
}

// CreateVisitLog persists a reading session of reader on post. Roughly
// two thirds of generated sessions are closed.
func (f *Factory) CreateVisitLog(reader *models.User, post *models.Post) (*models.VisitLog, error) {
	started := post.CreatedAt.Add(time.Duration(f.rng.Intn(72)) * time.Hour)
	log := &models.VisitLog{
		PostID:    post.ID,
		UserID:    reader.ID,
		StartedAt: started,
	}
	if f.rng.Intn(3) != 0 {
		ended := started.Add(time.Duration(30+f.rng.Intn(600)) * time.Second)
		log.EndedAt = &ended
	}

	if err := f.db.Create(log).Error; err != nil {
		return nil, err
	}
	return log, nil
}
