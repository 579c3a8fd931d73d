package seed

import (
	"fmt"
	"log"

	"chronicle/internal/models"

	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers    int
	NumPosts    int
	ShouldClean bool
}

var (
	groupNames = []string{
		"Editors", "Moderators", "Contributors", "Reviewers", "Curators",
	}

	categoryNames = []string{
		"Technology", "Music", "Travel", "Food", "Books",
		"Science", "Gaming", "Fitness", "Photography", "Finance",
	}
)

// Seed populates the database with test data
func Seed(db *gorm.DB, opts Options) error {
	log.Printf("Starting database seeding with %d users and %d posts...", opts.NumUsers, opts.NumPosts)

	if opts.ShouldClean {
		if err := ClearAll(db); err != nil {
			log.Println("Warning: could not clear all existing data, continuing anyway...")
		}
	}

	f := NewFactory(db)

	admin, err := f.CreateUser(func(u *models.User) {
		u.Username = "admin"
		u.Email = "admin@chronicle.dev"
		u.IsStaff = true
		u.IsSuperuser = true
	})
	if err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}

	users := make([]*models.User, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		user, err := f.CreateUser()
		if err != nil {
			return fmt.Errorf("failed to create users: %w", err)
		}
		users = append(users, user)
	}
	log.Printf("✓ %d test users created", len(users))

	groups := make([]*models.Group, 0, len(groupNames))
	for _, name := range groupNames {
		group, err := f.CreateGroup(name)
		if err != nil {
			return fmt.Errorf("failed to create groups: %w", err)
		}
		groups = append(groups, group)
	}
	for i, user := range users {
		group := groups[i%len(groups)]
		if err := db.Model(user).Association("Groups").Append(group); err != nil {
			return fmt.Errorf("failed to assign groups: %w", err)
		}
	}
	log.Printf("✓ %d groups created", len(groups))

	categories := make([]*models.Category, 0, len(categoryNames))
	for _, name := range categoryNames {
		category, err := f.CreateCategory(name, nil, admin)
		if err != nil {
			return fmt.Errorf("failed to create categories: %w", err)
		}
		categories = append(categories, category)
	}
	log.Printf("✓ %d categories created", len(categories))

	posts := make([]*models.Post, 0, opts.NumPosts)
	for i := 0; i < opts.NumPosts; i++ {
		owner := users[f.rng.Intn(len(users))]
		category := categories[f.rng.Intn(len(categories))]
		post, err := f.CreatePost(owner, category)
		if err != nil {
			return fmt.Errorf("failed to create posts: %w", err)
		}
		posts = append(posts, post)
	}
	log.Printf("✓ %d posts created", len(posts))

	visits := 0
	for _, post := range posts {
		readers := f.rng.Intn(4)
		for i := 0; i < readers; i++ {
			reader := users[f.rng.Intn(len(users))]
			if reader.ID == post.OwnerID {
				continue
			}
			if _, err := f.CreateVisitLog(reader, post); err != nil {
				return fmt.Errorf("failed to create visit logs: %w", err)
			}
			visits++
		}
	}
	log.Printf("✓ %d visit logs created", visits)

	log.Println("Seeding complete")
	return nil
}

// ClearAll removes all seedable rows in dependency order.
func ClearAll(db *gorm.DB) error {
	tables := []string{
		"visit_logs", "images", "posts", "categories",
		"user_groups", "groups", "users",
	}
	for _, table := range tables {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}
