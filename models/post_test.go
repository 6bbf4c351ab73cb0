package models_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/avolkov/inkwell/models"
)

// openDB enables sqlite foreign key enforcement so the declared referential
// actions actually run.
func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", "#", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(&models.User{}, &models.Group{}, &models.Post{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func fixtures(t *testing.T, db *gorm.DB) (models.User, models.Group, models.Post) {
	t.Helper()
	user := models.User{Username: "writer"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	group := models.Group{Title: "News", Slug: "news"}
	if err := db.Create(&group).Error; err != nil {
		t.Fatalf("create group: %v", err)
	}
	post := models.Post{Text: "hello", AuthorID: user.ID, GroupID: &group.ID}
	if err := db.Create(&post).Error; err != nil {
		t.Fatalf("create post: %v", err)
	}
	return user, group, post
}

func TestUserDeleteCascadesToPosts(t *testing.T) {
	db := openDB(t)
	user, _, post := fixtures(t, db)

	if err := db.Delete(&user).Error; err != nil {
		t.Fatalf("delete user: %v", err)
	}

	var gone models.Post
	err := db.First(&gone, post.ID).Error
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("post survived its author's deletion: err = %v", err)
	}
}

func TestGroupDeleteClearsPostGroup(t *testing.T) {
	db := openDB(t)
	_, group, post := fixtures(t, db)

	if err := db.Delete(&group).Error; err != nil {
		t.Fatalf("delete group: %v", err)
	}

	var kept models.Post
	if err := db.First(&kept, post.ID).Error; err != nil {
		t.Fatalf("post did not survive its group's deletion: %v", err)
	}
	if kept.GroupID != nil {
		t.Errorf("group_id = %d, want NULL", *kept.GroupID)
	}
	if kept.Text != post.Text || kept.AuthorID != post.AuthorID {
		t.Error("unrelated post fields changed on group deletion")
	}
}

func TestPostRequiresExistingAuthor(t *testing.T) {
	db := openDB(t)

	post := models.Post{Text: "orphan", AuthorID: 999}
	if err := db.Create(&post).Error; err == nil {
		t.Error("post created with a nonexistent author")
	}
}

func TestPreview(t *testing.T) {
	short := models.Post{Text: "short"}
	if short.Preview() != "short" {
		t.Errorf("Preview = %q", short.Preview())
	}
	long := models.Post{Text: "0123456789abcdefghij"}
	if long.Preview() != "0123456789abcde" {
		t.Errorf("Preview = %q, want first 15 runes", long.Preview())
	}
}
