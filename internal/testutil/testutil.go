// Package testutil builds throwaway in-memory databases and fixtures for
// package tests.
package testutil

import (
	"testing"
	"time"

	"github.com/monocle-dev/taskflow/db"
	"github.com/monocle-dev/taskflow/internal/models"
	"github.com/monocle-dev/taskflow/internal/types"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := db.Open("sqlite", ":memory:", logger.Silent)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	if err := db.MigrateDatabase(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close(conn)
	})

	return conn
}

func MustCompany(t *testing.T, conn *gorm.DB, c models.Company) models.Company {
	t.Helper()

	if c.Name == "" {
		c.Name = "Company " + c.ID
	}

	if err := conn.Create(&c).Error; err != nil {
		t.Fatalf("seed company %q: %v", c.Name, err)
	}
	return c
}

func MustUser(t *testing.T, conn *gorm.DB, u models.User) models.User {
	t.Helper()

	if u.Email == "" {
		u.Email = u.ID + "@example.com"
	}
	if u.Name == "" {
		u.Name = "User " + u.ID
	}
	if u.PasswordHash == "" {
		u.PasswordHash = "x"
	}

	if err := conn.Create(&u).Error; err != nil {
		t.Fatalf("seed user %q: %v", u.Email, err)
	}
	return u
}

func MustTask(t *testing.T, conn *gorm.DB, task models.Task) models.Task {
	t.Helper()

	if task.Title == "" {
		task.Title = "Task " + task.ID
	}
	if task.Status == "" {
		task.Status = models.StatusPending
	}
	if task.Priority == "" {
		task.Priority = models.PriorityMedium
	}
	if task.StartDate.IsZero() {
		task.StartDate = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	if task.EndDate.IsZero() {
		task.EndDate = task.StartDate.AddDate(0, 1, 0)
	}

	if err := conn.Create(&task).Error; err != nil {
		t.Fatalf("seed task %q: %v", task.Title, err)
	}
	return task
}

func Ptr[T any](v T) *T {
	return &v
}

func Identity(u models.User) types.Identity {
	id := types.Identity{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
	if u.CompanyID != nil {
		id.CompanyID = *u.CompanyID
	}
	return id
}
