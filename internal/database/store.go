// Package database persists users, interests, posts and sent markers.
package database

import (
	"context"
	"errors"
	"time"

	"github.com/thomaskoefod/digestr/pkg/models"
)

var (
	ErrUserExists   = errors.New("user already exists")
	ErrUserNotFound = errors.New("user not found")
)

// Store is implemented by the SQLite and PostgreSQL backends.
type Store interface {
	Close() error

	// DatabaseType returns "SQLite" or "PostgreSQL".
	DatabaseType() string

	// User operations
	CreateUser(ctx context.Context, email string, freq models.Frequency, keywords []string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsersByFrequency(ctx context.Context, freq models.Frequency) ([]models.User, error)
	GetInterests(ctx context.Context, userID int64) ([]string, error)
	DeleteUser(ctx context.Context, userID int64) error

	// Post operations
	PostExists(ctx context.Context, url string) (bool, error)
	InsertPost(ctx context.Context, post *models.Post) (bool, error)
	ListPosts(ctx context.Context) ([]models.Post, error)

	// Sent markers
	SentURLs(ctx context.Context, userID int64) (map[string]bool, error)
	RecordSent(ctx context.Context, userID int64, urls []string, sentAt time.Time) error
}

// Open picks a backend from the driver name.
func Open(driver, path, dsn string) (Store, error) {
	switch driver {
	case "", "sqlite":
		return New(path)
	case "postgres":
		return NewPostgres(dsn)
	}
	return nil, errors.New("unsupported database driver: " + driver)
}
