package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/thomaskoefod/digestr/pkg/models"
)

// CreateUser inserts a user and their interests in one transaction
func (db *DB) CreateUser(ctx context.Context, email string, freq models.Frequency, keywords []string) (*models.User, error) {
	user := &models.User{Email: email, Frequency: freq, CreatedAt: time.Now().UTC()}

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			"INSERT INTO users (email, frequency, created_at) VALUES (?, ?, ?)",
			user.Email, string(user.Frequency), user.CreatedAt,
		)
		if isUniqueViolation(err) {
			return ErrUserExists
		}
		if err != nil {
			return fmt.Errorf("inserting user: %w", err)
		}

		user.ID, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("getting last insert id: %w", err)
		}

		for _, kw := range keywords {
			if _, err := tx.ExecContext(ctx, "INSERT INTO interests (user_id, keyword) VALUES (?, ?)", user.ID, kw); err != nil {
				return fmt.Errorf("inserting interest: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserByEmail retrieves a single user
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	var freq string
	err := db.QueryRowContext(ctx,
		"SELECT id, email, frequency, created_at FROM users WHERE email = ?", email,
	).Scan(&user.ID, &user.Email, &freq, &user.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}

	user.Frequency = models.Frequency(freq)
	return &user, nil
}

// ListUsersByFrequency retrieves users subscribed at freq, oldest first
func (db *DB) ListUsersByFrequency(ctx context.Context, freq models.Frequency) ([]models.User, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT id, email, frequency, created_at FROM users WHERE frequency = ? ORDER BY id", string(freq))
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		var f string
		if err := rows.Scan(&user.ID, &user.Email, &f, &user.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		user.Frequency = models.Frequency(f)
		users = append(users, user)
	}

	return users, rows.Err()
}

// GetInterests retrieves a user's keywords in insertion order
func (db *DB) GetInterests(ctx context.Context, userID int64) ([]string, error) {
	rows, err := db.QueryContext(ctx, "SELECT keyword FROM interests WHERE user_id = ? ORDER BY id", userID)
	if err != nil {
		return nil, fmt.Errorf("querying interests: %w", err)
	}
	defer rows.Close()

	var keywords []string
	for rows.Next() {
		var kw string
		if err := rows.Scan(&kw); err != nil {
			return nil, fmt.Errorf("scanning interest: %w", err)
		}
		keywords = append(keywords, kw)
	}

	return keywords, rows.Err()
}

// DeleteUser removes a user with their interests and sent markers
func (db *DB) DeleteUser(ctx context.Context, userID int64) error {
	_, err := db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", userID)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	return nil
}

// PostExists reports whether a post with url is already stored
func (db *DB) PostExists(ctx context.Context, url string) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM posts WHERE url = ?)", url).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking post: %w", err)
	}
	return exists, nil
}

// InsertPost stores post unless its URL is already present. The first writer wins.
func (db *DB) InsertPost(ctx context.Context, post *models.Post) (bool, error) {
	embedding, err := json.Marshal(post.Embedding)
	if err != nil {
		return false, fmt.Errorf("encoding embedding: %w", err)
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO posts (url, title, published_at, summary, embedding) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(url) DO NOTHING`,
		post.URL, post.Title, post.PublishedAt.UTC(), post.Summary, string(embedding),
	)
	if err != nil {
		return false, fmt.Errorf("inserting post: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("getting rows affected: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	if id, err := result.LastInsertId(); err == nil {
		post.ID = id
	}
	return true, nil
}

// ListPosts retrieves every stored post, newest first
func (db *DB) ListPosts(ctx context.Context) ([]models.Post, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT id, url, title, published_at, summary, embedding FROM posts ORDER BY published_at DESC, id")
	if err != nil {
		return nil, fmt.Errorf("querying posts: %w", err)
	}
	defer rows.Close()

	var posts []models.Post
	for rows.Next() {
		var post models.Post
		var embedding string
		if err := rows.Scan(&post.ID, &post.URL, &post.Title, &post.PublishedAt, &post.Summary, &embedding); err != nil {
			return nil, fmt.Errorf("scanning post: %w", err)
		}
		if err := json.Unmarshal([]byte(embedding), &post.Embedding); err != nil {
			return nil, fmt.Errorf("decoding embedding for %s: %w", post.URL, err)
		}
		posts = append(posts, post)
	}

	return posts, rows.Err()
}

// SentURLs returns the set of post URLs already mailed to a user
func (db *DB) SentURLs(ctx context.Context, userID int64) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, "SELECT post_url FROM sent_posts WHERE user_id = ?", userID)
	if err != nil {
		return nil, fmt.Errorf("querying sent posts: %w", err)
	}
	defer rows.Close()

	sent := make(map[string]bool)
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("scanning sent post: %w", err)
		}
		sent[url] = true
	}

	return sent, rows.Err()
}

// RecordSent marks urls as sent to a user in one transaction. Existing markers are kept.
func (db *DB) RecordSent(ctx context.Context, userID int64, urls []string, sentAt time.Time) error {
	if len(urls) == 0 {
		return nil
	}
	return db.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			"INSERT INTO sent_posts (user_id, post_url, sent_at) VALUES (?, ?, ?) ON CONFLICT(user_id, post_url) DO NOTHING")
		if err != nil {
			return fmt.Errorf("preparing sent insert: %w", err)
		}
		defer stmt.Close()

		for _, url := range urls {
			if _, err := stmt.ExecContext(ctx, userID, url, sentAt.UTC()); err != nil {
				return fmt.Errorf("recording sent post %s: %w", url, err)
			}
		}
		return nil
	})
}
