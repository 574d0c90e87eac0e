package database

import (
	"context"
	"database/sql"

	"FirsatRadar/internal/models"

	_ "modernc.org/sqlite"
)

// SubscriptionStore holds the bot's user registrations and category
// subscriptions. It lives in its own sqlite file so the bot and the scan
// passes never contend for the same database.
type SubscriptionStore struct {
	DB *sql.DB
}

// NewSubscriptionStore opens the preferences database and creates the user,
// category and subscription tables.
func NewSubscriptionStore(path string) (*SubscriptionStore, error) {
	// Same per-connection pragmas as the snapshot store: the bot writes
	// registrations while scan passes read subscriber lists.
	dsn := "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, &StorageError{Op: "open preferences", Err: err}
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &StorageError{Op: "ping preferences", Err: err}
	}

	schema := `
	CREATE TABLE IF NOT EXISTS users (
		"user_id" INTEGER NOT NULL PRIMARY KEY,
		"first_name" TEXT,
		"last_name" TEXT,
		"username" TEXT,
		"join_date" TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS categories (
		"category_id" TEXT NOT NULL PRIMARY KEY,
		"name" TEXT,
		"marketplace" TEXT
	);
	CREATE TABLE IF NOT EXISTS user_subscriptions (
		"user_id" INTEGER NOT NULL,
		"category_id" TEXT NOT NULL,
		"subscription_date" TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (user_id, category_id)
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, &StorageError{Op: "create preference tables", Err: err}
	}
	return &SubscriptionStore{DB: db}, nil
}

// Close closes the database connection.
func (s *SubscriptionStore) Close() error {
	return s.DB.Close()
}

// RegisterUser records a Telegram user, refreshing the profile fields on
// repeat /start.
func (s *SubscriptionStore) RegisterUser(ctx context.Context, u models.User) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO users (user_id, first_name, last_name, username)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			first_name=excluded.first_name,
			last_name=excluded.last_name,
			username=excluded.username;`,
		u.UserID, u.FirstName, u.LastName, u.Username)
	if err != nil {
		return &StorageError{Op: "register user", Err: err}
	}
	return nil
}

// EnsureCategories seeds the category table from configuration.
func (s *SubscriptionStore) EnsureCategories(ctx context.Context, categories []models.Category) error {
	for _, c := range categories {
		_, err := s.DB.ExecContext(ctx, `
			INSERT INTO categories (category_id, name, marketplace)
			VALUES (?, ?, ?)
			ON CONFLICT(category_id) DO UPDATE SET name=excluded.name, marketplace=excluded.marketplace;`,
			c.ID, c.Name, c.Marketplace)
		if err != nil {
			return &StorageError{Op: "ensure category " + c.ID, Err: err}
		}
	}
	return nil
}

// Categories returns all known categories.
func (s *SubscriptionStore) Categories(ctx context.Context) ([]models.Category, error) {
	rows, err := s.DB.QueryContext(ctx,
		"SELECT category_id, name, marketplace FROM categories ORDER BY category_id")
	if err != nil {
		return nil, &StorageError{Op: "list categories", Err: err}
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Marketplace); err != nil {
			return nil, &StorageError{Op: "scan category", Err: err}
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// Subscribe adds a user to a category. Subscribing twice is a no-op.
func (s *SubscriptionStore) Subscribe(ctx context.Context, userID int64, categoryID string) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT OR IGNORE INTO user_subscriptions (user_id, category_id) VALUES (?, ?)`,
		userID, categoryID)
	if err != nil {
		return &StorageError{Op: "subscribe", Err: err}
	}
	return nil
}

// Unsubscribe removes a user from a category.
func (s *SubscriptionStore) Unsubscribe(ctx context.Context, userID int64, categoryID string) error {
	_, err := s.DB.ExecContext(ctx,
		"DELETE FROM user_subscriptions WHERE user_id = ? AND category_id = ?",
		userID, categoryID)
	if err != nil {
		return &StorageError{Op: "unsubscribe", Err: err}
	}
	return nil
}

// UserSubscriptions returns the category ids a user is subscribed to.
func (s *SubscriptionStore) UserSubscriptions(ctx context.Context, userID int64) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx,
		"SELECT category_id FROM user_subscriptions WHERE user_id = ? ORDER BY category_id", userID)
	if err != nil {
		return nil, &StorageError{Op: "user subscriptions", Err: err}
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, &StorageError{Op: "scan subscription", Err: err}
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Subscribers returns the chat ids of every user subscribed to a category.
func (s *SubscriptionStore) Subscribers(ctx context.Context, categoryID string) ([]int64, error) {
	rows, err := s.DB.QueryContext(ctx,
		"SELECT user_id FROM user_subscriptions WHERE category_id = ?", categoryID)
	if err != nil {
		return nil, &StorageError{Op: "subscribers of " + categoryID, Err: err}
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, &StorageError{Op: "scan subscriber", Err: err}
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
