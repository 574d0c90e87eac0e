package database

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"regexp"
	"time"

	"FirsatRadar/internal/models"

	_ "modernc.org/sqlite" // pure Go driver
)

// StorageError wraps any failure of the underlying sqlite file. Callers must
// treat it as retryable on the next pass, not swallow it.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// marketplaceRe restricts marketplace names to what is safe to splice into a
// table name.
var marketplaceRe = regexp.MustCompile(`^[a-z0-9_]+$`)

// Store persists product snapshots, one table per marketplace.
type Store struct {
	DB *sql.DB
}

// New opens (or creates) the sqlite database at path and prepares a snapshot
// table for each given marketplace.
func New(path string, marketplaces []string) (*Store, error) {
	// Immediate transactions take the write lock up front, so the
	// read-compare-write in Upsert cannot interleave with another writer.
	// WAL and busy_timeout go in the DSN so every pooled connection gets
	// them: a contending writer then waits for the lock instead of failing
	// with SQLITE_BUSY.
	dsn := "file:" + path + "?_txlock=immediate" +
		"&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, &StorageError{Op: "open", Err: err}
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &StorageError{Op: "ping", Err: err}
	}

	s := &Store{DB: db}
	for _, m := range marketplaces {
		if err := s.ensureTable(m); err != nil {
			db.Close()
			return nil, err
		}
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.DB.Close()
}

func tableName(marketplace string) (string, error) {
	if !marketplaceRe.MatchString(marketplace) {
		return "", fmt.Errorf("invalid marketplace name %q", marketplace)
	}
	return marketplace + "_products", nil
}

func (s *Store) ensureTable(marketplace string) error {
	table, err := tableName(marketplace)
	if err != nil {
		return &StorageError{Op: "ensure table", Err: err}
	}

	createSQL := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %s (
		"product_id" TEXT NOT NULL PRIMARY KEY,
		"name" TEXT,
		"url" TEXT,
		"list_price" REAL,
		"sale_price" REAL,
		"discount_percent" REAL,
		"first_seen_at" DATETIME,
		"last_seen_at" DATETIME,
		"notified" BOOLEAN DEFAULT 0
	);`, table)

	if _, err := s.DB.Exec(createSQL); err != nil {
		return &StorageError{Op: "create table " + table, Err: err}
	}
	return nil
}

// priceEquals compares two stored prices. sqlite REAL round-trips float64
// exactly, so a tight tolerance only guards against formatting noise.
func priceEquals(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// Upsert inserts or updates the snapshot for snap.ProductID and reports what
// happened. The read-compare-write runs in one immediate transaction, so two
// concurrent upserts of the same product id cannot lose an update. When the
// price changed, the stored notified flag is reset so the product can qualify
// for a fresh notification.
func (s *Store) Upsert(ctx context.Context, marketplace string, snap models.ProductSnapshot, now time.Time) (models.UpsertResult, error) {
	var res models.UpsertResult

	table, err := tableName(marketplace)
	if err != nil {
		return res, &StorageError{Op: "upsert", Err: err}
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return res, &StorageError{Op: "begin", Err: err}
	}
	defer tx.Rollback()

	prev, err := scanSnapshot(tx.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT product_id, name, url, list_price, sale_price, discount_percent,
		                    first_seen_at, last_seen_at, notified
		             FROM %s WHERE product_id = ?`, table), snap.ProductID))
	switch {
	case err == sql.ErrNoRows:
		_, err = tx.ExecContext(ctx, fmt.Sprintf(`
			INSERT INTO %s (product_id, name, url, list_price, sale_price, discount_percent,
			                first_seen_at, last_seen_at, notified)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0)`, table),
			snap.ProductID, snap.Name, snap.URL, snap.ListPrice, snap.SalePrice,
			snap.DiscountPercent, now, now)
		if err != nil {
			return res, &StorageError{Op: "insert " + snap.ProductID, Err: err}
		}
		res.IsNew = true

	case err != nil:
		return res, &StorageError{Op: "select " + snap.ProductID, Err: err}

	default:
		res.Previous = prev
		res.PriceChanged = !priceEquals(prev.SalePrice, snap.SalePrice) ||
			!priceEquals(prev.DiscountPercent, snap.DiscountPercent)

		notified := prev.Notified
		if res.PriceChanged {
			notified = false
		}
		_, err = tx.ExecContext(ctx, fmt.Sprintf(`
			UPDATE %s
			SET name = ?, url = ?, list_price = ?, sale_price = ?, discount_percent = ?,
			    last_seen_at = ?, notified = ?
			WHERE product_id = ?`, table),
			snap.Name, snap.URL, snap.ListPrice, snap.SalePrice, snap.DiscountPercent,
			now, notified, snap.ProductID)
		if err != nil {
			return res, &StorageError{Op: "update " + snap.ProductID, Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return models.UpsertResult{}, &StorageError{Op: "commit " + snap.ProductID, Err: err}
	}
	return res, nil
}

// MarkNotified flags a product as notified. Only called after a confirmed
// successful dispatch.
func (s *Store) MarkNotified(ctx context.Context, marketplace, productID string) error {
	table, err := tableName(marketplace)
	if err != nil {
		return &StorageError{Op: "mark notified", Err: err}
	}
	_, err = s.DB.ExecContext(ctx,
		fmt.Sprintf("UPDATE %s SET notified = 1 WHERE product_id = ?", table), productID)
	if err != nil {
		return &StorageError{Op: "mark notified " + productID, Err: err}
	}
	return nil
}

// Get returns the stored snapshot for productID, or sql.ErrNoRows.
func (s *Store) Get(ctx context.Context, marketplace, productID string) (*models.ProductSnapshot, error) {
	table, err := tableName(marketplace)
	if err != nil {
		return nil, &StorageError{Op: "get", Err: err}
	}
	snap, err := scanSnapshot(s.DB.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT product_id, name, url, list_price, sale_price, discount_percent,
		                    first_seen_at, last_seen_at, notified
		             FROM %s WHERE product_id = ?`, table), productID))
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, &StorageError{Op: "get " + productID, Err: err}
	}
	return snap, nil
}

// Count returns the number of tracked products for a marketplace.
func (s *Store) Count(ctx context.Context, marketplace string) (int, error) {
	table, err := tableName(marketplace)
	if err != nil {
		return 0, &StorageError{Op: "count", Err: err}
	}
	var n int
	if err := s.DB.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&n); err != nil {
		return 0, &StorageError{Op: "count", Err: err}
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (*models.ProductSnapshot, error) {
	var snap models.ProductSnapshot
	err := row.Scan(&snap.ProductID, &snap.Name, &snap.URL, &snap.ListPrice,
		&snap.SalePrice, &snap.DiscountPercent, &snap.FirstSeenAt, &snap.LastSeenAt,
		&snap.Notified)
	if err != nil {
		return nil, err
	}
	return &snap, nil
}
