package models

import "time"

// ProductSnapshot is the last recorded state of one product on one marketplace.
type ProductSnapshot struct {
	ProductID       string    `db:"product_id"`
	Name            string    `db:"name"`
	URL             string    `db:"url"`
	ListPrice       float64   `db:"list_price"`
	SalePrice       float64   `db:"sale_price"`
	DiscountPercent float64   `db:"discount_percent"`
	FirstSeenAt     time.Time `db:"first_seen_at"`
	LastSeenAt      time.Time `db:"last_seen_at"`
	Notified        bool      `db:"notified"`
}

// Observation is one raw per-product reading taken from a listing page.
// Price fields are the untouched on-page texts; normalization happens later.
type Observation struct {
	ProductID    string
	Name         string
	URL          string
	ListPriceRaw string
	SalePriceRaw string
}

// UpsertResult reports what a snapshot upsert did.
type UpsertResult struct {
	IsNew        bool
	PriceChanged bool
	Previous     *ProductSnapshot
}

// Category is a notification topic users can subscribe to, e.g.
// "teknosa_elektronik".
type Category struct {
	ID          string
	Name        string
	Marketplace string
	URL         string
}

// User is a Telegram user known to the subscription bot.
type User struct {
	UserID    int64
	FirstName string
	LastName  string
	Username  string
	JoinedAt  time.Time
}
