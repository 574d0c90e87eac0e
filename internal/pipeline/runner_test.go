package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"FirsatRadar/internal/database"
	"FirsatRadar/internal/models"
	"FirsatRadar/pkg/config"
)

type fakeNotifier struct {
	fail     bool
	messages []string
	chatIDs  []int64
}

func (f *fakeNotifier) Send(ctx context.Context, chatID int64, text string) bool {
	if f.fail {
		return false
	}
	f.messages = append(f.messages, text)
	f.chatIDs = append(f.chatIDs, chatID)
	return true
}

// flakyStore fails every write for one product id.
type flakyStore struct {
	*database.Store
	badID string
}

func (f *flakyStore) Upsert(ctx context.Context, marketplace string, snap models.ProductSnapshot, now time.Time) (models.UpsertResult, error) {
	if snap.ProductID == f.badID {
		return models.UpsertResult{}, &database.StorageError{Op: "upsert", Err: fmt.Errorf("disk unreachable")}
	}
	return f.Store.Upsert(ctx, marketplace, snap, now)
}

func testMarketplace(threshold float64) config.MarketplaceConfig {
	return config.MarketplaceConfig{
		Name:             "teknosa",
		CategoryID:       "teknosa_elektronik",
		CategoryTitle:    "Teknosa",
		ThresholdPercent: threshold,
		Enabled:          true,
	}
}

func newStore(t *testing.T) *database.Store {
	t.Helper()
	store, err := database.New(filepath.Join(t.TempDir(), "pass.db"), []string{"teknosa"})
	if err != nil {
		t.Fatalf("database.New: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func obs(id, listRaw, saleRaw string) models.Observation {
	return models.Observation{
		ProductID:    id,
		Name:         "Ürün " + id,
		URL:          "https://www.teknosa.com/p/" + id,
		ListPriceRaw: listRaw,
		SalePriceRaw: saleRaw,
	}
}

// A product dropping twice must notify exactly twice: at the first qualifying
// drop and at the second, not on the unchanged re-scan in between.
func TestNotifyExactlyOncePerQualifyingDrop(t *testing.T) {
	store := newStore(t)
	notifier := &fakeNotifier{}
	runner := NewRunner(store, notifier, nil, 100)
	mkt := testMarketplace(25)
	ctx := context.Background()
	now := time.Now().UTC()

	passes := [][]models.Observation{
		{obs("SKU-9", "1.000,00 TL", "1.000,00 TL")}, // 0%, no notify
		{obs("SKU-9", "1.000,00 TL", "700,00 TL")},   // 30%, notify
		{obs("SKU-9", "1.000,00 TL", "700,00 TL")},   // unchanged, silent
		{obs("SKU-9", "1.000,00 TL", "650,00 TL")},   // 35%, notify again
	}
	for i, batch := range passes {
		runner.RunPass(ctx, mkt, batch, now.Add(time.Duration(i)*time.Hour))
	}

	if len(notifier.messages) != 2 {
		t.Fatalf("got %d notifications, want exactly 2:\n%v", len(notifier.messages), notifier.messages)
	}
}

func TestNewQualifyingProductNotifiesOnce(t *testing.T) {
	store := newStore(t)
	notifier := &fakeNotifier{}
	runner := NewRunner(store, notifier, nil, 100)
	mkt := testMarketplace(25)
	ctx := context.Background()
	now := time.Now().UTC()

	stats := runner.RunPass(ctx, mkt, []models.Observation{obs("SKU-1", "2.000,00 TL", "1.400,00 TL")}, now)
	if stats.New != 1 || stats.Notified != 1 {
		t.Fatalf("first pass: %+v, want New=1 Notified=1", stats)
	}

	stats = runner.RunPass(ctx, mkt, []models.Observation{obs("SKU-1", "2.000,00 TL", "1.400,00 TL")}, now.Add(time.Hour))
	if stats.Notified != 0 {
		t.Errorf("identical re-scan notified %d times, want 0", stats.Notified)
	}
	if len(notifier.messages) != 1 {
		t.Errorf("total notifications = %d, want 1", len(notifier.messages))
	}
}

func TestFailedDispatchRetriesNextPass(t *testing.T) {
	store := newStore(t)
	notifier := &fakeNotifier{fail: true}
	runner := NewRunner(store, notifier, nil, 100)
	mkt := testMarketplace(25)
	ctx := context.Background()
	now := time.Now().UTC()

	stats := runner.RunPass(ctx, mkt, []models.Observation{obs("SKU-2", "1.000,00 TL", "700,00 TL")}, now)
	if stats.Notified != 0 || stats.Failed != 1 {
		t.Fatalf("failing pass: %+v, want Notified=0 Failed=1", stats)
	}

	// Same prices next pass; the pending notification must go out now.
	notifier.fail = false
	stats = runner.RunPass(ctx, mkt, []models.Observation{obs("SKU-2", "1.000,00 TL", "700,00 TL")}, now.Add(time.Hour))
	if stats.Notified != 1 {
		t.Fatalf("retry pass: %+v, want Notified=1", stats)
	}
	if len(notifier.messages) != 1 {
		t.Errorf("total notifications = %d, want 1", len(notifier.messages))
	}
}

func TestStorageErrorDoesNotAbortPass(t *testing.T) {
	store := newStore(t)
	notifier := &fakeNotifier{}
	runner := NewRunner(&flakyStore{Store: store, badID: "SKU-A"}, notifier, nil, 100)
	mkt := testMarketplace(25)
	ctx := context.Background()

	batch := []models.Observation{
		obs("SKU-A", "1.000,00 TL", "700,00 TL"),
		obs("SKU-B", "1.000,00 TL", "700,00 TL"),
		obs("SKU-C", "1.000,00 TL", "700,00 TL"),
		obs("SKU-D", "1.000,00 TL", "900,00 TL"),
		obs("SKU-E", "1.000,00 TL", "600,00 TL"),
	}
	stats := runner.RunPass(ctx, mkt, batch, time.Now().UTC())

	if stats.Failed != 1 {
		t.Errorf("Failed = %d, want 1", stats.Failed)
	}
	if stats.New != 4 {
		t.Errorf("New = %d, want 4 (items after the failure must still be processed)", stats.New)
	}
	if len(notifier.messages) != 3 {
		t.Errorf("notifications = %d, want 3 (B, C, E qualify)", len(notifier.messages))
	}
}

func TestUnparseableSalePriceSkipsItem(t *testing.T) {
	store := newStore(t)
	notifier := &fakeNotifier{}
	runner := NewRunner(store, notifier, nil, 100)
	mkt := testMarketplace(25)

	batch := []models.Observation{
		obs("SKU-X", "1.000,00 TL", "Tükendi"),
		obs("SKU-Y", "", "750,00 TL"), // no list price: stored, 0% discount
	}
	stats := runner.RunPass(context.Background(), mkt, batch, time.Now().UTC())

	if stats.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", stats.Skipped)
	}
	if stats.New != 1 {
		t.Errorf("New = %d, want 1", stats.New)
	}
	if _, err := store.Get(context.Background(), "teknosa", "SKU-X"); err == nil {
		t.Error("item with unparseable sale price must not be stored")
	}
	snap, err := store.Get(context.Background(), "teknosa", "SKU-Y")
	if err != nil {
		t.Fatalf("Get SKU-Y: %v", err)
	}
	if snap.DiscountPercent != 0 {
		t.Errorf("discount without list price = %f, want 0", snap.DiscountPercent)
	}
}

// subscriberList is a static SubscriberSource.
type subscriberList map[string][]int64

func (s subscriberList) Subscribers(ctx context.Context, categoryID string) ([]int64, error) {
	return s[categoryID], nil
}

func TestFanOutToSubscribers(t *testing.T) {
	store := newStore(t)
	notifier := &fakeNotifier{}
	subs := subscriberList{"teknosa_elektronik": {201, 202}}
	runner := NewRunner(store, notifier, subs, 100)
	mkt := testMarketplace(25)

	runner.RunPass(context.Background(), mkt,
		[]models.Observation{obs("SKU-F", "1.000,00 TL", "600,00 TL")}, time.Now().UTC())

	if len(notifier.chatIDs) != 3 {
		t.Fatalf("sends = %v, want channel plus two subscribers", notifier.chatIDs)
	}
	if notifier.chatIDs[0] != 100 {
		t.Errorf("first send went to %d, want the channel (100)", notifier.chatIDs[0])
	}
}
