package pipeline

import (
	"context"
	"errors"
	"time"

	"FirsatRadar/internal/models"
	"FirsatRadar/internal/notify"
	"FirsatRadar/internal/pricing"
	"FirsatRadar/pkg/config"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// SnapshotStore is the slice of database.Store the runner needs.
type SnapshotStore interface {
	Upsert(ctx context.Context, marketplace string, snap models.ProductSnapshot, now time.Time) (models.UpsertResult, error)
	MarkNotified(ctx context.Context, marketplace, productID string) error
}

// Notifier delivers one message to one chat, reporting success as a bool.
type Notifier interface {
	Send(ctx context.Context, chatID int64, text string) bool
}

// SubscriberSource resolves the extra chat ids subscribed to a category.
// May be nil when running without the subscription bot.
type SubscriberSource interface {
	Subscribers(ctx context.Context, categoryID string) ([]int64, error)
}

// PassStats summarizes one marketplace scan pass.
type PassStats struct {
	PassID    string
	Processed int
	New       int
	Changed   int
	Notified  int
	Skipped   int
	Failed    int
}

// Runner turns raw page observations into stored snapshots and
// notifications. One Runner serves all marketplaces; per-pass parameters
// arrive with each RunPass call.
type Runner struct {
	store         SnapshotStore
	notifier      Notifier
	subscribers   SubscriberSource
	channelChatID int64
}

// NewRunner wires the pipeline. subscribers may be nil.
func NewRunner(store SnapshotStore, notifier Notifier, subscribers SubscriberSource, channelChatID int64) *Runner {
	return &Runner{
		store:         store,
		notifier:      notifier,
		subscribers:   subscribers,
		channelChatID: channelChatID,
	}
}

// RunPass processes one batch of observations for one marketplace. Items are
// isolated: a parse failure, storage error or failed dispatch on one item is
// counted and the pass moves on. Partial results are the normal outcome.
func (r *Runner) RunPass(ctx context.Context, mkt config.MarketplaceConfig, observations []models.Observation, now time.Time) PassStats {
	stats := PassStats{PassID: uuid.NewString()}

	passLog := log.WithFields(log.Fields{
		"pass":        stats.PassID,
		"marketplace": mkt.Name,
	})
	passLog.WithField("items", len(observations)).Info("Scan pass started")

	for _, obs := range observations {
		if ctx.Err() != nil {
			passLog.Warn("Scan pass cancelled")
			break
		}
		stats.Processed++
		r.processItem(ctx, mkt, obs, now, &stats, passLog)
	}

	passLog.WithFields(log.Fields{
		"new":      stats.New,
		"changed":  stats.Changed,
		"notified": stats.Notified,
		"skipped":  stats.Skipped,
		"failed":   stats.Failed,
	}).Info("Scan pass finished")
	return stats
}

func (r *Runner) processItem(ctx context.Context, mkt config.MarketplaceConfig, obs models.Observation, now time.Time, stats *PassStats, passLog *log.Entry) {
	itemLog := passLog.WithField("product_id", obs.ProductID)

	if obs.ProductID == "" {
		stats.Skipped++
		itemLog.Debug("Observation without product id, skipped")
		return
	}

	salePrice, saleErr := pricing.ParsePrice(obs.SalePriceRaw)
	listPrice, listErr := pricing.ParsePrice(obs.ListPriceRaw)

	// Without a readable sale price there is nothing to track. A missing
	// list price just means no discount can be computed.
	if errors.Is(saleErr, pricing.ErrUnparseable) {
		stats.Skipped++
		itemLog.WithField("raw", obs.SalePriceRaw).Debug("Sale price unparseable, item skipped")
		return
	}
	if listErr != nil {
		listPrice = 0
	}

	discount := pricing.DiscountPercent(listPrice, salePrice)

	snap := models.ProductSnapshot{
		ProductID:       obs.ProductID,
		Name:            obs.Name,
		URL:             obs.URL,
		ListPrice:       listPrice,
		SalePrice:       salePrice,
		DiscountPercent: discount,
	}

	res, err := r.store.Upsert(ctx, mkt.Name, snap, now)
	if err != nil {
		stats.Failed++
		itemLog.WithError(err).Error("Snapshot upsert failed")
		return
	}
	if res.IsNew {
		stats.New++
	} else if res.PriceChanged {
		stats.Changed++
	}

	if !ShouldNotify(res, discount, mkt.ThresholdPercent) {
		return
	}

	message := notify.BuildMessage(mkt.CategoryTitle, snap)
	if !r.notifier.Send(ctx, r.channelChatID, message) {
		// Dispatch failed after retries: leave notified=false so the next
		// pass tries again.
		stats.Failed++
		itemLog.Warn("Notification dispatch failed, will retry next pass")
		return
	}

	if err := r.store.MarkNotified(ctx, mkt.Name, obs.ProductID); err != nil {
		// The message went out; worst case the next pass duplicates once.
		stats.Failed++
		itemLog.WithError(err).Error("Could not mark product as notified")
	} else {
		stats.Notified++
	}

	r.fanOut(ctx, mkt.CategoryID, message, itemLog)
}

// fanOut sends the same message to every subscriber of the category.
// Best-effort: subscriber failures never affect the channel notification or
// the notified flag.
func (r *Runner) fanOut(ctx context.Context, categoryID, message string, itemLog *log.Entry) {
	if r.subscribers == nil || categoryID == "" {
		return
	}
	chatIDs, err := r.subscribers.Subscribers(ctx, categoryID)
	if err != nil {
		itemLog.WithError(err).Warn("Could not load subscribers")
		return
	}
	for _, chatID := range chatIDs {
		if chatID == r.channelChatID {
			continue
		}
		if !r.notifier.Send(ctx, chatID, message) {
			itemLog.WithField("chat_id", chatID).Warn("Subscriber notification failed")
		}
	}
}
