package pipeline

import "FirsatRadar/internal/models"

// ShouldNotify decides whether the current observation warrants a Telegram
// notification. It is true iff the recomputed discount reaches the
// marketplace threshold and no notification is still standing for the stored
// price.
//
// A product moves through four states: unseen, seen-not-qualified,
// seen-qualified-pending and seen-qualified-notified. Upsert resets the
// stored notified flag whenever the price changed, so a second price drop
// after a notification re-qualifies, while an unchanged price never
// re-notifies. A qualifying product whose dispatch failed earlier keeps
// notified=false and is retried on the next pass.
func ShouldNotify(res models.UpsertResult, discountPercent, thresholdPercent float64) bool {
	if discountPercent < thresholdPercent {
		return false
	}
	if res.IsNew || res.PriceChanged {
		return true
	}
	return res.Previous != nil && !res.Previous.Notified
}
