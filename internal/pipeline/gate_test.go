package pipeline

import (
	"testing"

	"FirsatRadar/internal/models"
)

func TestShouldNotify(t *testing.T) {
	notified := &models.ProductSnapshot{Notified: true}
	pending := &models.ProductSnapshot{Notified: false}

	testCases := []struct {
		name      string
		res       models.UpsertResult
		discount  float64
		threshold float64
		expected  bool
	}{
		{"New product above threshold", models.UpsertResult{IsNew: true}, 30, 25, true},
		{"New product below threshold", models.UpsertResult{IsNew: true}, 10, 25, false},
		{"New product exactly at threshold", models.UpsertResult{IsNew: true}, 25, 25, true},
		{"Price changed re-qualifies", models.UpsertResult{PriceChanged: true, Previous: notified}, 35, 25, true},
		{"Unchanged and already notified", models.UpsertResult{Previous: notified}, 30, 25, false},
		{"Unchanged but dispatch still pending", models.UpsertResult{Previous: pending}, 30, 25, true},
		{"Unchanged below threshold", models.UpsertResult{Previous: pending}, 10, 25, false},
		{"No previous row and not new", models.UpsertResult{}, 30, 25, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := ShouldNotify(tc.res, tc.discount, tc.threshold)
			if result != tc.expected {
				t.Errorf("ShouldNotify(%+v, %f, %f) = %v; want %v",
					tc.res, tc.discount, tc.threshold, result, tc.expected)
			}
		})
	}
}
