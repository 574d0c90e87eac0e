package pricing

// DiscountPercent computes the discount of salePrice against listPrice as a
// percentage in [0, 100]. It is always recomputed from the two price points;
// badge text scraped from a page is never trusted. A missing list price
// (listPrice <= 0) or a sale price at or above the list price yields 0 —
// there are no negative discounts.
func DiscountPercent(listPrice, salePrice float64) float64 {
	if listPrice <= 0 || salePrice < 0 {
		return 0
	}
	if salePrice >= listPrice {
		return 0
	}

	percent := ((listPrice - salePrice) / listPrice) * 100
	if percent < 0 {
		return 0
	}
	if percent > 100 {
		return 100
	}
	return percent
}
