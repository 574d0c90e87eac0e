package notify

import (
	"fmt"
	"html"
	"strings"

	"FirsatRadar/internal/models"

	"github.com/dustin/go-humanize"
)

// formatTL renders an amount the way Turkish stores print it: thousands with
// '.', decimals with ','.
func formatTL(amount float64) string {
	s := humanize.CommafWithDigits(amount, 2)
	s = strings.ReplaceAll(s, ",", "\x00")
	s = strings.ReplaceAll(s, ".", ",")
	return strings.ReplaceAll(s, "\x00", ".")
}

// BuildMessage formats the outlet-deal notification for one product. The
// template mirrors what subscribers have always received from the channel.
func BuildMessage(marketplaceTitle string, snap models.ProductSnapshot) string {
	var b strings.Builder

	b.WriteString("🔥 <b>OUTLET FIRSATI!</b> 🔥\n")
	fmt.Fprintf(&b, "📍 <b>%s</b>\n\n", html.EscapeString(strings.ToUpper(marketplaceTitle)))
	fmt.Fprintf(&b, "✅ %s\n", html.EscapeString(snap.Name))
	fmt.Fprintf(&b, "💰 Normal Fiyat: %s TL\n", formatTL(snap.ListPrice))
	fmt.Fprintf(&b, "🏷️ İndirimli Fiyat: %s TL\n", formatTL(snap.SalePrice))
	fmt.Fprintf(&b, "📉 İndirim Oranı: %%%.0f\n\n", snap.DiscountPercent)
	fmt.Fprintf(&b, "🔗 %s", snap.URL)

	return b.String()
}
