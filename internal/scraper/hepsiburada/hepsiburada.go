package hepsiburada

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"FirsatRadar/internal/models"
	"FirsatRadar/internal/scraper"
	"FirsatRadar/pkg/config"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	log "github.com/sirupsen/logrus"
)

// Reader scrapes Hepsiburada listing pages. The product grid is rendered
// client-side, so the page goes through the browser; extraction then runs on
// the resulting HTML.
type Reader struct {
	Browser     *rod.Browser
	ScraperConf config.ScraperConfig
}

// New creates a Hepsiburada page reader on an already-connected browser.
func New(browser *rod.Browser, scraperConf config.ScraperConfig) *Reader {
	return &Reader{Browser: browser, ScraperConf: scraperConf}
}

// skuRe pulls the catalog id out of a product URL, e.g.
// ".../beko-bm-500-p-HBC00004T6AVY" -> "HBC00004T6AVY".
var skuRe = regexp.MustCompile(`-p[m]?-(HB[A-Z0-9]+)`)

// Read navigates to listingURL and extracts one observation per product
// card.
func (r *Reader) Read(ctx context.Context, listingURL string) ([]models.Observation, error) {
	page, err := r.Browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("hepsiburada: opening page: %w", err)
	}
	defer page.MustClose()
	page = page.Context(ctx)

	if err := page.Timeout(r.ScraperConf.PageTimeout()).Navigate(listingURL); err != nil {
		return nil, fmt.Errorf("hepsiburada: navigating to %s: %w", listingURL, err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("hepsiburada: waiting for page load: %w", err)
	}
	scraper.HumanlikeScroll(page)

	html, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("hepsiburada: reading page HTML: %w", err)
	}
	return parseListing(html, listingURL), nil
}

func parseListing(html, listingURL string) []models.Observation {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		log.WithError(err).Warn("hepsiburada: could not parse listing HTML")
		return nil
	}

	base, _ := url.Parse(listingURL)

	var observations []models.Observation
	doc.Find(`li[class*="productListContent"]`).Each(func(_ int, card *goquery.Selection) {
		link := card.Find("a").First()
		href := link.AttrOr("href", "")

		id := card.AttrOr("data-productid", "")
		if id == "" {
			if m := skuRe.FindStringSubmatch(href); m != nil {
				id = m[1]
			}
		}
		if id == "" {
			return
		}

		name := strings.TrimSpace(card.Find(`[data-test-id="product-card-name"]`).First().Text())
		if name == "" {
			name = strings.TrimSpace(link.AttrOr("title", ""))
		}

		observations = append(observations, models.Observation{
			ProductID:    id,
			Name:         name,
			URL:          absoluteURL(base, href),
			SalePriceRaw: strings.TrimSpace(card.Find(`[data-test-id="price-current-price"]`).First().Text()),
			ListPriceRaw: strings.TrimSpace(card.Find(`[data-test-id="price-prev-price"]`).First().Text()),
		})
	})
	return scraper.Dedupe(observations)
}

func absoluteURL(base *url.URL, href string) string {
	if base == nil || href == "" {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
