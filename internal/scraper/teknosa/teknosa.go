package teknosa

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"FirsatRadar/internal/models"
	"FirsatRadar/internal/scraper"
	"FirsatRadar/pkg/config"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	log "github.com/sirupsen/logrus"
)

// Reader scrapes Teknosa outlet listing pages. Teknosa mirrors each card's
// numbers into data-product-* attributes, which survive markup redesigns
// better than the visible price nodes, so those are read first and the
// visible text is the fallback.
type Reader struct {
	Browser     *rod.Browser
	ScraperConf config.ScraperConfig
}

// New creates a Teknosa page reader on an already-connected browser.
func New(browser *rod.Browser, scraperConf config.ScraperConfig) *Reader {
	return &Reader{Browser: browser, ScraperConf: scraperConf}
}

// Read navigates to listingURL and extracts one observation per product
// card.
func (r *Reader) Read(ctx context.Context, listingURL string) ([]models.Observation, error) {
	page, err := r.Browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("teknosa: opening page: %w", err)
	}
	defer page.MustClose()
	page = page.Context(ctx)

	if err := page.Timeout(r.ScraperConf.PageTimeout()).Navigate(listingURL); err != nil {
		return nil, fmt.Errorf("teknosa: navigating to %s: %w", listingURL, err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("teknosa: waiting for page load: %w", err)
	}
	scraper.HumanlikeScroll(page)

	html, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("teknosa: reading page HTML: %w", err)
	}
	return parseListing(html, listingURL), nil
}

func parseListing(html, listingURL string) []models.Observation {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		log.WithError(err).Warn("teknosa: could not parse listing HTML")
		return nil
	}

	base, _ := url.Parse(listingURL)

	var observations []models.Observation
	doc.Find("div.prd").Each(func(_ int, card *goquery.Selection) {
		id := card.AttrOr("data-product-id", "")
		if id == "" {
			return
		}

		link := card.Find("a.prd-link").First()
		href := link.AttrOr("href", "")

		name := card.AttrOr("data-product-name", "")
		if name == "" {
			name = strings.TrimSpace(card.Find(".prd-title").First().Text())
		}

		sale := card.AttrOr("data-product-discounted-price", "")
		if sale == "" {
			sale = strings.TrimSpace(card.Find(".prc-last").First().Text())
		}
		list := card.AttrOr("data-product-price", "")
		if list == "" {
			list = strings.TrimSpace(card.Find(".prc-first").First().Text())
		}

		observations = append(observations, models.Observation{
			ProductID:    id,
			Name:         name,
			URL:          absoluteURL(base, href),
			SalePriceRaw: sale,
			ListPriceRaw: list,
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
