package amazon

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
	"github.com/go-rod/stealth"
	log "github.com/sirupsen/logrus"
)

// Reader scrapes Amazon Turkey search-result pages through a controlled
// browser. Amazon renders prices client-side and blocks plain HTTP clients,
// so a stealth page is the reliable way in.
type Reader struct {
	Browser     *rod.Browser
	ScraperConf config.ScraperConfig
}

// New creates an Amazon page reader on an already-connected browser.
func New(browser *rod.Browser, scraperConf config.ScraperConfig) *Reader {
	return &Reader{Browser: browser, ScraperConf: scraperConf}
}

var asinRe = regexp.MustCompile(`/(?:dp|gp/product)/([A-Z0-9]{10})`)

// Read navigates to listingURL, scrolls the results into view and extracts
// one observation per result card.
func (r *Reader) Read(ctx context.Context, listingURL string) ([]models.Observation, error) {
	page, err := stealth.Page(r.Browser)
	if err != nil {
		return nil, fmt.Errorf("amazon: opening page: %w", err)
	}
	defer page.MustClose()
	page = page.Context(ctx)

	if err := page.Timeout(r.ScraperConf.PageTimeout()).Navigate(listingURL); err != nil {
		return nil, fmt.Errorf("amazon: navigating to %s: %w", listingURL, err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("amazon: waiting for page load: %w", err)
	}
	scraper.HumanlikeScroll(page)

	html, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("amazon: reading page HTML: %w", err)
	}
	return parseListing(html, listingURL), nil
}

// parseListing extracts observations from rendered search-result HTML. Kept
// separate from the browser so it can be tested against saved pages.
func parseListing(html, listingURL string) []models.Observation {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		log.WithError(err).Warn("amazon: could not parse listing HTML")
		return nil
	}

	base, _ := url.Parse(listingURL)

	var observations []models.Observation
	doc.Find(`div[data-component-type="s-search-result"]`).Each(func(_ int, card *goquery.Selection) {
		href := card.Find("a.a-link-normal").First().AttrOr("href", "")

		asin := card.AttrOr("data-asin", "")
		if asin == "" {
			if m := asinRe.FindStringSubmatch(href); m != nil {
				asin = m[1]
			}
		}
		if asin == "" {
			return
		}

		name := strings.TrimSpace(card.Find("h2 span.a-text-normal").First().Text())
		if name == "" {
			name = strings.TrimSpace(card.Find("span.a-text-normal").First().Text())
		}

		observations = append(observations, models.Observation{
			ProductID:    asin,
			Name:         name,
			URL:          absoluteURL(base, href),
			SalePriceRaw: strings.TrimSpace(card.Find(".a-price .a-offscreen").First().Text()),
			ListPriceRaw: strings.TrimSpace(card.Find(".a-price.a-text-price .a-offscreen").First().Text()),
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
