package teknosa

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"FirsatRadar/internal/models"

	log "github.com/sirupsen/logrus"
	"golang.org/x/net/html"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// fetchPageHTML does a plain GET for pages that render their navigation
// server-side. The outlet landing page is one of those, so no browser is
// needed here.
func fetchPageHTML(pageURL string) (string, error) {
	client := &http.Client{Timeout: 15 * time.Second}
	req, err := http.NewRequest(http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("received non-200 status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("could not read response body: %w", err)
	}
	return string(body), nil
}

// parseSectionsFromHTML walks the document and collects every anchor that
// points into the outlet tree. The slug after /outlet/ doubles as the
// category ID.
func parseSectionsFromHTML(htmlContent, baseURL string) []models.Category {
	var sections []models.Category
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		log.WithError(err).Warn("teknosa: could not parse menu HTML")
		return sections
	}
	base, _ := url.Parse(baseURL)

	var findOutletLinks func(*html.Node)
	findOutletLinks = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, a := range n.Attr {
				if a.Key == "href" && strings.Contains(a.Val, "/outlet") {
					slug := outletSlug(a.Val)
					name := nodeText(n)
					if slug != "" && name != "" {
						sections = append(sections, models.Category{
							ID:          slug,
							Name:        name,
							Marketplace: "teknosa",
							URL:         resolveURL(base, a.Val),
						})
					}
					break
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			findOutletLinks(c)
		}
	}

	findOutletLinks(doc)
	return sections
}

// outletSlug extracts the path segment after /outlet/, or "" for the
// outlet root itself.
func outletSlug(href string) string {
	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}
	_, rest, ok := strings.Cut(parsed.Path, "/outlet/")
	if !ok {
		return ""
	}
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		rest = rest[:i]
	}
	return rest
}

// nodeText gathers every text node under n. Menu anchors often lead with an
// icon element, so the label can sit in any descendant.
func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
		for child := c.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}

func resolveURL(base *url.URL, href string) string {
	if base == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// DiscoverSections fetches the outlet landing page and returns every
// distinct outlet section linked from it.
func DiscoverSections(baseURL string) ([]models.Category, error) {
	outletURL := strings.TrimRight(baseURL, "/") + "/outlet"
	log.WithField("url", outletURL).Info("Discovering outlet sections")

	pageHTML, err := fetchPageHTML(outletURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch outlet page: %w", err)
	}

	seen := make(map[string]models.Category)
	for _, section := range parseSectionsFromHTML(pageHTML, baseURL) {
		seen[section.ID] = section
	}

	sections := make([]models.Category, 0, len(seen))
	for _, section := range seen {
		sections = append(sections, section)
	}
	return sections, nil
}
