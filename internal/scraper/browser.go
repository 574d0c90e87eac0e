package scraper

import (
	"math/rand"
	"time"

	"github.com/go-rod/rod"
)

// HumanlikeScroll scrolls down in small random steps so lazy-loaded product
// cards actually render. Sites also watch for instant full-page jumps.
func HumanlikeScroll(page *rod.Page) {
	for i := 0; i < 10; i++ {
		isAtBottom, err := page.Eval(`() => window.innerHeight + window.pageYOffset >= document.body.scrollHeight - 10`)
		if err != nil {
			return
		}
		if isAtBottom.Value.Bool() {
			break
		}
		if _, err := page.Eval(`() => window.scrollBy(0, window.innerHeight * 0.5)`); err != nil {
			return
		}
		time.Sleep(time.Duration(100+rand.Intn(150)) * time.Millisecond)
	}
	_, _ = page.Eval(`() => window.scrollBy(0, -200)`)
	time.Sleep(200 * time.Millisecond)
	_, _ = page.Eval(`() => window.scrollBy(0, 400)`)
}

// SmartSleep pauses for a uniform 2-5 seconds between page visits.
func SmartSleep() {
	time.Sleep(2*time.Second + time.Duration(rand.Int63n(int64(3*time.Second))))
}
