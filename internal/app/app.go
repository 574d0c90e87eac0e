package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"FirsatRadar/internal/bot"
	"FirsatRadar/internal/database"
	"FirsatRadar/internal/models"
	"FirsatRadar/internal/notify"
	"FirsatRadar/internal/pipeline"
	"FirsatRadar/internal/scraper"
	"FirsatRadar/internal/scraper/amazon"
	"FirsatRadar/internal/scraper/hepsiburada"
	"FirsatRadar/internal/scraper/teknosa"
	"FirsatRadar/pkg/config"
	"FirsatRadar/utils"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// App is the main application structure holding all dependencies.
type App struct {
	Config    *config.Config
	Snapshots *database.Store
	Prefs     *database.SubscriptionStore
	runner    *pipeline.Runner
}

// New loads configuration, opens both sqlite stores and wires the
// notification pipeline.
func New(configPath string) (*App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	names := make([]string, 0, len(cfg.EnabledMarketplaces()))
	for _, m := range cfg.EnabledMarketplaces() {
		names = append(names, m.Name)
	}
	snapshots, err := database.New(cfg.Storage.SnapshotsPath, names)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot store: %w", err)
	}

	prefs, err := database.NewSubscriptionStore(cfg.Storage.PreferencesPath)
	if err != nil {
		snapshots.Close()
		return nil, fmt.Errorf("opening preferences store: %w", err)
	}
	if err := seedCategories(prefs, cfg); err != nil {
		log.WithError(err).Warn("Could not seed categories")
	}

	tgBot, err := notify.NewBot(cfg.Telegram.BotToken)
	if err != nil {
		snapshots.Close()
		prefs.Close()
		return nil, fmt.Errorf("connecting to Telegram: %w", err)
	}
	dispatcher := notify.NewDispatcher(tgBot, cfg.Telegram)
	runner := pipeline.NewRunner(snapshots, dispatcher, prefs, cfg.Telegram.ChannelChatID)

	return &App{
		Config:    cfg,
		Snapshots: snapshots,
		Prefs:     prefs,
		runner:    runner,
	}, nil
}

// Close releases both sqlite handles.
func (a *App) Close() {
	if a.Snapshots != nil {
		a.Snapshots.Close()
	}
	if a.Prefs != nil {
		a.Prefs.Close()
	}
}

func seedCategories(prefs *database.SubscriptionStore, cfg *config.Config) error {
	var categories []models.Category
	for _, m := range cfg.EnabledMarketplaces() {
		if m.CategoryID == "" {
			continue
		}
		categories = append(categories, models.Category{
			ID:          m.CategoryID,
			Name:        m.CategoryTitle,
			Marketplace: m.Name,
		})
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return prefs.EnsureCategories(ctx, categories)
}

// readerFor picks the page reader matching the marketplace name.
func readerFor(mkt config.MarketplaceConfig, browser *rod.Browser, scraperConf config.ScraperConfig) (scraper.PageReader, error) {
	switch mkt.Name {
	case "amazon":
		return amazon.New(browser, scraperConf), nil
	case "hepsiburada":
		return hepsiburada.New(browser, scraperConf), nil
	case "teknosa":
		return teknosa.New(browser, scraperConf), nil
	default:
		return nil, fmt.Errorf("no reader for marketplace %q", mkt.Name)
	}
}

// RunScanOnce runs one scan pass over every enabled marketplace and returns
// when all of them finish. Marketplaces are scanned in parallel, each worker
// driving its own browser instance.
func (a *App) RunScanOnce(ctx context.Context) {
	marketplaces := a.Config.EnabledMarketplaces()
	numWorkers := utils.GetOptimalWorkerCount(a.Config.Scraper.Workers)
	if numWorkers > len(marketplaces) {
		numWorkers = len(marketplaces)
	}

	jobs := make(chan config.MarketplaceConfig, len(marketplaces))
	var wg sync.WaitGroup

	for w := 1; w <= numWorkers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			u := launcher.New().Headless(a.Config.Scraper.Headless).MustLaunch()
			browser := rod.New().ControlURL(u).MustConnect()
			defer browser.MustClose()

			first := true
			for mkt := range jobs {
				if !first {
					scraper.SmartSleep()
				}
				first = false
				a.scanMarketplace(ctx, workerID, browser, mkt)
			}
		}(w)
	}

	for _, mkt := range marketplaces {
		jobs <- mkt
	}
	close(jobs)
	wg.Wait()
}

func (a *App) scanMarketplace(ctx context.Context, workerID int, browser *rod.Browser, mkt config.MarketplaceConfig) {
	mktLog := log.WithFields(log.Fields{"worker": workerID, "marketplace": mkt.Name})

	reader, err := readerFor(mkt, browser, a.Config.Scraper)
	if err != nil {
		mktLog.WithError(err).Error("Marketplace skipped")
		return
	}

	observations, err := reader.Read(ctx, mkt.ListingURL)
	if err != nil {
		mktLog.WithError(err).Error("Listing page read failed")
		return
	}
	mktLog.WithField("items", len(observations)).Info("Listing page read")

	a.runner.RunPass(ctx, mkt, observations, time.Now().UTC())
}

// RunScheduled keeps running scan passes on the configured cron expression
// until ctx is cancelled. An empty expression falls back to every 30 minutes.
func (a *App) RunScheduled(ctx context.Context) error {
	expr := a.Config.Schedule.Cron
	if expr == "" {
		expr = "*/30 * * * *"
	}

	c := cron.New()
	var running sync.Mutex
	_, err := c.AddFunc(expr, func() {
		// A pass that outlasts its interval must not stack a second one on
		// top of the same browser pool.
		if !running.TryLock() {
			log.Warn("Previous scan pass still running, skipping this tick")
			return
		}
		defer running.Unlock()
		a.RunScanOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}

	log.WithField("cron", expr).Info("Scheduler started")
	c.Start()
	<-ctx.Done()

	stopCtx := c.Stop()
	<-stopCtx.Done()
	return ctx.Err()
}

// RunSectionDiscovery prints the outlet sections currently linked from the
// Teknosa landing page. Useful when updating the marketplace list in
// config.yml.
func (a *App) RunSectionDiscovery() error {
	var base string
	for _, m := range a.Config.EnabledMarketplaces() {
		if m.Name == "teknosa" {
			base = m.BaseURL
		}
	}
	if base == "" {
		base = "https://www.teknosa.com"
	}

	sections, err := teknosa.DiscoverSections(base)
	if err != nil {
		return err
	}
	for _, s := range sections {
		fmt.Printf("%-30s %-30s %s\n", s.ID, s.Name, s.URL)
	}
	log.WithField("count", len(sections)).Info("Section discovery finished")
	return nil
}

// RunBot starts the subscription bot and blocks until ctx is cancelled.
func (a *App) RunBot(ctx context.Context) error {
	b, err := bot.New(a.Config.Telegram.BotToken, a.Prefs)
	if err != nil {
		return err
	}
	return b.Run(ctx)
}
