package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
)

// BrowserPool keeps a small set of headless browser contexts for
// rendered-page exploration. Allocation is round-robin; a session only
// borrows a context for the duration of one render.
type BrowserPool struct {
	mu               sync.Mutex
	browsers         []context.Context
	browserCancels   []context.CancelFunc
	allocatorCancels []context.CancelFunc
	currentIndex     int
	renderTimeout    time.Duration
	logger           arbor.ILogger
	initialized      bool
}

// BrowserPoolConfig sizes and shapes the pool.
type BrowserPoolConfig struct {
	Size          int
	UserAgent     string
	RenderTimeout time.Duration
}

// NewBrowserPool starts size headless browser instances. Instances that
// fail to start are skipped; at least one must come up.
func NewBrowserPool(config BrowserPoolConfig, logger arbor.ILogger) (*BrowserPool, error) {
	if config.Size <= 0 {
		return nil, fmt.Errorf("browser pool size must be greater than 0, got %d", config.Size)
	}
	if config.RenderTimeout <= 0 {
		config.RenderTimeout = 20 * time.Second
	}

	pool := &BrowserPool{
		renderTimeout: config.RenderTimeout,
		logger:        logger,
	}

	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if config.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(config.UserAgent))
	}

	var lastErr error
	for i := 0; i < config.Size; i++ {
		allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.Background(), opts...)
		browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)

		testCtx, testCancel := context.WithTimeout(browserCtx, 10*time.Second)
		err := chromedp.Run(testCtx, chromedp.Navigate("about:blank"))
		testCancel()
		if err != nil {
			lastErr = err
			browserCancel()
			allocatorCancel()
			logger.Warn().Err(err).Int("browser_index", i).Msg("Failed to start browser instance")
			continue
		}

		pool.browsers = append(pool.browsers, browserCtx)
		pool.browserCancels = append(pool.browserCancels, browserCancel)
		pool.allocatorCancels = append(pool.allocatorCancels, allocatorCancel)
	}

	if len(pool.browsers) == 0 {
		return nil, fmt.Errorf("failed to create any browser instances: %w", lastErr)
	}

	pool.initialized = true
	logger.Info().Int("pool_size", len(pool.browsers)).Msg("Browser pool initialized")
	return pool, nil
}

// Enabled reports whether the pool has usable browser contexts.
func (p *BrowserPool) Enabled() bool {
	if p == nil {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.initialized && len(p.browsers) > 0
}

// RenderHTML navigates a pooled browser to the URL and returns the
// rendered document, honoring the caller's cancellation.
func (p *BrowserPool) RenderHTML(ctx context.Context, url string) (string, error) {
	p.mu.Lock()
	if !p.initialized || len(p.browsers) == 0 {
		p.mu.Unlock()
		return "", fmt.Errorf("browser pool not initialized")
	}
	browser := p.browsers[p.currentIndex%len(p.browsers)]
	p.currentIndex++
	p.mu.Unlock()

	renderCtx, cancel := context.WithTimeout(browser, p.renderTimeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()
	defer close(done)

	var html string
	err := chromedp.Run(renderCtx,
		chromedp.Navigate(url),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", fmt.Errorf("render failed for %s: %w", url, err)
	}
	return html, nil
}

// Shutdown tears down every browser instance.
func (p *BrowserPool) Shutdown() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, cancel := range p.browserCancels {
		cancel()
	}
	for _, cancel := range p.allocatorCancels {
		cancel()
	}
	p.browsers = nil
	p.browserCancels = nil
	p.allocatorCancels = nil
	p.initialized = false
	p.logger.Info().Msg("Browser pool shut down")
}
