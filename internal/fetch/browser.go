package fetch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/jonathan/recruit-scorer/internal/logging"
)

// MinPostingChars is the shortest description accepted from a plain download
// before a browser render is tried.
const MinPostingChars = 500

func looksUnrendered(text string) bool {
	return len(strings.TrimSpace(text)) < MinPostingChars
}

// Renderer returns a page's HTML after its scripts have run.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ctx context.Context, url string) (string, error)

// Render calls f.
func (f RendererFunc) Render(ctx context.Context, url string) (string, error) {
	return f(ctx, url)
}

// ChromeRenderer renders pages in a headless Chrome or Chromium, which must be
// installed on the host. Each render starts its own browser process.
type ChromeRenderer struct {
	Timeout time.Duration
	// Settle is the pause after the body is ready, for scripts to fill it in.
	Settle time.Duration
	Logger *zap.Logger
}

// NewChromeRenderer returns a renderer with a 30s budget and a 3s settle time.
func NewChromeRenderer(logger *zap.Logger) *ChromeRenderer {
	return &ChromeRenderer{
		Timeout: DefaultTimeout,
		Settle:  3 * time.Second,
		Logger:  logging.OrNop(logger),
	}
}

func chromeOptions() []chromedp.ExecAllocatorOption {
	return append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(DefaultUserAgent),
	)
}

// dismissCookieBanner clicks an accept button if one is showing.
func dismissCookieBanner(ctx context.Context) error {
	_ = chromedp.Click(`button[id*="accept"], button[class*="accept"]`, chromedp.NodeVisible, chromedp.AtLeast(0)).Do(ctx)
	return nil
}

// Render loads url and returns the document's outer HTML.
func (r *ChromeRenderer) Render(ctx context.Context, url string) (string, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	allocCtx, closeAlloc := chromedp.NewExecAllocator(ctx, chromeOptions()...)
	defer closeAlloc()
	tabCtx, closeTab := chromedp.NewContext(allocCtx)
	defer closeTab()

	started := time.Now()
	var html string
	if err := chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.Sleep(r.Settle),
		chromedp.ActionFunc(dismissCookieBanner),
		chromedp.OuterHTML("html", &html),
	); err != nil {
		return "", fmt.Errorf("render %s: %w", url, err)
	}

	logging.OrNop(r.Logger).Debug("rendered posting",
		zap.String("url", url),
		zap.Int("html_bytes", len(html)),
		zap.Duration("elapsed", time.Since(started)))
	return html, nil
}
