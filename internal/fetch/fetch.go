// Package fetch downloads job posting pages and reduces them to the description
// text that job profile parsing works from.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/jonathan/recruit-scorer/internal/logging"
)

const (
	// DefaultTimeout bounds one page download.
	DefaultTimeout = 30 * time.Second
	// DefaultUserAgent is sent with every request, including browser renders.
	DefaultUserAgent = "Mozilla/5.0 (compatible; RecruitScorer/1.0)"
	// MaxBodyBytes caps how much of a page is read.
	MaxBodyBytes = 5 << 20
)

// ErrEmptyPosting is returned when a page has no description text.
var ErrEmptyPosting = errors.New("no posting text found")

// Error is a failed download or extraction of URL.
type Error struct {
	URL     string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("fetch %s: %s", e.URL, e.Message)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Message, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// Result is a downloaded page.
type Result struct {
	URL         string
	HTML        string
	ContentType string
	StatusCode  int
}

// Posting is the description text of a job posting page.
type Posting struct {
	URL      string   `json:"url"`
	Platform Platform `json:"platform"`
	Title    string   `json:"title,omitempty"`
	Text     string   `json:"text"`
	// Rendered is set when the text came from a browser render.
	Rendered bool `json:"rendered"`
}

// Client downloads posting pages. Renderer, when set, is used for pages that
// come back as unrendered script shells.
type Client struct {
	HTTP      *http.Client
	UserAgent string
	Renderer  Renderer
	Logger    *zap.Logger
}

// NewClient returns a Client with the default timeout and user agent.
func NewClient(renderer Renderer, logger *zap.Logger) *Client {
	return &Client{
		HTTP:      &http.Client{Timeout: DefaultTimeout},
		UserAgent: DefaultUserAgent,
		Renderer:  renderer,
		Logger:    logging.OrNop(logger),
	}
}

// Get downloads rawURL. Only absolute http and https URLs are accepted. A
// non-200 response returns the Result along with an *Error.
func (c *Client) Get(ctx context.Context, rawURL string) (*Result, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, &Error{URL: rawURL, Message: "invalid URL", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &Error{URL: rawURL, Message: "build request", Cause: err}
	}
	req.Header.Set("User-Agent", c.userAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	hc := c.HTTP
	if hc == nil {
		hc = &http.Client{Timeout: DefaultTimeout}
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, &Error{URL: rawURL, Message: "request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes))
	if err != nil {
		return nil, &Error{URL: rawURL, Message: "read body", Cause: err}
	}

	res := &Result{
		URL:         rawURL,
		HTML:        string(body),
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
	}
	if resp.StatusCode != http.StatusOK {
		return res, &Error{URL: rawURL, Message: fmt.Sprintf("HTTP status %d", resp.StatusCode)}
	}
	return res, nil
}

// Posting downloads rawURL and extracts its description. With useBrowser set,
// a page that yields too little text, or that belongs to a client-rendered
// board, is rendered again in the browser; the rendered text replaces the
// downloaded text only when it is longer. A failed render is logged and the
// downloaded text kept.
func (c *Client) Posting(ctx context.Context, rawURL string, useBrowser bool) (*Posting, error) {
	logger := logging.OrNop(c.Logger).With(zap.String("url", rawURL))
	platform := DetectPlatform(rawURL)
	page := PageFor(platform)

	res, err := c.Get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	title, text, err := Extract(res.HTML, page)
	if err != nil {
		return nil, &Error{URL: rawURL, Message: "extract description", Cause: err}
	}
	logger.Debug("downloaded posting",
		zap.String("platform", string(platform)),
		zap.Int("html_bytes", len(res.HTML)),
		zap.Int("text_chars", len(text)))

	posting := &Posting{URL: rawURL, Platform: platform, Title: title, Text: text}
	if useBrowser && c.Renderer != nil && (page.ClientRendered || looksUnrendered(text)) {
		c.rerender(ctx, posting, page, logger)
	}

	if posting.Text == "" {
		return nil, &Error{URL: rawURL, Message: "extract description", Cause: ErrEmptyPosting}
	}
	return posting, nil
}

func (c *Client) rerender(ctx context.Context, posting *Posting, page Page, logger *zap.Logger) {
	html, err := c.Renderer.Render(ctx, posting.URL)
	if err != nil {
		logger.Warn("browser render failed, keeping downloaded text", zap.Error(err))
		return
	}
	title, text, err := Extract(html, page)
	if err != nil || len(text) <= len(posting.Text) {
		return
	}
	posting.Text = text
	posting.Rendered = true
	if title != "" {
		posting.Title = title
	}
}

func (c *Client) userAgent() string {
	if c.UserAgent == "" {
		return DefaultUserAgent
	}
	return c.UserAgent
}

// chrome is stripped from every page before selectors are applied.
const chrome = "nav, footer, header, script, style, noscript, .ad, .advertisement, .sidebar, .cookie-banner, .popup"

// Extract parses html and returns the page title (first h1, else <title>) and
// the description text. The description is the first node matching one of
// page.Content after page.Noise is removed, or the whole body when none match.
// List items become "- " lines and block elements end their own line.
func Extract(html string, page Page) (title, text string, err error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", "", fmt.Errorf("parse HTML: %w", err)
	}

	title = strings.TrimSpace(doc.Find("h1").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	doc.Find(chrome).Remove()
	if len(page.Noise) > 0 {
		doc.Find(strings.Join(page.Noise, ", ")).Remove()
	}

	body := doc.Find("body")
	for _, sel := range page.Content {
		if match := doc.Find(sel); match.Length() > 0 {
			body = match.First()
			break
		}
	}

	body.Find("p, li, h1, h2, h3, h4, h5, h6, div, br, tr").AppendHtml("\n")
	body.Find("li").PrependHtml("- ")
	return title, tidyLines(body.Text()), nil
}

// tidyLines collapses whitespace within lines and drops empty lines and bare
// bullets.
func tidyLines(s string) string {
	var kept []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" && line != "-" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
