package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"github.com/frederikoberm/german-regional-energy-prices-sub001/internal/models"
)

var (
	// ErrNotFound is terminal per target and never retried.
	ErrNotFound = errors.New("page not found")
	// ErrBlocked marks one blocked attempt; retried with a new identity.
	ErrBlocked = errors.New("request blocked")
	// ErrBlockedExhausted means every retry came back blocked.
	ErrBlockedExhausted = errors.New("blocked on all attempts")
	// ErrTransport covers timeouts and connection failures.
	ErrTransport = errors.New("transport error")
)

// Substrings whose presence in a response body marks it as blocked.
// Checked case-insensitively.
var blockingSignatures = []string{
	"access denied",
	"zugriff verweigert",
	"rate limit",
	"too many requests",
	"captcha",
	"verify you are human",
	"sicherheitsüberprüfung",
	"cloudflare",
	"bot detection",
}

// Result is the outcome of one fetch, owned by a single attempt chain.
type Result struct {
	Status   models.FetchStatus
	Document *goquery.Document
	RawText  string
	Entry    Entry
	Attempts int
}

type Options struct {
	Timeout    time.Duration
	MaxRetries int
	// RetryBase is the linear backoff unit: attempt n waits n*RetryBase.
	RetryBase time.Duration
	MinBytes  int
}

// Controller performs the network fetch for one target URL with
// identity rotation, blocked-response detection and bounded retries.
type Controller struct {
	rotation *Rotation
	opts     Options
	logger   *slog.Logger
	// newClient is swapped in tests to point at a test server proxy.
	newClient func(e Entry) *resty.Client
}

func NewController(rotation *Rotation, opts Options, logger *slog.Logger) *Controller {
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 3
	}
	if opts.RetryBase == 0 {
		opts.RetryBase = 2 * time.Second
	}
	if opts.Timeout == 0 {
		opts.Timeout = 20 * time.Second
	}

	c := &Controller{
		rotation: rotation,
		opts:     opts,
		logger:   logger.With("component", "fetch"),
	}
	c.newClient = c.buildClient
	return c
}

func (c *Controller) buildClient(e Entry) *resty.Client {
	client := resty.New().
		SetTimeout(c.opts.Timeout).
		SetHeader("User-Agent", e.UserAgent).
		SetHeader("Accept-Language", "de-DE,de;q=0.9,en;q=0.8").
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(5))

	if e.ProxyURL != "" {
		client.SetProxy(e.ProxyURL)
	}

	return client
}

// Fetch retrieves the page, rotating identity per attempt. Not-found is
// returned immediately; blocked and transport errors are retried with
// linearly increasing backoff until the retries are used up.
func (c *Controller) Fetch(ctx context.Context, url string) (*Result, error) {
	var lastErr error

	for attempt := 1; attempt <= c.opts.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		entry := c.rotation.Next()
		result, err := c.attempt(ctx, url, entry)
		if result != nil {
			result.Attempts = attempt
		}

		switch {
		case err == nil:
			c.rotation.RecordSuccess(entry)
			return result, nil

		case errors.Is(err, ErrNotFound):
			// Expected and common; does not count against the entry.
			return result, err

		case errors.Is(err, ErrBlocked):
			c.rotation.RecordFailure(entry)
			c.logger.Warn("attempt blocked",
				"url", url, "attempt", attempt, "egress", entry.Kind)
			lastErr = err

		default:
			c.rotation.RecordFailure(entry)
			c.logger.Warn("attempt failed",
				"url", url, "attempt", attempt, "error", err)
			lastErr = err
		}

		if attempt < c.opts.MaxRetries {
			if err := c.backoff(ctx, attempt); err != nil {
				return nil, err
			}
		}
	}

	if errors.Is(lastErr, ErrBlocked) {
		return &Result{Status: models.FetchBlocked}, ErrBlockedExhausted
	}
	return &Result{Status: models.FetchTransportError}, fmt.Errorf("retries exhausted: %w", lastErr)
}

func (c *Controller) attempt(ctx context.Context, url string, entry Entry) (*Result, error) {
	client := c.newClient(entry)

	resp, err := client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}

	body := resp.String()

	if resp.StatusCode() == http.StatusNotFound || len(body) == 0 {
		return &Result{Status: models.FetchNotFound, Entry: entry}, ErrNotFound
	}

	if len(body) < c.opts.MinBytes || isBlocked(body) || resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() == http.StatusForbidden {
		return &Result{Status: models.FetchBlocked, Entry: entry}, ErrBlocked
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrTransport, resp.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: parse: %v", ErrTransport, err)
	}

	return &Result{
		Status:   models.FetchOK,
		Document: doc,
		RawText:  doc.Text(),
		Entry:    entry,
	}, nil
}

// backoff waits attempt*RetryBase, abandoning the wait on cancellation.
func (c *Controller) backoff(ctx context.Context, attempt int) error {
	wait := time.Duration(attempt) * c.opts.RetryBase
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}

func isBlocked(body string) bool {
	lower := strings.ToLower(body)
	for _, sig := range blockingSignatures {
		if strings.Contains(lower, sig) {
			return true
		}
	}
	return false
}
