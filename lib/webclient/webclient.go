package webclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/http/cookiejar"
	"time"
	"wimesh/lib/osutil"
	"wimesh/lib/telemetry"

	"github.com/go-resty/resty/v2"
)

const (
	defaultTimeout        = time.Second * 10
	defaultConnectTimeout = time.Second * 5
	defaultMaxRetries     = 3
	defaultRetryBaseDelay = time.Second
)

// StatusError is returned when the server answered with a status the retry
// loop will not (or can no longer) recover from. Excerpt holds the start of
// the response body for diagnostics.
type StatusError struct {
	Code    int
	Excerpt string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request failed: %d - %s", e.Code, e.Excerpt)
}

type Options struct {
	// Timeout bounds a whole request, default 10s.
	Timeout time.Duration
	// ConnectTimeout bounds dialing, default 5s.
	ConnectTimeout time.Duration
	// MaxRetries is the total number of attempts, default 3.
	MaxRetries int
	// RetryBaseDelay is the delay before the second attempt; it doubles on
	// every further attempt. Default 1s.
	RetryBaseDelay time.Duration
}

// Client is a browser-looking HTTP client with a persistent cookie jar.
// Captive portal servers are known to branch on the user-agent and language
// headers, so the defaults mimic Chrome. Cookies survive across every call
// made on the same instance.
type Client struct {
	http       *resty.Client
	maxRetries int
	baseDelay  time.Duration
}

func NewClient(opts Options) (*Client, error) {
	if opts.Timeout == 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = defaultConnectTimeout
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	if opts.RetryBaseDelay == 0 {
		opts.RetryBaseDelay = defaultRetryBaseDelay
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetCookieJar(jar)
	client.SetTimeout(opts.Timeout)
	client.SetTransport(&http.Transport{
		DialContext: (&net.Dialer{Timeout: opts.ConnectTimeout}).DialContext,
	})
	client.SetHeader("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/120.0")
	client.SetHeader("Accept", "application/json, text/plain, */*")
	client.SetHeader("Accept-Language", "en-US,en;q=0.9,vi;q=0.8")

	telemetry.InstrumentResty(client, "webclient/http")

	return &Client{
		http:       client,
		maxRetries: opts.MaxRetries,
		baseDelay:  opts.RetryBaseDelay,
	}, nil
}

func (c *Client) Get(ctx context.Context, url string) (*resty.Response, error) {
	return c.doWithRetry(ctx, func() (*resty.Response, error) {
		return c.http.R().
			SetContext(ctx).
			Get(url)
	})
}

func (c *Client) GetWithHeaders(ctx context.Context, url string, headers map[string]string) (*resty.Response, error) {
	return c.doWithRetry(ctx, func() (*resty.Response, error) {
		return c.http.R().
			SetContext(ctx).
			SetHeaders(headers).
			Get(url)
	})
}

func (c *Client) PostJSON(ctx context.Context, url string, body any) (*resty.Response, error) {
	return c.PostJSONWithHeaders(ctx, url, body, nil)
}

func (c *Client) PostJSONWithHeaders(ctx context.Context, url string, body any, headers map[string]string) (*resty.Response, error) {
	return c.doWithRetry(ctx, func() (*resty.Response, error) {
		return c.http.R().
			SetContext(ctx).
			SetHeader("Content-Type", "application/json").
			SetHeader("X-Requested-With", "XMLHttpRequest").
			SetHeaders(headers).
			SetBody(body).
			Post(url)
	})
}

func (c *Client) PostForm(ctx context.Context, url string, fields map[string]string) (*resty.Response, error) {
	return c.doWithRetry(ctx, func() (*resty.Response, error) {
		return c.http.R().
			SetContext(ctx).
			SetFormData(fields).
			Post(url)
	})
}

func excerpt(body string, max int) string {
	if len(body) > max {
		return body[:max]
	}
	return body
}

// doWithRetry runs the request up to maxRetries times. 2xx wins immediately,
// 5xx and transport failures back off exponentially, anything else is
// terminal on the spot.
func (c *Client) doWithRetry(ctx context.Context, send func() (*resty.Response, error)) (*resty.Response, error) {
	var lastErr error

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		res, err := send()
		switch {
		case err == nil && res.IsSuccess():
			return res, nil

		case err == nil && res.StatusCode() >= 500 && attempt < c.maxRetries-1:
			delay := c.baseDelay << attempt
			lastErr = &StatusError{Code: res.StatusCode(), Excerpt: excerpt(res.String(), 200)}
			slog.WarnContext(ctx, "server error, retrying",
				"status", res.StatusCode(),
				"body", excerpt(res.String(), 200),
				"delay", delay,
				"attempt", attempt+1,
				"max", c.maxRetries,
			)
			if err := osutil.Sleep(ctx, delay); err != nil {
				return nil, err
			}

		case err == nil:
			return nil, &StatusError{Code: res.StatusCode(), Excerpt: excerpt(res.String(), 50)}

		case attempt < c.maxRetries-1:
			delay := c.baseDelay << attempt
			lastErr = err
			slog.WarnContext(ctx, "request error, retrying",
				"err", err,
				"delay", delay,
				"attempt", attempt+1,
				"max", c.maxRetries,
			)
			if err := osutil.Sleep(ctx, delay); err != nil {
				return nil, err
			}

		default:
			return nil, err
		}
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, errors.New("max retries exceeded")
}
