package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ferreye/storecore/coreerrors"
	"github.com/ferreye/storecore/metrics"
	"github.com/ferreye/storecore/notify"
)

// ClientConfig assembles a Client. BaseURL is required.
type ClientConfig struct {
	BaseURL string
	// HTTPClient supplies timeouts and proxies; its transport is wrapped,
	// not replaced. Nil means a fresh client with a 30s timeout.
	HTTPClient *http.Client
	Tokens     TokenSource
	Navigator  notify.Navigator
	Metrics    *metrics.Metrics
	Logger     *zap.Logger
	// PublicPaths extends the no-token allowlist.
	PublicPaths []string
}

// Client issues authenticated requests and translates terminal HTTP
// statuses into the error taxonomy.
type Client struct {
	http    *http.Client
	baseURL string
	nav     notify.Navigator
	metrics *metrics.Metrics
	log     *zap.Logger
}

// NewClient builds a Client whose transport refreshes and retries on 401.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, coreerrors.NewValidation("baseURL", "required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, coreerrors.NewValidation("baseURL", "must be a valid URL")
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	} else {
		clone := *hc
		hc = &clone
	}
	hc.Transport = NewTransport(hc.Transport, cfg.Tokens, cfg.Metrics, cfg.PublicPaths...)

	nav := cfg.Navigator
	if nav == nil {
		nav = notify.NoOpNavigator{}
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Client{
		http:    hc,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		nav:     nav,
		metrics: cfg.Metrics,
		log:     log,
	}, nil
}

// Do executes req and maps terminal statuses. The returned response, when
// non-nil, is the caller's to close. 404 passes through untouched.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.mapTransportError(req, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		drain(resp)
		c.metrics.Inc(metrics.IDRequestExpired)
		c.nav.Navigate(notify.IntentLogin)
		return nil, coreerrors.ErrSessionExpired
	case resp.StatusCode == http.StatusForbidden:
		drain(resp)
		c.metrics.Inc(metrics.IDRequestForbidden)
		c.nav.Navigate(notify.IntentAccessDenied)
		return nil, coreerrors.ErrForbidden
	case resp.StatusCode >= 500:
		drain(resp)
		return nil, fmt.Errorf("%w: status %d", coreerrors.ErrServerError, resp.StatusCode)
	}
	return resp, nil
}

func (c *Client) mapTransportError(req *http.Request, err error) error {
	c.log.Warn("request failed",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Error(err))

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %v", coreerrors.ErrTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", coreerrors.ErrConnectionFailed, err)
}

// GetJSON issues a GET against path and decodes the body into out.
func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	return c.doJSON(req, out)
}

// PostJSON issues a POST with a JSON body and decodes the response into
// out. A nil out discards the body.
func (c *Client) PostJSON(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return c.doJSON(req, out)
}

func (c *Client) doJSON(req *http.Request, out any) error {
	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer drain(resp)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("unexpected status %d for %s", resp.StatusCode, req.URL.Path)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding response: %v", coreerrors.ErrServerError, err)
	}
	return nil
}
