package apiclient

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/ferreye/storecore/metrics"
)

// requestIDHeader tags every outbound request for log correlation.
const requestIDHeader = "X-Request-ID"

// defaultPublicPaths never carry a token. Entries ending in "/" match as
// prefixes, others exactly.
var defaultPublicPaths = []string{
	"/auth/login",
	"/auth/register",
	"/auth/refresh",
	"/public/",
}

// TokenSource supplies bearer tokens and drives the recovery refresh.
// *session.Manager satisfies it.
type TokenSource interface {
	// GetValidToken returns the current access token, or "" when there is
	// no usable one.
	GetValidToken() string
	// Refresh obtains a new access token, single-flighting concurrent
	// callers onto one network call.
	Refresh(ctx context.Context) (string, error)
}

// Transport is an http.RoundTripper that injects authentication. It never
// retries more than once per request, and never for public paths.
type Transport struct {
	base    http.RoundTripper
	tokens  TokenSource
	metrics *metrics.Metrics
	public  []string
}

// NewTransport wraps base. A nil base falls back to
// http.DefaultTransport; extra paths extend the public allowlist.
func NewTransport(base http.RoundTripper, tokens TokenSource, m *metrics.Metrics, extraPublic ...string) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	public := make([]string, 0, len(defaultPublicPaths)+len(extraPublic))
	public = append(public, defaultPublicPaths...)
	public = append(public, extraPublic...)
	return &Transport{base: base, tokens: tokens, metrics: m, public: public}
}

func (t *Transport) isPublic(path string) bool {
	for _, p := range t.public {
		if strings.HasSuffix(p, "/") {
			if strings.HasPrefix(path, p) {
				return true
			}
			continue
		}
		if path == p {
			return true
		}
	}
	return false
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	if out.Header.Get(requestIDHeader) == "" {
		out.Header.Set(requestIDHeader, uuid.NewString())
	}

	if t.isPublic(out.URL.Path) || t.tokens == nil {
		return t.base.RoundTrip(out)
	}

	if token := t.tokens.GetValidToken(); token != "" {
		out.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := t.base.RoundTrip(out)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	// One recovery attempt. A request whose body cannot be replayed keeps
	// its 401.
	if out.Body != nil && out.GetBody == nil {
		return resp, nil
	}

	token, refreshErr := t.tokens.Refresh(req.Context())
	if refreshErr != nil || token == "" {
		return resp, nil
	}

	retry := req.Clone(req.Context())
	retry.Header.Set(requestIDHeader, out.Header.Get(requestIDHeader))
	retry.Header.Set("Authorization", "Bearer "+token)
	if req.GetBody != nil {
		body, bodyErr := req.GetBody()
		if bodyErr != nil {
			return resp, nil
		}
		retry.Body = body
	}

	drain(resp)
	t.metrics.Inc(metrics.IDRequestRetried)
	return t.base.RoundTrip(retry)
}

// drain consumes and closes a response body so the connection can be
// reused.
func drain(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
