// Package httpclient builds the HTTP client shared by the crawler and the
// downloader.
package httpclient

import (
	"net/http"
	"time"
)

// DefaultUserAgent identifies the harvester to registry and document hosts.
const DefaultUserAgent = "PlanHarvest/1.0 (+planning use)"

const (
	defaultMaxIdleConns          = 100
	defaultMaxIdleConnsPerHost   = 4
	defaultIdleConnTimeout       = 90 * time.Second
	defaultTLSHandshakeTimeout   = 10 * time.Second
	defaultResponseHeaderTimeout = 60 * time.Second
)

// NewClient returns a client that stamps userAgent on every request. The
// client has no overall timeout; callers bound each call with a context
// deadline since metadata calls and file downloads need different limits.
func NewClient(userAgent string) *http.Client {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          defaultMaxIdleConns,
		MaxIdleConnsPerHost:   defaultMaxIdleConnsPerHost,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   defaultTLSHandshakeTimeout,
		ResponseHeaderTimeout: defaultResponseHeaderTimeout,
	}
	return &http.Client{Transport: &userAgentTransport{next: transport, agent: userAgent}}
}

// Wrap adds the user agent to an existing round tripper. Tests use it around
// httptest transports.
func Wrap(next http.RoundTripper, userAgent string) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return &userAgentTransport{next: next, agent: userAgent}
}

type userAgentTransport struct {
	next  http.RoundTripper
	agent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.agent)
	}
	return t.next.RoundTrip(req)
}
