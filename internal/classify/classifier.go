// Package classify works out what a registry document URL really points at by
// probing it over HTTP.
package classify

import (
	"context"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/dharsanguruparan/PlanHarvest/internal/model"
	"github.com/dharsanguruparan/PlanHarvest/internal/pace"
	"github.com/dharsanguruparan/PlanHarvest/internal/storage"
)

const (
	headTimeout  = 25 * time.Second
	rangeTimeout = 30 * time.Second
)

// DefaultViewerHosts never serve raw files; their URLs are viewer or app
// pages.
var DefaultViewerHosts = []string{
	"arcgis.com",
	"maps.arcgis.com",
	"sharepoint.com",
	"google.com",
	"drive.google.com",
}

// Config tunes a Classifier.
type Config struct {
	// ViewerHosts overrides DefaultViewerHosts when non-empty.
	ViewerHosts []string
	// ProbeInterval is the minimum spacing between probe requests across all
	// callers. Zero disables pacing.
	ProbeInterval time.Duration
	// DisableCache turns off the per-run memo of results by URL.
	DisableCache bool
}

// Classifier resolves URLs to a Classification. It is safe for concurrent use.
type Classifier struct {
	http        *http.Client
	viewerHosts []string
	limiter     *rate.Limiter
	cache       *storage.MemoryStore[string, model.Classification]
}

// New builds a Classifier that probes through httpClient.
func New(httpClient *http.Client, cfg Config) *Classifier {
	hosts := cfg.ViewerHosts
	if len(hosts) == 0 {
		hosts = DefaultViewerHosts
	}
	c := &Classifier{
		http:        httpClient,
		viewerHosts: normalizeHosts(hosts),
		limiter:     pace.NewLimiter(cfg.ProbeInterval),
	}
	if !cfg.DisableCache {
		c.cache = storage.NewMemoryStore[string, model.Classification]()
	}
	return c
}

// Classify never fails: transport problems degrade to KindUnknown. Results
// reflect live server state and may differ between runs.
func (c *Classifier) Classify(ctx context.Context, rawURL string) model.Classification {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return model.Classification{Kind: model.KindUnknown}
	}
	if c.cache != nil {
		if res, ok := c.cache.Get(rawURL); ok {
			return res
		}
	}
	res := c.classify(ctx, rawURL)
	if c.cache != nil && ctx.Err() == nil {
		res = c.cache.PutIfAbsent(rawURL, res)
	}
	return res
}

func (c *Classifier) classify(ctx context.Context, rawURL string) model.Classification {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return model.Classification{URL: rawURL, Kind: model.KindUnknown}
	}
	if c.IsViewerHost(u.Hostname()) {
		return model.Classification{URL: rawURL, Kind: model.KindLanding}
	}

	ext := strings.ToLower(path.Ext(u.Path))
	obs, ok := c.probe(ctx, rawURL)
	if !ok {
		return model.Classification{URL: rawURL, Kind: model.KindUnknown}
	}

	effective := obs.contentType
	if effective == "" && obs.status < http.StatusBadRequest {
		effective = mediaType(mime.TypeByExtension(ext))
	}
	return model.Classification{
		URL:         obs.finalURL,
		ContentType: obs.contentType,
		Status:      obs.status,
		Kind:        KindFor(effective, ext),
	}
}

// IsViewerHost reports whether host is, or is a subdomain of, a viewer host.
func (c *Classifier) IsViewerHost(host string) bool {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	for _, h := range c.viewerHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// KindFor maps a media type and path extension to a file kind.
func KindFor(contentType, ext string) model.FileKind {
	switch {
	case strings.Contains(contentType, "pdf") || ext == ".pdf":
		return model.KindPDF
	case strings.HasPrefix(contentType, "image/"):
		return model.KindImage
	case strings.Contains(contentType, "html"):
		return model.KindHTML
	case strings.HasPrefix(contentType, "application/"):
		return model.KindDoc
	default:
		return model.KindUnknown
	}
}

// mediaType lowercases a Content-Type value and drops any parameters.
func mediaType(v string) string {
	if i := strings.IndexByte(v, ';'); i >= 0 {
		v = v[:i]
	}
	return strings.ToLower(strings.TrimSpace(v))
}

func normalizeHosts(hosts []string) []string {
	out := make([]string, 0, len(hosts))
	for _, h := range hosts {
		h = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(h)), ".")
		if h != "" {
			out = append(out, h)
		}
	}
	return out
}
