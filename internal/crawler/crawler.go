// Package crawler pages through the registry and turns its entries into
// deduplicated, classified catalog records.
package crawler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dharsanguruparan/PlanHarvest/internal/doctypes"
	"github.com/dharsanguruparan/PlanHarvest/internal/logger"
	"github.com/dharsanguruparan/PlanHarvest/internal/metrics"
	"github.com/dharsanguruparan/PlanHarvest/internal/model"
	"github.com/dharsanguruparan/PlanHarvest/internal/pace"
)

// DefaultPageDelay is the pause after each non-empty registry page.
const DefaultPageDelay = 200 * time.Millisecond

const progressEvery = 10

// Pager reads one registry page at an offset.
type Pager interface {
	Page(ctx context.Context, offset int) ([]model.RegistryEntry, error)
}

// OrgResolver resolves organisation ids.
type OrgResolver interface {
	Resolve(ctx context.Context, id string) (model.Organization, error)
}

// URLClassifier classifies declared document URLs.
type URLClassifier interface {
	Classify(ctx context.Context, rawURL string) model.Classification
}

// Policy decides what happens when one entry cannot be processed.
type Policy string

const (
	// PolicyAbort stops the crawl at the first item error. Records emitted so
	// far stay with the caller.
	PolicyAbort Policy = "abort"
	// PolicySkip records the item as a CrawlFailure and carries on.
	PolicySkip Policy = "skip"
)

// ParsePolicy accepts "abort" or "skip"; empty means abort.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyAbort:
		return PolicyAbort, nil
	case PolicySkip:
		return PolicySkip, nil
	default:
		return "", fmt.Errorf("unknown item error policy %q (want abort or skip)", s)
	}
}

// Config tunes a crawl.
type Config struct {
	PageDelay time.Duration
	// Workers bounds concurrent classification within a page. Values below
	// one mean one.
	Workers     int
	OnItemError Policy
}

// Stats summarizes one crawl.
type Stats struct {
	Pages      int
	Seen       int
	Duplicates int
	Emitted    int
	Failures   []model.CrawlFailure
}

// Crawler produces catalog records. A Crawler holds no state between runs;
// per-run caches live in the resolver and classifier it is given.
type Crawler struct {
	pager      Pager
	resolver   OrgResolver
	classifier URLClassifier
	cfg        Config
	log        logger.Logger
	metrics    *metrics.Metrics
}

// New builds a Crawler. log and m may be nil.
func New(pager Pager, resolver OrgResolver, classifier URLClassifier, cfg Config, log logger.Logger, m *metrics.Metrics) *Crawler {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.OnItemError == "" {
		cfg.OnItemError = PolicyAbort
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Crawler{
		pager:      pager,
		resolver:   resolver,
		classifier: classifier,
		cfg:        cfg,
		log:        log,
		metrics:    m,
	}
}

type candidate struct {
	entry model.RegistryEntry
	org   model.Organization
	tags  []string
}

// Crawl walks the registry from offset zero until an empty page and calls
// emit for every new record, in crawl order. The first occurrence of a dedup
// key wins; later ones are dropped before classification. Page errors always
// end the crawl; item errors follow the configured policy. An error from emit
// ends the crawl and is returned.
func (c *Crawler) Crawl(ctx context.Context, emit func(model.CatalogRecord) error) (Stats, error) {
	var stats Stats
	seen := make(map[model.Key]struct{})

	for offset := 0; ; {
		entries, err := c.pager.Page(ctx, offset)
		if err != nil {
			return stats, err
		}
		if len(entries) == 0 {
			break
		}
		stats.Pages++

		var (
			pending  []candidate
			abortErr error
		)
		for _, e := range entries {
			stats.Seen++
			c.metrics.ObserveEntry()
			if stats.Seen%progressEvery == 0 {
				c.log.Info("crawl progress",
					logger.Int("entries", stats.Seen),
					logger.Int("records", stats.Emitted+len(pending)),
				)
			}

			org, err := c.resolver.Resolve(ctx, e.OrganisationEntity.String())
			if err != nil {
				err = fmt.Errorf("resolve organisation %s for %s: %w", e.OrganisationEntity, e.Reference, err)
				if c.cfg.OnItemError == PolicyAbort || ctx.Err() != nil {
					abortErr = err
					break
				}
				c.skip(&stats, e, err)
				continue
			}

			key := model.Key{Curie: org.Curie, LocalPlan: e.LocalPlan.String(), DeclaredURL: e.DocumentURL.String()}
			if _, dup := seen[key]; dup {
				stats.Duplicates++
				c.metrics.ObserveDuplicate()
				continue
			}
			seen[key] = struct{}{}
			pending = append(pending, candidate{entry: e, org: org, tags: doctypes.Normalize(e.DocumentTypes)})
		}

		results := c.classifyAll(ctx, pending)
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		for i, cand := range pending {
			rec := buildRecord(cand, results[i])
			if err := emit(rec); err != nil {
				return stats, err
			}
			stats.Emitted++
			c.metrics.ObserveRecord(rec.FileKind)
		}
		if abortErr != nil {
			return stats, abortErr
		}

		offset += len(entries)
		if err := pace.Sleep(ctx, c.cfg.PageDelay); err != nil {
			return stats, err
		}
	}

	c.log.Info("crawl finished",
		logger.Int("pages", stats.Pages),
		logger.Int("entries", stats.Seen),
		logger.Int("duplicates", stats.Duplicates),
		logger.Int("records", stats.Emitted),
		logger.Int("skipped", len(stats.Failures)),
	)
	return stats, nil
}

// Collect runs Crawl and gathers the records. On error the records emitted
// before it are still returned.
func (c *Crawler) Collect(ctx context.Context) ([]model.CatalogRecord, Stats, error) {
	var records []model.CatalogRecord
	stats, err := c.Crawl(ctx, func(r model.CatalogRecord) error {
		records = append(records, r)
		return nil
	})
	return records, stats, err
}

// classifyAll probes the candidates' declared URLs with at most Workers in
// flight and returns results index-aligned with pending.
func (c *Crawler) classifyAll(ctx context.Context, pending []candidate) []model.Classification {
	results := make([]model.Classification, len(pending))
	var g errgroup.Group
	g.SetLimit(c.cfg.Workers)
	for i := range pending {
		i := i
		g.Go(func() error {
			results[i] = c.classifier.Classify(ctx, pending[i].entry.DocumentURL.String())
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (c *Crawler) skip(stats *Stats, e model.RegistryEntry, err error) {
	c.log.Warn("skipping registry entry",
		logger.String("reference", e.Reference.String()),
		logger.String("organisation_entity", e.OrganisationEntity.String()),
		logger.Error(err),
	)
	c.metrics.ObserveCrawlFailure()
	stats.Failures = append(stats.Failures, model.CrawlFailure{
		Reference:          e.Reference.String(),
		Name:               e.Name.String(),
		OrganisationEntity: e.OrganisationEntity.String(),
		DocumentURL:        e.DocumentURL.String(),
		Error:              err.Error(),
	})
}

// buildRecord merges an entry with its classification. A URL that turned out
// not to be a file is dropped when the entry also names a landing page, so
// the row reads as landing-only.
func buildRecord(cand candidate, cls model.Classification) model.CatalogRecord {
	e := cand.entry
	landing := e.DocumentationURL.String()
	final := cls.URL
	if cls.Kind.LandingOnly() && landing != "" {
		final = ""
	}
	return model.CatalogRecord{
		LPACurie:     cand.org.Curie,
		LPAName:      cand.org.Name,
		DocReference: e.Reference.String(),
		DocName:      e.Name.String(),
		DocTypes:     cand.tags,
		FileKind:     cls.Kind,
		FinalURL:     final,
		LandingURL:   landing,
		Status:       cls.Status,
		ContentType:  cls.ContentType,
		EntryDate:    e.EntryDate.String(),
		LocalPlan:    e.LocalPlan.String(),
		DeclaredURL:  e.DocumentURL.String(),
	}
}
