// Package orgs resolves registry organisation ids to planning authority
// codes and names.
package orgs

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dharsanguruparan/PlanHarvest/internal/model"
	"github.com/dharsanguruparan/PlanHarvest/internal/pace"
	"github.com/dharsanguruparan/PlanHarvest/internal/registry"
	"github.com/dharsanguruparan/PlanHarvest/internal/storage"
)

const (
	// DefaultDelay is the pause after each organisation lookup.
	DefaultDelay = 100 * time.Millisecond
	// LookupTimeout bounds a shared lookup once it no longer follows the
	// context of the caller that started it.
	LookupTimeout = 30 * time.Second
)

// Lookup fetches one organisation entity.
type Lookup interface {
	Organisation(ctx context.Context, id string) (registry.OrganisationDoc, error)
}

// Resolver memoizes organisations for the duration of one crawl run.
type Resolver struct {
	lookup Lookup
	delay  time.Duration
	cache  *storage.MemoryStore[string, model.Organization]
	group  singleflight.Group
}

// NewResolver builds a Resolver with an empty cache.
func NewResolver(lookup Lookup, delay time.Duration) *Resolver {
	return &Resolver{
		lookup: lookup,
		delay:  delay,
		cache:  storage.NewMemoryStore[string, model.Organization](),
	}
}

// Resolve returns the organisation for id. An empty id resolves to the zero
// Organization without any I/O. Lookup failures are returned, not defaulted.
func (r *Resolver) Resolve(ctx context.Context, id string) (model.Organization, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return model.Organization{}, nil
	}
	if org, ok := r.cache.Get(id); ok {
		return org, nil
	}
	// The shared lookup is detached from the first caller so that caller
	// giving up does not fail the others waiting on the same id.
	ch := r.group.DoChan(id, func() (any, error) {
		if org, ok := r.cache.Get(id); ok {
			return org, nil
		}
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), LookupTimeout)
		defer cancel()
		doc, err := r.lookup.Organisation(lctx, id)
		if err != nil {
			return nil, err
		}
		org := r.cache.PutIfAbsent(id, model.Organization{
			Curie: Curie(doc.Prefix, doc.Reference),
			Name:  doc.Name,
		})
		if err := pace.Sleep(lctx, r.delay); err != nil {
			return nil, err
		}
		return org, nil
	})
	select {
	case <-ctx.Done():
		return model.Organization{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return model.Organization{}, res.Err
		}
		return res.Val.(model.Organization), nil
	}
}

// Cached returns how many organisations have been resolved so far.
func (r *Resolver) Cached() int { return r.cache.Len() }

// Curie joins prefix and reference as "prefix:reference", dropping the
// separator when either side is empty.
func Curie(prefix, reference string) string {
	return strings.Trim(prefix+":"+reference, ":")
}
