package orgs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/PlanHarvest/internal/model"
	"github.com/dharsanguruparan/PlanHarvest/internal/registry"
)

type fakeLookup struct {
	calls atomic.Int32
	docs  map[string]registry.OrganisationDoc
	err   error
}

func (f *fakeLookup) Organisation(_ context.Context, id string) (registry.OrganisationDoc, error) {
	f.calls.Add(1)
	if f.err != nil {
		return registry.OrganisationDoc{}, f.err
	}
	return f.docs[id], nil
}

func TestResolveEmptyIDSkipsLookup(t *testing.T) {
	lookup := &fakeLookup{}
	org, err := NewResolver(lookup, 0).Resolve(context.Background(), "  ")
	require.NoError(t, err)
	assert.True(t, org.IsZero())
	assert.Zero(t, lookup.calls.Load())
}

func TestResolveCachesPerRun(t *testing.T) {
	lookup := &fakeLookup{docs: map[string]registry.OrganisationDoc{
		"1": {Prefix: "local-authority", Reference: "BST", Name: "Bristol"},
	}}
	r := NewResolver(lookup, 0)

	for i := 0; i < 3; i++ {
		org, err := r.Resolve(context.Background(), "1")
		require.NoError(t, err)
		assert.Equal(t, model.Organization{Curie: "local-authority:BST", Name: "Bristol"}, org)
	}
	assert.Equal(t, int32(1), lookup.calls.Load())
	assert.Equal(t, 1, r.Cached())
}

func TestResolveConcurrentCallersShareLookup(t *testing.T) {
	lookup := &fakeLookup{docs: map[string]registry.OrganisationDoc{"7": {Prefix: "p", Reference: "r"}}}
	r := NewResolver(lookup, 0)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = r.Resolve(context.Background(), "7")
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, r.Cached())
	assert.LessOrEqual(t, lookup.calls.Load(), int32(20))
}

func TestResolvePropagatesErrors(t *testing.T) {
	boom := errors.New("connection reset")
	r := NewResolver(&fakeLookup{err: boom}, 0)
	_, err := r.Resolve(context.Background(), "9")
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, r.Cached())
}

type blockingLookup struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
}

func (b *blockingLookup) Organisation(ctx context.Context, _ string) (registry.OrganisationDoc, error) {
	if b.calls.Add(1) == 1 {
		close(b.started)
	}
	select {
	case <-b.release:
		return registry.OrganisationDoc{Prefix: "local-authority", Reference: "BST"}, nil
	case <-ctx.Done():
		return registry.OrganisationDoc{}, ctx.Err()
	}
}

func TestCancelledCallerDoesNotFailWaiters(t *testing.T) {
	lookup := &blockingLookup{started: make(chan struct{}), release: make(chan struct{})}
	r := NewResolver(lookup, 0)

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := r.Resolve(first, "10")
		firstErr <- err
	}()
	<-lookup.started

	type result struct {
		org model.Organization
		err error
	}
	second := make(chan result, 1)
	go func() {
		org, err := r.Resolve(context.Background(), "10")
		second <- result{org, err}
	}()

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	time.Sleep(20 * time.Millisecond)
	close(lookup.release)
	got := <-second
	require.NoError(t, got.err)
	assert.Equal(t, "local-authority:BST", got.org.Curie)
	assert.Equal(t, int32(1), lookup.calls.Load())
}

func TestCurie(t *testing.T) {
	assert.Equal(t, "local-authority:BST", Curie("local-authority", "BST"))
	assert.Equal(t, "BST", Curie("", "BST"))
	assert.Equal(t, "local-authority", Curie("local-authority", ""))
	assert.Equal(t, "", Curie("", ""))
}
