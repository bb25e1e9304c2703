package offlinecache

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/neurospeech/offline-cache/lifecycle"
	"github.com/neurospeech/offline-cache/metrics"
	cachekey "github.com/neurospeech/offline-cache/pkg/cache-key"
	snapshot "github.com/neurospeech/offline-cache/pkg/response-snapshot"
)

// Install bulk-populates the current generation with the app shell: every
// precache path is fetched from the origin and its snapshot stored.
// Population is all-or-nothing: on the first failure the partially
// populated bucket is deleted and the error returned, so the hosting
// process can retry installation later.
func (o *OfflineCache) Install(ctx context.Context) error {
	if !contains(o.precache, o.offlinePath) {
		o.log.Warn().
			Str("path", o.offlinePath).
			Msg("Offline page not in precache list, offline fallback will not work")
	}
	for _, path := range o.precache {
		if err := o.precachePath(ctx, path); err != nil {
			if delErr := o.cache.DeleteBucket(o.generation); delErr != nil {
				o.log.Error().Err(delErr).Msg("Could not delete partially populated generation")
			}
			return fmt.Errorf("install aborted: %w", err)
		}
	}
	metrics.PrecachedAssets.Set(float64(len(o.precache)))
	o.log.Info().Int("assets", len(o.precache)).Msg("Install complete")
	return nil
}

func (o *OfflineCache) precachePath(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		return fmt.Errorf("precache %s: %w", path, err)
	}
	res, err := o.fetch(req)
	if err != nil {
		return fmt.Errorf("precache %s: %w", path, err)
	}
	defer func() {
		io.Copy(io.Discard, res.Body)
		res.Body.Close()
	}()
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("precache %s: unexpected status %d", path, res.StatusCode)
	}
	bts, err := snapshot.Dump(res)
	if err != nil {
		return fmt.Errorf("precache %s: %w", path, err)
	}
	if err := o.cache.Put(o.generation, cachekey.ForPath(path), bts); err != nil {
		return fmt.Errorf("precache %s: %w", path, err)
	}
	o.log.Trace().Str("path", path).Msg("Precached")
	return nil
}

// Activate deletes every cache generation other than the current one and
// then starts intercepting traffic. After activation exactly one
// generation exists and every subsequent fetch sees a consistent version.
func (o *OfflineCache) Activate(ctx context.Context) error {
	buckets, err := o.cache.Buckets()
	if err != nil {
		return fmt.Errorf("activate: %w", err)
	}
	for _, bucket := range buckets {
		if bucket == o.generation {
			continue
		}
		if err := o.cache.DeleteBucket(bucket); err != nil {
			return fmt.Errorf("activate: delete generation %s: %w", bucket, err)
		}
		o.log.Info().Str("old", bucket).Msg("Deleted stale generation")
	}
	o.active.Store(true)
	o.log.Info().Msg("Activated")
	return nil
}

// Active reports whether the instance has been activated and is
// intercepting traffic.
func (o *OfflineCache) Active() bool {
	return o.active.Load()
}

// RegisterLifecycle registers the install and activate handlers on the
// given registry. The hosting process dispatches install first, then
// activate, before serving traffic.
func (o *OfflineCache) RegisterLifecycle(reg *lifecycle.Registry) {
	reg.Register(lifecycle.Install, func(ctx context.Context, ev lifecycle.Event) error {
		return o.Install(ctx)
	})
	reg.Register(lifecycle.Activate, func(ctx context.Context, ev lifecycle.Event) error {
		return o.Activate(ctx)
	})
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
