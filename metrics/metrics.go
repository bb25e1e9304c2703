package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fetch outcome label values.
const (
	FetchNetwork     = "network"
	FetchCache       = "cache"
	FetchOfflinePage = "offline_page"
	FetchUnhandled   = "unhandled"
	FetchPassthrough = "passthrough"
)

var (
	FetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offline_cache_fetch_total",
			Help: "Total number of intercepted fetches by outcome",
		},
		[]string{"outcome"},
	)

	CacheWrites = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "offline_cache_writes_total",
			Help: "Total number of response snapshots written to the cache",
		},
	)

	CacheWriteFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "offline_cache_write_failures_total",
			Help: "Total number of cache writes that failed",
		},
	)

	PrecachedAssets = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "offline_cache_precached_assets",
			Help: "Number of app shell assets stored by the last install",
		},
	)

	SyncTriggers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offline_cache_sync_triggers_total",
			Help: "Total number of background sync triggers by tag",
		},
		[]string{"tag"},
	)

	NotificationsShown = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "offline_cache_notifications_shown_total",
			Help: "Total number of push notifications displayed",
		},
	)
)

// RecordFetch records one intercepted fetch with the given outcome.
func RecordFetch(outcome string) {
	FetchTotal.WithLabelValues(outcome).Inc()
}

// RecordCacheWrite records a cache write attempt.
func RecordCacheWrite(err error) {
	if err != nil {
		CacheWriteFailures.Inc()
		return
	}
	CacheWrites.Inc()
}

// RecordSyncTrigger records a background sync trigger for the given tag.
func RecordSyncTrigger(tag string) {
	SyncTriggers.WithLabelValues(tag).Inc()
}

// RecordNotificationShown records a displayed push notification.
func RecordNotificationShown() {
	NotificationsShown.Inc()
}
