// Package offlinecache gives a web application installable offline
// behavior: it intercepts requests on their way to the origin, applies a
// network-first caching policy against a versioned cache generation, and
// falls back to cached snapshots (or a dedicated offline page) when the
// origin is unreachable.
package offlinecache

import (
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"github.com/neurospeech/offline-cache/cache"
	"github.com/neurospeech/offline-cache/metrics"
	cachekey "github.com/neurospeech/offline-cache/pkg/cache-key"
	snapshot "github.com/neurospeech/offline-cache/pkg/response-snapshot"
)

type Config struct {
	// Storage for cached response snapshots.
	Cache cache.Provider
	// URL of the origin server.
	// Origins with paths are not supported.
	OriginURL url.URL
	// Generation identifies the current cache bucket. Changing it on deploy
	// invalidates all previously cached content on the next activation.
	Generation string
	// Precache is the app shell: the URL paths bulk-cached on install.
	// It should include OfflinePath.
	Precache []string
	// Exclude opts requests out of interception: a request whose URL
	// contains any of these substrings is passed through untouched.
	Exclude []string
	// OfflinePath is the fallback document served to HTML requests when
	// both network and cache fail. Defaults to "/offline".
	OfflinePath string
	// Logger to use. The global zerolog logger is used if nil.
	Logger *zerolog.Logger
}

type OfflineCache struct {
	cache       cache.Provider
	originURL   url.URL
	generation  string
	precache    []string
	exclude     []string
	offlinePath string
	log         zerolog.Logger
	client      http.Client
	active      atomic.Bool
}

// New initializes the offline-cache instance.
// The instance passes all traffic through uncached until Activate has run.
func New(config Config) *OfflineCache {
	// use console logger if not specified in config
	var logger zerolog.Logger
	if config.Logger == nil {
		logger = zerolog.New(zerolog.NewConsoleWriter())
	} else {
		logger = *config.Logger
	}
	logger = logger.With().
		Str("generation", config.Generation).
		Logger()

	if config.OfflinePath == "" {
		config.OfflinePath = "/offline"
	}

	return &OfflineCache{
		cache:       config.Cache,
		originURL:   config.OriginURL,
		generation:  config.Generation,
		precache:    config.Precache,
		exclude:     config.Exclude,
		offlinePath: config.OfflinePath,
		log:         logger,
		client: http.Client{
			// do not follow redirects: they are passed through to the
			// caller and never cached
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Generation returns the current cache generation identifier.
func (o *OfflineCache) Generation() string {
	return o.generation
}

// ServeHTTP implements the http.Handler interface.
// It is the main entry point for the interception policy.
func (o *OfflineCache) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := o.getLogger(r)

	var cs CacheStatus
	if !o.active.Load() {
		// not yet activated, the page is not controlled
		cs.Forward(CacheStatusFwdBypass)
		o.passThrough(w, r, cs, logger)
		return
	}
	if r.Method != http.MethodGet {
		cs.Forward(CacheStatusFwdMethod)
		o.passThrough(w, r, cs, logger)
		return
	}
	if o.isExcluded(r) {
		cs.Forward(CacheStatusFwdBypass)
		o.passThrough(w, r, cs, logger)
		return
	}

	key := cachekey.ForRequest(r)

	// network first
	res, err := o.fetch(r)
	if err == nil {
		cs.Forward(CacheStatusFwdMiss)
		if res.StatusCode == http.StatusOK {
			if err := o.store(key, res, logger); err == nil {
				cs.Detail("stored")
			}
		}
		metrics.RecordFetch(metrics.FetchNetwork)
		send(w, res, cs, logger)
		return
	}
	logger.Debug().Err(err).Str("key", key).Msg("Network fetch failed, falling back to cache")

	// then cache
	if cached := o.lookup(key, logger); cached != nil {
		cs.Hit()
		metrics.RecordFetch(metrics.FetchCache)
		send(w, cached, cs, logger)
		return
	}

	// then the offline page, for HTML requests only
	if acceptsHTML(r) {
		if offline := o.lookup(cachekey.ForPath(o.offlinePath), logger); offline != nil {
			cs.Hit()
			cs.Detail("offline")
			metrics.RecordFetch(metrics.FetchOfflinePage)
			send(w, offline, cs, logger)
			return
		}
	}

	// nothing left to serve
	logger.Warn().Str("key", key).Msg("Offline with no cached response")
	metrics.RecordFetch(metrics.FetchUnhandled)
	http.Error(w, "offline", http.StatusGatewayTimeout)
}

// store writes a snapshot of the response to the current generation.
// Writes are best-effort: a failed write must not prevent the response
// from reaching the client, so errors are logged and returned only so the
// caller can report the write accurately.
func (o *OfflineCache) store(key string, res *http.Response, logger *zerolog.Logger) error {
	bts, err := snapshot.Dump(res)
	if err != nil {
		logger.Error().Err(err).Str("key", key).Msg("Could not snapshot response")
		metrics.RecordCacheWrite(err)
		return err
	}
	err = o.cache.Put(o.generation, key, bts)
	metrics.RecordCacheWrite(err)
	if err != nil {
		logger.Error().Err(err).Str("key", key).Msg("Could not write to cache")
		return err
	}
	logger.Trace().Str("key", key).Msg("Cache write")
	return nil
}

// lookup returns the snapshot stored under key in the current generation,
// or nil if there is none (or it cannot be read back).
func (o *OfflineCache) lookup(key string, logger *zerolog.Logger) *http.Response {
	bts, ok, err := o.cache.Get(o.generation, key)
	if err != nil {
		logger.Error().Err(err).Str("key", key).Msg("Could not read from cache")
		return nil
	}
	if !ok {
		return nil
	}
	res, err := snapshot.Read(bts)
	if err != nil {
		logger.Error().Err(err).Str("key", key).Msg("Corrupted cache entry")
		return nil
	}
	return res
}

// fetch the resource specified in the incoming request from the origin.
func (o *OfflineCache) fetch(r *http.Request) (*http.Response, error) {
	uri := o.originURL.String() + r.URL.RequestURI()
	// need to specifically set body to nil on the outgoing request if content is zero length
	// see https://github.com/golang/go/issues/16036
	body := r.Body
	if r.ContentLength == 0 {
		body = nil
	}
	req, err := http.NewRequestWithContext(r.Context(), r.Method, uri, body)
	if err != nil {
		return nil, err
	}
	copyHeader(req.Header, r.Header)
	// do not forward connection header, this causes trouble
	req.Header.Del("Connection")
	return o.client.Do(req)
}

// passThrough pipes the original request to the origin with no caching
// side effect.
func (o *OfflineCache) passThrough(w http.ResponseWriter, r *http.Request, cs CacheStatus, logger *zerolog.Logger) {
	metrics.RecordFetch(metrics.FetchPassthrough)
	res, err := o.fetch(r)
	if err != nil {
		logger.Error().Err(err).Msg("Could not fetch response from origin")
		http.Error(w, "Error contacting origin", http.StatusBadGateway)
		return
	}
	send(w, res, cs, logger)
}

func (o *OfflineCache) isExcluded(r *http.Request) bool {
	uri := r.URL.String()
	for _, pattern := range o.exclude {
		if strings.Contains(uri, pattern) {
			return true
		}
	}
	return false
}

// getLogger returns the logger from the request context.
// If no logger is found, it will return the instance logger.
func (o *OfflineCache) getLogger(r *http.Request) *zerolog.Logger {
	logger := hlog.FromRequest(r)
	if logger.GetLevel() == zerolog.Disabled {
		if o.log.GetLevel() == zerolog.Disabled {
			return &log.Logger
		}
		return &o.log
	}
	return logger
}

func acceptsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

func send(w http.ResponseWriter, res *http.Response, cs CacheStatus, logger *zerolog.Logger) error {
	if res.Body != nil {
		defer res.Body.Close()
	}
	copyHeader(w.Header(), res.Header)
	w.Header().Add("Cache-Status", cs.String())
	w.WriteHeader(res.StatusCode)
	bytesWritten, err := io.Copy(w, res.Body)
	if err != nil {
		logger.Error().Err(err).Msg("Could not write response body to client")
	}
	logger.Trace().Msgf("Wrote body (%d bytes)", bytesWritten)
	return err
}

func copyHeader(dst, src http.Header) {
	for k, vv := range src {
		// this is a workaround to remove default headers sent by an upstream proxy
		// some servers do not like the presence of these headers in the downstream request
		if k != "X-Forwarded-For" && k != "X-Forwarded-Proto" && k != "X-Forwarded-Host" {
			for _, v := range vv {
				dst.Add(k, v)
			}
		}
	}
}
