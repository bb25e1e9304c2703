package offlinecache

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/neurospeech/offline-cache/cache"
	snapshot "github.com/neurospeech/offline-cache/pkg/response-snapshot"
)

// newTestCache creates an offline-cache instance proxying to the given
// origin, backed by an in-memory provider.
func newTestCache(t *testing.T, origin *httptest.Server, config Config) (*OfflineCache, cache.Provider) {
	t.Helper()
	provider := cache.NewMemCache()
	originURL, err := url.Parse(origin.URL)
	if err != nil {
		t.Fatal(err)
	}
	config.Cache = provider
	config.OriginURL = *originURL
	if config.Generation == "" {
		config.Generation = "v1"
	}
	return New(config), provider
}

func installAndActivate(t *testing.T, o *OfflineCache) {
	t.Helper()
	if err := o.Install(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := o.Activate(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func appShellOrigin() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		// the root pattern matches every path, serve only the front page
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("home"))
	})
	mux.HandleFunc("/offline", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("you are offline"))
	})
	return httptest.NewServer(mux)
}

func TestInstallPrecachesSeedAssets(t *testing.T) {
	origin := appShellOrigin()
	defer origin.Close()
	o, provider := newTestCache(t, origin, Config{Precache: []string{"/", "/offline"}})

	if err := o.Install(context.Background()); err != nil {
		t.Fatal(err)
	}

	for _, key := range []string{"GET:/", "GET:/offline"} {
		if !provider.Has("v1", key) {
			t.Fatalf("Key %s not precached", key)
		}
	}
}

func TestInstallAbortsOnFailedAsset(t *testing.T) {
	origin := appShellOrigin()
	defer origin.Close()
	o, provider := newTestCache(t, origin, Config{Precache: []string{"/", "/offline", "/missing"}})

	err := o.Install(context.Background())

	if err == nil {
		t.Fatal("Install did not fail")
	}
	// all-or-nothing: the partial generation must be gone
	buckets, err := provider.Buckets()
	if err != nil {
		t.Fatal(err)
	}
	if len(buckets) != 0 {
		t.Fatalf("Buckets after failed install: %v", buckets)
	}
}

func TestActivateDeletesStaleGenerations(t *testing.T) {
	origin := appShellOrigin()
	defer origin.Close()
	o, provider := newTestCache(t, origin, Config{Generation: "v2"})
	provider.Put("v1", "GET:/", []byte("old"))
	provider.Put("v2", "GET:/", []byte("new"))

	if err := o.Activate(context.Background()); err != nil {
		t.Fatal(err)
	}

	buckets, err := provider.Buckets()
	if err != nil {
		t.Fatal(err)
	}
	if len(buckets) != 1 || buckets[0] != "v2" {
		t.Fatalf("Buckets after activate: %v", buckets)
	}
	if !o.Active() {
		t.Fatal("Not active after activate")
	}
}

func TestServesFromNetworkAndStoresSnapshot(t *testing.T) {
	origin := appShellOrigin()
	defer origin.Close()
	o, provider := newTestCache(t, origin, Config{})
	installAndActivate(t, o)

	rr := httptest.NewRecorder()
	o.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("Status is %d", rr.Code)
	}
	if body := rr.Body.String(); body != "home" {
		t.Fatalf("Body is %s", body)
	}
	if cs := rr.Result().Header.Get("Cache-Status"); !strings.Contains(cs, "detail=stored") {
		t.Fatalf("Cache-Status is %s", cs)
	}
	bts, ok, err := provider.Get("v1", "GET:/")
	if err != nil || !ok {
		t.Fatalf("No cache entry after fetch (err %v)", err)
	}
	stored, err := snapshot.Read(bts)
	if err != nil {
		t.Fatal(err)
	}
	storedBody, _ := io.ReadAll(stored.Body)
	if fmt.Sprintf("%s", storedBody) != "home" {
		t.Fatalf("Stored body is %s", storedBody)
	}
}

func TestNon200NotCached(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	})
	origin := httptest.NewServer(mux)
	defer origin.Close()
	o, provider := newTestCache(t, origin, Config{})
	installAndActivate(t, o)

	rr := httptest.NewRecorder()
	o.ServeHTTP(rr, httptest.NewRequest("GET", "/broken", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("Status is %d", rr.Code)
	}
	if provider.Has("v1", "GET:/broken") {
		t.Fatal("Non-200 response was cached")
	}
}

func TestRedirectPassedThroughUncached(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/", http.StatusMovedPermanently)
	})
	origin := httptest.NewServer(mux)
	defer origin.Close()
	o, provider := newTestCache(t, origin, Config{})
	installAndActivate(t, o)

	rr := httptest.NewRecorder()
	o.ServeHTTP(rr, httptest.NewRequest("GET", "/old", nil))

	if rr.Code != http.StatusMovedPermanently {
		t.Fatalf("Status is %d", rr.Code)
	}
	if provider.Has("v1", "GET:/old") {
		t.Fatal("Redirect was cached")
	}
}

func TestNonGetNotIntercepted(t *testing.T) {
	var gotMethod string
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		w.Write([]byte("analyzed"))
	}))
	defer origin.Close()
	o, provider := newTestCache(t, origin, Config{})
	installAndActivate(t, o)

	rr := httptest.NewRecorder()
	o.ServeHTTP(rr, httptest.NewRequest("POST", "/analyze", strings.NewReader("data")))

	if gotMethod != "POST" {
		t.Fatalf("Origin saw method %s", gotMethod)
	}
	if body := rr.Body.String(); body != "analyzed" {
		t.Fatalf("Body is %s", body)
	}
	if provider.Has("v1", "POST:/analyze") || provider.Has("v1", "GET:/analyze") {
		t.Fatal("Non-GET request produced a cache write")
	}
}

func TestExcludedPathNotIntercepted(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("pending"))
	}))
	defer origin.Close()
	o, provider := newTestCache(t, origin, Config{Exclude: []string{"/status/"}})
	installAndActivate(t, o)

	rr := httptest.NewRecorder()
	o.ServeHTTP(rr, httptest.NewRequest("GET", "/status/task-1", nil))

	if body := rr.Body.String(); body != "pending" {
		t.Fatalf("Body is %s", body)
	}
	if provider.Has("v1", "GET:/status/task-1") {
		t.Fatal("Excluded request produced a cache write")
	}
	if cs := rr.Result().Header.Get("Cache-Status"); !strings.Contains(cs, "bypass") {
		t.Fatalf("Cache-Status is %s", cs)
	}
}

func TestOfflineServesCachedResponse(t *testing.T) {
	origin := appShellOrigin()
	o, _ := newTestCache(t, origin, Config{})
	installAndActivate(t, o)

	o.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	origin.Close()

	rr := httptest.NewRecorder()
	o.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("Status is %d", rr.Code)
	}
	if body := rr.Body.String(); body != "home" {
		t.Fatalf("Body is %s", body)
	}
	if cs := rr.Result().Header.Get("Cache-Status"); !strings.Contains(cs, "hit") {
		t.Fatalf("Cache-Status is %s", cs)
	}
}

// Seed list ["/", "/offline"], generation v1, network down: an HTML request
// for an uncached page gets the offline fallback document.
func TestOfflineFallbackPageForHTMLRequest(t *testing.T) {
	origin := appShellOrigin()
	o, _ := newTestCache(t, origin, Config{Precache: []string{"/", "/offline"}})
	installAndActivate(t, o)
	origin.Close()

	req := httptest.NewRequest("GET", "/dashboard", nil)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	rr := httptest.NewRecorder()
	o.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Status is %d", rr.Code)
	}
	if body := rr.Body.String(); body != "you are offline" {
		t.Fatalf("Body is %s", body)
	}
}

func TestOfflineNonHTMLRequestFails(t *testing.T) {
	origin := appShellOrigin()
	o, _ := newTestCache(t, origin, Config{Precache: []string{"/", "/offline"}})
	installAndActivate(t, o)
	origin.Close()

	req := httptest.NewRequest("GET", "/static/js/app.js", nil)
	req.Header.Set("Accept", "*/*")
	rr := httptest.NewRecorder()
	o.ServeHTTP(rr, req)

	if rr.Code != http.StatusGatewayTimeout {
		t.Fatalf("Status is %d", rr.Code)
	}
}

func TestNotActivatedPassesThrough(t *testing.T) {
	origin := appShellOrigin()
	defer origin.Close()
	o, provider := newTestCache(t, origin, Config{})

	rr := httptest.NewRecorder()
	o.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))

	if body := rr.Body.String(); body != "home" {
		t.Fatalf("Body is %s", body)
	}
	if provider.Has("v1", "GET:/") {
		t.Fatal("Cache write before activation")
	}
}

// failingProvider refuses writes, as when the storage quota is exceeded.
type failingProvider struct {
	cache.Provider
}

func (f failingProvider) Put(bucket, key string, bytes []byte) error {
	return fmt.Errorf("quota exceeded")
}

func TestCacheWriteFailureStillServesResponse(t *testing.T) {
	origin := appShellOrigin()
	defer origin.Close()
	o, _ := newTestCache(t, origin, Config{})
	installAndActivate(t, o)
	o.cache = failingProvider{o.cache}

	rr := httptest.NewRecorder()
	o.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("Status is %d", rr.Code)
	}
	if body := rr.Body.String(); body != "home" {
		t.Fatalf("Body is %s", body)
	}
	// the failed write must not be reported as stored
	if cs := rr.Result().Header.Get("Cache-Status"); strings.Contains(cs, "stored") {
		t.Fatalf("Cache-Status is %s", cs)
	}
}

func TestRepeatedFetchOverwritesEntry(t *testing.T) {
	response := "first"
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(response))
	}))
	defer origin.Close()
	o, provider := newTestCache(t, origin, Config{})
	installAndActivate(t, o)

	o.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	response = "second"
	o.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	bts, ok, err := provider.Get("v1", "GET:/")
	if err != nil || !ok {
		t.Fatalf("No cache entry (err %v)", err)
	}
	stored, err := snapshot.Read(bts)
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(stored.Body)
	if fmt.Sprintf("%s", body) != "second" {
		t.Fatalf("Stored body is %s", body)
	}
}
