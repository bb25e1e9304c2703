// Package cachekey derives cache keys from HTTP requests.
//
// A key identifies one request within a cache generation. Only the method
// and the full request URI take part in the key: the interception policy
// stores at most one response variant per URI, so no header material
// (e.g. Vary) is included.
package cachekey

import (
	"net/http"
)

const methodSeparator = ":"

// ForRequest returns the cache key for a request.
func ForRequest(r *http.Request) string {
	return r.Method + methodSeparator + r.URL.RequestURI()
}

// ForPath returns the cache key a GET request for the given path would get.
// Used for addressing precached assets such as the offline fallback page.
func ForPath(path string) string {
	return http.MethodGet + methodSeparator + path
}
