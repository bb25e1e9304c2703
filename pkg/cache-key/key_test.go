package cachekey

import (
	"net/http"
	"testing"
)

func TestForRequestIncludesMethodAndUri(t *testing.T) {
	req, err := http.NewRequest("GET", "/dashboard?tab=recent", nil)
	if err != nil {
		t.Fatal(err)
	}
	if key := ForRequest(req); key != "GET:/dashboard?tab=recent" {
		t.Fatalf("Key is %s", key)
	}
}

func TestForPathMatchesGetRequestKey(t *testing.T) {
	req, err := http.NewRequest("GET", "/offline", nil)
	if err != nil {
		t.Fatal(err)
	}
	if ForRequest(req) != ForPath("/offline") {
		t.Fatalf("Keys differ: %s vs %s", ForRequest(req), ForPath("/offline"))
	}
}

func TestForRequestDistinguishesMethods(t *testing.T) {
	get, _ := http.NewRequest("GET", "/analyze", nil)
	post, _ := http.NewRequest("POST", "/analyze", nil)
	if ForRequest(get) == ForRequest(post) {
		t.Fatalf("GET and POST keys collide: %s", ForRequest(get))
	}
}
