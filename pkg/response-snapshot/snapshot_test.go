package snapshot

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
)

func TestDumpBodyIntact(t *testing.T) {
	response := `HTTP/1.1 200 OK
Server: Test

This is the body`

	res, err := http.ReadResponse(bufio.NewReader(strings.NewReader(response)), nil)
	if err != nil {
		panic(err)
	}

	_, err = Dump(res)
	if err != nil {
		t.Fatalf("Error: %v", err)
	}
	body, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("Error: %v", err)
	}
	if fmt.Sprintf("%s", body) != "This is the body" {
		t.Fatalf("Body: %s", body)
	}
}

func TestReadRestoresDumpedResponse(t *testing.T) {
	response := `HTTP/1.1 200 OK
Server: Test
Content-Type: text/html

<h1>Offline</h1>`

	res, err := http.ReadResponse(bufio.NewReader(strings.NewReader(response)), nil)
	if err != nil {
		panic(err)
	}

	bts, err := Dump(res)
	if err != nil {
		t.Fatalf("Error: %v", err)
	}
	stored, err := Read(bts)
	if err != nil {
		t.Fatalf("Error: %v", err)
	}
	if stored.StatusCode != http.StatusOK {
		t.Fatalf("Status is %d", stored.StatusCode)
	}
	if ct := stored.Header.Get("Content-Type"); ct != "text/html" {
		t.Fatalf("Content-Type is %s", ct)
	}
	body, _ := io.ReadAll(stored.Body)
	if fmt.Sprintf("%s", body) != "<h1>Offline</h1>" {
		t.Fatalf("Body: %s", body)
	}
}

func TestDumpedSnapshotIndependentOfResponseBody(t *testing.T) {
	response := `HTTP/1.1 200 OK
Server: Test

payload`

	res, err := http.ReadResponse(bufio.NewReader(strings.NewReader(response)), nil)
	if err != nil {
		panic(err)
	}

	bts, err := Dump(res)
	if err != nil {
		t.Fatalf("Error: %v", err)
	}
	// consume the live body, then make sure the snapshot still reads back
	io.ReadAll(res.Body)
	res.Body.Close()

	stored, err := Read(bts)
	if err != nil {
		t.Fatalf("Error: %v", err)
	}
	body, _ := io.ReadAll(stored.Body)
	if fmt.Sprintf("%s", body) != "payload" {
		t.Fatalf("Body: %s", body)
	}
}
