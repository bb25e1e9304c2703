// Package snapshot converts HTTP responses to and from stored byte
// snapshots.
//
// A response body can be consumed exactly once. Dump makes the duplication
// explicit: it drains the body into the returned snapshot and puts an
// equivalent, independent body back on the response, so the caller can
// still send the response downstream after storing the snapshot.
package snapshot

import (
	"bufio"
	"bytes"
	"net/http"
)

// Dump returns the HTTP/1.1 wire representation of the response.
// When it returns without error, the response body has been replaced with
// a fresh reader over the same content and can be consumed as usual.
func Dump(res *http.Response) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := res.Write(buf); err != nil {
		return nil, err
	}
	bts := buf.Bytes()
	// set response body back
	restored, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(bts)), res.Request)
	if err != nil {
		return nil, err
	}
	res.Body = restored.Body
	return bts, nil
}

// Read converts a stored snapshot back to a http.Response.
func Read(b []byte) (*http.Response, error) {
	return http.ReadResponse(bufio.NewReader(bytes.NewReader(b)), nil)
}
