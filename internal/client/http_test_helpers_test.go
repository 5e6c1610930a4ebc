package client

import (
	"bytes"
	"io"
	"net/http"
	"testing"

	"github.com/technova/attrition-console/internal/utils"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestClient(t *testing.T, rt roundTripFunc) *Client {
	t.Helper()
	c, err := New(Options{
		BaseURL:    "https://scoring.example.com/api",
		HTTPClient: &http.Client{Transport: rt},
		Logger:     utils.DiscardLogger(),
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewReader([]byte(body))),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}
