package llm

import (
	"net/http"
	"time"
)

type headerTransport struct {
	rt      http.RoundTripper
	headers http.Header
}

func (t headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Clone request to avoid mutating the original
	cl := req.Clone(req.Context())
	for k, vs := range t.headers {
		for _, v := range vs {
			cl.Header.Add(k, v)
		}
	}
	return t.rt.RoundTrip(cl)
}

// newHTTPClient returns a client that adds headers to every request.
// A zero timeout keeps the transport default.
func newHTTPClient(headers http.Header, timeout time.Duration) *http.Client {
	var rt http.RoundTripper = http.DefaultTransport
	if len(headers) > 0 {
		rt = headerTransport{rt: rt, headers: headers}
	}
	return &http.Client{Transport: rt, Timeout: timeout}
}
