package flows

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	HeaderRequestID = "X-Request-ID"
	MediaTypeJSON   = "application/json"
)

// Request is the immutable description of one backend call. Replays rebuild the
// *http.Request from it, so the body is held as bytes.
type Request struct {
	Method      string
	Path        string
	Query       url.Values
	Header      http.Header
	Body        []byte
	ContentType string
	Accept      string
	Timeout     time.Duration
}

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// ResolveURL joins base and path, keeping any path prefix on base. Absolute http(s) paths
// are used as given.
func ResolveURL(base, path string, query url.Values) (*url.URL, error) {
	raw := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		raw = strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u, nil
}

func (r Request) build(ctx context.Context, base, token, requestID, userAgent string) (*http.Request, error) {
	u, err := ResolveURL(base, r.Path, r.Query)
	if err != nil {
		return nil, err
	}

	method := r.Method
	if method == "" {
		method = http.MethodGet
	}
	var body *bytes.Reader
	if r.Body != nil {
		body = bytes.NewReader(r.Body)
	}

	var req *http.Request
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, u.String(), body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, u.String(), nil)
	}
	if err != nil {
		return nil, err
	}

	for k, vs := range r.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	accept := r.Accept
	if accept == "" {
		accept = MediaTypeJSON
	}
	req.Header.Set("Accept", accept)
	if r.Body != nil {
		ct := r.ContentType
		if ct == "" {
			ct = MediaTypeJSON
		}
		req.Header.Set("Content-Type", ct)
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	if requestID != "" {
		req.Header.Set(HeaderRequestID, requestID)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}
