package authclient

import (
	"io"
	"net/http"
	"net/url"
	"time"
)

// UploadFile describes a multipart upload. FieldName defaults to "file". Fields are sent
// as extra form values before the file part.
type UploadFile struct {
	FieldName string
	FileName  string
	Reader    io.Reader
	Fields    map[string]string
}

// LoginRequest carries the credentials posted to the login endpoint. Extra entries are
// merged into the JSON body.
type LoginRequest struct {
	Username string
	Password string
	Extra    map[string]any
}

// RequestOption adjusts a single request.
type RequestOption func(*requestOptions)

type requestOptions struct {
	query   url.Values
	header  http.Header
	timeout time.Duration
}

// WithQuery adds query parameters to the request URL.
func WithQuery(q url.Values) RequestOption {
	return func(o *requestOptions) {
		if o.query == nil {
			o.query = url.Values{}
		}
		for k, vs := range q {
			for _, v := range vs {
				o.query.Add(k, v)
			}
		}
	}
}

// WithHeader sets a request header. Authorization, Accept and X-Request-ID are owned by
// the client and are overwritten.
func WithHeader(key, value string) RequestOption {
	return func(o *requestOptions) {
		if o.header == nil {
			o.header = http.Header{}
		}
		o.header.Set(key, value)
	}
}

// WithTimeout overrides the configured timeout for one request.
func WithTimeout(d time.Duration) RequestOption {
	return func(o *requestOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

func collectOptions(opts []RequestOption) requestOptions {
	var o requestOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}
