package authclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/sirupsen/logrus"

	internalflows "github.com/MrEthical07/authclient/internal/flows"
)

// Get sends a GET to path and normalizes the reply.
func (c *Client) Get(ctx context.Context, path string, opts ...RequestOption) Response {
	return c.request(ctx, http.MethodGet, path, nil, opts)
}

// Post sends body as JSON. body may be nil, a []byte or json.RawMessage sent verbatim, an
// io.Reader, or any value encodable as JSON. A string is encoded as a JSON string; wrap
// prepared JSON text in json.RawMessage to send it as is.
func (c *Client) Post(ctx context.Context, path string, body any, opts ...RequestOption) Response {
	return c.request(ctx, http.MethodPost, path, body, opts)
}

// Put is Post with the PUT method.
func (c *Client) Put(ctx context.Context, path string, body any, opts ...RequestOption) Response {
	return c.request(ctx, http.MethodPut, path, body, opts)
}

// Patch is Post with the PATCH method.
func (c *Client) Patch(ctx context.Context, path string, body any, opts ...RequestOption) Response {
	return c.request(ctx, http.MethodPatch, path, body, opts)
}

// Delete sends a DELETE to path.
func (c *Client) Delete(ctx context.Context, path string, opts ...RequestOption) Response {
	return c.request(ctx, http.MethodDelete, path, nil, opts)
}

func (c *Client) request(ctx context.Context, method, path string, body any, opts []RequestOption) Response {
	if !c.ready() {
		return failure(ErrClientNotReady, nil, 0, ErrClientNotReady.Error())
	}
	payload, err := encodeBody(body)
	if err != nil {
		return failure(nil, err, 0, "Invalid request body: "+err.Error())
	}
	o := collectOptions(opts)
	req := internalflows.Request{
		Method:  method,
		Path:    path,
		Query:   o.query,
		Header:  o.header,
		Body:    payload,
		Timeout: o.timeout,
	}
	ctx = WithRequestID(ctx, requestIDOrNew(ctx))
	res := c.dispatch(ctx, req)
	return c.normalizeDispatch(ctx, req, res)
}

func encodeBody(body any) ([]byte, error) {
	switch v := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case json.RawMessage:
		return v, nil
	case io.Reader:
		return io.ReadAll(v)
	default:
		return gojson.Marshal(v)
	}
}

// dispatch runs the flow and records latency and refresh-related counters.
func (c *Client) dispatch(ctx context.Context, req internalflows.Request) internalflows.DispatchResult {
	res := c.flows.Dispatch(ctx, req)
	c.metricObserve(MetricRequestLatency, res.Duration)
	if res.Unauthorized {
		c.metricInc(MetricUnauthorized)
	}
	if res.ProactiveRefresh {
		c.metricInc(MetricProactiveRefresh)
	}
	if res.Replayed {
		c.metricInc(MetricReplay)
	}
	return res
}

// normalizeDispatch maps a dispatch result onto a Response.
func (c *Client) normalizeDispatch(ctx context.Context, req internalflows.Request, res internalflows.DispatchResult) Response {
	var resp Response
	switch res.Failure {
	case internalflows.DispatchFailureNone:
		resp = Normalize(res.Status, res.Body)
	case internalflows.DispatchFailureTimeout:
		c.metricInc(MetricTimeout)
		resp = networkFailure(res.Err)
	case internalflows.DispatchFailureTransport:
		c.metricInc(MetricTransportError)
		resp = networkFailure(res.Err)
	case internalflows.DispatchFailureRefresh:
		resp = refreshFailure(res.Err)
	case internalflows.DispatchFailureUnauthorized:
		c.metricInc(MetricReplayRejected)
		c.emitAudit(ctx, AuditEvent{
			EventType: AuditReplayRejected,
			Method:    req.Method,
			Path:      req.Path,
			Status:    res.Status,
			Error:     errString(res.Err),
		})
		resp = failure(ErrUnauthorized, res.Err, res.Status, internalflows.MessageFromBody(res.Status, res.Body))
	case internalflows.DispatchFailureBuild:
		resp = failure(nil, res.Err, 0, fmt.Sprintf("Invalid request: %v", res.Err))
	default:
		resp = failure(nil, res.Err, res.Status, errString(res.Err))
	}
	resp.RequestID = res.RequestID

	if resp.Success {
		c.metricInc(MetricRequestSuccess)
	} else {
		c.metricInc(MetricRequestFailure)
	}
	c.logRequest(req, res, resp)
	return resp
}

func (c *Client) logRequest(req internalflows.Request, res internalflows.DispatchResult, resp Response) {
	entry := c.log.WithFields(logrus.Fields{
		"operation":   "request",
		"method":      req.Method,
		"path":        req.Path,
		"status":      resp.Status,
		"attempts":    res.Attempts,
		"request_id":  res.RequestID,
		"duration_ms": res.Duration.Round(time.Millisecond).Milliseconds(),
	})
	switch {
	case resp.Success:
		entry.WithField("outcome", "success").Debug("request completed")
	case res.Failure == internalflows.DispatchFailureNone:
		entry.WithField("outcome", "rejected").Info(resp.Message)
	default:
		entry.WithField("outcome", "failure").WithError(res.Err).Warn(resp.Message)
	}
}
