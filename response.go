package authclient

import (
	"bytes"
	"encoding/json"
	"strconv"

	gojson "github.com/goccy/go-json"
	"github.com/tidwall/gjson"

	internalflows "github.com/MrEthical07/authclient/internal/flows"
)

const (
	// SuccessMessage is the message attached to wrapped bare payloads.
	SuccessMessage = "Success"
	// NetworkErrorMessage is the message for transport failures and timeouts.
	NetworkErrorMessage = "Network error, please check your connection"
)

// Response is the normalized result of every request. Callers branch on Success, never on
// HTTP status.
type Response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`

	// Status is the final HTTP status, or 0 when no reply was received.
	Status    int    `json:"-"`
	RequestID string `json:"-"`

	err *ResponseError
}

// ResponseError describes a failed Response. Kind is one of the package sentinels, or nil
// for a plain backend error status.
type ResponseError struct {
	Status  int
	Message string
	Kind    error
	Cause   error
}

func (e *ResponseError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Status != 0 {
		return "Error: " + strconv.Itoa(e.Status)
	}
	return "request failed"
}

func (e *ResponseError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Cause != nil {
		out = append(out, e.Cause)
	}
	return out
}

// Err returns nil for a successful Response and a *ResponseError otherwise.
func (r Response) Err() error {
	if r.Success {
		return nil
	}
	if r.err != nil {
		return r.err
	}
	return &ResponseError{Status: r.Status, Message: r.Message}
}

// Decode unmarshals Data into v.
func (r Response) Decode(v any) error {
	if len(r.Data) == 0 || bytes.Equal(r.Data, []byte("null")) {
		return ErrNotJSON
	}
	return gojson.Unmarshal(r.Data, v)
}

// Normalize converts a raw backend reply into a Response.
//
// A 2xx JSON object carrying a "success" key is returned as the backend shaped it, empty
// message included. Any
// other 2xx body becomes {true, body, "Success"}; an empty body yields nil Data. Non-2xx
// replies become failures carrying the backend "message" field, or "Error: <status>".
func Normalize(status int, body []byte) Response {
	trimmed := bytes.TrimSpace(body)

	if internalflows.Successful(status) {
		if len(trimmed) == 0 {
			return Response{Success: true, Message: SuccessMessage, Status: status}
		}
		if !gjson.ValidBytes(trimmed) {
			return Response{Success: true, Data: quoteText(trimmed), Message: SuccessMessage, Status: status}
		}
		root := gjson.ParseBytes(trimmed)
		if root.IsObject() && root.Get("success").Exists() {
			r := Response{
				Success: root.Get("success").Bool(),
				Message: root.Get("message").String(),
				Status:  status,
			}
			if d := root.Get("data"); d.Exists() && d.Type != gjson.Null {
				r.Data = json.RawMessage(d.Raw)
			}
			if !r.Success {
				r.err = &ResponseError{Status: status, Message: r.Message}
			}
			return r
		}
		return Response{Success: true, Data: json.RawMessage(trimmed), Message: SuccessMessage, Status: status}
	}

	r := Response{
		Success: false,
		Message: internalflows.MessageFromBody(status, trimmed),
		Status:  status,
	}
	if gjson.ValidBytes(trimmed) {
		if d := gjson.GetBytes(trimmed, "data"); d.Exists() && d.Type != gjson.Null {
			r.Data = json.RawMessage(d.Raw)
		}
	}
	r.err = &ResponseError{Status: status, Message: r.Message}
	return r
}

func failure(kind error, cause error, status int, message string) Response {
	return Response{
		Success: false,
		Message: message,
		Status:  status,
		err:     &ResponseError{Status: status, Message: message, Kind: kind, Cause: cause},
	}
}

func networkFailure(cause error) Response {
	return failure(ErrTransport, cause, 0, NetworkErrorMessage)
}

func refreshFailure(cause error) Response {
	msg := "Session expired, please sign in again"
	if cause != nil && cause.Error() != "" {
		msg = cause.Error()
	}
	return failure(ErrRefreshFailed, cause, 0, msg)
}

func quoteText(b []byte) json.RawMessage {
	out, err := gojson.Marshal(string(b))
	if err != nil {
		return nil
	}
	return out
}
