package flows

import (
	"strconv"

	"github.com/tidwall/gjson"
)

// StatusError is a non-2xx backend reply reduced to its status and message.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return e.Message
}

// NewStatusError builds a StatusError from a reply body, preferring the backend message.
func NewStatusError(status int, body []byte) *StatusError {
	return &StatusError{Status: status, Message: MessageFromBody(status, body)}
}

// MessageFromBody returns the backend "message" field, or "Error: <status>" when the body
// carries none.
func MessageFromBody(status int, body []byte) string {
	if len(body) > 0 && gjson.ValidBytes(body) {
		if m := gjson.GetBytes(body, "message"); m.Type == gjson.String && m.Str != "" {
			return m.Str
		}
	}
	return "Error: " + strconv.Itoa(status)
}

// Successful reports whether status is 2xx.
func Successful(status int) bool {
	return status >= 200 && status < 300
}

// unwrapData returns the "data" member of an enveloped body, or the body itself.
func unwrapData(body []byte) []byte {
	if len(body) == 0 || !gjson.ValidBytes(body) {
		return body
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return body
	}
	if d := root.Get("data"); d.Exists() && (root.Get("success").Exists() || root.Get("message").Exists() || len(root.Map()) == 1) {
		return []byte(d.Raw)
	}
	return body
}
