package authclient

import (
	"errors"

	"github.com/MrEthical07/authclient/credential"
	"github.com/MrEthical07/authclient/refresh"
)

var (
	// ErrClientNotReady is returned by operations on a nil or closed Client.
	ErrClientNotReady = errors.New("client not ready")
	// ErrInvalidConfig wraps every configuration validation failure.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrBuilderUsed is returned when Build is called twice on one Builder.
	ErrBuilderUsed = errors.New("builder already used")
	// ErrRedisRequired is returned when the redis driver has neither a client nor an address.
	ErrRedisRequired = errors.New("redis storage requires a client or an address")
	// ErrNoRefreshToken is returned when a refresh is needed but none is stored.
	ErrNoRefreshToken = refresh.ErrNoRefreshToken
	// ErrRefreshSuperseded is returned to requests whose refresh belonged to a session that
	// a Login, Logout or ForceSignOut replaced while the exchange ran.
	ErrRefreshSuperseded = refresh.ErrSuperseded
	// ErrPartialCredential is returned when exactly one token of the pair is present.
	ErrPartialCredential = credential.ErrPartialCredential
	// ErrNotAuthenticated is returned when an operation needs a stored access token and none
	// is present.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrLoginFailed marks a Login whose credentials, token reply, or profile fetch failed.
	ErrLoginFailed = errors.New("login failed")
	// ErrRefreshFailed marks responses whose request needed a refresh that did not succeed.
	ErrRefreshFailed = errors.New("token refresh failed")
	// ErrSessionExpired is the teardown reason for a forced sign-out without a cause.
	ErrSessionExpired = errors.New("session expired")
	// ErrTransport marks responses that never reached an HTTP status.
	ErrTransport = errors.New("network error")
	// ErrUnauthorized marks a 401 on the replayed request.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotJSON is returned by Response.Decode when Data is empty.
	ErrNotJSON = errors.New("response carries no data")
	// ErrInvalidUpload marks an Upload without a reader.
	ErrInvalidUpload = errors.New("invalid upload")
	// ErrExportRejected marks an ExportFile whose backend replied with JSON instead of a file.
	ErrExportRejected = errors.New("export rejected by backend")
	// ErrSaveFailed marks an ExportFile whose save target failed.
	ErrSaveFailed = errors.New("export save failed")
)
