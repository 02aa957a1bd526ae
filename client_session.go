package authclient

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	internalflows "github.com/MrEthical07/authclient/internal/flows"
)

// Login posts the credentials to the login endpoint, stores the issued pair, and fetches
// the profile with the new access token. On success the tokens and profile are stored
// together, teardown is re-armed, and Data carries the profile. A failed profile fetch
// clears everything stored so far.
//
// The login endpoint never enters the refresh flow, so a 401 here is a plain rejection.
// A refresh still in flight from the previous session is detached and its result dropped.
func (c *Client) Login(ctx context.Context, in LoginRequest) Response {
	if !c.ready() {
		return failure(ErrClientNotReady, nil, 0, ErrClientNotReady.Error())
	}
	c.coordinator.Supersede()
	ctx = WithRequestID(ctx, requestIDOrNew(ctx))
	requestID := RequestIDFromContext(ctx)

	res := c.flows.Login(ctx, internalflows.LoginRequest{
		Username: in.Username,
		Password: in.Password,
		Extra:    in.Extra,
	})

	entry := c.log.WithFields(logrus.Fields{
		"operation":  "login",
		"request_id": requestID,
		"status":     res.Status,
	})

	if res.Failure != internalflows.LoginFailureNone {
		c.metricInc(MetricLoginFailure)
		c.emitAudit(ctx, AuditEvent{
			EventType: AuditLoginFailure,
			Method:    http.MethodPost,
			Path:      c.config.Backend.LoginPath,
			Status:    res.Status,
			Error:     errString(res.Err),
		})

		var resp Response
		switch res.Failure {
		case internalflows.LoginFailureTransport:
			resp = networkFailure(res.Err)
		case internalflows.LoginFailureRejected, internalflows.LoginFailureProfile:
			resp = failure(ErrLoginFailed, res.Err, res.Status, internalflows.MessageFromBody(res.Status, res.Body))
		default:
			resp = failure(ErrLoginFailed, res.Err, res.Status, "Login failed: "+errString(res.Err))
		}
		resp.RequestID = requestID
		entry.WithField("outcome", "failure").WithError(res.Err).Info("login failed")
		return resp
	}

	c.teardown.Arm()
	c.metricInc(MetricLoginSuccess)
	c.emitAudit(ctx, AuditEvent{
		EventType: AuditLoginSuccess,
		Method:    http.MethodPost,
		Path:      c.config.Backend.LoginPath,
		Status:    res.Status,
		Success:   true,
	})
	entry.WithField("outcome", "success").Info("signed in")

	resp := Response{Success: true, Message: SuccessMessage, Status: res.Status, RequestID: requestID}
	if len(res.Profile) > 0 {
		resp.Data = json.RawMessage(res.Profile)
	}
	return resp
}

// Logout tells the backend when a logout path is configured, then clears the stored
// credentials. It never notifies or redirects. The local clear happens even when the
// remote call fails; the Response reports the clear.
func (c *Client) Logout(ctx context.Context) Response {
	if !c.ready() {
		return failure(ErrClientNotReady, nil, 0, ErrClientNotReady.Error())
	}
	c.coordinator.Supersede()
	ctx = WithRequestID(ctx, requestIDOrNew(ctx))
	requestID := RequestIDFromContext(ctx)

	res := c.flows.Logout(ctx)
	c.metricInc(MetricLogout)

	entry := c.log.WithFields(logrus.Fields{
		"operation":  "logout",
		"request_id": requestID,
		"status":     res.Status,
	})
	if res.RemoteErr != nil {
		entry.WithError(res.RemoteErr).Warn("remote logout failed")
	}
	c.emitAudit(ctx, AuditEvent{
		EventType: AuditLogout,
		Method:    http.MethodPost,
		Path:      c.config.Backend.LogoutPath,
		Status:    res.Status,
		Success:   res.ClearErr == nil,
		Error:     errString(res.ClearErr),
	})

	if res.ClearErr != nil {
		resp := failure(nil, res.ClearErr, res.Status, "Failed to clear credentials: "+res.ClearErr.Error())
		resp.RequestID = requestID
		return resp
	}
	entry.WithField("outcome", "success").Info("signed out")
	return Response{Success: true, Message: SuccessMessage, Status: res.Status, RequestID: requestID}
}

// ForceSignOut tears the session down as if a refresh had failed: credentials are
// cleared, and unless teardown already ran since the last login, the user is notified and
// sent to the login location. It reports whether this call produced the notice.
func (c *Client) ForceSignOut(ctx context.Context, reason error) bool {
	if c == nil || c.teardown == nil {
		return false
	}
	if reason == nil {
		reason = ErrSessionExpired
	}
	if c.coordinator != nil {
		c.coordinator.Supersede()
	}
	return c.endSession(ctx, reason)
}

// Profile returns the stored user profile, or nil when none is stored.
func (c *Client) Profile(ctx context.Context) (json.RawMessage, error) {
	if c == nil || c.store == nil {
		return nil, ErrClientNotReady
	}
	return c.store.Profile(ctx)
}

// Authenticated reports whether both tokens are stored.
func (c *Client) Authenticated(ctx context.Context) bool {
	if c == nil || c.store == nil {
		return false
	}
	cred, err := c.store.Snapshot(ctx)
	return err == nil && cred.Authenticated()
}
