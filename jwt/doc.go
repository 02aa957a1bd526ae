// Package jwt reads the claims of bearer access tokens without verifying their signature.
//
// The client holds no signing keys. Claims are used only to predict expiry so that a
// renewal can start before the backend rejects the token; the backend remains the
// authority on validity.
package jwt
