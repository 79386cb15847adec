// Package channel is the boundary to the external JobBOSS request processor.
//
// The processor is an opaque request/response channel with an explicit
// session: CreateSession returns a session ID that request documents carry
// inline, ProcessRequest exchanges one document for one response document, and
// CloseSession releases the session. Timeouts and retries belong to the
// concrete transport, never to callers.
package channel

import "context"

// Channel is the capability the update executor needs from the external store.
type Channel interface {
	// CreateSession authenticates and returns a session ID.
	// An empty ID with a nil error is treated by callers as a rejection.
	CreateSession(ctx context.Context, user, password string) (string, error)

	// ProcessRequest submits one request document and returns the raw response.
	// A non-nil error is a transport fault; business failures arrive inside the
	// response document.
	ProcessRequest(ctx context.Context, request []byte) ([]byte, error)

	// CloseSession releases the session.
	CloseSession(ctx context.Context, sessionID string) error
}
