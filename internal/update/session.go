package update

import (
	"context"
	"errors"

	"github.com/cyberscoundrel/jobbossutils/internal/channel"
	"github.com/cyberscoundrel/jobbossutils/internal/failure"
	"github.com/cyberscoundrel/jobbossutils/internal/jbxml"
)

// Credentials authenticate a session.
type Credentials struct {
	User     string
	Password string
}

// Session is an open session on the external channel.
//
// A Session is owned by a single run and is not safe for concurrent use.
// Close is idempotent: the channel sees at most one CloseSession call.
type Session struct {
	id     string
	ch     channel.Channel
	closed bool
}

// OpenSession authenticates against ch.
// Any failure, including an empty session ID, is a fatal SESSION error.
func OpenSession(ctx context.Context, ch channel.Channel, creds Credentials) (*Session, error) {
	id, err := ch.CreateSession(ctx, creds.User, creds.Password)
	if err != nil {
		var rejected *channel.SessionRejectedError
		if errors.As(err, &rejected) {
			return nil, failure.Session("credentials rejected", err)
		}
		return nil, failure.Session("could not establish session", err)
	}
	if id == "" {
		return nil, failure.Session("credentials rejected: empty session ID", nil)
	}
	return &Session{id: id, ch: ch}, nil
}

// ID returns the session ID to embed in request documents.
func (s *Session) ID() string {
	return s.id
}

// Exchange sends one request document for itemID and parses the response.
// Channel faults become TRANSPORT errors and unparseable answers become
// UNRECOGNIZED_RESPONSE errors, both attributed to itemID.
func (s *Session) Exchange(ctx context.Context, itemID string, request []byte) (*jbxml.Response, error) {
	raw, err := s.ch.ProcessRequest(ctx, request)
	if err != nil {
		return nil, failure.Transport(itemID, err)
	}

	resp, err := jbxml.ParseResponse(raw)
	if err != nil {
		var fe *failure.Error
		if errors.As(err, &fe) {
			return nil, fe.WithItem(itemID)
		}
		return nil, failure.Transport(itemID, err)
	}
	return resp, nil
}

// Close releases the session. Calls after the first are no-ops.
func (s *Session) Close(ctx context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.ch.CloseSession(ctx, s.id)
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	return s.closed
}
