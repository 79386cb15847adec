package update

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyberscoundrel/jobbossutils/internal/failure"
	"github.com/cyberscoundrel/jobbossutils/internal/jbxml"
	"github.com/cyberscoundrel/jobbossutils/internal/testutil"
)

func TestOpenSession(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(f *testutil.FakeJobBOSS)
		creds   Credentials
		wantErr bool
	}{
		{"accepted", func(*testutil.FakeJobBOSS) {}, testCreds, false},
		{"empty session ID", func(f *testutil.FakeJobBOSS) { f.RejectCredentials = true }, testCreds, true},
		{"missing password", func(*testutil.FakeJobBOSS) {}, Credentials{User: "test_user"}, true},
		{"transport fault", func(f *testutil.FakeJobBOSS) { f.CreateSessionErr = errors.New("dial tcp: refused") }, testCreds, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := testutil.NewFakeJobBOSS(nil)
			tt.setup(f)

			s, err := OpenSession(context.Background(), f, tt.creds)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, failure.IsSession(err))
				assert.True(t, failure.IsFatal(err))
				assert.Nil(t, s)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "MOCK-SESSION-001", s.ID())
		})
	}
}

func TestSession_CloseIsIdempotent(t *testing.T) {
	f := testutil.NewFakeJobBOSS(nil)
	s, err := OpenSession(context.Background(), f, testCreds)
	require.NoError(t, err)

	require.NoError(t, s.Close(context.Background()))
	require.NoError(t, s.Close(context.Background()))
	assert.True(t, s.Closed())
	assert.Equal(t, 1, f.SessionsClosed())
	assert.Empty(t, f.OpenSessions())
}

func TestSession_Exchange(t *testing.T) {
	f := testutil.NewSeededFakeJobBOSS()
	s, err := OpenSession(context.Background(), f, testCreds)
	require.NoError(t, err)

	req := jbxml.QueryRequest(s.ID(), "TEST-MAT-002")
	resp, err := s.Exchange(context.Background(), "TEST-MAT-002", req)
	require.NoError(t, err)
	assert.True(t, resp.OK())
}

func TestSession_ExchangeAttributesFaults(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *testutil.FakeJobBOSS)
		code  failure.Code
	}{
		{
			name: "transport",
			setup: func(f *testutil.FakeJobBOSS) {
				f.Fault = func(*jbxml.Request) error { return errors.New("connection reset") }
			},
			code: failure.CodeTransport,
		},
		{
			name: "unrecognized",
			setup: func(f *testutil.FakeJobBOSS) {
				f.Override = func(*jbxml.Request) []byte { return []byte("<html>gateway error</html>") }
			},
			code: failure.CodeUnrecognizedResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := testutil.NewSeededFakeJobBOSS()
			tt.setup(f)
			s, err := OpenSession(context.Background(), f, testCreds)
			require.NoError(t, err)

			_, err = s.Exchange(context.Background(), "TEST-MAT-001", jbxml.QueryRequest(s.ID(), "TEST-MAT-001"))
			require.Error(t, err)
			assert.True(t, failure.IsTransport(err))

			var fe *failure.Error
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.code, fe.Code)
			assert.Equal(t, "TEST-MAT-001", fe.ItemID)
		})
	}
}
