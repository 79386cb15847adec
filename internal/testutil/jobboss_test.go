package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyberscoundrel/jobbossutils/internal/jbxml"
)

func TestFakeJobBOSS_QueryAndUpdate(t *testing.T) {
	ctx := context.Background()
	f := NewSeededFakeJobBOSS()

	sid, err := f.CreateSession(ctx, "user", "pass")
	require.NoError(t, err)
	require.NotEmpty(t, sid)

	raw, err := f.ProcessRequest(ctx, jbxml.QueryRequest(sid, "TEST-MAT-001"))
	require.NoError(t, err)
	resp, err := jbxml.ParseResponse(raw)
	require.NoError(t, err)
	require.True(t, resp.OK())
	assert.Equal(t, "2025-06-15T10:30:00", resp.LastUpdated)

	raw, err = f.ProcessRequest(ctx, jbxml.UpdateRequest(sid, "TEST-MAT-001", resp.LastUpdated, -3, "ADJUST"))
	require.NoError(t, err)
	resp, err = jbxml.ParseResponse(raw)
	require.NoError(t, err)
	require.True(t, resp.OK(), resp.Message())
	assert.Equal(t, int64(97), resp.OnHand.IntPart())

	m, ok := f.Material("TEST-MAT-001")
	require.True(t, ok)
	assert.Equal(t, "97", m.OnHand.String())
	assert.NotEqual(t, "2025-06-15T10:30:00", m.LastUpdated)

	require.NoError(t, f.CloseSession(ctx, sid))
	assert.Empty(t, f.OpenSessions())
	assert.Equal(t, 1, f.SessionsCreated())
	assert.Equal(t, 1, f.SessionsClosed())
	assert.Len(t, f.Requests(), 2)
}

func TestFakeJobBOSS_StaleTokenRejected(t *testing.T) {
	ctx := context.Background()
	f := NewSeededFakeJobBOSS()
	sid, _ := f.CreateSession(ctx, "u", "p")

	raw, err := f.ProcessRequest(ctx, jbxml.UpdateRequest(sid, "TEST-MAT-002", "stale", -1, ""))
	require.NoError(t, err)
	resp, err := jbxml.ParseResponse(raw)
	require.NoError(t, err)

	assert.False(t, resp.OK())
	assert.Contains(t, resp.Message(), "LastUpdated mismatch")
	assert.Contains(t, resp.Message(), "Expected: 2025-08-22T14:15:30")
	assert.Contains(t, resp.Message(), "Got: stale")

	m, _ := f.Material("TEST-MAT-002")
	assert.Equal(t, "50", m.OnHand.String())
}

func TestFakeJobBOSS_Sessions(t *testing.T) {
	ctx := context.Background()
	f := NewSeededFakeJobBOSS()

	sid, err := f.CreateSession(ctx, "", "")
	require.NoError(t, err)
	assert.Empty(t, sid)

	raw, err := f.ProcessRequest(ctx, jbxml.QueryRequest("bogus", "TEST-MAT-001"))
	require.NoError(t, err)
	resp, err := jbxml.ParseResponse(raw)
	require.NoError(t, err)
	assert.Equal(t, "Invalid session", resp.Message())

	assert.Error(t, f.CloseSession(ctx, "bogus"))
}

func TestFakeJobBOSS_Hooks(t *testing.T) {
	ctx := context.Background()
	f := NewSeededFakeJobBOSS()
	sid, _ := f.CreateSession(ctx, "u", "p")

	f.Fault = func(req *jbxml.Request) error {
		if req.ID == "TEST-MAT-003" {
			return errors.New("pipe closed")
		}
		return nil
	}
	_, err := f.ProcessRequest(ctx, jbxml.QueryRequest(sid, "TEST-MAT-003"))
	assert.EqualError(t, err, "pipe closed")

	f.Override = func(req *jbxml.Request) []byte { return []byte("garbage") }
	raw, err := f.ProcessRequest(ctx, jbxml.QueryRequest(sid, "TEST-MAT-001"))
	require.NoError(t, err)
	assert.Equal(t, "garbage", string(raw))
}
