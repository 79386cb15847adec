package testutil

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cyberscoundrel/jobbossutils/internal/jbxml"
)

// TokenLayout formats LastUpdated tokens issued by the fake.
const TokenLayout = "2006-01-02T15:04:05"

// Material is one record in the fake store.
type Material struct {
	ID          string
	Description string
	OnHand      decimal.Decimal
	LastUpdated string
}

// FakeJobBOSS is an in-memory stand-in for the JobBOSS request processor.
//
// It implements channel.Channel: it parses request documents, answers
// MaterialQueryRq with the stored record, and applies MaterialModRq only when
// the submitted LastUpdated equals the stored one, issuing a fresh token on
// every applied update.
//
// Fault injection hooks run outside the internal lock, so they may call
// Touch or SetMaterial.
type FakeJobBOSS struct {
	mu          sync.Mutex
	clock       *DeterministicClock
	materials   map[string]*Material
	sessions    map[string]bool
	nextSession int
	requests    [][]byte
	creates     int
	closes      int

	// CreateSessionErr, when set, fails CreateSession with a transport error.
	CreateSessionErr error

	// RejectCredentials makes CreateSession return an empty session ID.
	RejectCredentials bool

	// CloseSessionErr, when set, fails CloseSession after counting the call.
	CloseSessionErr error

	// BeforeUpdate runs before an update is applied, e.g. to simulate a
	// concurrent writer with Touch.
	BeforeUpdate func(id string)

	// Fault, when it returns non-nil for a request, fails ProcessRequest with
	// that error before the request reaches the store.
	Fault func(req *jbxml.Request) error

	// Override, when it returns non-nil for a request, is sent back verbatim.
	Override func(req *jbxml.Request) []byte
}

// NewFakeJobBOSS creates an empty fake whose tokens come from clock.
// A nil clock starts at 2025-01-01T00:00:00 and steps one second.
func NewFakeJobBOSS(clock *DeterministicClock) *FakeJobBOSS {
	if clock == nil {
		clock = NewDeterministicClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), time.Second)
	}
	return &FakeJobBOSS{
		clock:     clock,
		materials: make(map[string]*Material),
		sessions:  make(map[string]bool),
	}
}

// NewSeededFakeJobBOSS creates a fake holding the three classic test
// materials TEST-MAT-001..003 with on-hand 100, 50 and 25.
func NewSeededFakeJobBOSS() *FakeJobBOSS {
	f := NewFakeJobBOSS(nil)
	f.SetMaterial("TEST-MAT-001", 100, "2025-06-15T10:30:00")
	f.SetMaterial("TEST-MAT-002", 50, "2025-08-22T14:15:30")
	f.SetMaterial("TEST-MAT-003", 25, "2025-12-01T09:00:00")
	return f
}

// SetMaterial stores or replaces a record.
func (f *FakeJobBOSS) SetMaterial(id string, onHand int64, lastUpdated string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.materials[id] = &Material{
		ID:          id,
		Description: "Test material " + id,
		OnHand:      decimal.NewFromInt(onHand),
		LastUpdated: lastUpdated,
	}
}

// Material returns a copy of the stored record.
func (f *FakeJobBOSS) Material(id string) (Material, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.materials[id]
	if !ok {
		return Material{}, false
	}
	return *m, true
}

// Touch simulates another writer: it issues a new token for id.
func (f *FakeJobBOSS) Touch(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.materials[id]; ok {
		m.LastUpdated = f.clock.Now().Format(TokenLayout)
	}
}

// Requests returns copies of every request document received, in order.
func (f *FakeJobBOSS) Requests() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.requests))
	for i, r := range f.requests {
		out[i] = append([]byte(nil), r...)
	}
	return out
}

// Calls returns the total number of channel calls of any kind.
func (f *FakeJobBOSS) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creates + f.closes + len(f.requests)
}

// SessionsCreated returns how many times CreateSession was called.
func (f *FakeJobBOSS) SessionsCreated() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creates
}

// SessionsClosed returns how many times CloseSession was called.
func (f *FakeJobBOSS) SessionsClosed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closes
}

// OpenSessions returns the IDs of sessions not yet closed, sorted.
func (f *FakeJobBOSS) OpenSessions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for id, open := range f.sessions {
		if open {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// CreateSession implements channel.Channel.
func (f *FakeJobBOSS) CreateSession(_ context.Context, user, password string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++

	if f.CreateSessionErr != nil {
		return "", f.CreateSessionErr
	}
	if f.RejectCredentials || user == "" || password == "" {
		return "", nil
	}
	f.nextSession++
	id := fmt.Sprintf("MOCK-SESSION-%03d", f.nextSession)
	f.sessions[id] = true
	return id, nil
}

// CloseSession implements channel.Channel.
func (f *FakeJobBOSS) CloseSession(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++

	if f.CloseSessionErr != nil {
		return f.CloseSessionErr
	}
	if !f.sessions[sessionID] {
		return errors.New("unknown session")
	}
	f.sessions[sessionID] = false
	return nil
}

// ProcessRequest implements channel.Channel.
func (f *FakeJobBOSS) ProcessRequest(_ context.Context, request []byte) ([]byte, error) {
	f.mu.Lock()
	f.requests = append(f.requests, append([]byte(nil), request...))
	f.mu.Unlock()

	req, err := jbxml.ParseRequest(request)
	if err != nil {
		return errorResponse("Unknown request type"), nil
	}

	if f.Fault != nil {
		if err := f.Fault(req); err != nil {
			return nil, err
		}
	}
	if f.Override != nil {
		if raw := f.Override(req); raw != nil {
			return raw, nil
		}
	}
	if req.Kind == jbxml.KindUpdate && f.BeforeUpdate != nil {
		f.BeforeUpdate(req.ID)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.sessions[req.SessionID] {
		return errorResponse("Invalid session"), nil
	}

	switch req.Kind {
	case jbxml.KindQuery:
		return f.handleQuery(req), nil
	default:
		return f.handleMod(req), nil
	}
}

func (f *FakeJobBOSS) handleQuery(req *jbxml.Request) []byte {
	m, ok := f.materials[req.ID]
	if !ok {
		return errorResponse("Material not found: " + req.ID)
	}
	return []byte(fmt.Sprintf(queryResponseLayout, esc(m.ID), esc(m.Description), m.OnHand.String(), esc(m.LastUpdated)))
}

func (f *FakeJobBOSS) handleMod(req *jbxml.Request) []byte {
	m, ok := f.materials[req.ID]
	if !ok {
		return errorResponse("Material not found: " + req.ID)
	}
	if req.LastUpdated != m.LastUpdated {
		return errorResponse(fmt.Sprintf("LastUpdated mismatch. Expected: %s, Got: %s", m.LastUpdated, req.LastUpdated))
	}

	m.OnHand = m.OnHand.Add(decimal.NewFromInt(req.Quantity))
	m.LastUpdated = f.clock.Now().Format(TokenLayout)
	return []byte(fmt.Sprintf(modResponseLayout, esc(m.ID), m.OnHand.String(), esc(m.LastUpdated)))
}

// ErrorResponse renders a failure answer with status 1.
func ErrorResponse(message string) []byte {
	return errorResponse(message)
}

func errorResponse(message string) []byte {
	return []byte(fmt.Sprintf(errorResponseLayout, esc(message)))
}

func esc(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

const queryResponseLayout = `<?xml version="1.0" encoding="UTF-8"?>
<JBXML>
    <JBXMLRespond>
        <MaterialQueryRs>
            <StatusCode>0</StatusCode>
            <StatusMessage>Success</StatusMessage>
            <Material>
                <ID>%s</ID>
                <Description>%s</Description>
                <OnHand>%s</OnHand>
                <LastUpdated>%s</LastUpdated>
            </Material>
        </MaterialQueryRs>
    </JBXMLRespond>
</JBXML>`

const modResponseLayout = `<?xml version="1.0" encoding="UTF-8"?>
<JBXML>
    <JBXMLRespond>
        <MaterialModRs>
            <StatusCode>0</StatusCode>
            <StatusMessage>Success</StatusMessage>
            <MaterialRet>
                <ID>%s</ID>
                <OnHand>%s</OnHand>
                <LastUpdated>%s</LastUpdated>
            </MaterialRet>
        </MaterialModRs>
    </JBXMLRespond>
</JBXML>`

const errorResponseLayout = `<?xml version="1.0" encoding="UTF-8"?>
<JBXML>
    <JBXMLRespond>
        <StatusCode>1</StatusCode>
        <StatusMessage>%s</StatusMessage>
    </JBXMLRespond>
</JBXML>`
