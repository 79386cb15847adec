package update

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/cyberscoundrel/jobbossutils/internal/aggregate"
	"github.com/cyberscoundrel/jobbossutils/internal/channel"
	"github.com/cyberscoundrel/jobbossutils/internal/failure"
)

// Documents renders the request documents for one item.
//
// jbxml.Renderer renders them directly; an audit package fills the documents
// it persisted for review.
type Documents interface {
	QueryDocument(sessionID, itemID string) []byte
	UpdateDocument(sessionID, itemID, lastUpdated string, quantity int64) []byte
}

// Item is one aggregated change to apply.
type Item struct {
	ID    string `json:"id"`
	Delta int64  `json:"quantity"`
}

// ItemsFrom converts an aggregation result to items in processing order.
func ItemsFrom(res aggregate.Result) []Item {
	ids := res.IDs()
	items := make([]Item, len(ids))
	for i, id := range ids {
		items[i] = Item{ID: id, Delta: res[id]}
	}
	return items
}

// Outcome is the result for one item: a Success when Err is nil, a Failure
// otherwise.
type Outcome struct {
	Item

	// Err classifies the failure. Nil on success.
	Err *failure.Error

	// OnHand and LastUpdated echo the store's record after a successful
	// update, when the store reports them.
	OnHand      *decimal.Decimal
	LastUpdated string
}

// Succeeded reports whether the item was applied.
func (o Outcome) Succeeded() bool {
	return o.Err == nil
}

// Result collects the outcomes of one batch run.
// Successes and Failures each keep processing order.
type Result struct {
	RunID     string
	DryRun    bool
	Planned   []Item
	Successes []Outcome
	Failures  []Outcome

	// SessionOpened reports whether a session was established.
	SessionOpened bool

	// CloseErr holds a failed session close. It never changes the outcome.
	CloseErr error
}

func (r *Result) record(o Outcome) {
	if o.Succeeded() {
		r.Successes = append(r.Successes, o)
		return
	}
	r.Failures = append(r.Failures, o)
}

// Response message patterns used to classify non-zero statuses.
// notFoundPattern only matches at the start of the message, as in
// "Material not found: X".
var (
	notFoundPattern = regexp.MustCompile(`(?i)^\s*(?:\w+\s+)?not\s+found\b`)
	conflictPattern = regexp.MustCompile(`(?i)lastupdated\s+mismatch`)
	expectedPattern = regexp.MustCompile(`(?i)expected:\s*([^,\s]+)`)
)

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// WithRunIDs sets the run ID generator. Defaults to UUIDv7Generator.
func WithRunIDs(g RunIDGenerator) Option {
	return func(e *Executor) { e.runIDs = g }
}

// WithDryRun makes Run stop after planning, before any external call.
func WithDryRun(dryRun bool) Option {
	return func(e *Executor) { e.dryRun = dryRun }
}

// Executor applies item deltas through the query-then-conditional-update
// protocol.
type Executor struct {
	ch     channel.Channel
	docs   Documents
	logger *slog.Logger
	runIDs RunIDGenerator
	dryRun bool
}

// New creates an executor over ch, rendering requests with docs.
func New(ch channel.Channel, docs Documents, opts ...Option) *Executor {
	e := &Executor{
		ch:     ch,
		docs:   docs,
		logger: slog.Default(),
		runIDs: UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run applies items as one batch.
//
// The returned error is non-nil only for fatal preconditions: an empty or
// malformed batch (VALIDATION) or a session that could not be opened
// (SESSION). The Result is always non-nil. Per-item failures are reported in
// Result.Failures.
//
// ctx may cancel the run until the session is open. After that the batch
// runs to completion and the session is always closed.
func (e *Executor) Run(ctx context.Context, creds Credentials, items []Item) (*Result, error) {
	res := &Result{RunID: e.runIDs.Generate(), DryRun: e.dryRun}
	log := e.logger.With("run_id", res.RunID)

	planned, err := plan(items)
	if err != nil {
		log.Error("batch rejected", "error", err)
		return res, err
	}
	res.Planned = planned

	if e.dryRun {
		log.Info("dry run: no changes made", "items", len(planned))
		return res, nil
	}

	log.Debug("opening session", "user", creds.User)
	sess, err := OpenSession(ctx, e.ch, creds)
	if err != nil {
		log.Error("session failed", "error", err)
		return res, err
	}
	res.SessionOpened = true
	log.Debug("session active")

	runCtx := context.WithoutCancel(ctx)
	defer func() {
		if cerr := sess.Close(runCtx); cerr != nil {
			res.CloseErr = cerr
			log.Warn("close session failed", "error", cerr)
			return
		}
		log.Debug("session closed")
	}()

	for _, item := range planned {
		res.record(e.process(runCtx, sess, item, log))
	}

	log.Info("batch finished", "succeeded", len(res.Successes), "failed", len(res.Failures))
	return res, nil
}

// plan validates items and sorts a copy by ascending identifier.
func plan(items []Item) ([]Item, error) {
	if len(items) == 0 {
		return nil, failure.Validation("nothing to do: batch is empty")
	}

	planned := make([]Item, len(items))
	copy(planned, items)
	sort.Slice(planned, func(i, j int) bool { return planned[i].ID < planned[j].ID })

	for i, item := range planned {
		if item.ID == "" {
			return nil, failure.Validation("item %d has an empty identifier", i)
		}
		if i > 0 && planned[i-1].ID == item.ID {
			return nil, failure.Validation("duplicate item identifier %q", item.ID)
		}
	}
	return planned, nil
}

// process runs query -> verify -> conditional update for one item.
func (e *Executor) process(ctx context.Context, sess *Session, item Item, log *slog.Logger) Outcome {
	log = log.With("item", item.ID, "delta", item.Delta)

	log.Debug("querying")
	token, ferr := e.query(ctx, sess, item)
	if ferr != nil {
		log.Warn("item failed", "stage", "query", "code", ferr.Code, "reason", ferr.Reason())
		return Outcome{Item: item, Err: ferr}
	}
	log.Debug("verified", "last_updated", token)

	out, ferr := e.apply(ctx, sess, item, token)
	if ferr != nil {
		log.Warn("item failed", "stage", "update", "code", ferr.Code, "reason", ferr.Reason())
		return Outcome{Item: item, Err: ferr}
	}

	attrs := []any{"last_updated", out.LastUpdated}
	if out.OnHand != nil {
		attrs = append(attrs, "on_hand", out.OnHand.String())
	}
	log.Info("item applied", attrs...)
	return out
}

// query resolves to the captured concurrency token (Verified), NOT_FOUND, or
// another failure.
func (e *Executor) query(ctx context.Context, sess *Session, item Item) (string, *failure.Error) {
	resp, err := sess.Exchange(ctx, item.ID, e.docs.QueryDocument(sess.ID(), item.ID))
	if err != nil {
		return "", asFailure(item.ID, err)
	}

	if !resp.OK() {
		msg := resp.Message()
		if notFoundPattern.MatchString(msg) {
			return "", failure.NotFound(item.ID)
		}
		return "", failure.Rejected(item.ID, msg)
	}

	// A success without a token, or for a different record, is not a match:
	// identifiers must agree byte for byte.
	if resp.LastUpdated == "" || (resp.ID != "" && resp.ID != item.ID) {
		return "", failure.NotFound(item.ID)
	}
	return resp.LastUpdated, nil
}

// apply sends the conditional update and resolves to Applied, CONFLICT, or
// another failure.
func (e *Executor) apply(ctx context.Context, sess *Session, item Item, token string) (Outcome, *failure.Error) {
	resp, err := sess.Exchange(ctx, item.ID, e.docs.UpdateDocument(sess.ID(), item.ID, token, item.Delta))
	if err != nil {
		return Outcome{}, asFailure(item.ID, err)
	}

	if !resp.OK() {
		msg := resp.Message()
		if conflictPattern.MatchString(msg) {
			var expected string
			if m := expectedPattern.FindStringSubmatch(msg); m != nil {
				expected = m[1]
			}
			return Outcome{}, failure.Conflict(item.ID, expected, token)
		}
		if notFoundPattern.MatchString(msg) {
			return Outcome{}, failure.NotFound(item.ID)
		}
		return Outcome{}, failure.Rejected(item.ID, msg)
	}

	return Outcome{Item: item, OnHand: resp.OnHand, LastUpdated: resp.LastUpdated}, nil
}

func asFailure(itemID string, err error) *failure.Error {
	var fe *failure.Error
	if errors.As(err, &fe) {
		return fe
	}
	return failure.Transport(itemID, err)
}
