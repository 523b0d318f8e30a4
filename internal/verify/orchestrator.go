package verify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dmitrijs2005/docverify/internal/common"
	"github.com/dmitrijs2005/docverify/internal/digest"
	"github.com/dmitrijs2005/docverify/internal/logging"
	"github.com/ethereum/go-ethereum/event"
)

// ErrSuperseded is returned by a request that finished after a newer one
// was started. Its result is not published.
var ErrSuperseded = errors.New("verification superseded by a newer request")

type State int

const (
	StateIdle State = iota
	StateHashing
	StateQuerying
	StateResolved
)

func (s State) String() string {
	switch s {
	case StateHashing:
		return "hashing"
	case StateQuerying:
		return "querying"
	case StateResolved:
		return "resolved"
	default:
		return "idle"
	}
}

// Transition is delivered to subscribers whenever the current request
// changes state.
type Transition struct {
	Seq   uint64
	State State
}

// Orchestrator drives verification requests. Requests may overlap; only
// the most recently started one may change the published state.
type Orchestrator struct {
	engine   *digest.Engine
	verifier *Verifier
	logger   logging.Logger

	seq atomic.Uint64

	mu     sync.Mutex
	state  State
	latest *Result

	// sendMu keeps the supersession check and the feed send together so
	// subscribers never see an older seq after a newer one.
	sendMu sync.Mutex
	feed   event.Feed
}

func NewOrchestrator(engine *digest.Engine, verifier *Verifier, logger logging.Logger) *Orchestrator {
	return &Orchestrator{engine: engine, verifier: verifier, logger: logger.With("module", "verify")}
}

func (o *Orchestrator) Subscribe(ch chan<- Transition) event.Subscription {
	return o.feed.Subscribe(ch)
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Latest returns the last published result, or nil.
func (o *Orchestrator) Latest() *Result {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.latest
}

func (o *Orchestrator) transition(seq uint64, s State) bool {
	o.sendMu.Lock()
	defer o.sendMu.Unlock()

	o.mu.Lock()
	if seq != o.seq.Load() {
		o.mu.Unlock()
		return false
	}
	o.state = s
	o.mu.Unlock()

	o.feed.Send(Transition{Seq: seq, State: s})
	return true
}

func (o *Orchestrator) publish(ctx context.Context, res *Result) error {
	o.sendMu.Lock()
	defer o.sendMu.Unlock()

	o.mu.Lock()
	if res.Seq != o.seq.Load() {
		o.mu.Unlock()
		o.logger.Info(ctx, "discarding stale verification result", "seq", res.Seq)
		return ErrSuperseded
	}
	o.latest = res
	o.state = StateResolved
	o.mu.Unlock()

	o.feed.Send(Transition{Seq: res.Seq, State: StateResolved})
	return nil
}

// VerifyFile hashes the file at path and looks it up.
func (o *Orchestrator) VerifyFile(ctx context.Context, path string) (*Result, error) {
	seq := o.seq.Add(1)
	o.transition(seq, StateHashing)

	f, err := o.engine.ComputeFile(ctx, path)
	if err == nil {
		err = f.Digests.Require()
	}
	if err != nil {
		o.transition(seq, StateIdle)
		return nil, err
	}

	q := Query{SHA256: f.Digests.SHA256, SHA1: f.Digests.SHA1, SHA512: f.Digests.SHA512}
	return o.run(ctx, seq, q, &FileSummary{Name: f.Info.Name, Type: f.Info.Type, Size: f.Info.Size})
}

// VerifyDigest looks up a digest typed by the user. Its length selects the
// algorithm: 40 hex chars SHA-1, 64 SHA-256, 128 SHA-512.
func (o *Orchestrator) VerifyDigest(ctx context.Context, raw string) (*Result, error) {
	q, err := ParseDigest(raw)
	if err != nil {
		return nil, err
	}
	seq := o.seq.Add(1)
	return o.run(ctx, seq, q, nil)
}

func (o *Orchestrator) run(ctx context.Context, seq uint64, q Query, file *FileSummary) (*Result, error) {
	o.transition(seq, StateQuerying)

	res := o.verifier.Lookup(ctx, q)
	res.Seq = seq
	res.File = file

	if err := o.publish(ctx, res); err != nil {
		return nil, err
	}
	o.logger.Info(ctx, "verification resolved", "seq", seq, "outcome", res.Outcome.String())
	return res, nil
}

// ParseDigest normalizes a user-supplied digest into a query.
func ParseDigest(raw string) (Query, error) {
	d, ok := common.NormalizeHex(raw)
	if !ok || d == "" {
		return Query{}, fmt.Errorf("digest must be hexadecimal: %w", common.ErrInput)
	}
	switch len(d) {
	case 40:
		return Query{SHA1: d}, nil
	case 64:
		return Query{SHA256: d}, nil
	case 128:
		return Query{SHA512: d}, nil
	}
	return Query{}, fmt.Errorf("digest has %d hex chars, want 40, 64 or 128: %w", len(d), common.ErrInput)
}
