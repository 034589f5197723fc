// Package drift watches a verified classification for sustained change.
//
// A single disagreeing check is not enough to overwrite a classification:
// live metrics are noisy, and flipping on every sample would make the
// reported state oscillate. The Watcher applies hysteresis instead. A new
// classification must be observed on several consecutive checks before it
// is committed with ReVerify.
package drift

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alexshd/antifragile"
)

// DefaultConfirmations is the number of consecutive disagreeing checks that
// commit a new classification.
const DefaultConfirmations = 3

// DecisionType is the outcome of one check.
type DecisionType string

const (
	DecisionHolding   DecisionType = "HOLDING"   // Stored classification still holds
	DecisionDrifting  DecisionType = "DRIFTING"  // Disagreement seen, not yet confirmed
	DecisionCommitted DecisionType = "COMMITTED" // Disagreement confirmed and stored
)

// Decision is the watcher's verdict for one check.
type Decision struct {
	Type      DecisionType      `json:"type"`
	Reason    string            `json:"reason"`
	Previous  antifragile.Triad `json:"previous"`
	Current   antifragile.Triad `json:"current"`
	Observed  antifragile.Triad `json:"observed"`
	Pending   int               `json:"pending"`
	At        float64           `json:"at"`
	Delta     float64           `json:"delta"`
	Timestamp time.Time         `json:"timestamp"`
}

// Status summarizes the watcher.
type Status struct {
	Classification antifragile.Triad `json:"classification"`
	Candidate      antifragile.Triad `json:"candidate"`
	Pending        int               `json:"pending"`
	Confirmations  int               `json:"confirmations"`
	Checks         int               `json:"checks"`
	Drifts         int               `json:"drifts"`
	Commits        int               `json:"commits"`
	LastCheck      time.Time         `json:"last_check"`
}

// Watcher holds a Verified classification of a float64 system and commits
// changes only after they persist.
//
// All methods are safe for concurrent use.
type Watcher struct {
	mu       sync.Mutex
	verified *antifragile.Verified[float64, float64]

	confirmations int
	candidate     antifragile.Triad
	pending       int

	checks    int
	drifts    int
	commits   int
	lastCheck time.Time

	logger   *slog.Logger
	onCommit func(antifragile.Triad)
	now      func() time.Time
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithConfirmations sets how many consecutive disagreeing checks commit a
// change. Values below 1 are ignored.
func WithConfirmations(n int) Option {
	return func(w *Watcher) {
		if n >= 1 {
			w.confirmations = n
		}
	}
}

// WithLogger sets the logger for drift and commit events.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// WithOnCommit registers fn to run with the new classification after every
// commit, and once at construction with the initial one.
func WithOnCommit(fn func(antifragile.Triad)) Option {
	return func(w *Watcher) {
		w.onCommit = fn
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(w *Watcher) {
		w.now = now
	}
}

// New classifies sys at (at, delta) and starts watching it.
func New(sys antifragile.System[float64, float64], at, delta float64, opts ...Option) *Watcher {
	w := &Watcher{
		confirmations: DefaultConfirmations,
		logger:        slog.Default(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}

	w.verified = antifragile.Check(sys, at, delta)
	w.candidate = w.verified.Classification()
	w.lastCheck = w.now()

	if w.onCommit != nil {
		w.onCommit(w.verified.Classification())
	}
	return w
}

// Current returns the committed classification.
func (w *Watcher) Current() antifragile.Triad {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.verified.Classification()
}

// Observe checks the system at (at, delta) against the committed
// classification.
//
// Agreement resets any pending drift. Disagreement counts towards a
// candidate classification; the count restarts when the candidate changes,
// and the candidate is committed once it has been seen Confirmations times
// in a row.
func (w *Watcher) Observe(at, delta float64) Decision {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	w.checks++
	w.lastCheck = now

	current := w.verified.Classification()
	d := Decision{
		Previous:  current,
		Current:   current,
		Observed:  current,
		At:        at,
		Delta:     delta,
		Timestamp: now,
	}

	if w.verified.StillHolds(at, delta) {
		if w.pending > 0 {
			w.logger.Debug("drift abandoned", "classification", current, "pending", w.pending)
		}
		w.pending = 0
		w.candidate = current

		d.Type = DecisionHolding
		d.Reason = fmt.Sprintf("%s holds at load=%.4f, Δ=%.4f", current.Name(), at, delta)
		return d
	}

	observed := antifragile.Classify[float64, float64](w.verified, at, delta)
	d.Observed = observed

	if observed != w.candidate || w.pending == 0 {
		w.candidate = observed
		w.pending = 0
	}
	w.pending++
	w.drifts++

	if w.pending < w.confirmations {
		d.Type = DecisionDrifting
		d.Pending = w.pending
		d.Reason = fmt.Sprintf("%s observed at load=%.4f (%d/%d confirmations), keeping %s",
			observed.Name(), at, w.pending, w.confirmations, current.Name())

		w.logger.Info("classification drifting",
			"current", current, "observed", observed,
			"pending", w.pending, "confirmations", w.confirmations, "load", at)
		return d
	}

	committed := w.verified.ReVerify(at, delta)
	w.commits++
	w.pending = 0
	w.candidate = committed

	d.Type = DecisionCommitted
	d.Current = committed
	d.Reason = fmt.Sprintf("%s → %s after %d consecutive checks at load=%.4f",
		current.Name(), committed.Name(), w.confirmations, at)

	w.logger.Warn("classification changed",
		"previous", current, "current", committed, "load", at, "delta", delta)

	if w.onCommit != nil {
		w.onCommit(committed)
	}
	return d
}

// Status returns the watcher's counters and pending state.
func (w *Watcher) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()

	return Status{
		Classification: w.verified.Classification(),
		Candidate:      w.candidate,
		Pending:        w.pending,
		Confirmations:  w.confirmations,
		Checks:         w.checks,
		Drifts:         w.drifts,
		Commits:        w.commits,
		LastCheck:      w.lastCheck,
	}
}

// Verified returns the wrapped classification for read-only use, such as
// JSON encoding. Callers must not ReVerify it.
func (w *Watcher) Verified() *antifragile.Verified[float64, float64] {
	return w.verified
}
