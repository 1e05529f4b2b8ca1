package segment

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/foxzi/reachgate/internal/metrics"
)

// DefaultDebounce is the quiet period after the last edit before a count
// request is sent
const DefaultDebounce = 500 * time.Millisecond

// DefaultCountTimeout bounds a single remote count request
const DefaultCountTimeout = 15 * time.Second

// Counter returns the number of contacts matching rules
type Counter interface {
	CountSegment(ctx context.Context, rules []Rule) (int, error)
}

// CounterFunc adapts a function to Counter
type CounterFunc func(ctx context.Context, rules []Rule) (int, error)

// CountSegment calls f
func (f CounterFunc) CountSegment(ctx context.Context, rules []Rule) (int, error) {
	return f(ctx, rules)
}

// RefresherOptions tunes a Refresher. Zero values select the defaults.
type RefresherOptions struct {
	Debounce time.Duration
	Timeout  time.Duration
	Logger   *slog.Logger
	// OnCount is called with every accepted count
	OnCount func(count int)
}

// Refresher keeps a remotely computed match count in step with a rule list.
//
// Each Schedule issues a new token and re-arms the debounce timer, so a burst
// of edits produces one request. A response is applied only when its token is
// still the latest issued; anything older is discarded. Failures degrade to 0.
type Refresher struct {
	counter  Counter
	debounce time.Duration
	timeout  time.Duration
	logger   *slog.Logger
	onCount  func(int)

	mu       sync.Mutex
	issued   uint64
	accepted uint64
	count    int
	timer    *time.Timer
	inflight context.CancelFunc
	closed   bool
	wg       sync.WaitGroup
}

// NewRefresher creates a refresher that counts through counter
func NewRefresher(counter Counter, opts RefresherOptions) *Refresher {
	r := &Refresher{
		counter:  counter,
		debounce: opts.Debounce,
		timeout:  opts.Timeout,
		logger:   opts.Logger,
		onCount:  opts.OnCount,
	}
	if r.debounce <= 0 {
		r.debounce = DefaultDebounce
	}
	if r.timeout <= 0 {
		r.timeout = DefaultCountTimeout
	}
	if r.logger == nil {
		r.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return r
}

// Schedule requests a recount for rules after the debounce delay, replacing
// any pending or in-flight refresh. It returns the issued token, or 0 once the
// refresher is closed.
func (r *Refresher) Schedule(rules []Rule) uint64 {
	rules = CloneRules(rules)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return 0
	}

	r.issued++
	token := r.issued

	if r.timer != nil && r.timer.Stop() {
		metrics.IncSegmentCountSuperseded()
	}
	// Whatever is in flight can no longer be accepted
	if r.inflight != nil {
		r.inflight()
		r.inflight = nil
	}

	r.timer = time.AfterFunc(r.debounce, func() { r.fire(token, rules) })
	return token
}

// Count returns the last accepted count
func (r *Refresher) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Tokens returns the latest issued token and the token of the last accepted
// response
func (r *Refresher) Tokens() (issued, accepted uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.issued, r.accepted
}

// Close stops any pending refresh, cancels the in-flight request and waits
// for running callbacks to return. Later responses are dropped. Close must
// not be called from OnCount. A nil Refresher is a no-op.
func (r *Refresher) Close() {
	if r == nil {
		return
	}
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	if r.timer != nil {
		r.timer.Stop()
	}
	if r.inflight != nil {
		r.inflight()
		r.inflight = nil
	}
	r.mu.Unlock()

	r.wg.Wait()
}

func (r *Refresher) fire(token uint64, rules []Rule) {
	r.mu.Lock()
	if r.closed || token != r.issued {
		r.mu.Unlock()
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	r.inflight = cancel
	r.wg.Add(1)
	r.mu.Unlock()

	defer r.wg.Done()
	defer cancel()

	count, result := r.request(ctx, token, rules)
	metrics.IncSegmentCount(result)
	r.apply(token, count)
}

// request performs the remote count. An empty rule list matches nothing and
// is answered locally.
func (r *Refresher) request(ctx context.Context, token uint64, rules []Rule) (int, string) {
	if len(rules) == 0 {
		return 0, "empty"
	}

	start := time.Now()
	count, err := r.counter.CountSegment(ctx, rules)
	metrics.ObserveSegmentCountDuration(time.Since(start).Seconds())

	switch {
	case errors.Is(err, context.Canceled):
		return 0, "cancelled"
	case err != nil:
		r.logger.Warn("segment count failed, showing 0",
			"token", token,
			"rules", len(rules),
			"error", err,
		)
		return 0, "error"
	case count < 0:
		return 0, "ok"
	default:
		return count, "ok"
	}
}

func (r *Refresher) apply(token uint64, count int) {
	r.mu.Lock()
	if r.closed || token != r.issued {
		r.mu.Unlock()
		metrics.IncSegmentCountStale()
		r.logger.Debug("discarding stale segment count", "token", token)
		return
	}
	r.accepted = token
	r.count = count
	r.inflight = nil
	onCount := r.onCount
	r.mu.Unlock()

	if onCount != nil {
		onCount(count)
	}
}
