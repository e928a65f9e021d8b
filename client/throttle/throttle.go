package throttle

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

// DefaultMaxHosts bounds the number of per-host limiters kept alive.
const DefaultMaxHosts = 256

var (
	ErrMustNotBeZero = errors.New("must be greater than zero")
	ErrWaitingFailed = errors.New("limiter waiting failed")
	ErrContextEnded  = errors.New("throttle context ended")
)

// throttle is an http.RoundTripper giving every target host its own
// token bucket. Least recently used hosts are evicted past maxHosts.
type throttle struct {
	mu       sync.Mutex
	limiters *lru.Cache[string, *rate.Limiter]
	rps      int
	burst    int
	next     http.RoundTripper
	logFn    func() *slog.Logger
}

// NewRoundTripper returns an http.RoundTripper that throttles outbound
// requests per host. logFn lazily resolves the logger at request time so
// option ordering is irrelevant; a nil logger disables wait logging.
func NewRoundTripper(rps, burst int, logFn func() *slog.Logger, next http.RoundTripper) (http.RoundTripper, error) {
	if rps <= 0 || burst <= 0 {
		return nil, fmt.Errorf("rps[%d] and burst[%d] %w", rps, burst, ErrMustNotBeZero)
	}

	cache, err := lru.New[string, *rate.Limiter](DefaultMaxHosts)
	if err != nil {
		return nil, fmt.Errorf("creating limiter cache: %w", err)
	}

	if next == nil {
		next = http.DefaultTransport
	}
	if logFn == nil {
		logFn = func() *slog.Logger { return nil }
	}

	t := throttle{
		limiters: cache,
		rps:      rps,
		burst:    burst,
		next:     next,
		logFn:    logFn,
	}

	return &t, nil
}

func (t *throttle) limiter(host string) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()

	if l, ok := t.limiters.Get(host); ok {
		return l
	}

	l := rate.NewLimiter(rate.Limit(t.rps), t.burst)
	t.limiters.Add(host, l)

	return l
}

func (t *throttle) RoundTrip(r *http.Request) (*http.Response, error) {
	ctx := r.Context()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w early: %w", ErrContextEnded, err)
	}

	limiter := t.limiter(r.URL.Host)

	res := limiter.Reserve()
	if !res.OK() {
		return nil, fmt.Errorf("%w: burst exceeded", ErrWaitingFailed)
	}

	if delay := res.Delay(); delay > 0 {
		if logger := t.logFn(); logger != nil {
			logger.Info("throttle tokens exhausted", "host", r.URL.Host, "rate", t.rps, "burst", t.burst, "wait", delay.String())
		}

		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-ctx.Done():
			res.Cancel()
			return nil, fmt.Errorf("%w: %w", ErrWaitingFailed, ctx.Err())
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w post-wait: %w", ErrContextEnded, err)
	}

	return t.next.RoundTrip(r)
}
