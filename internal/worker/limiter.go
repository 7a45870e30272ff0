package worker

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"github.com/ppiankov/peoplefinder/internal/model"
	"golang.org/x/time/rate"
)

const defaultBurst = 1

// Limiter paces outgoing API requests per host.
// Hosts without an override share the default pace; a non-positive rate disables pacing.
type Limiter struct {
	mu           sync.Mutex
	hosts        map[string]*rate.Limiter
	defaultRate  rate.Limit
	defaultBurst int
}

// NewLimiter creates a limiter from configuration, applying per-host overrides
func NewLimiter(cfg model.RateLimitingConfig) *Limiter {
	l := &Limiter{
		hosts:        make(map[string]*rate.Limiter),
		defaultRate:  limitFor(cfg.RequestsPerSecond),
		defaultBurst: burstFor(cfg.BurstSize, defaultBurst),
	}
	for _, hr := range cfg.Hosts {
		l.SetHostRate(hr.Host, hr.RequestsPerSecond, hr.BurstSize)
	}
	return l
}

// Wait blocks until a request to rawURL's host may go out or ctx is done
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	host, err := extractHost(rawURL)
	if err != nil {
		return err
	}
	return l.forHost(host).Wait(ctx)
}

// SetHostRate overrides the pace for host. A non-positive burst falls back to the default burst.
func (l *Limiter) SetHostRate(host string, requestsPerSecond float64, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hosts[strings.ToLower(host)] = rate.NewLimiter(limitFor(requestsPerSecond), burstFor(burst, l.defaultBurst))
}

func (l *Limiter) forHost(host string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.hosts[host]
	if !ok {
		lim = rate.NewLimiter(l.defaultRate, l.defaultBurst)
		l.hosts[host] = lim
	}
	return lim
}

func limitFor(rps float64) rate.Limit {
	if rps <= 0 {
		return rate.Inf
	}
	return rate.Limit(rps)
}

func burstFor(burst, fallback int) int {
	if burst <= 0 {
		return fallback
	}
	return burst
}

// extractHost returns the lower-cased host of a URL
func extractHost(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	return strings.ToLower(parsed.Host), nil
}
