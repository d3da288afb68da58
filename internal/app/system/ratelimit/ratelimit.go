// Package ratelimit throttles repeated requests per key with fixed windows.
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Limiter allows at most limit hits per key in each window. It is safe for
// concurrent use. Expired windows are swept on use, so there is no
// background goroutine to stop.
type Limiter struct {
	mu        sync.Mutex
	windows   map[string]window
	limit     int
	period    time.Duration
	nextSweep time.Time
	now       func() time.Time
}

type window struct {
	count     int
	expiresAt time.Time
}

// New creates a limiter of limit hits per period.
func New(limit int, period time.Duration) *Limiter {
	return newWithClock(limit, period, time.Now)
}

func newWithClock(limit int, period time.Duration, now func() time.Time) *Limiter {
	return &Limiter{
		windows: make(map[string]window),
		limit:   limit,
		period:  period,
		now:     now,
	}
}

// Allow records a hit for key. When the key is over its limit it returns
// false and how long until the window resets.
func (l *Limiter) Allow(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	w, ok := l.windows[key]
	if !ok || !now.Before(w.expiresAt) {
		l.windows[key] = window{count: 1, expiresAt: now.Add(l.period)}
		return true, 0
	}
	if w.count >= l.limit {
		return false, w.expiresAt.Sub(now)
	}
	w.count++
	l.windows[key] = w
	return true, 0
}

// Reset forgets key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, key)
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// sweep drops expired windows at most once per period. Caller holds mu.
func (l *Limiter) sweep(now time.Time) {
	if now.Before(l.nextSweep) {
		return
	}
	for k, w := range l.windows {
		if !now.Before(w.expiresAt) {
			delete(l.windows, k)
		}
	}
	l.nextSweep = now.Add(l.period)
}

// ClientIP returns the host part of r.RemoteAddr. Forwarding headers are
// not read here: behind a trusted proxy, chi's middleware.RealIP rewrites
// RemoteAddr before this runs (see trust_proxy_headers).
func ClientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// LoginConfig sets the login limits. Zero fields take the defaults.
type LoginConfig struct {
	PerIP       int
	IPWindow    time.Duration
	PerEmail    int
	EmailWindow time.Duration
}

// Login limiter defaults.
const (
	DefaultPerIP       = 10
	DefaultIPWindow    = time.Minute
	DefaultPerEmail    = 5
	DefaultEmailWindow = 5 * time.Minute
)

// LoginLimiter tracks sign-in attempts by client IP and by account email.
// A nil *LoginLimiter allows everything.
type LoginLimiter struct {
	ip    *Limiter
	email *Limiter
}

// NewLoginLimiter builds a LoginLimiter from cfg.
func NewLoginLimiter(cfg LoginConfig) *LoginLimiter {
	return newLoginLimiter(cfg, time.Now)
}

func newLoginLimiter(cfg LoginConfig, now func() time.Time) *LoginLimiter {
	if cfg.PerIP <= 0 {
		cfg.PerIP = DefaultPerIP
	}
	if cfg.IPWindow <= 0 {
		cfg.IPWindow = DefaultIPWindow
	}
	if cfg.PerEmail <= 0 {
		cfg.PerEmail = DefaultPerEmail
	}
	if cfg.EmailWindow <= 0 {
		cfg.EmailWindow = DefaultEmailWindow
	}
	return &LoginLimiter{
		ip:    newWithClock(cfg.PerIP, cfg.IPWindow, now),
		email: newWithClock(cfg.PerEmail, cfg.EmailWindow, now),
	}
}

// Check records an attempt from ip for email (which may be empty). When
// blocked it returns false with the wait and a message for the client.
func (ll *LoginLimiter) Check(ip, email string) (bool, time.Duration, string) {
	if ll == nil {
		return true, 0, ""
	}
	if ok, wait := ll.ip.Allow(ip); !ok {
		return false, wait, "Too many attempts. Please wait a minute before trying again."
	}
	if key := emailKey(email); key != "" {
		if ok, wait := ll.email.Allow(key); !ok {
			return false, wait, "Too many sign-in attempts for this account. Please wait a few minutes."
		}
	}
	return true, 0, ""
}

// ResetEmail clears the account counter after a successful sign-in.
func (ll *LoginLimiter) ResetEmail(email string) {
	if ll == nil {
		return
	}
	if key := emailKey(email); key != "" {
		ll.email.Reset(key)
	}
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
