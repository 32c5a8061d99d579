// Package httpapi is a minimal authenticated, rate-limited
// administrative HTTP surface over a running simulator: port and route
// inspection, STP bridge state, and packet injection.
package httpapi

import (
	"crypto/subtle"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/krisarmstrong/switchsim/pkg/hal"
	"github.com/krisarmstrong/switchsim/pkg/l2"
	"github.com/krisarmstrong/switchsim/pkg/packetbuf"
	"github.com/krisarmstrong/switchsim/pkg/portsim"
	"github.com/krisarmstrong/switchsim/pkg/routing"
	"github.com/krisarmstrong/switchsim/pkg/stp"
)

// DefaultRateLimit and DefaultBurst bound requests per client IP.
const (
	DefaultRateLimit = 50
	DefaultBurst     = 100
)

// Deps wires the server to the live simulator components it reports
// on. All fields except Substrate are optional: a nil Bridge/Table/Loop
// simply has its corresponding endpoint report "not configured".
type Deps struct {
	Substrate *portsim.Substrate
	MACTable  *l2.Table
	Bridge    *stp.Bridge
	Routes    *routing.Table
	Loop      *hal.Loop
	Alloc     *packetbuf.Allocator
}

// Server is the administrative HTTP surface.
type Server struct {
	deps        Deps
	Token       string
	httpServer  *http.Server
	rateLimiter *rateLimiter
}

// NewServer constructs a Server over deps. Token, if non-empty,
// requires a matching "Authorization: Bearer <token>" header on every
// request.
func NewServer(deps Deps, token string) *Server {
	return &Server{deps: deps, Token: token, rateLimiter: newRateLimiter(DefaultRateLimit, DefaultBurst)}
}

// Start boots the HTTP listener on addr in the background.
func (s *Server) Start(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/ports", s.auth(s.handlePorts))
	mux.HandleFunc("/api/v1/mac-table", s.auth(s.handleMACTable))
	mux.HandleFunc("/api/v1/stp", s.auth(s.handleSTP))
	mux.HandleFunc("/api/v1/routes", s.auth(s.handleRoutes))
	mux.HandleFunc("/api/v1/inject", s.auth(s.handleInject))

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("httpapi: server stopped: %v", err)
		}
	}()
	return nil
}

// Shutdown stops the HTTP listener.
func (s *Server) Shutdown() error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Close()
}

func (s *Server) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !s.rateLimiter.allow(ip) {
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		if s.Token != "" {
			token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if subtle.ConstantTimeCompare([]byte(token), []byte(s.Token)) != 1 {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

type rateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	r        rate.Limit
	burst    int
}

func newRateLimiter(r rate.Limit, burst int) *rateLimiter {
	return &rateLimiter{limiters: make(map[string]*rate.Limiter), r: r, burst: burst}
}

func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	lim, ok := rl.limiters[ip]
	if !ok {
		lim = rate.NewLimiter(rl.r, rl.burst)
		rl.limiters[ip] = lim
	}
	rl.mu.Unlock()
	return lim.Allow()
}
