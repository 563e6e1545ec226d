package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/repograph/repograph-go/internal/config"
	"github.com/repograph/repograph-go/internal/guard"
	"github.com/repograph/repograph-go/internal/logging"
)

// HTTPServer serves the MCP tool set over SSE plus a liveness probe,
// with per-client rate limiting in front of everything.
type HTTPServer struct {
	cfg               config.ServerConfig
	store             Querier
	translator        Translator
	defaultRepository string
	limiter           *guard.RateLimiter
	health            func(ctx context.Context) error
}

// NewHTTPServer wires the transport. health may be nil; the probe then
// only reports process liveness.
func NewHTTPServer(cfg config.ServerConfig, store Querier, translator Translator, defaultRepository string, health func(ctx context.Context) error) *HTTPServer {
	return &HTTPServer{
		cfg:               cfg,
		store:             store,
		translator:        translator,
		defaultRepository: defaultRepository,
		limiter:           guard.NewRateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst),
		health:            health,
	}
}

// Handler builds the HTTP routing table.
func (h *HTTPServer) Handler() http.Handler {
	// Every SSE connection gets its own Server and therefore its own
	// repository context.
	sse := sdk.NewSSEHandler(func(*http.Request) *sdk.Server {
		return NewServer(h.store, h.translator, h.defaultRepository).MCPServer()
	}, nil)

	mux := http.NewServeMux()
	mux.Handle("/sse", h.rateLimit(sse))
	mux.Handle("/messages", h.rateLimit(sse))
	mux.Handle("/messages/", h.rateLimit(sse))
	mux.HandleFunc("/health", h.handleHealth)
	return mux
}

// ListenAndServe blocks until ctx is cancelled or the listener fails.
func (h *HTTPServer) ListenAndServe(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", h.cfg.Host, h.cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           h.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info("mcp server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// rateLimit enforces the per-client token bucket and attaches the
// advisory headers.
func (h *HTTPServer) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := guard.ClientID(r)
		d := h.limiter.Check(clientID)

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))

		if !d.Allowed {
			retry := int(d.RetryAfter.Seconds() + 0.999)
			if retry < 1 {
				retry = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			w.Header().Set("Content-Type", "application/json")
			logging.Warn("rate limit exceeded", "client", clientID)
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error":       "rate limit exceeded",
				"retry_after": retry,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok"}
	code := http.StatusOK

	if h.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.health(ctx); err != nil {
			status = map[string]string{"status": "degraded", "error": err.Error()}
			code = http.StatusServiceUnavailable
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(status)
}
