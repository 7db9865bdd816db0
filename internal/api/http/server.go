package apihttp

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"seedvault/internal/domain/ports"
	"seedvault/internal/policy"
	"seedvault/internal/selector"
	"seedvault/internal/usecase"
)

// Server exposes the decision engine over HTTP: the current eviction plan,
// single-torrent verdicts, candidate selection and the metadata records. It
// holds no decision state of its own; every request is answered from a fresh
// snapshot of the collaborators.
type Server struct {
	feed   ports.StatusFeed
	meta   ports.MetaStore
	policy *policy.Config
	keyer  *selector.HeuristicKeyer

	logger  *slog.Logger
	handler http.Handler
	wsHub   *wsHub
	now     func() time.Time
}

type ServerOption func(*Server)

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithClock overrides the server's clock.
func WithClock(now func() time.Time) ServerOption {
	return func(s *Server) {
		s.now = now
	}
}

func NewServer(feed ports.StatusFeed, meta ports.MetaStore, cfg *policy.Config, keyer *selector.HeuristicKeyer, opts ...ServerOption) *Server {
	s := &Server{
		feed:   feed,
		meta:   meta,
		policy: cfg,
		keyer:  keyer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	s.wsHub = newWSHub(s.logger)
	go s.wsHub.run()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/plan", s.handlePlan)
	mux.HandleFunc("/api/v1/evaluate/", s.handleEvaluate)
	mux.HandleFunc("/api/v1/select/best", s.handleSelectBest)
	mux.HandleFunc("/api/v1/select/most-seeds", s.handleSelectMostSeeds)
	mux.HandleFunc("/api/v1/meta/", s.handleMeta)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ws", s.handleWS)

	traced := otelhttp.NewHandler(loggingMiddleware(s.logger, mux), "seedvault",
		otelhttp.WithFilter(func(r *http.Request) bool {
			p := r.URL.Path
			return p != "/metrics" && p != "/healthz"
		}),
	)
	s.handler = recoveryMiddleware(s.logger, rateLimitMiddleware(100, 200, metricsMiddleware(corsMiddleware(traced))))
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// CycleNotifier returns a sink that forwards reclaim cycle outcomes to all
// connected websocket clients.
func (s *Server) CycleNotifier() usecase.CycleNotifier {
	return s.wsHub
}

// Close shuts down the websocket hub, disconnecting all clients.
func (s *Server) Close() {
	if s.wsHub != nil {
		s.wsHub.Close()
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("ws upgrade failed", slog.String("error", err.Error()))
		return
	}
	client := &wsClient{
		hub:  s.wsHub,
		conn: conn,
		send: make(chan []byte, 64),
	}
	s.wsHub.register <- client
	go client.writePump()
	go client.readPump()
}

// pathTail returns the path segment after prefix, rejecting nested paths.
func pathTail(path, prefix string) (string, bool) {
	tail := strings.TrimPrefix(path, prefix)
	if tail == "" || tail == path || strings.Contains(tail, "/") {
		return "", false
	}
	return tail, true
}
