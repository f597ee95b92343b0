// Package api serves the relayer accountability ledger over HTTP.
//
// Mutating endpoints run as one host call each: the caller is taken from the
// X-Caller header, the attached value from X-Value, and an accepted call is
// sealed into its own host block. Read endpoints query committed state.
package api

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/rony4d/go-relay-accord/eventlog"
	"github.com/rony4d/go-relay-accord/evmcore"
	"github.com/rony4d/go-relay-accord/ledger"
	"github.com/rony4d/go-relay-accord/utils/ratelimit"
)

// Metrics
var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relayd_http_requests_total",
		Help: "Total HTTP requests processed, labeled by status code",
	}, []string{"method", "endpoint", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "relayd_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"method", "endpoint"})

	httpThrottledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relayd_http_throttled_total",
		Help: "Requests rejected by the per-caller rate limit",
	})
)

// Handler serves the ledger operations.
type Handler struct {
	ledger  *ledger.Ledger
	host    *evmcore.Host
	history eventlog.History
	limiter *ratelimit.Limiter
	clock   func() time.Time
	log     logrus.FieldLogger
}

// Option configures a Handler.
type Option func(*Handler)

// WithHistory exposes a notification journal at /v1/events.
func WithHistory(hist eventlog.History) Option {
	return func(h *Handler) { h.history = hist }
}

// WithLimiter throttles requests per caller.
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(h *Handler) { h.limiter = l }
}

// WithClock sets the wall clock that drives the host time.
func WithClock(clock func() time.Time) Option {
	return func(h *Handler) { h.clock = clock }
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(h *Handler) { h.log = log }
}

// NewHandler creates a handler running ledger calls on host.
func NewHandler(l *ledger.Ledger, host *evmcore.Host, opts ...Option) *Handler {
	h := &Handler{
		ledger: l,
		host:   host,
		clock:  time.Now,
		log:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.log = h.log.WithField("module", "api")
	return h
}

// Router builds the route table.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", h.HealthCheckHandler).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.Use(h.instrument, h.throttle)

	v1.HandleFunc("/rules", h.RulesHandler).Methods(http.MethodGet)
	v1.HandleFunc("/head", h.HeadHandler).Methods(http.MethodGet)
	v1.HandleFunc("/governance", h.GovernanceHandler).Methods(http.MethodGet)
	v1.HandleFunc("/accounts/{account}/balance", h.BalanceHandler).Methods(http.MethodGet)
	v1.HandleFunc("/events", h.EventsHandler).Methods(http.MethodGet)

	v1.HandleFunc("/plans", h.CreatePlanHandler).Methods(http.MethodPost)
	v1.HandleFunc("/plans", h.ListPlansHandler).Methods(http.MethodGet)
	v1.HandleFunc("/plans/{id:[0-9]+}", h.GetPlanHandler).Methods(http.MethodGet)
	v1.HandleFunc("/plans/{id:[0-9]+}/subscribers", h.PlanSubscribersHandler).Methods(http.MethodGet)
	v1.HandleFunc("/plans/{id:[0-9]+}/subscriptions", h.SubscribeHandler).Methods(http.MethodPost)

	v1.HandleFunc("/subscriptions/{id:[0-9]+}", h.GetSubscriptionHandler).Methods(http.MethodGet)
	v1.HandleFunc("/relayers/{relayer}/subscribers", h.RelayerSubscribersHandler).Methods(http.MethodGet)
	v1.HandleFunc("/relayers/{relayer}/subscribers/{subscriber}", h.LatestSubscriptionHandler).Methods(http.MethodGet)
	v1.HandleFunc("/relayers/{relayer}/stake", h.StakeHandler).Methods(http.MethodPost)
	v1.HandleFunc("/relayers/{relayer}/stake", h.GetStakeHandler).Methods(http.MethodGet)

	v1.HandleFunc("/reports", h.FileReportHandler).Methods(http.MethodPost)
	v1.HandleFunc("/reports", h.OpenReportsHandler).Methods(http.MethodGet)
	v1.HandleFunc("/reports/{id:[0-9]+}", h.GetReportHandler).Methods(http.MethodGet)
	v1.HandleFunc("/reports/{id:[0-9]+}/challenge", h.ChallengeHandler).Methods(http.MethodPost)

	v1.HandleFunc("/settlements", h.SettleHandler).Methods(http.MethodPost)
	v1.HandleFunc("/expirations", h.ExpireHandler).Methods(http.MethodPost)

	v1.HandleFunc("/roles/{role}", h.GetRoleHandler).Methods(http.MethodGet)
	v1.HandleFunc("/roles/{role}", h.SetRoleHandler).Methods(http.MethodPut)
	v1.HandleFunc("/roles/{role}/history", h.RoleHistoryHandler).Methods(http.MethodGet)
	return r
}

// HealthCheckHandler reports liveness together with the host head.
func (h *Handler) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	head := h.host.Head()
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"block":  head.Number,
		"time":   head.Time,
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// instrument records request counts and latency per route template.
func (h *Handler) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		endpoint := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				endpoint = tpl
			}
		}

		timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues(r.Method, endpoint))
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		timer.ObserveDuration()

		httpRequestsTotal.WithLabelValues(r.Method, endpoint, strconv.Itoa(rec.status)).Inc()
	})
}

// throttle applies the per-caller rate limit. Anonymous requests are keyed
// by remote address.
func (h *Handler) throttle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(headerCaller)
		if key == "" {
			key = r.RemoteAddr
			if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
				key = host
			}
		}
		if !h.limiter.Allow(key, h.clock()) {
			httpThrottledTotal.Inc()
			respondWithError(w, http.StatusTooManyRequests, "Rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}
