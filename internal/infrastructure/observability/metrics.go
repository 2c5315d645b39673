package observability

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Счётчик вызовов методов репозитория
	RepositoryCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repository_calls_total",
			Help: "Total number of repository method calls",
		},
		[]string{"method", "status"},
	)

	// Гистограмма времени выполнения запросов
	RepositoryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "repository_duration_seconds",
			Help:    "Duration of repository method calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	TokensIssued = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "auth_tokens_issued_total",
			Help: "Total number of access tokens issued",
		},
	)

	TokenFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_token_failures_total",
			Help: "Total number of rejected access tokens by reason",
		},
		[]string{"reason"},
	)

	PasswordHashDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "password_hash_duration_seconds",
			Help:    "Time spent computing password hashes",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2},
		},
	)
)

func collectors() []prometheus.Collector {
	return []prometheus.Collector{RepositoryCalls, RepositoryDuration, TokensIssued, TokenFailures, PasswordHashDuration}
}

// RegisterMetrics registers the collectors of this package with reg.
// Collectors that are already registered are skipped.
func RegisterMetrics(reg prometheus.Registerer) error {
	for _, c := range collectors() {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}

// InitMetrics registers collectors on the default registry and serves them
// on a dedicated listener. The returned server is owned by the caller.
func InitMetrics(addr string) *http.Server {
	if err := RegisterMetrics(prometheus.DefaultRegisterer); err != nil {
		slog.Error("failed to register metrics", "error", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "addr", addr, "error", err)
		}
	}()
	return server
}
