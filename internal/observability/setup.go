package observability

import (
	"context"
	"errors"
	"net/http"

	"github.com/honeynil/AccountService/internal/infrastructure/observability"
)

type Options struct {
	MetricsAddr  string
	OTLPEndpoint string
}

// Setup initializes logging, metrics and tracing. The returned function
// stops the metrics listener and flushes pending spans.
func Setup(serviceName string, opts Options) func(context.Context) error {
	observability.InitLogger()
	metricsServer := observability.InitMetrics(opts.MetricsAddr)
	tracerShutdown := observability.InitTracing(serviceName, opts.OTLPEndpoint)

	return func(ctx context.Context) error {
		var errs []error
		if err := metricsServer.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
		if err := tracerShutdown(ctx); err != nil {
			errs = append(errs, err)
		}
		return errors.Join(errs...)
	}
}
