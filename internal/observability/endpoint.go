package observability

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"

	"github.com/vitalarbor/vitalarbor-go/internal/logger"
	metricspkg "github.com/vitalarbor/vitalarbor-go/internal/observability/metrics"
)

// Endpoint serves the Prometheus /metrics page.
type Endpoint struct {
	server        *http.Server
	listenAddress string
	metrics       *Metrics
}

// NewEndpoint creates an Endpoint listening on listenAddress. An empty
// address means the endpoint is disabled and an error is returned.
func NewEndpoint(listenAddress string, metrics *Metrics) (*Endpoint, error) {
	if listenAddress == "" {
		return nil, errors.New("metrics endpoint not enabled")
	}

	return &Endpoint{
		listenAddress: listenAddress,
		metrics:       metrics,
	}, nil
}

// Start binds the listener and serves in the background until quitChan is
// closed. Binding errors are returned synchronously.
func (e *Endpoint) Start(wg *sync.WaitGroup, quitChan <-chan struct{}) error {
	mux := http.NewServeMux()
	e.metrics.RegisterHandlers(mux)

	listener, err := net.Listen("tcp", e.listenAddress)
	if err != nil {
		return err
	}

	e.server = &http.Server{
		Handler: mux,
	}

	wg.Go(func() {
		getLogger().Info("metrics endpoint starting", logger.String("address", listener.Addr().String()))
		if err := e.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			getLogger().Error("metrics HTTP server error", logger.Error(err))
		}
	})

	wg.Go(func() {
		e.gracefulShutdown(quitChan)
	})
	return nil
}

// gracefulShutdown waits for the quit signal and shuts down the server gracefully.
func (e *Endpoint) gracefulShutdown(quitChan <-chan struct{}) {
	<-quitChan
	getLogger().Info("stopping metrics server")
	ctx, cancel := context.WithTimeout(context.Background(), metricspkg.ShutdownTimeout)
	defer cancel()
	if err := e.server.Shutdown(ctx); err != nil {
		getLogger().Error("metrics server shutdown error", logger.Error(err))
	}
}

// GetMetrics returns the Metrics instance associated with this Endpoint.
func (e *Endpoint) GetMetrics() *Metrics {
	return e.metrics
}
