// The slurmstat daemon serves usage reports over HTTP:
//
//   GET /usage?from=&to=&user=&merge=&kind=  the report as JSON (see /docs for the schema)
//   GET /metrics                             Prometheus gauges for last month's usage
//
// It runs until its context is cancelled, normally by SIGINT, SIGTERM or SIGHUP.

package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"slurmstat/application"
	"slurmstat/common"
)

const (
	serverShutdownTimeout = 10 * time.Second
	DefaultScrapeTimeout  = 60 * time.Second
)

type Server struct {
	Port          int
	Version       string
	ScrapeTimeout time.Duration // DefaultScrapeTimeout if zero

	runner *application.Runner
	now    func() time.Time
}

func New(port int, version string, runner *application.Runner) *Server {
	return &Server{
		Port:    port,
		Version: version,
		runner:  runner,
		now:     time.Now,
	}
}

// Handler returns the handler for all the daemon's routes.
func (s *Server) Handler() http.Handler {
	timeout := s.ScrapeTimeout
	if timeout == 0 {
		timeout = DefaultScrapeTimeout
	}
	registry := prometheus.NewRegistry()
	registry.MustRegister(newUsageCollector(s.runner, s.now, timeout))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	registerAPI(mux, s.Version, s.runner, s.now)
	return mux
}

// Run serves until ctx is cancelled and then shuts down gracefully.  The error is nil after a
// normal shutdown.
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	failed := make(chan error, 1)
	go func() {
		common.Log.Infof("Listening on port %d", s.Port)
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			failed <- err
		}
		close(failed)
	}()

	select {
	case err := <-failed:
		if err != nil {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	common.Log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		common.Log.Warning(err.Error())
	}
	return <-failed
}
