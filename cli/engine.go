package cli

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ardnew/tagtmpl/lang"
	"github.com/ardnew/tagtmpl/log"
)

const shutdownTimeout = 5 * time.Second

type engineConfig struct {
	CacheSize   int    `default:"${cacheSize}" help:"Number of parsed templates kept in the cache."`
	MetricsAddr string `                       help:"Serve Prometheus metrics on ADDR while the command runs." placeholder:"ADDR"`
}

func (*engineConfig) vars() kong.Vars {
	return kong.Vars{"cacheSize": "200"}
}

func (*engineConfig) group() kong.Group {
	return kong.Group{Key: "engine", Title: "Engine options"}
}

// start builds the engine shared by the invocation. Its metrics are
// registered with a private registry that is served on MetricsAddr when
// set. The returned stop function shuts the server down.
func (c *engineConfig) start(ctx context.Context) (*lang.Engine, func(), error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	engine := lang.New(
		lang.WithCacheCapacity(c.CacheSize),
		lang.WithLogger(log.Default()),
		lang.WithMetrics(lang.NewMetrics(reg)),
	)

	if c.MetricsAddr == "" {
		return engine, func() {}, nil
	}

	ln, err := net.Listen("tcp", c.MetricsAddr)
	if err != nil {
		return nil, nil, ErrMetricsListen.With(slog.String("addr", c.MetricsAddr)).Wrap(err)
	}

	srv := newMetricsServer(reg)

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WarnContext(ctx, "metrics server stopped", slog.Any("error", err))
		}
	}()

	log.DebugContext(ctx, "metrics server started",
		slog.String("addr", ln.Addr().String()),
	)

	return engine, func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		_ = srv.Shutdown(ctx)
	}, nil
}

func newMetricsServer(reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	return &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: shutdownTimeout,
	}
}
