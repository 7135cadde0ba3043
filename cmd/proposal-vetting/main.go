package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/joelkehle/proposal-vetting/internal/config"
	"github.com/joelkehle/proposal-vetting/internal/httpapi"
	"github.com/joelkehle/proposal-vetting/internal/logger"
	"github.com/joelkehle/proposal-vetting/internal/metrics"
	"github.com/joelkehle/proposal-vetting/internal/telemetry"
	"github.com/joelkehle/proposal-vetting/internal/vetting"
)

func main() {
	addr := flag.String("addr", "", "Listen address (overrides PROPOSAL_VETTING_ADDR)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Addr = *addr
	}

	log, closeLog, err := logger.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTelEndpoint, cfg.ServiceName)
	if err != nil {
		log.WithError(err).Fatal("init tracing")
	}

	rec := metrics.New()
	pipeline, err := vetting.NewFromConfig(cfg, log, rec)
	if err != nil {
		log.WithError(err).Fatal("build pipeline")
	}

	handler := httpapi.NewServer(pipeline,
		httpapi.WithLogger(log),
		httpapi.WithMetricsHandler(rec.Handler()),
	)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		log.WithError(err).Fatal("listen")
	}
	log.WithFields(logrus.Fields{
		"addr":        ln.Addr().String(),
		"ai_provider": cfg.AIProvider,
		"renderer":    cfg.Renderer,
	}).Info("proposal-vetting listening")
	if err := serve(ctx, srv, ln, shutdownTracing, log); err != nil {
		log.WithError(err).Fatal("serve")
	}
}

// serve runs srv on ln until ctx is done, then drains the server and
// flushes tracing. It returns only after both have finished.
func serve(ctx context.Context, srv *http.Server, ln net.Listener, flush func(context.Context) error, log logrus.FieldLogger) error {
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("http shutdown")
		}
		if err := flush(shutdownCtx); err != nil {
			log.WithError(err).Warn("tracing shutdown")
		}
	}()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-stopped
	return nil
}
