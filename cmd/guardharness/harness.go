package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	api "go.opentelemetry.io/otel/metric"
	kclock "k8s.io/utils/clock"

	"github.com/italypaleale/go-fatalguard/fatalguard"
	"github.com/italypaleale/go-fatalguard/httpserver"
)

// workerMetrics holds the counters recorded by the workers.
type workerMetrics struct {
	ticks     api.Int64Counter
	completed api.Int64Counter
	canceled  api.Int64Counter
}

func newWorkerMetrics(meter api.Meter) (*workerMetrics, error) {
	m := &workerMetrics{}
	var err error

	m.ticks, err = meter.Int64Counter("worker.ticks", api.WithDescription("Ticks completed by workers"))
	if err != nil {
		return nil, fmt.Errorf("failed to create worker.ticks counter: %w", err)
	}
	m.completed, err = meter.Int64Counter("worker.completed", api.WithDescription("Workers that reached their checkpoint"))
	if err != nil {
		return nil, fmt.Errorf("failed to create worker.completed counter: %w", err)
	}
	m.canceled, err = meter.Int64Counter("worker.canceled", api.WithDescription("Workers stopped before their checkpoint"))
	if err != nil {
		return nil, fmt.Errorf("failed to create worker.canceled counter: %w", err)
	}

	return m, nil
}

// workerRunner runs the configured workers.
type workerRunner struct {
	log     *slog.Logger
	out     io.Writer
	clock   kclock.Clock
	metrics *workerMetrics
}

// runAll starts every worker on its own guarded goroutine and waits for all of them.
// If a worker fails, the process exits before runAll returns.
func (r *workerRunner) runAll(ctx context.Context, workers []WorkerConfig) {
	var wg sync.WaitGroup
	for _, w := range workers {
		wg.Add(1)
		fatalguard.Go(w.Name, func() {
			defer wg.Done()
			r.run(ctx, w)
		})
	}
	wg.Wait()
}

func (r *workerRunner) run(ctx context.Context, w WorkerConfig) {
	log := r.log.With(slog.String("worker", w.Name))
	attrs := api.WithAttributes(attribute.String("worker", w.Name))
	log.InfoContext(ctx, "Worker started", slog.Int("ticks", w.Ticks), slog.Duration("interval", w.interval()))

	for i := range w.Ticks {
		// Each tick waits a full interval after the previous one
		select {
		case <-ctx.Done():
			r.metrics.canceled.Add(ctx, 1, attrs)
			log.WarnContext(ctx, "Worker canceled", slog.Int("tick", i))
			return
		case <-r.clock.After(w.interval()):
			r.metrics.ticks.Add(ctx, 1, attrs)
			log.DebugContext(ctx, "Tick", slog.Int("tick", i+1))
		}
	}

	switch w.Fail {
	case FailPanic:
		panic(w.message())
	case FailError:
		fatalguard.Check(pkgerrors.New(w.message()))
	}

	_, _ = fmt.Fprintf(r.out, "checkpoint %s\n", w.Name)
	r.metrics.completed.Add(ctx, 1, attrs)
	log.InfoContext(ctx, "Worker completed")
}

// failOnPrimary panics on the calling goroutine inside a guarded region.
func failOnPrimary(msg string) {
	defer fatalguard.Recover()
	panic(pkgerrors.New(msg))
}

func newHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("POST /panic", func(w http.ResponseWriter, r *http.Request) {
		msg := r.URL.Query().Get("message")
		if msg == "" {
			msg = "panic requested"
		}
		panic(msg)
	})

	return httpserver.Use(mux, httpserver.MiddlewareFatalGuard())
}

// startServer serves the harness API on a guarded goroutine.
// The returned function stops the server.
func startServer(log *slog.Logger, addr string) func(ctx context.Context) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           newHandler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	fatalguard.Go("http-server", func() {
		log.Info("HTTP server listening", slog.String("addr", addr))
		err := srv.ListenAndServe()
		if err != http.ErrServerClosed { //nolint:errorlint
			fatalguard.Check(pkgerrors.Wrap(err, "HTTP server failed"))
		}
	})

	return srv.Shutdown
}

// syncWriter serializes writes from concurrent workers.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
