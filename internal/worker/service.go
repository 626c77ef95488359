package worker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/danmuck/dprint-plugin-csharpier/internal/config"
	"github.com/danmuck/dprint-plugin-csharpier/internal/formatter"
	"github.com/danmuck/dprint-plugin-csharpier/internal/liveness"
	"github.com/danmuck/dprint-plugin-csharpier/internal/logging"
	"github.com/danmuck/dprint-plugin-csharpier/internal/observability"
	"github.com/danmuck/dprint-plugin-csharpier/internal/protocol"
	"github.com/danmuck/dprint-plugin-csharpier/internal/protocol/frame"
)

const metricsShutdownTimeout = 5 * time.Second

// ServiceConfig configures one worker process.
type ServiceConfig struct {
	Worker    config.WorkerConfig
	ParentPID int32
	Version   string

	// Transformer overrides the exec engine built from Worker.Engine.
	Transformer formatter.Transformer
}

// Service runs the worker lifecycle: schema handshake, dispatcher, liveness
// monitor and the optional metrics listener.
type Service struct {
	cfg        ServiceConfig
	id         string
	log        zerolog.Logger
	metrics    *observability.Metrics
	dispatcher *Dispatcher
	monitor    *liveness.Monitor
}

func NewService(cfg ServiceConfig) (*Service, error) {
	id := uuid.NewString()
	componentLogger := func(name string) zerolog.Logger {
		return logging.Component(name).With().Str("worker_id", id).Logger()
	}
	logger := componentLogger("worker")

	engine := cfg.Transformer
	if engine == nil {
		engine = formatter.NewExecTransformer(cfg.Worker.Engine.Command, cfg.Worker.Engine.Args, cfg.Worker.Engine.Dir)
	}
	metrics := observability.NewMetrics()
	dispatcher, err := NewDispatcher(DispatcherConfig{
		Transformer:          engine,
		Metrics:              metrics,
		Logger:               componentLogger("dispatcher"),
		Version:              cfg.Version,
		MaxConcurrentFormats: cfg.Worker.Limits.MaxConcurrentFormats,
		DrainTimeout:         cfg.Worker.Limits.DrainTimeout,
	})
	if err != nil {
		return nil, err
	}
	return &Service{
		cfg:        cfg,
		id:         id,
		log:        logger,
		metrics:    metrics,
		dispatcher: dispatcher,
		monitor: liveness.NewMonitor(
			cfg.ParentPID,
			cfg.Worker.Liveness.PollInterval,
			componentLogger("liveness"),
		),
	}, nil
}

func (s *Service) ID() string {
	return s.id
}

func (s *Service) Metrics() *observability.Metrics {
	return s.metrics
}

// Run blocks until the host shuts the worker down, input ends, or ctx is done.
func (s *Service) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	r := frame.NewReader(bufio.NewReader(in), s.cfg.Worker.FrameLimits())
	w := bufio.NewWriter(out)

	if err := protocol.EstablishSchema(r, w); err != nil {
		return err
	}
	s.log.Info().
		Str("version", s.cfg.Version).
		Int32("parent_pid", s.cfg.ParentPID).
		Str("max_variable_bytes", s.cfg.Worker.Limits.MaxVariableBytes.String()).
		Msg("worker ready")

	g, gctx := errgroup.WithContext(ctx)
	serveCtx, stop := context.WithCancel(gctx)
	defer stop()

	g.Go(func() error {
		defer stop()
		return s.dispatcher.Run(gctx, r, w)
	})
	g.Go(func() error {
		return s.monitor.Run(serveCtx)
	})
	if addr := strings.TrimSpace(s.cfg.Worker.Metrics.ListenAddr); addr != "" {
		s.serveMetrics(serveCtx, g, addr)
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		err = nil
	}
	s.log.Info().Err(err).Msg("worker stopped")
	return err
}

func (s *Service) routes() http.Handler {
	r := chi.NewRouter()
	r.Handle("/metrics", s.metrics.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return r
}

func (s *Service) serveMetrics(ctx context.Context, g *errgroup.Group, addr string) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	g.Go(func() error {
		s.log.Info().Str("addr", addr).Msg("metrics listener started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("worker: metrics listener: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}
