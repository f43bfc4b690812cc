package server

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/feltpoker/felt/internal/game"
)

// Server wires one table together: a listener, the reactor that owns
// every connection, the driver that owns the game, and the two channels
// between them.
type Server struct {
	cfg      *Config
	log      *log.Logger
	clock    quartz.Clock
	rng      *rand.Rand
	registry *prometheus.Registry
	metrics  *Metrics
	listener net.Listener
}

func New(cfg *Config, logger *log.Logger, clock quartz.Clock, rng *rand.Rand) *Server {
	registry := prometheus.NewRegistry()
	return &Server{
		cfg:      cfg,
		log:      logger,
		clock:    clock,
		rng:      rng,
		registry: registry,
		metrics:  NewMetrics(registry),
	}
}

// Listen binds the configured address. Run binds on demand; tests that
// bind port zero call this first and read Addr.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.cfg.Server.Bind)
	if err != nil {
		return fmt.Errorf("binding %s: %w", s.cfg.Server.Bind, err)
	}
	s.listener = ln
	return nil
}

// Addr is the bound listener address, nil before Listen.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Run serves until the context ends. The reactor takes over the
// listener and closes it on shutdown.
func (s *Server) Run(ctx context.Context) error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	shared := s.cfg.Server.MaxEventsPerUser * s.cfg.Game.MaxUsers
	commands := make(chan Command, shared)
	outbound := make(chan Outbound, shared)

	tokens := NewTokenManager(s.clock)
	table := game.New(s.cfg.Game.Rules(), s.rng)
	reactor := NewReactor(s.cfg, s.listener, tokens, commands, outbound, s.log, s.clock, s.metrics)
	driver := NewDriver(s.cfg, table, commands, outbound, s.log, s.clock, s.metrics)

	grp, ctx := errgroup.WithContext(ctx)
	grp.Go(func() error { return reactor.Run(ctx) })
	grp.Go(func() error { return driver.Run(ctx) })
	if s.cfg.Server.MetricsBind != "" {
		grp.Go(func() error { return s.serveMetrics(ctx) })
	}
	return grp.Wait()
}

func (s *Server) serveMetrics(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: s.cfg.Server.MetricsBind, Handler: mux}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info("metrics listening", "addr", s.cfg.Server.MetricsBind)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
