/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package server wires configuration, storage, the planner, delivery
// and the HTTP API into one process.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/muninn/internal/api"
	"github.com/friendsincode/muninn/internal/config"
	"github.com/friendsincode/muninn/internal/db"
	"github.com/friendsincode/muninn/internal/delivery"
	"github.com/friendsincode/muninn/internal/eventbus"
	"github.com/friendsincode/muninn/internal/events"
	"github.com/friendsincode/muninn/internal/leadership"
	"github.com/friendsincode/muninn/internal/planner"
	"github.com/friendsincode/muninn/internal/quiethours"
	"github.com/friendsincode/muninn/internal/sampler"
	"github.com/friendsincode/muninn/internal/schedule"
	"github.com/friendsincode/muninn/internal/telemetry"
)

// Server bundles HTTP and supporting services.
type Server struct {
	cfg        *config.Config
	logger     zerolog.Logger
	router     chi.Router
	httpServer *http.Server
	closers    []func() error

	db                 *gorm.DB
	bus                *events.Bus
	natsBus            *eventbus.NATSBus
	quiet              *quiethours.Service
	planner            *planner.Service
	leaderAwarePlanner *planner.LeaderAwarePlanner
	delivery           *delivery.Service
	api                *api.API

	metricsServer *http.Server

	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
}

// New constructs the server and wires dependencies.
func New(cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(telemetry.TracingMiddleware)
	router.Use(telemetry.MetricsMiddleware)
	router.Use(middleware.Timeout(60 * time.Second))

	srv := &Server{
		cfg:    cfg,
		logger: logger,
		router: router,
	}

	if err := srv.initServices(); err != nil {
		srv.Close()
		return nil, err
	}

	srv.configureRoutes()

	srv.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTPBind, cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	srv.startBackgroundWorkers()

	return srv, nil
}

func (s *Server) initServices() error {
	database, err := db.Connect(s.cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	s.db = database
	s.DeferClose(func() error { return db.Close(database) })

	s.bus = events.NewBus()

	if s.cfg.NATSEnabled {
		natsCfg := eventbus.DefaultNATSConfig()
		natsCfg.URL = s.cfg.NATSURL
		natsBus, err := eventbus.NewNATSBus(natsCfg, s.bus, s.logger)
		if err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		if err := natsBus.Mirror(
			events.EventReminderScheduled,
			events.EventReminderDelivered,
			events.EventReminderDeliveryFailed,
			events.EventPoolUpdated,
			events.EventScheduleRefresh,
		); err != nil {
			return fmt.Errorf("mirror nats events: %w", err)
		}
		s.natsBus = natsBus
		s.DeferClose(natsBus.Close)
	}

	// Quiet hours are optional. The engine takes a nil oracle when the
	// window is disabled.
	var oracle schedule.QuietOracle
	if s.cfg.QuietHoursEnabled {
		window, err := s.cfg.QuietWindow()
		if err != nil {
			return fmt.Errorf("quiet hours window: %w", err)
		}
		s.quiet = quiethours.NewService(window, s.bus, s.logger)
		oracle = s.quiet
	}

	// One seeded source is shared by the planner loop and HTTP
	// handlers, so it must be serialized.
	rng := sampler.NewLockedSource(rand.New(rand.NewSource(time.Now().UnixNano())))
	engine := schedule.New(s.cfg.ScheduleConfig(), oracle, rng, s.logger)

	s.planner = planner.New(s.db, engine, s.bus, rng, planner.Options{
		Interval:   s.cfg.PlannerInterval,
		BufferSize: s.cfg.PlannerBufferSize,
		BatchBias:  s.cfg.BatchFavouriteBias,
	}, s.logger)

	if s.cfg.LeaderElectionEnabled {
		electionConfig := leadership.ElectionConfig{
			RedisAddr:       s.cfg.RedisAddr,
			RedisPassword:   s.cfg.RedisPassword,
			RedisDB:         s.cfg.RedisDB,
			ElectionKey:     "muninn:leader:planner",
			LeaseDuration:   15 * time.Second,
			RenewalInterval: 5 * time.Second,
			RetryInterval:   2 * time.Second,
			InstanceID:      s.cfg.InstanceID,
		}

		election, err := leadership.NewElection(electionConfig, s.logger)
		if err != nil {
			return fmt.Errorf("create leader election: %w", err)
		}

		s.leaderAwarePlanner = planner.NewLeaderAware(s.planner, election, s.logger)
		s.DeferClose(func() error { return s.leaderAwarePlanner.Stop() })

		s.logger.Info().
			Str("redis_addr", s.cfg.RedisAddr).
			Str("instance_id", electionConfig.InstanceID).
			Msg("leader election enabled for planner")
	}

	deliveryCfg := delivery.ConfigFromEnv()
	channel := delivery.ChannelFromConfig(deliveryCfg, s.logger)
	s.delivery = delivery.NewService(s.db, s.bus, channel, deliveryCfg, s.logger)

	var jwtSecret []byte
	if s.cfg.JWTSigningKey != "" {
		jwtSecret = []byte(s.cfg.JWTSigningKey)
	}
	s.api = api.New(s.db, jwtSecret, s.planner, s.bus, s.cfg.FavouriteBias, rng, s.logger)

	if s.cfg.MetricsBind != "" {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", telemetry.Handler())
		s.metricsServer = &http.Server{
			Addr:              s.cfg.MetricsBind,
			Handler:           metricsMux,
			ReadHeaderTimeout: 10 * time.Second,
		}
	}

	return nil
}

func (s *Server) configureRoutes() {
	s.router.Get("/healthz", s.handleHealthz)

	s.router.Handle("/metrics", telemetry.Handler())

	s.api.Routes(s.router)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{"status": "ok"}
	if s.leaderAwarePlanner != nil {
		response["leader"] = s.leaderAwarePlanner.IsLeader()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}

// HTTPServer exposes the underlying net/http server.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Planner exposes the planner service.
func (s *Server) Planner() *planner.Service {
	return s.planner
}

func (s *Server) startBackgroundWorkers() {
	ctx, cancel := context.WithCancel(context.Background())
	s.bgCancel = cancel

	if s.leaderAwarePlanner != nil {
		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			if err := s.leaderAwarePlanner.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error().Err(err).Msg("leader-aware planner exited")
			}
		}()
	} else {
		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			if err := s.planner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error().Err(err).Msg("planner exited")
			}
		}()
	}

	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		s.delivery.Start(ctx)
	}()

	if s.metricsServer != nil {
		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			s.logger.Info().Str("addr", s.metricsServer.Addr).Msg("metrics server listening")
			if err := s.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.Error().Err(err).Msg("metrics server exited")
			}
		}()
		s.DeferClose(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return s.metricsServer.Shutdown(ctx)
		})
	}
}

func (s *Server) stopBackgroundWorkers() {
	if s.bgCancel == nil {
		return
	}
	s.bgCancel()
	s.bgWG.Wait()
	s.bgCancel = nil
}

// Close releases owned resources in reverse order.
func (s *Server) Close() error {
	s.stopBackgroundWorkers()
	if s.quiet != nil {
		s.quiet.CancelTimers()
	}
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// DeferClose registers a cleanup hook.
func (s *Server) DeferClose(fn func() error) {
	s.closers = append(s.closers, fn)
}
