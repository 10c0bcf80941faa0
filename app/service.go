// Package app wires the service from configuration: stores, providers,
// forecast models, the batch scheduler and the HTTP API.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/parkcast/parkcast/api/parking"
	"github.com/parkcast/parkcast/config"
	"github.com/parkcast/parkcast/core/forecast"
	coremetrics "github.com/parkcast/parkcast/core/metrics"
	"github.com/parkcast/parkcast/core/plan"
	"github.com/parkcast/parkcast/infra/ingest"
	"github.com/parkcast/parkcast/infra/logger"
	"github.com/parkcast/parkcast/infra/metrics"
	"github.com/parkcast/parkcast/infra/opencage"
	"github.com/parkcast/parkcast/infra/openroute"
	"github.com/parkcast/parkcast/infra/postgres"
	"github.com/parkcast/parkcast/internal/eventbus"
)

// Service owns the process-lifetime dependencies.
type Service struct {
	cfg       *config.Config
	store     *postgres.Store
	generator *forecast.Generator
	points    *forecast.PointService
	collector *ingest.Collector
	cron      *cron.Cron
	bus       *eventbus.Bus[forecast.Summary]
	server    *http.Server
	promSink  *metrics.PromSink
	log       logger.Logger
}

// New builds the service from configuration.
func New(ctx context.Context, cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	st, err := postgres.Connect(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}

	var sinks []coremetrics.Sink
	var promSink *metrics.PromSink
	if cfg.Metrics.PrometheusEnabled {
		promSink, err = metrics.NewPromSink()
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, promSink)
	}
	if cfg.Metrics.InfluxEnabled {
		sinks = append(sinks, metrics.NewInfluxSinkWithFallback(
			cfg.Metrics.InfluxURL, cfg.Metrics.InfluxToken, cfg.Metrics.InfluxOrg, cfg.Metrics.InfluxBucket))
	}
	var sink coremetrics.Sink = coremetrics.NopSink{}
	if len(sinks) == 1 {
		sink = sinks[0]
	} else if len(sinks) > 1 {
		sink = metrics.NewMultiSink(sinks...)
	}

	models := forecast.NewModelRegistry(st)
	generator := forecast.NewGenerator(st, st, models, nil, logger.New("generator"), sink, cfg.Forecast.UnitTimeout())
	points := forecast.NewPointService(st, st, nil, sink, cfg.HTTP.Timeout())
	planner := plan.NewPlanner(nil)

	matrix := openroute.NewClient(cfg.Providers.OpenRoute.URL, cfg.Providers.OpenRoute.APIKey, cfg.Providers.OpenRoute.Timeout())
	geocoder := opencage.NewClient(cfg.Providers.OpenCage.URL, cfg.Providers.OpenCage.APIKey, cfg.Providers.OpenCage.Timeout())

	mux := http.NewServeMux()
	mux.Handle("/api/forecast/points", parking.NewPointsHandler(points))
	mux.Handle("/api/locations/{location_id}/recommendations", parking.NewRecommendationsHandler(planner, points))
	mux.Handle("/api/locations/{location_id}/calculate", parking.NewCalculateHandler(st, matrix, geocoder))
	mux.Handle("/api/cron/forecast", parking.NewGenerateHandler(generator, cfg.HTTP.APIKey))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	svc := &Service{
		cfg:       cfg,
		store:     st,
		generator: generator,
		points:    points,
		bus:       eventbus.New[forecast.Summary](),
		server:    &http.Server{Addr: cfg.HTTP.Addr, Handler: mux},
		promSink:  promSink,
		log:       logg,
	}

	if cfg.Ingest.Enabled {
		svc.collector = ingest.NewCollector(cfg.Ingest, st, logger.New("ingest"), sink)
	}
	if cfg.Forecast.Cron != "" {
		svc.cron = cron.New()
		if _, err := svc.cron.AddFunc(cfg.Forecast.Cron, svc.scheduledRun); err != nil {
			st.Close()
			return nil, fmt.Errorf("forecast cron %q: %w", cfg.Forecast.Cron, err)
		}
	}
	return svc, nil
}

// Run starts the HTTP server, the scheduler and the ingest collector and
// blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	summaries := s.bus.Subscribe()
	go func() {
		for summary := range summaries {
			s.log.Infof("forecast run: model=%s/%s locations=%d lots=%d slots=%d days=%d",
				summary.Model, summary.Version, summary.Locations, summary.Lots, summary.Slots, summary.DaysForecasted)
		}
	}()

	if s.collector != nil {
		if err := s.collector.Start(ctx); err != nil {
			return fmt.Errorf("ingest: %w", err)
		}
	}
	if s.cron != nil {
		s.cron.Start()
	}
	if s.promSink != nil {
		go func() {
			if err := metrics.StartPromServer(ctx, s.cfg.Metrics.PrometheusPort, s.promSink.Registry()); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("listening on %s", s.cfg.HTTP.Addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}

// scheduledRun executes one generation pass with the configured defaults.
func (s *Service) scheduledRun() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()
	summary, err := s.generator.Run(ctx, forecast.Params{
		IntervalMin:  s.cfg.Forecast.IntervalMin,
		Model:        s.cfg.Forecast.Model,
		ModelVersion: s.cfg.Forecast.ModelVersion,
	})
	if err != nil {
		s.log.Errorf("scheduled forecast run: %v", err)
		return
	}
	s.bus.Publish(summary)
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	if s.cron != nil {
		s.cron.Stop()
	}
	if s.collector != nil {
		s.collector.Stop()
	}
	s.bus.Close()
	s.store.Close()
	return nil
}
