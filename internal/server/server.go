// Package server wires the attendance bot together and runs its listeners.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/slack-go/slack"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/lewisedginton/attendance_bot/internal/bot"
	appconfig "github.com/lewisedginton/attendance_bot/internal/config"
	slackconn "github.com/lewisedginton/attendance_bot/internal/connectors/slack"
	"github.com/lewisedginton/attendance_bot/internal/monitoring"
	"github.com/lewisedginton/attendance_bot/pkg/logger"
	"github.com/lewisedginton/attendance_bot/pkg/metrics"
)

const shutdownTimeout = 15 * time.Second

// Server encapsulates all the bot components and lifecycle management
type Server struct {
	cfg       *appconfig.AppConfig
	log       logger.Logger
	app       *App
	processor *bot.Processor
	slack     *slackconn.Connector
	health    *monitoring.HealthMonitor
	api       http.Handler
}

// New creates a new Server instance with all components initialized
func New(ctx context.Context, cfg *appconfig.AppConfig, log logger.Logger) (*Server, error) {
	m := metrics.NewMetrics(cfg.Metrics.EnableHTTPMetrics, cfg.Health.GRPCPort != 0, log)

	app, err := NewApp(ctx, cfg, log, AppOptions{Migrate: true, Metrics: m})
	if err != nil {
		return nil, err
	}
	s := &Server{cfg: cfg, log: log, app: app}

	var directory bot.UserDirectory
	var client *slack.Client
	if cfg.Slack.Enabled() {
		c, err := slackconn.NewClient(cfg.Slack)
		if err != nil {
			_ = app.Close()
			return nil, fmt.Errorf("failed to create Slack client: %w", err)
		}
		client = c
		directory = slackconn.NewDirectory(c, slackconn.DefaultProfileTTL)
	}

	s.processor = bot.NewProcessor(app.Classifier, app.Extractor, directory, app.Reconciler, log, m, app.Location)

	if client != nil {
		s.slack, err = slackconn.NewConnector(client, cfg.Slack, slackconn.OptionsFromConfig(cfg.Attendance),
			s.processor, app.Queries, log)
		if err != nil {
			_ = app.Close()
			return nil, fmt.Errorf("failed to create Slack connector: %w", err)
		}
	}

	hc := monitoring.Config{
		Logger:           log,
		Version:          cfg.Version,
		Store:            app.Store,
		Timeout:          cfg.Health.Timeout,
		FailureThreshold: cfg.Health.FailureThreshold,
	}
	if s.slack != nil {
		hc.Slack = s.slack
	}
	if cfg.LLM.Provider == appconfig.ProviderWebhook {
		hc.WebhookURL = cfg.LLM.Webhook.URL
	}
	s.health = monitoring.NewHealthMonitor(hc)

	s.api = NewAPI(APIConfig{
		Classifier:     app.Classifier,
		Extractor:      app.Extractor,
		Queries:        app.Queries,
		Health:         s.health,
		Logger:         log,
		Metrics:        m,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		Timeout:        cfg.HTTP.WriteTimeout,
	})
	return s, nil
}

// Run starts every enabled listener and blocks until ctx is cancelled, a
// SIGINT/SIGTERM arrives, or one of them fails.
func (s *Server) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer func() {
		if err := s.app.Close(); err != nil {
			s.log.Warn("Failed to close attendance store", logger.ErrorField(err))
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	enabled := 0

	if s.cfg.HTTP.Enabled {
		enabled++
		g.Go(func() error { return s.serveHTTP(gctx) })
	}
	if s.cfg.Metrics.ExposeMetrics {
		g.Go(func() error { return s.app.Metrics.Listen(gctx, s.cfg.Metrics.Port) })
	}
	if s.cfg.Health.GRPCPort != 0 {
		g.Go(func() error { return s.serveGRPC(gctx) })
	}

	if s.slack != nil {
		enabled++
		g.Go(func() error {
			if info, err := s.slack.GetBotInfo(gctx); err != nil {
				s.log.Warn("Failed to get Slack bot info", logger.ErrorField(err))
			} else {
				s.log.Info("Slack bot identified", logger.StringField("bot_id", info.ID), logger.StringField("bot_name", info.Name))
			}
			err := s.slack.Start(gctx)
			if stopErr := s.slack.Stop(); stopErr != nil {
				s.log.Warn("Slack connector stop error", logger.ErrorField(stopErr))
			}
			if err != nil {
				return fmt.Errorf("slack connector: %w", err)
			}
			return nil
		})
	} else {
		s.log.Info("Slack connector disabled (missing SLACK_BOT_TOKEN or SLACK_APP_TOKEN)")
	}

	if enabled == 0 {
		stop()
		_ = g.Wait()
		return errors.New("nothing to run: enable the HTTP API or configure Slack tokens")
	}

	g.Go(func() error {
		<-gctx.Done()
		s.log.Info("Shutting down")
		s.health.MarkShuttingDown()
		return nil
	})

	err := g.Wait()
	s.log.Info("All components stopped")
	return err
}

func (s *Server) serveHTTP(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.HTTP.Port),
		Handler:           s.api,
		ReadTimeout:       s.cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.cfg.HTTP.WriteTimeout,
		IdleTimeout:       s.cfg.HTTP.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("API server listening", logger.IntField("port", s.cfg.HTTP.Port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("api server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api server shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.log.Info("API server stopped")
	return nil
}

func (s *Server) serveGRPC(ctx context.Context) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.Health.GRPCPort))
	if err != nil {
		return fmt.Errorf("grpc health listen: %w", err)
	}

	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(
		s.log.GrpcRequestsInterceptor,
		s.app.Metrics.GrpcRequestsInterceptor,
	))
	updater := s.health.Checker().RegisterWithGRPC(srv, s.cfg.Health.GRPCInterval)
	go updater.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("gRPC health server listening", logger.IntField("port", s.cfg.Health.GRPCPort))
		errCh <- srv.Serve(lis)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("grpc health server: %w", err)
	case <-ctx.Done():
		srv.GracefulStop()
		return nil
	}
}

// Handler exposes the API router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.api }
