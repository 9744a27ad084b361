package server

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"gorm.io/gorm"

	"github.com/mailbridge/syncstack/api"
	"github.com/mailbridge/syncstack/config"
	"github.com/mailbridge/syncstack/internal/logger"
	"github.com/mailbridge/syncstack/internal/repository"
	"github.com/mailbridge/syncstack/internal/syncengine"
	"github.com/mailbridge/syncstack/internal/tracing"
	"github.com/mailbridge/syncstack/services"
	"github.com/mailbridge/syncstack/services/webhook"
)

type Server struct {
	config       *config.Config
	log          logger.Logger
	httpServer   *http.Server
	router       *gin.Engine
	services     *services.Services
	repositories *repository.Repositories
	tracerCloser io.Closer
}

func NewServer(cfg *config.Config, mailstackDB *gorm.DB) (*Server, error) {
	appLogger := logger.NewAppLogger(cfg.Logger)
	appLogger.InitLogger()

	tracer, closer, err := tracing.NewJaegerTracer(cfg.Tracing, appLogger)
	if err != nil {
		log.Fatalf("Could not initialize jaeger tracer: %s", err.Error())
	}
	opentracing.SetGlobalTracer(tracer)

	repos := repository.InitRepositories(mailstackDB)

	workerID := cfg.SyncEngineConfig.WorkerID
	if workerID == "" {
		hostname, _ := os.Hostname()
		workerID = hostname
	}

	syncEngine := syncengine.NewEngine(workerID, mailstackDB, repos, cfg.SyncEngineConfig, appLogger)
	dispatcher := webhook.NewDispatcher(repos.WebhookSubscriptionRepository, repos.WebhookDeliveryRepository, cfg.WebhookConfig, appLogger)

	svcs := services.InitServices(syncEngine, dispatcher)

	gin.SetMode(gin.ReleaseMode)
	router := gin.Default()

	return &Server{
		config:       cfg,
		log:          appLogger,
		router:       router,
		services:     svcs,
		repositories: repos,
		tracerCloser: closer,
		httpServer: &http.Server{
			Addr:    ":" + cfg.AppConfig.APIPort,
			Handler: router,
		},
	}, nil
}

func (s *Server) Initialize(ctx context.Context) error {
	api.RegisterRoutes(ctx, s.router, s.services, s.repositories, s.config)
	return nil
}

func (s *Server) recoverWithJaeger(name string) {
	if r := recover(); r != nil {
		span := opentracing.GlobalTracer().StartSpan(fmt.Sprintf("panic.%s", name))
		defer span.Finish()
		ext.Error.Set(span, true)
		span.LogKV(
			"event", "panic",
			"process", name,
			"error", fmt.Sprintf("%v", r),
			"stack", string(debug.Stack()),
		)
		s.log.Errorf("panic in %s: %v\n%s", name, r, debug.Stack())
	}
}

func (s *Server) wrapGoroutine(name string, fn func()) {
	defer s.recoverWithJaeger(name)
	fn()
}

func (s *Server) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Initialize(ctx); err != nil {
		return err
	}

	s.log.Info("starting sync engine...")
	s.wrapGoroutine("sync_engine", func() {
		if err := s.services.SyncEngine.Start(ctx); err != nil {
			s.log.Errorf("sync engine error: %v", err)
		}
	})

	s.log.Info("starting webhook dispatcher...")
	s.wrapGoroutine("webhook_dispatcher", func() {
		if err := s.services.WebhookDispatcher.Start(ctx); err != nil {
			s.log.Errorf("webhook dispatcher error: %v", err)
		}
	})

	go s.wrapGoroutine("http_server", func() {
		s.log.Infof("starting HTTP server on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Errorf("HTTP server error: %v", err)
		}
	})

	s.log.Info("syncstack is now running")
	return s.waitForShutdown()
}

func (s *Server) waitForShutdown() error {
	defer s.recoverWithJaeger("shutdown")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	s.log.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer shutdownCancel()

	if s.tracerCloser != nil {
		s.tracerCloser.Close()
	}

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.log.Errorf("HTTP server shutdown error: %v", err)
	}

	if err := s.services.WebhookDispatcher.Stop(shutdownCtx); err != nil {
		s.log.Errorf("webhook dispatcher shutdown error: %v", err)
	}

	stopDone := make(chan struct{})
	go s.wrapGoroutine("sync_engine_shutdown", func() {
		defer close(stopDone)
		if err := s.services.SyncEngine.Stop(shutdownCtx); err != nil {
			s.log.Errorf("sync engine shutdown error: %v", err)
		}
	})

	select {
	case <-stopDone:
		s.log.Info("sync engine stopped gracefully")
	case <-time.After(20 * time.Second):
		s.log.Warnf("sync engine stop timed out, forcing exit")
	}

	return nil
}
