package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/familyspend/ExpenseTracker/internal/audit"
	"github.com/familyspend/ExpenseTracker/internal/auth"
	"github.com/familyspend/ExpenseTracker/internal/config"
	database "github.com/familyspend/ExpenseTracker/internal/db"
	emailService "github.com/familyspend/ExpenseTracker/internal/email"
	"github.com/familyspend/ExpenseTracker/internal/finance/application"
	"github.com/familyspend/ExpenseTracker/internal/finance/infrastructure"
	"github.com/familyspend/ExpenseTracker/internal/finance/interfaces"
	"github.com/familyspend/ExpenseTracker/internal/log"
	"github.com/familyspend/ExpenseTracker/internal/user"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file (optional)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("missing configuration, update to start server: %w", err)
	}

	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.Log.Level),
		Format:    cfg.Log.Format,
		Component: log.ComponentApp,
		Output:    os.Stdout,
	})
	log.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := database.RunMigrations(cfg.Database.URL); err != nil {
		return fmt.Errorf("could not migrate database: %w", err)
	}
	dbService, err := database.NewDBService(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("could not initialize database: %w", err)
	}
	defer dbService.Close()

	auditStore := audit.NewPostgresStore(dbService.DB)
	stores := []audit.Store{auditStore}
	if cfg.Audit.AMQPURL != "" {
		publisher, err := audit.NewAMQPPublisher(cfg.Audit.AMQPURL, cfg.Audit.AMQPExchange, logger)
		if err != nil {
			logger.Warn("AMQP publisher unavailable, access logs go to the database only", log.FieldError, err)
		} else {
			defer publisher.Close()
			stores = append(stores, publisher)
		}
	}
	recorder := audit.NewRecorder(cfg.Audit.QueueSize, logger, stores...)
	defer recorder.Close()

	mailer, err := emailService.NewService(cfg.Email, logger)
	if err != nil {
		return fmt.Errorf("could not initialize email service: %w", err)
	}
	defer mailer.Close()

	userService := user.NewUserService(user.NewUserRepository(dbService.DB), user.NewCredentials(cfg.Security.BcryptCost), logger)
	codec := auth.NewSessionCodec(cfg.Session.Secret, cfg.Session.Duration)
	authService := auth.NewAuthService(userService, auth.NewResetRepository(dbService.DB), codec, auth.NewResetCodes(), mailer, logger)
	cookies := auth.CookieConfig{Secure: cfg.Session.CookieSecure}
	gate := auth.NewGate(authService, cookies, logger)
	authHandler := auth.NewHandler(authService, gate, cookies, recorder, auditStore)

	categoryService := application.NewCategoryService(infrastructure.NewCategoryRepository(dbService.DB), logger)
	if err := categoryService.SyncPredefined(ctx); err != nil {
		return fmt.Errorf("could not sync predefined categories: %w", err)
	}
	expenseService := application.NewExpenseService(infrastructure.NewExpenseRepository(dbService.DB), categoryService, logger)
	statisticsService := application.NewStatisticsService(infrastructure.NewStatisticsRepository(dbService.DB), logger)

	server := NewServer(
		logger,
		dbService,
		gate,
		authHandler,
		interfaces.NewCategoryHandler(categoryService, recorder),
		interfaces.NewExpenseHandler(expenseService, recorder),
		interfaces.NewStatisticsHandler(statisticsService),
	)
	server.RegisterRoutes()

	scheduler, err := StartScheduler(audit.NewRetentionJob(auditStore, cfg.Audit.RetentionDays, logger), cfg.Audit.CleanupSchedule)
	if err != nil {
		return fmt.Errorf("scheduler didn't start: %w", err)
	}
	defer func() {
		<-scheduler.Stop().Done()
	}()

	httpServer := &http.Server{
		Addr:           cfg.Address(),
		Handler:        server.Handler(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Server starting", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received, stopping server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}

// StartScheduler runs the access log retention job on spec.
func StartScheduler(job *audit.RetentionJob, spec string) (*cron.Cron, error) {
	c := cron.New()
	if _, err := job.Schedule(c, spec); err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}
