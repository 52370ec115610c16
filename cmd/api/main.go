package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/service-queue/internal/api/http"
	"github.com/spec-kit/service-queue/internal/api/http/handlers"
	"github.com/spec-kit/service-queue/internal/auth"
	"github.com/spec-kit/service-queue/internal/blob"
	"github.com/spec-kit/service-queue/internal/config"
	"github.com/spec-kit/service-queue/internal/email"
	"github.com/spec-kit/service-queue/internal/events"
	"github.com/spec-kit/service-queue/internal/observability"
	"github.com/spec-kit/service-queue/internal/persistence"
	"github.com/spec-kit/service-queue/internal/repository"
	"github.com/spec-kit/service-queue/internal/service"
	"github.com/spec-kit/service-queue/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	companyRepo := repository.NewCompanyRepository(pool)
	requestRepo := repository.NewRequestRepository(pool)
	noteRepo := repository.NewNoteRepository(pool)
	attachmentRepo := repository.NewAttachmentRepository(pool)
	changeRepo := repository.NewAssignmentChangeRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)
	activityRepo := repository.NewActivityLogRepository(pool)
	resetRepo := repository.NewPasswordResetRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()

	var sender email.Sender = email.NopSender{}
	if cfg.SMTP.Enabled {
		sender = email.NewSMTPSender(cfg.SMTP)
	}
	mailQueue := email.NewQueue(sender, logger, cfg.Fanout.MailQueueSize)

	blobClient := blob.NewDiskClient(cfg.Blob.BaseDir, cfg.Blob.BaseURL)

	requestService := service.NewRequestService(service.RequestDependencies{
		RequestRepo:    requestRepo,
		NoteRepo:       noteRepo,
		AttachmentRepo: attachmentRepo,
		UserRepo:       userRepo,
		BlobClient:     blobClient,
		Dispatcher:     dispatcher,
		Logger:         logger,
		UploadTimeout:  cfg.Fanout.UploadTimeout(),
	})
	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		RequestRepo: requestRepo,
		ChangeRepo:  changeRepo,
		UserRepo:    userRepo,
		Dispatcher:  dispatcher,
	})
	fanoutService := service.NewFanoutService(service.FanoutDependencies{
		RequestRepo:      requestRepo,
		UserRepo:         userRepo,
		NotificationRepo: notificationRepo,
		ActivityRepo:     activityRepo,
		Mailer:           mailQueue,
		Logger:           logger,
	})
	inboxService := service.NewInboxService(service.InboxDependencies{
		NotificationRepo: notificationRepo,
		ActivityRepo:     activityRepo,
		Cache:            redis.Client,
		Logger:           logger,
	})
	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:          userRepo,
		CompanyRepo:       companyRepo,
		PasswordResetRepo: resetRepo,
		Mailer:            mailQueue,
	})
	adminService := service.NewAdminService(*cfg, service.AdminDependencies{
		UserRepo:    userRepo,
		CompanyRepo: companyRepo,
		Dispatcher:  dispatcher,
	})

	worker.StartFanout(ctx, dispatcher, fanoutService, mailQueue)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: cfg.App.Env == "production",
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:            handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:              handlers.NewAuthHandler(authService),
		Requests:          handlers.NewRequestsHandler(requestService),
		AssignmentChanges: handlers.NewAssignmentChangesHandler(assignmentService),
		Notifications:     handlers.NewNotificationsHandler(inboxService),
		Admin:             handlers.NewAdminHandler(adminService),
		AuthMiddleware:    authMiddleware,
		BlobDir:           cfg.Blob.BaseDir,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
	mailQueue.Close()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
