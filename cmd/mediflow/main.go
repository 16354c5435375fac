package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/singhaditya73/MediFlow/client"
	"github.com/singhaditya73/MediFlow/internal/config"
	"github.com/singhaditya73/MediFlow/internal/infra/database"
	"github.com/singhaditya73/MediFlow/internal/infra/gateway"
	"github.com/singhaditya73/MediFlow/internal/infra/repository"
	"github.com/singhaditya73/MediFlow/internal/mirror"
	"github.com/singhaditya73/MediFlow/internal/present/rest"
	"github.com/singhaditya73/MediFlow/internal/present/rest/middleware"
	"github.com/singhaditya73/MediFlow/internal/service"
	"github.com/singhaditya73/MediFlow/internal/telemetry"
	"github.com/singhaditya73/MediFlow/internal/usecase"
)

func main() {

	configPath := os.Getenv("MEDIFLOW_CONFIG")
	if configPath == "" {
		configPath = "config.yaml"
	}

	conf, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if conf.Server.EnableTrace {
		shutdown, err := telemetry.Setup(context.Background(), "mediflow", conf.Server.TraceEndpoint)
		if err != nil {
			slog.Error("failed to setup telemetry", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdown(ctx)
		}()
	}

	db, err := database.NewPostgres(conf.Server.PostgresDsn)
	if err != nil {
		slog.Error("failed to connect database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := database.MigratePostgres(db); err != nil {
		slog.Error("failed to migrate database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	rdb := database.NewRedis(conf.Server.RedisAddr, "", conf.Server.RedisDB)

	ledger, err := gateway.NewLedgerGateway(conf.Ledger)
	if err != nil {
		slog.Error("failed to connect ledger", slog.String("error", err.Error()))
		os.Exit(1)
	}

	grantRepo := repository.NewGrantRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	recordRepo := repository.NewRecordRepository(db)

	presentation := mirror.NewMirror(10*time.Minute, 15*time.Minute)
	contentStore := client.New(conf.Server.IpfsAPIAddr)

	signal := service.NewSignalService(rdb)
	auth := service.NewAuthService()

	accessUsecase := usecase.NewAccessUsecase(ledger, grantRepo, auditRepo, recordRepo, presentation, signal)
	auditUsecase := usecase.NewAuditUsecase(ledger, auditRepo, recordRepo)
	recordUsecase := usecase.NewRecordUsecase(ledger, recordRepo, grantRepo, auditRepo, presentation, signal, contentStore)

	// countdown displays tick every second; keep derived statuses honest at
	// the same cadence
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for now := range ticker.C {
			presentation.PruneExpired(now)
		}
	}()

	e := echo.New()
	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	if conf.Server.EnableTrace {
		e.Use(otelecho.Middleware("mediflow"))
	}

	authMiddleware := middleware.NewAuthMiddleware(auth)
	e.Use(authMiddleware.IdentifyIdentity)

	handler := rest.NewHandler(accessUsecase, auditUsecase, recordUsecase, signal)
	handler.RegisterRoutes(e)

	e.Logger.Fatal(e.Start(conf.Server.ListenAddr))
}
