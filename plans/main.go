package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mejora-labs/mejora-go/internal/domain"
	"github.com/mejora-labs/mejora-go/internal/platform/auditlog"
	"github.com/mejora-labs/mejora-go/internal/platform/auth"
	"github.com/mejora-labs/mejora-go/internal/platform/env"
	"github.com/mejora-labs/mejora-go/internal/platform/httpserver"
	"github.com/mejora-labs/mejora-go/internal/platform/metrics"
	"github.com/mejora-labs/mejora-go/internal/platform/objectstore"
	"github.com/mejora-labs/mejora-go/internal/platform/postgres"
	repopg "github.com/mejora-labs/mejora-go/internal/repo/postgres"
	"github.com/mejora-labs/mejora-go/internal/service/workflow"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx := context.Background()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := env.String("PLANS_HTTP_ADDR", ":8080")
	shutdownTimeout, err := env.Duration("PLANS_SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		logger.Error("invalid env", "error", err)
		os.Exit(2)
	}

	dbCfg, err := postgres.ConfigFromEnv()
	if err != nil {
		logger.Error("invalid database config", "error", err)
		os.Exit(2)
	}
	db, err := postgres.Open(ctx, dbCfg)
	if err != nil {
		logger.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	schemaCtx, cancelSchema := context.WithTimeout(ctx, 15*time.Second)
	if err := repopg.EnsureSchema(schemaCtx, db); err != nil {
		cancelSchema()
		logger.Error("schema apply failed", "error", err)
		os.Exit(1)
	}
	cancelSchema()

	storeCfg, err := objectstore.ConfigFromEnv()
	if err != nil {
		logger.Error("invalid object store config", "error", err)
		os.Exit(2)
	}
	storeClient, err := objectstore.NewMinIOClient(storeCfg)
	if err != nil {
		logger.Error("object store client init failed", "error", err)
		os.Exit(2)
	}
	startupCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	if err := objectstore.EnsureBuckets(startupCtx, storeClient, storeCfg); err != nil {
		cancel()
		logger.Error("object store unavailable", "error", err)
		os.Exit(1)
	}
	cancel()

	workflowCfg, err := workflow.LoadConfig(env.String("PLANS_WORKFLOW_CONFIG", ""))
	if err != nil {
		logger.Error("invalid workflow config", "error", err)
		os.Exit(2)
	}

	reg := metrics.New("plans")

	planStore := repopg.NewPlanStore(db)
	historyStore := repopg.NewHistoryStore(db)
	supplierStore := repopg.NewSupplierStore(db)
	accountStore := repopg.NewAccountStore(db)
	evaluationStore := repopg.NewEvaluationStore(db)

	service := workflow.New(planStore, historyStore, workflowCfg, logger).WithMetrics(reg)
	provisioner := workflow.NewAutoProvisioner(accountStore, supplierStore, db, logNotifier{logger: logger}, logger).WithMetrics(reg)
	service.AddHook(provisioner)
	scanner := workflow.NewScanner(planStore, service, workflowCfg, logger).WithMetrics(reg)

	scanInterval, err := env.Duration("PLANS_SCAN_INTERVAL", 0)
	if err != nil {
		logger.Error("invalid env", "error", err)
		os.Exit(2)
	}
	if scanInterval > 0 {
		go runScans(ctx, logger, scanner, scanInterval)
	}

	authenticator, err := buildAuthenticator(ctx, logger)
	if err != nil {
		logger.Error("invalid auth config", "error", err)
		os.Exit(2)
	}

	authorizer := auth.RequireRoles(map[string][]string{
		"/suppliers":   {auth.RoleTechnician, auth.RoleManager, auth.RoleAdmin},
		"/evaluations": {auth.RoleTechnician, auth.RoleManager, auth.RoleAdmin},
		"/scans":       {auth.RoleAdmin},
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", httpserver.Healthz("plans"))
	mux.HandleFunc(
		"/readyz",
		httpserver.ReadyzWithChecks(
			"plans",
			httpserver.ReadinessCheck{
				Name: "postgres",
				Check: func(ctx context.Context) error {
					checkCtx, cancel := context.WithTimeout(ctx, 750*time.Millisecond)
					defer cancel()
					return db.PingContext(checkCtx)
				},
			},
			httpserver.ReadinessCheck{
				Name: "minio",
				Check: func(ctx context.Context) error {
					checkCtx, cancel := context.WithTimeout(ctx, 750*time.Millisecond)
					defer cancel()
					return objectstore.CheckBuckets(checkCtx, storeClient, storeCfg)
				},
			},
		),
	)
	mux.Handle("/metrics", reg.Handler())

	uploadMaxMiB, err := env.Int("PLANS_UPLOAD_MAX_MIB", 32)
	if err != nil {
		logger.Error("invalid env", "error", err)
		os.Exit(2)
	}

	letterStore, err := objectstore.NewMinioStore(storeClient)
	if err != nil {
		logger.Error("letter store init failed", "error", err)
		os.Exit(2)
	}

	api := newPlansAPI(logger, service, scanner, planStore, supplierStore, evaluationStore, letterStore, storeCfg, int64(uploadMaxMiB)<<20)
	api.register(mux)

	handler := auth.Middleware{
		Logger:        logger,
		Authenticator: authenticator,
		Authorize:     authorizer,
		Audit: func(ctx context.Context, event auth.DenyEvent) error {
			auditCtx, cancel := context.WithTimeout(ctx, 750*time.Millisecond)
			defer cancel()
			return auditlog.InsertAuthDeny(auditCtx, db, "plans", event)
		},
		SkipPrefixes: []string{"/healthz", "/readyz", "/metrics"},
	}.Wrap(mux)

	cfg := httpserver.Config{
		Service:         "plans",
		Addr:            addr,
		ShutdownTimeout: shutdownTimeout,
	}

	if err := httpserver.Run(ctx, logger, cfg, httpserver.Wrap(logger, "plans", handler)); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func buildAuthenticator(ctx context.Context, logger *slog.Logger) (auth.Authenticator, error) {
	if secret := env.String("MEJORA_INTERNAL_AUTH_SECRET", ""); secret != "" {
		return auth.NewGatewayHeadersAuthenticator(secret)
	}
	authCfg, err := auth.ConfigFromEnv()
	if err != nil {
		return nil, err
	}
	switch authCfg.Mode {
	case auth.ModeDev:
		logger.Warn("dev auth mode enabled, do not use in production")
		return auth.NewDevAuthenticator(authCfg), nil
	default:
		return auth.NewOIDCAuthenticator(ctx, authCfg)
	}
}

// logNotifier records that credentials went out. The secret itself is handed
// to the supplier out of band and never logged.
type logNotifier struct {
	logger *slog.Logger
}

func (n logNotifier) DeliverCredentials(ctx context.Context, supplier domain.Supplier, username, secret string) error {
	n.logger.Info("supplier credentials issued",
		"supplier_id", supplier.ID,
		"username", username,
		"email", supplier.Email,
	)
	return nil
}

// runScans drives the daily automation when the service runs without an
// external scheduler.
func runScans(ctx context.Context, logger *slog.Logger, scanner *workflow.Scanner, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if report := scanner.ScanSilence(ctx); report.Err() != nil {
				logger.Warn("silence scan errors", "error", report.Err())
			}
			if report := scanner.ScanDeadlines(ctx); report.Err() != nil {
				logger.Warn("deadline scan errors", "error", report.Err())
			}
			if report := scanner.ScanResponseCounters(ctx); report.Err() != nil {
				logger.Warn("counter scan errors", "error", report.Err())
			}
		}
	}
}
