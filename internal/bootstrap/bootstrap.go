package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/healthchain/rxintake/internal/config"
	"github.com/healthchain/rxintake/internal/core/ports"
	"github.com/healthchain/rxintake/internal/core/usecase"
	"github.com/healthchain/rxintake/internal/infrastructure/auth"
	"github.com/healthchain/rxintake/internal/infrastructure/blobstore/ipfs"
	"github.com/healthchain/rxintake/internal/infrastructure/ddi"
	"github.com/healthchain/rxintake/internal/infrastructure/extraction/gemini"
	"github.com/healthchain/rxintake/internal/infrastructure/extraction/pdfpages"
	"github.com/healthchain/rxintake/internal/infrastructure/ledger/multichain"
	"github.com/healthchain/rxintake/internal/infrastructure/llm/ollama"
	"github.com/healthchain/rxintake/internal/infrastructure/queue/nats"
	"github.com/healthchain/rxintake/internal/infrastructure/repository/postgres"
	"github.com/healthchain/rxintake/internal/infrastructure/resilience"
	"github.com/healthchain/rxintake/internal/infrastructure/storage/localfs"
	"github.com/healthchain/rxintake/internal/observability/metrics"
)

// App holds the wired dependency graph. The queue is optional: with no
// NATS URL configured, audit publishing is disabled and IngestUC gets a
// nil publisher.
type App struct {
	Config  config.Config
	Metrics *metrics.HTTPServerMetrics

	Sessions ports.SessionManager
	Ledger   ports.Ledger

	LoginUC     ports.LoginService
	IngestUC    ports.PrescriptionIngestor
	RiskUC      ports.RiskProfiler
	DashboardUC ports.DashboardService

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	serverMetrics := metrics.NewHTTPServerMetrics("api")
	executor := resilience.NewExecutor(resilience.DefaultConfig()).
		WithObserver(func(operation string, duration time.Duration) {
			serverMetrics.RecordExternalCall("api", operation, duration)
		})

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	clinicians := postgres.NewClinicianRepository(db)
	if err := clinicians.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	staging, err := localfs.NewStaging(cfg.UploadDir)
	if err != nil {
		return nil, fmt.Errorf("init staging store: %w", err)
	}

	ledger := multichain.New(cfg.MultichainRPCURL, cfg.MultichainRPCUser, cfg.MultichainRPCPass,
		cfg.MultichainTimeout, executor)
	blobs := ipfs.New(cfg.IPFSAddURL, cfg.IPFSTimeout, executor)

	images := gemini.New(cfg.GeminiURL, cfg.GeminiModel, cfg.GeminiAPIKey, cfg.GeminiTimeout)
	docs := pdfpages.New()

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaModel, cfg.OllamaTimeout)
	analyzer := ollama.NewAnalyzer(ollamaClient)
	narrator := ollama.NewNarrator(ollamaClient)

	dataset := ddi.LoadDataset(cfg.DDIDatasetPath)

	var audit ports.AuditPublisher
	var queue *nats.Queue
	if cfg.NATSURL != "" {
		queue, err = nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			ResilienceExecutor: executor,
		})
		if err != nil {
			return nil, fmt.Errorf("init audit queue: %w", err)
		}
		audit = queue
	} else {
		slog.Info("audit queue disabled, no NATS url configured")
	}

	sessions := auth.NewManager(cfg.JWTSecret, cfg.TokenTTL)

	loginUC := usecase.NewLoginUseCase(clinicians, sessions)
	ingestUC := usecase.NewIngestPrescriptionUseCase(staging, blobs, images, docs, analyzer,
		ledger, audit, dataset, cfg.MultichainStream)
	riskUC := usecase.NewRiskProfileUseCase(ledger, analyzer, narrator, dataset, cfg.MultichainStream)
	dashboardUC := usecase.NewDashboardUseCase(ledger, cfg.MultichainStream)

	return &App{
		Config:  cfg,
		Metrics: serverMetrics,

		Sessions: sessions,
		Ledger:   ledger,

		LoginUC:     loginUC,
		IngestUC:    ingestUC,
		RiskUC:      riskUC,
		DashboardUC: dashboardUC,

		closeFn: func() {
			if queue != nil {
				queue.Close()
			}
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
