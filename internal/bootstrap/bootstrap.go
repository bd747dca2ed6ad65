package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/nkoval/form-autofill/internal/config"
	"github.com/nkoval/form-autofill/internal/core/ports"
	"github.com/nkoval/form-autofill/internal/core/usecase"
	"github.com/nkoval/form-autofill/internal/infrastructure/credentials/s3post"
	"github.com/nkoval/form-autofill/internal/infrastructure/llm/openai"
	"github.com/nkoval/form-autofill/internal/infrastructure/queue/nats"
	"github.com/nkoval/form-autofill/internal/infrastructure/repository/postgres"
	"github.com/nkoval/form-autofill/internal/infrastructure/resilience"
)

type App struct {
	Config config.Config

	Queue ports.EventQueue
	Repo  ports.SessionRepository

	UploadUC  ports.UploadCreator
	EventsUC  ports.UploadEventHandler
	SuggestUC ports.SuggestionProcessor
	FormUC    ports.FormService

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewSessionRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	issuer, err := s3post.New(ctx, s3post.Config{
		Bucket:   cfg.S3Bucket,
		Region:   cfg.S3Region,
		Endpoint: cfg.S3Endpoint,
		TTL:      time.Duration(cfg.PresignTTLSeconds) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("init credential issuer: %w", err)
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: resilience.NewExecutor(resilience.DefaultConfig()),
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	suggestionClient, err := openai.New(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	if err != nil {
		return nil, fmt.Errorf("init suggestion client: %w", err)
	}

	uploadUC := usecase.NewCreateUploadUseCase(repo, issuer, cfg.MaxFileSizeBytes)
	eventsUC := usecase.NewWorkflowEventsUseCase(repo, queue)
	suggestUC := usecase.NewRetrieveSuggestionsUseCase(repo, suggestionClient)
	formUC := usecase.NewFormUseCase(repo)

	return &App{
		Config: cfg,
		Queue:  queue,
		Repo:   repo,

		UploadUC:  uploadUC,
		EventsUC:  eventsUC,
		SuggestUC: suggestUC,
		FormUC:    formUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
