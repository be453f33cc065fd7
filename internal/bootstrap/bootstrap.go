package bootstrap

import (
	"context"

	"intake-server/internal/clients/notify"
	"intake-server/internal/config"
	intakeHandler "intake-server/internal/intake/handler"
	"intake-server/internal/observability"
)

// Dependencies holds all initialized application dependencies
type Dependencies struct {
	Logger        *observability.Logger
	NotifyClient  *notify.Client
	IntakeHandler intakeHandler.Handler
}

// Initialize sets up all application dependencies
func Initialize(ctx context.Context, cfg *config.Config, logger *observability.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Logger: logger,
	}

	deps.NotifyClient = notify.New(cfg.Services.NotifyWebhookURL, logger)
	deps.IntakeHandler = intakeHandler.New(
		cfg.Services.OpenAIAPIKey,
		cfg.Server.PublicHost,
		deps.NotifyClient,
		logger,
	)

	logger.Info(ctx, "Dependencies initialized")
	return deps, nil
}
