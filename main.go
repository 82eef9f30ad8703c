package main

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"go.uber.org/zap"

	api "github.com/replyline/replyline/cmd/api"
	draftDelivery "github.com/replyline/replyline/internal/draft/delivery"
	draftdomain "github.com/replyline/replyline/internal/draft/domain"
	draftRepo "github.com/replyline/replyline/internal/draft/repository"
	draftUsecase "github.com/replyline/replyline/internal/draft/usecase"
	"github.com/replyline/replyline/internal/notification"
	pipelineDelivery "github.com/replyline/replyline/internal/pipeline/delivery"
	pipelinedomain "github.com/replyline/replyline/internal/pipeline/domain"
	pipelineRepo "github.com/replyline/replyline/internal/pipeline/repository"
	"github.com/replyline/replyline/internal/pipeline/scheduler"
	pipelineUsecase "github.com/replyline/replyline/internal/pipeline/usecase"
	settingsDelivery "github.com/replyline/replyline/internal/settings/delivery"
	settingsdomain "github.com/replyline/replyline/internal/settings/domain"
	settingsRepo "github.com/replyline/replyline/internal/settings/repository"
	triggerDelivery "github.com/replyline/replyline/internal/trigger/delivery"
	triggerdomain "github.com/replyline/replyline/internal/trigger/domain"
	triggerRepo "github.com/replyline/replyline/internal/trigger/repository"
	triggerUsecase "github.com/replyline/replyline/internal/trigger/usecase"
	"github.com/replyline/replyline/pkg/ai"
	"github.com/replyline/replyline/pkg/config"
	"github.com/replyline/replyline/pkg/database"
	"github.com/replyline/replyline/pkg/gmail"
	"github.com/replyline/replyline/pkg/logger"
)

func main() {
	cfg := config.Load()

	log := logger.New()
	defer log.Sync()

	db, err := database.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	if err := db.AutoMigrate(
		&triggerdomain.Trigger{},
		&triggerdomain.StyleExample{},
		&settingsdomain.Settings{},
		&draftdomain.Draft{},
		&draftdomain.ProcessedEmail{},
		&pipelinedomain.CronRunLog{},
	); err != nil {
		log.Fatal("failed to migrate database", zap.Error(err))
	}

	// Repositories
	triggers := triggerRepo.NewGormTriggerRepository(db)
	examples := triggerRepo.NewGormStyleExampleRepository(db)
	settings := settingsRepo.NewGormSettingsRepository(db)
	drafts := draftRepo.NewGormDraftRepository(db)
	ledger := draftRepo.NewGormProcessedEmailRepository(db)
	runLogs := pipelineRepo.NewGormCronRunLogRepository(db)

	// External services
	gmailService := gmail.NewService(cfg.GoogleServiceAccountEmail, cfg.GoogleServiceAccountKey, log)

	responder, err := ai.NewResponder(ai.Config{
		Provider:        ai.ProviderType(cfg.AIProvider),
		AnthropicAPIKey: cfg.AnthropicAPIKey,
		OllamaBaseURL:   cfg.OllamaBaseURL,
		OllamaModel:     cfg.OllamaModel,
	}, log)
	if err != nil {
		log.Fatal("failed to initialize AI provider", zap.Error(err))
	}

	sched := scheduler.New(rand.New(rand.NewSource(time.Now().UnixNano())))

	// Pipeline stages
	intake := pipelineUsecase.NewIntakeJob(settings, triggers, drafts, ledger, gmailService, responder, cfg.IntakeLookback, log)
	generate := pipelineUsecase.NewGenerateJob(settings, triggers, examples, drafts, responder, sched, log)
	send := pipelineUsecase.NewSendJob(settings, drafts, gmailService, cfg.DevMode, log)
	runner := pipelineUsecase.NewRunner(runLogs, cfg.StageTimeout, log)

	ticker := pipelineUsecase.NewTicker(runner, intake, generate, send,
		cfg.IntakeInterval, cfg.GenerateInterval, cfg.SendInterval, log)
	ticker.Start()
	defer ticker.Stop()

	// Gmail push notifications, optional accelerator for intake
	if cfg.GoogleProjectID != "" {
		topicName := cfg.GmailPushTopic
		if parts := strings.Split(topicName, "/"); len(parts) > 1 {
			topicName = parts[len(parts)-1]
		}

		account := ""
		if current, err := settings.Get(); err == nil && current != nil {
			account = current.CEOEmail
		}
		if account == "" {
			log.Warn("settings missing ceo email, push notifications disabled")
		} else {
			notifService, err := notification.NewService(cfg.GoogleProjectID, topicName, account, gmailService, runner, intake, log)
			if err != nil {
				log.Error("failed to initialize notification service", zap.Error(err))
			} else {
				go notifService.Start(context.Background())
			}
		}
	} else {
		log.Info("no google project configured, push notifications disabled")
	}

	// Human-facing usecases
	draftsUc := draftUsecase.NewDraftUsecase(drafts, examples, settings, sched, gmailService, cfg.DevMode, log)
	triggersUc := triggerUsecase.NewTriggerUsecase(triggers, examples, settings, gmailService, log)

	// HTTP surface
	handler := api.NewHandler(
		draftDelivery.NewDraftHandler(draftsUc),
		triggerDelivery.NewTriggerHandler(triggersUc),
		settingsDelivery.NewSettingsHandler(settings),
		pipelineDelivery.NewPipelineHandler(runner, intake, generate, send, runLogs),
		cfg,
		log,
	)

	if err := handler.Start(":" + cfg.Port); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}
