package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"github.com/replyline/replyline/internal/pipeline/usecase"
	"github.com/replyline/replyline/pkg/gmail"
)

// gmailNotification is the payload Gmail publishes on the push topic.
type gmailNotification struct {
	EmailAddress string `json:"emailAddress"`
	HistoryID    uint64 `json:"historyId"`
}

// debounceWindow coalesces the burst of notifications Gmail publishes for a
// single inbox change into one intake run.
const debounceWindow = 30 * time.Second

// watchRenewInterval re-registers the mailbox watch well inside Gmail's
// seven-day expiry.
const watchRenewInterval = 24 * time.Hour

// Service listens for Gmail push notifications and kicks an early intake run
// so matched emails enter the pipeline ahead of the next cron tick. Purely an
// accelerator: intake stays idempotent, so a lost or duplicate notification
// costs nothing.
type Service struct {
	client    *pubsub.Client
	gmail     *gmail.Service
	runner    *usecase.Runner
	intake    *usecase.IntakeJob
	account   string
	projectID string
	topicName string
	subName   string
	logger    *zap.Logger

	mu            sync.Mutex
	lastHistoryID uint64
	lastRun       time.Time
}

func NewService(
	projectID, topicName, account string,
	gmailService *gmail.Service,
	runner *usecase.Runner,
	intake *usecase.IntakeJob,
	logger *zap.Logger,
) (*Service, error) {
	client, err := pubsub.NewClient(context.Background(), projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}

	return &Service{
		client:    client,
		gmail:     gmailService,
		runner:    runner,
		intake:    intake,
		account:   account,
		projectID: projectID,
		topicName: topicName,
		subName:   topicName + "-sub",
		logger:    logger.Named("notification"),
	}, nil
}

// Start registers the mailbox watch and blocks receiving push messages until
// the context is cancelled.
func (s *Service) Start(ctx context.Context) {
	s.logger.Info("starting push notification service",
		zap.String("topic", s.topicName),
		zap.String("subscription", s.subName))

	go s.keepWatchAlive(ctx)

	sub := s.client.Subscription(s.subName)
	exists, err := sub.Exists(ctx)
	if err != nil {
		s.logger.Error("could not check subscription", zap.Error(err))
		return
	}

	if !exists {
		topic := s.client.Topic(s.topicName)
		topicExists, err := topic.Exists(ctx)
		if err != nil {
			s.logger.Error("could not check topic", zap.Error(err))
			return
		}
		if !topicExists {
			s.logger.Error("push topic does not exist", zap.String("topic", s.topicName))
			return
		}

		sub, err = s.client.CreateSubscription(ctx, s.subName, pubsub.SubscriptionConfig{
			Topic:       topic,
			AckDeadline: 10 * time.Second,
		})
		if err != nil {
			s.logger.Error("could not create subscription", zap.Error(err))
			return
		}
		s.logger.Info("created subscription", zap.String("subscription", s.subName))
	}

	err = sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		s.handleMessage(ctx, msg)
		msg.Ack()
	})
	if err != nil && ctx.Err() == nil {
		s.logger.Error("receive loop ended", zap.Error(err))
	}
}

// keepWatchAlive registers the Gmail watch immediately and renews it daily.
func (s *Service) keepWatchAlive(ctx context.Context) {
	register := func() {
		if err := s.gmail.Watch(ctx, s.account, s.projectID, s.topicName); err != nil {
			s.logger.Error("could not register mailbox watch", zap.Error(err))
			return
		}
		s.logger.Info("mailbox watch registered", zap.String("account", s.account))
	}

	register()
	ticker := time.NewTicker(watchRenewInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			register()
		case <-ctx.Done():
			return
		}
	}
}

func (s *Service) handleMessage(ctx context.Context, msg *pubsub.Message) {
	var notification gmailNotification
	if err := json.Unmarshal(msg.Data, &notification); err != nil {
		s.logger.Warn("unparseable push message", zap.Error(err))
		return
	}

	if notification.EmailAddress != s.account {
		return
	}

	s.mu.Lock()
	stale := notification.HistoryID != 0 && notification.HistoryID <= s.lastHistoryID
	debounced := time.Since(s.lastRun) < debounceWindow
	if !stale {
		s.lastHistoryID = notification.HistoryID
	}
	if !stale && !debounced {
		s.lastRun = time.Now()
	}
	s.mu.Unlock()

	if stale || debounced {
		return
	}

	s.logger.Info("inbox change notification, running intake early",
		zap.Uint64("history_id", notification.HistoryID))

	_, _ = s.runner.Run(ctx, usecase.StageIntake, func(ctx context.Context) (any, error) {
		return s.intake.Run(ctx)
	})
}

// Close releases the Pub/Sub client.
func (s *Service) Close() error {
	return s.client.Close()
}
