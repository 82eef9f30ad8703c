package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Ticker drives the three pipeline stages on independent intervals, in
// addition to the cron endpoints. Each stage invocation goes through the
// Runner, so ticker runs and cron runs share the same budget, audit trail
// and dedup guarantees.
type Ticker struct {
	runner   *Runner
	intake   *IntakeJob
	generate *GenerateJob
	send     *SendJob

	intakeInterval   time.Duration
	generateInterval time.Duration
	sendInterval     time.Duration

	stopChan chan struct{}
	logger   *zap.Logger
}

func NewTicker(
	runner *Runner,
	intake *IntakeJob,
	generate *GenerateJob,
	send *SendJob,
	intakeInterval, generateInterval, sendInterval time.Duration,
	logger *zap.Logger,
) *Ticker {
	return &Ticker{
		runner:           runner,
		intake:           intake,
		generate:         generate,
		send:             send,
		intakeInterval:   intakeInterval,
		generateInterval: generateInterval,
		sendInterval:     sendInterval,
		stopChan:         make(chan struct{}),
		logger:           logger.Named("ticker"),
	}
}

// Start launches one loop per stage. Stages run independently; a slow
// intake never delays a due send.
func (t *Ticker) Start() {
	t.logger.Info("starting pipeline loops",
		zap.Duration("intake", t.intakeInterval),
		zap.Duration("generate", t.generateInterval),
		zap.Duration("send", t.sendInterval))

	go t.loop(StageIntake, t.intakeInterval, func(ctx context.Context) (any, error) {
		return t.intake.Run(ctx)
	})
	go t.loop(StageGenerate, t.generateInterval, func(ctx context.Context) (any, error) {
		return t.generate.Run(ctx)
	})
	go t.loop(StageSend, t.sendInterval, func(ctx context.Context) (any, error) {
		return t.send.Run(ctx)
	})
}

// Stop halts all stage loops.
func (t *Ticker) Stop() {
	close(t.stopChan)
}

func (t *Ticker) loop(name string, interval time.Duration, stage Stage) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// Runner handles errors; a failed run must not stop the loop.
			_, _ = t.runner.Run(context.Background(), name, stage)
		case <-t.stopChan:
			t.logger.Info("pipeline loop stopped", zap.String("stage", name))
			return
		}
	}
}
