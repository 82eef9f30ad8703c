package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/replyline/replyline/internal/pipeline/domain"
	"github.com/replyline/replyline/internal/pipeline/repository"
	"github.com/replyline/replyline/pkg/metrics"
)

// Stage names as they appear in run logs and metrics.
const (
	StageIntake   = "intake"
	StageGenerate = "generate"
	StageSend     = "send"
)

// Stage is one pipeline stage invocation. The returned stats value is
// marshaled into the run log.
type Stage func(ctx context.Context) (stats any, err error)

// Runner wraps stage invocations with a wall-clock budget, panic recovery
// and an audit record. Run log writes are best effort and never fail the
// stage.
type Runner struct {
	logs    repository.CronRunLogRepository
	timeout time.Duration
	logger  *zap.Logger
}

func NewRunner(logs repository.CronRunLogRepository, timeout time.Duration, logger *zap.Logger) *Runner {
	return &Runner{
		logs:    logs,
		timeout: timeout,
		logger:  logger.Named("runner"),
	}
}

func (r *Runner) Run(ctx context.Context, name string, stage Stage) (any, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	stats, err := r.invoke(ctx, stage)
	duration := time.Since(start)

	status := domain.RunSuccess
	if err != nil {
		status = domain.RunError
	}
	metrics.ObserveStage(name, string(status), duration)

	entry := &domain.CronRunLog{
		JobName:    name,
		Status:     status,
		StartedAt:  start,
		DurationMs: duration.Milliseconds(),
	}
	if err != nil {
		entry.ErrorMessage = err.Error()
	}
	if stats != nil {
		if payload, marshalErr := json.Marshal(stats); marshalErr == nil {
			entry.Stats = string(payload)
		}
	}
	if logErr := r.logs.Append(entry); logErr != nil {
		r.logger.Error("could not append run log",
			zap.String("job", name),
			zap.Error(logErr))
	}

	if err != nil {
		r.logger.Error("stage failed",
			zap.String("job", name),
			zap.Duration("duration", duration),
			zap.Error(err))
	}
	return stats, err
}

// invoke isolates the stage call so a panic becomes a stage error instead of
// taking down the process.
func (r *Runner) invoke(ctx context.Context, stage Stage) (stats any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("stage panicked: %v", rec)
		}
	}()
	return stage(ctx)
}
