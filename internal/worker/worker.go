package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/skillforge/marketplace/internal/models"
	"github.com/skillforge/marketplace/internal/notifications"
	"github.com/skillforge/marketplace/pkg/queue"
)

// pollTimeout bounds each blocking dequeue so shutdown is noticed.
const pollTimeout = 5 * time.Second

// Jobs is the queue the worker drains.
type Jobs interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) (bool, error)
}

// LogWriter records delivery attempts.
type LogWriter interface {
	Create(ctx context.Context, el *models.EmailLog) error
}

// EmailProcessor processes email jobs: send, then record the attempt in email_logs.
type EmailProcessor struct {
	jobs    Jobs
	sender  notifications.Sender
	logs    LogWriter
	backoff time.Duration
	now     func() time.Time
	logger  *zap.Logger
}

// NewEmailProcessor creates an email processor. backoff <= 0 uses queue.RetryBackoff.
func NewEmailProcessor(jobs Jobs, sender notifications.Sender, logs LogWriter, backoff time.Duration, logger *zap.Logger) *EmailProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if backoff <= 0 {
		backoff = queue.RetryBackoff
	}
	return &EmailProcessor{jobs: jobs, sender: sender, logs: logs, backoff: backoff, now: time.Now, logger: logger}
}

// Process executes one email job.
func (p *EmailProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeEmail {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.EmailPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	sendErr := p.sender.Send(ctx, notifications.Message{
		To:       payload.RecipientEmail,
		Subject:  payload.Subject,
		HTMLBody: payload.BodyHTML,
		TextBody: payload.BodyText,
	})

	el := &models.EmailLog{
		UserID:         payload.UserID,
		EmailType:      payload.EmailType,
		Reference:      payload.Reference,
		RecipientEmail: payload.RecipientEmail,
		Subject:        payload.Subject,
		Status:         models.EmailLogStatusSent,
		Attempt:        job.Attempt + 1,
	}
	if sendErr != nil {
		el.Status = models.EmailLogStatusFailed
		el.ErrorMessage = sendErr.Error()
	} else {
		at := p.now()
		el.SentAt = &at
	}
	// a lost log row must not cause a second delivery
	if err := p.logs.Create(ctx, el); err != nil {
		p.logger.Warn("write email log failed", zap.String("job_id", job.ID), zap.Error(err))
	}

	if sendErr != nil {
		return fmt.Errorf("send: %w", sendErr)
	}
	p.logger.Info("email sent",
		zap.String("job_id", job.ID),
		zap.String("email_type", payload.EmailType),
		zap.String("reference", payload.Reference),
	)
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error. It returns when ctx is done.
func (p *EmailProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("email worker stopping")
			return
		default:
		}

		job, err := p.jobs.Dequeue(ctx, pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
			if _, reErr := p.jobs.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.String("job_id", job.ID), zap.Error(reErr))
			}
			p.sleep(ctx)
		}
	}
}

func (p *EmailProcessor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
