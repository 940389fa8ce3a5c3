package outreach

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/resilience"
	"github.com/sells-group/outreach-cli/internal/store"
	"github.com/sells-group/outreach-cli/pkg/mailer"
)

// Storage is the slice of the store the scheduler needs.
type Storage interface {
	ListLeads(ctx context.Context, filter store.LeadFilter) ([]model.Lead, error)
	UpdateLeadStatus(ctx context.Context, id string, status model.LeadStatus) error
	CreateSend(ctx context.Context, send *model.Send) error
	CompleteSend(ctx context.Context, sendID string, status model.SendStatus, errMsg string) error
	LastStepSend(ctx context.Context, leadID, campaign string) (*model.Send, error)
	AddDeadLetter(ctx context.Context, dl *store.DeadLetter) error
}

// Scheduler drives one campaign: each tick it finds due (lead, step) pairs,
// renders or generates the message, sends it, and records the outcome. The
// loop never stops on a per-lead failure.
type Scheduler struct {
	store        Storage
	sender       mailer.Sender
	generator    Generator
	campaign     *Campaign
	from         string
	pollInterval time.Duration
	dailyCap     int

	sentToday int
	capDay    time.Time
	now       func() time.Time
}

// SchedulerConfig bundles scheduler construction parameters.
type SchedulerConfig struct {
	From         string
	PollInterval time.Duration
	DailyCap     int
}

// NewScheduler creates a Scheduler. The generator may be nil when the
// campaign has no generated steps.
func NewScheduler(st Storage, sender mailer.Sender, gen Generator, campaign *Campaign, cfg SchedulerConfig) *Scheduler {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Minute
	}
	if cfg.DailyCap <= 0 {
		cfg.DailyCap = 100
	}
	return &Scheduler{
		store:        st,
		sender:       sender,
		generator:    gen,
		campaign:     campaign,
		from:         cfg.From,
		pollInterval: cfg.PollInterval,
		dailyCap:     cfg.DailyCap,
		now:          time.Now,
	}
}

// TickStats summarizes one scheduler pass.
type TickStats struct {
	Due     int `json:"due"`
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Capped  int `json:"capped"`
	Skipped int `json:"skipped"`
}

// Run polls until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	zap.L().Info("outreach: scheduler started",
		zap.String("campaign", s.campaign.Name),
		zap.Duration("poll_interval", s.pollInterval),
		zap.Int("daily_cap", s.dailyCap),
	)

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		stats, err := s.Tick(ctx)
		if err != nil {
			zap.L().Error("outreach: tick failed", zap.Error(err))
		} else if stats.Due > 0 {
			zap.L().Info("outreach: tick complete",
				zap.Int("due", stats.Due),
				zap.Int("sent", stats.Sent),
				zap.Int("failed", stats.Failed),
				zap.Int("capped", stats.Capped),
			)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Tick runs one scheduler pass: find due pairs, send, record.
func (s *Scheduler) Tick(ctx context.Context) (*TickStats, error) {
	stats := &TickStats{}
	s.rollCapWindow()

	leads, err := s.candidates(ctx)
	if err != nil {
		return nil, err
	}

	for i := range leads {
		lead := &leads[i]
		step, due, err := s.dueStep(ctx, lead)
		if err != nil {
			zap.L().Warn("outreach: due check failed",
				zap.String("lead_id", lead.ID),
				zap.Error(err),
			)
			stats.Skipped++
			continue
		}
		if !due {
			continue
		}
		stats.Due++

		if s.sentToday >= s.dailyCap {
			stats.Capped++
			continue
		}

		if err := s.sendStep(ctx, lead, step); err != nil {
			stats.Failed++
			continue
		}
		stats.Sent++
		s.sentToday++
	}

	return stats, nil
}

// candidates lists leads eligible for outreach. Replied, bounced, and
// unsubscribed leads are never contacted again.
func (s *Scheduler) candidates(ctx context.Context) ([]model.Lead, error) {
	queued, err := s.store.ListLeads(ctx, store.LeadFilter{Status: model.LeadStatusQueued})
	if err != nil {
		return nil, eris.Wrap(err, "outreach: list queued leads")
	}
	contacted, err := s.store.ListLeads(ctx, store.LeadFilter{Status: model.LeadStatusContacted})
	if err != nil {
		return nil, eris.Wrap(err, "outreach: list contacted leads")
	}
	return append(queued, contacted...), nil
}

// dueStep returns the next step index due for the lead, if any. Step 0 is
// due immediately for leads with no prior send; step k is due once the step
// k-1 send is older than step k's delay. A failed last send makes the same
// step due again.
func (s *Scheduler) dueStep(ctx context.Context, lead *model.Lead) (int, bool, error) {
	last, err := s.store.LastStepSend(ctx, lead.ID, s.campaign.Name)
	if err != nil {
		return 0, false, err
	}
	if last == nil {
		return 0, true, nil
	}

	switch last.Status {
	case model.SendStatusFailed:
		return last.Step, true, nil
	case model.SendStatusPending:
		// An in-flight (or crashed) send; don't double-send.
		return 0, false, nil
	}

	next := last.Step + 1
	if next >= len(s.campaign.Steps) {
		return 0, false, nil
	}
	if last.SentAt == nil {
		return 0, false, nil
	}
	if s.now().Sub(*last.SentAt) < s.campaign.Steps[next].Delay {
		return 0, false, nil
	}
	return next, true, nil
}

// sendStep renders, sends, and records one (lead, step) email.
func (s *Scheduler) sendStep(ctx context.Context, lead *model.Lead, stepIdx int) error {
	step := s.campaign.Steps[stepIdx]
	data := NewTemplateData(lead, s.from)

	subject, err := Render(step.Subject, data)
	if err != nil {
		s.recordFailure(ctx, lead, stepIdx, "", err)
		return err
	}

	body, err := s.buildBody(ctx, step, data)
	if err != nil {
		s.recordFailure(ctx, lead, stepIdx, subject, err)
		return err
	}

	send := &model.Send{
		ID:        uuid.NewString(),
		LeadID:    lead.ID,
		Campaign:  s.campaign.Name,
		Step:      stepIdx,
		Subject:   subject,
		Status:    model.SendStatusPending,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.CreateSend(ctx, send); err != nil {
		return eris.Wrap(err, "outreach: create send")
	}

	msg := mailer.Message{From: s.from, To: lead.Email, Subject: subject, Body: body}
	sendErr := resilience.Do(ctx, resilience.DefaultRetryConfig(), func(ctx context.Context) error {
		return s.sender.Send(ctx, msg)
	})
	if sendErr != nil {
		if err := s.store.CompleteSend(ctx, send.ID, model.SendStatusFailed, sendErr.Error()); err != nil {
			zap.L().Error("outreach: record failed send", zap.Error(err))
		}
		s.recordFailure(ctx, lead, stepIdx, subject, sendErr)
		return sendErr
	}

	if err := s.store.CompleteSend(ctx, send.ID, model.SendStatusSent, ""); err != nil {
		return eris.Wrap(err, "outreach: complete send")
	}
	if lead.Status == model.LeadStatusQueued {
		if err := s.store.UpdateLeadStatus(ctx, lead.ID, model.LeadStatusContacted); err != nil {
			zap.L().Warn("outreach: mark lead contacted failed",
				zap.String("lead_id", lead.ID),
				zap.Error(err),
			)
		}
	}

	zap.L().Info("outreach: sent",
		zap.String("lead_id", lead.ID),
		zap.String("campaign", s.campaign.Name),
		zap.Int("step", stepIdx),
	)
	return nil
}

func (s *Scheduler) buildBody(ctx context.Context, step Step, data TemplateData) (string, error) {
	if step.Body != "" {
		return Render(step.Body, data)
	}

	if s.generator == nil {
		return "", eris.New("outreach: step requires a generator but none is configured")
	}
	prompt, err := Render(step.Generate, data)
	if err != nil {
		return "", err
	}
	body, err := s.generator.Generate(ctx, s.campaign.System, prompt)
	if err != nil {
		return "", eris.Wrap(err, "outreach: generate body")
	}
	return body, nil
}

// recordFailure parks the failure as a dead letter, classified transient or
// permanent.
func (s *Scheduler) recordFailure(ctx context.Context, lead *model.Lead, stepIdx int, subject string, sendErr error) {
	dl := &store.DeadLetter{
		ID:        uuid.NewString(),
		LeadID:    lead.ID,
		Campaign:  s.campaign.Name,
		Step:      stepIdx,
		Error:     sendErr.Error(),
		ErrorType: resilience.ClassifySendError(sendErr),
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.AddDeadLetter(ctx, dl); err != nil {
		zap.L().Error("outreach: add dead letter failed", zap.Error(err))
	}

	zap.L().Warn("outreach: send failed",
		zap.String("lead_id", lead.ID),
		zap.Int("step", stepIdx),
		zap.String("error_type", dl.ErrorType),
		zap.Error(sendErr),
	)
}

// rollCapWindow resets the daily send counter at midnight UTC.
func (s *Scheduler) rollCapWindow() {
	today := s.now().UTC().Truncate(24 * time.Hour)
	if !today.Equal(s.capDay) {
		s.capDay = today
		s.sentToday = 0
	}
}
